// Package domain contains the core data types for the group trips backend.
// This package has zero external dependencies and is imported by every other
// internal package (kv, repo, service, handler).
package domain

import (
	"fmt"
	"time"
)

// Member is a person attached to a trip. ID comes from the member directory;
// Username is the display name shown in member lists.
type Member struct {
	ID       string
	Username string
}

// Trip represents one group trip (or event; the two share a shape).
// A trip always has at least one member and StartDate is never after EndDate.
// StartDate and EndDate are calendar dates held at midnight UTC.
type Trip struct {
	ID        string
	Name      string
	Members   []Member
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

// TripDraft carries the user-supplied fields for a new trip. Members are
// given by directory ID and resolved by the service.
type TripDraft struct {
	Name      string
	MemberIDs []string
	StartDate time.Time
	EndDate   time.Time
}

// HasMember reports whether a member with the given ID is on the trip.
func (t Trip) HasMember(id string) bool {
	return t.memberIndex(id) >= 0
}

func (t Trip) memberIndex(id string) int {
	for i, m := range t.Members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// WithoutMember returns a copy of the trip with the member removed.
// The original Members slice is left untouched.
func (t Trip) WithoutMember(id string) Trip {
	out := make([]Member, 0, len(t.Members))
	for _, m := range t.Members {
		if m.ID != id {
			out = append(out, m)
		}
	}
	t.Members = out
	return t
}

// WithMember returns a copy of the trip with m appended.
func (t Trip) WithMember(m Member) Trip {
	out := make([]Member, len(t.Members), len(t.Members)+1)
	copy(out, t.Members)
	t.Members = append(out, m)
	return t
}

// DurationDays returns the inclusive number of calendar days the trip spans.
// A trip that starts and ends on the same day lasts one day. Days are counted
// from Unix seconds because time.Duration overflows past about 292 years.
func (t Trip) DurationDays() int {
	start := Date(t.StartDate)
	end := Date(t.EndDate)
	return int((end.Unix()-start.Unix())/secondsPerDay) + 1
}

const secondsPerDay = 24 * 60 * 60

// Duration returns a human-readable length such as "1 day" or "6 days".
func (t Trip) Duration() string {
	n := t.DurationDays()
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// Date truncates t to the calendar date it falls on, as midnight UTC.
// The year, month and day are read in t's own location so a local-midnight
// value keeps its calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
