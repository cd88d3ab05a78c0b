// Package repo contains the store accessor for trip collections.
// A collection is the full ordered list of trips serialised as one JSON array
// under a single kv key. There are no partial updates: every write replaces
// the whole array. No business logic lives here, only encoding and type mapping.
package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkordes/group-trips/internal/domain"
	"github.com/pkordes/group-trips/internal/kv"
)

// Keys of the two collections. Trips and events share a record shape but
// live under separate keys.
const (
	TripsKey  = "trips"
	EventsKey = "events"
)

// TripRepo defines the persistence operations for one collection.
// The service layer depends on this interface, not the kv-backed
// implementation, which allows the service to be unit-tested with a mock.
type TripRepo interface {
	// LoadAll returns every trip in stored order. A collection that was never
	// written yields an empty, non-nil slice. Undecodable data yields an
	// error wrapping domain.ErrCorrupt.
	LoadAll(ctx context.Context) ([]domain.Trip, error)

	// SaveAll overwrites the collection with trips. A trip that is unchanged
	// since it was loaded is written back with the exact bytes it was read
	// from, whatever date form or extra fields that record carried.
	SaveAll(ctx context.Context, trips []domain.Trip) error
}

// kvTripRepo is the kv.Store implementation of TripRepo.
type kvTripRepo struct {
	store kv.Store
	key   string

	mu     sync.Mutex
	loaded map[string]loadedRecord // by trip ID, from the last load or save
}

// loadedRecord pairs a stored record's bytes with the trip they decoded to.
type loadedRecord struct {
	raw  json.RawMessage
	trip domain.Trip
}

// NewTripRepo constructs a TripRepo that reads and writes the collection
// stored under key.
func NewTripRepo(store kv.Store, key string) TripRepo {
	return &kvTripRepo{store: store, key: key, loaded: map[string]loadedRecord{}}
}

// LoadAll fetches and decodes the collection.
func (r *kvTripRepo) LoadAll(ctx context.Context) ([]domain.Trip, error) {
	blob, found, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.LoadAll: %w", err)
	}
	if !found || len(blob) == 0 {
		return []domain.Trip{}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(blob, &raws); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.LoadAll: %s: %w: %v", r.key, domain.ErrCorrupt, err)
	}

	trips := make([]domain.Trip, 0, len(raws))
	seen := make(map[string]loadedRecord, len(raws))
	for i, raw := range raws {
		var rec tripRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("repo.TripRepo.LoadAll: %s[%d]: %w: %v", r.key, i, domain.ErrCorrupt, err)
		}
		t, err := rec.toDomain()
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.LoadAll: %s[%d]: %w: %v", r.key, i, domain.ErrCorrupt, err)
		}
		trips = append(trips, t)
		if _, dup := seen[t.ID]; !dup {
			seen[t.ID] = loadedRecord{raw: raw, trip: t}
		}
	}

	r.mu.Lock()
	r.loaded = seen
	r.mu.Unlock()
	return trips, nil
}

// SaveAll encodes trips and overwrites the stored blob. The array is
// assembled by hand so reused records keep their bytes exactly; json.Marshal
// would compact them.
func (r *kvTripRepo) SaveAll(ctx context.Context, trips []domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	written := make(map[string]loadedRecord, len(trips))
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, t := range trips {
		raw, err := r.encode(t)
		if err != nil {
			return fmt.Errorf("repo.TripRepo.SaveAll: encode %q: %w", t.ID, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
		if _, dup := written[t.ID]; !dup {
			written[t.ID] = loadedRecord{raw: raw, trip: t}
		}
	}
	buf.WriteByte(']')

	if err := r.store.Set(ctx, r.key, buf.Bytes()); err != nil {
		return fmt.Errorf("repo.TripRepo.SaveAll: %w", err)
	}
	r.loaded = written
	return nil
}

// encode returns the stored bytes for t, reusing the loaded record when t
// has not changed since. Callers hold r.mu.
func (r *kvTripRepo) encode(t domain.Trip) (json.RawMessage, error) {
	if prev, ok := r.loaded[t.ID]; ok && sameTrip(prev.trip, t) {
		return prev.raw, nil
	}
	return json.Marshal(recordFromDomain(t))
}

func sameTrip(a, b domain.Trip) bool {
	if a.ID != b.ID || a.Name != b.Name || len(a.Members) != len(b.Members) {
		return false
	}
	for i := range a.Members {
		if a.Members[i] != b.Members[i] {
			return false
		}
	}
	return a.StartDate.Equal(b.StartDate) &&
		a.EndDate.Equal(b.EndDate) &&
		a.CreatedAt.Equal(b.CreatedAt)
}

// --- stored layout ----------------------------------------------------------

// tripRecord is the persisted shape of a trip. Field names are part of the
// storage format and must not change without a migration.
type tripRecord struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Members   []memberRecord `json:"members"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	CreatedAt string         `json:"createdAt"`
}

type memberRecord struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func recordFromDomain(t domain.Trip) tripRecord {
	members := make([]memberRecord, len(t.Members))
	for i, m := range t.Members {
		members[i] = memberRecord{ID: m.ID, Username: m.Username}
	}
	return tripRecord{
		ID:        t.ID,
		Name:      t.Name,
		Members:   members,
		StartDate: formatTime(domain.Date(t.StartDate)),
		EndDate:   formatTime(domain.Date(t.EndDate)),
		CreatedAt: formatTime(t.CreatedAt),
	}
}

// toDomain rebuilds the typed trip, parsing the date strings. A record that
// breaks the trip rules (blank name, no members, start after end) is
// rejected, since no operation could have written it.
func (rec tripRecord) toDomain() (domain.Trip, error) {
	if rec.ID == "" {
		return domain.Trip{}, fmt.Errorf("missing id")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return domain.Trip{}, fmt.Errorf("blank name")
	}
	if len(rec.Members) == 0 {
		return domain.Trip{}, fmt.Errorf("no members")
	}
	start, err := parseTime(rec.StartDate)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("startDate: %w", err)
	}
	end, err := parseTime(rec.EndDate)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("endDate: %w", err)
	}
	created, err := parseTime(rec.CreatedAt)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("createdAt: %w", err)
	}

	if domain.Date(start).After(domain.Date(end)) {
		return domain.Trip{}, fmt.Errorf("startDate %s is after endDate %s", rec.StartDate, rec.EndDate)
	}

	members := make([]domain.Member, len(rec.Members))
	for i, m := range rec.Members {
		members[i] = domain.Member{ID: m.ID, Username: m.Username}
	}

	return domain.Trip{
		ID:        rec.ID,
		Name:      rec.Name,
		Members:   members,
		StartDate: domain.Date(start),
		EndDate:   domain.Date(end),
		CreatedAt: created,
	}, nil
}

// dateOnly is accepted on load for records written by hand or by older
// clients that stored bare calendar dates.
const dateOnly = "2006-01-02"

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts RFC 3339 timestamps (with or without fractional seconds)
// and bare YYYY-MM-DD dates. The result is always in UTC.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised time %q", s)
	}
	return t, nil
}
