// Package service contains the business logic for trips and events.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// Every mutation is a full load → change → save cycle over the collection;
// no encoding lives here, services depend on repo interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/group-trips/internal/directory"
	"github.com/pkordes/group-trips/internal/domain"
	"github.com/pkordes/group-trips/internal/repo"
)

// TripService implements business logic for one collection of trips.
// The same type serves the events collection; only the repo key differs.
type TripService struct {
	repo       repo.TripRepo
	dir        directory.Directory
	collection string
	log        *slog.Logger
	now        func() time.Time
	newID      func() string

	// mu serialises read-modify-write cycles so two requests cannot both
	// load the same snapshot and lose one another's update.
	mu sync.Mutex
}

// Option configures a TripService.
type Option func(*TripService)

// WithClock overrides the source of CreatedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TripService) { s.now = now }
}

// WithIDGenerator overrides how new trip IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *TripService) { s.newID = newID }
}

// WithLogger sets the logger used for mutation audit lines.
func WithLogger(l *slog.Logger) Option {
	return func(s *TripService) { s.log = l }
}

// WithCollection names the collection in log lines ("trips", "events").
func WithCollection(name string) Option {
	return func(s *TripService) { s.collection = name }
}

// NewTripService constructs a TripService backed by the provided TripRepo,
// resolving members through dir.
func NewTripService(r repo.TripRepo, dir directory.Directory, opts ...Option) *TripService {
	s := &TripService{
		repo:       r,
		dir:        dir,
		collection: repo.TripsKey,
		log:        slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every trip in stored order.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TripService) List(ctx context.Context) ([]domain.Trip, error) {
	trips, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		return []domain.Trip{}, nil
	}
	return trips, nil
}

// GetByID returns a single trip by ID.
// Returns domain.ErrNotFound if no trip with that ID exists.
func (s *TripService) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	trips, err := s.repo.LoadAll(ctx)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	i := indexOf(trips, id)
	if i < 0 {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: trip %q: %w", id, domain.ErrNotFound)
	}
	return trips[i], nil
}

// Create validates the draft, resolves its members and appends a new trip.
// Returns domain.ErrValidation if the name is blank, no members are given,
// a member is unknown, or the start date is not strictly before the end date.
// Nothing is written when validation fails.
func (s *TripService) Create(ctx context.Context, draft domain.TripDraft) (domain.Trip, error) {
	if err := validateDraft(draft); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	members, err := s.resolveMembers(ctx, draft.MemberIDs)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}

	trip := domain.Trip{
		ID:        s.newID(),
		Name:      strings.TrimSpace(draft.Name),
		Members:   members,
		StartDate: domain.Date(draft.StartDate),
		EndDate:   domain.Date(draft.EndDate),
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trips, err := s.repo.LoadAll(ctx)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	if err := s.repo.SaveAll(ctx, append(trips, trip)); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}

	s.logMutation(ctx, "create", trip.ID)
	return trip, nil
}

// UpdateStartDate moves the start of the trip. The new date is checked
// against the stored end date; a start after the end is rejected with
// domain.ErrValidation and the stored trip is left unchanged.
func (s *TripService) UpdateStartDate(ctx context.Context, id string, start time.Time) (domain.Trip, error) {
	start = domain.Date(start)
	return s.mutate(ctx, "UpdateStartDate", "update_start_date", id, func(t domain.Trip) (domain.Trip, error) {
		if start.After(t.EndDate) {
			return t, fmt.Errorf("%w: start date must not be after end date", domain.ErrValidation)
		}
		t.StartDate = start
		return t, nil
	})
}

// UpdateEndDate moves the end of the trip. The new date is checked against
// the stored start date; an end before the start is rejected with
// domain.ErrValidation and the stored trip is left unchanged.
func (s *TripService) UpdateEndDate(ctx context.Context, id string, end time.Time) (domain.Trip, error) {
	end = domain.Date(end)
	return s.mutate(ctx, "UpdateEndDate", "update_end_date", id, func(t domain.Trip) (domain.Trip, error) {
		if end.Before(t.StartDate) {
			return t, fmt.Errorf("%w: end date must not be before start date", domain.ErrValidation)
		}
		t.EndDate = end
		return t, nil
	})
}

// AddMember resolves memberID in the directory and appends it to the trip.
// Returns domain.ErrNotFound if the trip does not exist, and
// domain.ErrValidation if the member is unknown or already on the trip.
func (s *TripService) AddMember(ctx context.Context, id, memberID string) (domain.Trip, error) {
	return s.mutate(ctx, "AddMember", "add_member", id, func(t domain.Trip) (domain.Trip, error) {
		if t.HasMember(memberID) {
			return t, fmt.Errorf("%w: member %q is already on this trip", domain.ErrValidation, memberID)
		}
		m, err := s.lookupMember(ctx, memberID)
		if err != nil {
			return t, err
		}
		return t.WithMember(m), nil
	})
}

// RemoveMember takes memberID off the trip. A trip always keeps at least
// one member, so removing the last one is rejected with domain.ErrValidation.
func (s *TripService) RemoveMember(ctx context.Context, id, memberID string) (domain.Trip, error) {
	return s.mutate(ctx, "RemoveMember", "remove_member", id, func(t domain.Trip) (domain.Trip, error) {
		if !t.HasMember(memberID) {
			return t, fmt.Errorf("%w: member %q is not on this trip", domain.ErrValidation, memberID)
		}
		if len(t.Members) <= 1 {
			return t, fmt.Errorf("%w: a trip must keep at least one member", domain.ErrValidation)
		}
		return t.WithoutMember(memberID), nil
	})
}

// Delete removes a trip by ID.
// Returns domain.ErrNotFound if it does not exist.
func (s *TripService) Delete(ctx context.Context, id string) error {
	if err := s.remove(ctx, "delete", id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// Conclude marks a trip as finished. For now a concluded trip is removed
// from the collection exactly like Delete; the two stay separate operations
// so concluding can later archive instead.
func (s *TripService) Conclude(ctx context.Context, id string) error {
	if err := s.remove(ctx, "conclude", id); err != nil {
		return fmt.Errorf("service.TripService.Conclude: %w", err)
	}
	return nil
}

// --- internals --------------------------------------------------------------

// mutate runs one locked read-modify-write cycle on the trip with the given
// ID. If change returns an error nothing is saved.
func (s *TripService) mutate(ctx context.Context, op, action, id string, change func(domain.Trip) (domain.Trip, error)) (domain.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trips, err := s.repo.LoadAll(ctx)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.%s: %w", op, err)
	}
	i := indexOf(trips, id)
	if i < 0 {
		return domain.Trip{}, fmt.Errorf("service.TripService.%s: trip %q: %w", op, id, domain.ErrNotFound)
	}

	updated, err := change(trips[i])
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.%s: %w", op, err)
	}

	trips[i] = updated
	if err := s.repo.SaveAll(ctx, trips); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.%s: %w", op, err)
	}

	s.logMutation(ctx, action, id)
	return updated, nil
}

// remove filters the trip out of the collection and saves the rest.
func (s *TripService) remove(ctx context.Context, action, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trips, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	i := indexOf(trips, id)
	if i < 0 {
		return fmt.Errorf("trip %q: %w", id, domain.ErrNotFound)
	}

	kept := make([]domain.Trip, 0, len(trips)-1)
	kept = append(kept, trips[:i]...)
	kept = append(kept, trips[i+1:]...)
	if err := s.repo.SaveAll(ctx, kept); err != nil {
		return err
	}

	s.logMutation(ctx, action, id)
	return nil
}

// resolveMembers looks up each ID in order, dropping repeats.
func (s *TripService) resolveMembers(ctx context.Context, ids []string) ([]domain.Member, error) {
	seen := make(map[string]bool, len(ids))
	members := make([]domain.Member, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		m, err := s.lookupMember(ctx, id)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// lookupMember resolves one ID. An unknown member is the caller's input
// error, so directory not-found becomes a validation error.
func (s *TripService) lookupMember(ctx context.Context, id string) (domain.Member, error) {
	m, err := s.dir.Lookup(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Member{}, fmt.Errorf("%w: unknown member %q", domain.ErrValidation, id)
	}
	if err != nil {
		return domain.Member{}, err
	}
	return m, nil
}

func (s *TripService) logMutation(ctx context.Context, action, id string) {
	s.log.InfoContext(ctx, "trip mutated",
		"collection", s.collection,
		"action", action,
		"trip_id", id,
	)
}

// validateDraft enforces the creation rules.
//   - Name must be non-empty (whitespace-only names are rejected).
//   - At least one member must be selected.
//   - Both dates must be set and the start must be strictly before the end.
func validateDraft(d domain.TripDraft) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if len(d.MemberIDs) == 0 {
		return fmt.Errorf("%w: at least one member is required", domain.ErrValidation)
	}
	if d.StartDate.IsZero() || d.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", domain.ErrValidation)
	}
	if !domain.Date(d.StartDate).Before(domain.Date(d.EndDate)) {
		return fmt.Errorf("%w: start date must be before end date", domain.ErrValidation)
	}
	return nil
}

func indexOf(trips []domain.Trip, id string) int {
	for i, t := range trips {
		if t.ID == id {
			return i
		}
	}
	return -1
}
