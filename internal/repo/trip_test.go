package repo_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/group-trips/internal/domain"
	"github.com/pkordes/group-trips/internal/kv"
	"github.com/pkordes/group-trips/internal/repo"
)

// tripFixture returns a domain.Trip with sensible defaults for use in tests.
// Callers can override individual fields after calling this function.
func tripFixture(id string) domain.Trip {
	return domain.Trip{
		ID:   id,
		Name: "Ski Trip",
		Members: []domain.Member{
			{ID: "1", Username: "john_doe"},
			{ID: "2", Username: "jane_smith"},
		},
		StartDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2024, 12, 1, 9, 30, 15, 123456789, time.UTC),
	}
}

func newTestRepo(t *testing.T) (repo.TripRepo, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	return repo.NewTripRepo(store, repo.TripsKey), store
}

func TestTripRepo_LoadAll_MissingKey(t *testing.T) {
	r, _ := newTestRepo(t)

	got, err := r.LoadAll(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, got, "callers should be able to range over the result")
	assert.Empty(t, got)
}

func TestTripRepo_SaveThenLoad_RoundTrip(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	want := []domain.Trip{tripFixture("a"), tripFixture("b")}
	want[1].Name = "Beach Weekend"

	require.NoError(t, r.SaveAll(ctx, want))
	got, err := r.LoadAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTripRepo_SaveAll_StoredLayout(t *testing.T) {
	r, store := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SaveAll(ctx, []domain.Trip{tripFixture("a")}))

	blob, found, err := store.Get(ctx, repo.TripsKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `[{
		"id": "a",
		"name": "Ski Trip",
		"members": [{"id":"1","username":"john_doe"},{"id":"2","username":"jane_smith"}],
		"startDate": "2025-01-10T00:00:00Z",
		"endDate": "2025-01-15T00:00:00Z",
		"createdAt": "2024-12-01T09:30:15.123456789Z"
	}]`, string(blob))
}

func TestTripRepo_SaveAll_NilWritesEmptyArray(t *testing.T) {
	r, store := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SaveAll(ctx, nil))

	blob, _, err := store.Get(ctx, repo.TripsKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(blob))
}

func TestTripRepo_LoadAll_AcceptsForeignDateForms(t *testing.T) {
	r, store := newTestRepo(t)
	ctx := context.Background()

	// Millisecond timestamps (as written by JavaScript's toISOString) and
	// bare dates both load.
	require.NoError(t, store.Set(ctx, repo.TripsKey, []byte(`[{
		"id": "1736467200000",
		"name": "Ski Trip",
		"members": [{"id":"1","username":"john_doe"}],
		"startDate": "2025-01-10T00:00:00.000Z",
		"endDate": "2025-01-15",
		"createdAt": "2025-01-01T12:00:00.500Z"
	}]`)))

	got, err := r.LoadAll(ctx)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), got[0].StartDate)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), got[0].EndDate)
	assert.Equal(t, time.Date(2025, 1, 1, 12, 0, 0, 500_000_000, time.UTC), got[0].CreatedAt)
	assert.Equal(t, "6 days", got[0].Duration())
}

func TestTripRepo_LoadAll_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not json", `{{{`},
		{"not an array", `{"id":"a"}`},
		{"bad date", `[{"id":"a","name":"x","members":[],"startDate":"yesterday","endDate":"2025-01-15","createdAt":"2025-01-01"}]`},
		{"missing id", `[{"name":"x","members":[{"id":"1","username":"john_doe"}],"startDate":"2025-01-10","endDate":"2025-01-15","createdAt":"2025-01-01"}]`},
		{"blank name", `[{"id":"a","name":"  ","members":[{"id":"1","username":"john_doe"}],"startDate":"2025-01-10","endDate":"2025-01-15","createdAt":"2025-01-01"}]`},
		{"no members", `[{"id":"a","name":"x","members":[],"startDate":"2025-01-10","endDate":"2025-01-15","createdAt":"2025-01-01"}]`},
		{"start after end", `[{"id":"a","name":"x","members":[{"id":"1","username":"john_doe"}],"startDate":"2025-01-16","endDate":"2025-01-15","createdAt":"2025-01-01"}]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, store := newTestRepo(t)
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, repo.TripsKey, []byte(tc.blob)))

			_, err := r.LoadAll(ctx)

			assert.ErrorIs(t, err, domain.ErrCorrupt)
		})
	}
}

func TestTripRepo_LoadAll_NullIsEmpty(t *testing.T) {
	r, store := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, repo.TripsKey, []byte("null")))

	got, err := r.LoadAll(ctx)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTripRepo_CollectionsAreSeparate(t *testing.T) {
	store := kv.NewMemory()
	trips := repo.NewTripRepo(store, repo.TripsKey)
	events := repo.NewTripRepo(store, repo.EventsKey)
	ctx := context.Background()

	require.NoError(t, trips.SaveAll(ctx, []domain.Trip{tripFixture("t1")}))

	got, err := events.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestTripRepo_ResaveIsByteIdentical checks that a record read back and
// written again produces exactly the bytes it was stored with. Deleting one
// trip must not disturb the encoding of the others.
func TestTripRepo_ResaveIsByteIdentical(t *testing.T) {
	r, store := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SaveAll(ctx, []domain.Trip{tripFixture("a"), tripFixture("b"), tripFixture("c")}))
	before := rawRecords(t, store)

	loaded, err := r.LoadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, r.SaveAll(ctx, []domain.Trip{loaded[0], loaded[2]}))
	after := rawRecords(t, store)

	require.Len(t, after, 2)
	assert.Equal(t, string(before[0]), string(after[0]))
	assert.Equal(t, string(before[2]), string(after[1]))
}

// legacyRecord is stored in forms this package never writes: millisecond
// timestamps, a bare date, an extra field and loose whitespace.
const legacyRecord = `{"id": "a", "name": "Ski Trip", "members": [{"id":"1","username":"john_doe"}],
	"startDate": "2025-01-10T00:00:00.000Z", "endDate": "2025-01-15",
	"createdAt": "2025-01-01T12:00:00.500Z", "colour": "blue"}`

// TestTripRepo_DeletingNeighbourKeepsLegacyRecordBytes checks that records
// written by other clients survive a save untouched when they did not change.
func TestTripRepo_DeletingNeighbourKeepsLegacyRecordBytes(t *testing.T) {
	r, store := newTestRepo(t)
	ctx := context.Background()
	other, err := json.Marshal(map[string]any{
		"id": "b", "name": "Beach Weekend",
		"members":   []map[string]string{{"id": "2", "username": "jane_smith"}},
		"startDate": "2025-02-01", "endDate": "2025-02-02", "createdAt": "2025-01-02",
	})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, repo.TripsKey, []byte("["+legacyRecord+","+string(other)+"]")))

	loaded, err := r.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.NoError(t, r.SaveAll(ctx, loaded[:1]))

	after := rawRecords(t, store)
	require.Len(t, after, 1)
	assert.Equal(t, legacyRecord, string(after[0]))
}

// TestTripRepo_ChangedRecordIsReencoded checks that an edited trip is written
// in the current layout while its unchanged neighbour keeps its bytes.
func TestTripRepo_ChangedRecordIsReencoded(t *testing.T) {
	r, store := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, repo.TripsKey, []byte("["+legacyRecord+"]")))

	loaded, err := r.LoadAll(ctx)
	require.NoError(t, err)
	edited := loaded[0]
	edited.EndDate = time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.SaveAll(ctx, []domain.Trip{edited, tripFixture("c")}))

	after := rawRecords(t, store)
	require.Len(t, after, 2)
	assert.JSONEq(t, `{
		"id": "a",
		"name": "Ski Trip",
		"members": [{"id":"1","username":"john_doe"}],
		"startDate": "2025-01-10T00:00:00Z",
		"endDate": "2025-01-20T00:00:00Z",
		"createdAt": "2025-01-01T12:00:00.5Z"
	}`, string(after[0]))

	got, err := r.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Trip{edited, tripFixture("c")}, got)
}

func TestTripRepo_StoreErrorsPropagate(t *testing.T) {
	storeErr := errors.New("disk on fire")
	r := repo.NewTripRepo(failingStore{err: storeErr}, repo.TripsKey)
	ctx := context.Background()

	_, err := r.LoadAll(ctx)
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, domain.ErrCorrupt)

	err = r.SaveAll(ctx, []domain.Trip{tripFixture("a")})
	assert.ErrorIs(t, err, storeErr)
}

// ---- helpers ---------------------------------------------------------------

func rawRecords(t *testing.T, store kv.Store) []json.RawMessage {
	t.Helper()
	blob, _, err := store.Get(context.Background(), repo.TripsKey)
	require.NoError(t, err)
	var out []json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &out))
	return out
}

// failingStore is a kv.Store whose every call fails with err.
type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingStore) Set(context.Context, string, []byte) error         { return f.err }
func (f failingStore) Close() error                                      { return nil }
