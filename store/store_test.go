package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	s := New(db).WithClock(clock)
	require.NoError(t, s.CreateSchema(context.Background()))
	return s, clock
}

func seed(t *testing.T, s *Store, items ...*Item) {
	t.Helper()
	for _, it := range items {
		require.NoError(t, s.Upsert(context.Background(), it))
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("live")
	require.NoError(t, err)
	assert.Equal(t, StatusLive, st)

	_, err = ParseStatus("lost")
	assert.Error(t, err)
}

func TestStatus_CanTransit(t *testing.T) {
	assert.True(t, StatusPending.CanTransit(StatusApproved))
	assert.True(t, StatusLive.CanTransit(StatusSold))
	assert.True(t, StatusArchived.CanTransit(StatusPending))
	assert.False(t, StatusSold.CanTransit(StatusLive))
	assert.False(t, StatusPending.CanTransit(StatusLive))
}

func TestStore_UpsertGet(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	seed(t, s, &Item{ID: "i-1", Title: "Wool coat", ConsignorID: "c-9", PriceCents: 12000})
	got, err := s.Get(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, "Wool coat", got.Title)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, int64(12000), got.PriceCents)
	assert.True(t, got.UpdatedAt.Equal(clock.Now()))
	assert.Equal(t, "Wool coat", got.EntityLabel())

	seed(t, s, &Item{ID: "i-1", Title: "Wool coat, navy", Status: StatusApproved, PriceCents: 11000})
	got, err = s.Get(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, "Wool coat, navy", got.Title)
	assert.Equal(t, StatusApproved, got.Status)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Upsert(ctx, &Item{ID: " "}))
}

func TestStore_UpsertUnchangedSameInstant(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	it := Item{ID: "i-2", Title: "Silk scarf", Status: StatusApproved, PriceCents: 4000}
	first, again := it, it
	require.NoError(t, s.Upsert(ctx, &first))
	require.NoError(t, s.Upsert(ctx, &again))

	items, missing, err := s.Lookup(ctx, []string{"i-2"})
	require.NoError(t, err)
	assert.Empty(t, missing)
	require.Len(t, items, 1)
	assert.Equal(t, "Silk scarf", items[0].Title)
}

func TestStore_Lookup(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seed(t, s, &Item{ID: "a"}, &Item{ID: "b"}, &Item{ID: "c"})

	items, missing, err := s.Lookup(ctx, []string{"c", "x", "a"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
	assert.Equal(t, []string{"x"}, missing)

	items, missing, err = s.Lookup(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, missing)
}

func TestStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)
	seed(t, s, &Item{ID: "a", Status: StatusApproved})

	clock.Advance(time.Minute)
	require.NoError(t, s.UpdateStatus(ctx, "a", StatusLive))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StatusLive, got.Status)
	assert.True(t, got.UpdatedAt.Equal(clock.Now()))

	err = s.UpdateStatus(ctx, "a", StatusApproved)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.ErrorIs(t, s.UpdateStatus(ctx, "zz", StatusLive), ErrNotFound)
}

func TestStore_SendBackToPending(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seed(t, s, &Item{ID: "a", Status: StatusLive, DiscountPercent: 20}, &Item{ID: "b", Status: StatusSold})

	require.NoError(t, s.SendBackToPending(ctx, "a"))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 0, got.DiscountPercent)

	assert.ErrorIs(t, s.SendBackToPending(ctx, "b"), ErrIllegalTransition)
}

func TestStore_ApplyDiscount(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seed(t, s, &Item{ID: "a", Status: StatusLive}, &Item{ID: "b", Status: StatusPending})

	require.NoError(t, s.ApplyDiscount(ctx, "a", 25))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 25, got.DiscountPercent)

	assert.ErrorIs(t, s.ApplyDiscount(ctx, "a", 0), ErrInvalidDiscount)
	assert.ErrorIs(t, s.ApplyDiscount(ctx, "a", 95), ErrInvalidDiscount)
	assert.ErrorIs(t, s.ApplyDiscount(ctx, "b", 10), ErrInvalidDiscount)
}

func TestStore_UpdateSameMillisecond(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seed(t, s, &Item{ID: "a", Status: StatusApproved})

	// the fake clock does not move, updated_at still advances
	require.NoError(t, s.ApplyDiscount(ctx, "a", 10))
	require.NoError(t, s.ApplyDiscount(ctx, "a", 15))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 15, got.DiscountPercent)
}
