package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

type fakeStore struct {
	mu         sync.Mutex
	rows       map[uint64]model.Reservation
	lastID     uint64
	failSave   error
	failRemove error
}

func newFakeStore(rows ...model.Reservation) *fakeStore {
	s := &fakeStore{rows: make(map[uint64]model.Reservation)}
	for _, r := range rows {
		s.rows[r.ID] = r
		s.lastID = max(s.lastID, r.ID)
	}
	return s
}

func (s *fakeStore) Load(ctx context.Context) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reservation, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeStore) Save(ctx context.Context, rs []model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	for _, r := range rs {
		s.rows[r.ID] = r
		s.lastID = max(s.lastID, r.ID)
	}
	return nil
}

func (s *fakeStore) Remove(ctx context.Context, ids []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRemove != nil {
		return s.failRemove
	}
	for _, id := range ids {
		delete(s.rows, id)
	}
	return nil
}

func (s *fakeStore) LastIssuedID(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID, nil
}

var (
	testNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	roster  = []model.Table{
		{ID: 1, Capacity: 2},
		{ID: 2, Capacity: 4},
		{ID: 3, Capacity: 6},
	}
)

func newTestLedger(t *testing.T, opts ...Option) (*Ledger, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	l, err := New(context.Background(), roster, store, opts...)
	require.NoError(t, err)
	return l, store
}

func reserve(t *testing.T, l *Ledger, user, table uint64, date, start, end string, seats int) model.Reservation {
	t.Helper()
	r, err := l.Reserve(context.Background(), ReserveRequest{
		UserID: user, TableID: table, Date: date, StartTime: start, EndTime: end, Seats: seats,
	}, testNow)
	require.NoError(t, err)
	return r
}

func ptr[T any](v T) *T { return &v }

func TestReserveScenario(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	first, err := l.Reserve(ctx, ReserveRequest{UserID: 7, TableID: 3, Date: "2025-06-01", StartTime: "18:00", EndTime: "19:00", Seats: 4}, testNow)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, model.StatusConfirmed, first.Status)
	assert.Equal(t, testNow, first.CreatedAt)
	assert.Equal(t, testNow, first.UpdatedAt)

	_, err = l.Reserve(ctx, ReserveRequest{UserID: 8, TableID: 3, Date: "2025-06-01", StartTime: "18:30", EndTime: "19:30", Seats: 2}, testNow)
	require.ErrorIs(t, err, ErrConflict)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, uint64(1), ce.With.ID)
	assert.Equal(t, "18:00", ce.With.StartTime)
	assert.Equal(t, "19:00", ce.With.EndTime)

	second, err := l.Reserve(ctx, ReserveRequest{UserID: 8, TableID: 3, Date: "2025-06-01", StartTime: "19:00", EndTime: "20:00", Seats: 6}, testNow)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.ID)

	// capacity is a ceiling, never decremented
	tables := l.ListTables()
	require.Len(t, tables, 3)
	assert.Equal(t, 6, tables[2].Capacity)
}

func TestOverlapBoundaries(t *testing.T) {
	// existing booking is [09:00, 10:30)
	tests := []struct {
		name     string
		start    string
		end      string
		conflict bool
	}{
		{"touching after", "10:30", "11:00", false},
		{"touching before", "08:00", "09:00", false},
		{"identical", "09:00", "10:30", true},
		{"overlaps start", "08:30", "09:30", true},
		{"overlaps end", "10:00", "11:00", true},
		{"contained", "09:15", "09:45", true},
		{"containing", "08:00", "12:00", true},
		{"one second overlap", "10:29:59", "11:00", true},
		{"well after", "12:00", "13:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLedger(t)
			reserve(t, l, 1, 2, "2025-06-01", "09:00", "10:30", 2)

			hits, err := l.FindConflict(2, "2025-06-01", tt.start, tt.end, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.conflict, len(hits) > 0)
		})
	}
}

func TestTouchingIntervalsDoNotConflict(t *testing.T) {
	l, _ := newTestLedger(t)
	reserve(t, l, 1, 1, "2025-06-01", "09:00", "10:00", 2)
	r := reserve(t, l, 2, 1, "2025-06-01", "10:00", "11:00", 2)
	assert.Equal(t, uint64(2), r.ID)
}

func TestOverlappingIntervalsConflict(t *testing.T) {
	l, _ := newTestLedger(t)
	reserve(t, l, 1, 1, "2025-06-01", "09:00", "10:30", 2)
	_, err := l.Reserve(context.Background(), ReserveRequest{UserID: 2, TableID: 1, Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00", Seats: 1}, testNow)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSameIntervalOtherTableOrDateIsFree(t *testing.T) {
	l, _ := newTestLedger(t)
	reserve(t, l, 1, 1, "2025-06-01", "09:00", "10:00", 2)
	reserve(t, l, 1, 2, "2025-06-01", "09:00", "10:00", 4)
	reserve(t, l, 1, 1, "2025-06-02", "09:00", "10:00", 2)
	assert.Len(t, l.ListAll(), 3)
}

func TestReserveThenFindConflictReturnsIt(t *testing.T) {
	l, _ := newTestLedger(t)
	r := reserve(t, l, 5, 2, "2025-06-01", "12:00", "13:30", 3)

	hits, err := l.FindConflict(2, "2025-06-01", "12:00", "13:30", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, r.ID, hits[0].ID)

	hits, err = l.FindConflict(2, "2025-06-01", "12:00", "13:30", r.ID)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFindConflictReturnsAllSortedByStart(t *testing.T) {
	l, _ := newTestLedger(t)
	b := reserve(t, l, 1, 3, "2025-06-01", "14:00", "15:00", 2)
	a := reserve(t, l, 1, 3, "2025-06-01", "12:00", "13:00", 2)
	reserve(t, l, 1, 3, "2025-06-01", "16:00", "17:00", 2)

	hits, err := l.FindConflict(3, "2025-06-01", "12:30", "14:30", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, a.ID, hits[0].ID)
	assert.Equal(t, b.ID, hits[1].ID)
}

func TestReserveValidation(t *testing.T) {
	tests := []struct {
		name      string
		req       ReserveRequest
		target    error
		violation Violation
		field     string
	}{
		{"unknown table", ReserveRequest{UserID: 1, TableID: 99, Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00", Seats: 1}, ErrNotFound, "", ""},
		{"missing table", ReserveRequest{UserID: 1, Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00", Seats: 1}, ErrInvalidInput, "", "table_id"},
		{"missing user", ReserveRequest{TableID: 1, Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00", Seats: 1}, ErrInvalidInput, "", "user_id"},
		{"missing date", ReserveRequest{UserID: 1, TableID: 1, StartTime: "10:00", EndTime: "11:00", Seats: 1}, ErrInvalidInput, "", "date"},
		{"bad date", ReserveRequest{UserID: 1, TableID: 1, Date: "2025-02-30", StartTime: "10:00", EndTime: "11:00", Seats: 1}, ErrInvalidInput, "", "date"},
		{"bad start", ReserveRequest{UserID: 1, TableID: 1, Date: "2025-06-01", StartTime: "25:00", EndTime: "11:00", Seats: 1}, ErrInvalidInput, "", "start_time"},
		{"missing end", ReserveRequest{UserID: 1, TableID: 1, Date: "2025-06-01", StartTime: "10:00", Seats: 1}, ErrInvalidInput, "", "end_time"},
		{"zero seats", ReserveRequest{UserID: 1, TableID: 1, Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00"}, ErrInvalidInput, "", "seats"},
		{"negative seats", ReserveRequest{UserID: 1, TableID: 1, Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00", Seats: -2}, ErrInvalidInput, "", "seats"},
		{"end equals start", ReserveRequest{UserID: 1, TableID: 1, Date: "2025-06-01", StartTime: "10:00", EndTime: "10:00", Seats: 1}, ErrInvariantViolation, EndBeforeStart, ""},
		{"end before start", ReserveRequest{UserID: 1, TableID: 1, Date: "2025-06-01", StartTime: "11:00", EndTime: "10:00", Seats: 1}, ErrInvariantViolation, EndBeforeStart, ""},
		{"over capacity", ReserveRequest{UserID: 1, TableID: 1, Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00", Seats: 3}, ErrInvariantViolation, SeatsExceedCapacity, ""},
		{"in the past", ReserveRequest{UserID: 1, TableID: 1, Date: "2025-05-01", StartTime: "11:59", EndTime: "13:00", Seats: 1}, ErrInvariantViolation, PastDateTime, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, store := newTestLedger(t)
			_, err := l.Reserve(context.Background(), tt.req, testNow)
			require.ErrorIs(t, err, tt.target)
			if tt.violation != "" {
				assert.True(t, IsViolation(err, tt.violation), "got %v", err)
			}
			if tt.field != "" {
				var ie *InputError
				require.ErrorAs(t, err, &ie)
				assert.Equal(t, tt.field, ie.Field)
			}
			assert.Empty(t, l.ListAll())
			assert.Empty(t, store.rows)
		})
	}
}

func TestReserveAtExactlyNowIsAllowed(t *testing.T) {
	l, _ := newTestLedger(t)
	reserve(t, l, 1, 1, "2025-05-01", "12:00", "13:00", 1)
}

func TestPastCheckUsesLocation(t *testing.T) {
	// 12:00 UTC is 14:00 in Berlin during summer time, so a 13:00 local
	// booking is already in the past.
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	l, _ := newTestLedger(t, WithLocation(berlin))
	_, err = l.Reserve(context.Background(), ReserveRequest{UserID: 1, TableID: 1, Date: "2025-05-01", StartTime: "13:00", EndTime: "14:00", Seats: 1}, testNow)
	assert.True(t, IsViolation(err, PastDateTime))
}

func TestPastCheckAcrossDSTChange(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	l, _ := newTestLedger(t, WithLocation(berlin))
	ctx := context.Background()

	// Clocks jump from 02:00 to 03:00 on 2025-03-30, so 18:30 local is
	// 16:30 UTC and an 18:00 start has passed.
	now := time.Date(2025, 3, 30, 18, 30, 0, 0, berlin)
	_, err = l.Reserve(ctx, ReserveRequest{UserID: 1, TableID: 1, Date: "2025-03-30", StartTime: "18:00", EndTime: "19:00", Seats: 1}, now)
	assert.True(t, IsViolation(err, PastDateTime))
	_, err = l.Reserve(ctx, ReserveRequest{UserID: 1, TableID: 1, Date: "2025-03-30", StartTime: "19:00", EndTime: "20:00", Seats: 1}, now)
	assert.NoError(t, err)

	// Clocks fall back on 2025-10-26; 18:30 local must still be bookable
	// at 18:15 local.
	now = time.Date(2025, 10, 26, 18, 15, 0, 0, berlin)
	_, err = l.Reserve(ctx, ReserveRequest{UserID: 1, TableID: 1, Date: "2025-10-26", StartTime: "18:30", EndTime: "19:00", Seats: 1}, now)
	assert.NoError(t, err)
}

func TestPastCheckDisabled(t *testing.T) {
	l, _ := newTestLedger(t, WithPastCheck(false))
	reserve(t, l, 1, 1, "2020-01-01", "10:00", "11:00", 1)
}

func TestReserveNormalizesClock(t *testing.T) {
	l, _ := newTestLedger(t)
	r := reserve(t, l, 1, 1, "2025-06-01", "9:05", "10:30:00", 1)
	assert.Equal(t, "09:05", r.StartTime)
	assert.Equal(t, "10:30", r.EndTime)

	_, err := l.Reserve(context.Background(), ReserveRequest{UserID: 2, TableID: 1, Date: "2025-06-01", StartTime: "10:00:00", EndTime: "11:00", Seats: 1}, testNow)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSeatsExceedCapacityLeavesSetUnchanged(t *testing.T) {
	l, store := newTestLedger(t)
	reserve(t, l, 1, 2, "2025-06-01", "18:00", "19:00", 2)
	before := l.ListAll()

	_, err := l.Reserve(context.Background(), ReserveRequest{UserID: 1, TableID: 2, Date: "2025-06-01", StartTime: "20:00", EndTime: "21:00", Seats: 5}, testNow)
	require.True(t, IsViolation(err, SeatsExceedCapacity))
	assert.Equal(t, before, l.ListAll())
	assert.Len(t, store.rows, 1)
}

func TestUpdateReservation(t *testing.T) {
	ctx := context.Background()
	later := testNow.Add(time.Hour)

	t.Run("moves within its own interval", func(t *testing.T) {
		l, store := newTestLedger(t)
		r := reserve(t, l, 1, 3, "2025-06-01", "18:00", "19:00", 2)
		got, err := l.UpdateReservation(ctx, r.ID, 1, Patch{StartTime: ptr("18:30"), EndTime: ptr("19:30")}, later)
		require.NoError(t, err)
		assert.Equal(t, "18:30", got.StartTime)
		assert.Equal(t, "19:30", got.EndTime)
		assert.Equal(t, later, got.UpdatedAt)
		assert.Equal(t, testNow, got.CreatedAt)
		assert.Equal(t, got, store.rows[r.ID])
	})

	t.Run("conflict with another reservation", func(t *testing.T) {
		l, _ := newTestLedger(t)
		a := reserve(t, l, 1, 3, "2025-06-01", "18:00", "19:00", 2)
		b := reserve(t, l, 1, 3, "2025-06-01", "19:00", "20:00", 2)
		_, err := l.UpdateReservation(ctx, b.ID, 1, Patch{StartTime: ptr("18:45")}, later)
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, a.ID, ce.With.ID)
		got, err := l.Get(b.ID)
		require.NoError(t, err)
		assert.Equal(t, b, got)
	})

	t.Run("moving table re-checks target table", func(t *testing.T) {
		l, _ := newTestLedger(t)
		reserve(t, l, 2, 2, "2025-06-01", "18:00", "19:00", 2)
		r := reserve(t, l, 1, 3, "2025-06-01", "18:00", "19:00", 2)
		_, err := l.UpdateReservation(ctx, r.ID, 1, Patch{TableID: ptr(uint64(2))}, later)
		assert.ErrorIs(t, err, ErrConflict)
		_, err = l.UpdateReservation(ctx, r.ID, 1, Patch{TableID: ptr(uint64(1))}, later)
		require.NoError(t, err)
	})

	t.Run("seats re-validated against new table", func(t *testing.T) {
		l, _ := newTestLedger(t)
		r := reserve(t, l, 1, 3, "2025-06-01", "18:00", "19:00", 5)
		_, err := l.UpdateReservation(ctx, r.ID, 1, Patch{TableID: ptr(uint64(1))}, later)
		assert.True(t, IsViolation(err, SeatsExceedCapacity))
	})

	t.Run("end before start", func(t *testing.T) {
		l, _ := newTestLedger(t)
		r := reserve(t, l, 1, 3, "2025-06-01", "18:00", "19:00", 2)
		_, err := l.UpdateReservation(ctx, r.ID, 1, Patch{EndTime: ptr("17:00")}, later)
		assert.True(t, IsViolation(err, EndBeforeStart))
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		l, _ := newTestLedger(t)
		r := reserve(t, l, 1, 3, "2025-06-01", "18:00", "19:00", 2)
		_, err := l.UpdateReservation(ctx, r.ID, 2, Patch{Seats: ptr(3)}, later)
		require.ErrorIs(t, err, ErrForbidden)
		got, err := l.Get(r.ID)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	})

	t.Run("unknown reservation", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.UpdateReservation(ctx, 42, 1, Patch{}, later)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cancelled reservation cannot change", func(t *testing.T) {
		l, _ := newTestLedger(t)
		r := reserve(t, l, 1, 3, "2025-06-01", "18:00", "19:00", 2)
		_, err := l.CancelReservation(ctx, r.ID, 1, later)
		require.NoError(t, err)
		_, err = l.UpdateReservation(ctx, r.ID, 1, Patch{Seats: ptr(3)}, later)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("moving into the past rejected", func(t *testing.T) {
		l, _ := newTestLedger(t)
		r := reserve(t, l, 1, 3, "2025-06-01", "18:00", "19:00", 2)
		_, err := l.UpdateReservation(ctx, r.ID, 1, Patch{Date: ptr("2025-04-30")}, later)
		assert.True(t, IsViolation(err, PastDateTime))
	})

	t.Run("seat change after start allowed", func(t *testing.T) {
		l, _ := newTestLedger(t)
		r := reserve(t, l, 1, 3, "2025-05-01", "12:00", "14:00", 2)
		got, err := l.UpdateReservation(ctx, r.ID, 1, Patch{Seats: ptr(4)}, later)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Seats)
	})
}

func TestCancelFreesInterval(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	r := reserve(t, l, 1, 2, "2025-06-01", "18:00", "19:00", 2)

	_, err := l.CancelReservation(ctx, r.ID, 2, testNow)
	require.ErrorIs(t, err, ErrForbidden)

	cancelled, err := l.CancelReservation(ctx, r.ID, 1, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, model.StatusCancelled, store.rows[r.ID].Status)

	hits, err := l.FindConflict(2, "2025-06-01", "18:00", "19:00", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	again := reserve(t, l, 3, 2, "2025-06-01", "18:00", "19:00", 4)
	assert.NotEqual(t, r.ID, again.ID)

	// idempotent
	second, err := l.CancelReservation(ctx, r.ID, 1, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, cancelled, second)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	r := reserve(t, l, 1, 2, "2025-06-01", "18:00", "19:00", 2)

	_, err := l.Delete(ctx, r.ID, 9)
	require.ErrorIs(t, err, ErrForbidden)

	removed, err := l.Delete(ctx, r.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, r, removed)
	assert.Empty(t, store.rows)

	_, err = l.Get(r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	next := reserve(t, l, 1, 2, "2025-06-01", "18:00", "19:00", 2)
	assert.Equal(t, r.ID+1, next.ID, "ids are never reused")
}

func TestStoreFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	r := reserve(t, l, 1, 2, "2025-06-01", "18:00", "19:00", 2)
	boom := errors.New("disk full")
	store.failSave = boom
	store.failRemove = boom

	_, err := l.Reserve(ctx, ReserveRequest{UserID: 1, TableID: 2, Date: "2025-06-01", StartTime: "20:00", EndTime: "21:00", Seats: 1}, testNow)
	require.ErrorIs(t, err, boom)
	_, err = l.UpdateReservation(ctx, r.ID, 1, Patch{Seats: ptr(4)}, testNow)
	require.ErrorIs(t, err, boom)
	_, err = l.CancelReservation(ctx, r.ID, 1, testNow)
	require.ErrorIs(t, err, boom)
	_, err = l.Delete(ctx, r.ID, 1)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []model.Reservation{r}, l.ListAll())

	store.failSave = nil
	next := reserve(t, l, 1, 2, "2025-06-01", "20:00", "21:00", 1)
	assert.Equal(t, r.ID+1, next.ID, "failed reserve must not consume an id")
}

func TestNewLoadsAndContinuesIDs(t *testing.T) {
	existing := model.Reservation{ID: 41, UserID: 1, TableID: 1, Date: "2025-06-01", StartTime: "18:00", EndTime: "19:00", Seats: 2, Status: model.StatusConfirmed}
	l, err := New(context.Background(), roster, newFakeStore(existing))
	require.NoError(t, err)

	_, err = l.Reserve(context.Background(), ReserveRequest{UserID: 2, TableID: 1, Date: "2025-06-01", StartTime: "18:30", EndTime: "19:30", Seats: 1}, testNow)
	require.ErrorIs(t, err, ErrConflict)

	r := reserve(t, l, 2, 1, "2025-06-01", "19:00", "20:00", 1)
	assert.Equal(t, uint64(42), r.ID)
}

func TestIDsNotReusedAfterRestart(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	l, err := New(ctx, roster, store)
	require.NoError(t, err)

	reserve(t, l, 1, 1, "2025-06-01", "18:00", "19:00", 1)
	b := reserve(t, l, 1, 1, "2025-06-01", "19:00", "20:00", 1)
	c := reserve(t, l, 1, 2, "2025-06-01", "19:00", "20:00", 1)
	_, err = l.Delete(ctx, c.ID, 1)
	require.NoError(t, err)
	_, err = l.CancelReservation(ctx, b.ID, 1, testNow)
	require.NoError(t, err)
	n, err := l.PurgeCancelled(ctx, testNow.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	restarted, err := New(ctx, roster, store)
	require.NoError(t, err)
	d := reserve(t, restarted, 1, 1, "2025-06-01", "19:00", "20:00", 1)
	assert.Equal(t, uint64(4), d.ID)
}

func TestNewRejectsBadRoster(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, []model.Table{{ID: 1, Capacity: 0}}, newFakeStore())
	assert.Error(t, err)
	_, err = New(ctx, []model.Table{{ID: 0, Capacity: 2}}, newFakeStore())
	assert.Error(t, err)
	_, err = New(ctx, []model.Table{{ID: 1, Capacity: 2}, {ID: 1, Capacity: 4}}, newFakeStore())
	assert.Error(t, err)
	_, err = New(ctx, roster, nil)
	assert.Error(t, err)
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	a := reserve(t, l, 1, 3, "2025-06-01", "20:00", "21:00", 2)
	b := reserve(t, l, 2, 3, "2025-06-01", "18:00", "19:00", 2)
	c := reserve(t, l, 1, 2, "2025-06-02", "18:00", "19:00", 2)
	_, err := l.CancelReservation(ctx, c.ID, 1, testNow)
	require.NoError(t, err)

	mine := l.ListByUser(1)
	require.Len(t, mine, 2)
	assert.Equal(t, a.ID, mine[0].ID)
	assert.Equal(t, c.ID, mine[1].ID)
	assert.Empty(t, l.ListByUser(99))
	assert.Len(t, l.ListAll(), 3)

	sched, err := l.TableSchedule(3, "2025-06-01")
	require.NoError(t, err)
	require.Len(t, sched, 2)
	assert.Equal(t, b.ID, sched[0].ID)
	assert.Equal(t, a.ID, sched[1].ID)

	sched, err = l.TableSchedule(2, "2025-06-02")
	require.NoError(t, err)
	assert.Empty(t, sched, "cancelled reservations are not scheduled")

	_, err = l.TableSchedule(9, "2025-06-02")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.TableSchedule(2, "June 2")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.GetForUser(a.ID, 2)
	assert.ErrorIs(t, err, ErrForbidden)
	got, err := l.GetForUser(a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	assert.Equal(t, Stats{Tables: 3, Confirmed: 2, Cancelled: 1}, l.Stats())
}

func TestPurgeCancelled(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	old := reserve(t, l, 1, 1, "2025-06-01", "18:00", "19:00", 1)
	recent := reserve(t, l, 1, 1, "2025-06-01", "19:00", "20:00", 1)
	kept := reserve(t, l, 1, 1, "2025-06-01", "20:00", "21:00", 1)

	_, err := l.CancelReservation(ctx, old.ID, 1, testNow)
	require.NoError(t, err)
	_, err = l.CancelReservation(ctx, recent.ID, 1, testNow.Add(48*time.Hour))
	require.NoError(t, err)

	n, err := l.PurgeCancelled(ctx, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = l.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := store.rows[old.ID]
	assert.False(t, ok)
	_, err = l.Get(recent.ID)
	assert.NoError(t, err)
	_, err = l.Get(kept.ID)
	assert.NoError(t, err)

	n, err = l.PurgeCancelled(ctx, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConcurrentReserveSameSlot(t *testing.T) {
	l, _ := newTestLedger(t)
	const workers = 32
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			<-start
			_, err := l.Reserve(context.Background(), ReserveRequest{
				UserID: user, TableID: 3, Date: "2025-06-01", StartTime: "18:00", EndTime: "19:00", Seats: 2,
			}, testNow)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(i + 1))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
}

func TestRandomOperationsKeepNoOverlap(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	rng := rand.New(rand.NewSource(7))
	dates := []string{"2025-06-01", "2025-06-02"}

	for i := 0; i < 600; i++ {
		user := uint64(rng.Intn(4) + 1)
		startMin := 8*60 + rng.Intn(12)*30
		length := 30 * (rng.Intn(4) + 1)
		start := fmt.Sprintf("%02d:%02d", startMin/60, startMin%60)
		end := fmt.Sprintf("%02d:%02d", (startMin+length)/60, (startMin+length)%60)
		table := uint64(rng.Intn(3) + 1)
		date := dates[rng.Intn(len(dates))]

		switch rng.Intn(4) {
		case 0, 1:
			_, _ = l.Reserve(ctx, ReserveRequest{UserID: user, TableID: table, Date: date, StartTime: start, EndTime: end, Seats: 1}, testNow)
		case 2:
			all := l.ListAll()
			if len(all) == 0 {
				continue
			}
			r := all[rng.Intn(len(all))]
			_, _ = l.UpdateReservation(ctx, r.ID, r.UserID, Patch{TableID: &table, StartTime: &start, EndTime: &end}, testNow)
		case 3:
			all := l.ListAll()
			if len(all) == 0 {
				continue
			}
			r := all[rng.Intn(len(all))]
			_, _ = l.CancelReservation(ctx, r.ID, r.UserID, testNow)
		}
	}

	all := l.ListAll()
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			if !a.Confirmed() || !b.Confirmed() || a.TableID != b.TableID || a.Date != b.Date {
				continue
			}
			assert.False(t, overlaps(clockSeconds(a.StartTime), clockSeconds(a.EndTime), clockSeconds(b.StartTime), clockSeconds(b.EndTime)),
				"reservations %d and %d overlap", a.ID, b.ID)
		}
	}
}
