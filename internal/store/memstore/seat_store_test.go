package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezamoradi/show-seat-booking/internal/model"
	"github.com/rezamoradi/show-seat-booking/internal/store"
)

func seedSeats(t *testing.T, s *SeatStore, showID string, ids ...string) {
	t.Helper()
	seats := make([]model.Seat, 0, len(ids))
	for _, id := range ids {
		seats = append(seats, model.Seat{ShowID: showID, SeatID: id, Status: model.SeatAvailable})
	}
	require.NoError(t, s.CreateBulk(context.Background(), seats))
}

func TestSeatStoreGet(t *testing.T) {
	s := NewSeatStore()
	seedSeats(t, s, "show-1", "A1")

	seat, err := s.Get(context.Background(), "show-1", "A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, seat.Status)

	_, err = s.Get(context.Background(), "show-1", "A2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSeatStoreListNaturalOrder(t *testing.T) {
	s := NewSeatStore()
	seedSeats(t, s, "show-1", "A10", "A2", "A1", "B1")
	seedSeats(t, s, "show-2", "A1")

	seats, err := s.List(context.Background(), "show-1")
	require.NoError(t, err)
	labels := make([]string, 0, len(seats))
	for _, seat := range seats {
		labels = append(labels, seat.SeatID)
	}
	assert.Equal(t, []string{"A1", "A2", "A10", "B1"}, labels)
}

func TestSeatStoreCreateBulkRejectsDuplicates(t *testing.T) {
	s := NewSeatStore()
	seedSeats(t, s, "show-1", "A1")

	err := s.CreateBulk(context.Background(), []model.Seat{
		{ShowID: "show-1", SeatID: "A2", Status: model.SeatAvailable},
		{ShowID: "show-1", SeatID: "A1", Status: model.SeatAvailable},
	})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	// The failed batch must not have been partially applied.
	_, err = s.Get(context.Background(), "show-1", "A2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSeatStoreTransition(t *testing.T) {
	s := NewSeatStore()
	seedSeats(t, s, "show-1", "A1")
	ctx := context.Background()

	seat, err := s.Transition(ctx, "show-1", "A1", model.SeatAvailable, func(seat *model.Seat) {
		seat.Status = model.SeatHeld
		seat.HoldID = "h1"
		seat.HoldExpiresAt = time.Now().Add(time.Minute)
	})
	require.NoError(t, err)
	assert.Equal(t, model.SeatHeld, seat.Status)

	// Expected status no longer matches: conflict, nothing applied.
	_, err = s.Transition(ctx, "show-1", "A1", model.SeatAvailable, func(seat *model.Seat) {
		seat.HoldID = "h2"
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	seat, err = s.Get(ctx, "show-1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "h1", seat.HoldID)

	_, err = s.Transition(ctx, "show-1", "A9", model.SeatAvailable, func(*model.Seat) {})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSeatStoreTransitionRejectsIllegalEdge(t *testing.T) {
	s := NewSeatStore()
	seedSeats(t, s, "show-1", "A1")
	ctx := context.Background()

	// AVAILABLE -> BOOKED without an intervening hold is not a legal
	// seat transition; nothing may be applied.
	_, err := s.Transition(ctx, "show-1", "A1", model.SeatAvailable, func(seat *model.Seat) {
		seat.Status = model.SeatBooked
		seat.BookedBy = "Mallory"
	})
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	seat, err := s.Get(ctx, "show-1", "A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, seat.Status)
	assert.Empty(t, seat.BookedBy)
}

func TestSeatStoreTransitionSerializesWriters(t *testing.T) {
	s := NewSeatStore()
	seedSeats(t, s, "show-1", "A1")
	ctx := context.Background()

	const writers = 64
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Transition(ctx, "show-1", "A1", model.SeatAvailable, func(seat *model.Seat) {
				seat.Status = model.SeatHeld
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins, "compare-and-swap must admit exactly one writer")
}
