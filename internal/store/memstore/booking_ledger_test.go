package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezamoradi/show-seat-booking/internal/model"
	"github.com/rezamoradi/show-seat-booking/internal/store"
)

func TestBookingLedger(t *testing.T) {
	l := NewBookingLedger()
	ctx := context.Background()

	held := model.Booking{
		BookingID:     "b1",
		ShowID:        "show-1",
		SeatID:        "A1",
		Name:          "Alice",
		Status:        model.BookingHeld,
		HoldID:        "h1",
		HoldExpiresAt: time.Now().Add(5 * time.Minute),
		CreatedAt:     time.Now(),
	}
	require.NoError(t, l.Create(ctx, held))
	assert.ErrorIs(t, l.Create(ctx, held), store.ErrAlreadyExists)

	got, err := l.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	_, err = l.Get(ctx, "b2")
	assert.ErrorIs(t, err, store.ErrNotFound)

	active, err := l.FindActiveHold(ctx, "show-1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "b1", active.BookingID)

	_, err = l.FindConfirmed(ctx, "show-1", "A1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	updated, err := l.Update(ctx, "b1", func(b *model.Booking) {
		b.Status = model.BookingConfirmed
		b.ConfirmedAt = time.Now()
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, updated.Status)

	_, err = l.FindActiveHold(ctx, "show-1", "A1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	confirmed, err := l.FindConfirmed(ctx, "show-1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "b1", confirmed.BookingID)

	_, err = l.Update(ctx, "b2", func(*model.Booking) {})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBookingLedgerUpdateRejectsIllegalEdge(t *testing.T) {
	l := NewBookingLedger()
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, model.Booking{
		BookingID: "b1",
		ShowID:    "show-1",
		SeatID:    "A1",
		Name:      "Alice",
		Status:    model.BookingHeld,
		CreatedAt: time.Now(),
	}))
	_, err := l.Update(ctx, "b1", func(b *model.Booking) {
		b.Status = model.BookingConfirmed
	})
	require.NoError(t, err)

	// Terminal states stay terminal: neither cancelling nor reopening a
	// confirmed booking is allowed, and the record stays untouched.
	for _, next := range []model.BookingStatus{model.BookingCancelled, model.BookingHeld} {
		_, err := l.Update(ctx, "b1", func(b *model.Booking) {
			b.Status = next
			b.Name = "Mallory"
		})
		assert.ErrorIs(t, err, store.ErrInvalidTransition)
	}

	got, err := l.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.Status)
	assert.Equal(t, "Alice", got.Name)
}
