package memstore

import (
	"context"
	"sync"

	"github.com/rezamoradi/show-seat-booking/internal/model"
	"github.com/rezamoradi/show-seat-booking/internal/store"
)

// BookingLedger keeps bookings in a map keyed by bookingID.  Secondary
// lookups scan; with one booking per hold cycle and one show in play
// the ledger stays small, and the engine's invariants guarantee at most
// one HELD and one CONFIRMED match per seat anyway.
type BookingLedger struct {
	mu       sync.RWMutex
	bookings map[string]model.Booking
}

// NewBookingLedger returns an empty in-memory ledger.
func NewBookingLedger() *BookingLedger {
	return &BookingLedger{bookings: make(map[string]model.Booking)}
}

func (l *BookingLedger) Create(ctx context.Context, b model.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.bookings[b.BookingID]; ok {
		return store.ErrAlreadyExists
	}
	l.bookings[b.BookingID] = b
	return nil
}

func (l *BookingLedger) Get(ctx context.Context, bookingID string) (model.Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bookings[bookingID]
	if !ok {
		return model.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (l *BookingLedger) FindActiveHold(ctx context.Context, showID, seatID string) (model.Booking, error) {
	return l.findByStatus(showID, seatID, model.BookingHeld)
}

func (l *BookingLedger) FindConfirmed(ctx context.Context, showID, seatID string) (model.Booking, error) {
	return l.findByStatus(showID, seatID, model.BookingConfirmed)
}

func (l *BookingLedger) findByStatus(showID, seatID string, status model.BookingStatus) (model.Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, b := range l.bookings {
		if b.ShowID == showID && b.SeatID == seatID && b.Status == status {
			return b, nil
		}
	}
	return model.Booking{}, store.ErrNotFound
}

func (l *BookingLedger) Update(ctx context.Context, bookingID string, mutate func(*model.Booking)) (model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[bookingID]
	if !ok {
		return model.Booking{}, store.ErrNotFound
	}
	prev := b.Status
	mutate(&b)
	if b.Status != prev && !prev.CanTransitionTo(b.Status) {
		return model.Booking{}, store.ErrInvalidTransition
	}
	l.bookings[bookingID] = b
	return b, nil
}
