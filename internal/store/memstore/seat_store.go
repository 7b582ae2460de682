// Package memstore provides in-memory implementations of the storage
// contracts.  It is the default backend and the test double; all
// mutations are serialized through a store-wide mutex, which makes the
// compare-and-swap contract of Transition trivially race-free.
package memstore

import (
	"context"
	"sync"

	"github.com/rezamoradi/show-seat-booking/internal/model"
	"github.com/rezamoradi/show-seat-booking/internal/store"
)

type seatKey struct {
	showID string
	seatID string
}

// SeatStore keeps seats in a map guarded by a RWMutex.
type SeatStore struct {
	mu    sync.RWMutex
	seats map[seatKey]model.Seat
}

// NewSeatStore returns an empty in-memory seat store.
func NewSeatStore() *SeatStore {
	return &SeatStore{seats: make(map[seatKey]model.Seat)}
}

func (s *SeatStore) Get(ctx context.Context, showID, seatID string) (model.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seat, ok := s.seats[seatKey{showID, seatID}]
	if !ok {
		return model.Seat{}, store.ErrNotFound
	}
	return seat, nil
}

func (s *SeatStore) List(ctx context.Context, showID string) ([]model.Seat, error) {
	s.mu.RLock()
	seats := make([]model.Seat, 0)
	for k, seat := range s.seats {
		if k.showID == showID {
			seats = append(seats, seat)
		}
	}
	s.mu.RUnlock()
	model.SortSeats(seats)
	return seats, nil
}

func (s *SeatStore) CreateBulk(ctx context.Context, seats []model.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range seats {
		if _, ok := s.seats[seatKey{seat.ShowID, seat.SeatID}]; ok {
			return store.ErrAlreadyExists
		}
	}
	for _, seat := range seats {
		s.seats[seatKey{seat.ShowID, seat.SeatID}] = seat
	}
	return nil
}

// Transition performs the check-and-set under the write lock: the
// status comparison and the mutation are a single critical section, so
// concurrent transitions on the same seat observe each other's effects
// and exactly one of two racing callers wins.
func (s *SeatStore) Transition(ctx context.Context, showID, seatID string, expected model.SeatStatus, mutate func(*model.Seat)) (model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := seatKey{showID, seatID}
	seat, ok := s.seats[key]
	if !ok {
		return model.Seat{}, store.ErrNotFound
	}
	if seat.Status != expected {
		return model.Seat{}, store.ErrConflict
	}
	mutate(&seat)
	if seat.Status != expected && !expected.CanTransitionTo(seat.Status) {
		return model.Seat{}, store.ErrInvalidTransition
	}
	s.seats[key] = seat
	return seat, nil
}
