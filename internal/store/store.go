package store

import (
	"context"

	"github.com/rezamoradi/show-seat-booking/internal/model"
)

// SeatStore holds per-seat state keyed by (showID, seatID).  Transition
// is the sole mutation entry point: it atomically checks the seat's
// current status against expected and applies mutate only on a match,
// failing with ErrConflict otherwise.  That check-and-set is what keeps
// two concurrent holders from both acquiring the same seat, so every
// implementation must serialize transitions per seat key.
type SeatStore interface {
	// Get returns the seat or ErrNotFound.
	Get(ctx context.Context, showID, seatID string) (model.Seat, error)
	// List returns all seats of a show ordered by seat label.
	List(ctx context.Context, showID string) ([]model.Seat, error)
	// CreateBulk inserts a block of new seats.  It fails with
	// ErrAlreadyExists if any of them is already present.
	CreateBulk(ctx context.Context, seats []model.Seat) error
	// Transition applies mutate to the seat if its current status equals
	// expected and returns the new state.  On a status mismatch it
	// returns ErrConflict and applies nothing; on a missing seat,
	// ErrNotFound.  A mutate that changes the status along an edge the
	// seat state machine forbids is rejected with ErrInvalidTransition,
	// again applying nothing.
	Transition(ctx context.Context, showID, seatID string, expected model.SeatStatus, mutate func(*model.Seat)) (model.Seat, error)
}

// BookingLedger holds booking records keyed by bookingID with secondary
// lookups by (showID, seatID, status).  Records are append/mutate only;
// no operation deletes, so the ledger doubles as an audit trail.
type BookingLedger interface {
	// Create appends a new booking.  It fails with ErrAlreadyExists on a
	// bookingID collision.
	Create(ctx context.Context, b model.Booking) error
	// Get returns the booking or ErrNotFound.
	Get(ctx context.Context, bookingID string) (model.Booking, error)
	// FindActiveHold returns the HELD booking for a seat, or ErrNotFound.
	FindActiveHold(ctx context.Context, showID, seatID string) (model.Booking, error)
	// FindConfirmed returns the CONFIRMED booking for a seat, or ErrNotFound.
	FindConfirmed(ctx context.Context, showID, seatID string) (model.Booking, error)
	// Update applies mutate to the booking and returns the new state, or
	// ErrNotFound.  Status changes are validated against the booking
	// state machine; an illegal edge is rejected with
	// ErrInvalidTransition and the record is left untouched.
	Update(ctx context.Context, bookingID string, mutate func(*model.Booking)) (model.Booking, error)
}

// ShowStore holds show records.  Creating a show that already exists
// fails with ErrAlreadyExists, which is how duplicate provisioning is
// rejected.
type ShowStore interface {
	Create(ctx context.Context, s model.Show) error
	Get(ctx context.Context, showID string) (model.Show, error)
	// Delete removes a show record.  Deleting a missing show is a no-op;
	// it exists so a failed provision can compensate for its own Create.
	Delete(ctx context.Context, showID string) error
}
