// Package engine implements the seat/booking state machine with
// time-bounded holds.  All mutations go through the stores'
// compare-and-swap transitions; expired holds are reconciled lazily on
// the next read or hold that touches the affected seat, there is no
// background timer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rezamoradi/show-seat-booking/internal/clock"
	"github.com/rezamoradi/show-seat-booking/internal/model"
	"github.com/rezamoradi/show-seat-booking/internal/store"
)

// DefaultHoldTTL is how long a hold stays valid unless overridden.
const DefaultHoldTTL = 5 * time.Minute

// DefaultSeatCount is the size of the seat pool created by Provision
// when the caller does not ask for a specific count.
const DefaultSeatCount = 30

// Engine ties the seat store and the booking ledger together and
// enforces the transition rules between them.  It is safe for
// concurrent use; per-seat serialization is delegated to the seat
// store's Transition.
type Engine struct {
	seats   store.SeatStore
	ledger  store.BookingLedger
	shows   store.ShowStore
	clock   clock.Clock
	holdTTL time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithHoldTTL overrides the default hold duration.  Non-positive values
// are ignored.
func WithHoldTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.holdTTL = d
		}
	}
}

// New constructs an Engine.  All dependencies must be non-nil.
func New(seats store.SeatStore, ledger store.BookingLedger, shows store.ShowStore, clk clock.Clock, opts ...Option) *Engine {
	if seats == nil || ledger == nil || shows == nil || clk == nil {
		panic("nil dependency passed to engine.New")
	}
	e := &Engine{
		seats:   seats,
		ledger:  ledger,
		shows:   shows,
		clock:   clk,
		holdTTL: DefaultHoldTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HoldResult is returned by Hold and carries everything the caller
// needs to later confirm or correlate the hold.
type HoldResult struct {
	BookingID     string    `json:"bookingId"`
	HoldID        string    `json:"holdId"`
	HoldExpiresAt time.Time `json:"holdExpiresAt"`
	HeldBy        string    `json:"heldBy"`
}

// SeatView is the read model for one seat.  BookingID is resolved from
// the ledger at read time and never persisted on the seat.
type SeatView struct {
	SeatID        string           `json:"seatId"`
	Status        model.SeatStatus `json:"status"`
	HeldBy        string           `json:"heldBy,omitempty"`
	HoldID        string           `json:"holdId,omitempty"`
	HoldExpiresAt *time.Time       `json:"holdExpiresAt,omitempty"`
	BookedBy      string           `json:"bookedBy,omitempty"`
	BookedAt      *time.Time       `json:"bookedAt,omitempty"`
	BookingID     string           `json:"bookingId,omitempty"`
}

// Provision creates the show and its seat pool A1..A<seatCount>, all
// AVAILABLE.  It fails with store.ErrAlreadyExists when the show has
// been provisioned before; callers should provision into a fresh
// showID.
func (e *Engine) Provision(ctx context.Context, showID, name string, seatCount int) error {
	if seatCount <= 0 {
		seatCount = DefaultSeatCount
	}
	now := e.clock.Now()
	if err := e.shows.Create(ctx, model.Show{ShowID: showID, Name: name, CreatedAt: now}); err != nil {
		return err
	}
	seats := make([]model.Seat, 0, seatCount)
	for i := 1; i <= seatCount; i++ {
		seats = append(seats, model.Seat{
			ShowID: showID,
			SeatID: fmt.Sprintf("A%d", i),
			Status: model.SeatAvailable,
		})
	}
	if err := e.seats.CreateBulk(ctx, seats); err != nil {
		// Take the show row back out so a failed provision leaves no
		// trace and the showID can be retried.
		_ = e.shows.Delete(ctx, showID)
		return err
	}
	return nil
}

// ListSeats sweeps expired holds for the show and returns all seats
// ordered by seat label, each annotated with the bookingID of its
// active hold or confirmed booking.
func (e *Engine) ListSeats(ctx context.Context, showID string) ([]SeatView, error) {
	seats, err := e.seats.List(ctx, showID)
	if err != nil {
		return nil, err
	}
	views := make([]SeatView, 0, len(seats))
	for _, seat := range seats {
		seat, err = e.sweepSeat(ctx, seat)
		if err != nil {
			return nil, err
		}
		view, err := e.annotate(ctx, seat)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Snapshot sweeps a single seat and returns its current fields.  It
// fails with store.ErrNotFound when the seat does not exist.
func (e *Engine) Snapshot(ctx context.Context, showID, seatID string) (SeatView, error) {
	seat, err := e.seats.Get(ctx, showID, seatID)
	if err != nil {
		return SeatView{}, err
	}
	seat, err = e.sweepSeat(ctx, seat)
	if err != nil {
		return SeatView{}, err
	}
	return e.annotate(ctx, seat)
}

// Hold places a time-bounded exclusive claim on an AVAILABLE seat and
// creates the paired HELD booking.  The AVAILABLE → HELD transition in
// the seat store is the exclusivity checkpoint: of two concurrent
// callers exactly one passes it, the other loses the compare-and-swap
// and gets ErrInvalidState.  If the booking write fails after the seat
// transition, the seat is released again before the error is returned.
func (e *Engine) Hold(ctx context.Context, showID, seatID, name string) (HoldResult, error) {
	seat, err := e.seats.Get(ctx, showID, seatID)
	if err != nil {
		return HoldResult{}, err
	}
	// Inline sweep so a stale expired hold does not block this request.
	seat, err = e.sweepSeat(ctx, seat)
	if err != nil {
		return HoldResult{}, err
	}
	if seat.Status != model.SeatAvailable {
		return HoldResult{}, ErrInvalidState
	}

	now := e.clock.Now()
	bookingID := uuid.NewString()
	holdID := uuid.NewString()
	expiresAt := now.Add(e.holdTTL)

	_, err = e.seats.Transition(ctx, showID, seatID, model.SeatAvailable, func(s *model.Seat) {
		s.Status = model.SeatHeld
		s.HoldID = holdID
		s.HeldBy = name
		s.HoldExpiresAt = expiresAt
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost the race to another holder.
			return HoldResult{}, ErrInvalidState
		}
		return HoldResult{}, err
	}

	booking := model.Booking{
		BookingID:     bookingID,
		ShowID:        showID,
		SeatID:        seatID,
		Name:          name,
		Status:        model.BookingHeld,
		HoldID:        holdID,
		HoldExpiresAt: expiresAt,
		CreatedAt:     now,
	}
	if err := e.ledger.Create(ctx, booking); err != nil {
		// Compensating rollback: release the seat we just held so the
		// failed operation leaves no effect.  The holdID guard makes the
		// release a no-op if the hold has already changed hands.
		e.releaseHold(ctx, showID, seatID, holdID)
		return HoldResult{}, err
	}

	return HoldResult{
		BookingID:     bookingID,
		HoldID:        holdID,
		HoldExpiresAt: expiresAt,
		HeldBy:        name,
	}, nil
}

// Confirm finalises a HELD booking before its expiry: the seat becomes
// BOOKED, then the booking CONFIRMED, in that order so no reader can
// observe a CONFIRMED booking on a seat that is not yet BOOKED.  A
// confirm after expiry fails with ErrExpired and, as a side effect,
// cancels the booking and frees the seat.
func (e *Engine) Confirm(ctx context.Context, bookingID string) (model.Booking, error) {
	booking, err := e.ledger.Get(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if booking.Status != model.BookingHeld {
		return model.Booking{}, ErrInvalidState
	}

	prev, err := e.seats.Get(ctx, booking.ShowID, booking.SeatID)
	if err != nil {
		return model.Booking{}, err
	}
	now := e.clock.Now()

	// A prior confirm may have booked the seat and then failed on the
	// ledger write.  Booked seats never go back to held, so the retry
	// completes the record instead of re-running the transition.  The
	// expiry check is skipped here: the seat was won in time.
	resume, err := e.halfConfirmed(ctx, booking, prev)
	if err != nil {
		return model.Booking{}, err
	}
	if !resume {
		if now.After(booking.HoldExpiresAt) {
			// Expiry is discovered, not silently ignored: reconcile both
			// sides before reporting it.
			if _, err := e.ledger.Update(ctx, bookingID, cancelBooking); err != nil && !errors.Is(err, store.ErrNotFound) {
				return model.Booking{}, err
			}
			e.releaseHold(ctx, booking.ShowID, booking.SeatID, booking.HoldID)
			return model.Booking{}, ErrExpired
		}
		if prev.Status != model.SeatHeld || prev.HoldID != booking.HoldID {
			// The seat has moved on to another hold cycle.
			return model.Booking{}, ErrInvalidState
		}

		// The holdID comparison runs inside the transition's critical
		// section: if the hold changed hands after the pre-check above,
		// the mutation leaves the new holder's seat alone and the
		// unchanged status below surfaces it as a lost race.
		updated, err := e.seats.Transition(ctx, booking.ShowID, booking.SeatID, model.SeatHeld, func(s *model.Seat) {
			if s.HoldID != booking.HoldID {
				return
			}
			s.Status = model.SeatBooked
			s.BookedBy = booking.Name
			s.BookedAt = now
			s.HoldID = ""
			s.HeldBy = ""
			s.HoldExpiresAt = time.Time{}
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return model.Booking{}, ErrInvalidState
			}
			return model.Booking{}, err
		}
		if updated.Status != model.SeatBooked {
			return model.Booking{}, store.ErrConflict
		}
	}

	confirmed, err := e.ledger.Update(ctx, bookingID, func(b *model.Booking) {
		b.Status = model.BookingConfirmed
		b.ConfirmedAt = now
	})
	if err != nil {
		// The seat stays BOOKED; a retried confirm takes the resume path
		// above and finishes the ledger side.
		return model.Booking{}, err
	}
	return confirmed, nil
}

// halfConfirmed reports whether seat is the stranded output of a
// confirm for booking that booked the seat but never recorded it: the
// seat is BOOKED with its hold fields cleared, yet no CONFIRMED booking
// exists for it.
func (e *Engine) halfConfirmed(ctx context.Context, booking model.Booking, seat model.Seat) (bool, error) {
	if seat.Status != model.SeatBooked || seat.HoldID != "" || seat.BookedBy != booking.Name {
		return false, nil
	}
	_, err := e.ledger.FindConfirmed(ctx, booking.ShowID, booking.SeatID)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	return false, err
}

// Cancel releases a HELD seat back to AVAILABLE and cancels its paired
// booking.  The seat is the source of truth for "is this seat free":
// cancellation succeeds even when no matching booking exists.  Seats
// that are AVAILABLE or BOOKED fail with ErrInvalidState.
func (e *Engine) Cancel(ctx context.Context, showID, seatID string) error {
	seat, err := e.seats.Get(ctx, showID, seatID)
	if err != nil {
		return err
	}
	if seat.Status != model.SeatHeld {
		return ErrInvalidState
	}
	holdID := seat.HoldID

	// Release the seat first.  Once the HELD -> AVAILABLE transition
	// wins, no concurrent confirm can complete against this hold, so
	// the ledger update below can never clobber a CONFIRMED booking.
	_, err = e.seats.Transition(ctx, showID, seatID, model.SeatHeld, func(s *model.Seat) {
		s.ClearHold()
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrInvalidState
		}
		return err
	}

	if b, err := e.ledger.FindActiveHold(ctx, showID, seatID); err == nil {
		if b.HoldID == holdID {
			if _, err := e.ledger.Update(ctx, b.BookingID, cancelBooking); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// sweepSeat lazily reconciles one seat: if its hold has expired, the
// seat goes back to AVAILABLE and the paired booking (matched by
// holdID) to CANCELLED.  Losing the seat transition to a concurrent
// sweep is fine; the fresh state is re-read and returned.
func (e *Engine) sweepSeat(ctx context.Context, seat model.Seat) (model.Seat, error) {
	now := e.clock.Now()
	if !seat.HoldExpired(now) {
		return seat, nil
	}
	holdID := seat.HoldID
	swept, err := e.seats.Transition(ctx, seat.ShowID, seat.SeatID, model.SeatHeld, func(s *model.Seat) {
		s.ClearHold()
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Another request swept or re-held the seat first.
			return e.seats.Get(ctx, seat.ShowID, seat.SeatID)
		}
		return model.Seat{}, err
	}
	if b, err := e.ledger.FindActiveHold(ctx, seat.ShowID, seat.SeatID); err == nil && b.HoldID == holdID {
		if _, err := e.ledger.Update(ctx, b.BookingID, cancelBooking); err != nil && !errors.Is(err, store.ErrNotFound) {
			return model.Seat{}, err
		}
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return model.Seat{}, err
	}
	return swept, nil
}

// releaseHold frees a seat only if it still carries the given hold.
// Used for compensating rollbacks and expiry cleanup, where the seat
// may legitimately have moved on already.
func (e *Engine) releaseHold(ctx context.Context, showID, seatID, holdID string) {
	_, _ = e.seats.Transition(ctx, showID, seatID, model.SeatHeld, func(s *model.Seat) {
		if s.HoldID == holdID {
			s.ClearHold()
		}
	})
}

// annotate resolves the bookingID shown on a seat view from the ledger
// at read time.
func (e *Engine) annotate(ctx context.Context, seat model.Seat) (SeatView, error) {
	view := SeatView{
		SeatID:   seat.SeatID,
		Status:   seat.Status,
		HeldBy:   seat.HeldBy,
		HoldID:   seat.HoldID,
		BookedBy: seat.BookedBy,
	}
	if !seat.HoldExpiresAt.IsZero() {
		t := seat.HoldExpiresAt
		view.HoldExpiresAt = &t
	}
	if !seat.BookedAt.IsZero() {
		t := seat.BookedAt
		view.BookedAt = &t
	}
	switch seat.Status {
	case model.SeatHeld:
		if seat.HoldID == "" {
			break
		}
		b, err := e.ledger.FindActiveHold(ctx, seat.ShowID, seat.SeatID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				break
			}
			return SeatView{}, err
		}
		if b.HoldID == seat.HoldID {
			view.BookingID = b.BookingID
		}
	case model.SeatBooked:
		b, err := e.ledger.FindConfirmed(ctx, seat.ShowID, seat.SeatID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				break
			}
			return SeatView{}, err
		}
		view.BookingID = b.BookingID
	}
	return view, nil
}

// cancelBooking moves a booking to CANCELLED only from HELD, so a
// racing confirm that already won is never clobbered.
func cancelBooking(b *model.Booking) {
	if b.Status == model.BookingHeld {
		b.Status = model.BookingCancelled
	}
}
