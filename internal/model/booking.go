package model

import "time"

// BookingStatus is the closed set of states a booking can be in.
// Transitions are monotone: HELD → {CONFIRMED, CANCELLED}; CONFIRMED
// and CANCELLED are terminal.
type BookingStatus string

const (
	BookingHeld      BookingStatus = "HELD"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingConfirmed || s == BookingCancelled
}

// CanTransitionTo reports whether moving from s to next is a legal
// booking transition.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return s == BookingHeld && next.Terminal()
}

// Booking is the audit record of one hold cycle on one seat.  Bookings
// are created when a hold succeeds and are never deleted; confirm,
// cancel and expiry only mutate the status.  The (ShowID, SeatID) pair
// is a weak reference by value to the seat, and HoldID matches the
// seat's HoldID for as long as both sides are HELD.
//
// Fields:
//
//	BookingID     – globally unique opaque identifier.
//	ShowID        – show of the referenced seat.
//	SeatID        – label of the referenced seat.
//	Name          – display name of the prospective buyer.
//	Status        – HELD, CONFIRMED or CANCELLED.
//	HoldID        – token co-issued with the seat hold.
//	HoldExpiresAt – expiry of the hold window.
//	CreatedAt     – when the hold was placed.
//	ConfirmedAt   – when the booking was confirmed, if it was.
type Booking struct {
	BookingID     string
	ShowID        string
	SeatID        string
	Name          string
	Status        BookingStatus
	HoldID        string
	HoldExpiresAt time.Time
	CreatedAt     time.Time
	ConfirmedAt   time.Time
}
