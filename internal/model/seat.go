package model

import (
	"sort"
	"strconv"
	"time"
)

// SeatStatus is the closed set of states a seat can be in for a show.
// Transitions between states are validated by CanTransitionTo so that
// no caller can invent a state or skip a step in the lifecycle.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE" // free to be held
	SeatHeld      SeatStatus = "HELD"      // temporarily claimed, expires
	SeatBooked    SeatStatus = "BOOKED"    // permanently sold for this show
)

// CanTransitionTo reports whether moving from s to next is a legal seat
// transition.  The lifecycle is AVAILABLE → HELD → {BOOKED, AVAILABLE};
// BOOKED is terminal.
func (s SeatStatus) CanTransitionTo(next SeatStatus) bool {
	switch s {
	case SeatAvailable:
		return next == SeatHeld
	case SeatHeld:
		return next == SeatBooked || next == SeatAvailable
	}
	return false
}

// Seat is the availability record for one seat in one show.  A seat is
// identified by the (ShowID, SeatID) pair.  The hold fields (HoldID,
// HeldBy, HoldExpiresAt) are set only while Status is HELD; the booked
// fields (BookedBy, BookedAt) only while Status is BOOKED.
//
// Fields:
//
//	ShowID        – show this seat belongs to.
//	SeatID        – seat label within the show, e.g. "A12".
//	Status        – current availability status.
//	HoldID        – opaque token identifying the active hold.
//	HeldBy        – display name of the holder.
//	HoldExpiresAt – when the active hold lapses.
//	BookedBy      – display name of the buyer once booked.
//	BookedAt      – when the seat was booked.
type Seat struct {
	ShowID        string
	SeatID        string
	Status        SeatStatus
	HoldID        string
	HeldBy        string
	HoldExpiresAt time.Time
	BookedBy      string
	BookedAt      time.Time
}

// HoldExpired reports whether the seat carries a hold whose expiry lies
// strictly before now.  Seats that are not HELD never count as expired.
func (s Seat) HoldExpired(now time.Time) bool {
	return s.Status == SeatHeld && now.After(s.HoldExpiresAt)
}

// ClearHold removes all hold bookkeeping from the seat and marks it
// AVAILABLE.  It does not touch the booked fields.
func (s *Seat) ClearHold() {
	s.Status = SeatAvailable
	s.HoldID = ""
	s.HeldBy = ""
	s.HoldExpiresAt = time.Time{}
}

// SortSeats orders seats by seat label in natural order: row letters
// first, then the numeric part, so that A2 sorts before A10.  Labels
// that do not follow the row+number shape fall back to plain string
// comparison.
func SortSeats(seats []Seat) {
	sort.Slice(seats, func(i, j int) bool {
		return seatLess(seats[i].SeatID, seats[j].SeatID)
	})
}

func seatLess(a, b string) bool {
	rowA, numA, okA := splitSeatID(a)
	rowB, numB, okB := splitSeatID(b)
	if okA && okB {
		if rowA != rowB {
			return rowA < rowB
		}
		return numA < numB
	}
	return a < b
}

// splitSeatID splits a label like "A12" into its row prefix and number.
func splitSeatID(id string) (row string, num int, ok bool) {
	i := 0
	for i < len(id) && (id[i] < '0' || id[i] > '9') {
		i++
	}
	if i == 0 || i == len(id) {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return "", 0, false
	}
	return id[:i], n, true
}
