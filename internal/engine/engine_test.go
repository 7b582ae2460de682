package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezamoradi/show-seat-booking/internal/clock"
	"github.com/rezamoradi/show-seat-booking/internal/model"
	"github.com/rezamoradi/show-seat-booking/internal/store"
	"github.com/rezamoradi/show-seat-booking/internal/store/memstore"
)

const testShow = "show-1"

type fixture struct {
	engine *Engine
	seats  *memstore.SeatStore
	ledger *memstore.BookingLedger
	clock  *clock.Fixed
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		seats:  memstore.NewSeatStore(),
		ledger: memstore.NewBookingLedger(),
		clock:  clock.NewFixed(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)),
	}
	shows := memstore.NewShowStore()
	f.engine = New(f.seats, f.ledger, shows, f.clock, opts...)
	require.NoError(t, f.engine.Provision(context.Background(), testShow, "Movie Show", 30))
	return f
}

func TestProvision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	views, err := f.engine.ListSeats(ctx, testShow)
	require.NoError(t, err)
	require.Len(t, views, 30)
	for i, v := range views {
		assert.Equal(t, fmt.Sprintf("A%d", i+1), v.SeatID)
		assert.Equal(t, model.SeatAvailable, v.Status)
		assert.Empty(t, v.BookingID)
	}

	err = f.engine.Provision(ctx, testShow, "Movie Show", 30)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestHoldThenConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t0 := f.clock.Now()

	res, err := f.engine.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, res.BookingID)
	assert.NotEmpty(t, res.HoldID)
	assert.Equal(t, "Alice", res.HeldBy)
	assert.Equal(t, t0.Add(5*time.Minute), res.HoldExpiresAt)

	view, err := f.engine.Snapshot(ctx, testShow, "A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatHeld, view.Status)
	assert.Equal(t, "Alice", view.HeldBy)
	assert.Equal(t, res.BookingID, view.BookingID)

	f.clock.Advance(60 * time.Second)
	booking, err := f.engine.Confirm(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	assert.Equal(t, t0.Add(60*time.Second), booking.ConfirmedAt)

	view, err = f.engine.Snapshot(ctx, testShow, "A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatBooked, view.Status)
	assert.Equal(t, "Alice", view.BookedBy)
	assert.Empty(t, view.HoldID)
	assert.Equal(t, res.BookingID, view.BookingID)

	// A booked seat cannot be held again.
	f.clock.Advance(time.Second)
	_, err = f.engine.Hold(ctx, testShow, "A1", "Bob")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmIsNotRepeatable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)
	_, err = f.engine.Confirm(ctx, res.BookingID)
	require.NoError(t, err)

	_, err = f.engine.Confirm(ctx, res.BookingID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmUnknownBooking(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Confirm(context.Background(), "no-such-booking")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConfirmAfterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)

	f.clock.Advance(5*time.Minute + time.Second)
	_, err = f.engine.Confirm(ctx, res.BookingID)
	assert.ErrorIs(t, err, ErrExpired)

	// Expiry is discovered, not ignored: seat freed, booking cancelled.
	view, err := f.engine.Snapshot(ctx, testShow, "A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, view.Status)

	b, err := f.ledger.Get(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
}

func TestConfirmAtExactExpiryStillSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)

	f.clock.Set(res.HoldExpiresAt)
	_, err = f.engine.Confirm(ctx, res.BookingID)
	assert.NoError(t, err)
}

func TestSnapshotSweepsExpiredHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Hold(ctx, testShow, "A2", "Bob")
	require.NoError(t, err)

	f.clock.Advance(301 * time.Second)
	view, err := f.engine.Snapshot(ctx, testShow, "A2")
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, view.Status)
	assert.Empty(t, view.HeldBy)
	assert.Nil(t, view.HoldExpiresAt)

	b, err := f.ledger.Get(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
}

func TestListSweepsExpiredHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)
	late, err := f.engine.Hold(ctx, testShow, "A2", "Bob")
	require.NoError(t, err)

	// A1 expires, A2 is still inside its window.
	f.clock.Advance(4 * time.Minute)
	views, err := f.engine.ListSeats(ctx, testShow)
	require.NoError(t, err)

	byID := make(map[string]SeatView, len(views))
	for _, v := range views {
		byID[v.SeatID] = v
	}
	assert.Equal(t, model.SeatAvailable, byID["A1"].Status)
	assert.Equal(t, model.SeatHeld, byID["A2"].Status)
	assert.Equal(t, late.BookingID, byID["A2"].BookingID)
}

func TestHoldUnavailableSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)

	_, err = f.engine.Hold(ctx, testShow, "A1", "Bob")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.engine.Hold(ctx, testShow, "Z9", "Bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHoldAfterExpiryWithoutPriorSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)

	// Nobody lists or snapshots the seat; the next hold performs the
	// inline sweep itself.
	f.clock.Advance(6 * time.Minute)
	second, err := f.engine.Hold(ctx, testShow, "A1", "Bob")
	require.NoError(t, err)
	assert.NotEqual(t, first.HoldID, second.HoldID)

	b, err := f.ledger.Get(ctx, first.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Hold(ctx, testShow, "A3", "Carol")
	require.NoError(t, err)

	require.NoError(t, f.engine.Cancel(ctx, testShow, "A3"))

	view, err := f.engine.Snapshot(ctx, testShow, "A3")
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, view.Status)

	b, err := f.ledger.Get(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)

	// AVAILABLE and BOOKED seats cannot be cancelled.
	assert.ErrorIs(t, f.engine.Cancel(ctx, testShow, "A3"), ErrInvalidState)

	res, err = f.engine.Hold(ctx, testShow, "A4", "Dora")
	require.NoError(t, err)
	_, err = f.engine.Confirm(ctx, res.BookingID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.engine.Cancel(ctx, testShow, "A4"), ErrInvalidState)

	assert.ErrorIs(t, f.engine.Cancel(ctx, testShow, "Z9"), store.ErrNotFound)
}

func TestCancelWithoutBookingCleansSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A seat can be HELD with no ledger record, e.g. after a partial
	// failure; the seat is the source of truth and cancel still frees it.
	_, err := f.seats.Transition(ctx, testShow, "A5", model.SeatAvailable, func(s *model.Seat) {
		s.Status = model.SeatHeld
		s.HoldID = "orphan"
		s.HeldBy = "Ghost"
		s.HoldExpiresAt = f.clock.Now().Add(time.Minute)
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.Cancel(ctx, testShow, "A5"))
	view, err := f.engine.Snapshot(ctx, testShow, "A5")
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, view.Status)
}

func TestConcurrentHoldsOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const callers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []HoldResult
		failures  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.engine.Hold(ctx, testShow, "A7", fmt.Sprintf("caller-%d", i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes = append(successes, res)
				return
			}
			if errors.Is(err, ErrInvalidState) || errors.Is(err, store.ErrConflict) {
				failures++
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, successes, 1, "exactly one concurrent hold must win")
	assert.Equal(t, callers-1, failures)

	// The winner's booking is the only HELD record for the seat.
	b, err := f.ledger.FindActiveHold(ctx, testShow, "A7")
	require.NoError(t, err)
	assert.Equal(t, successes[0].BookingID, b.BookingID)
}

func TestCustomHoldTTL(t *testing.T) {
	f := newFixture(t, WithHoldTTL(30*time.Second))
	ctx := context.Background()

	res, err := f.engine.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(30*time.Second), res.HoldExpiresAt)

	f.clock.Advance(31 * time.Second)
	_, err = f.engine.Confirm(ctx, res.BookingID)
	assert.ErrorIs(t, err, ErrExpired)
}

// hookSeats wraps a real seat store and runs a callback once, after the
// first successful Get, to splice a competing operation into the middle
// of an in-flight engine call.
type hookSeats struct {
	*memstore.SeatStore
	afterGet func()
}

func (s *hookSeats) Get(ctx context.Context, showID, seatID string) (model.Seat, error) {
	seat, err := s.SeatStore.Get(ctx, showID, seatID)
	if err == nil && s.afterGet != nil {
		hook := s.afterGet
		s.afterGet = nil
		hook()
	}
	return seat, err
}

func TestCancelDoesNotClobberWinningConfirm(t *testing.T) {
	seats := &hookSeats{SeatStore: memstore.NewSeatStore()}
	ledger := memstore.NewBookingLedger()
	shows := memstore.NewShowStore()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC))
	eng := New(seats, ledger, shows, clk)
	ctx := context.Background()
	require.NoError(t, eng.Provision(ctx, testShow, "Movie Show", 5))

	res, err := eng.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)

	// The confirm completes after Cancel has read the seat but before it
	// releases it.  Cancel must lose cleanly instead of cancelling the
	// now-confirmed booking.
	seats.afterGet = func() {
		_, err := eng.Confirm(ctx, res.BookingID)
		require.NoError(t, err)
	}
	assert.ErrorIs(t, eng.Cancel(ctx, testShow, "A1"), ErrInvalidState)

	b, err := ledger.Get(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)

	seat, err := seats.Get(ctx, testShow, "A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatBooked, seat.Status)
	assert.Equal(t, "Alice", seat.BookedBy)

	// Even a cancel that reaches the ledger leaves a confirmed booking
	// alone.
	b, err = ledger.Update(ctx, res.BookingID, cancelBooking)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
}

func TestConfirmDetectsReheldSeat(t *testing.T) {
	seats := &hookSeats{SeatStore: memstore.NewSeatStore()}
	ledger := memstore.NewBookingLedger()
	shows := memstore.NewShowStore()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC))
	eng := New(seats, ledger, shows, clk)
	ctx := context.Background()
	require.NoError(t, eng.Provision(ctx, testShow, "Movie Show", 5))

	alice, err := eng.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)

	// Between Confirm's seat read and its transition, the hold is
	// cancelled and the seat re-held by someone else.  The stale confirm
	// must not book over the new holder.
	var bob HoldResult
	seats.afterGet = func() {
		require.NoError(t, eng.Cancel(ctx, testShow, "A1"))
		var err error
		bob, err = eng.Hold(ctx, testShow, "A1", "Bob")
		require.NoError(t, err)
	}
	_, err = eng.Confirm(ctx, alice.BookingID)
	assert.ErrorIs(t, err, store.ErrConflict)

	seat, err := seats.Get(ctx, testShow, "A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatHeld, seat.Status)
	assert.Equal(t, bob.HoldID, seat.HoldID)
	assert.Equal(t, "Bob", seat.HeldBy)

	b, err := ledger.Get(ctx, alice.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)

	// The surviving holder can still confirm.
	_, err = eng.Confirm(ctx, bob.BookingID)
	assert.NoError(t, err)
}

// failingSeats wraps a real seat store and fails CreateBulk on demand,
// to exercise the compensating rollback in Provision.
type failingSeats struct {
	*memstore.SeatStore
	failCreateBulk bool
}

func (s *failingSeats) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if s.failCreateBulk {
		return errors.New("seats unavailable")
	}
	return s.SeatStore.CreateBulk(ctx, seats)
}

func TestProvisionRollsBackShowOnSeatFailure(t *testing.T) {
	seats := &failingSeats{SeatStore: memstore.NewSeatStore(), failCreateBulk: true}
	ledger := memstore.NewBookingLedger()
	shows := memstore.NewShowStore()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC))
	eng := New(seats, ledger, shows, clk)
	ctx := context.Background()

	require.Error(t, eng.Provision(ctx, testShow, "Movie Show", 5))

	// No half-provisioned show may linger; the same showID must work on
	// retry once the seat store recovers.
	_, err := shows.Get(ctx, testShow)
	assert.ErrorIs(t, err, store.ErrNotFound)

	seats.failCreateBulk = false
	require.NoError(t, eng.Provision(ctx, testShow, "Movie Show", 5))
	views, err := eng.ListSeats(ctx, testShow)
	require.NoError(t, err)
	assert.Len(t, views, 5)
}

// failingLedger wraps a real ledger and fails Create on demand, to
// exercise the compensating rollback in Hold.
type failingLedger struct {
	*memstore.BookingLedger
	failCreate bool
	failUpdate bool
}

func (l *failingLedger) Create(ctx context.Context, b model.Booking) error {
	if l.failCreate {
		return errors.New("ledger unavailable")
	}
	return l.BookingLedger.Create(ctx, b)
}

func (l *failingLedger) Update(ctx context.Context, bookingID string, mutate func(*model.Booking)) (model.Booking, error) {
	if l.failUpdate {
		return model.Booking{}, errors.New("ledger unavailable")
	}
	return l.BookingLedger.Update(ctx, bookingID, mutate)
}

func TestHoldRollsBackSeatWhenLedgerFails(t *testing.T) {
	seats := memstore.NewSeatStore()
	ledger := &failingLedger{BookingLedger: memstore.NewBookingLedger(), failCreate: true}
	shows := memstore.NewShowStore()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC))
	eng := New(seats, ledger, shows, clk)
	ctx := context.Background()
	require.NoError(t, eng.Provision(ctx, testShow, "Movie Show", 5))

	_, err := eng.Hold(ctx, testShow, "A1", "Alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidState)

	// The seat must be AVAILABLE again and holdable once the ledger recovers.
	seat, err := seats.Get(ctx, testShow, "A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, seat.Status)
	assert.Empty(t, seat.HoldID)

	ledger.failCreate = false
	_, err = eng.Hold(ctx, testShow, "A1", "Alice")
	assert.NoError(t, err)
}

func TestConfirmResumesAfterLedgerFailure(t *testing.T) {
	seats := memstore.NewSeatStore()
	ledger := &failingLedger{BookingLedger: memstore.NewBookingLedger()}
	shows := memstore.NewShowStore()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC))
	eng := New(seats, ledger, shows, clk)
	ctx := context.Background()
	require.NoError(t, eng.Provision(ctx, testShow, "Movie Show", 5))

	res, err := eng.Hold(ctx, testShow, "A1", "Alice")
	require.NoError(t, err)

	// The seat is won but the ledger write fails.  Booked seats never go
	// back, so the confirm is stranded half done.
	ledger.failUpdate = true
	_, err = eng.Confirm(ctx, res.BookingID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidState)

	seat, err := seats.Get(ctx, testShow, "A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatBooked, seat.Status)
	b, err := ledger.Get(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingHeld, b.Status)

	// A retry completes the record, even past the original hold window:
	// the seat was won in time.
	ledger.failUpdate = false
	clk.Advance(10 * time.Minute)
	confirmed, err := eng.Confirm(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, confirmed.Status)

	view, err := eng.Snapshot(ctx, testShow, "A1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatBooked, view.Status)
	assert.Equal(t, res.BookingID, view.BookingID)
}
