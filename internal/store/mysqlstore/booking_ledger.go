package mysqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rezamoradi/show-seat-booking/internal/model"
	"github.com/rezamoradi/show-seat-booking/internal/store"
)

// BookingLedger provides data access to the bookings table.  Records
// are only ever inserted and updated; there is no delete path, so the
// table is a complete audit trail of every hold cycle.
type BookingLedger struct {
	db *sql.DB
}

// NewBookingLedger returns a BookingLedger bound to the provided database.
func NewBookingLedger(db *sql.DB) *BookingLedger {
	return &BookingLedger{db: db}
}

const bookingColumns = `booking_id, show_id, seat_id, name, status, hold_id, hold_expires_at, created_at, confirmed_at`

func (l *BookingLedger) Create(ctx context.Context, b model.Booking) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO bookings (`+bookingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BookingID, b.ShowID, b.SeatID, b.Name, string(b.Status),
		nullStr(b.HoldID), nullTime(b.HoldExpiresAt), b.CreatedAt.UTC(), nullTime(b.ConfirmedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (l *BookingLedger) Get(ctx context.Context, bookingID string) (model.Booking, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_id = ?`,
		bookingID,
	)
	return scanBooking(row)
}

func (l *BookingLedger) FindActiveHold(ctx context.Context, showID, seatID string) (model.Booking, error) {
	return l.findByStatus(ctx, showID, seatID, model.BookingHeld)
}

func (l *BookingLedger) FindConfirmed(ctx context.Context, showID, seatID string) (model.Booking, error) {
	return l.findByStatus(ctx, showID, seatID, model.BookingConfirmed)
}

func (l *BookingLedger) findByStatus(ctx context.Context, showID, seatID string, status model.BookingStatus) (model.Booking, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE show_id = ? AND seat_id = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		showID, seatID, string(status),
	)
	return scanBooking(row)
}

func (l *BookingLedger) Update(ctx context.Context, bookingID string, mutate func(*model.Booking)) (model.Booking, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_id = ? FOR UPDATE`,
		bookingID,
	)
	b, err := scanBooking(row)
	if err != nil {
		return model.Booking{}, err
	}
	prev := b.Status
	mutate(&b)
	if b.Status != prev && !prev.CanTransitionTo(b.Status) {
		return model.Booking{}, store.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, hold_id = ?, hold_expires_at = ?, confirmed_at = ? WHERE booking_id = ?`,
		string(b.Status), nullStr(b.HoldID), nullTime(b.HoldExpiresAt), nullTime(b.ConfirmedAt), bookingID,
	)
	if err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Booking{}, err
	}
	committed = true
	return b, nil
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b           model.Booking
		status      string
		holdID      sql.NullString
		expiresAt   sql.NullTime
		confirmedAt sql.NullTime
	)
	err := row.Scan(&b.BookingID, &b.ShowID, &b.SeatID, &b.Name, &status, &holdID, &expiresAt, &b.CreatedAt, &confirmedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, store.ErrNotFound
		}
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	b.HoldID = holdID.String
	b.HoldExpiresAt = timeOrZero(expiresAt)
	b.CreatedAt = b.CreatedAt.UTC()
	b.ConfirmedAt = timeOrZero(confirmedAt)
	return b, nil
}
