package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rezamoradi/show-seat-booking/internal/model"
	"github.com/rezamoradi/show-seat-booking/internal/store"
)

// SeatStore provides data access to the seats table.  All timestamps
// are stored and compared in UTC; callers must not pass local times.
type SeatStore struct {
	db *sql.DB
}

// NewSeatStore returns a SeatStore bound to the provided database.
func NewSeatStore(db *sql.DB) *SeatStore {
	return &SeatStore{db: db}
}

const seatColumns = `show_id, seat_id, status, hold_id, held_by, hold_expires_at, booked_by, booked_at`

func (s *SeatStore) Get(ctx context.Context, showID, seatID string) (model.Seat, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE show_id = ? AND seat_id = ?`,
		showID, seatID,
	)
	return scanSeat(row)
}

func (s *SeatStore) List(ctx context.Context, showID string) ([]model.Seat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE show_id = ?`,
		showID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Natural label order (A2 before A10) cannot be expressed as a plain
	// ORDER BY on the label column, so sorting happens here.
	model.SortSeats(seats)
	return seats, nil
}

// CreateBulk inserts all seats in one statement, mirroring how the rest
// of the stores batch their writes.  The PRIMARY KEY on (show_id,
// seat_id) rejects duplicates, which is surfaced as ErrAlreadyExists.
func (s *SeatStore) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (` + seatColumns + `) VALUES `
	args := make([]interface{}, 0, len(seats)*8)
	for i, seat := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			seat.ShowID, seat.SeatID, string(seat.Status),
			nullStr(seat.HoldID), nullStr(seat.HeldBy), nullTime(seat.HoldExpiresAt),
			nullStr(seat.BookedBy), nullTime(seat.BookedAt),
		)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Transition locks the seat row, checks the current status against
// expected, applies mutate in memory and writes the full row back, all
// inside one transaction.  A racing transition blocks on the row lock
// and then fails the status check with ErrConflict.
func (s *SeatStore) Transition(ctx context.Context, showID, seatID string, expected model.SeatStatus, mutate func(*model.Seat)) (model.Seat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Seat{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE show_id = ? AND seat_id = ? FOR UPDATE`,
		showID, seatID,
	)
	seat, err := scanSeat(row)
	if err != nil {
		return model.Seat{}, err
	}
	if seat.Status != expected {
		return model.Seat{}, store.ErrConflict
	}
	mutate(&seat)
	if seat.Status != expected && !expected.CanTransitionTo(seat.Status) {
		return model.Seat{}, store.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE seats
		 SET status = ?, hold_id = ?, held_by = ?, hold_expires_at = ?, booked_by = ?, booked_at = ?
		 WHERE show_id = ? AND seat_id = ?`,
		string(seat.Status),
		nullStr(seat.HoldID), nullStr(seat.HeldBy), nullTime(seat.HoldExpiresAt),
		nullStr(seat.BookedBy), nullTime(seat.BookedAt),
		showID, seatID,
	)
	if err != nil {
		return model.Seat{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Seat{}, err
	}
	committed = true
	return seat, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeat(row rowScanner) (model.Seat, error) {
	var (
		seat      model.Seat
		status    string
		holdID    sql.NullString
		heldBy    sql.NullString
		expiresAt sql.NullTime
		bookedBy  sql.NullString
		bookedAt  sql.NullTime
	)
	err := row.Scan(&seat.ShowID, &seat.SeatID, &status, &holdID, &heldBy, &expiresAt, &bookedBy, &bookedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Seat{}, store.ErrNotFound
		}
		return model.Seat{}, err
	}
	seat.Status = model.SeatStatus(status)
	seat.HoldID = holdID.String
	seat.HeldBy = heldBy.String
	seat.HoldExpiresAt = timeOrZero(expiresAt)
	seat.BookedBy = bookedBy.String
	seat.BookedAt = timeOrZero(bookedAt)
	return seat, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

func timeOrZero(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
