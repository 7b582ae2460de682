// Package mysqlstore implements the storage contracts on MySQL.  The
// compare-and-swap contract of SeatStore.Transition is realised as a
// SELECT ... FOR UPDATE plus status check inside a transaction: the row
// lock serializes transitions per seat key and the status check turns a
// lost race into ErrConflict instead of a silent overwrite.
package mysqlstore

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS shows (
		show_id    VARCHAR(64)  NOT NULL,
		name       VARCHAR(255) NOT NULL,
		created_at DATETIME     NOT NULL,
		PRIMARY KEY (show_id)
	)`,
	`CREATE TABLE IF NOT EXISTS seats (
		show_id         VARCHAR(64)  NOT NULL,
		seat_id         VARCHAR(16)  NOT NULL,
		status          VARCHAR(16)  NOT NULL,
		hold_id         VARCHAR(64)  NULL,
		held_by         VARCHAR(255) NULL,
		hold_expires_at DATETIME     NULL,
		booked_by       VARCHAR(255) NULL,
		booked_at       DATETIME     NULL,
		PRIMARY KEY (show_id, seat_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		booking_id      VARCHAR(64)  NOT NULL,
		show_id         VARCHAR(64)  NOT NULL,
		seat_id         VARCHAR(16)  NOT NULL,
		name            VARCHAR(255) NOT NULL,
		status          VARCHAR(16)  NOT NULL,
		hold_id         VARCHAR(64)  NULL,
		hold_expires_at DATETIME     NULL,
		created_at      DATETIME     NOT NULL,
		confirmed_at    DATETIME     NULL,
		PRIMARY KEY (booking_id),
		KEY idx_bookings_seat_status (show_id, seat_id, status)
	)`,
}

// EnsureSchema creates the tables if they do not exist.  It is run once
// at startup; the statements are idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
