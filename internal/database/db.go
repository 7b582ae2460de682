// Package database opens and verifies the MySQL connection pool the
// SQL-backed stores run on.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Config carries the connection parameters for Open.
type Config struct {
	User string
	Pass string // optional
	Host string
	Port string
	Name string
}

// DSN renders the driver connection string.  parseTime maps DATETIME
// columns onto time.Time and loc=UTC keeps every timestamp in UTC,
// which the stores rely on for hold-expiry comparisons.
func (c Config) DSN() string {
	auth := c.User
	if c.Pass != "" {
		auth = fmt.Sprintf("%s:%s", c.User, c.Pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.Host, c.Port, c.Name)
}

// Open connects to MySQL and verifies the connection with a ping.
// Every seat transition runs a short single-row transaction, so the
// pool is kept small with idle connections recycled quickly.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
