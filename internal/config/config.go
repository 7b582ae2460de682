// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The database fields are required only
// when the MySQL store backend is selected; the in-memory backend needs
// no external services at all.
type Config struct {
	Env          string        // application environment (e.g. "dev", "prod")
	Port         string        // HTTP port to listen on
	StoreBackend string        // "memory" or "mysql"
	DBUser       string        // database username
	DBPass       string        // database password (optional)
	DBHost       string        // database host address
	DBPort       string        // database port number
	DBName       string        // database name
	HoldTTL      time.Duration // how long a seat hold stays valid
	SeatCount    int           // seats created per provisioned show
}

// Load reads configuration values from environment variables and
// returns a Config.  Variables that are required for the selected
// backend are enforced by must(); missing values cause the program to
// exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:          getenv("APP_ENV", "dev"),
		Port:         getenv("APP_PORT", "5000"),
		StoreBackend: getenv("STORE_BACKEND", "memory"),
		HoldTTL:      parseDur(getenv("HOLD_TTL", "5m")),
		SeatCount:    atoi(getenv("SEAT_COUNT", "30")),
	}
	if cfg.SeatCount <= 0 {
		cfg.SeatCount = 30
	}
	if cfg.StoreBackend == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}
