package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/rezamoradi/show-seat-booking/internal/clock"
	"github.com/rezamoradi/show-seat-booking/internal/config"
	"github.com/rezamoradi/show-seat-booking/internal/database"
	"github.com/rezamoradi/show-seat-booking/internal/engine"
	"github.com/rezamoradi/show-seat-booking/internal/handler"
	"github.com/rezamoradi/show-seat-booking/internal/middleware"
	"github.com/rezamoradi/show-seat-booking/internal/queue"
	"github.com/rezamoradi/show-seat-booking/internal/router"
	queue_publisher "github.com/rezamoradi/show-seat-booking/internal/service"
	"github.com/rezamoradi/show-seat-booking/internal/store"
	"github.com/rezamoradi/show-seat-booking/internal/store/memstore"
	"github.com/rezamoradi/show-seat-booking/internal/store/mysqlstore"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	var (
		seats  store.SeatStore
		ledger store.BookingLedger
		shows  store.ShowStore
	)
	switch cfg.StoreBackend {
	case "mysql":
		db, err := database.Open(context.Background(), database.Config{
			User: cfg.DBUser,
			Pass: cfg.DBPass,
			Host: cfg.DBHost,
			Port: cfg.DBPort,
			Name: cfg.DBName,
		})
		if err != nil {
			log.Fatalf("mysql: %v", err)
		}
		if err := mysqlstore.EnsureSchema(context.Background(), db); err != nil {
			log.Fatalf("mysql schema: %v", err)
		}
		seats = mysqlstore.NewSeatStore(db)
		ledger = mysqlstore.NewBookingLedger(db)
		shows = mysqlstore.NewShowStore(db)
	default:
		seats = memstore.NewSeatStore()
		ledger = memstore.NewBookingLedger()
		shows = memstore.NewShowStore()
	}

	eng := engine.New(seats, ledger, shows, clock.NewSystem(), engine.WithHoldTTL(cfg.HoldTTL))
	h := handler.NewSeatHandler(eng, cfg.SeatCount, queue_publisher.PublishBookingConfirmed)

	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), config.NewRedisClient())
	router.RegisterRoutes(e, h, limiter)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreBackend)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
