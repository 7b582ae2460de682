package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rezamoradi/show-seat-booking/internal/engine"
	"github.com/rezamoradi/show-seat-booking/internal/queue"
	"github.com/rezamoradi/show-seat-booking/internal/store"
)

// SeatHandler exposes the reservation engine over HTTP.  Publish, when
// set, is called after a successful confirmation; publish failures are
// deliberately ignored so eventing never fails a request.
type SeatHandler struct {
	Engine    *engine.Engine
	SeatCount int
	Publish   func(ctx context.Context, event queue.BookingConfirmedEvent) error
}

// NewSeatHandler constructs a SeatHandler.  The engine must be non-nil;
// publish may be nil to disable eventing.
func NewSeatHandler(eng *engine.Engine, seatCount int, publish func(ctx context.Context, event queue.BookingConfirmedEvent) error) *SeatHandler {
	if eng == nil {
		panic("nil engine passed to NewSeatHandler")
	}
	return &SeatHandler{Engine: eng, SeatCount: seatCount, Publish: publish}
}

// Seed handles POST /api/seats/seed.  It provisions a brand-new show
// with its seat pool and returns the generated showId.  Each call
// creates a fresh show, so duplicate provisioning cannot occur through
// this route; a 409 is only possible if the generated id collides.
func (h *SeatHandler) Seed(c echo.Context) error {
	showID := uuid.NewString()
	err := h.Engine.Provision(c.Request().Context(), showID, "Movie Show", h.SeatCount)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "show already provisioned"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to provision show"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showId":  showID,
		"message": "Show and seats created successfully",
	})
}

// List handles GET /api/seats?showId=.  It returns every seat of the
// show ordered by label, sweeping expired holds on the way.
func (h *SeatHandler) List(c echo.Context) error {
	showID := c.QueryParam("showId")
	if showID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showId is required"})
	}
	views, err := h.Engine.ListSeats(c.Request().Context(), showID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list seats"})
	}
	return c.JSON(http.StatusOK, views)
}

// Snapshot handles GET /api/seats/snapshot?showId=&seatId=.  It returns
// the current state of one seat, sweeping its hold first if expired.
func (h *SeatHandler) Snapshot(c echo.Context) error {
	showID := c.QueryParam("showId")
	seatID := c.QueryParam("seatId")
	if showID == "" || seatID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showId and seatId are required"})
	}
	view, err := h.Engine.Snapshot(c.Request().Context(), showID, seatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seat"})
	}
	return c.JSON(http.StatusOK, view)
}

// Hold handles POST /api/seats/hold.  The body must carry showId,
// seatId and the holder's display name.  On success the response
// carries the bookingId and holdId for later confirmation.
func (h *SeatHandler) Hold(c echo.Context) error {
	var body struct {
		ShowID string `json:"showId"`
		SeatID string `json:"seatId"`
		Name   string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ShowID == "" || body.SeatID == "" || body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showId, seatId, and name are required"})
	}
	res, err := h.Engine.Hold(c.Request().Context(), body.ShowID, body.SeatID, body.Name)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		case errors.Is(err, engine.ErrInvalidState):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat is not available"})
		case errors.Is(err, store.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat was taken by another request"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to hold seat"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bookingId":     res.BookingID,
		"holdId":        res.HoldID,
		"holdExpiresAt": res.HoldExpiresAt.Format(time.RFC3339),
		"status":        "HELD",
		"heldBy":        res.HeldBy,
	})
}

// Confirm handles POST /api/seats/confirm.  It turns a HELD booking
// into a CONFIRMED one; payment is mocked, so confirmation itself is
// the whole checkout.  A booking whose hold lapsed is reported as
// expired, with the seat already freed again.
func (h *SeatHandler) Confirm(c echo.Context) error {
	var body struct {
		BookingID string `json:"bookingId"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.BookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bookingId is required"})
	}
	booking, err := h.Engine.Confirm(c.Request().Context(), body.BookingID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, engine.ErrExpired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold has expired"})
		case errors.Is(err, engine.ErrInvalidState):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking is not in HELD status"})
		case errors.Is(err, store.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking changed concurrently"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm booking"})
	}
	if h.Publish != nil {
		// Best effort: the publisher logs its own failures.
		_ = h.Publish(c.Request().Context(), queue.BookingConfirmedEvent{
			BookingID:   booking.BookingID,
			ShowID:      booking.ShowID,
			SeatID:      booking.SeatID,
			Name:        booking.Name,
			ConfirmedAt: booking.ConfirmedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Booking confirmed successfully",
		"bookingId": booking.BookingID,
	})
}

// Cancel handles POST /api/seats/cancel.  It releases a HELD seat back
// to the pool and cancels its paired booking if one exists.
func (h *SeatHandler) Cancel(c echo.Context) error {
	var body struct {
		ShowID string `json:"showId"`
		SeatID string `json:"seatId"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ShowID == "" || body.SeatID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showId and seatId are required"})
	}
	if err := h.Engine.Cancel(c.Request().Context(), body.ShowID, body.SeatID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		case errors.Is(err, engine.ErrInvalidState):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat is not in HELD status"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel hold"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Hold cancelled successfully"})
}
