// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rezamoradi/show-seat-booking/internal/handler"
)

// RegisterRoutes wires the health check and the seat reservation routes
// onto the provided Echo instance.  Any middleware passed in mutating
// is applied only to the state-changing POST routes; reads stay cheap
// and unthrottled.
func RegisterRoutes(e *echo.Echo, h *handler.SeatHandler, mutating ...echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	g := e.Group("/api/seats")
	g.GET("", h.List)
	g.GET("/snapshot", h.Snapshot)
	g.POST("/seed", h.Seed, mutating...)
	g.POST("/hold", h.Hold, mutating...)
	g.POST("/confirm", h.Confirm, mutating...)
	g.POST("/cancel", h.Cancel, mutating...)
}
