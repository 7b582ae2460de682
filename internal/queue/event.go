// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking is successfully
// confirmed.  It carries enough information for downstream consumers to
// log or trigger analytics without querying the primary store.
type BookingConfirmedEvent struct {
	BookingID   string `json:"booking_id"`
	ShowID      string `json:"show_id"`
	SeatID      string `json:"seat_id"`
	Name        string `json:"name"`
	ConfirmedAt string `json:"confirmed_at"`
}
