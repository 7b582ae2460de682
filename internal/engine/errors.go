package engine

import "errors"

// Sentinel errors for the engine's business failures.  Storage-level
// failures (missing entities, lost compare-and-swap races, duplicate
// identities) surface as the store package's sentinels; these two cover
// the conditions only the engine can detect.

// ErrInvalidState is returned when an operation is not valid for the
// entity's current status: holding a seat that is not AVAILABLE,
// confirming a booking that is not HELD, cancelling a seat that is not
// HELD.
var ErrInvalidState = errors.New("invalid state")

// ErrExpired is returned by Confirm when the hold window has passed.
// Discovering the expiry also cancels the booking and frees the seat.
var ErrExpired = errors.New("hold expired")
