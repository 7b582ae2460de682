// Package store defines the storage contracts the reservation engine is
// built against, together with the sentinel errors shared by every
// backend. These sentinels let the engine and the HTTP layer
// distinguish business failures from infrastructure failures with
// errors.Is, regardless of which backend produced them.
package store

import "errors"

// ErrNotFound is returned when a seat, booking or show does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by Transition when the entity's current
// status does not match the expected status, i.e. a compare-and-swap
// lost a race. Callers must surface or retry it, never swallow it.
var ErrConflict = errors.New("conflict")

// ErrAlreadyExists is returned when creating an entity whose identity
// is already taken, such as provisioning a show twice.
var ErrAlreadyExists = errors.New("already exists")

// ErrInvalidTransition is returned when a mutation tries to move an
// entity along an edge its state machine does not allow, such as
// booking a seat that was never held or reopening a terminal booking.
// The store applies nothing when it rejects a transition.
var ErrInvalidTransition = errors.New("invalid transition")
