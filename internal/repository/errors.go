// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios with errors.Is. For example, ErrCapacityExceeded signals
// that a hold was denied because the tournament is full, while
// ErrInvalidState signals a conditional status transition whose
// precondition no longer holds (double check-in, refund of a void
// ticket, completing a reservation that already expired).
package repository

import "errors"

// ErrNotFound is returned when no row matches the requested entity.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrCapacityExceeded is returned when a hold cannot be created because
// registered + actively reserved slots have reached the tournament's
// maximum capacity. Handlers should translate this into an HTTP 409.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrInvalidState is returned when a status transition is attempted
// from a state that does not permit it. The row exists but its current
// status fails the transition precondition. Handlers should translate
// this into an HTTP 409 response.
var ErrInvalidState = errors.New("invalid state")

// ErrConflict is returned when an insert collides with existing state,
// such as a duplicate ticket code. Callers usually retry with a fresh
// value or surface an HTTP 409.
var ErrConflict = errors.New("conflict")
