// Package store provides the in-memory registries for targets and deployment
// runs. State lives for the process lifetime only and resets on restart.
package store

import "errors"

// Common store errors
var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition is returned when a run is asked to move backwards
	// or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid state transition")
)
