package models

import "errors"

// Error taxonomy shared by the engine components. All of these are returned
// synchronously to the caller; background sweep failures are retried and
// logged instead.
var (
	// ErrInvalidListing marks malformed listing input. Fail fast, no retry.
	ErrInvalidListing = errors.New("invalid listing")

	// ErrInsufficientCapacity means the requested servings exceed what the
	// offer has left. The client should re-browse, not retry.
	ErrInsufficientCapacity = errors.New("insufficient offer capacity")

	// ErrConflict means the listing was lost to a concurrent actor or went
	// inactive between browse and action.
	ErrConflict = errors.New("listing no longer available")

	// ErrInvalidTransition marks a disallowed order status move. Always a bug
	// in the caller.
	ErrInvalidTransition = errors.New("invalid order status transition")

	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("actor does not own this record")
	ErrAlreadyTerminal = errors.New("listing already in a terminal state")
)
