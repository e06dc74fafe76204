package policy

import "errors"

// Domain-specific errors for policy operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrValidation is returned when a policy fails structural validation.
	// Surfaced to the admin API as 400.
	ErrValidation = errors.New("policy: validation failed")

	// ErrNotFound is returned when no policy has the requested ID.
	ErrNotFound = errors.New("policy: not found")

	// ErrInvalidOperator is returned for an operator outside the allowed set.
	ErrInvalidOperator = errors.New("policy: invalid operator")

	// ErrWrongRoom is returned when a policy's room does not match the engine's.
	ErrWrongRoom = errors.New("policy: room mismatch")
)
