package gateway

import "errors"

// Domain-specific errors for gateway operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrBadRequest is returned when a forward request is missing required
	// fields. Surfaced as a 4.00-class response.
	ErrBadRequest = errors.New("gateway: bad request")

	// ErrNotRegistered is returned when the registry lookup yields no URI.
	// Surfaced as a 4.04-class response.
	ErrNotRegistered = errors.New("gateway: device not registered")

	// ErrUpstream is returned when the forwarded device request fails at
	// the transport level.
	ErrUpstream = errors.New("gateway: upstream request failed")

	// ErrUpstreamRejected is returned when the upstream device answers
	// with a non-success code.
	ErrUpstreamRejected = errors.New("gateway: upstream rejected command")
)
