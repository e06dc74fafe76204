package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotOperational) {
//	    // handle non-operational actuator
//	}
var (
	// ErrNotOperational is returned when a command reaches an actuator
	// that has not been started or has been stopped.
	ErrNotOperational = errors.New("device: actuator not operational")

	// ErrInvalidCommand is returned when a command contains a key outside
	// the actuator's vocabulary, or sets a magnitude while the actuator is OFF.
	ErrInvalidCommand = errors.New("device: invalid command")

	// ErrInvalidStatus is returned when a status value is not ON or OFF.
	ErrInvalidStatus = errors.New("device: invalid status")

	// ErrInvalidRange is returned when a magnitude is outside its documented range.
	ErrInvalidRange = errors.New("device: value out of range")

	// ErrResourceNotFound is returned when a smart object does not own
	// the named resource.
	ErrResourceNotFound = errors.New("device: resource not found")
)
