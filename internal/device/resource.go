package device

// Kind discriminates the two resource variants.
type Kind string

const (
	KindSensor   Kind = "sensor"
	KindActuator Kind = "actuator"
)

// Resource is a unit of sensing or actuation owned by a smart object.
// Implemented by *Sensor and *Actuator.
type Resource interface {
	// ID returns the resource identifier, unique within its owning smart object.
	ID() string

	// TypeTag returns the domain type tag, e.g. "iot:sensor:temperature".
	TypeTag() string

	// Kind reports whether the resource is a sensor or an actuator.
	Kind() Kind

	// Describe returns a snapshot of the resource suitable for the admin API.
	Describe() map[string]any
}

// Logger is the minimal logging interface the device runtime needs.
// Satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
