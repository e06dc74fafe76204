package device

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ActuatorKind selects the state vocabulary and validation rules of an
// actuator.
type ActuatorKind string

const (
	ActuatorFan           ActuatorKind = "fan"
	ActuatorPump          ActuatorKind = "pump"
	ActuatorCoolingLevels ActuatorKind = "cooling_levels"
	ActuatorSwitch        ActuatorKind = "switch"
)

// Magnitude ranges per actuator kind.
const (
	MinSpeed = 0
	MaxSpeed = 100
	MinLevel = 0
	MaxLevel = 5
)

// Status values accepted by every actuator.
const (
	StatusOn  = "ON"
	StatusOff = "OFF"
)

// ActuatorListener is invoked after each successful state change with the
// actuator, the event type that caused it, and a snapshot of the new state.
type ActuatorListener func(a *Actuator, eventType string, state map[string]any)

// Actuator is an ON/OFF device with an optional magnitude (speed for
// fan/pump, level for cooling). Commands are validated against the kind's
// vocabulary and applied atomically with respect to concurrent readers.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Actuator struct {
	resourceID string
	kind       ActuatorKind
	typeTag    string
	logger     Logger

	mu sync.Mutex
	// notifyMu serialises the apply-then-notify sequence so listeners
	// observe state snapshots in application order. It is never held while
	// waiting for mu from a listener, so callbacks may read actuator state.
	notifyMu    sync.Mutex
	operational bool
	status      string
	speed       int
	targetSpeed int
	level       int
	lastUpdated int64
	listeners   []ActuatorListener
}

// NewActuator creates an actuator of the given kind in state (OFF, zeroed,
// non-operational). Operationality is granted by the smart-object lifecycle.
//
// Parameters:
//   - resourceID: Identifier unique within the owning smart object
//   - kind: Vocabulary and validation variant
//   - logger: Destination for command diagnostics; nil discards
//
// Returns:
//   - *Actuator: Actuator ready to be started
func NewActuator(resourceID string, kind ActuatorKind, logger Logger) *Actuator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Actuator{
		resourceID: resourceID,
		kind:       kind,
		typeTag:    "iot:actuator:" + string(kind),
		logger:     logger,
		status:     StatusOff,
	}
}

// ID returns the resource identifier.
func (a *Actuator) ID() string { return a.resourceID }

// TypeTag returns the domain type tag.
func (a *Actuator) TypeTag() string { return a.typeTag }

// Kind reports KindActuator.
func (a *Actuator) Kind() Kind { return KindActuator }

// ActuatorKind returns the vocabulary variant.
func (a *Actuator) ActuatorKind() ActuatorKind { return a.kind }

// SetOperational toggles whether the actuator accepts commands.
func (a *Actuator) SetOperational(operational bool) {
	a.mu.Lock()
	a.operational = operational
	a.mu.Unlock()
	a.logger.Info("actuator operational status changed", "resource_id", a.resourceID, "operational", operational)
}

// IsOperational reports whether the actuator accepts commands.
func (a *Actuator) IsOperational() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.operational
}

// AddListener registers a callback invoked after each successful state
// change. Must be called before the actuator starts receiving commands.
func (a *Actuator) AddListener(listener ActuatorListener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, listener)
}

// ApplyCommand validates and applies a command map.
//
// Validation order:
//  1. The actuator must be operational.
//  2. Every command key must belong to the kind's vocabulary.
//  3. A status value must be ON or OFF (case-insensitive).
//  4. A magnitude must be within its documented range.
//  5. A positive magnitude while OFF is rejected unless the same command
//     also carries a status. When the command carries status OFF, the
//     status wins and the magnitude is ignored.
//
// Parameters:
//   - cmd: Command map, e.g. {"status": "ON", "speed": 80}
//   - eventType: Event classification carried to listeners; empty means MANUAL
//
// Returns:
//   - error: nil on success; ErrNotOperational, ErrInvalidCommand,
//     ErrInvalidStatus, or ErrInvalidRange on rejection. Rejected commands
//     leave the state unchanged.
func (a *Actuator) ApplyCommand(cmd map[string]any, eventType string) error {
	if eventType == "" {
		eventType = "MANUAL"
	}

	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()

	if !a.operational {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotOperational, a.resourceID)
	}

	if err := a.validateLocked(cmd); err != nil {
		a.mu.Unlock()
		return err
	}

	// All checks passed; apply status first, then magnitude.
	if raw, ok := cmd["status"]; ok {
		newStatus := strings.ToUpper(raw.(string))
		if newStatus != a.status {
			a.status = newStatus
			a.onStatusChangeLocked(newStatus)
		}
	}

	if key := a.magnitudeKey(); key != "" {
		if raw, ok := cmd[key]; ok && a.status == StatusOn {
			value, _ := toInt(raw)
			a.setMagnitudeLocked(value)
		}
	}

	a.lastUpdated = time.Now().UnixMilli()
	state := a.stateLocked()
	listeners := make([]ActuatorListener, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	a.logger.Info("actuator command applied", "resource_id", a.resourceID, "event_type", eventType, "state", state)

	for _, listener := range listeners {
		listener(a, eventType, state)
	}

	return nil
}

// validateLocked checks a command without mutating state. Callers hold a.mu.
func (a *Actuator) validateLocked(cmd map[string]any) error {
	if len(cmd) == 0 {
		return fmt.Errorf("%w: empty command", ErrInvalidCommand)
	}

	magnitudeKey := a.magnitudeKey()
	for key := range cmd {
		if key == "status" || (magnitudeKey != "" && key == magnitudeKey) {
			continue
		}
		return fmt.Errorf("%w: unknown key %q for %s actuator", ErrInvalidCommand, key, a.kind)
	}

	hasStatus := false
	if raw, ok := cmd["status"]; ok {
		str, isString := raw.(string)
		if !isString {
			return fmt.Errorf("%w: status must be a string", ErrInvalidStatus)
		}
		upper := strings.ToUpper(str)
		if upper != StatusOn && upper != StatusOff {
			return fmt.Errorf("%w: %q (must be ON or OFF)", ErrInvalidStatus, str)
		}
		hasStatus = true
	}

	if magnitudeKey != "" {
		if raw, ok := cmd[magnitudeKey]; ok {
			value, numeric := toInt(raw)
			if !numeric {
				return fmt.Errorf("%w: %s must be numeric", ErrInvalidCommand, magnitudeKey)
			}
			if err := a.checkRange(value); err != nil {
				return err
			}
			if value > 0 && a.status == StatusOff && !hasStatus {
				return fmt.Errorf("%w: cannot set %s while %s is OFF", ErrInvalidCommand, magnitudeKey, a.kind)
			}
		}
	}

	return nil
}

// onStatusChangeLocked applies kind-specific behaviour on a status
// transition. Turning OFF zeroes all magnitudes. Callers hold a.mu.
func (a *Actuator) onStatusChangeLocked(newStatus string) {
	if newStatus != StatusOff {
		return
	}
	switch a.kind {
	case ActuatorFan, ActuatorPump:
		a.speed = 0
		a.targetSpeed = 0
	case ActuatorCoolingLevels:
		a.level = 0
	}
}

// setMagnitudeLocked stores a validated magnitude. Callers hold a.mu.
func (a *Actuator) setMagnitudeLocked(value int) {
	switch a.kind {
	case ActuatorFan, ActuatorPump:
		a.speed = value
		a.targetSpeed = value
	case ActuatorCoolingLevels:
		a.level = value
	}
}

// magnitudeKey returns the command key for the kind's magnitude, or ""
// for plain switches.
func (a *Actuator) magnitudeKey() string {
	switch a.kind {
	case ActuatorFan, ActuatorPump:
		return "speed"
	case ActuatorCoolingLevels:
		return "level"
	default:
		return ""
	}
}

// checkRange validates a magnitude against the kind's documented range.
func (a *Actuator) checkRange(value int) error {
	switch a.kind {
	case ActuatorFan, ActuatorPump:
		if value < MinSpeed || value > MaxSpeed {
			return fmt.Errorf("%w: speed must be between %d and %d, got %d", ErrInvalidRange, MinSpeed, MaxSpeed, value)
		}
	case ActuatorCoolingLevels:
		if value < MinLevel || value > MaxLevel {
			return fmt.Errorf("%w: level must be between %d and %d, got %d", ErrInvalidRange, MinLevel, MaxLevel, value)
		}
	}
	return nil
}

// Reset forces the actuator to (OFF, zeroed). Idempotent: a second call
// makes no observable state change and fires no notification.
func (a *Actuator) Reset() {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()

	if a.status == StatusOff {
		a.mu.Unlock()
		return
	}

	a.status = StatusOff
	a.onStatusChangeLocked(StatusOff)
	a.lastUpdated = time.Now().UnixMilli()

	state := a.stateLocked()
	listeners := make([]ActuatorListener, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	a.logger.Info("actuator reset", "resource_id", a.resourceID)

	for _, listener := range listeners {
		listener(a, "STATE_CHANGE", state)
	}
}

// CurrentState returns a snapshot of the actuator state, including the
// identity and range fields the control protocol exposes.
func (a *Actuator) CurrentState() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

// stateLocked builds the state snapshot. Callers hold a.mu.
func (a *Actuator) stateLocked() map[string]any {
	state := map[string]any{
		"resource_id":    a.resourceID,
		"type":           a.typeTag,
		"is_operational": a.operational,
		"status":         a.status,
		"last_updated":   a.lastUpdated,
	}
	switch a.kind {
	case ActuatorFan, ActuatorPump:
		state["speed"] = a.speed
		state["target_speed"] = a.targetSpeed
		state["max_speed"] = MaxSpeed
	case ActuatorCoolingLevels:
		state["level"] = a.level
		state["min_level"] = MinLevel
		state["max_level"] = MaxLevel
	}
	return state
}

// Describe returns a snapshot of the actuator for the admin API.
func (a *Actuator) Describe() map[string]any {
	state := a.CurrentState()
	state["kind"] = string(KindActuator)
	return state
}

// toInt coerces the numeric representations a JSON decoder may produce.
func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
