package policy

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Policy types. A room policy watches a room-scoped resource and names the
// actuator to drive in its action; a smart-object policy watches a
// rack-scoped resource and drives an actuator on the same smart object.
const (
	TypeRoom        = "room"
	TypeSmartObject = "smart_object"
)

// Comparison operators accepted in a condition.
var allowedOperators = map[string]struct{}{
	">": {}, "<": {}, "==": {}, ">=": {}, "<=": {}, "!=": {},
}

// Condition compares a telemetry reading against a threshold.
type Condition struct {
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
}

// Action is the command a matched policy dispatches. ObjectID is only set
// for room policies, which may target a different smart object than the
// one that produced the telemetry.
type Action struct {
	ObjectID string         `json:"object_id,omitempty"`
	Command  map[string]any `json:"command"`
}

// Policy is a rule mapping a telemetry condition to an actuator command.
type Policy struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	RoomID     string    `json:"room_id"`
	RackID     string    `json:"rack_id,omitempty"`
	ObjectID   string    `json:"object_id"`
	ResourceID string    `json:"resource_id"`
	SensorType string    `json:"sensor_type"`
	Condition  Condition `json:"condition"`
	Action     Action    `json:"action"`
}

// Validate checks the per-type required-field set.
//
// Returns:
//   - error: ErrValidation, ErrInvalidOperator, or nil
func (p Policy) Validate() error {
	switch p.Type {
	case TypeRoom, TypeSmartObject:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrValidation, p.Type)
	}

	if p.RoomID == "" {
		return fmt.Errorf("%w: room_id is required", ErrValidation)
	}
	if p.ObjectID == "" {
		return fmt.Errorf("%w: object_id is required", ErrValidation)
	}
	if p.ResourceID == "" {
		return fmt.Errorf("%w: resource_id is required", ErrValidation)
	}
	if p.SensorType == "" {
		return fmt.Errorf("%w: sensor_type is required", ErrValidation)
	}
	if p.Type == TypeSmartObject && p.RackID == "" {
		return fmt.Errorf("%w: rack_id is required for smart_object policies", ErrValidation)
	}
	if p.Type == TypeRoom && p.Action.ObjectID == "" {
		return fmt.Errorf("%w: action.object_id is required for room policies", ErrValidation)
	}

	if _, ok := allowedOperators[p.Condition.Operator]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidOperator, p.Condition.Operator)
	}

	if len(p.Action.Command) == 0 {
		return fmt.Errorf("%w: action.command is required", ErrValidation)
	}
	return nil
}

// compare applies the policy's operator to a reading.
func (c Condition) compare(value float64) bool {
	switch c.Operator {
	case ">":
		return value > c.Value
	case "<":
		return value < c.Value
	case "==":
		return value == c.Value
	case ">=":
		return value >= c.Value
	case "<=":
		return value <= c.Value
	case "!=":
		return value != c.Value
	default:
		return false
	}
}

// toFloat coerces a telemetry data_value into a comparable reading.
func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("data_value %T is not numeric", raw)
	}
}
