package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried by control messages.
const (
	EventManual        = "MANUAL"
	EventPolicyApplied = "POLICY_APPLIED"
	EventStateChange   = "STATE_CHANGE"
)

// Metadata identifies the origin of a message within the installation
// topology. RackID is empty for room-scoped smart objects.
type Metadata struct {
	RoomID     string `json:"room_id"`
	RackID     string `json:"rack_id,omitempty"`
	ObjectID   string `json:"object_id"`
	ResourceID string `json:"resource_id"`
}

// Telemetry is a sampled sensor value with identifying metadata.
//
// Timestamp is milliseconds since the Unix epoch.
type Telemetry struct {
	Type      string   `json:"type"`
	DataValue any      `json:"data_value"`
	Timestamp int64    `json:"timestamp"`
	Metadata  Metadata `json:"metadata"`
}

// Control notifies a state-change event for an actuator. It does not
// modify state itself; state changes travel over the request/response
// gateway. EventData carries the actuator state snapshot after the event.
type Control struct {
	Type      string         `json:"type"`
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
	Timestamp int64          `json:"timestamp"`
	Metadata  Metadata       `json:"metadata"`
}

// NewTelemetry creates a telemetry message stamped with the current time.
//
// Parameters:
//   - typeTag: Domain type tag of the producing resource (e.g. "iot:sensor:temperature")
//   - value: The sampled reading
//   - meta: Topology identity of the producing resource
//
// Returns:
//   - Telemetry: Message ready for encoding
func NewTelemetry(typeTag string, value any, meta Metadata) Telemetry {
	return Telemetry{
		Type:      typeTag,
		DataValue: value,
		Timestamp: time.Now().UnixMilli(),
		Metadata:  meta,
	}
}

// NewControl creates a control message stamped with the current time.
//
// Parameters:
//   - typeTag: Domain type tag of the producing resource
//   - eventType: Event classification (MANUAL, POLICY_APPLIED, STATE_CHANGE)
//   - eventData: Actuator state snapshot after the event
//   - meta: Topology identity of the producing resource
//
// Returns:
//   - Control: Message ready for encoding
func NewControl(typeTag, eventType string, eventData map[string]any, meta Metadata) Control {
	return Control{
		Type:      typeTag,
		EventType: eventType,
		EventData: eventData,
		Timestamp: time.Now().UnixMilli(),
		Metadata:  meta,
	}
}

// Encode serialises the telemetry message as JSON.
func (t Telemetry) Encode() ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding telemetry: %w", err)
	}
	return data, nil
}

// Encode serialises the control message as JSON.
func (c Control) Encode() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding control: %w", err)
	}
	return data, nil
}

// DecodeTelemetry parses a telemetry message from JSON.
func DecodeTelemetry(data []byte) (Telemetry, error) {
	var t Telemetry
	if err := json.Unmarshal(data, &t); err != nil {
		return Telemetry{}, fmt.Errorf("decoding telemetry: %w", err)
	}
	return t, nil
}

// DecodeControl parses a control message from JSON.
func DecodeControl(data []byte) (Control, error) {
	var c Control
	if err := json.Unmarshal(data, &c); err != nil {
		return Control{}, fmt.Errorf("decoding control: %w", err)
	}
	return c, nil
}

// DeepCopy returns an independent copy of the telemetry message.
// The copy shares no mutable state with the original, so consumers
// can hold it across goroutine boundaries safely.
func (t Telemetry) DeepCopy() Telemetry {
	copied := t
	copied.DataValue = deepCopyValue(t.DataValue)
	return copied
}

// DeepCopy returns an independent copy of the control message.
func (c Control) DeepCopy() Control {
	copied := c
	if c.EventData != nil {
		copied.EventData = deepCopyMap(c.EventData)
	}
	return copied
}

// deepCopyMap creates a deep copy of a map, recursively copying nested
// maps and slices.
func deepCopyMap(original map[string]any) map[string]any {
	copied := make(map[string]any, len(original))
	for key, value := range original {
		copied[key] = deepCopyValue(value)
	}
	return copied
}

// deepCopyValue copies a single value, recursing into maps and slices.
func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return deepCopyMap(v)
	case []any:
		copied := make([]any, len(v))
		for i, item := range v {
			copied[i] = deepCopyValue(item)
		}
		return copied
	default:
		// Scalars are immutable
		return v
	}
}
