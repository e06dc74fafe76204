package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/coldaisle/hvac-edge/internal/message"
)

// WriteTelemetry mirrors a telemetry reading into the local InfluxDB.
//
// This is the primary method for recording sensor data. The write is
// non-blocking; points are batched and sent asynchronously.
//
// Points land in the "telemetry" measurement, tagged with the full
// device identity so Grafana can slice by room, rack, object or
// resource. The point timestamp is the reading's own timestamp, not
// the time of the write.
//
// Parameters:
//   - t: The telemetry message as observed on the bus
//
// Example:
//
//	client.WriteTelemetry(msg) // msg.Type = "iot:sensor:temperature"
func (c *Client) WriteTelemetry(t message.Telemetry) {
	if !c.IsConnected() {
		return
	}

	fields := telemetryFields(t.DataValue)
	if len(fields) == 0 {
		return
	}

	tags := map[string]string{
		"type":        t.Type,
		"room_id":     t.Metadata.RoomID,
		"object_id":   t.Metadata.ObjectID,
		"resource_id": t.Metadata.ResourceID,
	}
	if t.Metadata.RackID != "" {
		tags["rack_id"] = t.Metadata.RackID
	}

	point := write.NewPoint("telemetry", tags, fields, time.UnixMilli(t.Timestamp))
	c.writeAPI.WritePoint(point)
}

// telemetryFields converts a telemetry data value into InfluxDB fields.
//
// Numeric values become the "value" field. Structured readings (maps)
// contribute one field per numeric entry; non-numeric entries are
// stored as strings. Readings with no usable fields are dropped.
func telemetryFields(value any) map[string]interface{} {
	if f, ok := toFloat(value); ok {
		return map[string]interface{}{"value": f}
	}

	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	fields := make(map[string]interface{}, len(m))
	for k, v := range m {
		if f, ok := toFloat(v); ok {
			fields[k] = f
			continue
		}
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}
	return fields
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// WriteControlEvent mirrors an actuator state-change event.
//
// Used for correlating device behaviour with telemetry trends, e.g.
// overlaying fan speed changes on a temperature graph.
//
// Parameters:
//   - ctrl: The control message as observed on the bus
func (c *Client) WriteControlEvent(ctrl message.Control) {
	if !c.IsConnected() {
		return
	}

	fields := telemetryFields(ctrl.EventData)
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["event_count"] = int64(1)

	tags := map[string]string{
		"type":        ctrl.Type,
		"event_type":  ctrl.EventType,
		"room_id":     ctrl.Metadata.RoomID,
		"object_id":   ctrl.Metadata.ObjectID,
		"resource_id": ctrl.Metadata.ResourceID,
	}
	if ctrl.Metadata.RackID != "" {
		tags["rack_id"] = ctrl.Metadata.RackID
	}

	point := write.NewPoint("control_events", tags, fields, time.UnixMilli(ctrl.Timestamp))
	c.writeAPI.WritePoint(point)
}
