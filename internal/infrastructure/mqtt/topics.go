package mqtt

import "fmt"

// Topic segments of the HVAC topic hierarchy.
//
// Scheme:
//
//	hvac/room/{room}[/rack/{rack}]/device/{object}/telemetry/{resource}
//	hvac/room/{room}[/rack/{rack}]/device/{object}/control/{resource}
const (
	// TopicBase is the base for all room-rooted topics.
	TopicBase = "hvac/room"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "hvacedge/system"

	topicRack      = "rack"
	topicDevice    = "device"
	topicTelemetry = "telemetry"
	topicControl   = "control"
)

// Topics provides builders for the HVAC MQTT topics. Using these helpers
// keeps topic naming consistent across the codebase; nothing outside this
// package assembles topic strings by hand.
//
//	topics := mqtt.Topics{}
//	t := topics.RackTelemetry("room_A1", "rack_A1", "rack_cooling_unit", "rack_cooling_unit_temp")
//	// Returns: "hvac/room/room_A1/rack/rack_A1/device/rack_cooling_unit/telemetry/rack_cooling_unit_temp"
type Topics struct{}

// ─────────────────────────────────────────────────────────────────────────────
// Publish topics
// ─────────────────────────────────────────────────────────────────────────────

// RoomTelemetry returns the telemetry topic for a room-scoped resource.
//
// Example: hvac/room/room_A1/device/environment_monitor/telemetry/environment_monitor_temp
func (Topics) RoomTelemetry(roomID, objectID, resourceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s", TopicBase, roomID, topicDevice, objectID, topicTelemetry, resourceID)
}

// RoomControl returns the control-event topic for a room-scoped resource.
//
// Example: hvac/room/room_A1/device/cooling_system_hub/control/cooling_system_hub_cooling_levels
func (Topics) RoomControl(roomID, objectID, resourceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s", TopicBase, roomID, topicDevice, objectID, topicControl, resourceID)
}

// RackTelemetry returns the telemetry topic for a rack-scoped resource.
//
// Example: hvac/room/room_A1/rack/rack_A1/device/rack_cooling_unit/telemetry/rack_cooling_unit_temp
func (Topics) RackTelemetry(roomID, rackID, objectID, resourceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s/%s/%s", TopicBase, roomID, topicRack, rackID, topicDevice, objectID, topicTelemetry, resourceID)
}

// RackControl returns the control-event topic for a rack-scoped resource.
//
// Example: hvac/room/room_A1/rack/rack_A1/device/rack_cooling_unit/control/rack_cooling_unit_fan
func (Topics) RackControl(roomID, rackID, objectID, resourceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s/%s/%s", TopicBase, roomID, topicRack, rackID, topicDevice, objectID, topicControl, resourceID)
}

// Telemetry returns the telemetry topic for a resource, rack-scoped when
// rackID is non-empty.
func (t Topics) Telemetry(roomID, rackID, objectID, resourceID string) string {
	if rackID == "" {
		return t.RoomTelemetry(roomID, objectID, resourceID)
	}
	return t.RackTelemetry(roomID, rackID, objectID, resourceID)
}

// Control returns the control-event topic for a resource, rack-scoped when
// rackID is non-empty.
func (t Topics) Control(roomID, rackID, objectID, resourceID string) string {
	if rackID == "" {
		return t.RoomControl(roomID, objectID, resourceID)
	}
	return t.RackControl(roomID, rackID, objectID, resourceID)
}

// ─────────────────────────────────────────────────────────────────────────────
// Wildcard patterns for room consumers
// ─────────────────────────────────────────────────────────────────────────────

// RoomTelemetryPattern matches telemetry from every room-scoped device of a room.
//
// Pattern: hvac/room/{room}/device/+/telemetry/+
func (Topics) RoomTelemetryPattern(roomID string) string {
	return fmt.Sprintf("%s/%s/%s/+/%s/+", TopicBase, roomID, topicDevice, topicTelemetry)
}

// RoomControlPattern matches control events from every room-scoped device of a room.
//
// Pattern: hvac/room/{room}/device/+/control/+
func (Topics) RoomControlPattern(roomID string) string {
	return fmt.Sprintf("%s/%s/%s/+/%s/+", TopicBase, roomID, topicDevice, topicControl)
}

// RackTelemetryPattern matches telemetry from every rack-scoped device of a room.
//
// Pattern: hvac/room/{room}/rack/+/device/+/telemetry/+
func (Topics) RackTelemetryPattern(roomID string) string {
	return fmt.Sprintf("%s/%s/%s/+/%s/+/%s/+", TopicBase, roomID, topicRack, topicDevice, topicTelemetry)
}

// RackControlPattern matches control events from every rack-scoped device of a room.
//
// Pattern: hvac/room/{room}/rack/+/device/+/control/+
func (Topics) RackControlPattern(roomID string) string {
	return fmt.Sprintf("%s/%s/%s/+/%s/+/%s/+", TopicBase, roomID, topicRack, topicDevice, topicControl)
}

// RoomPatterns returns the four patterns a room consumer subscribes to.
func (t Topics) RoomPatterns(roomID string) []string {
	return []string{
		t.RoomTelemetryPattern(roomID),
		t.RoomControlPattern(roomID),
		t.RackTelemetryPattern(roomID),
		t.RackControlPattern(roomID),
	}
}

// AllTopics returns a pattern matching every HVAC topic.
// Use with caution, this receives ALL traffic.
//
// Pattern: hvac/#
func (Topics) AllTopics() string {
	return "hvac/#"
}

// ─────────────────────────────────────────────────────────────────────────────
// System topics
// ─────────────────────────────────────────────────────────────────────────────

// SystemStatus returns the agent status topic.
//
// Example: hvacedge/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// IsTelemetryTopic reports whether a concrete (non-wildcard) topic is a
// telemetry topic.
func IsTelemetryTopic(topic string) bool {
	return topicCategory(topic) == topicTelemetry
}

// IsControlTopic reports whether a concrete (non-wildcard) topic is a
// control topic.
func IsControlTopic(topic string) bool {
	return topicCategory(topic) == topicControl
}

// topicCategory extracts the second-to-last segment of a topic, which in
// the HVAC scheme is the telemetry/control discriminator.
func topicCategory(topic string) string {
	end := -1
	for i := len(topic) - 1; i >= 0; i-- {
		if topic[i] == '/' {
			if end == -1 {
				end = i
				continue
			}
			return topic[i+1 : end]
		}
	}
	return ""
}
