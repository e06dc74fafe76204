package runtime

import (
	"github.com/coldaisle/hvac-edge/internal/device"
	"github.com/coldaisle/hvac-edge/internal/infrastructure/mqtt"
	"github.com/coldaisle/hvac-edge/internal/message"
	"github.com/coldaisle/hvac-edge/internal/topology"
)

// Publisher is the outbound half of the bus the runtime needs.
// *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger interface for runtime diagnostics.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Runtime binds device events to bus publishes. For every sensor it registers
// a listener that publishes a telemetry message on each reading; for every
// actuator a listener that publishes a control message on each state change.
//
// Topic and metadata are captured once at bind time. Publish failures are
// logged and dropped, a flaky broker must not stall the sampling loop.
type Runtime struct {
	bus    Publisher
	topics mqtt.Topics
	qos    byte
	logger Logger
}

// New creates a runtime publishing through bus at the given QoS.
//
// Parameters:
//   - bus: Outbound bus client
//   - qos: QoS level for telemetry and control publishes
//   - logger: Destination for publish diagnostics; nil discards
func New(bus Publisher, qos byte, logger Logger) *Runtime {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Runtime{bus: bus, qos: qos, logger: logger}
}

// Bind registers publishing listeners on every resource of every smart
// object in the room. Call before Start so no event is missed.
func (rt *Runtime) Bind(room *topology.Room) {
	for _, so := range room.AllSmartObjects() {
		rt.bindSmartObject(so)
	}
}

func (rt *Runtime) bindSmartObject(so *device.SmartObject) {
	for _, s := range so.Sensors() {
		rt.bindSensor(so, s)
	}
	for _, a := range so.Actuators() {
		rt.bindActuator(so, a)
	}
}

// bindSensor captures topic and metadata once; the listener only encodes
// and publishes.
func (rt *Runtime) bindSensor(so *device.SmartObject, s *device.Sensor) {
	topic := rt.topics.Telemetry(so.RoomID, so.RackID, so.ObjectID, s.ID())
	meta := message.Metadata{
		RoomID:     so.RoomID,
		RackID:     so.RackID,
		ObjectID:   so.ObjectID,
		ResourceID: s.ID(),
	}

	s.AddListener(func(sensor *device.Sensor, value float64) {
		msg := message.NewTelemetry(sensor.TypeTag(), value, meta)
		payload, err := msg.Encode()
		if err != nil {
			rt.logger.Error("telemetry encode failed", "topic", topic, "error", err)
			return
		}
		if err := rt.bus.Publish(topic, payload, rt.qos, false); err != nil {
			rt.logger.Warn("telemetry publish failed", "topic", topic, "error", err)
			return
		}
		rt.logger.Debug("telemetry published", "topic", topic, "value", value)
	})
}

// bindActuator publishes a control message on each state change, carrying
// the event type supplied to ApplyCommand and a snapshot of the new state.
func (rt *Runtime) bindActuator(so *device.SmartObject, a *device.Actuator) {
	topic := rt.topics.Control(so.RoomID, so.RackID, so.ObjectID, a.ID())
	meta := message.Metadata{
		RoomID:     so.RoomID,
		RackID:     so.RackID,
		ObjectID:   so.ObjectID,
		ResourceID: a.ID(),
	}

	a.AddListener(func(actuator *device.Actuator, eventType string, state map[string]any) {
		msg := message.NewControl(actuator.TypeTag(), eventType, state, meta)
		payload, err := msg.Encode()
		if err != nil {
			rt.logger.Error("control encode failed", "topic", topic, "error", err)
			return
		}
		if err := rt.bus.Publish(topic, payload, rt.qos, false); err != nil {
			rt.logger.Warn("control publish failed", "topic", topic, "error", err)
			return
		}
		rt.logger.Debug("control published", "topic", topic, "event_type", eventType)
	})
}

// Start binds every room and then starts it. Binding happens before the
// first sensor tick, so the initial reading is already published.
func (rt *Runtime) Start(rooms []*topology.Room) {
	for _, room := range rooms {
		rt.Bind(room)
		room.Start()
	}
}

// Stop stops every room: sensor tasks cancelled, actuators marked
// non-operational.
func (rt *Runtime) Stop(rooms []*topology.Room) {
	for _, room := range rooms {
		room.Stop()
	}
}
