package device

import "fmt"

// SmartObject is a named device owning a small set of resources. Room-scoped
// objects have an empty RackID.
//
// Lifecycle: Start marks every actuator operational and launches every
// sensor's periodic task; Stop reverses both. Listener registration happens
// between construction and Start (see the runtime package).
type SmartObject struct {
	ObjectID string
	RoomID   string
	RackID   string

	resources map[string]Resource
	logger    Logger
}

// NewSmartObject creates an empty smart object.
//
// Parameters:
//   - objectID: Device name, e.g. "rack_cooling_unit"
//   - roomID: Owning room
//   - rackID: Owning rack; empty for room-scoped objects
//   - logger: Destination for lifecycle diagnostics; nil discards
func NewSmartObject(objectID, roomID, rackID string, logger Logger) *SmartObject {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SmartObject{
		ObjectID:  objectID,
		RoomID:    roomID,
		RackID:    rackID,
		resources: make(map[string]Resource),
		logger:    logger,
	}
}

// AddResource registers a resource under its map name (e.g. "temperature",
// "fan"). The name is also the path segment of the control resource the
// gateway exposes for actuators.
func (so *SmartObject) AddResource(name string, r Resource) {
	so.resources[name] = r
}

// Resource returns the resource registered under name.
//
// Returns:
//   - Resource: The resource
//   - error: ErrResourceNotFound when no resource has that name
func (so *SmartObject) Resource(name string) (Resource, error) {
	r, ok := so.resources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrResourceNotFound, so.ObjectID, name)
	}
	return r, nil
}

// Resources returns the full resource map. Callers must not mutate it.
func (so *SmartObject) Resources() map[string]Resource {
	return so.resources
}

// Sensors returns the sensors keyed by their map name.
func (so *SmartObject) Sensors() map[string]*Sensor {
	sensors := make(map[string]*Sensor)
	for name, r := range so.resources {
		if s, ok := r.(*Sensor); ok {
			sensors[name] = s
		}
	}
	return sensors
}

// Actuators returns the actuators keyed by their map name.
func (so *SmartObject) Actuators() map[string]*Actuator {
	actuators := make(map[string]*Actuator)
	for name, r := range so.resources {
		if a, ok := r.(*Actuator); ok {
			actuators[name] = a
		}
	}
	return actuators
}

// Start marks every actuator operational and launches every sensor's
// periodic task.
func (so *SmartObject) Start() {
	for _, a := range so.Actuators() {
		a.SetOperational(true)
	}
	for _, s := range so.Sensors() {
		s.StartPeriodic()
	}
	so.logger.Info("smart object started", "object_id", so.ObjectID, "room_id", so.RoomID, "rack_id", so.RackID)
}

// Stop cancels every sensor's periodic task and marks every actuator
// non-operational.
func (so *SmartObject) Stop() {
	for _, s := range so.Sensors() {
		s.StopPeriodic()
	}
	for _, a := range so.Actuators() {
		a.SetOperational(false)
	}
	so.logger.Info("smart object stopped", "object_id", so.ObjectID, "room_id", so.RoomID, "rack_id", so.RackID)
}

// Describe returns a snapshot of the smart object for the admin API.
func (so *SmartObject) Describe() map[string]any {
	resources := make(map[string]any, len(so.resources))
	for name, r := range so.resources {
		resources[name] = r.Describe()
	}
	desc := map[string]any{
		"id":        so.ObjectID,
		"room_id":   so.RoomID,
		"resources": resources,
	}
	if so.RackID != "" {
		desc["rack_id"] = so.RackID
	}
	return desc
}
