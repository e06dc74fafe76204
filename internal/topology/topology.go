package topology

import (
	"fmt"
	"sync"

	"github.com/coldaisle/hvac-edge/internal/device"
)

// Rack cooling variants. The variant selects the rack's default companion
// devices.
const (
	RackAirCooled   = "air_cooled"
	RackWaterCooled = "water_cooled"
)

// Rack owns a keyed map of smart objects and carries a coarse ON/OFF
// status gating whether commands propagate to the contained objects.
type Rack struct {
	RackID   string
	RackType string

	mu      sync.RWMutex
	status  string
	objects map[string]*device.SmartObject
}

// NewRack creates an empty rack with status ON.
func NewRack(rackID, rackType string) *Rack {
	return &Rack{
		RackID:   rackID,
		RackType: rackType,
		status:   device.StatusOn,
		objects:  make(map[string]*device.SmartObject),
	}
}

// AddSmartObject registers a smart object under its object ID.
func (r *Rack) AddSmartObject(so *device.SmartObject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[so.ObjectID] = so
}

// SmartObject returns the smart object with the given ID.
func (r *Rack) SmartObject(objectID string) (*device.SmartObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	so, ok := r.objects[objectID]
	return so, ok
}

// SmartObjects returns a snapshot of the rack's smart objects.
func (r *Rack) SmartObjects() []*device.SmartObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	objects := make([]*device.SmartObject, 0, len(r.objects))
	for _, so := range r.objects {
		objects = append(objects, so)
	}
	return objects
}

// Status returns the rack's coarse status.
func (r *Rack) Status() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// SetStatus switches the rack ON or OFF. Turning a rack OFF withdraws
// operationality from every contained actuator, so commands addressed to
// them are refused until the rack is switched back ON.
//
// Returns:
//   - error: device.ErrInvalidStatus when status is not ON or OFF
func (r *Rack) SetStatus(status string) error {
	if status != device.StatusOn && status != device.StatusOff {
		return fmt.Errorf("%w: %q", device.ErrInvalidStatus, status)
	}

	r.mu.Lock()
	r.status = status
	objects := make([]*device.SmartObject, 0, len(r.objects))
	for _, so := range r.objects {
		objects = append(objects, so)
	}
	r.mu.Unlock()

	operational := status == device.StatusOn
	for _, so := range objects {
		for _, a := range so.Actuators() {
			a.SetOperational(operational)
		}
	}
	return nil
}

// Describe returns a snapshot of the rack for the admin API.
func (r *Rack) Describe() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	objects := make(map[string]any, len(r.objects))
	for id, so := range r.objects {
		objects[id] = so.Describe()
	}
	return map[string]any{
		"rack_id":       r.RackID,
		"type":          r.RackType,
		"status":        r.status,
		"smart_objects": objects,
	}
}

// Room owns a keyed map of smart objects and a keyed map of racks.
type Room struct {
	RoomID   string
	Location string

	mu      sync.RWMutex
	objects map[string]*device.SmartObject
	racks   map[string]*Rack
}

// NewRoom creates an empty room.
func NewRoom(roomID, location string) *Room {
	return &Room{
		RoomID:   roomID,
		Location: location,
		objects:  make(map[string]*device.SmartObject),
		racks:    make(map[string]*Rack),
	}
}

// AddSmartObject registers a room-scoped smart object.
func (rm *Room) AddSmartObject(so *device.SmartObject) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.objects[so.ObjectID] = so
}

// AddRack registers a rack.
func (rm *Room) AddRack(rack *Rack) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.racks[rack.RackID] = rack
}

// SmartObject returns the room-scoped smart object with the given ID.
func (rm *Room) SmartObject(objectID string) (*device.SmartObject, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	so, ok := rm.objects[objectID]
	return so, ok
}

// Rack returns the rack with the given ID.
func (rm *Room) Rack(rackID string) (*Rack, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	rack, ok := rm.racks[rackID]
	return rack, ok
}

// Racks returns a snapshot of the room's racks.
func (rm *Room) Racks() []*Rack {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	racks := make([]*Rack, 0, len(rm.racks))
	for _, rack := range rm.racks {
		racks = append(racks, rack)
	}
	return racks
}

// AllSmartObjects returns every smart object in the room, both room-scoped
// and rack-scoped.
func (rm *Room) AllSmartObjects() []*device.SmartObject {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	objects := make([]*device.SmartObject, 0, len(rm.objects))
	for _, so := range rm.objects {
		objects = append(objects, so)
	}
	for _, rack := range rm.racks {
		objects = append(objects, rack.SmartObjects()...)
	}
	return objects
}

// Describe returns a snapshot of the room for the admin API.
func (rm *Room) Describe() map[string]any {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	objects := make(map[string]any, len(rm.objects))
	for id, so := range rm.objects {
		objects[id] = so.Describe()
	}
	racks := make(map[string]any, len(rm.racks))
	for id, rack := range rm.racks {
		racks[id] = rack.Describe()
	}
	return map[string]any{
		"room_id":       rm.RoomID,
		"location":      rm.Location,
		"smart_objects": objects,
		"racks":         racks,
	}
}

// Start starts every smart object in the room.
func (rm *Room) Start() {
	for _, so := range rm.AllSmartObjects() {
		so.Start()
	}
}

// Stop stops every smart object in the room.
func (rm *Room) Stop() {
	for _, so := range rm.AllSmartObjects() {
		so.Stop()
	}
}
