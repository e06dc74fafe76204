package topology

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/coldaisle/hvac-edge/internal/device"
)

// Domain errors for the topology package.
var (
	// ErrUnsupportedRackType is returned for a rack type outside
	// {air_cooled, water_cooled}.
	ErrUnsupportedRackType = errors.New("topology: unsupported rack type")

	// ErrUnsupportedDeviceType is returned for a device type outside the
	// smart object catalogue.
	ErrUnsupportedDeviceType = errors.New("topology: unsupported device type")
)

// RoomsConfig mirrors rooms_config.json.
type RoomsConfig struct {
	Rooms []RoomConfig `json:"rooms"`
}

// RoomConfig describes one room, its explicit devices, and its racks.
type RoomConfig struct {
	RoomID   string         `json:"room_id"`
	Location string         `json:"location"`
	Devices  []DeviceConfig `json:"devices"`
	Racks    []RackConfig   `json:"racks"`
}

// RackConfig describes one rack. Type selects the default companion
// devices (air_cooled or water_cooled).
type RackConfig struct {
	RackID  string         `json:"rack_id"`
	Type    string         `json:"type"`
	Devices []DeviceConfig `json:"devices"`
}

// DeviceConfig names a smart object type from the catalogue, in the
// CamelCase form used by the config file (e.g. "RackCoolingUnit").
type DeviceConfig struct {
	Type string `json:"type"`
}

// catalogName maps the config file's CamelCase device types onto the
// catalogue names.
var catalogName = map[string]string{
	"EnvironmentMonitor":  device.ObjectEnvironmentMonitor,
	"CoolingSystemHub":    device.ObjectCoolingSystemHub,
	"RackCoolingUnit":     device.ObjectRackCoolingUnit,
	"EnergyMeteringUnit":  device.ObjectEnergyMeteringUnit,
	"WaterLoopController": device.ObjectWaterLoopController,
	"AirflowManager":      device.ObjectAirflowManager,
}

// LoadRoomsConfig reads and parses a rooms_config.json file.
func LoadRoomsConfig(path string) (*RoomsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rooms config: %w", err)
	}

	var cfg RoomsConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing rooms config: %w", err)
	}
	return &cfg, nil
}

// BuildRooms constructs the full topology from a rooms config.
//
// Every room receives an environment monitor and a cooling system hub in
// addition to its configured devices. Every rack receives a rack cooling
// unit and an energy metering unit, plus a water loop controller
// (water_cooled) or an airflow manager (air_cooled).
//
// Parameters:
//   - cfg: Parsed rooms configuration
//   - logger: Propagated to every built device; nil discards
//
// Returns:
//   - []*Room: Built rooms in config order
//   - error: ErrUnsupportedRackType or ErrUnsupportedDeviceType on bad config
func BuildRooms(cfg *RoomsConfig, logger device.Logger) ([]*Room, error) {
	rooms := make([]*Room, 0, len(cfg.Rooms))

	for _, roomCfg := range cfg.Rooms {
		room, err := buildRoom(roomCfg, logger)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// buildRoom constructs one room with its companion and configured devices.
func buildRoom(cfg RoomConfig, logger device.Logger) (*Room, error) {
	room := NewRoom(cfg.RoomID, cfg.Location)

	room.AddSmartObject(device.NewEnvironmentMonitor(cfg.RoomID, logger))
	room.AddSmartObject(device.NewCoolingSystemHub(cfg.RoomID, logger))

	for _, deviceCfg := range cfg.Devices {
		so, err := buildDevice(deviceCfg, cfg.RoomID, "", logger)
		if err != nil {
			return nil, err
		}
		room.AddSmartObject(so)
	}

	for _, rackCfg := range cfg.Racks {
		rack, err := buildRack(rackCfg, cfg.RoomID, logger)
		if err != nil {
			return nil, err
		}
		room.AddRack(rack)
	}
	return room, nil
}

// buildRack constructs one rack with its companion and configured devices.
func buildRack(cfg RackConfig, roomID string, logger device.Logger) (*Rack, error) {
	rackType := cfg.Type
	if rackType == "" {
		rackType = RackAirCooled
	}

	rack := NewRack(cfg.RackID, rackType)
	rack.AddSmartObject(device.NewRackCoolingUnit(roomID, cfg.RackID, logger))
	rack.AddSmartObject(device.NewEnergyMeteringUnit(roomID, cfg.RackID, logger))

	switch rackType {
	case RackWaterCooled:
		rack.AddSmartObject(device.NewWaterLoopController(roomID, cfg.RackID, logger))
	case RackAirCooled:
		rack.AddSmartObject(device.NewAirflowManager(roomID, cfg.RackID, logger))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRackType, rackType)
	}

	for _, deviceCfg := range cfg.Devices {
		so, err := buildDevice(deviceCfg, roomID, cfg.RackID, logger)
		if err != nil {
			return nil, err
		}
		rack.AddSmartObject(so)
	}
	return rack, nil
}

// buildDevice constructs one explicitly configured smart object.
func buildDevice(cfg DeviceConfig, roomID, rackID string, logger device.Logger) (*device.SmartObject, error) {
	name, ok := catalogName[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDeviceType, cfg.Type)
	}
	return device.NewCatalogObject(name, roomID, rackID, logger), nil
}
