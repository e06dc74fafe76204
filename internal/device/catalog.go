package device

// Smart object catalogue names as used in rooms_config.json.
const (
	ObjectEnvironmentMonitor  = "environment_monitor"
	ObjectCoolingSystemHub    = "cooling_system_hub"
	ObjectRackCoolingUnit     = "rack_cooling_unit"
	ObjectEnergyMeteringUnit  = "energy_metering_unit"
	ObjectWaterLoopController = "water_loop_controller"
	ObjectAirflowManager      = "airflow_manager"
)

// Sensor variants. Ranges and precision follow the simulated installation.
var (
	TemperatureSensorConfig = SensorConfig{
		TypeTag:   "iot:sensor:temperature",
		Unit:      "Celsius",
		Min:       25.0,
		Max:       45.0,
		Precision: 2,
	}
	HumiditySensorConfig = SensorConfig{
		TypeTag:   "iot:sensor:humidity",
		Unit:      "%",
		Min:       30.0,
		Max:       70.0,
		Precision: 1,
	}
	PressureSensorConfig = SensorConfig{
		TypeTag:   "iot:sensor:pressure",
		Unit:      "bar",
		Min:       1.0,
		Max:       3.5,
		Precision: 2,
	}
	AirSpeedSensorConfig = SensorConfig{
		TypeTag:   "iot:sensor:air_speed",
		Unit:      "m/s",
		Min:       0.0,
		Max:       10.0,
		Precision: 1,
	}
	EnergySensorConfig = SensorConfig{
		TypeTag:   "iot:sensor:energy",
		Unit:      "kWh",
		Min:       0.5,
		Max:       5.0,
		Precision: 3,
	}
)

// NewEnvironmentMonitor builds the room-scoped temperature and humidity
// monitor.
func NewEnvironmentMonitor(roomID string, logger Logger) *SmartObject {
	so := NewSmartObject(ObjectEnvironmentMonitor, roomID, "", logger)
	so.AddResource("temperature", NewSensor(ObjectEnvironmentMonitor+"_temp", TemperatureSensorConfig, logger))
	so.AddResource("humidity", NewSensor(ObjectEnvironmentMonitor+"_humidity", HumiditySensorConfig, logger))
	return so
}

// NewCoolingSystemHub builds the room-scoped cooling level controller.
func NewCoolingSystemHub(roomID string, logger Logger) *SmartObject {
	so := NewSmartObject(ObjectCoolingSystemHub, roomID, "", logger)
	so.AddResource("cooling_levels", NewActuator(ObjectCoolingSystemHub+"_cooling_levels", ActuatorCoolingLevels, logger))
	return so
}

// NewRackCoolingUnit builds the rack-scoped temperature sensor and fan pair.
func NewRackCoolingUnit(roomID, rackID string, logger Logger) *SmartObject {
	so := NewSmartObject(ObjectRackCoolingUnit, roomID, rackID, logger)
	so.AddResource("temperature", NewSensor(ObjectRackCoolingUnit+"_temp", TemperatureSensorConfig, logger))
	so.AddResource("fan", NewActuator(ObjectRackCoolingUnit+"_fan", ActuatorFan, logger))
	return so
}

// NewEnergyMeteringUnit builds the rack-scoped energy meter and cutoff
// switch pair.
func NewEnergyMeteringUnit(roomID, rackID string, logger Logger) *SmartObject {
	so := NewSmartObject(ObjectEnergyMeteringUnit, roomID, rackID, logger)
	so.AddResource("energy", NewSensor(ObjectEnergyMeteringUnit+"_energy", EnergySensorConfig, logger))
	so.AddResource("switch", NewActuator(ObjectEnergyMeteringUnit+"_switch", ActuatorSwitch, logger))
	return so
}

// NewWaterLoopController builds the rack-scoped pressure sensor and pump
// pair fitted to water-cooled racks.
func NewWaterLoopController(roomID, rackID string, logger Logger) *SmartObject {
	so := NewSmartObject(ObjectWaterLoopController, roomID, rackID, logger)
	so.AddResource("pressure", NewSensor(ObjectWaterLoopController+"_pressure", PressureSensorConfig, logger))
	so.AddResource("pump", NewActuator(ObjectWaterLoopController+"_pump", ActuatorPump, logger))
	return so
}

// NewAirflowManager builds the rack-scoped air speed sensor and cooling
// level pair fitted to air-cooled racks.
func NewAirflowManager(roomID, rackID string, logger Logger) *SmartObject {
	so := NewSmartObject(ObjectAirflowManager, roomID, rackID, logger)
	so.AddResource("air_speed", NewSensor(ObjectAirflowManager+"_air_speed", AirSpeedSensorConfig, logger))
	so.AddResource("cooling_levels", NewActuator(ObjectAirflowManager+"_cooling_levels", ActuatorCoolingLevels, logger))
	return so
}

// NewCatalogObject builds a smart object by its catalogue name. Room-scoped
// objects ignore rackID.
//
// Returns:
//   - *SmartObject: The built object, or nil when the name is unknown
func NewCatalogObject(name, roomID, rackID string, logger Logger) *SmartObject {
	switch name {
	case ObjectEnvironmentMonitor:
		return NewEnvironmentMonitor(roomID, logger)
	case ObjectCoolingSystemHub:
		return NewCoolingSystemHub(roomID, logger)
	case ObjectRackCoolingUnit:
		return NewRackCoolingUnit(roomID, rackID, logger)
	case ObjectEnergyMeteringUnit:
		return NewEnergyMeteringUnit(roomID, rackID, logger)
	case ObjectWaterLoopController:
		return NewWaterLoopController(roomID, rackID, logger)
	case ObjectAirflowManager:
		return NewAirflowManager(roomID, rackID, logger)
	default:
		return nil
	}
}
