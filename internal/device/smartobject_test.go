package device

import (
	"errors"
	"testing"
	"time"
)

func TestSmartObject_StartStop(t *testing.T) {
	cfg := TemperatureSensorConfig
	cfg.Delay = time.Hour

	so := NewSmartObject(ObjectRackCoolingUnit, "room_A1", "rack_A1", nil)
	so.AddResource("temperature", NewSensor("rack_cooling_unit_temp", cfg, nil))
	so.AddResource("fan", NewActuator("rack_cooling_unit_fan", ActuatorFan, nil))

	fan := so.Actuators()["fan"]
	if fan.IsOperational() {
		t.Fatal("actuator should start non-operational")
	}

	so.Start()
	if !fan.IsOperational() {
		t.Error("Start() should mark actuators operational")
	}

	so.Stop()
	if fan.IsOperational() {
		t.Error("Stop() should mark actuators non-operational")
	}

	if err := fan.ApplyCommand(map[string]any{"status": "ON"}, ""); !errors.Is(err, ErrNotOperational) {
		t.Errorf("command after Stop() error = %v, want ErrNotOperational", err)
	}
}

func TestSmartObject_Resource(t *testing.T) {
	so := NewEnvironmentMonitor("room_A1", nil)

	r, err := so.Resource("temperature")
	if err != nil {
		t.Fatalf("Resource() error = %v", err)
	}
	if r.ID() != "environment_monitor_temp" {
		t.Errorf("ID() = %q, want environment_monitor_temp", r.ID())
	}

	if _, err := so.Resource("ghost"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Resource(ghost) error = %v, want ErrResourceNotFound", err)
	}
}

func TestCatalog_CompanionResources(t *testing.T) {
	tests := []struct {
		name      string
		build     func() *SmartObject
		sensors   []string
		actuators []string
	}{
		{
			name:      "environment monitor",
			build:     func() *SmartObject { return NewEnvironmentMonitor("room_A1", nil) },
			sensors:   []string{"temperature", "humidity"},
			actuators: nil,
		},
		{
			name:      "cooling system hub",
			build:     func() *SmartObject { return NewCoolingSystemHub("room_A1", nil) },
			sensors:   nil,
			actuators: []string{"cooling_levels"},
		},
		{
			name:      "rack cooling unit",
			build:     func() *SmartObject { return NewRackCoolingUnit("room_A1", "rack_A1", nil) },
			sensors:   []string{"temperature"},
			actuators: []string{"fan"},
		},
		{
			name:      "energy metering unit",
			build:     func() *SmartObject { return NewEnergyMeteringUnit("room_A1", "rack_A1", nil) },
			sensors:   []string{"energy"},
			actuators: []string{"switch"},
		},
		{
			name:      "water loop controller",
			build:     func() *SmartObject { return NewWaterLoopController("room_A1", "rack_A1", nil) },
			sensors:   []string{"pressure"},
			actuators: []string{"pump"},
		},
		{
			name:      "airflow manager",
			build:     func() *SmartObject { return NewAirflowManager("room_A1", "rack_A1", nil) },
			sensors:   []string{"air_speed"},
			actuators: []string{"cooling_levels"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			so := tt.build()

			sensors := so.Sensors()
			for _, name := range tt.sensors {
				if _, ok := sensors[name]; !ok {
					t.Errorf("missing sensor %q", name)
				}
			}
			if len(sensors) != len(tt.sensors) {
				t.Errorf("sensor count = %d, want %d", len(sensors), len(tt.sensors))
			}

			actuators := so.Actuators()
			for _, name := range tt.actuators {
				if _, ok := actuators[name]; !ok {
					t.Errorf("missing actuator %q", name)
				}
			}
			if len(actuators) != len(tt.actuators) {
				t.Errorf("actuator count = %d, want %d", len(actuators), len(tt.actuators))
			}
		})
	}
}

func TestNewCatalogObject_Unknown(t *testing.T) {
	if so := NewCatalogObject("quantum_chiller", "room_A1", "", nil); so != nil {
		t.Error("unknown catalogue name should return nil")
	}
}

func TestSmartObject_Describe(t *testing.T) {
	so := NewRackCoolingUnit("room_A1", "rack_A1", nil)

	desc := so.Describe()
	if desc["id"] != ObjectRackCoolingUnit {
		t.Errorf("id = %v, want %v", desc["id"], ObjectRackCoolingUnit)
	}
	if desc["rack_id"] != "rack_A1" {
		t.Errorf("rack_id = %v, want rack_A1", desc["rack_id"])
	}

	resources, ok := desc["resources"].(map[string]any)
	if !ok || len(resources) != 2 {
		t.Fatalf("resources = %v, want 2 entries", desc["resources"])
	}
}

func TestSmartObject_Describe_OmitsEmptyRackID(t *testing.T) {
	so := NewEnvironmentMonitor("room_A1", nil)

	if _, present := so.Describe()["rack_id"]; present {
		t.Error("room-scoped object should omit rack_id")
	}
}
