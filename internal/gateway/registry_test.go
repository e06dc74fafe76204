package gateway

import (
	"os"
	"path/filepath"
	"testing"
)

func testEntries() []Entry {
	return []Entry{
		{
			Port: 5683,
			Path: "hvac/room/room_A1/rack/rack_A1/device/rack_cooling_unit/fan/control",
			Attributes: Attributes{
				ObjectID:     "rack_cooling_unit",
				RoomID:       "room_A1",
				RackID:       "rack_A1",
				ResourceType: "core.a hvac.actuator.fan",
			},
		},
		{
			Port: 5683,
			Path: "hvac/room/room_A1/device/cooling_system_hub/switch/control",
			Attributes: Attributes{
				ObjectID:     "cooling_system_hub",
				RoomID:       "room_A1",
				ResourceType: "core.a hvac.actuator.switch",
			},
		},
	}
}

func TestRegistry_RecordAndFind(t *testing.T) {
	reg, err := NewRegistry(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if err := reg.Record("10.0.0.7", testEntries()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	uri, ok := reg.FindURI("rack_cooling_unit", "room_A1", "rack_A1")
	if !ok {
		t.Fatal("FindURI() miss for registered entry")
	}
	want := "coap://10.0.0.7:5683/hvac/room/room_A1/rack/rack_A1/device/rack_cooling_unit/fan/control"
	if uri != want {
		t.Errorf("FindURI() = %q, want %q", uri, want)
	}
}

func TestRegistry_RackAbsenceMatches(t *testing.T) {
	reg, _ := NewRegistry(filepath.Join(t.TempDir(), "registry.json"))
	reg.Record("10.0.0.7", testEntries())

	// Empty rack_id matches only the entry without one
	uri, ok := reg.FindURI("cooling_system_hub", "room_A1", "")
	if !ok {
		t.Fatal("FindURI() miss for room-scoped entry")
	}
	if uri != "coap://10.0.0.7:5683/hvac/room/room_A1/device/cooling_system_hub/switch/control" {
		t.Errorf("FindURI() = %q", uri)
	}

	// A rack-qualified lookup must not match the room-scoped entry
	if _, ok := reg.FindURI("cooling_system_hub", "room_A1", "rack_A1"); ok {
		t.Error("rack-qualified lookup matched a room-scoped entry")
	}
}

func TestRegistry_Miss(t *testing.T) {
	reg, _ := NewRegistry(filepath.Join(t.TempDir(), "registry.json"))
	reg.Record("10.0.0.7", testEntries())

	if _, ok := reg.FindURI("ghost", "room_A1", ""); ok {
		t.Error("FindURI() matched an unregistered object")
	}
}

func TestRegistry_PersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	reg, _ := NewRegistry(path)
	if err := reg.Record("10.0.0.7", testEntries()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	reloaded, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry() reload error = %v", err)
	}

	uri, ok := reloaded.FindURI("rack_cooling_unit", "room_A1", "rack_A1")
	if !ok {
		t.Fatal("FindURI() miss after reload")
	}
	if uri == "" {
		t.Error("empty URI after reload")
	}
	if len(reloaded.Entries("10.0.0.7")) != 2 {
		t.Errorf("reloaded %d entries, want 2", len(reloaded.Entries("10.0.0.7")))
	}
}

func TestRegistry_RediscoveryIdempotent(t *testing.T) {
	reg, _ := NewRegistry(filepath.Join(t.TempDir(), "registry.json"))

	reg.Record("10.0.0.7", testEntries())
	reg.Record("10.0.0.7", testEntries())

	if got := len(reg.Entries("10.0.0.7")); got != 2 {
		t.Errorf("entries after re-record = %d, want 2 (replaced, not appended)", got)
	}
}

func TestRegistry_MissingSnapshotStartsEmpty(t *testing.T) {
	reg, err := NewRegistry(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if len(reg.Hosts()) != 0 {
		t.Errorf("hosts = %d for missing snapshot, want 0", len(reg.Hosts()))
	}
}

func TestRegistry_MalformedSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte("{broken"), 0600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := NewRegistry(path); err == nil {
		t.Error("NewRegistry() expected error for malformed snapshot")
	}
}
