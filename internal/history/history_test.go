package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/coldaisle/hvac-edge/internal/message"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), 5000)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testControl(eventType string, ts int64) message.Control {
	return message.Control{
		Type:      "iot:actuator:fan",
		EventType: eventType,
		EventData: map[string]any{"status": "ON", "speed": float64(80)},
		Timestamp: ts,
		Metadata: message.Metadata{
			RoomID:     "room_A1",
			RackID:     "rack_A1",
			ObjectID:   "rack_cooling_unit",
			ResourceID: "rack_cooling_unit_fan",
		},
	}
}

func TestStore_RecordAndQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, testControl("MANUAL", 1000)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Record(ctx, testControl("POLICY_APPLIED", 2000)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	events, err := store.RoomEvents(ctx, "room_A1", 0)
	if err != nil {
		t.Fatalf("RoomEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("RoomEvents() = %d events, want 2", len(events))
	}

	// Newest first
	if events[0].EventType != "POLICY_APPLIED" || events[1].EventType != "MANUAL" {
		t.Errorf("order = %s, %s; want POLICY_APPLIED, MANUAL", events[0].EventType, events[1].EventType)
	}
	if events[0].EventData["status"] != "ON" {
		t.Errorf("EventData = %v", events[0].EventData)
	}
	if events[0].ID == "" || events[0].ID == events[1].ID {
		t.Error("events must carry distinct IDs")
	}
}

func TestStore_ResourceEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.Record(ctx, testControl("MANUAL", 1000))

	other := testControl("MANUAL", 1500)
	other.Metadata.ResourceID = "rack_cooling_unit_pump"
	store.Record(ctx, other)

	events, err := store.ResourceEvents(ctx, "rack_cooling_unit_fan", 0)
	if err != nil {
		t.Fatalf("ResourceEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("ResourceEvents() = %d events, want 1", len(events))
	}
}

func TestStore_LimitClamped(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		store.Record(ctx, testControl("MANUAL", int64(i)))
	}

	events, err := store.RoomEvents(ctx, "room_A1", 0)
	if err != nil {
		t.Fatalf("RoomEvents() error = %v", err)
	}
	if len(events) != defaultEventLimit {
		t.Errorf("default limit returned %d events, want %d", len(events), defaultEventLimit)
	}

	events, _ = store.RoomEvents(ctx, "room_A1", 10000)
	if len(events) > maxEventLimit {
		t.Errorf("limit clamp returned %d events, max %d", len(events), maxEventLimit)
	}
}

func TestStore_RecordMissingResource(t *testing.T) {
	store := openTestStore(t)

	bad := testControl("MANUAL", 1000)
	bad.Metadata.ResourceID = ""
	if err := store.Record(context.Background(), bad); err == nil {
		t.Error("Record() expected error for missing resource id")
	}
}

func TestStore_Prune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := testControl("MANUAL", time.Now().Add(-48*time.Hour).UnixMilli())
	recent := testControl("MANUAL", time.Now().UnixMilli())
	store.Record(ctx, old)
	store.Record(ctx, recent)

	deleted, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Prune() deleted %d, want 1", deleted)
	}

	events, _ := store.RoomEvents(ctx, "room_A1", 0)
	if len(events) != 1 {
		t.Errorf("%d events after prune, want 1", len(events))
	}
}

func TestStore_PruneInvalidDuration(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Prune(context.Background(), 0); err == nil {
		t.Error("Prune(0) expected error")
	}
}
