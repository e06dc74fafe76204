package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/plgd-dev/go-coap/v3/message/codes"

	"github.com/coldaisle/hvac-edge/internal/device"
	"github.com/coldaisle/hvac-edge/internal/gateway"
	"github.com/coldaisle/hvac-edge/internal/history"
	"github.com/coldaisle/hvac-edge/internal/infrastructure/config"
	"github.com/coldaisle/hvac-edge/internal/infrastructure/logging"
	"github.com/coldaisle/hvac-edge/internal/message"
	"github.com/coldaisle/hvac-edge/internal/policy"
	"github.com/coldaisle/hvac-edge/internal/topology"
)

// stubForwarder records forward requests and replies with a canned response.
type stubForwarder struct {
	resp *gateway.ForwardResponse
	err  error
	last policy.ForwardRequest
}

func (f *stubForwarder) Exchange(_ context.Context, req policy.ForwardRequest) (*gateway.ForwardResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type testEnv struct {
	srv     *httptest.Server
	server  *Server
	room    *topology.Room
	rack    *topology.Rack
	engine  *policy.Engine
	forward *stubForwarder
	events  *history.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	room := topology.NewRoom("room_A1", "hall 1")
	room.AddSmartObject(device.NewEnvironmentMonitor("room_A1", nil))
	rack := topology.NewRack("rack_A1", "air_cooled")
	rack.AddSmartObject(device.NewRackCoolingUnit("room_A1", "rack_A1", nil))
	room.AddRack(rack)

	store := policy.NewStore(filepath.Join(t.TempDir(), "policy.json"))
	eng, err := policy.NewEngine("room_A1", store, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	events, err := history.Open(filepath.Join(t.TempDir(), "history.db"), 5000)
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	t.Cleanup(func() { events.Close() })

	fwd := &stubForwarder{resp: &gateway.ForwardResponse{
		Code:    codes.Changed,
		Payload: []byte(`{"status":"ON"}`),
	}}

	server, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:  logging.Default(),
		Rooms:   []*topology.Room{room},
		Engines: map[string]*policy.Engine{"room_A1": eng},
		Forward: fwd,
		History: events,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	server.Hub()

	srv := httptest.NewServer(server.buildRouter())
	t.Cleanup(srv.Close)

	return &testEnv{
		srv:     srv,
		server:  server,
		room:    room,
		rack:    rack,
		engine:  eng,
		forward: fwd,
		events:  events,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	//nolint:errcheck // Empty bodies are fine for some responses
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func roomPolicyBody() map[string]any {
	return map[string]any{
		"type":        policy.TypeRoom,
		"room_id":     "room_A1",
		"object_id":   "environment_monitor",
		"resource_id": "environment_monitor_temp",
		"sensor_type": "iot:sensor:temperature",
		"condition":   map[string]any{"operator": ">", "value": 30.0},
		"action": map[string]any{
			"object_id": "cooling_system_hub",
			"command":   map[string]any{"status": "ON", "level": 3},
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────
// Device tree
// ─────────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/hvac/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status ok", body)
	}
}

func TestListRooms(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/hvac/api/rooms", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestGetRoom(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/hvac/api/room/room_A1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["room_id"] != "room_A1" {
		t.Errorf("room_id = %v", body["room_id"])
	}

	resp, _ = env.do(t, http.MethodGet, "/hvac/api/room/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown room status = %d, want 404", resp.StatusCode)
	}
}

func TestGetRack(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/hvac/api/room/room_A1/rack/rack_A1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["rack_id"] != "rack_A1" {
		t.Errorf("rack_id = %v", body["rack_id"])
	}

	resp, _ = env.do(t, http.MethodGet, "/hvac/api/room/room_A1/rack/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown rack status = %d, want 404", resp.StatusCode)
	}
}

func TestSetRackStatus(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPut, "/hvac/api/room/room_A1/rack/rack_A1/status",
		map[string]any{"status": "OFF"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "OFF" {
		t.Errorf("rack status in body = %v, want OFF", body["status"])
	}
	if env.rack.Status() != device.StatusOff {
		t.Errorf("rack.Status() = %q, want OFF", env.rack.Status())
	}

	resp, _ = env.do(t, http.MethodPut, "/hvac/api/room/room_A1/rack/rack_A1/status",
		map[string]any{"status": "SIDEWAYS"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid status = %d, want 400", resp.StatusCode)
	}
}

// ─────────────────────────────────────────────────────────────────────────
// Policies
// ─────────────────────────────────────────────────────────────────────────

func TestRoomPolicyLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// Create
	resp, created := env.do(t, http.MethodPost, "/hvac/api/room/room_A1/policies", roomPolicyBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %v, want 201", resp.StatusCode, created)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("created policy has no id")
	}

	// List
	resp, body := env.do(t, http.MethodGet, "/hvac/api/room/room_A1/policies", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	policies, _ := body["policies"].([]any)
	if len(policies) != 1 {
		t.Fatalf("policies = %d, want 1", len(policies))
	}

	// Update
	update := roomPolicyBody()
	update["id"] = id
	update["condition"] = map[string]any{"operator": ">=", "value": 35.0}
	resp, updated := env.do(t, http.MethodPut, "/hvac/api/room/room_A1/policies", update)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %v, want 200", resp.StatusCode, updated)
	}

	// Delete
	resp, _ = env.do(t, http.MethodDelete, "/hvac/api/room/room_A1/policies?id="+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
	if got := len(env.engine.Policies()); got != 0 {
		t.Errorf("engine holds %d policies after delete, want 0", got)
	}
}

func TestRoomPolicyValidationSurfacesAs400(t *testing.T) {
	env := newTestEnv(t)

	bad := roomPolicyBody()
	bad["condition"] = map[string]any{"operator": "~", "value": 30.0}
	resp, _ := env.do(t, http.MethodPost, "/hvac/api/room/room_A1/policies", bad)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPolicyUnknownIDIs404(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodDelete, "/hvac/api/room/room_A1/policies?id=ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete status = %d, want 404", resp.StatusCode)
	}

	update := roomPolicyBody()
	update["id"] = "ghost"
	resp, _ = env.do(t, http.MethodPut, "/hvac/api/room/room_A1/policies", update)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("update status = %d, want 404", resp.StatusCode)
	}
}

func TestDeletePolicyRequiresID(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodDelete, "/hvac/api/room/room_A1/policies", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateDevicePolicyTakesIdentityFromURL(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"resource_id": "rack_cooling_unit_temp",
		"sensor_type": "iot:sensor:temperature",
		"condition":   map[string]any{"operator": ">", "value": 35.0},
		"action":      map[string]any{"command": map[string]any{"status": "ON", "speed": 80}},
	}
	resp, created := env.do(t, http.MethodPost,
		"/hvac/api/room/room_A1/rack/rack_A1/device/rack_cooling_unit/policies", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %v, want 201", resp.StatusCode, created)
	}
	if created["type"] != policy.TypeSmartObject {
		t.Errorf("type = %v, want smart_object", created["type"])
	}
	if created["rack_id"] != "rack_A1" || created["object_id"] != "rack_cooling_unit" {
		t.Errorf("identity = %v/%v, want rack_A1/rack_cooling_unit", created["rack_id"], created["object_id"])
	}

	// The device listing filters to that object
	resp, listed := env.do(t, http.MethodGet,
		"/hvac/api/room/room_A1/rack/rack_A1/device/rack_cooling_unit/policies", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	policies, _ := listed["policies"].([]any)
	if len(policies) != 1 {
		t.Errorf("policies = %d, want 1", len(policies))
	}
}

func TestCreatePolicyRoutesByBodyRoom(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/hvac/api/policies", roomPolicyBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	unknown := roomPolicyBody()
	unknown["room_id"] = "room_Z9"
	resp, _ = env.do(t, http.MethodPost, "/hvac/api/policies", unknown)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown room status = %d, want 404", resp.StatusCode)
	}
}

// ─────────────────────────────────────────────────────────────────────────
// Proxy forward
// ─────────────────────────────────────────────────────────────────────────

func TestProxyForward(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/hvac/api/proxy/forward", map[string]any{
		"object_id": "rack_cooling_unit",
		"room_id":   "room_A1",
		"rack_id":   "rack_A1",
		"command":   map[string]any{"status": "ON", "speed": 80},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ON" {
		t.Errorf("relayed body = %v", body)
	}
	if env.forward.last.ObjectID != "rack_cooling_unit" {
		t.Errorf("forwarded object = %q", env.forward.last.ObjectID)
	}
}

func TestProxyForwardMissingFields(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/hvac/api/proxy/forward", map[string]any{
		"room_id": "room_A1",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestProxyForwardMapsUpstreamCodes(t *testing.T) {
	env := newTestEnv(t)

	env.forward.resp = &gateway.ForwardResponse{
		Code:    codes.NotFound,
		Payload: []byte(`{"error":"no endpoint registered"}`),
	}
	resp, _ := env.do(t, http.MethodPost, "/hvac/api/proxy/forward", map[string]any{
		"object_id": "ghost",
		"room_id":   "room_A1",
		"command":   map[string]any{"status": "ON"},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestProxyForwardTransportErrorIs502(t *testing.T) {
	env := newTestEnv(t)

	env.forward.err = fmt.Errorf("%w: gateway unreachable", gateway.ErrUpstream)
	resp, _ := env.do(t, http.MethodPost, "/hvac/api/proxy/forward", map[string]any{
		"object_id": "rack_cooling_unit",
		"room_id":   "room_A1",
		"command":   map[string]any{"status": "ON"},
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

// ─────────────────────────────────────────────────────────────────────────
// Events
// ─────────────────────────────────────────────────────────────────────────

func TestRoomEvents(t *testing.T) {
	env := newTestEnv(t)

	err := env.events.Record(context.Background(), message.Control{
		Type:      "iot:actuator:fan",
		EventType: "MANUAL",
		EventData: map[string]any{"status": "ON"},
		Timestamp: time.Now().UnixMilli(),
		Metadata: message.Metadata{
			RoomID:     "room_A1",
			RackID:     "rack_A1",
			ObjectID:   "rack_cooling_unit",
			ResourceID: "rack_cooling_unit_fan",
		},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	resp, body := env.do(t, http.MethodGet, "/hvac/api/room/room_A1/events", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}

	resp, _ = env.do(t, http.MethodGet, "/hvac/api/room/room_A1/events?limit=banana", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, "/hvac/api/room/ghost/events", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown room status = %d, want 404", resp.StatusCode)
	}
}

// ─────────────────────────────────────────────────────────────────────────
// WebSocket
// ─────────────────────────────────────────────────────────────────────────

func TestWebSocketSubscribeAndBroadcast(t *testing.T) {
	env := newTestEnv(t)

	wsURL := strings.Replace(env.srv.URL, "http", "ws", 1) + "/hvac/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{ChannelTelemetry}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var ack WSMessage
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("ReadJSON() ack error = %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Fatalf("ack type = %q, want response", ack.Type)
	}

	env.server.Hub().Broadcast(ChannelTelemetry, map[string]any{"data_value": 24.5})

	var event WSMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() event error = %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != ChannelTelemetry {
		t.Errorf("event = %+v, want telemetry event", event)
	}
}
