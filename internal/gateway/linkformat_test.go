package gateway

import (
	"strings"
	"testing"
)

func TestEncodeLinks_CanonicalOrder(t *testing.T) {
	links := []Link{
		{
			Path: "hvac/room/room_A1/rack/rack_A1/device/rack_cooling_unit/fan/control",
			Attributes: map[string]string{
				"object_id": "rack_cooling_unit",
				"rt":        "core.a hvac.actuator.fan",
				"room_id":   "room_A1",
				"if":        "core.a",
				"ct":        "0 50",
				"title":     "Fan Control",
				"rack_id":   "rack_A1",
			},
		},
	}

	got := EncodeLinks(links)
	want := `</hvac/room/room_A1/rack/rack_A1/device/rack_cooling_unit/fan/control>;` +
		`rt="core.a hvac.actuator.fan";if="core.a";ct="0 50";title="Fan Control";` +
		`object_id="rack_cooling_unit";room_id="room_A1";rack_id="rack_A1"`
	if got != want {
		t.Errorf("EncodeLinks() =\n%s\nwant\n%s", got, want)
	}
}

func TestParseLinks_RoundTrip(t *testing.T) {
	links := []Link{
		{
			Path: "hvac/room/room_A1/device/cooling_system_hub/cooling_levels/control",
			Attributes: map[string]string{
				"rt":        "core.a hvac.actuator.cooling_levels",
				"if":        "core.a",
				"ct":        "0 50",
				"title":     "Cooling Levels Control",
				"object_id": "cooling_system_hub",
				"room_id":   "room_A1",
			},
		},
		{
			Path: "proxy/forward",
			Attributes: map[string]string{
				"rt": "hvac.gateway.forward",
				"if": "core.p",
			},
		},
	}

	parsed := ParseLinks(EncodeLinks(links))
	if len(parsed) != 2 {
		t.Fatalf("parsed %d links, want 2", len(parsed))
	}

	if parsed[0].Path != links[0].Path {
		t.Errorf("path = %q, want %q", parsed[0].Path, links[0].Path)
	}
	for key, want := range links[0].Attributes {
		if got := parsed[0].Attributes[key]; got != want {
			t.Errorf("attr %s = %q, want %q", key, got, want)
		}
	}
	if parsed[1].Attributes["rt"] != "hvac.gateway.forward" {
		t.Errorf("second link rt = %q", parsed[1].Attributes["rt"])
	}
}

func TestParseLinks_QuotedComma(t *testing.T) {
	doc := `</a>;title="one, two",</b>;rt="x"`
	links := ParseLinks(doc)
	if len(links) != 2 {
		t.Fatalf("parsed %d links, want 2", len(links))
	}
	if links[0].Attributes["title"] != "one, two" {
		t.Errorf("title = %q, want %q", links[0].Attributes["title"], "one, two")
	}
}

func TestParseLinks_ValuelessAttribute(t *testing.T) {
	links := ParseLinks(`</sensors/temp>;obs;rt="temperature"`)
	if len(links) != 1 {
		t.Fatalf("parsed %d links, want 1", len(links))
	}
	if _, ok := links[0].Attributes["obs"]; !ok {
		t.Error("valueless attribute obs not retained")
	}
}

func TestParseLinks_MalformedEntrySkipped(t *testing.T) {
	links := ParseLinks(`garbage,</good>;rt="x"`)
	if len(links) != 1 {
		t.Fatalf("parsed %d links, want 1 (malformed skipped)", len(links))
	}
	if links[0].Path != "good" {
		t.Errorf("path = %q, want good", links[0].Path)
	}
}

func TestParseLinks_Empty(t *testing.T) {
	if links := ParseLinks(""); len(links) != 0 {
		t.Errorf("parsed %d links from empty document, want 0", len(links))
	}
}

func TestControlTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"fan", "Fan Control"},
		{"cooling_levels", "Cooling Levels Control"},
		{"switch", "Switch Control"},
	}
	for _, tt := range tests {
		if got := controlTitle(tt.in); got != tt.want {
			t.Errorf("controlTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestControlPath(t *testing.T) {
	got := ControlPath("room_A1", "rack_A1", "rack_cooling_unit", "fan")
	want := "hvac/room/room_A1/rack/rack_A1/device/rack_cooling_unit/fan/control"
	if got != want {
		t.Errorf("ControlPath() = %q, want %q", got, want)
	}

	got = ControlPath("room_A1", "", "cooling_system_hub", "switch")
	want = "hvac/room/room_A1/device/cooling_system_hub/switch/control"
	if got != want {
		t.Errorf("ControlPath() room-scoped = %q, want %q", got, want)
	}
}

func TestSplitCoapURI(t *testing.T) {
	addr, path, err := splitCoapURI("coap://127.0.0.1:5683/hvac/room/room_A1/device/x/fan/control")
	if err != nil {
		t.Fatalf("splitCoapURI() error = %v", err)
	}
	if addr != "127.0.0.1:5683" {
		t.Errorf("addr = %q", addr)
	}
	if !strings.HasPrefix(path, "/hvac/room/") {
		t.Errorf("path = %q", path)
	}

	if _, _, err := splitCoapURI("http://x/y"); err == nil {
		t.Error("expected error for non-coap scheme")
	}
	if _, _, err := splitCoapURI("coap://hostonly"); err == nil {
		t.Error("expected error for URI without path")
	}
}
