// Package gateway implements the CoAP side of the edge agent: a server
// exposing /.well-known/core, a forward endpoint, and per-actuator control
// resources; a discoverer that harvests remote resource catalogs; and a
// registry mapping logical device identity to physical URIs.
//
// The forward endpoint is the pivot between the logical and physical
// worlds: it accepts (object_id, room_id, rack_id, command), resolves the
// registered URI, and relays the device's response verbatim.
package gateway
