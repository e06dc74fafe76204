// Package api implements the administrative HTTP API and WebSocket server
// for the HVAC edge agent.
//
// This package provides:
//   - REST endpoints for the room/rack/device tree and rack status
//   - Policy CRUD per room and per rack-scoped device
//   - A proxy endpoint that forwards device commands into the CoAP gateway
//   - Control-event history queries
//   - WebSocket hub for real-time telemetry and control broadcasts
//
// All endpoints live under /hvac/api. The surface is a thin wrapper: it
// validates and routes, the domain packages do the work.
package api
