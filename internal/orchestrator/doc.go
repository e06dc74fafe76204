// Package orchestrator wires the edge agent together: it builds the room
// topology, connects the bus, starts the device runtime, one collector and
// policy engine per room, the CoAP gateway, and the admin API, and tears
// them down again in reverse order.
package orchestrator
