// Package policy implements the rule engine: loading, mutating, and
// evaluating per-room policies against inbound telemetry, and dispatching
// matched actions to the gateway's forward endpoint.
//
// All engines share one Store over a single JSON document keyed by room.
// A mutation in one room rewrites only that room's entry; other rooms'
// policies survive byte for byte.
package policy
