// Package collector implements the per-room telemetry consumer. Each
// collector subscribes to its room's telemetry and control topic patterns,
// hands every telemetry sample to the policy engine, and accumulates a
// batch that the synchroniser uploads to the cloud endpoint.
//
// Delivery-path handlers only enqueue on a bounded channel; all decoding
// and batching happens on one worker goroutine per room, which keeps
// per-room processing in arrival order.
package collector
