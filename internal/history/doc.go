// Package history persists control events in SQLite, giving operators an
// audit trail of actuator state changes: what changed, when, and whether a
// human or a policy drove it.
package history
