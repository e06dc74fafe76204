// Package message defines the wire messages exchanged over the pub/sub
// fabric: telemetry samples from sensors and control events from
// actuators. Encoding is JSON with UTF-8; field order is not significant.
//
// The adapter and collector are the only consumers of the codec; device
// code constructs messages through NewTelemetry and NewControl and never
// touches JSON directly.
package message
