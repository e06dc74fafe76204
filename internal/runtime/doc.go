// Package runtime wires the device tree to the bus. It registers one
// listener per resource that encodes the event as a telemetry or control
// message and publishes it on the resource's canonical topic.
package runtime
