// Package device implements the device runtime: sensors with periodic
// simulated sampling, actuators with validated command application and
// state transitions, and smart objects grouping related resources.
//
// # Design
//
// Resource is a small sum over two concrete variants, *Sensor and
// *Actuator. Actuator behaviour differences (fan, pump, cooling levels,
// switch) are a tag switch, not a type hierarchy. Smart objects own their
// resources and drive the lifecycle: Start grants actuators operationality
// and launches sensor sampling; Stop reverses both.
//
// # Notifications
//
// Each resource carries an ordered listener list. Sensor listeners fire on
// the sensor's own sampling goroutine, actuator listeners fire on the
// command caller's goroutine after the state mutation commits. Per-resource
// notification order is therefore the mutation order; across resources no
// order is guaranteed.
package device
