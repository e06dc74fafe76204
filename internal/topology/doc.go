// Package topology models the installation hierarchy: rooms containing
// room-scoped smart objects and racks, racks containing rack-scoped smart
// objects. The builder constructs the whole tree from rooms_config.json,
// fitting every room and rack with its default companion devices.
package topology
