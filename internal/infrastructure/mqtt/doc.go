// Package mqtt provides MQTT client connectivity for the HVAC edge agent.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The edge agent uses MQTT as the message bus between the device runtime
// and the per-room consumers. Devices publish telemetry and control events
// under a room-rooted topic hierarchy; the collector subscribes per room
// with wildcard patterns. The broker decouples producers from consumers.
//
//	Device Runtime → MQTT Broker → Room Collectors
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all telemetry for a room
//	err = client.Subscribe(mqtt.Topics{}.RoomTelemetryPattern("room_A1"), 0,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a telemetry reading
//	topic := mqtt.Topics{}.RoomTelemetry("room_A1", "environment_monitor", "environment_monitor_temp")
//	client.Publish(topic, payload, 0, false)
package mqtt
