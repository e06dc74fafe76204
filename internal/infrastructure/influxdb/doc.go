// Package influxdb provides the local time-series mirror for the HVAC
// edge agent.
//
// It wraps the official influxdb-client-go v2 library with agent-specific
// patterns for connection management, telemetry writing, and health
// monitoring.
//
// # Purpose
//
// The cloud receives batched telemetry on the sync interval; this mirror
// keeps a high-resolution local copy for:
//   - On-site Grafana dashboards per room and rack
//   - Correlating actuator events with temperature and power trends
//   - Forensics when the cloud link is down
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "coldaisle",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Mirror a telemetry reading
//	client.WriteTelemetry(msg)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
