package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
site:
  id: "test-site"
  rooms_config: "/tmp/rooms_config.json"
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
gateway:
  host: "127.0.0.1"
  port: 5683
  registry_path: "/tmp/registry.json"
collector:
  cloud_url: "http://cloud.example.com/api"
  sync_interval: 30
api:
  host: "0.0.0.0"
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.Collector.CloudURL != "http://cloud.example.com/api" {
		t.Errorf("Collector.CloudURL = %q, want %q", cfg.Collector.CloudURL, "http://cloud.example.com/api")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing rooms config",
			mutate:  func(c *Config) { c.Site.RoomsConfig = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid gateway port",
			mutate:  func(c *Config) { c.Gateway.Port = 0 },
			wantErr: true,
		},
		{
			name:    "missing registry path",
			mutate:  func(c *Config) { c.Gateway.RegistryPath = "" },
			wantErr: true,
		},
		{
			name:    "missing cloud URL",
			mutate:  func(c *Config) { c.Collector.CloudURL = "" },
			wantErr: true,
		},
		{
			name:    "zero sync interval",
			mutate:  func(c *Config) { c.Collector.SyncInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero queue size",
			mutate:  func(c *Config) { c.Collector.QueueSize = 0 },
			wantErr: true,
		},
		{
			name:    "missing policy document path",
			mutate:  func(c *Config) { c.Policy.DocumentPath = "" },
			wantErr: true,
		},
		{
			name:    "history enabled without path",
			mutate:  func(c *Config) { c.History.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid API port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name: "influxdb enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
				c.InfluxDB.Token = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		Collector: CollectorConfig{
			SyncInterval: 30,
			SyncTimeout:  10,
		},
		Gateway: GatewayConfig{
			RequestTimeout: 5,
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}

	if got := cfg.GetSyncInterval().Seconds(); got != 30 {
		t.Errorf("GetSyncInterval() = %v, want 30", got)
	}

	if got := cfg.GetSyncTimeout().Seconds(); got != 10 {
		t.Errorf("GetSyncTimeout() = %v, want 10", got)
	}

	if got := cfg.GetGatewayTimeout().Seconds(); got != 5 {
		t.Errorf("GetGatewayTimeout() = %v, want 5", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("HVACEDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("HVACEDGE_MQTT_USERNAME", "testuser")
	t.Setenv("HVACEDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("HVACEDGE_CLOUD_URL", "http://cloud.example.com/api")
	t.Setenv("HVACEDGE_GATEWAY_HOST", "10.0.0.5")
	t.Setenv("HVACEDGE_GATEWAY_PORT", "5684")
	t.Setenv("HVACEDGE_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.Collector.CloudURL != "http://cloud.example.com/api" {
		t.Errorf("Collector.CloudURL = %q, want %q", cfg.Collector.CloudURL, "http://cloud.example.com/api")
	}

	if cfg.Gateway.Host != "10.0.0.5" {
		t.Errorf("Gateway.Host = %q, want %q", cfg.Gateway.Host, "10.0.0.5")
	}

	if cfg.Gateway.Port != 5684 {
		t.Errorf("Gateway.Port = %d, want 5684", cfg.Gateway.Port)
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestApplyEnvOverrides_InvalidPort(t *testing.T) {
	cfg := defaultConfig()
	want := cfg.Gateway.Port

	t.Setenv("HVACEDGE_GATEWAY_PORT", "not-a-number")
	applyEnvOverrides(cfg)

	if cfg.Gateway.Port != want {
		t.Errorf("Gateway.Port = %d, want unchanged %d", cfg.Gateway.Port, want)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("defaultConfig should have non-empty Site.ID")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.Gateway.Port != 5683 {
		t.Errorf("defaultConfig Gateway.Port = %d, want 5683", cfg.Gateway.Port)
	}

	if cfg.Collector.SyncInterval != 30 {
		t.Errorf("defaultConfig Collector.SyncInterval = %d, want 30", cfg.Collector.SyncInterval)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}
}
