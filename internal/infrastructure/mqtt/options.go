package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/coldaisle/hvac-edge/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the wait for the initial broker session.
	connectTimeout = 10 * time.Second

	// publishTimeout bounds the wait for broker acknowledgements on
	// publish, subscribe and unsubscribe.
	publishTimeout = 5 * time.Second

	// disconnectQuiesceMs is the window paho gives in-flight operations
	// when disconnecting, in milliseconds.
	disconnectQuiesceMs = 1000

	// keepAlive is the session keepalive interval.
	keepAlive = 60 * time.Second

	// maxQoS is the highest QoS level MQTT defines.
	maxQoS = 2
)

// clientOptions translates the agent's MQTT configuration into paho
// options: broker URL, credentials, clean session, automatic reconnect
// with the configured backoff, and TLS 1.2+ when enabled.
func clientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session; subscription state lives in the client and is
	// replayed on reconnect, not parked on the broker.
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	return opts
}

// statusPayload builds the JSON body of a system status announcement.
// Collectors and dashboards key off the retained value on the status topic
// to decide whether the agent is alive.
//
// Parameters:
//   - status: "online" or "offline"
//   - reason: Cause for an offline transition; empty omits the field
//   - clientID: Identity of the announcing agent
func statusPayload(status, reason, clientID string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	if reason == "" {
		return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`, status, clientID, ts)
	}
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`, status, clientID, reason, ts)
}
