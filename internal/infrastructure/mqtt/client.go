package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/coldaisle/hvac-edge/internal/infrastructure/config"
)

// Client is the agent's session on the MQTT fabric that carries all device
// traffic: the runtime publishes sensor readings and actuator events through
// it, and the per-room collectors subscribe to the room wildcard patterns.
//
// Reconnection is delegated to paho. When a session is re-established the
// client replays every tracked subscription and republishes the retained
// online announcement, so collectors keep receiving telemetry across broker
// restarts without any action of their own.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Client struct {
	cfg  config.MQTTConfig
	paho pahomqtt.Client

	mu        sync.RWMutex
	connected bool
	subs      map[string]sub
	onUp      func()
	onDown    func(err error)
	logger    Logger
}

// Logger is the subset of the logging interface the client needs for
// handler diagnostics. Satisfied by logging.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// sub is a tracked subscription, replayed when the session comes back.
type sub struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one raw bus message. Handlers run on paho's
// router goroutines and must hand work off quickly; a blocking handler
// stalls delivery for every subscription. A returned error is logged and
// the message is still acknowledged.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the configured broker and waits for the session.
//
// The session carries a retained status announcement on the system status
// topic: "online" on every (re)connect, "offline" either gracefully from
// Close or through the broker's will mechanism when the agent dies.
//
// Parameters:
//   - cfg: Broker address, credentials, QoS and reconnect policy
//
// Returns:
//   - *Client: Live session ready for publish/subscribe
//   - error: ErrConnectionFailed when no session is established in time
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:  cfg,
		subs: make(map[string]sub),
	}

	opts := clientOptions(cfg)
	opts.SetWill(Topics{}.SystemStatus(), statusPayload("offline", "unexpected_disconnect", cfg.Broker.ClientID), 1, true)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.sessionUp()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.sessionDown(err)
	})

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: no session after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// paho fires the on-connect handler asynchronously; mark the session
	// live here so IsConnected is accurate as soon as Connect returns.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// sessionUp restores agent state after the broker (re)accepts the session:
// tracked subscriptions are replayed and the retained online announcement
// is refreshed, then the connect callback is informed.
func (c *Client) sessionUp() {
	c.mu.Lock()
	c.connected = true
	replay := make(map[string]sub, len(c.subs))
	for topic, s := range c.subs {
		replay[topic] = s
	}
	c.mu.Unlock()

	for topic, s := range replay {
		c.paho.Subscribe(topic, s.qos, c.dispatch(s.handler))
	}

	c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
		statusPayload("online", "", c.cfg.Broker.ClientID))

	c.notifyUp()
}

// sessionDown records the loss and informs the disconnect callback while
// paho retries in the background.
func (c *Client) sessionDown(err error) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.notifyDown(err)
}

// notifyUp invokes the registered connect callback, if any.
func (c *Client) notifyUp() {
	c.mu.RLock()
	cb := c.onUp
	c.mu.RUnlock()
	if cb != nil {
		cb()
	}
}

// notifyDown invokes the registered disconnect callback, if any.
func (c *Client) notifyDown(err error) {
	c.mu.RLock()
	cb := c.onDown
	c.mu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

// SetOnConnect registers a callback fired whenever a session is
// established, including after automatic reconnects. The orchestrator uses
// it to refresh gateway discovery once the bus is back.
func (c *Client) SetOnConnect(cb func()) {
	c.mu.Lock()
	c.onUp = cb
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback fired when the session is lost.
// The error describes the loss; reconnection is already in progress when
// the callback runs.
func (c *Client) SetOnDisconnect(cb func(err error)) {
	c.mu.Lock()
	c.onDown = cb
	c.mu.Unlock()
}

// SetLogger directs handler diagnostics (panics, handler errors) to the
// given logger. Without one they are discarded.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// getLogger returns the current logger, which may be nil.
func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// Close announces the graceful shutdown on the status topic and
// disconnects, leaving a short quiesce window for in-flight publishes.
//
// Returns:
//   - error: Always nil; closing a dead session is not an error
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
			statusPayload("offline", "graceful_shutdown", c.cfg.Broker.ClientID))
		token.WaitTimeout(publishTimeout)
	}

	c.paho.Disconnect(disconnectQuiesceMs)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	return nil
}

// HealthCheck reports whether the session is currently usable.
//
// Parameters:
//   - ctx: Deadline/cancellation for the check
//
// Returns:
//   - error: nil when connected; ErrNotConnected or the context error
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known session state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.paho.IsConnected()
}

// dispatch adapts a MessageHandler to paho's callback shape, recovering
// panics and logging handler errors so one bad message cannot take the
// router down.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
