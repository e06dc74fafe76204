package collector

import (
	"context"
	"fmt"
	"sync"

	"github.com/coldaisle/hvac-edge/internal/infrastructure/mqtt"
	"github.com/coldaisle/hvac-edge/internal/message"
)

// Evaluator receives a deep copy of every inbound telemetry message for the
// collector's room. *policy.Engine satisfies it.
type Evaluator interface {
	Evaluate(t message.Telemetry)
}

// Subscriber is the inbound half of the bus the collector needs.
// *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger interface for collector diagnostics.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// TelemetryObserver is invoked for each inbound telemetry message after it
// enters the batch. Used to mirror samples into the time-series store.
type TelemetryObserver func(t message.Telemetry)

// ControlObserver is invoked for each inbound control message. Control
// events never enter the telemetry batch.
type ControlObserver func(c message.Control)

// Config carries the collector's tunables.
type Config struct {
	// RoomID selects which room's topics the collector consumes.
	RoomID string

	// QueueSize bounds the inbound channel between the bus delivery path
	// and the worker. When full, messages are dropped with a warning.
	QueueSize int

	// QoS for the bus subscriptions.
	QoS byte
}

// Collector is the per-room telemetry consumer. It subscribes to the room's
// telemetry and control topics, hands each telemetry sample to the policy
// engine, and accumulates a batch for the cloud synchroniser.
//
// Bus handlers only enqueue; decoding, evaluation, and batching happen on
// the collector's worker goroutine, which preserves arrival order for the
// room.
type Collector struct {
	cfg       Config
	bus       Subscriber
	evaluator Evaluator
	logger    Logger

	topics   mqtt.Topics
	patterns []string

	queue chan inbound

	batchMu sync.Mutex
	batch   []message.Telemetry

	onTelemetry TelemetryObserver
	onControl   ControlObserver
	observerMu  sync.RWMutex

	cancel context.CancelFunc
	done   chan struct{}

	startMu sync.Mutex
	started bool
}

// inbound is a raw bus delivery awaiting decode on the worker.
type inbound struct {
	topic   string
	payload []byte
}

// New creates a collector for one room.
//
// Parameters:
//   - cfg: Room and queue tunables
//   - bus: Inbound bus client
//   - evaluator: Policy engine for the room; nil disables evaluation
//   - logger: Destination for diagnostics; nil discards
func New(cfg Config, bus Subscriber, evaluator Evaluator, logger Logger) *Collector {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	c := &Collector{
		cfg:       cfg,
		bus:       bus,
		evaluator: evaluator,
		logger:    logger,
		queue:     make(chan inbound, cfg.QueueSize),
		done:      make(chan struct{}),
	}
	c.patterns = c.topics.RoomPatterns(cfg.RoomID)
	return c
}

// SetTelemetryObserver registers a callback mirroring each batched sample.
// Set before Start.
func (c *Collector) SetTelemetryObserver(fn TelemetryObserver) {
	c.observerMu.Lock()
	c.onTelemetry = fn
	c.observerMu.Unlock()
}

// SetControlObserver registers a callback for inbound control events.
// Set before Start.
func (c *Collector) SetControlObserver(fn ControlObserver) {
	c.observerMu.Lock()
	c.onControl = fn
	c.observerMu.Unlock()
}

// Start subscribes to the room's topic patterns and launches the worker.
//
// Returns:
//   - error: If any subscription fails; already-made subscriptions are
//     left in place for a retried Start
func (c *Collector) Start(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.started {
		return nil
	}

	for _, pattern := range c.patterns {
		if err := c.bus.Subscribe(pattern, c.cfg.QoS, c.handleMessage); err != nil {
			return fmt.Errorf("subscribing %s: %w", pattern, err)
		}
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)

	c.started = true
	c.logger.Info("collector started", "room_id", c.cfg.RoomID)
	return nil
}

// Stop unsubscribes and drains the worker.
func (c *Collector) Stop() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if !c.started {
		return
	}

	for _, pattern := range c.patterns {
		if err := c.bus.Unsubscribe(pattern); err != nil {
			c.logger.Warn("unsubscribe failed", "pattern", pattern, "error", err)
		}
	}

	c.cancel()
	<-c.done
	c.started = false
	c.logger.Info("collector stopped", "room_id", c.cfg.RoomID)
}

// handleMessage runs on the bus delivery path. It must not block, so it
// only enqueues; a full queue sheds the newest message.
func (c *Collector) handleMessage(topic string, payload []byte) error {
	select {
	case c.queue <- inbound{topic: topic, payload: payload}:
		return nil
	default:
		c.logger.Warn("inbound queue full, message dropped", "room_id", c.cfg.RoomID, "topic", topic)
		return nil
	}
}

// run is the worker loop: decode, evaluate, batch, in arrival order.
func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.queue:
			c.process(msg)
		}
	}
}

func (c *Collector) process(msg inbound) {
	switch {
	case mqtt.IsTelemetryTopic(msg.topic):
		c.processTelemetry(msg)
	case mqtt.IsControlTopic(msg.topic):
		c.processControl(msg)
	default:
		c.logger.Warn("message on unexpected topic", "topic", msg.topic)
	}
}

func (c *Collector) processTelemetry(msg inbound) {
	t, err := message.DecodeTelemetry(msg.payload)
	if err != nil {
		c.logger.Warn("telemetry decode failed", "topic", msg.topic, "error", err)
		return
	}

	// The policy engine gets its own copy; evaluation must not observe
	// later mutation of the batched sample.
	if c.evaluator != nil {
		c.evaluator.Evaluate(t.DeepCopy())
	}

	c.batchMu.Lock()
	c.batch = append(c.batch, t)
	size := len(c.batch)
	c.batchMu.Unlock()

	c.observerMu.RLock()
	observer := c.onTelemetry
	c.observerMu.RUnlock()
	if observer != nil {
		observer(t)
	}

	c.logger.Debug("telemetry batched", "room_id", c.cfg.RoomID, "resource_id", t.Metadata.ResourceID, "batch_size", size)
}

func (c *Collector) processControl(msg inbound) {
	ctrl, err := message.DecodeControl(msg.payload)
	if err != nil {
		c.logger.Warn("control decode failed", "topic", msg.topic, "error", err)
		return
	}

	c.observerMu.RLock()
	observer := c.onControl
	c.observerMu.RUnlock()
	if observer != nil {
		observer(ctrl)
	}

	c.logger.Debug("control observed", "room_id", c.cfg.RoomID, "resource_id", ctrl.Metadata.ResourceID, "event_type", ctrl.EventType)
}

// BatchSize returns the number of samples awaiting upload.
func (c *Collector) BatchSize() int {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()
	return len(c.batch)
}

// takeBatch snapshots the current batch for upload without clearing it.
// commitDrain removes exactly the uploaded prefix afterwards, so samples
// arriving during the upload survive a successful drain.
func (c *Collector) takeBatch() []message.Telemetry {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()
	snapshot := make([]message.Telemetry, len(c.batch))
	copy(snapshot, c.batch)
	return snapshot
}

func (c *Collector) commitDrain(n int) {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()
	if n > len(c.batch) {
		n = len(c.batch)
	}
	c.batch = append([]message.Telemetry(nil), c.batch[n:]...)
}
