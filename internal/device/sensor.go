package device

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Default periodic sampling schedule shared by all sensors.
const (
	DefaultUpdatePeriod = 60 * time.Second
	DefaultTaskDelay    = 5 * time.Second
)

// SensorListener is invoked after each successful measurement with the
// producing sensor and the new reading. Listeners run on the sensor's
// sampling goroutine, so notifications for one sensor are ordered.
type SensorListener func(s *Sensor, value float64)

// SensorConfig describes a sensor variant: its measurement domain and
// sampling schedule.
type SensorConfig struct {
	TypeTag   string
	Unit      string
	Min       float64
	Max       float64
	Precision int
	Period    time.Duration
	Delay     time.Duration
}

// Sensor simulates a measured quantity. A reading is drawn uniformly in
// [Min, Max] and rounded to Precision digits.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Sensor struct {
	resourceID string
	cfg        SensorConfig
	logger     Logger

	mu        sync.Mutex
	value     float64
	timestamp int64
	listeners []SensorListener

	runMu sync.Mutex
	stop  chan struct{}
	done  chan struct{}
}

// NewSensor creates a sensor from its configuration. Zero Period or Delay
// fall back to the package defaults.
//
// Parameters:
//   - resourceID: Identifier unique within the owning smart object
//   - cfg: Measurement domain and schedule
//   - logger: Destination for sampling diagnostics; nil discards
//
// Returns:
//   - *Sensor: Sensor ready to be started
func NewSensor(resourceID string, cfg SensorConfig, logger Logger) *Sensor {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultUpdatePeriod
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultTaskDelay
	}
	return &Sensor{
		resourceID: resourceID,
		cfg:        cfg,
		logger:     logger,
	}
}

// ID returns the resource identifier.
func (s *Sensor) ID() string { return s.resourceID }

// TypeTag returns the domain type tag.
func (s *Sensor) TypeTag() string { return s.cfg.TypeTag }

// Kind reports KindSensor.
func (s *Sensor) Kind() Kind { return KindSensor }

// Measure draws a new reading, rounds it, and stamps the measurement time.
//
// Returns:
//   - float64: The new reading, satisfying Min <= value <= Max
//   - error: Always nil for the simulated source; kept for parity with
//     hardware-backed implementations
func (s *Sensor) Measure() (float64, error) {
	raw := s.cfg.Min + rand.Float64()*(s.cfg.Max-s.cfg.Min)
	value := roundTo(raw, s.cfg.Precision)

	// Rounding near the bounds must not escape [Min, Max]
	if value < s.cfg.Min {
		value = s.cfg.Min
	}
	if value > s.cfg.Max {
		value = s.cfg.Max
	}

	s.mu.Lock()
	s.value = value
	s.timestamp = time.Now().UnixMilli()
	s.mu.Unlock()

	s.logger.Debug("sensor measured", "resource_id", s.resourceID, "value", value, "unit", s.cfg.Unit)
	return value, nil
}

// LoadUpdatedValue measures and returns the new reading.
func (s *Sensor) LoadUpdatedValue() (float64, error) {
	value, err := s.Measure()
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", s.resourceID, err)
	}
	return value, nil
}

// Value returns the last reading and its timestamp without measuring.
func (s *Sensor) Value() (float64, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.timestamp
}

// AddListener registers a callback invoked after each periodic measurement.
// Must be called before StartPeriodic.
func (s *Sensor) AddListener(listener SensorListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// StartPeriodic begins the sampling task: first tick after the configured
// delay, then one tick per period. A failed measurement is logged and the
// task continues. Calling StartPeriodic on a running sensor is a no-op.
func (s *Sensor) StartPeriodic() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stop, s.done)

	s.logger.Debug("sensor periodic task started",
		"resource_id", s.resourceID,
		"period", s.cfg.Period.String(),
		"delay", s.cfg.Delay.String(),
	)
}

// StopPeriodic cancels the sampling task and waits for it to drain.
// Idempotent: stopping a stopped sensor is a no-op.
func (s *Sensor) StopPeriodic() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.stop == nil {
		return
	}

	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil

	s.logger.Debug("sensor periodic task stopped", "resource_id", s.resourceID)
}

// run is the sampling loop. It owns all listener invocations, which keeps
// per-sensor notifications ordered.
func (s *Sensor) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	delay := time.NewTimer(s.cfg.Delay)
	defer delay.Stop()

	select {
	case <-stop:
		return
	case <-delay.C:
	}

	s.tick()

	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick performs one measurement and notifies listeners.
func (s *Sensor) tick() {
	value, err := s.LoadUpdatedValue()
	if err != nil {
		s.logger.Error("sensor measurement failed", "resource_id", s.resourceID, "error", err)
		return
	}

	s.mu.Lock()
	listeners := make([]SensorListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(s, value)
	}
}

// Describe returns a snapshot of the sensor for the admin API.
func (s *Sensor) Describe() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"resource_id": s.resourceID,
		"kind":        string(KindSensor),
		"type":        s.cfg.TypeTag,
		"value":       s.value,
		"unit":        s.cfg.Unit,
		"timestamp":   s.timestamp,
		"min":         s.cfg.Min,
		"max":         s.cfg.Max,
	}
}

// roundTo rounds v to the given number of decimal digits.
func roundTo(v float64, digits int) float64 {
	factor := math.Pow10(digits)
	return math.Round(v*factor) / factor
}
