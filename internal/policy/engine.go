package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coldaisle/hvac-edge/internal/message"
)

// forwardTimeout bounds each fired action's gateway request.
const forwardTimeout = 10 * time.Second

// ForwardRequest is the logical command a matched policy dispatches to the
// gateway's forward endpoint.
type ForwardRequest struct {
	ObjectID string         `json:"object_id"`
	RoomID   string         `json:"room_id"`
	RackID   string         `json:"rack_id,omitempty"`
	Command  map[string]any `json:"command"`
}

// Forwarder delivers a fired action to the gateway. Implementations are
// called from short-lived dispatch goroutines and must be safe for
// concurrent use.
type Forwarder interface {
	Forward(ctx context.Context, req ForwardRequest) error
}

// Logger interface for engine diagnostics.
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

// Engine holds one room's policies, evaluates telemetry against them, and
// persists every successful mutation through the shared store.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Evaluate iterates a
//     snapshot, so mutations during evaluation affect later samples only.
type Engine struct {
	roomID    string
	store     *Store
	forwarder Forwarder
	logger    Logger

	mu       sync.RWMutex
	policies []Policy
}

// NewEngine creates an engine for one room, loading its policies from the
// store.
//
// Parameters:
//   - roomID: The room this engine serves
//   - store: Shared policy document store
//   - forwarder: Destination for fired actions; nil disables dispatch
//   - logger: Destination for diagnostics; nil discards
//
// Returns:
//   - *Engine: Engine ready for evaluation
//   - error: If the backing document is unreadable
func NewEngine(roomID string, store *Store, forwarder Forwarder, logger Logger) (*Engine, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	policies, err := store.LoadRoom(roomID)
	if err != nil {
		return nil, fmt.Errorf("loading policies for room %s: %w", roomID, err)
	}

	return &Engine{
		roomID:    roomID,
		store:     store,
		forwarder: forwarder,
		logger:    logger,
		policies:  policies,
	}, nil
}

// RoomID returns the room this engine serves.
func (e *Engine) RoomID() string { return e.roomID }

// Policies returns a snapshot of the engine's policies.
func (e *Engine) Policies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Policy, len(e.policies))
	copy(out, e.policies)
	return out
}

// AddPolicy validates and appends a policy, assigning an ID when absent,
// and persists the room's list.
//
// Returns:
//   - Policy: The stored policy including its assigned ID
//   - error: ErrValidation, ErrWrongRoom, or a persistence failure
func (e *Engine) AddPolicy(p Policy) (Policy, error) {
	if err := e.admit(p); err != nil {
		return Policy{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if p.ID == "" {
		p.ID = fmt.Sprintf("%s_%s_%d", p.Type, p.RoomID, len(e.policies))
	}
	for _, existing := range e.policies {
		if existing.ID == p.ID {
			return Policy{}, fmt.Errorf("%w: duplicate id %q", ErrValidation, p.ID)
		}
	}

	next := append(append([]Policy(nil), e.policies...), p)
	if err := e.store.SaveRoom(e.roomID, next); err != nil {
		return Policy{}, err
	}
	e.policies = next

	e.logger.Info("policy added", "room_id", e.roomID, "policy_id", p.ID, "type", p.Type)
	return p, nil
}

// UpdatePolicy validates and replaces the policy with the given ID.
//
// Returns:
//   - Policy: The stored policy
//   - error: ErrNotFound, ErrValidation, ErrWrongRoom, or a persistence failure
func (e *Engine) UpdatePolicy(id string, p Policy) (Policy, error) {
	if err := e.admit(p); err != nil {
		return Policy{}, err
	}
	p.ID = id

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, existing := range e.policies {
		if existing.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Policy{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := append([]Policy(nil), e.policies...)
	next[idx] = p
	if err := e.store.SaveRoom(e.roomID, next); err != nil {
		return Policy{}, err
	}
	e.policies = next

	e.logger.Info("policy updated", "room_id", e.roomID, "policy_id", id)
	return p, nil
}

// DeletePolicy removes the policy with the given ID and persists.
//
// Returns:
//   - error: ErrNotFound or a persistence failure
func (e *Engine) DeletePolicy(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, existing := range e.policies {
		if existing.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := append([]Policy(nil), e.policies[:idx]...)
	next = append(next, e.policies[idx+1:]...)
	if err := e.store.SaveRoom(e.roomID, next); err != nil {
		return err
	}
	e.policies = next

	e.logger.Info("policy deleted", "room_id", e.roomID, "policy_id", id)
	return nil
}

// admit runs the checks common to add and update.
func (e *Engine) admit(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.RoomID != e.roomID {
		return fmt.Errorf("%w: policy targets %q, engine serves %q", ErrWrongRoom, p.RoomID, e.roomID)
	}
	return nil
}

// Evaluate matches the telemetry against every policy and dispatches each
// fired action asynchronously. At most one forward fires per (policy,
// telemetry) pair. A failure in one policy never suppresses evaluation of
// its neighbours.
func (e *Engine) Evaluate(t message.Telemetry) {
	e.mu.RLock()
	snapshot := e.policies
	e.mu.RUnlock()

	for _, p := range snapshot {
		e.evaluateOne(p, t)
	}
}

func (e *Engine) evaluateOne(p Policy, t message.Telemetry) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("policy evaluation panic recovered", "policy_id", p.ID, "panic", r)
		}
	}()

	if !p.matches(t) {
		return
	}

	value, err := toFloat(t.DataValue)
	if err != nil {
		e.logger.Warn("telemetry value not comparable", "policy_id", p.ID, "error", err)
		return
	}
	if !p.Condition.compare(value) {
		return
	}

	req := p.forwardRequest()
	e.logger.Info("policy matched",
		"room_id", e.roomID,
		"policy_id", p.ID,
		"value", value,
		"operator", p.Condition.Operator,
		"threshold", p.Condition.Value,
	)

	if e.forwarder == nil {
		return
	}

	// Fire-and-forget; the inbound dispatch path must not block on the
	// gateway round trip.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
		defer cancel()
		if err := e.forwarder.Forward(ctx, req); err != nil {
			e.logger.Warn("policy action forward failed", "policy_id", p.ID, "error", err)
		}
	}()
}

// matches applies the selector semantics for the policy's type.
func (p Policy) matches(t message.Telemetry) bool {
	if t.Metadata.RoomID != p.RoomID {
		return false
	}

	switch p.Type {
	case TypeRoom:
		return t.Metadata.RackID == "" &&
			t.Metadata.ObjectID == p.ObjectID &&
			t.Metadata.ResourceID == p.ResourceID &&
			t.Type == p.SensorType
	case TypeSmartObject:
		return t.Metadata.RackID == p.RackID &&
			t.Metadata.ObjectID == p.ObjectID &&
			t.Metadata.ResourceID == p.ResourceID &&
			t.Type == p.SensorType
	default:
		return false
	}
}

// forwardRequest builds the dispatch payload for the policy's type.
func (p Policy) forwardRequest() ForwardRequest {
	switch p.Type {
	case TypeRoom:
		return ForwardRequest{
			ObjectID: p.Action.ObjectID,
			RoomID:   p.RoomID,
			Command:  p.Action.Command,
		}
	default:
		return ForwardRequest{
			ObjectID: p.ObjectID,
			RoomID:   p.RoomID,
			RackID:   p.RackID,
			Command:  p.Action.Command,
		}
	}
}
