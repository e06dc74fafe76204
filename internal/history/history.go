package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/coldaisle/hvac-edge/internal/message"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

const schema = `
CREATE TABLE IF NOT EXISTS control_events (
	id          TEXT PRIMARY KEY,
	room_id     TEXT NOT NULL,
	rack_id     TEXT NOT NULL DEFAULT '',
	object_id   TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	event_data  TEXT NOT NULL,
	occurred_at INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_control_events_room ON control_events(room_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_control_events_resource ON control_events(resource_id, occurred_at);
`

// Event is a persisted control event.
type Event struct {
	ID         string         `json:"id"`
	RoomID     string         `json:"room_id"`
	RackID     string         `json:"rack_id,omitempty"`
	ObjectID   string         `json:"object_id"`
	ResourceID string         `json:"resource_id"`
	EventType  string         `json:"event_type"`
	EventData  map[string]any `json:"event_data"`
	OccurredAt int64          `json:"occurred_at"`
}

// Store is the SQLite-backed control-event log. Every actuator state
// change observed on the bus is appended here, giving operators an audit
// trail of who or what drove each device.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the event log at path and applies the schema.
//
// Parameters:
//   - path: SQLite database file; created if absent
//   - busyTimeout: SQLite busy timeout in milliseconds
//
// Returns:
//   - *Store: Store ready for use
//   - error: If the database cannot be opened or migrated
func Open(path string, busyTimeout int) (*Store, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", path, busyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating event log: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a control event.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - c: The observed control message
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (s *Store) Record(ctx context.Context, c message.Control) error {
	if c.Metadata.ResourceID == "" {
		return fmt.Errorf("resource id is required")
	}

	eventData := c.EventData
	if eventData == nil {
		eventData = map[string]any{}
	}
	dataJSON, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("marshalling event data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO control_events (id, room_id, rack_id, object_id, resource_id, event_type, event_data, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		c.Metadata.RoomID,
		c.Metadata.RackID,
		c.Metadata.ObjectID,
		c.Metadata.ResourceID,
		c.EventType,
		string(dataJSON),
		c.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting control event: %w", err)
	}
	return nil
}

// RoomEvents returns recent events for a room, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - roomID: Room to filter on
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Event: Events ordered by occurred_at DESC
//   - error: nil on success, otherwise the underlying query error
func (s *Store) RoomEvents(ctx context.Context, roomID string, limit int) ([]Event, error) {
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}
	limit = clampLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, rack_id, object_id, resource_id, event_type, event_data, occurred_at
		 FROM control_events
		 WHERE room_id = ?
		 ORDER BY occurred_at DESC
		 LIMIT ?`,
		roomID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying control events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows, limit)
}

// ResourceEvents returns recent events for one resource, newest first.
func (s *Store) ResourceEvents(ctx context.Context, resourceID string, limit int) ([]Event, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("resource id is required")
	}
	limit = clampLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, rack_id, object_id, resource_id, event_type, event_data, occurred_at
		 FROM control_events
		 WHERE resource_id = ?
		 ORDER BY occurred_at DESC
		 LIMIT ?`,
		resourceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying control events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows, limit)
}

// Prune deletes events older than the given duration.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().Add(-olderThan).UnixMilli()
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM control_events WHERE occurred_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting control events: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultEventLimit
	}
	if limit > maxEventLimit {
		return maxEventLimit
	}
	return limit
}

func scanEvents(rows *sql.Rows, limit int) ([]Event, error) {
	events := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		var dataJSON string
		if err := rows.Scan(&e.ID, &e.RoomID, &e.RackID, &e.ObjectID, &e.ResourceID, &e.EventType, &dataJSON, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning control event: %w", err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &e.EventData); err != nil {
			return nil, fmt.Errorf("unmarshalling event data: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating control events: %w", err)
	}
	return events, nil
}
