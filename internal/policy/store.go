package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// document is the backing-file shape: {"rooms": {"<room_id>": [Policy]}}.
// Rooms other than the one being mutated are kept as raw JSON, so a
// mutation in one room never rewrites a neighbour's bytes.
type document struct {
	Rooms map[string]json.RawMessage `json:"rooms"`
}

// Store persists policies in a single JSON document shared by every room's
// engine. Writes are atomic (temp file + rename) and serialised.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store over the document at path. The file may be
// absent at first start.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// LoadRoom reads the policies of one room. A missing file or absent room
// yields an empty list.
//
// Parameters:
//   - roomID: Room whose policy list to load
//
// Returns:
//   - []Policy: The room's policies, possibly empty
//   - error: On unreadable or malformed document
func (s *Store) LoadRoom(roomID string) ([]Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	raw, ok := doc.Rooms[roomID]
	if !ok {
		return nil, nil
	}

	var policies []Policy
	if err := json.Unmarshal(raw, &policies); err != nil {
		return nil, fmt.Errorf("parsing policies for room %s: %w", roomID, err)
	}
	return policies, nil
}

// SaveRoom replaces one room's policy list, leaving every other room's
// entry untouched, and rewrites the document atomically.
//
// Parameters:
//   - roomID: Room whose policy list to replace
//   - policies: The new list; nil clears the room to an empty list
//
// Returns:
//   - error: On encode or filesystem failure
func (s *Store) SaveRoom(roomID string, policies []Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}

	if policies == nil {
		policies = []Policy{}
	}
	raw, err := json.Marshal(policies)
	if err != nil {
		return fmt.Errorf("encoding policies for room %s: %w", roomID, err)
	}
	doc.Rooms[roomID] = raw

	return s.writeLocked(doc)
}

// readLocked loads the full document; a missing file yields an empty one.
func (s *Store) readLocked() (*document, error) {
	doc := &document{Rooms: make(map[string]json.RawMessage)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading policy document: %w", err)
	}
	if len(data) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing policy document: %w", err)
	}
	if doc.Rooms == nil {
		doc.Rooms = make(map[string]json.RawMessage)
	}
	return doc, nil
}

// writeLocked serialises the document to a sibling temp file and renames
// it into place, so readers never see a torn document.
func (s *Store) writeLocked(doc *document) error {
	// Compact output: indenting would reformat the raw entries of rooms
	// this engine does not own.
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding policy document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating policy directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".policy-*.json")
	if err != nil {
		return fmt.Errorf("creating temp policy file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing policy document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing policy document: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing policy document: %w", err)
	}
	return nil
}
