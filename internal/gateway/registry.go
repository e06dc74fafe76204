package gateway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Attributes carry the logical identity and link metadata of a discovered
// resource. The identity triple (object_id, room_id, rack_id) is what the
// forward lookup matches on.
type Attributes struct {
	ObjectID     string `json:"object_id,omitempty"`
	RoomID       string `json:"room_id,omitempty"`
	RackID       string `json:"rack_id,omitempty"`
	ResourceType string `json:"rt,omitempty"`
	Interface    string `json:"if,omitempty"`
	ContentType  string `json:"ct,omitempty"`
	Title        string `json:"title,omitempty"`
}

// Entry is one discovered resource on a host.
type Entry struct {
	Port       int        `json:"port"`
	Path       string     `json:"path"`
	Attributes Attributes `json:"attributes"`
}

// Registry maps device hosts to their discovered resources. Every mutation
// persists the registry as a JSON snapshot, so a restart resumes from the
// last known device set.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The discoverer writes while
//     the forward path reads; readers always observe complete entries.
type Registry struct {
	path string

	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewRegistry creates a registry persisted at path. An existing snapshot
// is loaded; a missing file starts empty.
//
// Returns:
//   - *Registry: Registry ready for use
//   - error: If an existing snapshot is unreadable or malformed
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{
		path:    path,
		entries: make(map[string][]Entry),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading registry snapshot: %w", err)
	}
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		return nil, fmt.Errorf("parsing registry snapshot: %w", err)
	}
	return r, nil
}

// Record replaces the entry set for one host and persists the snapshot.
// Re-discovery of the same host is idempotent.
//
// Parameters:
//   - host: Device host address
//   - entries: The host's discovered resources
//
// Returns:
//   - error: On persistence failure; the in-memory registry is updated
//     regardless
func (r *Registry) Record(host string, entries []Entry) error {
	r.mu.Lock()
	r.entries[host] = entries
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return r.persist(snapshot)
}

// Hosts returns the registered host addresses.
func (r *Registry) Hosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hosts := make([]string, 0, len(r.entries))
	for host := range r.entries {
		hosts = append(hosts, host)
	}
	return hosts
}

// Entries returns a snapshot of one host's entries.
func (r *Registry) Entries(host string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.entries[host]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// All returns a snapshot of the full registry.
func (r *Registry) All() map[string][]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// FindURI resolves a logical identity to a device URI.
//
// Parameters:
//   - objectID, roomID, rackID: Identity triple; rackID empty means
//     room-scoped, and matches only entries without a rack_id attribute
//
// Returns:
//   - string: "coap://{host}:{port}/{path}" of the first matching entry
//   - bool: false when nothing matches
func (r *Registry) FindURI(objectID, roomID, rackID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for host, entries := range r.entries {
		for _, e := range entries {
			if e.Attributes.ObjectID == objectID &&
				e.Attributes.RoomID == roomID &&
				e.Attributes.RackID == rackID {
				return fmt.Sprintf("coap://%s:%d/%s", host, e.Port, e.Path), true
			}
		}
	}
	return "", false
}

func (r *Registry) snapshotLocked() map[string][]Entry {
	snapshot := make(map[string][]Entry, len(r.entries))
	for host, entries := range r.entries {
		copied := make([]Entry, len(entries))
		copy(copied, entries)
		snapshot[host] = copied
	}
	return snapshot
}

// persist writes the snapshot atomically (temp file + rename).
func (r *Registry) persist(snapshot map[string][]Entry) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry snapshot: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("creating temp registry file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing registry snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing registry snapshot: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing registry snapshot: %w", err)
	}
	return nil
}
