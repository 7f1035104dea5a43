package store

import (
	"errors"
	"sync"
)

// StorageKey is the fixed key the engine collection is persisted under.
const StorageKey = "search-engines-storage-key"

// ErrConflict is returned by Backend.Save when the stored version no longer
// matches the version the caller read. Callers re-read and retry.
var ErrConflict = errors.New("store: version conflict")

// Backend is a key-value record with change notifications. It holds the
// serialized engine collection as one unit and replicates changes to every
// attached watcher, so multiple surfaces observe the same state.
type Backend interface {
	// Load returns the current record and its version. A missing record is
	// (nil, 0, nil).
	Load() (data []byte, version uint64, err error)
	// Save writes the record if the stored version still equals prev,
	// returning the new version. ErrConflict otherwise.
	Save(data []byte, prev uint64) (uint64, error)
	// Watch registers a callback fired after every successful Save, from any
	// handle. The returned func cancels the registration.
	Watch(fn func(data []byte, version uint64)) (cancel func())
	Close() error
}

// MemoryBackend is an in-process Backend used by tests and ephemeral
// profiles.
type MemoryBackend struct {
	mu       sync.Mutex
	data     []byte
	version  uint64
	watchers map[int]func([]byte, uint64)
	nextID   int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{watchers: make(map[int]func([]byte, uint64))}
}

// Load implements Backend.
func (m *MemoryBackend) Load() ([]byte, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, 0, nil
	}
	return append([]byte(nil), m.data...), m.version, nil
}

// Save implements Backend.
func (m *MemoryBackend) Save(data []byte, prev uint64) (uint64, error) {
	m.mu.Lock()
	if m.version != prev {
		m.mu.Unlock()
		return 0, ErrConflict
	}
	m.data = append([]byte(nil), data...)
	m.version++
	version := m.version
	watchers := make([]func([]byte, uint64), 0, len(m.watchers))
	for _, fn := range m.watchers {
		watchers = append(watchers, fn)
	}
	m.mu.Unlock()

	snapshot := append([]byte(nil), data...)
	for _, fn := range watchers {
		go fn(snapshot, version)
	}
	return version, nil
}

// Watch implements Backend.
func (m *MemoryBackend) Watch(fn func([]byte, uint64)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.watchers, id)
	}
}

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }
