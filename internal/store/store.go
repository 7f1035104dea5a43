package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/reptin/rcs/internal/engine"
	"github.com/reptin/rcs/internal/logger"
)

const maxSaveRetries = 8

// Store is the durable, observable source of truth for the engine
// collection. Multiple stores may share one Backend; each store sees its own
// writes immediately and learns about other handles' writes through the
// backend's change notifications.
type Store struct {
	backend Backend

	mu      sync.RWMutex
	engines []engine.Engine
	version uint64

	subMu   sync.Mutex
	subs    map[int]func([]engine.Engine)
	nextSub int

	cancelWatch func()
}

// Open attaches a store to a backend. Empty or unreadable storage fails over
// to the built-in default set, which is persisted on first run.
func Open(backend Backend) (*Store, error) {
	s := &Store{
		backend: backend,
		subs:    make(map[int]func([]engine.Engine)),
	}

	data, version, err := backend.Load()
	if err != nil {
		logger.Error("[Store] Load failed, falling back to defaults: %v", err)
		s.engines = engine.DefaultEngines()
	} else if len(data) == 0 {
		s.engines = engine.DefaultEngines()
		if err := s.persist(s.engines, 0); err != nil {
			logger.Warn("[Store] Failed to persist default engines: %v", err)
		} else {
			logger.Info("[Store] Default engines loaded and saved")
		}
	} else {
		engines, err := decodeCollection(data)
		if err != nil {
			logger.Error("[Store] Corrupt record, falling back to defaults: %v", err)
			s.engines = engine.DefaultEngines()
		} else {
			s.engines = engines
			s.version = version
		}
	}

	s.cancelWatch = backend.Watch(s.onBackendChange)
	return s, nil
}

// Close detaches the store from backend notifications. The backend itself
// is owned by the caller.
func (s *Store) Close() {
	if s.cancelWatch != nil {
		s.cancelWatch()
	}
}

// Get returns a copy of the current collection.
func (s *Store) Get() []engine.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return engine.CloneAll(s.engines)
}

// Set atomically replaces the collection.
func (s *Store) Set(engines []engine.Engine) error {
	return s.SetFunc(func([]engine.Engine) []engine.Engine {
		return engines
	})
}

// SetFunc applies a pure transform to the current collection and persists
// the result. The transform may be retried when another surface wrote in
// between, so it must not have observable side effects.
func (s *Store) SetFunc(update func([]engine.Engine) []engine.Engine) error {
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		s.mu.RLock()
		current := engine.CloneAll(s.engines)
		version := s.version
		s.mu.RUnlock()

		next := update(current)
		err := s.persist(next, version)
		if err == nil {
			return nil
		}
		if err != ErrConflict {
			return err
		}

		// Another handle won the write; refresh and retry the transform.
		if err := s.refresh(); err != nil {
			return err
		}
	}
	return fmt.Errorf("store: gave up after %d conflicting writes", maxSaveRetries)
}

// persist saves the collection, updates the cached state on success and
// notifies this store's subscribers. A failed write leaves the cached
// last-known state untouched.
func (s *Store) persist(engines []engine.Engine, prev uint64) error {
	data, err := encodeCollection(engines)
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}

	version, err := s.backend.Save(data, prev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.engines = engine.CloneAll(engines)
	s.version = version
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Store) refresh() error {
	data, version, err := s.backend.Load()
	if err != nil {
		return fmt.Errorf("failed to reload collection: %w", err)
	}
	engines, err := decodeCollection(data)
	if err != nil {
		return fmt.Errorf("failed to decode collection: %w", err)
	}
	s.mu.Lock()
	if version > s.version {
		s.engines = engines
		s.version = version
	}
	s.mu.Unlock()
	return nil
}

// onBackendChange applies a change written through another handle. Stale and
// self-originated notifications are ignored by version.
func (s *Store) onBackendChange(data []byte, version uint64) {
	s.mu.Lock()
	if version <= s.version {
		s.mu.Unlock()
		return
	}
	engines, err := decodeCollection(data)
	if err != nil {
		s.mu.Unlock()
		logger.Error("[Store] Ignoring corrupt change notification: %v", err)
		return
	}
	s.engines = engines
	s.version = version
	s.mu.Unlock()

	s.notify()
}

// Subscribe registers a listener invoked after every successful persisted
// change, from this handle or any other sharing the backend. Returns an
// unsubscribe func.
func (s *Store) Subscribe(fn func([]engine.Engine)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	snapshot := s.Get()
	s.subMu.Lock()
	subs := make([]func([]engine.Engine), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// Add appends a new engine with a fresh id and timestamps, returning the
// created engine.
func (s *Store) Add(e engine.Engine) (engine.Engine, error) {
	e = e.Clone()
	e.ID = engine.NewID()
	e.CreatedAt = engine.Now()
	e.UpdatedAt = e.CreatedAt
	if e.IconType == "" {
		e.IconType = engine.IconEmoji
	}

	err := s.SetFunc(func(current []engine.Engine) []engine.Engine {
		return append(current, e)
	})
	if err != nil {
		return engine.Engine{}, err
	}
	return e, nil
}

// Patch is a partial engine update. Nil fields are left unchanged; id,
// isDefault and createdAt are never patched.
type Patch struct {
	Title    *string
	URL      *string
	Icon     *string
	IconType *engine.IconType
	Enabled  *bool
	Contexts []engine.Context
	Shortcut *engine.Shortcut
	// ClearShortcut removes the keyboard shortcut entirely.
	ClearShortcut bool
}

func (p Patch) apply(e engine.Engine) engine.Engine {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.URL != nil {
		e.URL = *p.URL
	}
	if p.Icon != nil {
		e.Icon = *p.Icon
	}
	if p.IconType != nil {
		e.IconType = *p.IconType
	}
	if p.Enabled != nil {
		e.Enabled = *p.Enabled
	}
	if p.Contexts != nil {
		e.Contexts = append([]engine.Context(nil), p.Contexts...)
	}
	if p.ClearShortcut {
		e.Shortcut = nil
	} else if p.Shortcut != nil {
		sc := *p.Shortcut
		e.Shortcut = &sc
	}
	e.UpdatedAt = bumpTimestamp(e.UpdatedAt)
	return e
}

// Update merges fields into the matching engine and bumps its updatedAt.
// A missing id is a no-op, not an error.
func (s *Store) Update(id string, p Patch) error {
	return s.SetFunc(func(current []engine.Engine) []engine.Engine {
		for i, e := range current {
			if e.ID == id {
				current[i] = p.apply(e)
			}
		}
		return current
	})
}

// Remove filters out the matching engine. A missing id is a no-op.
func (s *Store) Remove(id string) error {
	return s.SetFunc(func(current []engine.Engine) []engine.Engine {
		out := current[:0]
		for _, e := range current {
			if e.ID != id {
				out = append(out, e)
			}
		}
		return out
	})
}

// ToggleEnabled flips the enabled flag of the matching engine.
func (s *Store) ToggleEnabled(id string) error {
	return s.SetFunc(func(current []engine.Engine) []engine.Engine {
		for i, e := range current {
			if e.ID == id {
				e.Enabled = !e.Enabled
				e.UpdatedAt = bumpTimestamp(e.UpdatedAt)
				current[i] = e
			}
		}
		return current
	})
}

// Reset replaces the collection with the built-in default set. This loses
// all customizations; callers are expected to confirm first.
func (s *Store) Reset() error {
	return s.Set(engine.DefaultEngines())
}

// bumpTimestamp returns a timestamp strictly greater than prev even when
// two mutations land within the same millisecond.
func bumpTimestamp(prev int64) int64 {
	now := engine.Now()
	if now <= prev {
		return prev + 1
	}
	return now
}

func encodeCollection(engines []engine.Engine) ([]byte, error) {
	return json.Marshal(engines)
}

func decodeCollection(data []byte) ([]engine.Engine, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var engines []engine.Engine
	if err := json.Unmarshal(data, &engines); err != nil {
		return nil, err
	}
	return engines, nil
}
