package shortcut

import (
	"sort"
	"strings"
	"sync"

	"github.com/reptin/rcs/internal/engine"
	"github.com/reptin/rcs/internal/logger"
	"github.com/reptin/rcs/internal/nav"
	"github.com/reptin/rcs/internal/store"
)

// KeyEvent is one key-down observed at the document level.
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
	// EditableTarget is true when the event targets an input, textarea,
	// select or content-editable surface.
	EditableTarget bool
}

// canonical renders the event in index form: sorted modifiers plus the
// lowercased key, "+"-joined. Empty when no modifier is active.
func (e KeyEvent) canonical() string {
	var mods []string
	if e.Ctrl {
		mods = append(mods, string(engine.ModCtrl))
	}
	if e.Alt {
		mods = append(mods, string(engine.ModAlt))
	}
	if e.Shift {
		mods = append(mods, string(engine.ModShift))
	}
	if e.Meta {
		mods = append(mods, string(engine.ModMeta))
	}
	if len(mods) == 0 {
		return ""
	}
	sort.Strings(mods)
	return strings.Join(append(mods, strings.ToLower(e.Key)), "+")
}

// Matcher maps keyboard chords to engines. The index is rebuilt from
// scratch on every collection change; when two enabled engines share a
// chord the last registered one wins.
type Matcher struct {
	store     *store.Store
	navigator nav.Navigator

	mu    sync.RWMutex
	index map[string]engine.Engine

	unsubscribe func()
}

// NewMatcher wires a matcher to its store and navigator.
func NewMatcher(s *store.Store, navigator nav.Navigator) *Matcher {
	return &Matcher{
		store:     s,
		navigator: navigator,
		index:     make(map[string]engine.Engine),
	}
}

// Start performs the initial index build and subscribes to changes.
func (m *Matcher) Start() {
	m.rebuild(m.store.Get())
	m.unsubscribe = m.store.Subscribe(func(engines []engine.Engine) {
		m.rebuild(engines)
	})
}

// Stop detaches the matcher from the store.
func (m *Matcher) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *Matcher) rebuild(engines []engine.Engine) {
	index := make(map[string]engine.Engine)
	for _, e := range engines {
		if !e.Enabled || e.Shortcut == nil || !e.Shortcut.Valid() {
			continue
		}
		index[e.Shortcut.Canonical()] = e
	}
	m.mu.Lock()
	m.index = index
	m.mu.Unlock()
	logger.Debug("[Shortcut] Indexed %d keyboard shortcuts", len(index))
}

// Match resolves a key event to an engine. Events targeting editable
// surfaces and events without modifiers never match, so ordinary typing is
// left alone. Pure with respect to the current index; no side effects.
func (m *Matcher) Match(event KeyEvent) (engine.Engine, bool) {
	if event.EditableTarget {
		return engine.Engine{}, false
	}
	key := event.canonical()
	if key == "" {
		return engine.Engine{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.index[key]
	return e, ok
}

// HandleKey matches the event against the index and, on a hit with a
// non-empty selection, opens the search. The returned bool reports whether
// the event was consumed and should not propagate further; a hit consumes
// the event even when the selection is empty.
func (m *Matcher) HandleKey(event KeyEvent, selection string) (consumed bool, err error) {
	e, ok := m.Match(event)
	if !ok {
		return false, nil
	}

	selection = strings.TrimSpace(selection)
	if selection == "" {
		return true, nil
	}

	searchURL := e.SearchURL(selection)
	if err := m.navigator.OpenTab(searchURL); err != nil {
		logger.Error("[Shortcut] Failed to open search tab: %v", err)
		return true, err
	}
	return true, nil
}
