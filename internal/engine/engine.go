package engine

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Placeholder is the query substitution marker in engine URL templates.
const Placeholder = "%s"

// IconType describes how an engine icon should be rendered.
type IconType string

const (
	IconEmoji IconType = "emoji"
	IconURL   IconType = "url"
)

// Context is a kind of page content that can trigger a search.
type Context string

const (
	ContextSelection Context = "selection"
	ContextImage     Context = "image"
	ContextLink      Context = "link"
	ContextPage      Context = "page"
)

// Modifier is a keyboard shortcut modifier key.
type Modifier string

const (
	ModCtrl  Modifier = "ctrl"
	ModAlt   Modifier = "alt"
	ModShift Modifier = "shift"
	ModMeta  Modifier = "meta"
)

// Shortcut is a keyboard chord bound to an engine.
type Shortcut struct {
	Key       string     `json:"key"`
	Modifiers []Modifier `json:"modifiers"`
}

// Valid reports whether the shortcut can be matched at all. Bare keys and
// modifier-only chords are rejected so ordinary typing is never hijacked.
func (s Shortcut) Valid() bool {
	return s.Key != "" && len(s.Modifiers) > 0
}

// Canonical returns the lookup key for the shortcut: sorted modifiers plus
// the lowercased key, joined with "+".
func (s Shortcut) Canonical() string {
	mods := make([]string, len(s.Modifiers))
	for i, m := range s.Modifiers {
		mods[i] = string(m)
	}
	sort.Strings(mods)
	return strings.Join(append(mods, strings.ToLower(s.Key)), "+")
}

// Engine is a user-defined search target.
type Engine struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Icon      string    `json:"icon"`
	IconType  IconType  `json:"iconType"`
	Enabled   bool      `json:"enabled"`
	IsDefault bool      `json:"isDefault"`
	Contexts  []Context `json:"contexts"`
	Shortcut  *Shortcut `json:"keyboardShortcut,omitempty"`
	CreatedAt int64     `json:"createdAt,omitempty"`
	UpdatedAt int64     `json:"updatedAt,omitempty"`
}

// NewID generates a fresh unique engine id.
func NewID() string {
	return "custom-" + uuid.NewString()
}

// Now returns the current time as a millisecond timestamp, matching the
// persisted document format.
func Now() int64 {
	return time.Now().UnixMilli()
}

// HasContext reports whether the engine is bound to the given context.
func (e Engine) HasContext(c Context) bool {
	for _, ec := range e.Contexts {
		if ec == c {
			return true
		}
	}
	return false
}

// SearchURL substitutes the percent-encoded query into the URL template.
// A template without the placeholder is returned unchanged; dispatch is
// deliberately permissive here, the bridge enforces the placeholder at
// creation time instead.
func (e Engine) SearchURL(query string) string {
	if !strings.Contains(e.URL, Placeholder) {
		return e.URL
	}
	return strings.Replace(e.URL, Placeholder, url.QueryEscape(query), 1)
}

// DedupeKey identifies an engine for duplicate detection: the URL template
// plus the order-independent context set.
func (e Engine) DedupeKey() string {
	ctxs := make([]string, len(e.Contexts))
	for i, c := range e.Contexts {
		ctxs[i] = string(c)
	}
	sort.Strings(ctxs)
	return e.URL + "|" + strings.Join(ctxs, ",")
}

// Clone returns a deep copy of the engine.
func (e Engine) Clone() Engine {
	out := e
	out.Contexts = append([]Context(nil), e.Contexts...)
	if e.Shortcut != nil {
		sc := *e.Shortcut
		sc.Modifiers = append([]Modifier(nil), e.Shortcut.Modifiers...)
		out.Shortcut = &sc
	}
	return out
}

// CloneAll deep-copies a collection.
func CloneAll(engines []Engine) []Engine {
	out := make([]Engine, len(engines))
	for i, e := range engines {
		out[i] = e.Clone()
	}
	return out
}

// Validate checks the structural invariants required of engines coming
// through the catalog bridge.
func (e Engine) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("engine title is required")
	}
	if e.URL == "" {
		return fmt.Errorf("engine url is required")
	}
	if !strings.Contains(e.URL, Placeholder) {
		return fmt.Errorf("engine url must contain %q placeholder", Placeholder)
	}
	if len(e.Contexts) == 0 {
		return fmt.Errorf("engine needs at least one context")
	}
	if e.Shortcut != nil && !e.Shortcut.Valid() {
		return fmt.Errorf("keyboard shortcut needs a key and at least one modifier")
	}
	return nil
}
