package bridge

import (
	"fmt"
	"strings"

	"github.com/reptin/rcs/internal/engine"
	"github.com/reptin/rcs/internal/logger"
	"github.com/reptin/rcs/internal/menu"
	"github.com/reptin/rcs/internal/store"
)

// Core executes bridge requests against the engine store. It owns the
// validation and deduplication rules for engines proposed by the catalog,
// and refreshes the menu projection before a mutating request is answered.
type Core struct {
	store     *store.Store
	projector *menu.Projector
	version   string
}

// NewCore creates a core handler. The projector may be nil in surfaces that
// carry no menu.
func NewCore(s *store.Store, projector *menu.Projector, version string) *Core {
	return &Core{store: s, projector: projector, version: version}
}

// Version returns the extension version reported in handshake acks.
func (c *Core) Version() string { return c.version }

// Engines returns the current collection.
func (c *Core) Engines() []engine.Engine {
	return c.store.Get()
}

// AddEngines validates, deduplicates and appends proposed engines in one
// atomic write. Invalid proposals are dropped silently; duplicates of
// existing engines (same url and context set) are skipped. The menu is
// rebuilt before the result is returned so the caller observes an
// up-to-date projection, not just an updated store.
func (c *Core) AddEngines(inputs []EngineInput) Result {
	valid := make([]EngineInput, 0, len(inputs))
	for _, in := range inputs {
		if !validInput(in) {
			logger.Debug("[Bridge] Dropping invalid engine proposal: %q", in.Title)
			continue
		}
		valid = append(valid, in)
	}
	if len(valid) == 0 {
		return Result{OK: false, Message: "no valid engines provided"}
	}

	added := 0
	err := c.store.SetFunc(func(current []engine.Engine) []engine.Engine {
		added = 0
		existing := make(map[string]bool, len(current))
		for _, e := range current {
			existing[e.DedupeKey()] = true
		}
		for _, in := range valid {
			e := inputToEngine(in)
			if existing[e.DedupeKey()] {
				continue
			}
			existing[e.DedupeKey()] = true
			current = append(current, e)
			added++
		}
		return current
	})
	if err != nil {
		logger.Error("[Bridge] Failed to add engines: %v", err)
		return Result{OK: false, Message: err.Error()}
	}

	c.refreshMenu()
	logger.Info("[Bridge] Added %d engines from catalog", added)
	return Result{OK: true, Message: fmt.Sprintf("%d platforms added", added)}
}

// RemoveEngine removes every engine whose url template matches.
func (c *Core) RemoveEngine(url string) Result {
	removed := 0
	err := c.store.SetFunc(func(current []engine.Engine) []engine.Engine {
		removed = 0
		out := current[:0]
		for _, e := range current {
			if e.URL == url {
				removed++
				continue
			}
			out = append(out, e)
		}
		return out
	})
	if err != nil {
		logger.Error("[Bridge] Failed to remove engine: %v", err)
		return Result{OK: false, Message: err.Error()}
	}
	if removed == 0 {
		return Result{OK: false, Message: "engine not found"}
	}

	c.refreshMenu()
	logger.Info("[Bridge] Removed %d engines by url", removed)
	return Result{OK: true, Message: fmt.Sprintf("%d platforms removed", removed)}
}

func (c *Core) refreshMenu() {
	if c.projector == nil {
		return
	}
	if err := c.projector.Rebuild(); err != nil {
		logger.Error("[Bridge] Menu refresh failed: %v", err)
	}
}

func validInput(in EngineInput) bool {
	return in.Title != "" &&
		strings.Contains(in.URL, engine.Placeholder) &&
		len(in.Contexts) > 0
}

func inputToEngine(in EngineInput) engine.Engine {
	icon := in.Icon
	iconType := engine.IconEmoji
	if icon == "" {
		icon = "🔍"
	} else if strings.HasPrefix(icon, "http://") || strings.HasPrefix(icon, "https://") {
		iconType = engine.IconURL
	}
	now := engine.Now()
	return engine.Engine{
		ID:        "catalog-" + strings.TrimPrefix(engine.NewID(), "custom-"),
		Title:     in.Title,
		URL:       in.URL,
		Icon:      icon,
		IconType:  iconType,
		Enabled:   true,
		IsDefault: false,
		Contexts:  append([]engine.Context(nil), in.Contexts...),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
