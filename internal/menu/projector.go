package menu

import (
	"fmt"
	"sync"

	"github.com/reptin/rcs/internal/engine"
	"github.com/reptin/rcs/internal/logger"
	"github.com/reptin/rcs/internal/nav"
	"github.com/reptin/rcs/internal/store"
)

// ClickInfo describes a click on a menu entry.
type ClickInfo struct {
	MenuItemID    string
	SelectionText string
	SrcURL        string
	MediaType     string
}

// Projector keeps the native context menu in lockstep with the enabled
// subset of the engine collection. It always rebuilds from scratch so a
// late or reordered change notification cannot leave a half-updated menu.
type Projector struct {
	store     *store.Store
	host      Host
	navigator nav.Navigator

	// Serializes rebuilds triggered from concurrent notification sources.
	rebuildMu sync.Mutex

	unsubscribe func()
}

// NewProjector wires a projector to its store, menu host and navigator.
func NewProjector(s *store.Store, host Host, navigator nav.Navigator) *Projector {
	return &Projector{store: s, host: host, navigator: navigator}
}

// Start performs the initial build and subscribes to collection changes.
func (p *Projector) Start() error {
	if err := p.Rebuild(); err != nil {
		return err
	}
	p.unsubscribe = p.store.Subscribe(func([]engine.Engine) {
		if err := p.Rebuild(); err != nil {
			logger.Error("[Menu] Rebuild after change failed: %v", err)
		}
	})
	return nil
}

// Stop detaches the projector from the store.
func (p *Projector) Stop() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}

// Rebuild removes every entry and recreates the tree from the enabled
// engines. Per-entry create failures are logged and do not abort siblings.
func (p *Projector) Rebuild() error {
	p.rebuildMu.Lock()
	defer p.rebuildMu.Unlock()

	if err := p.host.RemoveAll(); err != nil {
		return fmt.Errorf("failed to clear menu: %w", err)
	}

	var selection, image []engine.Engine
	for _, e := range p.store.Get() {
		if !e.Enabled {
			continue
		}
		if e.HasContext(engine.ContextSelection) {
			selection = append(selection, e)
		}
		if e.HasContext(engine.ContextImage) {
			image = append(image, e)
		}
	}

	p.buildPartition(selection, engine.ContextSelection, TextParentID, textParentTitle)
	p.buildPartition(image, engine.ContextImage, ImageParentID, imageParentTitle)

	logger.Debug("[Menu] Created %d text and %d image search entries", len(selection), len(image))
	return nil
}

func (p *Projector) buildPartition(engines []engine.Engine, ctx engine.Context, parentID, parentTitle string) {
	switch len(engines) {
	case 0:
		return
	case 1:
		p.create(Item{
			ID:       engines[0].ID,
			Title:    engines[0].Title,
			Contexts: []engine.Context{ctx},
		})
	default:
		p.create(Item{
			ID:       parentID,
			Title:    parentTitle,
			Contexts: []engine.Context{ctx},
		})
		for _, e := range engines {
			p.create(Item{
				ID:       e.ID,
				ParentID: parentID,
				Title:    e.Title,
				Contexts: []engine.Context{ctx},
			})
		}
	}
}

func (p *Projector) create(item Item) {
	if err := p.host.Create(item); err != nil {
		logger.Error("[Menu] Failed to create entry %q: %v", item.ID, err)
	}
}

// HandleClick resolves the clicked entry to an engine and query and opens
// the search in a new tab. Clicks carrying neither an image source nor a
// text selection do not navigate.
func (p *Projector) HandleClick(info ClickInfo) error {
	var target *engine.Engine
	for _, e := range p.store.Get() {
		if e.ID == info.MenuItemID {
			found := e
			target = &found
			break
		}
	}
	if target == nil {
		return nil
	}

	var searchURL string
	switch {
	case info.MediaType == "image" && info.SrcURL != "":
		searchURL = target.SearchURL(info.SrcURL)
	case info.SelectionText != "":
		searchURL = target.SearchURL(info.SelectionText)
	default:
		return nil
	}

	if err := p.navigator.OpenTab(searchURL); err != nil {
		return fmt.Errorf("failed to open search tab: %w", err)
	}
	return nil
}
