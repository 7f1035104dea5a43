package menu

import (
	"fmt"
	"sync"

	"github.com/reptin/rcs/internal/engine"
)

// Fixed parent entry ids for grouped menus.
const (
	TextParentID  = "search-text-parent"
	ImageParentID = "search-image-parent"

	textParentTitle  = "Search"
	imageParentTitle = "Search Image"
)

// Item is one native context-menu entry. Leaf ids equal engine ids; parent
// entries use the fixed ids above.
type Item struct {
	ID       string
	ParentID string
	Title    string
	Contexts []engine.Context
}

// Host abstracts the native context-menu API: entries are created one at a
// time and only removed wholesale.
type Host interface {
	Create(item Item) error
	RemoveAll() error
}

// MemoryHost is an in-process Host. It mirrors the native API's behavior of
// rejecting duplicate entry ids, which is what the projector's per-entry
// error isolation is for.
type MemoryHost struct {
	mu    sync.Mutex
	items []Item
	ids   map[string]bool
}

// NewMemoryHost creates an empty host.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{ids: make(map[string]bool)}
}

// Create implements Host.
func (h *MemoryHost) Create(item Item) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if item.ID == "" {
		return fmt.Errorf("menu entry id is required")
	}
	if h.ids[item.ID] {
		return fmt.Errorf("duplicate menu entry id %q", item.ID)
	}
	if item.ParentID != "" && !h.ids[item.ParentID] {
		return fmt.Errorf("unknown parent entry %q", item.ParentID)
	}
	h.ids[item.ID] = true
	h.items = append(h.items, item)
	return nil
}

// RemoveAll implements Host.
func (h *MemoryHost) RemoveAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
	h.ids = make(map[string]bool)
	return nil
}

// Items returns a snapshot of the current entries in creation order.
func (h *MemoryHost) Items() []Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Item(nil), h.items...)
}
