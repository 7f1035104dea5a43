package menu

import (
	"errors"
	"reflect"
	"testing"

	"github.com/reptin/rcs/internal/engine"
	"github.com/reptin/rcs/internal/store"
)

type recordingNav struct {
	opened []string
	err    error
}

func (r *recordingNav) OpenTab(url string) error {
	if r.err != nil {
		return r.err
	}
	r.opened = append(r.opened, url)
	return nil
}

func emptyStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.NewMemoryBackend())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Set(nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	return s
}

func addEngine(t *testing.T, s *store.Store, title string, enabled bool, contexts ...engine.Context) engine.Engine {
	t.Helper()
	created, err := s.Add(engine.Engine{
		Title:    title,
		URL:      "https://" + title + "/?q=%s",
		Enabled:  enabled,
		Contexts: contexts,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return created
}

func TestRebuildEmptyCollection(t *testing.T) {
	s := emptyStore(t)
	host := NewMemoryHost()
	p := NewProjector(s, host, &recordingNav{})

	if err := p.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if len(host.Items()) != 0 {
		t.Fatalf("expected no entries, got %v", host.Items())
	}
}

func TestRebuildSingleEngineIsTopLevel(t *testing.T) {
	s := emptyStore(t)
	created := addEngine(t, s, "yt", true, engine.ContextSelection)
	host := NewMemoryHost()
	p := NewProjector(s, host, &recordingNav{})

	if err := p.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	items := host.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(items))
	}
	if items[0].ID != created.ID || items[0].ParentID != "" {
		t.Fatalf("expected top-level leaf for the engine, got %+v", items[0])
	}
	if items[0].Title != "yt" {
		t.Fatalf("unexpected title %q", items[0].Title)
	}
}

func TestRebuildMultipleEnginesGrouped(t *testing.T) {
	s := emptyStore(t)
	a := addEngine(t, s, "a", true, engine.ContextSelection)
	b := addEngine(t, s, "b", true, engine.ContextSelection)
	addEngine(t, s, "off", false, engine.ContextSelection)
	img := addEngine(t, s, "img", true, engine.ContextImage)

	host := NewMemoryHost()
	p := NewProjector(s, host, &recordingNav{})
	if err := p.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	items := host.Items()
	// Parent + two children for selection, single top-level for image.
	if len(items) != 4 {
		t.Fatalf("expected 4 entries, got %d: %v", len(items), items)
	}
	if items[0].ID != TextParentID || items[0].Title != "Search" {
		t.Fatalf("expected text parent first, got %+v", items[0])
	}
	if items[1].ID != a.ID || items[1].ParentID != TextParentID {
		t.Fatalf("unexpected first child: %+v", items[1])
	}
	if items[2].ID != b.ID || items[2].ParentID != TextParentID {
		t.Fatalf("unexpected second child: %+v", items[2])
	}
	if items[3].ID != img.ID || items[3].ParentID != "" {
		t.Fatalf("expected top-level image leaf, got %+v", items[3])
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	s := emptyStore(t)
	addEngine(t, s, "a", true, engine.ContextSelection)
	addEngine(t, s, "b", true, engine.ContextSelection)

	host := NewMemoryHost()
	p := NewProjector(s, host, &recordingNav{})
	if err := p.Rebuild(); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	first := host.Items()
	if err := p.Rebuild(); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	second := host.Items()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("rebuild not idempotent:\nfirst  %v\nsecond %v", first, second)
	}
}

func TestRebuildFollowsStoreChanges(t *testing.T) {
	s := emptyStore(t)
	host := NewMemoryHost()
	p := NewProjector(s, host, &recordingNav{})
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	addEngine(t, s, "late", true, engine.ContextSelection)

	items := host.Items()
	if len(items) != 1 || items[0].Title != "late" {
		t.Fatalf("projector did not follow store change: %v", items)
	}
}

func TestCreateFailureDoesNotAbortSiblings(t *testing.T) {
	s := emptyStore(t)
	// Same engine in both partitions: the second leaf shares the engine id
	// and is rejected by the host, like the native API rejects duplicates.
	both := addEngine(t, s, "both", true, engine.ContextSelection, engine.ContextImage)
	addEngine(t, s, "img2", true, engine.ContextImage)

	host := NewMemoryHost()
	p := NewProjector(s, host, &recordingNav{})
	if err := p.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	items := host.Items()
	// selection leaf for "both", image parent, failed duplicate child,
	// surviving "img2" child.
	var sawImg2 bool
	for _, it := range items {
		if it.Title == "img2" && it.ParentID == ImageParentID {
			sawImg2 = true
		}
	}
	if !sawImg2 {
		t.Fatalf("sibling entry lost after duplicate-id failure: %v", items)
	}
	if items[0].ID != both.ID {
		t.Fatalf("expected selection leaf first, got %+v", items[0])
	}
}

func TestHandleClickSelection(t *testing.T) {
	s := emptyStore(t)
	created := addEngine(t, s, "g", true, engine.ContextSelection)
	rec := &recordingNav{}
	p := NewProjector(s, NewMemoryHost(), rec)

	err := p.HandleClick(ClickInfo{MenuItemID: created.ID, SelectionText: "hello world"})
	if err != nil {
		t.Fatalf("HandleClick: %v", err)
	}
	if len(rec.opened) != 1 || rec.opened[0] != "https://g/?q=hello+world" {
		t.Fatalf("unexpected navigation: %v", rec.opened)
	}
}

func TestHandleClickImagePreferred(t *testing.T) {
	s := emptyStore(t)
	created := addEngine(t, s, "i", true, engine.ContextImage)
	rec := &recordingNav{}
	p := NewProjector(s, NewMemoryHost(), rec)

	err := p.HandleClick(ClickInfo{
		MenuItemID:    created.ID,
		MediaType:     "image",
		SrcURL:        "https://pics/cat.png",
		SelectionText: "ignored",
	})
	if err != nil {
		t.Fatalf("HandleClick: %v", err)
	}
	if len(rec.opened) != 1 || rec.opened[0] != "https://i/?q=https%3A%2F%2Fpics%2Fcat.png" {
		t.Fatalf("unexpected navigation: %v", rec.opened)
	}
}

func TestHandleClickWithoutPayloadDoesNotNavigate(t *testing.T) {
	s := emptyStore(t)
	created := addEngine(t, s, "g", true, engine.ContextSelection)
	rec := &recordingNav{}
	p := NewProjector(s, NewMemoryHost(), rec)

	if err := p.HandleClick(ClickInfo{MenuItemID: created.ID}); err != nil {
		t.Fatalf("HandleClick: %v", err)
	}
	if err := p.HandleClick(ClickInfo{MenuItemID: "unknown", SelectionText: "x"}); err != nil {
		t.Fatalf("HandleClick unknown: %v", err)
	}
	if len(rec.opened) != 0 {
		t.Fatalf("unexpected navigation: %v", rec.opened)
	}
}

func TestHandleClickSurfacesNavigatorError(t *testing.T) {
	s := emptyStore(t)
	created := addEngine(t, s, "g", true, engine.ContextSelection)
	rec := &recordingNav{err: errors.New("no browser")}
	p := NewProjector(s, NewMemoryHost(), rec)

	if err := p.HandleClick(ClickInfo{MenuItemID: created.ID, SelectionText: "x"}); err == nil {
		t.Fatal("expected navigation error")
	}
}
