package store

import (
	"strings"
	"testing"

	"github.com/reptin/rcs/internal/engine"
)

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add(sampleEngine("extra")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	original := s.Get()

	doc, err := ExportDocument(original)
	if err != nil {
		t.Fatalf("ExportDocument: %v", err)
	}

	imported, err := ImportDocument(doc)
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if len(imported) != len(original) {
		t.Fatalf("round trip lost engines: %d -> %d", len(original), len(imported))
	}
	for i := range original {
		if imported[i].ID != original[i].ID ||
			imported[i].Title != original[i].Title ||
			imported[i].URL != original[i].URL ||
			imported[i].Enabled != original[i].Enabled {
			t.Fatalf("engine %d differs after round trip:\n got %+v\nwant %+v", i, imported[i], original[i])
		}
	}

	// Replaying the import onto an empty store reproduces the collection.
	fresh, err := Open(NewMemoryBackend())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fresh.Close()
	if err := fresh.Set(imported); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := fresh.Get(); len(got) != len(original) {
		t.Fatalf("restored %d engines, want %d", len(got), len(original))
	}
}

func TestImportRejectsDocumentWithInvalidItem(t *testing.T) {
	doc := `[
		{"id":"a","title":"A","url":"https://a/?q=%s","enabled":true},
		{"id":"b","title":"B","url":"https://b/?q=%s"}
	]`

	_, err := ImportDocument([]byte(doc))
	if err == nil {
		t.Fatal("expected reject-all for item missing enabled")
	}
	if !strings.Contains(err.Error(), "enabled") {
		t.Fatalf("error should name the missing field: %v", err)
	}
}

func TestImportRejectsWrongTypes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "enabled not boolean", doc: `[{"id":"a","title":"A","url":"u","enabled":"yes"}]`},
		{name: "title not string", doc: `[{"id":"a","title":7,"url":"u","enabled":true}]`},
		{name: "empty id", doc: `[{"id":"","title":"A","url":"u","enabled":true}]`},
		{name: "not a list", doc: `{"id":"a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ImportDocument([]byte(tt.doc)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestImportAcceptsShortcuts(t *testing.T) {
	doc := `[{
		"id": "g",
		"title": "G",
		"url": "https://g/?q=%s",
		"enabled": true,
		"contexts": ["selection"],
		"keyboardShortcut": {"key": "g", "modifiers": ["ctrl", "shift"]}
	}]`

	engines, err := ImportDocument([]byte(doc))
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if engines[0].Shortcut == nil {
		t.Fatal("shortcut dropped on import")
	}
	if engines[0].Shortcut.Canonical() != "ctrl+shift+g" {
		t.Fatalf("unexpected shortcut: %q", engines[0].Shortcut.Canonical())
	}
	if engines[0].Contexts[0] != engine.ContextSelection {
		t.Fatalf("unexpected contexts: %v", engines[0].Contexts)
	}
}
