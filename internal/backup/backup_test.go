package backup

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	src := filepath.Join(dir, "rcs.db")
	if err := os.WriteFile(src, []byte("database contents"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return src
}

func TestRunOnceCopiesDatabase(t *testing.T) {
	tmp := t.TempDir()
	src := writeSource(t, tmp)
	dir := filepath.Join(tmp, "backups")

	s := NewScheduler(src, dir, 7)
	if err := s.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read backup dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != "database contents" {
		t.Fatalf("backup contents differ: %q", data)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	tmp := t.TempDir()
	src := writeSource(t, tmp)
	dir := filepath.Join(tmp, "backups")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// Older fabricated backups plus one fresh run.
	stale := []string{
		"rcs.db.20200101-000000.bak",
		"rcs.db.20200102-000000.bak",
		"rcs.db.20200103-000000.bak",
	}
	for _, name := range stale {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("old"), 0644); err != nil {
			t.Fatalf("write stale backup: %v", err)
		}
	}

	s := NewScheduler(src, dir, 2)
	if err := s.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read backup dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 backups after prune, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Name() == stale[0] || e.Name() == stale[1] {
			t.Fatalf("oldest backup survived prune: %s", e.Name())
		}
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	tmp := t.TempDir()
	s := NewScheduler(writeSource(t, tmp), filepath.Join(tmp, "backups"), 7)
	if err := s.Start("not a schedule"); err == nil {
		s.Stop()
		t.Fatal("bad schedule accepted")
	}
}

func TestMissingSourceFails(t *testing.T) {
	tmp := t.TempDir()
	s := NewScheduler(filepath.Join(tmp, "missing.db"), filepath.Join(tmp, "backups"), 7)
	if err := s.RunOnce(); err == nil {
		t.Fatal("expected error for missing source")
	}
}
