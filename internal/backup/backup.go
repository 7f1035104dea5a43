package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/reptin/rcs/internal/logger"
)

// Scheduler periodically copies the storage database to a backup
// directory and prunes old copies.
type Scheduler struct {
	cron   *cron.Cron
	source string
	dir    string
	keep   int
}

// NewScheduler creates a scheduler for the given database file.
func NewScheduler(source, dir string, keep int) *Scheduler {
	if keep <= 0 {
		keep = 7
	}
	return &Scheduler{
		cron:   cron.New(),
		source: source,
		dir:    dir,
		keep:   keep,
	}
}

// Start registers the schedule and begins running. The schedule is a
// standard 5-field cron expression.
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunOnce(); err != nil {
			logger.Error("[Backup] Backup failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	logger.Info("[Backup] Scheduled database backup: %s -> %s (%s)", s.source, s.dir, schedule)
	return nil
}

// Stop halts the schedule and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce copies the database now and prunes old backups.
func (s *Scheduler) RunOnce() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("%s.%s.bak", filepath.Base(s.source), time.Now().Format("20060102-150405"))
	dst := filepath.Join(s.dir, name)
	if err := copyFile(s.source, dst); err != nil {
		return err
	}
	logger.Info("[Backup] Wrote %s", dst)

	return s.prune()
}

// prune removes the oldest backups beyond the retention count.
func (s *Scheduler) prune() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	prefix := filepath.Base(s.source) + "."
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".bak") {
			backups = append(backups, e.Name())
		}
	}
	if len(backups) <= s.keep {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-s.keep] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			logger.Warn("[Backup] Failed to prune %s: %v", name, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open database for backup: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dst), ".backup-*")
	if err != nil {
		return err
	}
	tmp := out.Name()
	defer os.Remove(tmp)

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
