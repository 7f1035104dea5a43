package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteBackend persists the collection record in a SQLite database.
// Change notifications fan out to watchers attached to this backend.
type SQLiteBackend struct {
	db       *sql.DB
	mu       sync.Mutex
	watchers map[int]func([]byte, uint64)
	nextID   int
}

// NewSQLiteBackend opens (or creates) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	b := &SQLiteBackend{db: db, watchers: make(map[int]func([]byte, uint64))}
	if err := b.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) init() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			key     TEXT PRIMARY KEY,
			data    TEXT NOT NULL,
			version INTEGER NOT NULL
		)
	`)
	return err
}

// Load implements Backend.
func (b *SQLiteBackend) Load() ([]byte, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var data []byte
	var version uint64
	err := b.db.QueryRow(`SELECT data, version FROM records WHERE key = ?`, StorageKey).
		Scan(&data, &version)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load record: %w", err)
	}
	return data, version, nil
}

// Save implements Backend.
func (b *SQLiteBackend) Save(data []byte, prev uint64) (uint64, error) {
	b.mu.Lock()

	next := prev + 1
	var res sql.Result
	var err error
	if prev == 0 {
		// First write wins only if no record exists yet.
		res, err = b.db.Exec(
			`INSERT INTO records (key, data, version) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO NOTHING`,
			StorageKey, data, next)
	} else {
		res, err = b.db.Exec(
			`UPDATE records SET data = ?, version = ? WHERE key = ? AND version = ?`,
			data, next, StorageKey, prev)
	}
	if err != nil {
		b.mu.Unlock()
		return 0, fmt.Errorf("failed to save record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		b.mu.Unlock()
		return 0, fmt.Errorf("failed to save record: %w", err)
	}
	if n == 0 {
		b.mu.Unlock()
		return 0, ErrConflict
	}

	watchers := make([]func([]byte, uint64), 0, len(b.watchers))
	for _, fn := range b.watchers {
		watchers = append(watchers, fn)
	}
	b.mu.Unlock()

	snapshot := append([]byte(nil), data...)
	for _, fn := range watchers {
		go fn(snapshot, next)
	}
	return next, nil
}

// Watch implements Backend.
func (b *SQLiteBackend) Watch(fn func([]byte, uint64)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.watchers[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.watchers, id)
	}
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
