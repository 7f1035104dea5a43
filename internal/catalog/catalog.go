package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/reptin/rcs/internal/bridge"
	"github.com/reptin/rcs/internal/engine"
)

// Platform is one suggested search platform. The catalog is what the
// companion website lists; a platform the user picks is proposed to the
// extension over the bridge as an engine.
type Platform struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	URL      string           `json:"url"` // template with a %s query placeholder
	Icon     string           `json:"icon"`
	Contexts []engine.Context `json:"contexts"`
	Tags     []string         `json:"tags,omitempty"`
	Category string           `json:"category,omitempty"`
}

// Input converts the platform into a bridge proposal.
func (p Platform) Input() bridge.EngineInput {
	return bridge.EngineInput{
		Title:    p.Title,
		URL:      p.URL,
		Contexts: p.Contexts,
		Icon:     p.Icon,
		Tags:     p.Tags,
		Source:   "catalog",
	}
}

// Store persists the platform catalog in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a catalog store at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS platforms (
			id       TEXT PRIMARY KEY,
			title    TEXT NOT NULL,
			url      TEXT NOT NULL,
			icon     TEXT,
			contexts TEXT NOT NULL,
			tags     TEXT,
			category TEXT
		)
	`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces a platform.
func (s *Store) Upsert(p Platform) error {
	if p.ID == "" || p.Title == "" {
		return fmt.Errorf("platform id and title are required")
	}
	if !strings.Contains(p.URL, engine.Placeholder) {
		return fmt.Errorf("platform url must contain the %s placeholder", engine.Placeholder)
	}
	if len(p.Contexts) == 0 {
		return fmt.Errorf("platform needs at least one context")
	}

	contexts, err := json.Marshal(p.Contexts)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO platforms (id, title, url, icon, contexts, tags, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			icon = excluded.icon,
			contexts = excluded.contexts,
			tags = excluded.tags,
			category = excluded.category
	`, p.ID, p.Title, p.URL, p.Icon, string(contexts), string(tags), p.Category)
	return err
}

// Get returns one platform by id.
func (s *Store) Get(id string) (Platform, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT id, title, url, icon, contexts, tags, category FROM platforms WHERE id = ?`, id)
	p, err := scanPlatform(row)
	if err == sql.ErrNoRows {
		return Platform{}, false, nil
	}
	if err != nil {
		return Platform{}, false, err
	}
	return p, true, nil
}

// Remove deletes a platform by id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM platforms WHERE id = ?`, id)
	return err
}

// Filter narrows a List call.
type Filter struct {
	Context  engine.Context // only platforms usable in this context
	Query    string         // substring match against title and tags
	Category string
}

// List returns platforms matching the filter, sorted by title.
func (s *Store) List(f Filter) ([]Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, title, url, icon, contexts, tags, category FROM platforms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Platform
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		if matches(p, f) {
			out = append(out, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func matches(p Platform, f Filter) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Context != "" {
		found := false
		for _, c := range p.Contexts {
			if c == f.Context {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if strings.Contains(strings.ToLower(p.Title), q) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				return true
			}
		}
		return false
	}
	return true
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlatform(row rowScanner) (Platform, error) {
	var p Platform
	var contexts, tags string
	if err := row.Scan(&p.ID, &p.Title, &p.URL, &p.Icon, &contexts, &tags, &p.Category); err != nil {
		return Platform{}, err
	}
	if err := json.Unmarshal([]byte(contexts), &p.Contexts); err != nil {
		return Platform{}, fmt.Errorf("corrupt contexts for platform %s: %w", p.ID, err)
	}
	if tags != "" && tags != "null" {
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return Platform{}, fmt.Errorf("corrupt tags for platform %s: %w", p.ID, err)
		}
	}
	return p, nil
}
