package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agis/aical/internal/contract"
)

const snapshotKey = "snapshot"

// snapshot is the persisted shape of the store. Dates round-trip through
// RFC 3339 via encoding/json and come back as real time values.
type snapshot struct {
	Events      []contract.Event      `json:"events"`
	Calendars   []contract.Calendar   `json:"calendars"`
	Preferences contract.Preferences  `json:"preferences"`
	Suggestions []contract.Suggestion `json:"suggestions"`
	Messages    []contract.Message    `json:"messages"`
	SavedAt     time.Time             `json:"saved_at"`
}

type DB struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migration: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Path() string { return d.path }

func (d *DB) getState(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (d *DB) setState(key, value string) error {
	_, err := d.db.Exec(
		"INSERT INTO state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// Load rehydrates a Store from the snapshot row. An empty database is a
// normal first run and yields the seed store. Malformed state fails closed:
// a freshly seeded store is returned with reset=true and the database is
// left untouched until the next Save.
func (d *DB) Load() (*Store, bool, error) {
	raw, err := d.getState(snapshotKey)
	if err != nil {
		return nil, false, err
	}
	if raw == "" {
		return Seed(), false, nil
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Seed(), true, nil
	}
	s := New()
	for _, ev := range snap.Events {
		if ev.ID == "" || ev.Title == "" || ev.Start.IsZero() {
			continue
		}
		s.index[ev.ID] = len(s.events)
		s.events = append(s.events, ev)
	}
	s.suggestions = snap.Suggestions
	s.messages = snap.Messages
	s.calendars = snap.Calendars
	if snap.Preferences.WorkStart != "" {
		s.prefs = snap.Preferences
	}
	return s, false, nil
}

// Save serializes the full store state into the snapshot row.
func (d *DB) Save(s *Store) error {
	snap := snapshot{
		Events:      s.events,
		Calendars:   s.calendars,
		Preferences: s.prefs,
		Suggestions: s.suggestions,
		Messages:    s.messages,
		SavedAt:     s.now().UTC(),
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("serializing state: %w", err)
	}
	return d.setState(snapshotKey, string(raw))
}

// SavedAt returns when the snapshot was last written, zero when never.
func (d *DB) SavedAt() time.Time {
	raw, err := d.getState(snapshotKey)
	if err != nil || raw == "" {
		return time.Time{}
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return time.Time{}
	}
	return snap.SavedAt
}

// Corrupt overwrites the snapshot row with the given raw value. Test hook
// for the fail-closed load path.
func (d *DB) Corrupt(raw string) error { return d.setState(snapshotKey, raw) }

// Seed builds the first-run store: default calendars, preferences, and the
// assistant's opening transcript.
func Seed() *Store {
	s := New()
	s.calendars = []contract.Calendar{
		{ID: "personal", Name: "Personal", Color: contract.Palette[0], Visible: true, Default: true},
		{ID: "work", Name: "Work", Color: contract.Palette[1], Visible: true},
		{ID: "family", Name: "Family", Color: contract.Palette[2], Visible: true},
	}
	s.AppendMessage(contract.RoleSystem, "I am your calendar assistant. I can help you manage your schedule, suggest optimizations, and create events.")
	s.AppendMessage(contract.RoleAssistant, "Hello! How can I help you with your schedule today?")
	return s
}

// DefaultPath is the state database location under the user config dir.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "aical", "aical.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "aical.db"
	}
	return filepath.Join(home, ".config", "aical", "aical.db")
}
