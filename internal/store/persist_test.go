package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/agis/aical/internal/contract"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "aical.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadFreshDatabaseSeeds(t *testing.T) {
	db := openTestDB(t)
	s, reset, err := db.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if reset {
		t.Fatalf("fresh database is a normal first run, not a reset")
	}
	if len(s.Calendars()) == 0 {
		t.Fatalf("seed store must carry default calendars")
	}
	if len(s.Messages()) != 2 {
		t.Fatalf("seed store must carry the opening transcript, got %d messages", len(s.Messages()))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := newTestStore()
	s.SetCalendars([]contract.Calendar{{ID: "work", Name: "Work", Color: "#EA4335", Visible: true}})
	start := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)
	ev, _ := s.Add(contract.Event{Title: "Planning", Start: start, End: start.Add(time.Hour), Tags: []string{"q2"}})
	s.AddSuggestion(contract.Suggestion{Kind: contract.SuggestOptimization, Message: "tight schedule", Confidence: 0.85})
	s.AppendMessage(contract.RoleUser, "what's next?")

	if err := db.Save(s); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, reset, err := db.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if reset {
		t.Fatalf("saved state must not reset")
	}
	got, ok := loaded.Get(ev.ID)
	if !ok {
		t.Fatalf("event lost in round trip")
	}
	if !got.Start.Equal(start) {
		t.Fatalf("start did not round-trip as a time value: %v", got.Start)
	}
	if got.Start.IsZero() || got.Tags[0] != "q2" {
		t.Fatalf("fields lost: %+v", got)
	}
	if len(loaded.Suggestions()) != 1 || len(loaded.Messages()) != 1 {
		t.Fatalf("collections lost: %d suggestions, %d messages", len(loaded.Suggestions()), len(loaded.Messages()))
	}
	if db.SavedAt().IsZero() {
		t.Fatalf("SavedAt should be recorded")
	}
}

func TestLoadMalformedStateFailsClosed(t *testing.T) {
	db := openTestDB(t)
	if err := db.Corrupt("{not json"); err != nil {
		t.Fatalf("Corrupt error: %v", err)
	}
	s, reset, err := db.Load()
	if err != nil {
		t.Fatalf("malformed state must not error, got %v", err)
	}
	if !reset {
		t.Fatalf("malformed state must reset to defaults")
	}
	if s.Len() != 0 {
		t.Fatalf("reset store must be empty of events")
	}
}

func TestLoadSkipsInvalidEvents(t *testing.T) {
	db := openTestDB(t)
	if err := db.Corrupt(`{"events":[{"id":"","title":"ghost"},{"id":"ok","title":"Kept","start":"2026-04-01T10:00:00Z","end":"2026-04-01T11:00:00Z"}]}`); err != nil {
		t.Fatalf("Corrupt error: %v", err)
	}
	s, reset, err := db.Load()
	if err != nil || reset {
		t.Fatalf("partial state should load: err=%v reset=%v", err, reset)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 valid event, got %d", s.Len())
	}
}
