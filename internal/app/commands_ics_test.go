package app

import (
	"strings"
	"testing"
	"time"

	"github.com/agis/aical/internal/contract"
)

func TestBuildICSParseICSRoundTrip(t *testing.T) {
	events := []contract.Event{
		{
			ID:       "evt-1",
			Title:    "Standup",
			Start:    time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
			End:      time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
			Location: "Room 4",
		},
		{
			ID:    "evt-2",
			Title: "Planning",
			Start: time.Date(2026, 2, 11, 14, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 2, 11, 15, 0, 0, 0, time.UTC),
		},
	}
	payload := buildICS(events)
	if !strings.Contains(payload, "BEGIN:VCALENDAR") || !strings.Contains(payload, "SUMMARY:Standup") {
		t.Fatalf("unexpected ICS payload: %q", payload)
	}

	items, warnings, err := parseICS(payload, "work")
	if err != nil {
		t.Fatalf("parseICS error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 events, got %d", len(items))
	}
	byTitle := map[string]contract.Event{}
	for _, it := range items {
		byTitle[it.Title] = it
	}
	got, ok := byTitle["Standup"]
	if !ok {
		t.Fatalf("missing Standup event: %+v", items)
	}
	if got.CalendarID != "work" {
		t.Fatalf("calendar=%q want=work", got.CalendarID)
	}
	if got.Location != "Room 4" {
		t.Fatalf("location=%q", got.Location)
	}
	if !got.Start.Equal(events[0].Start) || !got.End.Equal(events[0].End) {
		t.Fatalf("time mismatch: %s..%s", got.Start, got.End)
	}
}

func TestParseICSSkipsInvalidEntries(t *testing.T) {
	raw := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:broken-1",
		"SUMMARY:No times",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ok-1",
		"SUMMARY:Valid",
		"DTSTART:20260210T090000Z",
		"DTEND:20260210T100000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	items, warnings, err := parseICS(raw, "personal")
	if err != nil {
		t.Fatalf("parseICS error: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Valid" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
}

func TestParseICSGarbage(t *testing.T) {
	if _, _, err := parseICS("not an ics payload", "personal"); err == nil {
		t.Fatalf("expected parse error")
	}
}
