package app

import (
	"testing"
	"time"

	"github.com/agis/aical/internal/contract"
)

func TestParsePredicates(t *testing.T) {
	preds, err := parsePredicates([]string{"title~standup", "calendar==work"})
	if err != nil {
		t.Fatalf("parsePredicates error: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("expected 2 predicates, got %d", len(preds))
	}
	if preds[0].field != "title" || preds[0].op != "~" || preds[0].value != "standup" {
		t.Fatalf("unexpected first predicate: %+v", preds[0])
	}
}

func TestParsePredicatesInvalid(t *testing.T) {
	if _, err := parsePredicates([]string{"badclause"}); err == nil {
		t.Fatalf("expected error for invalid predicate")
	}
}

func TestApplyPredicates(t *testing.T) {
	items := []contract.Event{
		{Title: "Standup", CalendarID: "work", Start: mustRFC3339(t, "2026-02-10T10:00:00+01:00")},
		{Title: "Dentist", CalendarID: "personal", Start: mustRFC3339(t, "2026-02-10T14:00:00+01:00")},
	}
	preds, err := parsePredicates([]string{"title~stand", "calendar==work"})
	if err != nil {
		t.Fatalf("parsePredicates error: %v", err)
	}
	got, err := applyPredicates(items, preds)
	if err != nil {
		t.Fatalf("applyPredicates error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Standup" {
		t.Fatalf("unexpected filtered results: %+v", got)
	}
}

func TestApplyPredicatesTimeComparison(t *testing.T) {
	items := []contract.Event{{Title: "A", Start: mustRFC3339(t, "2026-02-10T22:00:00+01:00")}}
	preds, err := parsePredicates([]string{"start>=2026-02-10T21:00:00+01:00"})
	if err != nil {
		t.Fatalf("parsePredicates error: %v", err)
	}
	got, err := applyPredicates(items, preds)
	if err != nil {
		t.Fatalf("applyPredicates error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
}

func TestApplyPredicatesTag(t *testing.T) {
	items := []contract.Event{
		{Title: "Sync", Tags: []string{"team", "weekly"}},
		{Title: "Focus"},
	}
	preds, err := parsePredicates([]string{"tag==team"})
	if err != nil {
		t.Fatalf("parsePredicates error: %v", err)
	}
	got, err := applyPredicates(items, preds)
	if err != nil {
		t.Fatalf("applyPredicates error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Sync" {
		t.Fatalf("unexpected tag match: %+v", got)
	}
}

func TestApplyPredicatesDefaultPriority(t *testing.T) {
	items := []contract.Event{{Title: "Unset"}, {Title: "High", Priority: contract.PriorityHigh}}
	preds, err := parsePredicates([]string{"priority==medium"})
	if err != nil {
		t.Fatalf("parsePredicates error: %v", err)
	}
	got, err := applyPredicates(items, preds)
	if err != nil {
		t.Fatalf("applyPredicates error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Unset" {
		t.Fatalf("expected unset priority to match medium, got %+v", got)
	}
}

func TestSortEvents(t *testing.T) {
	items := []contract.Event{
		{Title: "B", Start: mustRFC3339(t, "2026-02-10T22:00:00+01:00")},
		{Title: "A", Start: mustRFC3339(t, "2026-02-10T10:00:00+01:00")},
	}
	sortEvents(items, "title", "asc")
	if items[0].Title != "A" {
		t.Fatalf("expected A first, got %s", items[0].Title)
	}
	sortEvents(items, "title", "desc")
	if items[0].Title != "B" {
		t.Fatalf("expected B first, got %s", items[0].Title)
	}
}

func TestSortEventsPriority(t *testing.T) {
	items := []contract.Event{
		{Title: "High", Priority: contract.PriorityHigh},
		{Title: "Low", Priority: contract.PriorityLow},
		{Title: "Default"},
	}
	sortEvents(items, "priority", "desc")
	if items[0].Title != "High" || items[2].Title != "Low" {
		t.Fatalf("unexpected priority order: %+v", items)
	}
}

func mustRFC3339(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("time parse failed: %v", err)
	}
	return v
}
