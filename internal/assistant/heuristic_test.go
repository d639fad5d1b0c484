package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/agis/aical/internal/contract"
)

var scanNow = time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2026, time.February, 10+offset, 0, 0, 0, 0, time.UTC)
}

func clock(d time.Time, h, m int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, time.UTC)
}

func ev(id, title string, start, end time.Time) contract.Event {
	return contract.Event{ID: id, Title: title, Start: start, End: end}
}

func scan(t *testing.T, events []contract.Event) []contract.Suggestion {
	t.Helper()
	out, err := Heuristic{}.GenerateSuggestions(context.Background(), events, Context{Now: scanNow})
	if err != nil {
		t.Fatalf("GenerateSuggestions error: %v", err)
	}
	return out
}

func byKind(sgs []contract.Suggestion, kind contract.SuggestionKind) []contract.Suggestion {
	var out []contract.Suggestion
	for _, sg := range sgs {
		if sg.Kind == kind {
			out = append(out, sg)
		}
	}
	return out
}

func TestScanTightGapFlagged(t *testing.T) {
	d := day(0)
	got := byKind(scan(t, []contract.Event{
		ev("a", "Standup", clock(d, 9, 0), clock(d, 9, 30)),
		ev("b", "Review", clock(d, 9, 44), clock(d, 10, 30)),
	}), contract.SuggestOptimization)
	if len(got) != 1 {
		t.Fatalf("14-minute gap should yield one optimization, got %d", len(got))
	}
	if got[0].Confidence != 0.85 {
		t.Fatalf("confidence = %v", got[0].Confidence)
	}
	if len(got[0].RelatedEventIDs) != 2 {
		t.Fatalf("related ids = %v", got[0].RelatedEventIDs)
	}
}

func TestScanFifteenMinuteGapIsFine(t *testing.T) {
	d := day(0)
	got := byKind(scan(t, []contract.Event{
		ev("a", "Standup", clock(d, 9, 0), clock(d, 9, 30)),
		ev("b", "Review", clock(d, 9, 45), clock(d, 10, 30)),
	}), contract.SuggestOptimization)
	if len(got) != 0 {
		t.Fatalf("15-minute gap must not be flagged: %+v", got)
	}
}

func TestScanGapAcrossDaysIgnored(t *testing.T) {
	got := byKind(scan(t, []contract.Event{
		ev("a", "Late", clock(day(0), 23, 50), clock(day(0), 23, 58)),
		ev("b", "Early", clock(day(1), 0, 5), clock(day(1), 1, 0)),
	}), contract.SuggestOptimization)
	if len(got) != 0 {
		t.Fatalf("gaps spanning midnight are not back-to-back: %+v", got)
	}
}

func TestScanOverlapConflict(t *testing.T) {
	d := day(0)
	got := byKind(scan(t, []contract.Event{
		ev("a", "Planning", clock(d, 10, 0), clock(d, 11, 0)),
		ev("b", "1:1", clock(d, 10, 30), clock(d, 11, 30)),
	}), contract.SuggestConflict)
	if len(got) != 1 {
		t.Fatalf("overlapping pair should yield exactly one conflict, got %d", len(got))
	}
	if got[0].Confidence != 0.9 {
		t.Fatalf("confidence = %v", got[0].Confidence)
	}
}

func TestScanContainmentConflict(t *testing.T) {
	d := day(0)
	got := byKind(scan(t, []contract.Event{
		ev("a", "Offsite", clock(d, 9, 0), clock(d, 17, 0)),
		ev("b", "Lunch", clock(d, 12, 0), clock(d, 13, 0)),
	}), contract.SuggestConflict)
	if len(got) != 1 {
		t.Fatalf("containment should conflict, got %d", len(got))
	}
}

func TestScanTouchingEventsDoNotConflict(t *testing.T) {
	d := day(0)
	sgs := scan(t, []contract.Event{
		ev("a", "A", clock(d, 10, 0), clock(d, 11, 0)),
		ev("b", "B", clock(d, 11, 0), clock(d, 12, 0)),
	})
	if got := byKind(sgs, contract.SuggestConflict); len(got) != 0 {
		t.Fatalf("shared boundary is not a conflict: %+v", got)
	}
	// Zero gap is still back-to-back.
	if got := byKind(sgs, contract.SuggestOptimization); len(got) != 1 {
		t.Fatalf("zero gap should be flagged as back-to-back: %+v", got)
	}
}

func TestScanQuietTomorrowProposesFocusBlock(t *testing.T) {
	tomorrow := day(1)
	sgs := scan(t, []contract.Event{
		ev("a", "Team Meeting", clock(tomorrow, 10, 0), clock(tomorrow, 11, 30)),
		ev("b", "Lunch", clock(tomorrow, 13, 0), clock(tomorrow, 14, 0)),
	})
	if got := byKind(sgs, contract.SuggestConflict); len(got) != 0 {
		t.Fatalf("unexpected conflicts: %+v", got)
	}
	if got := byKind(sgs, contract.SuggestOptimization); len(got) != 0 {
		t.Fatalf("unexpected optimizations: %+v", got)
	}
	focus := byKind(sgs, contract.SuggestNewEvent)
	if len(focus) != 1 {
		t.Fatalf("expected a focus-block proposal, got %d", len(focus))
	}
	p := focus[0].Proposed
	if p == nil || p.Title != "Focus Time" {
		t.Fatalf("proposal: %+v", p)
	}
	if p.Start.Hour() != 9 || p.End.Hour() != 11 || !p.Start.Truncate(24*time.Hour).Equal(tomorrow) {
		t.Fatalf("proposal window: %s to %s", p.Start, p.End)
	}
	if focus[0].Confidence != 0.75 {
		t.Fatalf("confidence = %v", focus[0].Confidence)
	}
}

func TestScanBusyTomorrowNoFocusBlock(t *testing.T) {
	tomorrow := day(1)
	sgs := scan(t, []contract.Event{
		ev("a", "A", clock(tomorrow, 9, 0), clock(tomorrow, 10, 0)),
		ev("b", "B", clock(tomorrow, 11, 0), clock(tomorrow, 12, 0)),
		ev("c", "C", clock(tomorrow, 14, 0), clock(tomorrow, 15, 0)),
	})
	if got := byKind(sgs, contract.SuggestNewEvent); len(got) != 0 {
		t.Fatalf("three events tomorrow should suppress the focus block: %+v", got)
	}
}

func reply(t *testing.T, text string, actx Context) string {
	t.Helper()
	if actx.Now.IsZero() {
		actx.Now = scanNow
	}
	out, err := Heuristic{}.Reply(context.Background(), []contract.Message{
		{Role: contract.RoleUser, Text: text},
	}, actx)
	if err != nil {
		t.Fatalf("Reply error: %v", err)
	}
	return out
}

func TestReplyIntentRouting(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"hello there", "Hello!"},
		{"thank you so much", "You're welcome"},
		{"can you help me", "I can schedule events"},
		{"can you move my 1:1", "reschedule"},
		{"cancel the dentist", "cancel"},
		{"remind me before the call", "reminders"},
		{"any conflicts this week?", "no overlapping events"},
		{"optimize my week", "grouping them"},
		{"what does the weather say", "I'm here to help with your calendar"},
	}
	for _, tc := range cases {
		got := reply(t, tc.text, Context{})
		if !strings.Contains(got, tc.want) {
			t.Errorf("reply(%q) = %q, want substring %q", tc.text, got, tc.want)
		}
	}
}

func TestReplyScheduleWinsOverFreeTime(t *testing.T) {
	// "schedule" and "free" both match; schedule is routed first.
	got := reply(t, "schedule something when I'm free", Context{})
	if strings.Contains(got, "wide open") {
		t.Fatalf("free-time intent must not preempt schedule: %q", got)
	}
}

func TestReplyFreeTimeMentionsNextEvent(t *testing.T) {
	next := ev("a", "Design Review", clock(day(0), 15, 0), clock(day(0), 16, 0))
	got := reply(t, "when am I free today?", Context{Upcoming: []contract.Event{next}})
	if !strings.Contains(got, "Design Review") {
		t.Fatalf("expected next event in reply: %q", got)
	}
}

func TestReplyBusySummarizesUpcoming(t *testing.T) {
	got := reply(t, "how busy am I?", Context{Upcoming: []contract.Event{
		ev("a", "A", clock(day(0), 15, 0), clock(day(0), 16, 0)),
		ev("b", "B", clock(day(1), 9, 0), clock(day(1), 10, 0)),
		ev("c", "C", clock(day(1), 11, 0), clock(day(1), 12, 0)),
	}})
	if !strings.Contains(got, "3 events") {
		t.Fatalf("expected event count in reply: %q", got)
	}
}

func TestReplyConflictCountsActiveOnly(t *testing.T) {
	got := reply(t, "do I have a conflict?", Context{Suggestions: []contract.Suggestion{
		{Kind: contract.SuggestConflict},
		{Kind: contract.SuggestConflict, Dismissed: true},
		{Kind: contract.SuggestOptimization},
	}})
	if !strings.Contains(got, "1 potential conflict") {
		t.Fatalf("expected one active conflict: %q", got)
	}
}
