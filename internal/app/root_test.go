package app

import (
	"testing"
	"time"
)

func TestResolveEndDuration(t *testing.T) {
	start := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	end, err := resolveEnd("", "30m", start, time.UTC)
	if err != nil {
		t.Fatalf("resolveEnd error: %v", err)
	}
	want := start.Add(30 * time.Minute)
	if !end.Equal(want) {
		t.Fatalf("expected %s, got %s", want, end)
	}
}

func TestResolveEndBothSet(t *testing.T) {
	start := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	if _, err := resolveEnd("2026-02-10T13:00", "30m", start, time.UTC); err == nil {
		t.Fatalf("expected error when both end and duration are set")
	}
}

func TestResolveEndDefaultsToOneHour(t *testing.T) {
	start := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	end, err := resolveEnd("", "", start, time.UTC)
	if err != nil {
		t.Fatalf("resolveEnd error: %v", err)
	}
	if !end.Equal(start.Add(time.Hour)) {
		t.Fatalf("expected one hour default, got %s", end)
	}
}

func TestResolveEndBeforeStart(t *testing.T) {
	start := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	if _, err := resolveEnd("2026-02-10T11:00", "", start, time.UTC); err == nil {
		t.Fatalf("expected error for end before start")
	}
}

func TestBuildRangeWidensBareDates(t *testing.T) {
	from, to, err := buildRange("2026-02-09", "2026-02-11", time.UTC)
	if err != nil {
		t.Fatalf("buildRange error: %v", err)
	}
	if got, want := from.Format(time.RFC3339), "2026-02-09T00:00:00Z"; got != want {
		t.Fatalf("from=%s want=%s", got, want)
	}
	if got, want := to.Format(time.RFC3339), "2026-02-11T23:59:59Z"; got != want {
		t.Fatalf("to=%s want=%s", got, want)
	}
}

func TestBuildRangeInverted(t *testing.T) {
	if _, _, err := buildRange("2026-02-11", "2026-02-09", time.UTC); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestParseWeekStart(t *testing.T) {
	wd, err := parseWeekStart("monday")
	if err != nil || wd != time.Monday {
		t.Fatalf("expected monday, got %v err=%v", wd, err)
	}
	wd, err = parseWeekStart("sun")
	if err != nil || wd != time.Sunday {
		t.Fatalf("expected sunday, got %v err=%v", wd, err)
	}
	if _, err := parseWeekStart("fri"); err == nil {
		t.Fatalf("expected error for invalid week start")
	}
}

func TestParseMonthOrDate(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 11, 9, 0, 0, 0, loc)
	ts, err := parseMonthOrDate("2026-03", now, loc)
	if err != nil {
		t.Fatalf("parseMonthOrDate month error: %v", err)
	}
	if got, want := ts.Format(time.RFC3339), "2026-03-01T00:00:00Z"; got != want {
		t.Fatalf("got=%s want=%s", got, want)
	}
	ts, err = parseMonthOrDate("+7d", now, loc)
	if err != nil {
		t.Fatalf("parseMonthOrDate relative error: %v", err)
	}
	if got, want := ts.Format(time.RFC3339), "2026-02-18T00:00:00Z"; got != want {
		t.Fatalf("got=%s want=%s", got, want)
	}
}

func TestParsePriorities(t *testing.T) {
	ps, err := parsePriorities([]string{"low", "HIGH"})
	if err != nil {
		t.Fatalf("parsePriorities error: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("expected 2 priorities, got %d", len(ps))
	}
	if _, err := parsePriorities([]string{"urgent"}); err == nil {
		t.Fatalf("expected error for invalid priority")
	}
}

func TestWantsStructuredErrorOutput(t *testing.T) {
	if !wantsStructuredErrorOutput([]string{"events", "list", "--json"}) {
		t.Fatalf("expected structured output for --json")
	}
	if wantsStructuredErrorOutput([]string{"events", "list", "--", "--json"}) {
		t.Fatalf("expected no structured output after --")
	}
}
