package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	naturaldate "github.com/tj/go-naturaldate"

	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/grid"
)

const (
	backToBackGap     = 15 * time.Minute
	quietTomorrowMax  = 3
	focusBlockStart   = 9
	focusBlockEnd     = 11
	focusBlockColor   = "#8E24AA"
	confidenceTight   = 0.85
	confidenceFocus   = 0.75
	confidenceOverlap = 0.9
)

// Heuristic is the built-in provider: no model behind it, just schedule
// arithmetic and keyword routing.
type Heuristic struct{}

func NewHeuristic() Heuristic { return Heuristic{} }

func (Heuristic) GenerateSuggestions(_ context.Context, events []contract.Event, actx Context) ([]contract.Suggestion, error) {
	var out []contract.Suggestion
	out = append(out, scanBackToBack(events)...)
	out = append(out, scanQuietTomorrow(events, actx.Now)...)
	out = append(out, scanOverlaps(events)...)
	return out, nil
}

// scanBackToBack flags adjacent same-day pairs whose gap is below fifteen
// minutes. Only neighbours in start order are checked, so a chain of three
// tight meetings yields two suggestions.
func scanBackToBack(events []contract.Event) []contract.Suggestion {
	sorted := make([]contract.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var out []contract.Suggestion
	for i := 0; i+1 < len(sorted); i++ {
		cur, next := sorted[i], sorted[i+1]
		if !grid.SameDay(cur.End, next.Start) {
			continue
		}
		gap := next.Start.Sub(cur.End)
		if gap < 0 || gap >= backToBackGap {
			continue
		}
		out = append(out, contract.Suggestion{
			Kind:            contract.SuggestOptimization,
			Message:         fmt.Sprintf("You have back-to-back meetings: %q and %q. Consider a 15-minute break between them.", cur.Title, next.Title),
			Confidence:      confidenceTight,
			RelatedEventIDs: []string{cur.ID, next.ID},
		})
	}
	return out
}

// scanQuietTomorrow proposes a morning focus block when tomorrow holds fewer
// than three events.
func scanQuietTomorrow(events []contract.Event, now time.Time) []contract.Suggestion {
	tomorrow := grid.StartOfDay(now).AddDate(0, 0, 1)
	count := 0
	for _, ev := range events {
		if grid.SameDay(ev.Start, tomorrow) {
			count++
		}
	}
	if count >= quietTomorrowMax {
		return nil
	}
	start := grid.At(tomorrow, focusBlockStart, 0)
	end := grid.At(tomorrow, focusBlockEnd, 0)
	return []contract.Suggestion{{
		Kind:       contract.SuggestNewEvent,
		Message:    "You have free time tomorrow morning. Schedule a focus block?",
		Confidence: confidenceFocus,
		Proposed: &contract.EventProposal{
			Title:    "Focus Time",
			Start:    &start,
			End:      &end,
			Color:    focusBlockColor,
			Category: "work",
			Tags:     []string{"focus", "productivity"},
		},
	}}
}

// scanOverlaps checks every unordered pair; a pair conflicts when one start
// falls strictly inside the other interval or one interval strictly contains
// the other. At most one conflict is reported per outer event.
func scanOverlaps(events []contract.Event) []contract.Suggestion {
	var out []contract.Suggestion
	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			a, b := events[i], events[j]
			if !pairConflicts(a, b) {
				continue
			}
			out = append(out, contract.Suggestion{
				Kind:            contract.SuggestConflict,
				Message:         fmt.Sprintf("There's a scheduling conflict between %q and %q.", a.Title, b.Title),
				Confidence:      confidenceOverlap,
				RelatedEventIDs: []string{a.ID, b.ID},
			})
			break
		}
	}
	return out
}

func pairConflicts(a, b contract.Event) bool {
	return strictlyInside(a.Start, b) ||
		strictlyInside(a.End, b) ||
		(a.Start.Before(b.Start) && a.End.After(b.End))
}

func strictlyInside(t time.Time, ev contract.Event) bool {
	return t.After(ev.Start) && t.Before(ev.End)
}

type intent struct {
	name     string
	keywords []string
	respond  func(msg string, actx Context) string
}

// Ordered; the first intent with a matching keyword wins, the final entry is
// the fallback.
var intents = []intent{
	{name: "schedule", keywords: []string{"schedule", "create", "add"}, respond: replySchedule},
	{name: "free-time", keywords: []string{"free", "available"}, respond: replyFreeTime},
	{name: "busy", keywords: []string{"busy", "schedule look"}, respond: replyBusy},
	{name: "reschedule", keywords: []string{"reschedule", "move"}, respond: func(string, Context) string {
		return "Which event would you like to reschedule? I can suggest alternative times based on your availability."
	}},
	{name: "cancel", keywords: []string{"cancel", "delete"}, respond: func(string, Context) string {
		return "Which event would you like to cancel? Give me its name or date."
	}},
	{name: "reminder", keywords: []string{"remind", "notification"}, respond: func(string, Context) string {
		return "I can set up reminders. Should I add a notification to a specific event or change your default reminder preferences?"
	}},
	{name: "conflict", keywords: []string{"conflict", "overlap"}, respond: replyConflict},
	{name: "analytics", keywords: []string{"analyze", "insight"}, respond: replyAnalytics},
	{name: "optimize", keywords: []string{"optimize", "improve"}, respond: func(string, Context) string {
		return "You have several short meetings scattered through the day. Want me to suggest grouping them into larger focused blocks?"
	}},
	{name: "greeting", keywords: []string{"hello", "hi", "hey"}, respond: func(string, Context) string {
		return "Hello! I can help you manage your schedule, create events, find free time, and tidy up your calendar. What do you need?"
	}},
	{name: "thanks", keywords: []string{"thank"}, respond: func(string, Context) string {
		return "You're welcome! Let me know if you need anything else."
	}},
	{name: "help", keywords: []string{"help"}, respond: func(string, Context) string {
		return "I can schedule events, find free time, reschedule meetings, set reminders, resolve conflicts, and summarize your calendar. What would you like?"
	}},
	{name: "fallback", keywords: nil, respond: func(string, Context) string {
		return "I'm here to help with your calendar. I can schedule events, find free time, or look over your week. How can I assist?"
	}},
}

func (Heuristic) Reply(_ context.Context, transcript []contract.Message, actx Context) (string, error) {
	if len(transcript) == 0 || transcript[len(transcript)-1].Role != contract.RoleUser {
		return "I'm here to help you manage your calendar. What can I assist you with?", nil
	}
	msg := strings.ToLower(transcript[len(transcript)-1].Text)
	for _, in := range intents {
		if len(in.keywords) == 0 {
			return in.respond(msg, actx), nil
		}
		for _, kw := range in.keywords {
			if strings.Contains(msg, kw) {
				return in.respond(msg, actx), nil
			}
		}
	}
	return intents[len(intents)-1].respond(msg, actx), nil
}

func replySchedule(msg string, actx Context) string {
	if when, err := naturaldate.Parse(msg, actx.Now, naturaldate.WithDirection(naturaldate.Future)); err == nil && !when.Equal(actx.Now) {
		return fmt.Sprintf("I can set that up for %s. What should the event be called?", when.Format("Monday, Jan 2 at 15:04"))
	}
	if strings.Contains(msg, "meeting") {
		return "Happy to schedule a meeting. What's the title, date, and time?"
	}
	if strings.Contains(msg, "appointment") {
		return "I can add that appointment. When is it, and how long should I block?"
	}
	return "I can add that to your calendar. What type of event is it, and when?"
}

func replyFreeTime(_ string, actx Context) string {
	if len(actx.Upcoming) == 0 {
		return fmt.Sprintf("Your calendar is wide open. Your working hours are %s to %s; want me to block some focus time?", actx.Preferences.WorkStart, actx.Preferences.WorkEnd)
	}
	next := actx.Upcoming[0]
	return fmt.Sprintf("Your next commitment is %q %s. Before that you're free; want me to block any of that time?", next.Title, humanize.RelTime(next.Start, actx.Now, "ago", "from now"))
}

func replyBusy(_ string, actx Context) string {
	if len(actx.Upcoming) == 0 {
		return "Nothing is coming up on your calendar."
	}
	busiest, count := busiestDay(actx.Upcoming)
	return fmt.Sprintf("You have %d events coming up. The busiest day looks like %s with %d scheduled.", len(actx.Upcoming), busiest.Format("Monday"), count)
}

func replyConflict(_ string, actx Context) string {
	active := 0
	for _, sg := range actx.Suggestions {
		if sg.Kind == contract.SuggestConflict && !sg.Applied && !sg.Dismissed {
			active++
		}
	}
	if active == 0 {
		return "I checked your calendar and found no overlapping events."
	}
	return fmt.Sprintf("I found %d potential conflicts on your calendar. Want me to suggest alternative times?", active)
}

func replyAnalytics(_ string, actx Context) string {
	total := len(actx.Recent) + len(actx.Upcoming)
	if total == 0 {
		return "There's not enough calendar data to analyze yet."
	}
	minutes := 0.0
	for _, ev := range actx.Upcoming {
		minutes += ev.End.Sub(ev.Start).Minutes()
	}
	return fmt.Sprintf("Across your upcoming schedule you have %d events totaling about %d minutes. Consider blocking focus time on your lighter days.", len(actx.Upcoming), int(minutes))
}

func busiestDay(events []contract.Event) (time.Time, int) {
	counts := map[string]int{}
	firsts := map[string]time.Time{}
	for _, ev := range events {
		key := ev.Start.Format("2006-01-02")
		counts[key]++
		if _, ok := firsts[key]; !ok {
			firsts[key] = ev.Start
		}
	}
	best, bestCount := time.Time{}, 0
	for key, n := range counts {
		if n > bestCount || (n == bestCount && firsts[key].Before(best)) {
			best, bestCount = firsts[key], n
		}
	}
	return best, bestCount
}
