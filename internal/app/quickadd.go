package app

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/timeparse"
)

var clockRe = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

func newQuickAddCmd(opts *globalOptions) *cobra.Command {
	return newQuickAddCommand(opts, "quick-add")
}

func newEventsQuickAddCmd(opts *globalOptions) *cobra.Command {
	return newQuickAddCommand(opts, "events.quick-add")
}

func newQuickAddCommand(opts *globalOptions, commandName string) *cobra.Command {
	var calendar string
	var duration string
	var dryRun bool
	var allDay bool
	cmd := &cobra.Command{
		Use:   "quick-add <text>",
		Short: "Create an event from natural text",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			p, state, ro, err := buildContext(c, opts, commandName)
			if err != nil {
				return err
			}
			defer state.Close()
			loc := resolveLocation(ro.TZ)
			defaultDuration := 60 * time.Minute
			if strings.TrimSpace(duration) != "" {
				parsed, err := time.ParseDuration(duration)
				if err != nil || parsed <= 0 {
					_ = p.Error(contract.ErrInvalidUsage, "invalid --duration", "Use a positive Go duration like 30m or 1h")
					return Wrap(2, fmt.Errorf("invalid --duration: %q", duration))
				}
				defaultDuration = parsed
			}
			ev, err := parseQuickAddEvent(args[0], time.Now(), loc, defaultCalendarID(state, calendar), defaultDuration, allDay)
			if err != nil {
				_ = p.Error(contract.ErrInvalidUsage, err.Error(), `Example: aical quick-add "tomorrow 10:00 Standup @work #team 30m"`)
				return Wrap(2, err)
			}
			if dryRun {
				return p.Success(ev, map[string]any{"dry_run": true}, state.Warnings())
			}
			created, err := state.Store.Add(ev)
			if err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Retry with a different title or time", 1)
			}
			if err := state.Save(); err != nil {
				return failWithHint(p, contract.ErrStateUnavailable, err, "Check the state database", 6)
			}
			_ = appendHistory(historyEntry{Type: "add", EventID: created.ID, Created: &created})
			return p.Success(created, map[string]any{"count": 1}, state.Warnings())
		},
	}
	cmd.Flags().StringVar(&calendar, "calendar", "", "Default calendar if @calendar is missing")
	cmd.Flags().StringVar(&duration, "duration", "1h", "Default duration if missing in text")
	cmd.Flags().BoolVar(&allDay, "all-day", false, "Create an all-day event")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview without writing")
	return cmd
}

// parseQuickAddEvent reads "when what [@calendar] [#tag]... [!priority] [dur]"
// where the leading tokens carry the date and optional HH:MM clock.
func parseQuickAddEvent(input string, now time.Time, loc *time.Location, defaultCalendar string, defaultDuration time.Duration, allDay bool) (contract.Event, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return contract.Event{}, fmt.Errorf("input is required")
	}
	tokens := strings.Fields(text)
	start, consumed, hasTime, err := parseQuickAddStart(tokens, now, loc)
	if err != nil {
		return contract.Event{}, err
	}
	if consumed >= len(tokens) {
		return contract.Event{}, fmt.Errorf("missing title")
	}
	duration := defaultDuration
	calendar := strings.TrimSpace(defaultCalendar)
	calendarFromText := false
	var tags []string
	var priority contract.Priority
	titleParts := make([]string, 0, len(tokens)-consumed)
	for _, tok := range tokens[consumed:] {
		if strings.HasPrefix(tok, "@") && len(tok) > 1 && !calendarFromText {
			calendar = strings.TrimSpace(tok[1:])
			calendarFromText = true
			continue
		}
		if strings.HasPrefix(tok, "#") && len(tok) > 1 {
			tags = append(tags, strings.TrimSpace(tok[1:]))
			continue
		}
		if strings.HasPrefix(tok, "!") && len(tok) > 1 {
			pr, err := parsePriorityToken(tok[1:])
			if err != nil {
				return contract.Event{}, err
			}
			priority = pr
			continue
		}
		if d, ok := parseQuickAddDuration(tok); ok {
			duration = d
			continue
		}
		titleParts = append(titleParts, tok)
	}
	title := strings.TrimSpace(strings.Join(titleParts, " "))
	if title == "" {
		return contract.Event{}, fmt.Errorf("missing title")
	}
	if !allDay && !hasTime {
		return contract.Event{}, fmt.Errorf("missing time; include HH:MM or use --all-day")
	}
	if duration <= 0 {
		return contract.Event{}, fmt.Errorf("duration must be positive")
	}
	end := start.Add(duration)
	if allDay {
		y, m, d := start.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		end = start.Add(24 * time.Hour)
	}
	return contract.Event{
		CalendarID: calendar,
		Title:      title,
		Start:      start,
		End:        end,
		AllDay:     allDay,
		Tags:       tags,
		Priority:   priority,
	}, nil
}

func parseQuickAddStart(tokens []string, now time.Time, loc *time.Location) (time.Time, int, bool, error) {
	if len(tokens) == 0 {
		return time.Time{}, 0, false, fmt.Errorf("missing date/time")
	}
	if len(tokens) >= 2 && isDayToken(tokens[0]) && clockRe.MatchString(tokens[1]) {
		day, err := timeparse.ParseDateTime(tokens[0], now, loc)
		if err != nil {
			return time.Time{}, 0, false, fmt.Errorf("invalid day: %w", err)
		}
		hour, minute, err := timeparse.ParseClock(tokens[1])
		if err != nil {
			return time.Time{}, 0, false, err
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
		return start, 2, true, nil
	}
	if len(tokens) >= 2 && isDateLeadWord(tokens[0]) {
		joined := tokens[0] + " " + tokens[1]
		if day, err := timeparse.ParseDateTime(joined, now, loc); err == nil {
			if len(tokens) >= 3 && clockRe.MatchString(tokens[2]) {
				hour, minute, err := timeparse.ParseClock(tokens[2])
				if err != nil {
					return time.Time{}, 0, false, err
				}
				return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), 3, true, nil
			}
			return day, 2, false, nil
		}
	}
	ts, err := timeparse.ParseDateTime(tokens[0], now, loc)
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("invalid date/time")
	}
	return ts, 1, strings.Contains(tokens[0], ":"), nil
}

func parseQuickAddDuration(token string) (time.Duration, bool) {
	if token == "" {
		return 0, false
	}
	d, err := time.ParseDuration(token)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func parsePriorityToken(s string) (contract.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return contract.PriorityLow, nil
	case "medium", "med":
		return contract.PriorityMedium, nil
	case "high":
		return contract.PriorityHigh, nil
	default:
		return "", fmt.Errorf("invalid priority: %s", s)
	}
}

// isDateLeadWord reports whether the token opens a two-word date phrase like
// "next tuesday". Joining arbitrary tokens is unsafe: the natural parser
// tolerates a trailing word, which would swallow the title.
func isDateLeadWord(token string) bool {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "next", "last", "this":
		return true
	}
	return false
}

func isDayToken(token string) bool {
	s := strings.ToLower(strings.TrimSpace(token))
	if s == "today" || s == "tomorrow" || s == "yesterday" {
		return true
	}
	if strings.HasSuffix(s, "d") && (strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-")) {
		return true
	}
	if _, err := time.Parse("2006-01-02", token); err == nil {
		return true
	}
	return false
}
