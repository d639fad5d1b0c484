package app

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/grid"
	"github.com/agis/aical/internal/timeparse"
)

func newTodayCmd(opts *globalOptions) *cobra.Command {
	var day string
	var calendars []string
	var limit int
	var summary bool
	cmd := &cobra.Command{
		Use:   "today",
		Short: "List events for a day (defaults to today)",
		RunE: func(c *cobra.Command, _ []string) error {
			p, state, ro, err := buildContext(c, opts, "today")
			if err != nil {
				return err
			}
			defer state.Close()
			loc := resolveLocation(ro.TZ)
			anchor, err := timeparse.ParseDateTime(day, time.Now(), loc)
			if err != nil {
				_ = p.Error(contract.ErrInvalidUsage, err.Error(), "Use --day as today, tomorrow, +Nd, or YYYY-MM-DD")
				return Wrap(2, err)
			}
			start, end := grid.DayBounds(anchor)
			items := calendarScoped(state.Store.ByRange(start, end), calendars)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			if summary {
				rows := summarizeEventsByDay(items, start, end, loc)
				return p.Success(rows, map[string]any{"count": len(rows), "view": contract.ViewDay, "day": start.Format("2006-01-02"), "summary": true}, state.Warnings())
			}
			return p.Success(items, map[string]any{"count": len(items), "view": contract.ViewDay, "day": start.Format("2006-01-02")}, state.Warnings())
		},
	}
	cmd.Flags().StringVar(&day, "day", "today", "Day selector")
	cmd.Flags().StringSliceVar(&calendars, "calendar", nil, "Calendar ID (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit results")
	cmd.Flags().BoolVar(&summary, "summary", false, "Group by day with counts")
	return cmd
}

func newWeekCmd(opts *globalOptions) *cobra.Command {
	var of string
	var weekStart string
	var calendars []string
	var limit int
	var summary bool
	cmd := &cobra.Command{
		Use:   "week",
		Short: "List events for a week",
		RunE: func(c *cobra.Command, _ []string) error {
			p, state, ro, err := buildContext(c, opts, "week")
			if err != nil {
				return err
			}
			defer state.Close()
			loc := resolveLocation(ro.TZ)
			anchor, err := timeparse.ParseDateTime(of, time.Now(), loc)
			if err != nil {
				_ = p.Error(contract.ErrInvalidUsage, err.Error(), "Use --of as today, tomorrow, +Nd, or YYYY-MM-DD")
				return Wrap(2, err)
			}
			ws, err := resolveWeekStart(c, ro, state, weekStart)
			if err != nil {
				_ = p.Error(contract.ErrInvalidUsage, err.Error(), "Use --week-start monday|sunday")
				return Wrap(2, err)
			}
			start, end := grid.WeekBounds(anchor, ws)
			items := calendarScoped(state.Store.ByRange(start, end), calendars)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			if summary {
				rows := summarizeEventsByDay(items, start, end, loc)
				return p.Success(rows, map[string]any{"count": len(rows), "view": contract.ViewWeek, "from": start.Format("2006-01-02"), "to": end.Format("2006-01-02"), "week_start": ws.String(), "summary": true}, state.Warnings())
			}
			return p.Success(items, map[string]any{"count": len(items), "view": contract.ViewWeek, "from": start.Format("2006-01-02"), "to": end.Format("2006-01-02"), "week_start": ws.String()}, state.Warnings())
		},
	}
	cmd.Flags().StringVar(&of, "of", "today", "Date selector within target week")
	cmd.Flags().StringVar(&weekStart, "week-start", "", "Week start day: monday|sunday (defaults to preferences)")
	cmd.Flags().StringSliceVar(&calendars, "calendar", nil, "Calendar ID (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit results")
	cmd.Flags().BoolVar(&summary, "summary", false, "Group by day with counts")
	return cmd
}

func newMonthCmd(opts *globalOptions) *cobra.Command {
	var month string
	var calendars []string
	var limit int
	var summary bool
	cmd := &cobra.Command{
		Use:   "month",
		Short: "List events for a month",
		RunE: func(c *cobra.Command, _ []string) error {
			p, state, ro, err := buildContext(c, opts, "month")
			if err != nil {
				return err
			}
			defer state.Close()
			loc := resolveLocation(ro.TZ)
			anchor, err := parseMonthOrDate(month, time.Now(), loc)
			if err != nil {
				_ = p.Error(contract.ErrInvalidUsage, err.Error(), "Use --month as YYYY-MM, YYYY-MM-DD, or relative day syntax")
				return Wrap(2, err)
			}
			start, end := grid.MonthBounds(anchor)
			items := calendarScoped(state.Store.ByRange(start, end), calendars)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			if summary {
				rows := summarizeEventsByDay(items, start, end, loc)
				return p.Success(rows, map[string]any{"count": len(rows), "view": contract.ViewMonth, "month": start.Format("2006-01"), "summary": true}, state.Warnings())
			}
			return p.Success(items, map[string]any{"count": len(items), "view": contract.ViewMonth, "month": start.Format("2006-01"), "from": start.Format("2006-01-02"), "to": end.Format("2006-01-02")}, state.Warnings())
		},
	}
	cmd.Flags().StringVar(&month, "month", "today", "Month selector: YYYY-MM, YYYY-MM-DD, today, +Nd")
	cmd.Flags().StringSliceVar(&calendars, "calendar", nil, "Calendar ID (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit results")
	cmd.Flags().BoolVar(&summary, "summary", false, "Group by day with counts")
	return cmd
}

type gridCell struct {
	Date       string `json:"date"`
	Label      string `json:"label"`
	InMonth    bool   `json:"in_month"`
	Today      bool   `json:"today"`
	EventCount int    `json:"event_count"`
}

func newGridCmd(opts *globalOptions) *cobra.Command {
	var month, weekStart, labelFormat string
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Month grid with per-day event counts",
		RunE: func(c *cobra.Command, _ []string) error {
			p, state, ro, err := buildContext(c, opts, "grid")
			if err != nil {
				return err
			}
			defer state.Close()
			loc := resolveLocation(ro.TZ)
			anchor, err := parseMonthOrDate(month, time.Now(), loc)
			if err != nil {
				_ = p.Error(contract.ErrInvalidUsage, err.Error(), "Use --month as YYYY-MM, YYYY-MM-DD, or relative day syntax")
				return Wrap(2, err)
			}
			ws, err := resolveWeekStart(c, ro, state, weekStart)
			if err != nil {
				_ = p.Error(contract.ErrInvalidUsage, err.Error(), "Use --week-start monday|sunday")
				return Wrap(2, err)
			}
			days := grid.Days(anchor, ws)
			cells := make([]gridCell, 0, len(days))
			for _, d := range days {
				cells = append(cells, gridCell{
					Date:       d.Format("2006-01-02"),
					Label:      grid.Label(d, labelFormat),
					InMonth:    grid.SameMonth(d, anchor),
					Today:      grid.IsToday(d),
					EventCount: len(state.Store.ByDay(d)),
				})
			}
			meta := map[string]any{
				"count":      len(cells),
				"weeks":      len(cells) / 7,
				"month":      anchor.Format("2006-01"),
				"week_start": ws.String(),
			}
			return p.Success(cells, meta, state.Warnings())
		},
	}
	cmd.Flags().StringVar(&month, "month", "today", "Month selector: YYYY-MM, YYYY-MM-DD, today, +Nd")
	cmd.Flags().StringVar(&weekStart, "week-start", "", "Week start day: monday|sunday (defaults to preferences)")
	cmd.Flags().StringVar(&labelFormat, "label-format", "%a %d", "Day label strftime pattern")
	return cmd
}

func newCalendarsCmd(opts *globalOptions) *cobra.Command {
	calendars := &cobra.Command{Use: "calendars", Short: "Calendar resources"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List calendars",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, _, err := buildContext(cmd, opts, "calendars.list")
			if err != nil {
				return err
			}
			defer state.Close()
			items := state.Store.Calendars()
			return p.Success(items, map[string]any{"count": len(items)}, state.Warnings())
		},
	}
	calendars.AddCommand(list)
	return calendars
}

// resolveWeekStart prefers the explicit flag, then config, then stored
// preferences.
func resolveWeekStart(cmd *cobra.Command, ro *globalOptions, state *appState, flagVal string) (time.Weekday, error) {
	if flagValueChanged(cmd, "week-start") {
		return parseWeekStart(flagVal)
	}
	if ro.WeekStart != "" {
		return parseWeekStart(ro.WeekStart)
	}
	return state.Store.Preferences().WeekStart, nil
}

func calendarScoped(items []contract.Event, calendars []string) []contract.Event {
	if len(calendars) == 0 {
		return items
	}
	out := make([]contract.Event, 0, len(items))
	for _, ev := range items {
		if containsFold(calendars, ev.CalendarID) {
			out = append(out, ev)
		}
	}
	return out
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
