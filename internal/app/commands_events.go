package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/store"
	"github.com/agis/aical/internal/timeparse"
)

func newEventsCmd(opts *globalOptions) *cobra.Command {
	events := &cobra.Command{Use: "events", Short: "Event resources"}

	var listCalendars, listCategories, listTags, listPriorities []string
	var listFrom, listTo string
	var listHideCompleted bool
	var listLimit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, ro, err := buildContext(cmd, opts, "events.list")
			if err != nil {
				return err
			}
			defer state.Close()
			items, ferr := filteredEvents(state, ro, listFrom, listTo, eventFilterFlags{
				Calendars:     listCalendars,
				Categories:    listCategories,
				Tags:          listTags,
				Priorities:    listPriorities,
				HideCompleted: listHideCompleted,
			})
			if ferr != nil {
				return failWithHint(p, contract.ErrInvalidUsage, ferr, "Use --from and --to with RFC3339, YYYY-MM-DD, or relative values", 2)
			}
			if listLimit > 0 && len(items) > listLimit {
				items = items[:listLimit]
			}
			return p.Success(items, map[string]any{"count": len(items)}, state.Warnings())
		},
	}
	list.Flags().StringSliceVar(&listCalendars, "calendar", nil, "Calendar ID (repeatable)")
	list.Flags().StringSliceVar(&listCategories, "category", nil, "Category (repeatable)")
	list.Flags().StringSliceVar(&listTags, "tag", nil, "Tag (repeatable)")
	list.Flags().StringSliceVar(&listPriorities, "priority", nil, "Priority: low|medium|high (repeatable)")
	list.Flags().BoolVar(&listHideCompleted, "hide-completed", false, "Exclude completed events")
	list.Flags().StringVar(&listFrom, "from", "today", "Range start")
	list.Flags().StringVar(&listTo, "to", "+7d", "Range end")
	list.Flags().IntVar(&listLimit, "limit", 0, "Limit results")

	var searchCalendars []string
	var searchFrom, searchTo string
	var searchLimit int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search events by text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, state, ro, err := buildContext(cmd, opts, "events.search")
			if err != nil {
				return err
			}
			defer state.Close()
			items, ferr := filteredEvents(state, ro, searchFrom, searchTo, eventFilterFlags{
				Calendars: searchCalendars,
				Search:    args[0],
			})
			if ferr != nil {
				return failWithHint(p, contract.ErrInvalidUsage, ferr, "Use valid --from/--to values", 2)
			}
			if searchLimit > 0 && len(items) > searchLimit {
				items = items[:searchLimit]
			}
			return p.Success(items, map[string]any{"count": len(items)}, state.Warnings())
		},
	}
	search.Flags().StringSliceVar(&searchCalendars, "calendar", nil, "Calendar ID (repeatable)")
	search.Flags().StringVar(&searchFrom, "from", "today", "Range start")
	search.Flags().StringVar(&searchTo, "to", "+30d", "Range end")
	search.Flags().IntVar(&searchLimit, "limit", 0, "Limit results")

	show := &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, state, _, err := buildContext(cmd, opts, "events.show")
			if err != nil {
				return err
			}
			defer state.Close()
			item, ok := state.Store.Get(args[0])
			if !ok {
				return failWithHint(p, contract.ErrNotFound, fmt.Errorf("event not found: %s", args[0]), "Check ID with `aical events list --fields id,title,start`", 4)
			}
			return p.Success(item, map[string]any{"count": 1}, state.Warnings())
		},
	}

	var queryCalendars, wheres []string
	var queryFrom, queryTo, sortField, order string
	var queryLimit int
	query := &cobra.Command{
		Use:   "query",
		Short: "Agent-focused deterministic query",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, ro, err := buildContext(cmd, opts, "events.query")
			if err != nil {
				return err
			}
			defer state.Close()
			items, ferr := filteredEvents(state, ro, queryFrom, queryTo, eventFilterFlags{Calendars: queryCalendars})
			if ferr != nil {
				return failWithHint(p, contract.ErrInvalidUsage, ferr, "Use valid --from/--to values", 2)
			}
			preds, perr := parsePredicates(wheres)
			if perr != nil {
				return failWithHint(p, contract.ErrInvalidUsage, perr, "Use clauses like title~\"walk\" or category==\"work\"", 2)
			}
			items, perr = applyPredicates(items, preds)
			if perr != nil {
				return failWithHint(p, contract.ErrInvalidUsage, perr, "Check --where field/operator/value", 2)
			}
			sortEvents(items, sortField, order)
			if queryLimit > 0 && len(items) > queryLimit {
				items = items[:queryLimit]
			}
			return p.Success(items, map[string]any{"count": len(items)}, state.Warnings())
		},
	}
	query.Flags().StringSliceVar(&queryCalendars, "calendar", nil, "Calendar ID (repeatable)")
	query.Flags().StringVar(&queryFrom, "from", "today", "Range start")
	query.Flags().StringVar(&queryTo, "to", "+30d", "Range end")
	query.Flags().StringSliceVar(&wheres, "where", nil, "Predicate clause (repeatable)")
	query.Flags().StringVar(&sortField, "sort", "start", "Sort field: start|end|title|updated_at|priority")
	query.Flags().StringVar(&order, "order", "asc", "Sort order: asc|desc")
	query.Flags().IntVar(&queryLimit, "limit", 0, "Limit results")

	var addCalendar, addTitle, addStart, addEnd, addDuration, addLocation, addDescription, addCategory, addColor, addPriority, addRepeat string
	var addTags []string
	var addAllDay, addDryRun bool
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, ro, err := buildContext(cmd, opts, "events.add")
			if err != nil {
				return err
			}
			defer state.Close()
			if addTitle == "" || addStart == "" {
				err = errors.New("--title and --start are required")
				return failWithHint(p, contract.ErrInvalidUsage, err, "Provide required fields", 2)
			}
			loc := resolveLocation(ro.TZ)
			startT, err := timeparse.ParseDateTime(addStart, time.Now(), loc)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Invalid --start format", 2)
			}
			endT, err := resolveEnd(addEnd, addDuration, startT, loc)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Use --end or --duration", 2)
			}
			var priority contract.Priority
			if addPriority != "" {
				ps, perr := parsePriorities([]string{addPriority})
				if perr != nil {
					return failWithHint(p, contract.ErrInvalidUsage, perr, "Use --priority low|medium|high", 2)
				}
				priority = ps[0]
			}
			rule, err := parseRepeatRule(addRepeat)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Use --repeat like daily, weekly:mon,wed, or daily;count=5", 2)
			}
			ev := contract.Event{
				CalendarID:  defaultCalendarID(state, addCalendar),
				Title:       addTitle,
				Start:       startT,
				End:         endT,
				AllDay:      addAllDay,
				Location:    addLocation,
				Description: addDescription,
				Category:    addCategory,
				Color:       addColor,
				Priority:    priority,
				Tags:        addTags,
				Recurrence:  rule,
			}
			if addDryRun {
				return p.Success(ev, map[string]any{"dry_run": true}, state.Warnings())
			}
			created, err := state.Store.Add(ev)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Fix the event fields and retry", 2)
			}
			if err := state.Save(); err != nil {
				return failWithHint(p, contract.ErrStateUnavailable, err, "Check the state database", 6)
			}
			_ = appendHistory(historyEntry{Type: "add", EventID: created.ID, Created: &created})
			return p.Success(created, map[string]any{"count": 1}, state.Warnings())
		},
	}
	add.Flags().StringVar(&addCalendar, "calendar", "", "Calendar ID (defaults to preferences)")
	add.Flags().StringVar(&addTitle, "title", "", "Event title")
	add.Flags().StringVar(&addStart, "start", "", "Start datetime")
	add.Flags().StringVar(&addEnd, "end", "", "End datetime")
	add.Flags().StringVar(&addDuration, "duration", "", "Duration (e.g. 30m)")
	add.Flags().StringVar(&addLocation, "location", "", "Location")
	add.Flags().StringVar(&addDescription, "description", "", "Description")
	add.Flags().StringVar(&addCategory, "category", "", "Category")
	add.Flags().StringVar(&addColor, "color", "", "Hex color (defaults to palette)")
	add.Flags().StringVar(&addPriority, "priority", "", "Priority: low|medium|high")
	add.Flags().StringSliceVar(&addTags, "tag", nil, "Tag (repeatable)")
	add.Flags().StringVar(&addRepeat, "repeat", "", "Recurrence: daily|weekly[:days]|monthly|yearly with ;interval=N;count=N;until=DATE")
	add.Flags().BoolVar(&addAllDay, "all-day", false, "All-day event")
	add.Flags().BoolVarP(&addDryRun, "dry-run", "n", false, "Preview without writing")

	var upTitle, upStart, upEnd, upDuration, upLocation, upDescription, upCategory, upColor, upPriority string
	var upTags []string
	var upAllDay, upCompleted, upDryRun bool
	update := &cobra.Command{
		Use:   "update <event-id>",
		Short: "Update an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, state, ro, err := buildContext(cmd, opts, "events.update")
			if err != nil {
				return err
			}
			defer state.Close()
			current, ok := state.Store.Get(args[0])
			if !ok {
				return failWithHint(p, contract.ErrNotFound, fmt.Errorf("event not found: %s", args[0]), "Check ID with `aical events list`", 4)
			}
			prev := current
			loc := resolveLocation(ro.TZ)
			if cmd.Flags().Changed("title") {
				current.Title = upTitle
			}
			if cmd.Flags().Changed("location") {
				current.Location = upLocation
			}
			if cmd.Flags().Changed("description") {
				current.Description = upDescription
			}
			if cmd.Flags().Changed("category") {
				current.Category = upCategory
			}
			if cmd.Flags().Changed("color") {
				current.Color = upColor
			}
			if cmd.Flags().Changed("tag") {
				current.Tags = upTags
			}
			if cmd.Flags().Changed("priority") {
				ps, perr := parsePriorities([]string{upPriority})
				if perr != nil {
					return failWithHint(p, contract.ErrInvalidUsage, perr, "Use --priority low|medium|high", 2)
				}
				current.Priority = ps[0]
			}
			if cmd.Flags().Changed("all-day") {
				current.AllDay = upAllDay
			}
			if cmd.Flags().Changed("completed") {
				current.Completed = upCompleted
			}
			if cmd.Flags().Changed("start") {
				t, e := timeparse.ParseDateTime(upStart, time.Now(), loc)
				if e != nil {
					return failWithHint(p, contract.ErrInvalidUsage, e, "Invalid --start", 2)
				}
				current.Start = t
			}
			if cmd.Flags().Changed("end") || cmd.Flags().Changed("duration") {
				t, e := resolveEnd(upEnd, upDuration, current.Start, loc)
				if e != nil {
					return failWithHint(p, contract.ErrInvalidUsage, e, "Use --end or --duration", 2)
				}
				current.End = t
			}
			if upDryRun {
				return p.Success(current, map[string]any{"dry_run": true}, state.Warnings())
			}
			updated, ok := state.Store.Update(current)
			if !ok {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("update rejected"), "Check title, start, and end values", 2)
			}
			if err := state.Save(); err != nil {
				return failWithHint(p, contract.ErrStateUnavailable, err, "Check the state database", 6)
			}
			_ = appendHistory(historyEntry{Type: "update", EventID: updated.ID, Prev: &prev, Next: &updated})
			return p.Success(updated, map[string]any{"count": 1}, state.Warnings())
		},
	}
	update.Flags().StringVar(&upTitle, "title", "", "Event title")
	update.Flags().StringVar(&upStart, "start", "", "Start datetime")
	update.Flags().StringVar(&upEnd, "end", "", "End datetime")
	update.Flags().StringVar(&upDuration, "duration", "", "Duration (e.g. 30m)")
	update.Flags().StringVar(&upLocation, "location", "", "Location")
	update.Flags().StringVar(&upDescription, "description", "", "Description")
	update.Flags().StringVar(&upCategory, "category", "", "Category")
	update.Flags().StringVar(&upColor, "color", "", "Hex color")
	update.Flags().StringVar(&upPriority, "priority", "", "Priority: low|medium|high")
	update.Flags().StringSliceVar(&upTags, "tag", nil, "Tag (repeatable, replaces tags)")
	update.Flags().BoolVar(&upAllDay, "all-day", false, "All-day event")
	update.Flags().BoolVar(&upCompleted, "completed", false, "Completed flag")
	update.Flags().BoolVarP(&upDryRun, "dry-run", "n", false, "Preview without writing")

	var delForce, delDryRun bool
	var delConfirm string
	deleteCmd := &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, state, ro, err := buildContext(cmd, opts, "events.delete")
			if err != nil {
				return err
			}
			defer state.Close()
			item, ok := state.Store.Get(args[0])
			if !ok {
				return failWithHint(p, contract.ErrNotFound, fmt.Errorf("event not found: %s", args[0]), "Check ID with `aical events list`", 4)
			}
			if !delForce && delConfirm != args[0] {
				if ro.NoInput {
					err = errors.New("non-interactive delete requires --force or --confirm <event-id>")
					return failWithHint(p, contract.ErrInvalidUsage, err, "Add --confirm exactly matching the event ID", 2)
				}
				err = errors.New("delete requires --force or --confirm <event-id>")
				return failWithHint(p, contract.ErrInvalidUsage, err, "Add --confirm exactly matching the event ID", 2)
			}
			if delDryRun {
				return p.Success(item, map[string]any{"dry_run": true}, state.Warnings())
			}
			state.Store.Remove(args[0])
			if err := state.Save(); err != nil {
				return failWithHint(p, contract.ErrStateUnavailable, err, "Check the state database", 6)
			}
			_ = appendHistory(historyEntry{Type: "delete", EventID: item.ID, Deleted: &item})
			return p.Success(map[string]any{"deleted": true, "id": args[0]}, map[string]any{"count": 1}, state.Warnings())
		},
	}
	deleteCmd.Flags().BoolVarP(&delForce, "force", "f", false, "Force delete without confirmation")
	deleteCmd.Flags().StringVar(&delConfirm, "confirm", "", "Confirm exact event ID")
	deleteCmd.Flags().BoolVarP(&delDryRun, "dry-run", "n", false, "Preview without writing")

	events.AddCommand(list, search, show, query, add, update, deleteCmd, newEventsQuickAddCmd(opts), newEventsExportCmd(opts), newEventsImportCmd(opts))
	return events
}

type eventFilterFlags struct {
	Calendars     []string
	Categories    []string
	Tags          []string
	Priorities    []string
	Search        string
	HideCompleted bool
}

// filteredEvents resolves the time range, expands recurrences inside it, and
// applies the remaining filter flags.
func filteredEvents(state *appState, ro *globalOptions, fromS, toS string, flags eventFilterFlags) ([]contract.Event, error) {
	loc := resolveLocation(ro.TZ)
	from, to, err := buildRange(fromS, toS, loc)
	if err != nil {
		return nil, err
	}
	priorities, err := parsePriorities(flags.Priorities)
	if err != nil {
		return nil, err
	}
	items := state.Store.ByRange(from, to)
	f := contract.Filter{
		Calendars:     flags.Calendars,
		Categories:    flags.Categories,
		Tags:          flags.Tags,
		Priorities:    priorities,
		Search:        flags.Search,
		HideCompleted: flags.HideCompleted,
	}
	out := make([]contract.Event, 0, len(items))
	for _, ev := range items {
		if store.Matches(ev, f) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func defaultCalendarID(state *appState, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return state.Store.Preferences().DefaultCalendar
}
