package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	ics "github.com/arran4/golang-ical"
	"github.com/spf13/cobra"

	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/output"
)

func newICSCmd(opts *globalOptions) *cobra.Command {
	group := &cobra.Command{Use: "ics", Short: "ICS interchange"}
	group.AddCommand(newEventsExportCmd(opts), newEventsImportCmd(opts))
	return group
}

func newEventsExportCmd(opts *globalOptions) *cobra.Command {
	var calendars []string
	var fromS, toS, outPath string
	var limit int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events to ICS",
		RunE: func(c *cobra.Command, _ []string) error {
			p, state, ro, err := buildContext(c, opts, "events.export")
			if err != nil {
				return err
			}
			defer state.Close()
			loc := resolveLocation(ro.TZ)
			from, to, err := buildRange(fromS, toS, loc)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Use valid --from/--to values", 2)
			}
			items := calendarScoped(state.Store.ByRange(from, to), calendars)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			payload := buildICS(items)
			meta := map[string]any{"count": len(items)}
			if strings.TrimSpace(outPath) != "" {
				if err := os.WriteFile(outPath, []byte(payload), 0o644); err != nil {
					return failWithHint(p, contract.ErrGeneric, err, "Check destination path permissions", 1)
				}
				return p.Success(map[string]any{"path": outPath, "events": len(items)}, meta, state.Warnings())
			}
			if m := p.EffectiveSuccessMode(); m == output.ModeJSON || m == output.ModeJSONL {
				return p.Success(map[string]any{"ics": payload, "events": len(items)}, meta, state.Warnings())
			}
			_, _ = fmt.Fprint(c.OutOrStdout(), payload)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&calendars, "calendar", nil, "Calendar ID (repeatable)")
	cmd.Flags().StringVar(&fromS, "from", "today", "Range start")
	cmd.Flags().StringVar(&toS, "to", "+30d", "Range end")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit events exported")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default stdout)")
	return cmd
}

func newEventsImportCmd(opts *globalOptions) *cobra.Command {
	var filePath, calendar string
	var dryRun bool
	var strict bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import events from ICS",
		RunE: func(c *cobra.Command, _ []string) error {
			p, state, _, err := buildContext(c, opts, "events.import")
			if err != nil {
				return err
			}
			defer state.Close()
			if strings.TrimSpace(filePath) == "" {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("--file is required"), "Pass --file <path> or --file - for stdin", 2)
			}
			raw, err := readICSInput(filePath)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Check --file path or stdin data", 2)
			}
			items, warnings, err := parseICS(raw, defaultCalendarID(state, calendar))
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Validate the ICS content", 2)
			}
			if len(items) == 0 {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("no importable VEVENT entries"), "Validate ICS content and DTSTART/DTEND fields", 2)
			}
			if strict && len(warnings) > 0 {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("strict import rejected warnings"), "Fix ICS warnings or omit --strict", 2)
			}
			if dryRun {
				return p.Success(items, map[string]any{"count": len(items), "dry_run": true, "warnings": len(warnings)}, warnings)
			}
			created := make([]contract.Event, 0, len(items))
			for _, ev := range items {
				added, addErr := state.Store.Add(ev)
				if addErr != nil {
					return failWithHint(p, contract.ErrGeneric, addErr, "Import failed; retry with --dry-run for diagnostics", 1)
				}
				created = append(created, added)
			}
			if err := state.Save(); err != nil {
				return failWithHint(p, contract.ErrStateUnavailable, err, "Check the state database", 6)
			}
			return p.Success(created, map[string]any{"count": len(created), "warnings": len(warnings)}, warnings)
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "ICS file path or - for stdin")
	cmd.Flags().StringVar(&calendar, "calendar", "", "Target calendar for imported events")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview import without writing")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat parser warnings as errors")
	return cmd
}

func buildICS(items []contract.Event) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//aical//EN")
	for _, e := range items {
		uid := e.ID
		if uid == "" {
			uid = fmt.Sprintf("aical-%d", e.Start.Unix())
		}
		ve := cal.AddEvent(uid)
		ve.SetDtStampTime(e.UpdatedAt)
		if e.AllDay {
			ve.SetAllDayStartAt(e.Start)
			ve.SetAllDayEndAt(e.End)
		} else {
			ve.SetStartAt(e.Start.UTC())
			ve.SetEndAt(e.End.UTC())
		}
		if strings.TrimSpace(e.Title) != "" {
			ve.SetSummary(e.Title)
		}
		if strings.TrimSpace(e.Location) != "" {
			ve.SetLocation(e.Location)
		}
		if strings.TrimSpace(e.Description) != "" {
			ve.SetDescription(e.Description)
		}
	}
	return cal.Serialize()
}

func readICSInput(path string) (string, error) {
	if strings.TrimSpace(path) == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseICS converts VEVENT entries into events bound to calendarID. Entries
// without a usable DTSTART/DTEND become warnings, not errors.
func parseICS(raw, calendarID string) ([]contract.Event, []string, error) {
	cal, err := ics.ParseCalendar(strings.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}
	items := make([]contract.Event, 0)
	warnings := make([]string, 0)
	for _, ve := range cal.Events() {
		start, serr := ve.GetStartAt()
		end, eerr := ve.GetEndAt()
		if serr != nil || eerr != nil || !end.After(start) {
			warnings = append(warnings, "skipped VEVENT with invalid DTSTART/DTEND")
			continue
		}
		title := "Untitled"
		if prop := ve.GetProperty(ics.ComponentPropertySummary); prop != nil && strings.TrimSpace(prop.Value) != "" {
			title = strings.TrimSpace(prop.Value)
		}
		ev := contract.Event{
			CalendarID: calendarID,
			Title:      title,
			Start:      start,
			End:        end,
		}
		if prop := ve.GetProperty(ics.ComponentPropertyLocation); prop != nil {
			ev.Location = strings.TrimSpace(prop.Value)
		}
		if prop := ve.GetProperty(ics.ComponentPropertyDescription); prop != nil {
			ev.Description = strings.TrimSpace(prop.Value)
		}
		items = append(items, ev)
	}
	return items, warnings, nil
}
