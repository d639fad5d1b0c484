package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/output"
	"github.com/agis/aical/internal/store"
	"github.com/agis/aical/internal/timeparse"
)

type globalOptions struct {
	JSON          bool
	JSONL         bool
	Plain         bool
	Fields        string
	Quiet         bool
	Verbose       bool
	NoColor       bool
	NoInput       bool
	Profile       string
	Config        string
	Data          string
	WeekStart     string
	TZ            string
	Timeout       time.Duration
	SchemaVersion string
}

func Execute() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		renderTopLevelError(cmd, err)
	}
	return ExitCode(err)
}

func NewRootCommand() *cobra.Command {
	opts := &globalOptions{
		Profile:       "default",
		Timeout:       15 * time.Second,
		SchemaVersion: contract.SchemaVersion,
	}

	root := &cobra.Command{
		Use:           "aical",
		Short:         "Personal calendar with a built-in schedule assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       BuildVersionString(),
	}
	root.SetVersionTemplate("aical {{.Version}}\n")

	root.PersistentFlags().BoolVar(&opts.JSON, "json", false, "Output structured JSON")
	root.PersistentFlags().BoolVar(&opts.JSONL, "jsonl", false, "Output newline-delimited JSON")
	root.PersistentFlags().BoolVar(&opts.Plain, "plain", false, "Output stable plain text")
	root.PersistentFlags().StringVar(&opts.Fields, "fields", "", "Projected fields, comma-separated")
	root.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Reduce success output")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose diagnostics")
	root.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "Disable color output")
	root.PersistentFlags().BoolVar(&opts.NoInput, "no-input", false, "Disable prompts")
	root.PersistentFlags().StringVar(&opts.Profile, "profile", "default", "Config profile")
	root.PersistentFlags().StringVar(&opts.Config, "config", "", "Config file path")
	root.PersistentFlags().StringVar(&opts.Data, "data", "", "State database path")
	root.PersistentFlags().StringVar(&opts.TZ, "tz", "", "IANA timezone for output")
	root.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 15*time.Second, "Command timeout (e.g. 10s, 1m, 0 to disable)")
	root.PersistentFlags().StringVar(&opts.SchemaVersion, "schema-version", contract.SchemaVersion, "Output schema version")

	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newDoctorCmd(opts))
	root.AddCommand(newVersionCmd())
	root.AddCommand(newCalendarsCmd(opts))
	root.AddCommand(newEventsCmd(opts))
	root.AddCommand(newTodayCmd(opts))
	root.AddCommand(newWeekCmd(opts))
	root.AddCommand(newMonthCmd(opts))
	root.AddCommand(newGridCmd(opts))
	root.AddCommand(newAssistCmd(opts))
	root.AddCommand(newQuickAddCmd(opts))
	root.AddCommand(newICSCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newCompletionCmd(root))

	return root
}

// appState bundles the open database with the rehydrated store for one
// command invocation.
type appState struct {
	DB    *store.DB
	Store *store.Store
	Reset bool
}

func (s *appState) Save() error  { return s.DB.Save(s.Store) }
func (s *appState) Close() error { return s.DB.Close() }

// Warnings reports load degradations worth surfacing in success envelopes.
func (s *appState) Warnings() []string {
	if s.Reset {
		return []string{"persisted state was missing or unreadable; starting from defaults"}
	}
	return nil
}

func buildContext(cmd *cobra.Command, opts *globalOptions, command string) (output.Printer, *appState, *globalOptions, error) {
	resolved, err := resolveGlobalOptions(cmd, opts)
	if err != nil {
		return output.Printer{}, nil, nil, Wrap(2, err)
	}
	if conflictCount(resolved.JSON, resolved.JSONL, resolved.Plain) > 1 {
		return output.Printer{}, nil, nil, Wrap(2, errors.New("--json, --jsonl, and --plain are mutually exclusive"))
	}
	mode := output.ModeAuto
	if resolved.JSON {
		mode = output.ModeJSON
	} else if resolved.JSONL {
		mode = output.ModeJSONL
	} else if resolved.Plain {
		mode = output.ModePlain
	}

	printer := output.Printer{
		Mode:          mode,
		Command:       command,
		Fields:        splitCSV(resolved.Fields),
		Quiet:         resolved.Quiet,
		NoColor:       resolved.NoColor,
		SchemaVersion: resolved.SchemaVersion,
		Out:           cmd.OutOrStdout(),
		Err:           cmd.ErrOrStderr(),
	}

	state, err := openState(resolved)
	if err != nil {
		_ = printer.Error(contract.ErrStateUnavailable, err.Error(), "Check --data path and directory permissions")
		return printer, nil, nil, WrapPrinted(6, err)
	}
	if resolved.Verbose {
		_, _ = fmt.Fprintf(printer.Err, "aical: command=%s data=%s mode=%s tz=%s profile=%s timeout=%s\n", command, state.DB.Path(), mode, resolved.TZ, resolved.Profile, resolved.Timeout)
	}
	return printer, state, resolved, nil
}

func openState(ro *globalOptions) (*appState, error) {
	path := strings.TrimSpace(ro.Data)
	if path == "" {
		path = env("AICAL_DATA")
	}
	if path == "" {
		path = store.DefaultPath()
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	s, reset, err := db.Load()
	if err != nil {
		db.Close()
		return nil, err
	}
	return &appState{DB: db, Store: s, Reset: reset}, nil
}

func commandContext(ro *globalOptions) (context.Context, context.CancelFunc) {
	if ro == nil || ro.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), ro.Timeout)
}

func renderTopLevelError(cmd *cobra.Command, err error) {
	var appErr AppError
	if errors.As(err, &appErr) && appErr.Printed {
		return
	}
	if wantsStructuredErrorOutput(os.Args[1:]) {
		printer := output.Printer{
			Mode:          output.ModeJSON,
			SchemaVersion: contract.SchemaVersion,
			Err:           cmd.ErrOrStderr(),
		}
		_ = printer.Error(errorCodeForExit(ExitCode(err)), err.Error(), "")
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", err.Error())
}

func wantsStructuredErrorOutput(args []string) bool {
	for _, arg := range args {
		switch {
		case arg == "--":
			return false
		case arg == "--json", arg == "--jsonl":
			return true
		case strings.HasPrefix(arg, "--json="), strings.HasPrefix(arg, "--jsonl="):
			return true
		}
	}
	return false
}

func errorCodeForExit(code int) contract.ErrorCode {
	switch code {
	case 2:
		return contract.ErrInvalidUsage
	case 4:
		return contract.ErrNotFound
	case 5:
		return contract.ErrConflict
	case 6:
		return contract.ErrStateUnavailable
	case 7:
		return contract.ErrAssistantBusy
	default:
		return contract.ErrGeneric
	}
}

func failWithHint(printer output.Printer, code contract.ErrorCode, err error, hint string, exitCode int) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	_ = printer.Error(code, err.Error(), hint)
	return Wrap(exitCode, err)
}

func buildRange(fromS, toS string, loc *time.Location) (time.Time, time.Time, error) {
	from, err := timeparse.ParseDateTime(fromS, time.Now(), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
	}
	to, err := timeparse.ParseDateTime(toS, time.Now(), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must not be earlier than --from")
	}
	if to.Hour() == 0 && to.Minute() == 0 && to.Second() == 0 {
		to = to.Add(24*time.Hour - time.Second)
	}
	return from, to, nil
}

func resolveLocation(tz string) *time.Location {
	if strings.TrimSpace(tz) != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.Local
}

func parseWeekStart(v string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "monday", "mon":
		return time.Monday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	default:
		return time.Sunday, fmt.Errorf("invalid --week-start: %s", v)
	}
}

func parseMonthOrDate(v string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		s = "today"
	}
	if ts, err := time.ParseInLocation("2006-01", s, loc); err == nil {
		return ts, nil
	}
	return timeparse.ParseDateTime(s, now, loc)
}

func resolveEnd(endS, durationS string, start time.Time, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(endS) != "" && strings.TrimSpace(durationS) != "" {
		return time.Time{}, fmt.Errorf("use either --end or --duration, not both")
	}
	if strings.TrimSpace(endS) != "" {
		end, err := timeparse.ParseDateTime(endS, time.Now(), loc)
		if err != nil {
			return time.Time{}, err
		}
		if !end.After(start) {
			return time.Time{}, fmt.Errorf("--end must be after --start")
		}
		return end, nil
	}
	if strings.TrimSpace(durationS) != "" {
		d, err := time.ParseDuration(durationS)
		if err != nil {
			return time.Time{}, err
		}
		if d <= 0 {
			return time.Time{}, fmt.Errorf("--duration must be positive")
		}
		return start.Add(d), nil
	}
	// Absent both, the caller falls back to its own default.
	return start.Add(time.Hour), nil
}

func parsePriorities(vals []string) ([]contract.Priority, error) {
	out := make([]contract.Priority, 0, len(vals))
	for _, v := range vals {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "low":
			out = append(out, contract.PriorityLow)
		case "medium":
			out = append(out, contract.PriorityMedium)
		case "high":
			out = append(out, contract.PriorityHigh)
		default:
			return nil, fmt.Errorf("invalid priority: %s", v)
		}
	}
	return out, nil
}

func conflictCount(vals ...bool) int {
	total := 0
	for _, v := range vals {
		if v {
			total++
		}
	}
	return total
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
