package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/output"
)

type statusResult struct {
	Ready         bool                   `json:"ready"`
	Degraded      bool                   `json:"degraded"`
	DataPath      string                 `json:"data_path"`
	Profile       string                 `json:"profile"`
	TZ            string                 `json:"tz,omitempty"`
	OutputMode    string                 `json:"output_mode"`
	SchemaVersion string                 `json:"schema_version"`
	Events        int                    `json:"events"`
	Suggestions   int                    `json:"suggestions"`
	Messages      int                    `json:"messages"`
	LastSaved     string                 `json:"last_saved,omitempty"`
	Checks        []contract.DoctorCheck `json:"checks"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "aical %s\n", BuildVersionString())
		},
	}
}

func newDoctorCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run state health checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, _, err := buildContext(cmd, opts, "doctor")
			if err != nil {
				return err
			}
			defer state.Close()
			checks := runStateChecks(state)
			ready := true
			for _, c := range checks {
				if c.Status != "ok" {
					ready = false
				}
			}
			meta := map[string]any{"count": len(checks), "ready": ready}
			if p.EffectiveSuccessMode() == output.ModePlain {
				return printDoctorPlain(cmd.OutOrStdout(), checks, ready)
			}
			_ = p.Success(checks, meta, state.Warnings())
			if !ready {
				return Wrap(6, fmt.Errorf("doctor checks not ready"))
			}
			return nil
		},
	}
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show state health and active runtime configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, ro, err := buildContext(cmd, opts, "status")
			if err != nil {
				return err
			}
			defer state.Close()
			checks := runStateChecks(state)
			ready := true
			for _, c := range checks {
				if c.Status != "ok" {
					ready = false
				}
			}
			res := statusResult{
				Ready:         ready,
				Degraded:      state.Reset,
				DataPath:      state.DB.Path(),
				Profile:       ro.Profile,
				TZ:            ro.TZ,
				OutputMode:    string(p.EffectiveSuccessMode()),
				SchemaVersion: ro.SchemaVersion,
				Events:        state.Store.Len(),
				Suggestions:   len(state.Store.Suggestions()),
				Messages:      len(state.Store.Messages()),
				Checks:        checks,
			}
			if saved := state.DB.SavedAt(); !saved.IsZero() {
				res.LastSaved = humanize.Time(saved)
			}
			meta := map[string]any{"ready": res.Ready, "degraded": res.Degraded, "checks": len(res.Checks)}
			if p.EffectiveSuccessMode() == output.ModePlain {
				_ = printStatusPlain(cmd.OutOrStdout(), res)
			} else {
				_ = p.Success(res, meta, state.Warnings())
			}
			if !ready {
				return Wrap(6, fmt.Errorf("status not ready"))
			}
			return nil
		},
	}
}

func runStateChecks(state *appState) []contract.DoctorCheck {
	checks := make([]contract.DoctorCheck, 0, 4)

	if info, err := os.Stat(state.DB.Path()); err != nil {
		checks = append(checks, contract.DoctorCheck{Name: "data file", Status: "fail", Message: err.Error()})
	} else {
		checks = append(checks, contract.DoctorCheck{Name: "data file", Status: "ok", Message: fmt.Sprintf("%s (%s)", state.DB.Path(), humanize.Bytes(uint64(info.Size())))})
	}

	if state.Reset {
		checks = append(checks, contract.DoctorCheck{Name: "snapshot", Status: "warn", Message: "state was missing or unreadable; defaults loaded"})
	} else {
		checks = append(checks, contract.DoctorCheck{Name: "snapshot", Status: "ok", Message: fmt.Sprintf("%d events, %d suggestions", state.Store.Len(), len(state.Store.Suggestions()))})
	}

	// Round-trip write check: persisting the loaded store must succeed.
	if err := state.Save(); err != nil {
		checks = append(checks, contract.DoctorCheck{Name: "writable", Status: "fail", Message: err.Error()})
	} else {
		checks = append(checks, contract.DoctorCheck{Name: "writable", Status: "ok"})
	}

	if saved := state.DB.SavedAt(); saved.IsZero() {
		checks = append(checks, contract.DoctorCheck{Name: "last save", Status: "warn", Message: "never saved"})
	} else {
		checks = append(checks, contract.DoctorCheck{Name: "last save", Status: "ok", Message: humanize.Time(saved)})
	}
	return checks
}

func printDoctorPlain(out io.Writer, checks []contract.DoctorCheck, ready bool) error {
	_, _ = fmt.Fprintf(out, "ready=%t checks=%d\n", ready, len(checks))
	for _, c := range checks {
		_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", c.Status, c.Name, c.Message)
	}
	if !ready {
		return Wrap(6, fmt.Errorf("doctor checks not ready"))
	}
	return nil
}

func printStatusPlain(out io.Writer, res statusResult) error {
	_, _ = fmt.Fprintf(out, "ready=%t degraded=%t data=%s profile=%s output_mode=%s events=%d\n", res.Ready, res.Degraded, res.DataPath, res.Profile, res.OutputMode, res.Events)
	if res.LastSaved != "" {
		_, _ = fmt.Fprintf(out, "last_saved=%s\n", res.LastSaved)
	}
	for _, c := range res.Checks {
		_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", c.Status, c.Name, c.Message)
	}
	return nil
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := strings.ToLower(args[0])
			switch shell {
			case "bash":
				return root.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return root.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return root.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return root.GenPowerShellCompletion(cmd.OutOrStdout())
			default:
				return Wrap(2, fmt.Errorf("unsupported shell: %s", shell))
			}
		},
	}
}
