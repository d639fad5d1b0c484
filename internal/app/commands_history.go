package app

import (
	"github.com/spf13/cobra"

	"github.com/agis/aical/internal/contract"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	history := &cobra.Command{Use: "history", Short: "Inspect and undo write history"}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent history entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, _, err := buildContext(cmd, opts, "history.list")
			if err != nil {
				return err
			}
			defer state.Close()
			entries, hasMore, err := readHistoryPage(limit, offset)
			if err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Check history file permissions", 1)
			}
			return p.Success(entries, map[string]any{"count": len(entries), "has_more": hasMore}, state.Warnings())
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Maximum entries")
	list.Flags().IntVar(&offset, "offset", 0, "Entries to skip from the newest end")

	var dryRun bool
	undo := &cobra.Command{
		Use:   "undo",
		Short: "Undo the latest recorded write operation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, _, err := buildContext(cmd, opts, "history.undo")
			if err != nil {
				return err
			}
			defer state.Close()
			entry, meta, err := undoLastHistory(state, dryRun)
			if err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Run `aical history list` to inspect entries", 1)
			}
			if dryRun {
				meta["undone"] = false
			}
			return p.Success(entry, meta, state.Warnings())
		},
	}
	undo.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview undo without writing")

	redo := &cobra.Command{
		Use:   "redo",
		Short: "Redo the latest undone write operation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, _, err := buildContext(cmd, opts, "history.redo")
			if err != nil {
				return err
			}
			defer state.Close()
			entry, meta, err := redoLastHistory(state, dryRun)
			if err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Run `aical history undo` first to create redo entries", 1)
			}
			if dryRun {
				meta["redone"] = false
			}
			return p.Success(entry, meta, state.Warnings())
		},
	}
	redo.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview redo without writing")

	history.AddCommand(list, undo, redo)
	return history
}
