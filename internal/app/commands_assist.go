package app

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agis/aical/internal/assistant"
	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/output"
	"github.com/agis/aical/internal/store"
)

// chatLatency simulates the assistant thinking. Disabled via --no-wait.
const chatLatency = 800 * time.Millisecond

func newAssistCmd(opts *globalOptions) *cobra.Command {
	assist := &cobra.Command{Use: "assist", Short: "Schedule assistant"}

	scan := &cobra.Command{
		Use:   "scan",
		Short: "Scan the schedule for conflicts and free time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, ro, err := buildContext(cmd, opts, "assist.scan")
			if err != nil {
				return err
			}
			defer state.Close()
			ctx, cancel := commandContext(ro)
			defer cancel()
			session := assistant.NewSession(state.Store, assistant.NewHeuristic())
			added := session.Scan(ctx)
			if err := state.Save(); err != nil {
				return failWithHint(p, contract.ErrStateUnavailable, err, "Check the state database", 6)
			}
			active := 0
			for _, sg := range state.Store.Suggestions() {
				if !sg.Applied && !sg.Dismissed {
					active++
				}
			}
			return p.Success(added, map[string]any{"count": len(added), "active": active}, state.Warnings())
		},
	}

	var all bool
	suggestions := &cobra.Command{
		Use:   "suggestions",
		Short: "List suggestions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, _, err := buildContext(cmd, opts, "assist.suggestions")
			if err != nil {
				return err
			}
			defer state.Close()
			items := state.Store.Suggestions()
			if !all {
				open := make([]contract.Suggestion, 0, len(items))
				for _, sg := range items {
					if !sg.Applied && !sg.Dismissed {
						open = append(open, sg)
					}
				}
				items = open
			}
			return p.Success(items, map[string]any{"count": len(items), "all": all}, state.Warnings())
		},
	}
	suggestions.Flags().BoolVar(&all, "all", false, "Include applied and dismissed suggestions")

	apply := &cobra.Command{
		Use:   "apply <suggestion-id>",
		Short: "Apply a suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, state, _, err := buildContext(cmd, opts, "assist.apply")
			if err != nil {
				return err
			}
			defer state.Close()
			created, err := state.Store.ApplySuggestion(args[0])
			if err != nil {
				return failSuggestion(p, err)
			}
			if err := state.Save(); err != nil {
				return failWithHint(p, contract.ErrStateUnavailable, err, "Check the state database", 6)
			}
			if created != nil {
				_ = appendHistory(historyEntry{Type: "add", EventID: created.ID, Created: created})
				return p.Success(created, map[string]any{"applied": true, "created_event": true}, state.Warnings())
			}
			return p.Success(map[string]any{"applied": true, "id": args[0]}, map[string]any{"created_event": false}, state.Warnings())
		},
	}

	dismiss := &cobra.Command{
		Use:   "dismiss <suggestion-id>",
		Short: "Dismiss a suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, state, _, err := buildContext(cmd, opts, "assist.dismiss")
			if err != nil {
				return err
			}
			defer state.Close()
			if err := state.Store.DismissSuggestion(args[0]); err != nil {
				return failSuggestion(p, err)
			}
			if err := state.Save(); err != nil {
				return failWithHint(p, contract.ErrStateUnavailable, err, "Check the state database", 6)
			}
			return p.Success(map[string]any{"dismissed": true, "id": args[0]}, map[string]any{"count": 1}, state.Warnings())
		},
	}

	var noWait bool
	chat := &cobra.Command{
		Use:   "chat <text>",
		Short: "Send one message to the assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, state, ro, err := buildContext(cmd, opts, "assist.chat")
			if err != nil {
				return err
			}
			defer state.Close()
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("message text is required"), "Pass the message as arguments", 2)
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			session := assistant.NewSession(state.Store, assistant.NewHeuristic())
			session.SetLatency(chatLatency)
			if noWait {
				session.SetLatency(0)
			}
			reply, err := session.Send(ctx, text)
			if errors.Is(err, assistant.ErrBusy) {
				return failWithHint(p, contract.ErrAssistantBusy, err, "Wait for the current reply to finish", 7)
			}
			if err != nil {
				return failWithHint(p, contract.ErrGeneric, err, "Retry the message", 1)
			}
			if err := state.Save(); err != nil {
				return failWithHint(p, contract.ErrStateUnavailable, err, "Check the state database", 6)
			}
			return p.Success(reply, map[string]any{"transcript_len": len(state.Store.Messages())}, state.Warnings())
		},
	}
	chat.Flags().BoolVar(&noWait, "no-wait", false, "Skip the simulated thinking delay")

	transcript := &cobra.Command{
		Use:   "transcript",
		Short: "Show the chat transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, state, _, err := buildContext(cmd, opts, "assist.transcript")
			if err != nil {
				return err
			}
			defer state.Close()
			items := state.Store.Messages()
			return p.Success(items, map[string]any{"count": len(items)}, state.Warnings())
		},
	}

	assist.AddCommand(scan, suggestions, apply, dismiss, chat, transcript)
	return assist
}

func failSuggestion(p output.Printer, err error) error {
	switch {
	case errors.Is(err, store.ErrSuggestionUnknown):
		_ = p.Error(contract.ErrNotFound, err.Error(), "Run `aical assist suggestions` to list ids")
		return Wrap(4, err)
	case errors.Is(err, store.ErrSuggestionClosed):
		_ = p.Error(contract.ErrConflict, err.Error(), "Applied and dismissed suggestions are final")
		return Wrap(5, err)
	default:
		_ = p.Error(contract.ErrGeneric, err.Error(), "")
		return Wrap(1, err)
	}
}
