// Package assistant produces advisory suggestions and chat replies from a
// snapshot of the schedule. The Provider interface keeps the heuristic
// implementation swappable for a real model or a test double.
package assistant

import (
	"context"
	"time"

	"github.com/agis/aical/internal/contract"
)

// Context is the schedule snapshot handed to a provider alongside the
// immediate request.
type Context struct {
	Recent      []contract.Event
	Upcoming    []contract.Event
	Preferences contract.Preferences
	Suggestions []contract.Suggestion
	Now         time.Time
	View        contract.ViewType
}

type Provider interface {
	// GenerateSuggestions scans events and returns zero or more advisory
	// suggestions. Errors degrade to an empty list at the call site.
	GenerateSuggestions(ctx context.Context, events []contract.Event, actx Context) ([]contract.Suggestion, error)

	// Reply produces the assistant's answer to the last user message in the
	// transcript.
	Reply(ctx context.Context, transcript []contract.Message, actx Context) (string, error)
}
