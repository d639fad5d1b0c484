package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/store"
)

// ErrBusy is returned when a Send arrives while a previous reply is still
// being produced.
var ErrBusy = errors.New("assistant is already responding")

const (
	recentWindow   = 5
	upcomingWindow = 10
	defaultLatency = 800 * time.Millisecond
)

const apology = "I'm sorry, I'm having trouble responding right now. Please try again."

// Session drives one chat conversation over the shared store. It is not safe
// for concurrent use; the loading flag guards against re-entrant sends from
// the same caller.
type Session struct {
	store    *store.Store
	provider Provider
	latency  time.Duration
	loading  bool
	now      func() time.Time
}

func NewSession(s *store.Store, p Provider) *Session {
	return &Session{store: s, provider: p, latency: defaultLatency, now: time.Now}
}

// SetLatency overrides the simulated thinking delay. Zero disables it.
func (sn *Session) SetLatency(d time.Duration) { sn.latency = d }

// SetClock overrides the session clock.
func (sn *Session) SetClock(now func() time.Time) { sn.now = now }

// Loading reports whether a reply is currently in flight.
func (sn *Session) Loading() bool { return sn.loading }

// Send appends the user message, waits out the simulated latency, and appends
// the provider's reply. A provider failure still produces an assistant turn,
// with an apology instead of an answer, and the loading flag is always
// cleared.
func (sn *Session) Send(ctx context.Context, text string) (contract.Message, error) {
	if sn.loading {
		return contract.Message{}, ErrBusy
	}
	sn.loading = true
	defer func() { sn.loading = false }()

	sn.store.AppendMessage(contract.RoleUser, text)

	if sn.latency > 0 {
		select {
		case <-time.After(sn.latency):
		case <-ctx.Done():
			return contract.Message{}, ctx.Err()
		}
	}

	reply, err := sn.provider.Reply(ctx, sn.store.Messages(), sn.snapshot())
	if err != nil {
		reply = apology
	}
	return sn.store.AppendMessage(contract.RoleAssistant, reply), nil
}

// Scan asks the provider for suggestions over the full event list and appends
// the ones not already covered by an active suggestion with the same shape.
// Provider errors degrade to zero new suggestions.
func (sn *Session) Scan(ctx context.Context) []contract.Suggestion {
	generated, err := sn.provider.GenerateSuggestions(ctx, sn.store.List(), sn.snapshot())
	if err != nil {
		return nil
	}
	var added []contract.Suggestion
	for _, sg := range generated {
		if sn.store.HasActiveSuggestion(sg.Kind, sg.RelatedEventIDs) {
			continue
		}
		added = append(added, sn.store.AddSuggestion(sg))
	}
	return added
}

// snapshot assembles the provider context: the last few events before now and
// the next handful after it.
func (sn *Session) snapshot() Context {
	now := sn.now()
	all := sn.store.ByRange(now.AddDate(-1, 0, 0), now.AddDate(1, 0, 0))

	var recent, upcoming []contract.Event
	for _, ev := range all {
		// Upcoming is strictly after now; a start at exactly now is past.
		if ev.Start.After(now) {
			if len(upcoming) < upcomingWindow {
				upcoming = append(upcoming, ev)
			}
		} else {
			recent = append(recent, ev)
		}
	}
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	return Context{
		Recent:      recent,
		Upcoming:    upcoming,
		Preferences: sn.store.Preferences(),
		Suggestions: sn.store.Suggestions(),
		Now:         now,
	}
}
