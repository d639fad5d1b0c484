// Package store holds the application state: events, advisory suggestions,
// the assistant transcript, calendars, and user preferences. It is the single
// source of truth; components receive a *Store explicitly and mutate it only
// through its methods. Single-goroutine use; mutations are visible to
// subsequent reads immediately.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agis/aical/internal/contract"
	"github.com/agis/aical/internal/grid"
	"github.com/agis/aical/internal/recur"
)

var (
	ErrTitleRequired     = errors.New("event title is required")
	ErrStartRequired     = errors.New("event start is required")
	ErrEndBeforeStart    = errors.New("event end must not be before start")
	ErrEventNotFound     = errors.New("event not found")
	ErrSuggestionClosed  = errors.New("suggestion was already applied or dismissed")
	ErrSuggestionUnknown = errors.New("suggestion not found")
)

type Store struct {
	events      []contract.Event
	index       map[string]int
	suggestions []contract.Suggestion
	messages    []contract.Message
	calendars   []contract.Calendar
	prefs       contract.Preferences

	now func() time.Time
}

func New() *Store {
	return &Store{
		index: map[string]int{},
		prefs: contract.DefaultPreferences(),
		now:   time.Now,
	}
}

// SetClock overrides the store's notion of now. Test hook.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Add validates and inserts ev, assigning an id and timestamps when missing.
// All-day events are normalized to their day bounds.
func (s *Store) Add(ev contract.Event) (contract.Event, error) {
	if strings.TrimSpace(ev.Title) == "" {
		return contract.Event{}, ErrTitleRequired
	}
	if ev.Start.IsZero() {
		return contract.Event{}, ErrStartRequired
	}
	if ev.End.IsZero() {
		ev.End = ev.Start
	}
	if ev.End.Before(ev.Start) {
		return contract.Event{}, ErrEndBeforeStart
	}
	if ev.AllDay {
		ev.Start, ev.End = grid.DayBounds(ev.Start)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if _, exists := s.index[ev.ID]; exists {
		return contract.Event{}, fmt.Errorf("duplicate event id: %s", ev.ID)
	}
	if ev.Color == "" {
		ev.Color = contract.DefaultColor()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	ev.UpdatedAt = s.now()
	s.index[ev.ID] = len(s.events)
	s.events = append(s.events, ev)
	return ev, nil
}

// Update replaces the stored event with the same id. An unknown id is a
// documented silent no-op: the second return is false and nothing changes.
func (s *Store) Update(ev contract.Event) (contract.Event, bool) {
	i, ok := s.index[ev.ID]
	if !ok {
		return contract.Event{}, false
	}
	if strings.TrimSpace(ev.Title) == "" || ev.Start.IsZero() || ev.End.Before(ev.Start) {
		return contract.Event{}, false
	}
	if ev.AllDay {
		ev.Start, ev.End = grid.DayBounds(ev.Start)
	}
	ev.CreatedAt = s.events[i].CreatedAt
	ev.UpdatedAt = s.now()
	s.events[i] = ev
	return ev, true
}

func (s *Store) Remove(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.events); j++ {
		s.index[s.events[j].ID] = j
	}
	return true
}

func (s *Store) Get(id string) (contract.Event, bool) {
	i, ok := s.index[id]
	if !ok {
		return contract.Event{}, false
	}
	return s.events[i], true
}

// List returns events in stable insertion order.
func (s *Store) List() []contract.Event {
	out := make([]contract.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Len() int { return len(s.events) }

// Apply filters the event list; predicate order is irrelevant, each present
// field restricts independently.
func (s *Store) Apply(f contract.Filter) []contract.Event {
	out := make([]contract.Event, 0, len(s.events))
	for _, ev := range s.events {
		if matchesFilter(ev, f) {
			out = append(out, ev)
		}
	}
	return out
}

// Matches reports whether a single event passes the filter. Exposed so
// callers can filter expanded occurrences that never lived in the store.
func Matches(ev contract.Event, f contract.Filter) bool {
	return matchesFilter(ev, f)
}

func matchesFilter(ev contract.Event, f contract.Filter) bool {
	if len(f.Calendars) > 0 && !containsFold(f.Calendars, ev.CalendarID) {
		return false
	}
	if len(f.Categories) > 0 && !containsFold(f.Categories, ev.Category) {
		return false
	}
	if len(f.Tags) > 0 && !anyTagMatches(ev.Tags, f.Tags) {
		return false
	}
	if len(f.Priorities) > 0 {
		p := ev.Priority
		if p == "" {
			p = contract.PriorityMedium
		}
		found := false
		for _, want := range f.Priorities {
			if p == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && ev.End.Before(*f.From) {
		return false
	}
	if f.To != nil && ev.Start.After(*f.To) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(ev.Title), q) &&
			!strings.Contains(strings.ToLower(ev.Description), q) &&
			!strings.Contains(strings.ToLower(ev.Location), q) {
			return false
		}
	}
	if f.HideCompleted && ev.Completed {
		return false
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func anyTagMatches(tags, wanted []string) bool {
	for _, t := range tags {
		if containsFold(wanted, t) {
			return true
		}
	}
	return false
}

// ByRange returns events whose interval intersects [from, to] inclusively:
// the start falls within, the end falls within, or the event contains the
// range. Recurring events contribute their expanded occurrences.
func (s *Store) ByRange(from, to time.Time) []contract.Event {
	out := make([]contract.Event, 0, len(s.events))
	for _, ev := range s.events {
		occs, err := recur.Expand(ev, from, to)
		if err != nil {
			// A malformed rule degrades to the base event, never an error.
			if grid.Overlaps(ev.Start, ev.End, from, to) {
				out = append(out, ev)
			}
			continue
		}
		out = append(out, occs...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// ByDay is ByRange specialized to the day's inclusive bounds.
func (s *Store) ByDay(day time.Time) []contract.Event {
	from, to := grid.DayBounds(day)
	return s.ByRange(from, to)
}

// AddSuggestion appends sg, assigning id and created-at when missing.
func (s *Store) AddSuggestion(sg contract.Suggestion) contract.Suggestion {
	if sg.ID == "" {
		sg.ID = uuid.NewString()
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = s.now()
	}
	s.suggestions = append(s.suggestions, sg)
	return sg
}

func (s *Store) Suggestions() []contract.Suggestion {
	out := make([]contract.Suggestion, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// HasActiveSuggestion reports whether a non-terminal suggestion with the same
// kind and related-event signature already exists. Used to de-duplicate
// repeated scans.
func (s *Store) HasActiveSuggestion(kind contract.SuggestionKind, relatedIDs []string) bool {
	sig := suggestionSignature(kind, relatedIDs)
	for _, sg := range s.suggestions {
		if sg.Applied || sg.Dismissed {
			continue
		}
		if suggestionSignature(sg.Kind, sg.RelatedEventIDs) == sig {
			return true
		}
	}
	return false
}

func suggestionSignature(kind contract.SuggestionKind, relatedIDs []string) string {
	ids := make([]string, len(relatedIDs))
	copy(ids, relatedIDs)
	sort.Strings(ids)
	return string(kind) + "|" + strings.Join(ids, ",")
}

// ApplySuggestion marks the suggestion applied and, when it carries a
// proposed event, creates that event with defaults filled in: title
// "New Event", end = start + 1h, the default palette color, ai-generated
// flag set. Applied and dismissed are terminal, one-way states.
func (s *Store) ApplySuggestion(id string) (*contract.Event, error) {
	i, err := s.findSuggestion(id)
	if err != nil {
		return nil, err
	}
	var created *contract.Event
	if p := s.suggestions[i].Proposed; p != nil {
		ev := contract.Event{
			Title:       p.Title,
			Color:       p.Color,
			Category:    p.Category,
			Tags:        p.Tags,
			AllDay:      p.AllDay,
			AIGenerated: true,
		}
		if ev.Title == "" {
			ev.Title = "New Event"
		}
		if p.Start != nil {
			ev.Start = *p.Start
		} else {
			ev.Start = s.now()
		}
		if p.End != nil {
			ev.End = *p.End
		} else {
			ev.End = ev.Start.Add(time.Hour)
		}
		added, aerr := s.Add(ev)
		if aerr != nil {
			return nil, aerr
		}
		created = &added
	}
	s.suggestions[i].Applied = true
	return created, nil
}

// DismissSuggestion marks the suggestion dismissed. Terminal, one-way.
func (s *Store) DismissSuggestion(id string) error {
	i, err := s.findSuggestion(id)
	if err != nil {
		return err
	}
	s.suggestions[i].Dismissed = true
	return nil
}

func (s *Store) findSuggestion(id string) (int, error) {
	for i, sg := range s.suggestions {
		if sg.ID == id {
			if sg.Applied || sg.Dismissed {
				return 0, ErrSuggestionClosed
			}
			return i, nil
		}
	}
	return 0, ErrSuggestionUnknown
}

// AppendMessage appends to the assistant transcript and returns the stored
// message. The transcript is append-only.
func (s *Store) AppendMessage(role contract.Role, text string) contract.Message {
	msg := contract.Message{
		ID:   uuid.NewString(),
		Role: role,
		Text: text,
		At:   s.now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

func (s *Store) Messages() []contract.Message {
	out := make([]contract.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Calendars() []contract.Calendar {
	out := make([]contract.Calendar, len(s.calendars))
	copy(out, s.calendars)
	return out
}

func (s *Store) SetCalendars(cals []contract.Calendar) {
	s.calendars = make([]contract.Calendar, len(cals))
	copy(s.calendars, cals)
}

func (s *Store) Preferences() contract.Preferences { return s.prefs }

func (s *Store) SetPreferences(p contract.Preferences) { s.prefs = p }
