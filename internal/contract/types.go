package contract

import "time"

const SchemaVersion = "v1"

type ErrorCode string

const (
	ErrGeneric          ErrorCode = "GENERIC_FAILURE"
	ErrInvalidUsage     ErrorCode = "INVALID_USAGE"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrConflict         ErrorCode = "CONFLICT"
	ErrStateUnavailable ErrorCode = "STATE_UNAVAILABLE"
	ErrAssistantBusy    ErrorCode = "ASSISTANT_BUSY"
)

type ErrorEnvelope struct {
	SchemaVersion string         `json:"schema_version"`
	Error         ErrorBody      `json:"error"`
	Meta          map[string]any `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Hint    string    `json:"hint,omitempty"`
}

type SuccessEnvelope struct {
	SchemaVersion string         `json:"schema_version"`
	Command       string         `json:"command"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Data          any            `json:"data"`
	Meta          map[string]any `json:"meta"`
	Warnings      []string       `json:"warnings"`
}

// DoctorCheck is one preflight health probe result.
type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// RecurrenceRule is a compact description of a repeating pattern. It is
// attached to the base event and expanded on demand; occurrences are never
// written back into the rule.
type RecurrenceRule struct {
	Frequency Frequency      `json:"frequency"`
	Interval  int            `json:"interval,omitempty"`
	Until     *time.Time     `json:"until,omitempty"`
	Count     int            `json:"count,omitempty"`
	Weekdays  []time.Weekday `json:"weekdays,omitempty"`
}

type Attendee struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Status    string `json:"status,omitempty"`
	Organizer bool   `json:"organizer,omitempty"`
}

type Notification struct {
	MinutesBefore int    `json:"minutes_before"`
	Channel       string `json:"channel"`
}

type Event struct {
	ID            string          `json:"id"`
	CalendarID    string          `json:"calendar_id,omitempty"`
	Title         string          `json:"title"`
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
	AllDay        bool            `json:"all_day,omitempty"`
	Color         string          `json:"color,omitempty"`
	Description   string          `json:"description,omitempty"`
	Location      string          `json:"location,omitempty"`
	Category      string          `json:"category,omitempty"`
	Priority      Priority        `json:"priority,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	Attendees     []Attendee      `json:"attendees,omitempty"`
	Notifications []Notification  `json:"notifications,omitempty"`
	Recurrence    *RecurrenceRule `json:"recurrence,omitempty"`
	Completed     bool            `json:"completed,omitempty"`
	AIGenerated   bool            `json:"ai_generated,omitempty"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at,omitempty"`
}

type SuggestionKind string

const (
	SuggestConflict     SuggestionKind = "conflict"
	SuggestOptimization SuggestionKind = "optimization"
	SuggestNewEvent     SuggestionKind = "new-event"
	SuggestReminder     SuggestionKind = "reminder"
	SuggestReschedule   SuggestionKind = "reschedule"
)

// EventProposal is the partial event payload carried by a new-event
// suggestion. Absent fields fall back to store defaults when applied.
type EventProposal struct {
	Title    string     `json:"title,omitempty"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	Color    string     `json:"color,omitempty"`
	Category string     `json:"category,omitempty"`
	Tags     []string   `json:"tags,omitempty"`
	AllDay   bool       `json:"all_day,omitempty"`
}

type Suggestion struct {
	ID              string         `json:"id"`
	Kind            SuggestionKind `json:"kind"`
	Message         string         `json:"message"`
	Confidence      float64        `json:"confidence"`
	RelatedEventIDs []string       `json:"related_event_ids,omitempty"`
	Proposed        *EventProposal `json:"proposed,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	Dismissed       bool           `json:"dismissed,omitempty"`
	Applied         bool           `json:"applied,omitempty"`
}

// Filter predicates combine with logical AND; each present field is
// independently restrictive.
type Filter struct {
	Calendars     []string   `json:"calendars,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Priorities    []Priority `json:"priorities,omitempty"`
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
	Search        string     `json:"search,omitempty"`
	HideCompleted bool       `json:"hide_completed,omitempty"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	ID   string    `json:"id"`
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

type Calendar struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
	Default bool   `json:"default,omitempty"`
}

type NotifyPrefs struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

type Preferences struct {
	WorkStart       string         `json:"work_start"`
	WorkEnd         string         `json:"work_end"`
	WorkDays        []time.Weekday `json:"work_days"`
	WeekStart       time.Weekday   `json:"week_start"`
	TimeFormat      string         `json:"time_format"`
	DefaultCalendar string         `json:"default_calendar"`
	Notify          NotifyPrefs    `json:"notify"`
}

type ViewType string

const (
	ViewMonth  ViewType = "month"
	ViewWeek   ViewType = "week"
	ViewDay    ViewType = "day"
	ViewAgenda ViewType = "agenda"
)

// Palette is the fixed event color rotation; the first entry is the default
// for events created without an explicit color.
var Palette = []string{"#4285F4", "#EA4335", "#34A853", "#FBBC05", "#8E24AA", "#039BE5"}

func DefaultColor() string { return Palette[0] }

func DefaultPreferences() Preferences {
	return Preferences{
		WorkStart:       "09:00",
		WorkEnd:         "17:00",
		WorkDays:        []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		WeekStart:       time.Sunday,
		TimeFormat:      "24h",
		DefaultCalendar: "personal",
		Notify:          NotifyPrefs{Email: true, Push: true},
	}
}
