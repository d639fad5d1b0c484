// Package recur expands stored recurrence rules into concrete occurrences.
// The rule is treated as a generator: occurrences are derived values and are
// never written back into the base event.
package recur

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/agis/aical/internal/contract"
)

// Safety cap against unbounded rules queried over huge windows.
const maxOccurrences = 1000

var freqMap = map[contract.Frequency]rrule.Frequency{
	contract.FreqDaily:   rrule.DAILY,
	contract.FreqWeekly:  rrule.WEEKLY,
	contract.FreqMonthly: rrule.MONTHLY,
	contract.FreqYearly:  rrule.YEARLY,
}

var weekdayMap = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Expand returns the virtual occurrences of ev within [from, to], inclusive.
// Events without a rule yield themselves when they intersect the window.
// Occurrences other than the base keep the event's fields and duration but
// carry a derived instance id so views can tell them apart.
func Expand(ev contract.Event, from, to time.Time) ([]contract.Event, error) {
	if ev.Recurrence == nil {
		if intersects(ev, from, to) {
			return []contract.Event{ev}, nil
		}
		return nil, nil
	}

	rule, err := buildRule(ev)
	if err != nil {
		return nil, err
	}

	duration := ev.End.Sub(ev.Start)
	// Widen the left edge so an occurrence that starts before the window but
	// overlaps into it is still returned.
	starts := rule.Between(from.Add(-duration), to, true)
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
	}

	out := make([]contract.Event, 0, len(starts))
	for _, start := range starts {
		occ := ev
		occ.Start = start
		occ.End = start.Add(duration)
		if !intersects(occ, from, to) {
			continue
		}
		if !start.Equal(ev.Start) {
			occ.ID = InstanceID(ev.ID, start)
		}
		out = append(out, occ)
	}
	return out, nil
}

// InstanceID derives a stable per-occurrence id from the base event id.
func InstanceID(baseID string, start time.Time) string {
	return baseID + "@" + start.UTC().Format(time.RFC3339)
}

func buildRule(ev contract.Event) (*rrule.RRule, error) {
	freq, ok := freqMap[ev.Recurrence.Frequency]
	if !ok {
		return nil, fmt.Errorf("unsupported recurrence frequency: %s", ev.Recurrence.Frequency)
	}
	opt := rrule.ROption{
		Freq:     freq,
		Dtstart:  ev.Start,
		Interval: ev.Recurrence.Interval,
	}
	if opt.Interval <= 0 {
		opt.Interval = 1
	}
	if ev.Recurrence.Count > 0 {
		opt.Count = ev.Recurrence.Count
	}
	if ev.Recurrence.Until != nil {
		opt.Until = *ev.Recurrence.Until
	}
	if freq == rrule.WEEKLY {
		for _, wd := range ev.Recurrence.Weekdays {
			if rd, ok := weekdayMap[wd]; ok {
				opt.Byweekday = append(opt.Byweekday, rd)
			}
		}
	}
	return rrule.NewRRule(opt)
}

func intersects(ev contract.Event, from, to time.Time) bool {
	return !ev.End.Before(from) && !to.Before(ev.Start)
}
