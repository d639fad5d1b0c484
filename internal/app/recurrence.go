package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agis/aical/internal/contract"
)

// parseRepeatRule parses the --repeat flag into a recurrence rule. The first
// segment is the frequency, optionally with weekdays for weekly
// ("weekly:mon,wed"); later ;-separated segments carry interval=N, count=N,
// or until=YYYY-MM-DD. Count and until are mutually exclusive.
func parseRepeatRule(v string) (*contract.RecurrenceRule, error) {
	s := strings.ToLower(strings.TrimSpace(v))
	if s == "" {
		return nil, nil
	}
	segments := strings.Split(s, ";")
	rule := &contract.RecurrenceRule{Interval: 1}

	head := strings.TrimSpace(segments[0])
	if strings.Contains(head, ":") {
		parts := strings.SplitN(head, ":", 2)
		head = strings.TrimSpace(parts[0])
		if head != "weekly" {
			return nil, fmt.Errorf("weekday list is only valid with weekly")
		}
		ws, err := parseWeekdays(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}
		rule.Weekdays = ws
	}
	switch head {
	case "daily":
		rule.Frequency = contract.FreqDaily
	case "weekly":
		rule.Frequency = contract.FreqWeekly
	case "monthly":
		rule.Frequency = contract.FreqMonthly
	case "yearly":
		rule.Frequency = contract.FreqYearly
	default:
		return nil, fmt.Errorf("unsupported --repeat frequency: %s", head)
	}

	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		parts := strings.SplitN(seg, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --repeat option: %s", seg)
		}
		key, val := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch key {
		case "interval":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid repeat interval: %s", val)
			}
			rule.Interval = n
		case "count":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid repeat count: %s", val)
			}
			rule.Count = n
		case "until":
			t, err := time.Parse("2006-01-02", val)
			if err != nil {
				return nil, fmt.Errorf("invalid repeat until date: %s", val)
			}
			end := t.AddDate(0, 0, 1).Add(-time.Second)
			rule.Until = &end
		default:
			return nil, fmt.Errorf("unknown --repeat option: %s", key)
		}
	}
	if rule.Count > 0 && rule.Until != nil {
		return nil, fmt.Errorf("use either count or until, not both")
	}
	return rule, nil
}

func parseWeekdays(v string) ([]time.Weekday, error) {
	parts := strings.Split(v, ",")
	out := make([]time.Weekday, 0, len(parts))
	seen := map[time.Weekday]bool{}
	for _, p := range parts {
		wd, err := parseWeekdayToken(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if !seen[wd] {
			out = append(out, wd)
			seen[wd] = true
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("weekly repeat requires weekdays")
	}
	return out, nil
}

func parseWeekdayToken(v string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "mon", "monday":
		return time.Monday, nil
	case "tue", "tues", "tuesday":
		return time.Tuesday, nil
	case "wed", "wednesday":
		return time.Wednesday, nil
	case "thu", "thurs", "thursday":
		return time.Thursday, nil
	case "fri", "friday":
		return time.Friday, nil
	case "sat", "saturday":
		return time.Saturday, nil
	case "sun", "sunday":
		return time.Sunday, nil
	default:
		return time.Sunday, fmt.Errorf("invalid weekday: %s", v)
	}
}
