// Package timeparse turns terminal-friendly date expressions into time values.
package timeparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	naturaldate "github.com/tj/go-naturaldate"
)

// ParseDateTime accepts RFC3339, YYYY-MM-DD[THH:MM], today/tomorrow/yesterday,
// signed relative days (+3d, -1d), and as a last resort natural language
// ("next tuesday at 3pm").
func ParseDateTime(input string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}

	switch s {
	case "today":
		y, m, d := now.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	case "tomorrow":
		v, _ := ParseDateTime("today", now, loc)
		return v.AddDate(0, 0, 1), nil
	case "yesterday":
		v, _ := ParseDateTime("today", now, loc)
		return v.AddDate(0, 0, -1), nil
	}

	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		sign := 1
		if strings.HasPrefix(s, "-") {
			sign = -1
		}
		raw := strings.TrimPrefix(strings.TrimPrefix(s, "+"), "-")
		if strings.HasSuffix(raw, "d") {
			n, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
			if err != nil {
				return time.Time{}, fmt.Errorf("invalid relative day: %s", input)
			}
			v, _ := ParseDateTime("today", now, loc)
			return v.AddDate(0, 0, sign*n), nil
		}
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, input, loc); err == nil {
			return ts, nil
		}
	}

	if ts, err := naturaldate.Parse(input, now.In(loc), naturaldate.WithDirection(naturaldate.Future)); err == nil {
		return ts, nil
	}

	return time.Time{}, fmt.Errorf("unsupported datetime format: %s", input)
}

// ParseClock parses an HH:MM wall-clock string.
func ParseClock(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time: %s", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time: %s", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time: %s", s)
	}
	return hour, minute, nil
}
