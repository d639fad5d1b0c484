// Package grid computes the day sequences behind month, week, and day views.
// Everything here is a pure function of its inputs.
package grid

import (
	"time"

	"github.com/ncruces/go-strftime"
)

// Days returns the ordered calendar-grid days covering every full week that
// overlaps ref's month: from the start-of-week of the month's first day
// through the end-of-week of its last day. The result length is always a
// multiple of 7.
func Days(ref time.Time, weekStart time.Weekday) []time.Time {
	first := StartOfMonth(ref)
	last := first.AddDate(0, 1, -1)
	from := StartOfWeek(first, weekStart)
	to := StartOfWeek(last, weekStart).AddDate(0, 0, 6)

	days := make([]time.Time, 0, 42)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := StartOfDay(t)
	delta := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -delta)
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// DayBounds returns the inclusive [00:00:00.000, 23:59:59.999] range of t's day.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1).Add(-time.Millisecond)
}

func WeekBounds(t time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	start := StartOfWeek(t, weekStart)
	return start, start.AddDate(0, 0, 7).Add(-time.Millisecond)
}

func MonthBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfMonth(t)
	return start, start.AddDate(0, 1, 0).Add(-time.Millisecond)
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func SameMonth(a, b time.Time) bool {
	ay, am, _ := a.Date()
	by, bm, _ := b.Date()
	return ay == by && am == bm
}

func IsToday(t time.Time) bool { return SameDay(t, time.Now()) }

// Clock decomposes t into its wall-clock hour and minute.
func Clock(t time.Time) (int, int) { return t.Hour(), t.Minute() }

// At combines day's date with a wall-clock time.
func At(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect,
// boundaries included.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// Label renders t with an strftime pattern, e.g. "%A %d %B" for day headers.
func Label(t time.Time, pattern string) string {
	return strftime.Format(pattern, t)
}
