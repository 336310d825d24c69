package calendar

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"calibtrack/internal/model"
)

// View is a calendar granularity.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ParseView accepts "day", "week" or "month" in any case.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewDay, ViewWeek, ViewMonth:
		return v, nil
	case "":
		return ViewMonth, nil
	default:
		return "", fmt.Errorf("unknown calendar view %q", s)
	}
}

// ViewRange returns the half-open interval [start, end) covered by view
// around anchor. Weeks begin on weekStart.
func ViewRange(view View, anchor time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	day := StartOfDay(anchor, anchor.Location())
	switch view {
	case ViewDay:
		return day, day.AddDate(0, 0, 1)
	case ViewWeek:
		start := WeekStart(day, weekStart)
		return start, start.AddDate(0, 0, 7)
	default:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(0, 1, 0)
	}
}

// WeekStart returns midnight of the first day of the week containing t.
func WeekStart(t time.Time, weekStart time.Weekday) time.Time {
	day := StartOfDay(t, t.Location())
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// Day is one cell of a month grid.
type Day struct {
	Date    time.Time             `json:"date"`
	InMonth bool                  `json:"inMonth"`
	Events  []model.CalendarEvent `json:"events"`
}

// Grid is a month laid out as whole weeks.
type Grid struct {
	Month     time.Time    `json:"month"`
	WeekStart time.Weekday `json:"weekStart"`
	Weeks     [][7]Day     `json:"weeks"`
}

// GridRange is the span a month grid covers: from the start of the week
// holding the 1st to the end of the week holding the last day.
func GridRange(anchor time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	first, next := ViewRange(ViewMonth, anchor, weekStart)
	start := WeekStart(first, weekStart)
	end := WeekStart(next.AddDate(0, 0, -1), weekStart).AddDate(0, 0, 7)
	return start, end
}

// BuildGrid lays out the month containing anchor. Each day holds the events
// of events that intersect it, ordered by start time; ties keep the input order.
func BuildGrid(anchor time.Time, weekStart time.Weekday, events iter.Seq[model.CalendarEvent]) Grid {
	start, end := GridRange(anchor, weekStart)
	month := anchor.Month()

	var all []model.CalendarEvent
	if events != nil {
		for ev := range events {
			all = append(all, ev)
		}
	}
	slices.SortStableFunc(all, func(a, b model.CalendarEvent) int {
		return a.Start.Compare(b.Start)
	})

	g := Grid{
		Month:     time.Date(anchor.Year(), month, 1, 0, 0, 0, 0, anchor.Location()),
		WeekStart: weekStart,
	}
	for d := start; d.Before(end); d = d.AddDate(0, 0, 7) {
		var week [7]Day
		for i := range week {
			date := d.AddDate(0, 0, i)
			next := date.AddDate(0, 0, 1)
			cell := Day{Date: date, InMonth: date.Month() == month}
			for _, ev := range all {
				if Overlaps(ev, date, next) {
					cell.Events = append(cell.Events, ev)
				}
			}
			week[i] = cell
		}
		g.Weeks = append(g.Weeks, week)
	}
	return g
}

// Overlaps reports whether ev intersects [start, end). A zero-length event
// counts when its instant lies inside the interval.
func Overlaps(ev model.CalendarEvent, start, end time.Time) bool {
	if !ev.Start.Before(end) {
		return false
	}
	if ev.End.After(start) {
		return true
	}
	return ev.Start.Equal(ev.End) && !ev.Start.Before(start)
}
