package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calibtrack/internal/log"
	"calibtrack/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig bounds recurrence expansion of imported events.
type ExpandConfig struct {
	// RangeStart / RangeEnd is the window occurrences are generated for.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single series. Zero means the default.
	MaxOccurrencesPerEvent int
}

type ExpandResult struct {
	Events []model.CalendarEvent
	// Truncated lists the UIDs whose series hit the cap.
	Truncated []string
}

// Expand turns parsed VEVENTs into calendar events. Single events are kept
// whatever their date; recurring ones yield one event per occurrence inside
// the window, with EXDATEs removed and RECURRENCE-ID overrides applied.
// Occurrence IDs are "<uid>-<YYYYMMDD>" and occurrences carry no tool link.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var res ExpandResult
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return res, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		}
	}

	for _, ev := range events {
		if ev.IsOverride() {
			continue
		}
		if ev.RawRRule == "" {
			res.Events = append(res.Events, ev.ToEvent())
			continue
		}
		occ, hitCap := expandRecurring(ev, overrides[ev.UID], cfg)
		res.Events = append(res.Events, occ...)
		if hitCap {
			res.Truncated = append(res.Truncated, ev.UID)
			appLog.Warn("ics expand truncated", "uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}
	return res, nil
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEvent, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	times := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)
	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]model.CalendarEvent, 0, len(times))
	for _, start := range times {
		inst := ev
		inst.Start = start
		inst.End = start.Add(dur)
		if o, ok := findOverride(overrides, start); ok {
			inst = o
		}
		e := inst.ToEvent()
		e.ID = ev.UID + "-" + start.Format("20060102")
		// A tool is linked to one event, never to a series.
		e.ToolSerialID = ""
		out = append(out, e)
	}
	return out, hitCap
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}
