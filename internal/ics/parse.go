package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calibtrack/internal/log"
	"calibtrack/internal/model"
)

// ParsedEvent is a VEVENT reduced to the fields the calendar uses.
// Recurrence is recorded but not expanded; see Expand.
type ParsedEvent struct {
	UID string
	Seq int

	Summary      string
	Description  string
	Color        model.Color
	ToolSerialID string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID of an overridden instance
}

// IsOverride reports whether the VEVENT replaces one instance of a series.
func (p ParsedEvent) IsOverride() bool { return p.Recurrence != nil }

// Parse reads every VEVENT of an iCalendar payload. VEVENTs that cannot be
// understood are logged and skipped. Floating and date-only values are read
// in loc.
func Parse(body []byte, loc *time.Location) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var events []ParsedEvent
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, loc)
		if err != nil {
			appLog.Warn("ics vevent skipped", "err", err)
			continue
		}
		events = append(events, ev)
	}
	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	var out ParsedEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = unescapeText(p.Value)
	}
	if p := ve.GetProperty(propColor); p != nil {
		out.Color = model.Color(strings.ToLower(strings.TrimSpace(p.Value)))
	}
	if p := ve.GetProperty(propTool); p != nil {
		out.ToolSerialID = strings.TrimSpace(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	start, err := parsePropTime(dtStart, loc)
	if err != nil {
		return out, err
	}
	out.Start = start
	out.AllDay = isDateValue(dtStart)

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		if end, err := parsePropTime(dtEnd, loc); err == nil {
			out.End = end
		}
	}
	if out.End.IsZero() || out.End.Before(out.Start) {
		if out.AllDay {
			out.End = out.Start.AddDate(0, 0, 1)
		} else {
			out.End = out.Start
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, tzFor(p, loc)); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parsePropTime(p, loc); err == nil {
			out.Recurrence = &t
		}
	}
	return out, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func tzFor(p *ical.IANAProperty, fallback *time.Location) *time.Location {
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if loc, err := time.LoadLocation(tzs[0]); err == nil {
			return loc
		}
	}
	return fallback
}

func parsePropTime(p *ical.IANAProperty, loc *time.Location) (time.Time, error) {
	return parseICSTime(p.Value, tzFor(p, loc))
}

// parseICSTime reads the DATE, local DATE-TIME and UTC DATE-TIME forms.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, `,`, `\;`, `;`, `\n`, "\n", `\N`, "\n")

// unescapeText reverses RFC 5545 TEXT escaping.
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return textUnescaper.Replace(s)
}

// ToEvent converts a non-recurring parsed event to a calendar event. Unknown
// colors fall back to blue.
func (p ParsedEvent) ToEvent() model.CalendarEvent {
	color := p.Color
	if !color.Valid() {
		color = model.ColorBlue
	}
	title := p.Summary
	if title == "" {
		title = "(untitled)"
	}
	return model.CalendarEvent{
		ID:           p.UID,
		Title:        title,
		Color:        color,
		Start:        p.Start,
		End:          p.End,
		Description:  p.Description,
		ToolSerialID: p.ToolSerialID,
	}
}
