// Package calendar builds calendar events for tools and lays them out in
// day, week and month views.
package calendar

import (
	"strings"
	"time"

	"calibtrack/internal/model"
)

// TitlePrefix starts the title of every calibration event.
const TitlePrefix = "Calibrate: "

// DefaultDuration is the nominal length of a calibration event. Calibration
// events are placeholders on the calendar, not time-blocked tasks.
const DefaultDuration = time.Hour

// Field is one "Key: Value" pair of an event description.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

const (
	fieldSep = ", "
	kvSep    = ": "
)

// FormatDescription renders fields as "K1: V1, K2: V2".
//
// ParseDescription reverses it only for values that contain neither ", "
// nor ": "; there is no escaping.
func FormatDescription(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Key+kvSep+f.Value)
	}
	return strings.Join(parts, fieldSep)
}

// ParseDescription splits a description into its key/value pairs. An item
// without ": " becomes a key with an empty value.
func ParseDescription(s string) []Field {
	if s == "" {
		return nil
	}
	items := strings.Split(s, fieldSep)
	out := make([]Field, 0, len(items))
	for _, item := range items {
		key, value, _ := strings.Cut(item, kvSep)
		out = append(out, Field{Key: key, Value: value})
	}
	return out
}

// ToolFields is the description content of a calibration event.
func ToolFields(tool model.Tool, level model.RiskLevel) []Field {
	return []Field{
		{Key: "Tool ID", Value: tool.SerialID},
		{Key: "Model", Value: tool.ModelPartNo},
		{Key: "Brand", Value: tool.Brand},
		{Key: "Status", Value: string(level)},
	}
}

// ColorFor picks the event color of a risk level.
func ColorFor(level model.RiskLevel) model.Color {
	switch level {
	case model.RiskOverdue:
		return model.ColorRed
	case model.RiskDrifting:
		return model.ColorAmber
	case model.RiskOptimal:
		return model.ColorEmerald
	default:
		return model.ColorBlue
	}
}

// ScheduleDate picks the day a calibration event goes on: the recommended
// date, else the stored due date, else today. The result is midnight in loc.
func ScheduleDate(tool model.Tool, c model.Classification, now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	d := now
	switch {
	case c.RecommendedDate != nil:
		d = *c.RecommendedDate
	case tool.CalibrationDue != nil:
		d = *tool.CalibrationDue
	}
	return StartOfDay(d, loc)
}

// NewCalibrationEvent builds the event proposed for tool.
func NewCalibrationEvent(id string, tool model.Tool, c model.Classification, start time.Time) model.CalendarEvent {
	return model.CalendarEvent{
		ID:           id,
		Title:        TitlePrefix + tool.Description,
		Color:        ColorFor(c.Level),
		Start:        start,
		End:          start.Add(DefaultDuration),
		Description:  FormatDescription(ToolFields(tool, c.Level)),
		ToolSerialID: tool.SerialID,
	}
}

// IsCalibration reports whether ev was created for a tool.
func IsCalibration(ev model.CalendarEvent) bool {
	return ev.ToolSerialID != "" || strings.HasPrefix(ev.Title, TitlePrefix)
}

// StartOfDay returns midnight of t's calendar date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
