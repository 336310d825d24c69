package calendar

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibtrack/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func torqueWrench() model.Tool {
	return model.Tool{
		SerialID:    "SN001",
		Brand:       "Snap-on",
		Description: "Torque Wrench",
		ModelPartNo: "TW-100",
	}
}

func TestNewCalibrationEvent(t *testing.T) {
	start := date(2025, 3, 15)
	c := model.Classification{Level: model.RiskDrifting}

	ev := NewCalibrationEvent("cal-SN001-1", torqueWrench(), c, start)
	assert.Equal(t, "Calibrate: Torque Wrench", ev.Title)
	assert.Equal(t, start, ev.Start)
	assert.Equal(t, time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC), ev.End)
	assert.Equal(t, model.ColorAmber, ev.Color)
	assert.Equal(t, "SN001", ev.ToolSerialID)
	assert.Equal(t, "Tool ID: SN001, Model: TW-100, Brand: Snap-on, Status: Drifting", ev.Description)
	assert.True(t, IsCalibration(ev))
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, model.ColorRed, ColorFor(model.RiskOverdue))
	assert.Equal(t, model.ColorAmber, ColorFor(model.RiskDrifting))
	assert.Equal(t, model.ColorEmerald, ColorFor(model.RiskOptimal))
	assert.Equal(t, model.ColorBlue, ColorFor(model.RiskUnknown))
	for _, l := range []model.RiskLevel{model.RiskOverdue, model.RiskDrifting, model.RiskOptimal, model.RiskUnknown} {
		assert.True(t, ColorFor(l).Valid())
	}
}

func TestScheduleDate(t *testing.T) {
	now := time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC)
	rec := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	due := date(2025, 4, 1)

	tool := torqueWrench()
	assert.Equal(t, date(2025, 1, 2), ScheduleDate(tool, model.Classification{}, now, time.UTC))

	tool.CalibrationDue = &due
	assert.Equal(t, due, ScheduleDate(tool, model.Classification{}, now, time.UTC))
	assert.Equal(t, date(2025, 3, 15), ScheduleDate(tool, model.Classification{RecommendedDate: &rec}, now, time.UTC))
}

func TestDescriptionRoundTrip(t *testing.T) {
	fields := []Field{
		{Key: "Tool ID", Value: "SN001"},
		{Key: "Model", Value: "TW-100"},
		{Key: "Brand", Value: "Snap-on"},
		{Key: "Status", Value: "Optimal"},
	}
	assert.Equal(t, fields, ParseDescription(FormatDescription(fields)))
	assert.Nil(t, ParseDescription(""))
	assert.Equal(t, []Field{{Key: "note"}}, ParseDescription("note"))
}

func TestDescriptionDelimiterInValue(t *testing.T) {
	fields := []Field{{Key: "Brand", Value: "Acme, Inc"}}
	got := ParseDescription(FormatDescription(fields))
	assert.Len(t, got, 2)
}

func TestGoogleLink(t *testing.T) {
	ev := model.CalendarEvent{
		Title:       "Calibrate: Torque Wrench",
		Start:       date(2025, 3, 15),
		End:         time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC),
		Description: "Tool ID: SN001",
	}
	want := "https://calendar.google.com/calendar/render?action=TEMPLATE" +
		"&text=Calibrate%3A%20Torque%20Wrench" +
		"&dates=20250315T000000Z/20250315T010000Z" +
		"&details=Tool%20ID%3A%20SN001"
	assert.Equal(t, want, GoogleLink(ev))

	ev.Description = ""
	assert.NotContains(t, GoogleLink(ev), "details=")
}

func TestFormatGoogleTimeConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	assert.Equal(t, "20250314T170000Z", FormatGoogleTime(time.Date(2025, 3, 15, 0, 0, 0, 0, loc)))
}

func TestViewRange(t *testing.T) {
	anchor := time.Date(2025, 3, 13, 15, 0, 0, 0, time.UTC) // Thursday

	start, end := ViewRange(ViewDay, anchor, time.Monday)
	assert.Equal(t, date(2025, 3, 13), start)
	assert.Equal(t, date(2025, 3, 14), end)

	start, end = ViewRange(ViewWeek, anchor, time.Monday)
	assert.Equal(t, date(2025, 3, 10), start)
	assert.Equal(t, date(2025, 3, 17), end)

	start, end = ViewRange(ViewWeek, anchor, time.Sunday)
	assert.Equal(t, date(2025, 3, 9), start)
	assert.Equal(t, date(2025, 3, 16), end)

	start, end = ViewRange(ViewMonth, anchor, time.Monday)
	assert.Equal(t, date(2025, 3, 1), start)
	assert.Equal(t, date(2025, 4, 1), end)
}

func TestParseView(t *testing.T) {
	v, err := ParseView("Week")
	require.NoError(t, err)
	assert.Equal(t, ViewWeek, v)

	v, err = ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewMonth, v)

	_, err = ParseView("year")
	assert.Error(t, err)
}

func TestBuildGrid(t *testing.T) {
	events := []model.CalendarEvent{
		{ID: "b", Title: "B", Start: date(2025, 3, 15).Add(2 * time.Hour), End: date(2025, 3, 15).Add(3 * time.Hour)},
		{ID: "a1", Title: "A1", Start: date(2025, 3, 15), End: date(2025, 3, 15).Add(time.Hour)},
		{ID: "a2", Title: "A2", Start: date(2025, 3, 15), End: date(2025, 3, 15).Add(time.Hour)},
		{ID: "span", Title: "Span", Start: date(2025, 3, 31).Add(20 * time.Hour), End: date(2025, 4, 1).Add(2 * time.Hour)},
	}

	g := BuildGrid(date(2025, 3, 20), time.Monday, slices.Values(events))
	require.Len(t, g.Weeks, 6)
	assert.Equal(t, date(2025, 2, 24), g.Weeks[0][0].Date)
	assert.False(t, g.Weeks[0][0].InMonth)
	for _, w := range g.Weeks {
		assert.Equal(t, time.Monday, w[0].Date.Weekday())
	}

	// Saturday 15 March is in the third row.
	sat := g.Weeks[2][5]
	require.Equal(t, date(2025, 3, 15), sat.Date)
	ids := make([]string, 0, len(sat.Events))
	for _, ev := range sat.Events {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"a1", "a2", "b"}, ids)

	last := g.Weeks[5]
	assert.Equal(t, date(2025, 3, 31), last[0].Date)
	assert.Len(t, last[0].Events, 1)
	assert.Len(t, last[1].Events, 1)
	assert.Empty(t, last[2].Events)
}

func TestBuildGridSundayStart(t *testing.T) {
	g := BuildGrid(date(2025, 2, 10), time.Sunday, nil)
	require.Len(t, g.Weeks, 5)
	assert.Equal(t, date(2025, 1, 26), g.Weeks[0][0].Date)
	assert.Equal(t, time.Sunday, g.Weeks[0][0].Date.Weekday())
}

func TestOverlaps(t *testing.T) {
	s, e := date(2025, 3, 15), date(2025, 3, 16)
	at := func(h int) time.Time { return s.Add(time.Duration(h) * time.Hour) }

	assert.True(t, Overlaps(model.CalendarEvent{Start: at(0), End: at(1)}, s, e))
	assert.True(t, Overlaps(model.CalendarEvent{Start: at(-2), End: at(1)}, s, e))
	assert.False(t, Overlaps(model.CalendarEvent{Start: at(-2), End: at(0)}, s, e))
	assert.False(t, Overlaps(model.CalendarEvent{Start: at(24), End: at(25)}, s, e))
	assert.True(t, Overlaps(model.CalendarEvent{Start: at(0), End: at(0)}, s, e))
	assert.False(t, Overlaps(model.CalendarEvent{Start: at(24), End: at(24)}, s, e))
}
