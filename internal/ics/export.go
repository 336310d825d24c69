// Package ics exports calendar events as iCalendar, imports them back and
// projects a tool's recurring calibration schedule.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"calibtrack/internal/model"
)

const productID = "-//calibtrack//Calibration Calendar//EN"

// Non-standard properties carrying the fields iCalendar has no slot for.
const (
	propTool  = ical.ComponentProperty("X-CALIBTRACK-TOOL")
	propColor = ical.ComponentProperty("COLOR")
)

// Export renders events as a VCALENDAR. stamp becomes every DTSTAMP.
func Export(events []model.CalendarEvent, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Calibration schedule")

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Color != "" {
			ve.SetProperty(propColor, string(ev.Color))
		}
		if ev.ToolSerialID != "" {
			ve.SetProperty(propTool, ev.ToolSerialID)
		}
	}
	return cal.Serialize()
}
