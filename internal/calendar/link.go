package calendar

import (
	"net/url"
	"strings"
	"time"

	"calibtrack/internal/model"
)

const googleRenderURL = "https://calendar.google.com/calendar/render"

// googleTimeLayout is ISO 8601 in UTC without "-", ":" or fractional seconds.
const googleTimeLayout = "20060102T150405Z"

// FormatGoogleTime formats t for the dates parameter of a Google Calendar link.
func FormatGoogleTime(t time.Time) string {
	return t.UTC().Format(googleTimeLayout)
}

// GoogleLink returns a URL that opens Google Calendar's "new event" page
// prefilled with ev. It is string construction only; nothing is sent.
func GoogleLink(ev model.CalendarEvent) string {
	var b strings.Builder
	b.WriteString(googleRenderURL)
	b.WriteString("?action=TEMPLATE")
	b.WriteString("&text=")
	b.WriteString(escape(ev.Title))
	b.WriteString("&dates=")
	b.WriteString(FormatGoogleTime(ev.Start))
	b.WriteString("/")
	b.WriteString(FormatGoogleTime(ev.End))
	if ev.Description != "" {
		b.WriteString("&details=")
		b.WriteString(escape(ev.Description))
	}
	return b.String()
}

// escape percent-encodes s for a query value, spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
