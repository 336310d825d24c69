package ics

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"calibtrack/internal/model"
)

// ScheduleRule returns the monthly RRULE of a tool's calibration cycle,
// anchored at first.
func ScheduleRule(first time.Time, intervalMonths int) (*rrule.RRule, error) {
	if intervalMonths <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %d", intervalMonths)
	}
	return rrule.NewRRule(rrule.ROption{
		Freq:     rrule.MONTHLY,
		Interval: intervalMonths,
		Dtstart:  first,
	})
}

// ProjectSchedule lists the upcoming calibration dates of a tool in
// [from, until]. The series starts at the recommended date, else the stored
// due date; a tool with neither has no schedule.
//
// Occurrences follow RFC 5545: a series anchored on the 31st skips months
// without a 31st instead of rolling over.
func ProjectSchedule(tool model.Tool, c model.Classification, from, until time.Time) ([]time.Time, error) {
	var first time.Time
	switch {
	case c.RecommendedDate != nil:
		first = *c.RecommendedDate
	case tool.CalibrationDue != nil:
		first = *tool.CalibrationDue
	default:
		return nil, nil
	}
	r, err := ScheduleRule(first, c.IntervalMonths)
	if err != nil {
		return nil, err
	}
	return r.Between(from, until, true), nil
}
