// Package risk classifies tools by calibration urgency.
//
// The classification is a best-effort heuristic over whatever metadata the
// data source provides. Missing or malformed values never produce errors:
// the interval falls back to a default and an unknown remaining time yields
// RiskUnknown.
package risk

import (
	"time"

	"calibtrack/internal/model"
)

const (
	// DefaultIntervalMonths applies when a tool has no usable interval.
	DefaultIntervalMonths = 6

	// DriftingMonths is the upper bound (inclusive) of the Drifting band.
	DriftingMonths = 2
)

// Classifier holds the tunables of Classify. The zero value uses the
// package defaults.
type Classifier struct {
	DefaultInterval int
	DriftingMonths  int
}

var defaultClassifier Classifier

// Classify classifies tool with the package defaults.
func Classify(tool model.Tool, now time.Time) model.Classification {
	return defaultClassifier.Classify(tool, now)
}

// Classify computes the recommended next calibration date, remaining months
// and risk level of tool as seen at now.
func (c Classifier) Classify(tool model.Tool, now time.Time) model.Classification {
	interval := c.interval(tool)
	out := model.Classification{IntervalMonths: interval}

	if tool.LastCalibration != nil {
		rec := AddMonths(*tool.LastCalibration, interval)
		out.RecommendedDate = &rec
	}

	switch {
	case tool.RemainingMonths != nil:
		v := *tool.RemainingMonths
		out.RemainingMonths = &v
	case tool.CalibrationDue != nil:
		v := MonthsUntil(now, *tool.CalibrationDue)
		out.RemainingMonths = &v
	case out.RecommendedDate != nil:
		v := MonthsUntil(now, *out.RecommendedDate)
		out.RemainingMonths = &v
	}

	out.Level = c.LevelFor(out.RemainingMonths)
	return out
}

// LevelFor maps remaining months to a risk level.
func (c Classifier) LevelFor(remaining *int) model.RiskLevel {
	if remaining == nil {
		return model.RiskUnknown
	}
	drifting := c.DriftingMonths
	if drifting <= 0 {
		drifting = DriftingMonths
	}
	switch m := *remaining; {
	case m <= 0:
		return model.RiskOverdue
	case m <= drifting:
		return model.RiskDrifting
	default:
		return model.RiskOptimal
	}
}

// LevelFor maps remaining months to a risk level with the package defaults.
func LevelFor(remaining *int) model.RiskLevel {
	return defaultClassifier.LevelFor(remaining)
}

func (c Classifier) interval(tool model.Tool) int {
	if tool.IntervalMonths != nil && *tool.IntervalMonths > 0 {
		return *tool.IntervalMonths
	}
	if c.DefaultInterval > 0 {
		return c.DefaultInterval
	}
	return DefaultIntervalMonths
}

// AddMonths adds n calendar months to t. The day of month is kept and rolls
// over into the following month when the target month is shorter
// (Jan 31 + 1 month = Mar 3 or Mar 2).
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// MonthsUntil returns the number of whole calendar months from now until
// due. It is negative when due lies in the past and zero when due falls
// within the current partial month.
func MonthsUntil(now, due time.Time) int {
	due = due.In(now.Location())
	m := (due.Year()-now.Year())*12 + int(due.Month()-now.Month())
	switch {
	case m > 0 && due.Day() < now.Day():
		m--
	case m < 0 && due.Day() > now.Day():
		m++
	}
	return m
}

// Priority orders risk levels for the attention view: Overdue first,
// then Drifting, then everything else.
func Priority(level model.RiskLevel) int {
	switch level {
	case model.RiskOverdue:
		return 0
	case model.RiskDrifting:
		return 1
	default:
		return 2
	}
}
