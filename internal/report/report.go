// Package report builds the exportable datasets (compliance, tools, calendar)
// and writes them as JSON, CSV, PDF or PNG.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"calibtrack/internal/model"
	"calibtrack/internal/risk"
)

// Dataset names an exportable table.
type Dataset string

const (
	DatasetCompliance Dataset = "compliance"
	DatasetTools      Dataset = "tools"
	DatasetCalendar   Dataset = "calendar"
)

// ParseDataset accepts the dataset names in any case.
func ParseDataset(s string) (Dataset, error) {
	switch d := Dataset(strings.ToLower(strings.TrimSpace(s))); d {
	case DatasetCompliance, DatasetTools, DatasetCalendar:
		return d, nil
	default:
		return "", fmt.Errorf("unknown dataset %q", s)
	}
}

// Column is one field of a report, in output order.
type Column struct {
	Key    string
	Header string
}

// Report is a rectangular dataset. Row values are strings, numbers, bools
// or nil for missing.
type Report struct {
	Dataset     Dataset
	Title       string
	GeneratedAt time.Time
	Columns     []Column
	Rows        []map[string]any
}

// Filename is the suggested download name without extension.
func (r Report) Filename() string {
	switch r.Dataset {
	case DatasetCompliance:
		return "compliance-data"
	case DatasetTools:
		return "tool-data"
	default:
		return "calendar-data"
	}
}

// Cell renders one value for text formats.
func (r Report) Cell(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

var baseColumns = []Column{
	{"serialIdNo", "Serial ID"},
	{"description", "Description"},
	{"brand", "Brand"},
	{"modelPartNo", "Model / Part No"},
}

// Builder assembles reports from the tool snapshot.
type Builder struct {
	Classifier risk.Classifier
}

// Build dispatches on d.
func (b Builder) Build(d Dataset, tools []model.Tool, now time.Time) Report {
	switch d {
	case DatasetCompliance:
		return b.Compliance(tools, now)
	case DatasetCalendar:
		return b.Calendar(tools, now)
	default:
		return b.Tools(tools, now)
	}
}

// Compliance lists every tool with its status; a tool is compliant when
// its level is Optimal.
func (b Builder) Compliance(tools []model.Tool, now time.Time) Report {
	r := Report{
		Dataset:     DatasetCompliance,
		Title:       "Calibration compliance",
		GeneratedAt: now,
		Columns: append(cloneColumns(baseColumns),
			Column{"status", "Status"},
			Column{"lastCalibration", "Last Calibration"},
			Column{"calibrationDue", "Calibration Due"},
			Column{"remainingMonths", "Remaining Months"},
			Column{"calibrator", "Calibrator"},
			Column{"pic", "PIC"},
			Column{"inUse", "In Use"},
			Column{"isCompliant", "Compliant"},
		),
	}
	for _, t := range tools {
		c := b.Classifier.Classify(t, now)
		row := baseRow(t)
		row["status"] = string(c.Level)
		row["lastCalibration"] = dateValue(t.LastCalibration)
		row["calibrationDue"] = dateValue(t.CalibrationDue)
		row["remainingMonths"] = intValue(c.RemainingMonths)
		row["calibrator"] = t.Calibrator
		row["pic"] = t.PIC
		row["inUse"] = boolValue(t.InUse)
		row["isCompliant"] = c.Level == model.RiskOptimal
		r.Rows = append(r.Rows, row)
	}
	return r
}

// Tools is the raw inventory.
func (b Builder) Tools(tools []model.Tool, now time.Time) Report {
	r := Report{
		Dataset:     DatasetTools,
		Title:       "Tool inventory",
		GeneratedAt: now,
		Columns: append(cloneColumns(baseColumns),
			Column{"div", "Division"},
			Column{"lastCalibration", "Last Calibration"},
			Column{"calibrationDue", "Calibration Due"},
			Column{"calibrationInterval", "Interval (months)"},
			Column{"remainingMonths", "Remaining Months"},
			Column{"calibrator", "Calibrator"},
			Column{"pic", "PIC"},
			Column{"inUse", "In Use"},
		),
	}
	for _, t := range tools {
		row := baseRow(t)
		row["div"] = t.Division
		row["lastCalibration"] = dateValue(t.LastCalibration)
		row["calibrationDue"] = dateValue(t.CalibrationDue)
		row["calibrationInterval"] = intValue(t.IntervalMonths)
		row["remainingMonths"] = intValue(t.RemainingMonths)
		row["calibrator"] = t.Calibrator
		row["pic"] = t.PIC
		row["inUse"] = boolValue(t.InUse)
		r.Rows = append(r.Rows, row)
	}
	return r
}

// Calendar compares the stored due date with the predicted one. The
// difference is in days, positive when the due date is later.
func (b Builder) Calendar(tools []model.Tool, now time.Time) Report {
	r := Report{
		Dataset:     DatasetCalendar,
		Title:       "Calibration calendar",
		GeneratedAt: now,
		Columns: append(cloneColumns(baseColumns),
			Column{"lastCalibration", "Last Calibration"},
			Column{"calibrationDue", "Calibration Due"},
			Column{"predictedIdealCalibrationDate", "Predicted Date"},
			Column{"differenceFromPredictions", "Difference (days)"},
			Column{"status", "Status"},
			Column{"calibrator", "Calibrator"},
			Column{"pic", "PIC"},
		),
	}
	for _, t := range tools {
		c := b.Classifier.Classify(t, now)
		row := baseRow(t)
		row["lastCalibration"] = dateValue(t.LastCalibration)
		row["calibrationDue"] = dateValue(t.CalibrationDue)
		row["predictedIdealCalibrationDate"] = dateValue(c.RecommendedDate)
		row["differenceFromPredictions"] = nil
		if t.CalibrationDue != nil && c.RecommendedDate != nil {
			days := t.CalibrationDue.Sub(*c.RecommendedDate).Hours() / 24
			row["differenceFromPredictions"] = int(math.Round(days))
		}
		row["status"] = string(c.Level)
		row["calibrator"] = t.Calibrator
		row["pic"] = t.PIC
		r.Rows = append(r.Rows, row)
	}
	return r
}

func cloneColumns(c []Column) []Column {
	return append([]Column(nil), c...)
}

func baseRow(t model.Tool) map[string]any {
	return map[string]any{
		"serialIdNo":  t.SerialID,
		"description": t.Description,
		"brand":       t.Brand,
		"modelPartNo": t.ModelPartNo,
	}
}

func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}

func intValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolValue(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
