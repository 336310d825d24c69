package model

import "time"

// Tool is a piece of measurement equipment subject to periodic calibration.
// Optional metadata is nil when the data source omitted it or sent a value
// that could not be parsed; see tools.Normalize for the decoding rules.
type Tool struct {
	SerialID    string `json:"serialIdNo"`
	Division    string `json:"div,omitempty"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
	ModelPartNo string `json:"modelPartNo,omitempty"`
	Calibrator  string `json:"calibrator,omitempty"`
	PIC         string `json:"pic,omitempty"`

	LastCalibration *time.Time `json:"lastCalibration,omitempty"`
	CalibrationDue  *time.Time `json:"calibrationDue,omitempty"`
	IntervalMonths  *int       `json:"calibrationInterval,omitempty"`
	RemainingMonths *int       `json:"remainingMonths,omitempty"`
	InUse           *bool      `json:"inUse,omitempty"`
}

// RiskLevel classifies calibration urgency.
type RiskLevel string

const (
	RiskOptimal  RiskLevel = "Optimal"
	RiskDrifting RiskLevel = "Drifting"
	RiskOverdue  RiskLevel = "Overdue"
	RiskUnknown  RiskLevel = "Unknown"
)

// Code is the integer form stored by the calendar-state collaborator.
func (r RiskLevel) Code() int {
	switch r {
	case RiskOptimal:
		return 1
	case RiskDrifting:
		return 2
	case RiskOverdue:
		return 3
	default:
		return 0
	}
}

// RiskLevelFromCode is the inverse of RiskLevel.Code.
func RiskLevelFromCode(code int) RiskLevel {
	switch code {
	case 1:
		return RiskOptimal
	case 2:
		return RiskDrifting
	case 3:
		return RiskOverdue
	default:
		return RiskUnknown
	}
}

// Color is the display token of a calendar event.
type Color string

const (
	ColorBlue    Color = "blue"
	ColorIndigo  Color = "indigo"
	ColorPink    Color = "pink"
	ColorRed     Color = "red"
	ColorOrange  Color = "orange"
	ColorAmber   Color = "amber"
	ColorEmerald Color = "emerald"
)

// Colors lists every valid Color token.
var Colors = []Color{ColorBlue, ColorIndigo, ColorPink, ColorRed, ColorOrange, ColorAmber, ColorEmerald}

// Valid reports whether c is one of the enumerated tokens.
func (c Color) Valid() bool {
	for _, v := range Colors {
		if c == v {
			return true
		}
	}
	return false
}

// CalendarEvent is a scheduled item with a time range shown on the calendar.
// End is never before Start.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Color       Color     `json:"color"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`

	// ToolSerialID links a calibration event to the tool it was created for.
	ToolSerialID string `json:"toolSerialId,omitempty"`
}

// EventPatch carries the fields of an update; nil fields are left untouched.
type EventPatch struct {
	Title       *string    `json:"title,omitempty"`
	Color       *Color     `json:"color,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// Apply returns ev with the patch applied.
func (p EventPatch) Apply(ev CalendarEvent) CalendarEvent {
	if p.Title != nil {
		ev.Title = *p.Title
	}
	if p.Color != nil {
		ev.Color = *p.Color
	}
	if p.Start != nil {
		ev.Start = *p.Start
	}
	if p.End != nil {
		ev.End = *p.End
	}
	if p.Description != nil {
		ev.Description = *p.Description
	}
	return ev
}

// Classification is the output of the risk classifier for one tool.
type Classification struct {
	Level           RiskLevel  `json:"riskLevel"`
	RecommendedDate *time.Time `json:"recommendedDate,omitempty"`
	RemainingMonths *int       `json:"remainingMonths,omitempty"`
	IntervalMonths  int        `json:"intervalMonths"`
}

// SuggestionState is the accept/decline workflow state of one tool.
type SuggestionState string

const (
	StatePending      SuggestionState = "pending"
	StateInTransition SuggestionState = "in_transition"
	StateAccepted     SuggestionState = "accepted"
	StateDeclined     SuggestionState = "declined"
)

// Terminal reports whether the state is accepted or declined.
func (s SuggestionState) Terminal() bool {
	return s == StateAccepted || s == StateDeclined
}

// Suggestion is a proposed recalibration for one tool, derived on demand.
type Suggestion struct {
	Tool           Tool            `json:"tool"`
	Classification Classification  `json:"classification"`
	State          SuggestionState `json:"state"`
}

// CalendarState is the persisted accept/decline decision for a tool.
type CalendarState struct {
	ToolSerialID             string    `json:"toolSerialId"`
	IsAccepted               bool      `json:"isAccepted"`
	RiskLevel                int       `json:"riskLevel"`
	PredictedCalibrationDate time.Time `json:"predictedCalibrationDate"`
	UpdatedAt                time.Time `json:"updatedAt"`
}
