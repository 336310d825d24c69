// Package assistant answers questions about the tool inventory by keyword
// matching against the live catalog. There is no language model involved.
package assistant

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"calibtrack/internal/model"
	"calibtrack/internal/risk"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry of the chat history.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps content with a fresh id.
func NewMessage(sender Sender, content string, at time.Time) Message {
	return Message{ID: uuid.NewString(), Content: content, Sender: sender, Timestamp: at}
}

// Welcome is the first message of an empty history.
func Welcome(at time.Time) Message {
	return Message{
		ID:        "welcome",
		Content:   "Hello! I'm your tool assistant. Ask me about calibration dates, tool inventory, or equipment status.",
		Sender:    SenderBot,
		Timestamp: at,
	}
}

// Reply is an answer plus follow-up prompts for the UI.
type Reply struct {
	Message     Message  `json:"message"`
	Suggestions []string `json:"suggestions"`
}

var (
	initialSuggestions = []string{"Show me overdue calibrations", "Which tools are in use?", "Show Mitutoyo tools"}
	calibSuggestions   = []string{"Show tools by brand", "Tools due in next 3 months", "Show high risk tools"}
	inUseSuggestions   = []string{"Tools needing calibration soon", "Show overdue calibrations", "Calibration date for Torque Wrench"}
	genericSuggestions = []string{"Generate calibration report", "Search by PIC", "Show high risk tools"}
)

// InitialSuggestions are offered before the first question.
func InitialSuggestions() []string { return slices.Clone(initialSuggestions) }

// maxListed bounds tool lists in an answer.
const maxListed = 10

// Assistant answers over a tool snapshot.
type Assistant struct {
	Classifier risk.Classifier
}

// Answer builds the bot reply to question.
func (a Assistant) Answer(question string, tools []model.Tool, now time.Time) Reply {
	text, next := a.answer(strings.ToLower(strings.TrimSpace(question)), tools, now)
	return Reply{Message: NewMessage(SenderBot, text, now), Suggestions: slices.Clone(next)}
}

func (a Assistant) answer(q string, tools []model.Tool, now time.Time) (string, []string) {
	if q == "" {
		return "Ask me about calibration dates, brands, or tools that are in use.", initialSuggestions
	}

	if t, ok := findTool(q, tools); ok {
		return a.describe(t, now), calibSuggestions
	}

	switch {
	case strings.Contains(q, "overdue") || strings.Contains(q, "high risk"):
		return a.byLevel("overdue for calibration", model.RiskOverdue, tools, now), calibSuggestions
	case strings.Contains(q, "soon") || strings.Contains(q, "next 3 months") || strings.Contains(q, "drifting") || strings.Contains(q, "due this month"):
		return a.byLevel("due for calibration soon", model.RiskDrifting, tools, now), calibSuggestions
	case strings.Contains(q, "in use"):
		return inUse(tools), inUseSuggestions
	}

	if brand, ok := findBrand(q, tools); ok {
		return byBrand(brand, tools), genericSuggestions
	}
	if strings.Contains(q, "report") {
		return "Reports are available under Export: compliance, tools and calendar datasets as JSON, CSV or PDF.", genericSuggestions
	}
	if strings.Contains(q, "calibrat") {
		return "I can help with calibration information. Try asking about specific tools, upcoming calibrations, or overdue items.", calibSuggestions
	}
	if strings.Contains(q, "tool") || strings.Contains(q, "equipment") {
		return "I can provide information about our tools inventory. You can ask about specific brands, models, or categories.", genericSuggestions
	}
	return "I don't have specific information about that. Try asking about tool calibration dates, specific brands like Mitutoyo, or tools that are currently in use.", initialSuggestions
}

// findTool matches a serial ID, or a description when every word of it
// longer than three letters appears in q.
func findTool(q string, tools []model.Tool) (model.Tool, bool) {
	for _, t := range tools {
		if len(t.SerialID) > 2 && strings.Contains(q, strings.ToLower(t.SerialID)) {
			return t, true
		}
	}
	for _, t := range tools {
		words := significantWords(t.Description)
		if len(words) == 0 {
			continue
		}
		all := true
		for _, w := range words {
			if !strings.Contains(q, w) {
				all = false
				break
			}
		}
		if all {
			return t, true
		}
	}
	return model.Tool{}, false
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:()\"'")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

func findBrand(q string, tools []model.Tool) (string, bool) {
	for _, t := range tools {
		if len(t.Brand) > 2 && strings.Contains(q, strings.ToLower(t.Brand)) {
			return t.Brand, true
		}
	}
	return "", false
}

func (a Assistant) describe(t model.Tool, now time.Time) string {
	c := a.Classifier.Classify(t, now)
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s", t.Description, orDash(t.Brand))
	if t.ModelPartNo != "" {
		fmt.Fprintf(&b, ", Model %s", t.ModelPartNo)
	}
	fmt.Fprintf(&b, ") - Serial: %s\n", t.SerialID)
	if t.LastCalibration != nil {
		fmt.Fprintf(&b, "Last calibration: %s\n", formatDate(*t.LastCalibration))
	}
	if t.CalibrationDue != nil {
		fmt.Fprintf(&b, "Calibration due: %s\n", formatDate(*t.CalibrationDue))
	}
	if c.RecommendedDate != nil {
		fmt.Fprintf(&b, "Recommended next calibration: %s\n", formatDate(*c.RecommendedDate))
	}
	fmt.Fprintf(&b, "Interval: %d months\n", c.IntervalMonths)
	fmt.Fprintf(&b, "Status: %s", c.Level)
	if t.PIC != "" {
		fmt.Fprintf(&b, "\nPIC: %s", t.PIC)
	}
	return b.String()
}

func (a Assistant) byLevel(what string, level model.RiskLevel, tools []model.Tool, now time.Time) string {
	var lines []string
	for _, t := range tools {
		c := a.Classifier.Classify(t, now)
		if c.Level != level {
			continue
		}
		line := fmt.Sprintf("- %s (%s) - Serial: %s", t.Description, orDash(t.Brand), t.SerialID)
		if c.RemainingMonths != nil {
			line += fmt.Sprintf(" - %d months remaining", *c.RemainingMonths)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return "No tools are " + what + "."
	}
	return listing(fmt.Sprintf("There are %d tools %s:", len(lines), what), lines)
}

func inUse(tools []model.Tool) string {
	var lines []string
	for _, t := range tools {
		if t.InUse != nil && *t.InUse {
			lines = append(lines, fmt.Sprintf("- %s (%s) - Serial: %s", t.Description, orDash(t.Brand), t.SerialID))
		}
	}
	if len(lines) == 0 {
		return "No tools are marked as in use."
	}
	return listing(fmt.Sprintf("There are %d tools marked as in use:", len(lines)), lines)
}

func byBrand(brand string, tools []model.Tool) string {
	var lines []string
	for _, t := range tools {
		if strings.EqualFold(t.Brand, brand) {
			line := fmt.Sprintf("- %s", t.Description)
			if t.ModelPartNo != "" {
				line += fmt.Sprintf(" (Model %s)", t.ModelPartNo)
			}
			line += " - Serial: " + t.SerialID
			if t.CalibrationDue != nil {
				line += " - Calibration Due: " + formatDate(*t.CalibrationDue)
			}
			lines = append(lines, line)
		}
	}
	return listing(fmt.Sprintf("Here are the tools from %s:", brand), lines)
}

func listing(head string, lines []string) string {
	extra := 0
	if len(lines) > maxListed {
		extra = len(lines) - maxListed
		lines = lines[:maxListed]
	}
	out := head + "\n" + strings.Join(lines, "\n")
	if extra > 0 {
		out += fmt.Sprintf("\n...and %d more.", extra)
	}
	return out
}

func formatDate(t time.Time) string { return t.Format("2-Jan-2006") }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
