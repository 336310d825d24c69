package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"calibtrack/internal/model"
)

// Record is one raw inventory entry as delivered by a source. Values may be
// strings, numbers, booleans or null.
type Record map[string]json.RawMessage

var fieldAliases = map[string][]string{
	"serial":      {"serialIdNo", "serialId", "serial"},
	"division":    {"div", "division"},
	"brand":       {"brand"},
	"description": {"description"},
	"model":       {"modelPartNo", "model"},
	"calibrator":  {"calibrator"},
	"pic":         {"pic"},
	"last":        {"lastCalibration"},
	"due":         {"calibrationDue"},
	"interval":    {"calibrationInterval", "intervalMonths", "interval"},
	"remaining":   {"remainingMonths", "remainingMths"},
	"inUse":       {"inUse"},
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2-Jan-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"2 January 2006",
	"2 Jan 2006",
	"2006/01/02",
}

// DecodeRecords reads a JSON array of records, or an object holding one under
// "tools" or "data".
func DecodeRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decode tools: %w", err)
		}
		for _, key := range []string{"tools", "data"} {
			if raw, ok := wrapper[key]; ok {
				data = raw
				break
			}
		}
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode tools: %w", err)
	}
	return recs, nil
}

// Normalize converts raw records into tools. Records without a serial ID are
// dropped; for a repeated serial the first record wins. Fields that cannot
// be parsed are left unset.
func Normalize(recs []Record, loc *time.Location) []model.Tool {
	if loc == nil {
		loc = time.UTC
	}
	seen := make(map[string]struct{}, len(recs))
	out := make([]model.Tool, 0, len(recs))
	for _, r := range recs {
		t, ok := r.Tool(loc)
		if !ok {
			continue
		}
		if _, dup := seen[t.SerialID]; dup {
			continue
		}
		seen[t.SerialID] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Tool converts a single record. ok is false when it has no serial ID.
func (r Record) Tool(loc *time.Location) (model.Tool, bool) {
	t := model.Tool{
		SerialID:    r.str("serial"),
		Division:    r.str("division"),
		Brand:       r.str("brand"),
		Description: r.str("description"),
		ModelPartNo: r.str("model"),
		Calibrator:  r.str("calibrator"),
		PIC:         r.str("pic"),
	}
	if t.SerialID == "" {
		return model.Tool{}, false
	}

	t.LastCalibration = ParseDate(r.str("last"), loc)
	t.CalibrationDue = ParseDate(r.str("due"), loc)
	if v := ParseLeadingInt(r.str("interval")); v != nil && *v > 0 {
		t.IntervalMonths = v
	}
	t.RemainingMonths = ParseLeadingInt(r.str("remaining"))
	t.InUse = ParseBool(r.str("inUse"))
	return t, true
}

// str returns the first present alias of field as trimmed text. Numbers and
// booleans are rendered as JSON writes them; null and absent yield "".
func (r Record) str(field string) string {
	for _, key := range fieldAliases[field] {
		raw, ok := r[key]
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		switch x := v.(type) {
		case nil:
			continue
		case string:
			return strings.TrimSpace(x)
		case float64:
			if x == math.Trunc(x) {
				return strconv.FormatInt(int64(x), 10)
			}
			return strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(x)
		}
	}
	return ""
}

// ParseDate tries the accepted layouts in order. Date-only values are
// midnight in loc.
func ParseDate(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t
		}
	}
	return nil
}

// ParseLeadingInt reads an optionally signed integer at the start of s:
// "12", "12 months" and "-3" parse, "twelve" does not. Fractions truncate.
func ParseLeadingInt(s string) *int {
	s = strings.TrimSpace(s)
	end := 0
	for i, r := range s {
		if i == 0 && (r == '-' || r == '+') {
			end = 1
			continue
		}
		if !unicode.IsDigit(r) {
			break
		}
		end = i + 1
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	return &v
}

// ParseBool understands yes/no style flags. Anything else is unknown.
func ParseBool(s string) *bool {
	var v bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "in use", "active":
		v = true
	case "false", "no", "n", "0", "not in use", "inactive":
		v = false
	default:
		return nil
	}
	return &v
}
