package risk

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"calibtrack/internal/model"
)

// Count is one bar of a dashboard breakdown.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Summary aggregates the inventory for the dashboard.
type Summary struct {
	Total    int                     `json:"total"`
	ByLevel  map[model.RiskLevel]int `json:"byLevel"`
	Percent  map[model.RiskLevel]int `json:"percent"`
	Division []Count                 `json:"division"`
	Brand    []Count                 `json:"brand"`
	Calib    []Count                 `json:"calibrator"`
	Interval []Count                 `json:"interval"`
}

const unspecified = "Unspecified"

// Summarize computes status counts and the top-N breakdowns. Percentages
// are whole numbers over the tools whose level is known.
func (c Classifier) Summarize(tools []model.Tool, now time.Time) Summary {
	s := Summary{
		Total:   len(tools),
		ByLevel: map[model.RiskLevel]int{},
		Percent: map[model.RiskLevel]int{},
	}

	div := map[string]int{}
	brand := map[string]int{}
	calib := map[string]int{}
	interval := map[string]int{}

	for _, t := range tools {
		s.ByLevel[c.Classify(t, now).Level]++

		div[orDefault(t.Division, unspecified)]++
		brand[orDefault(t.Brand, unspecified)]++
		calib[orDefault(t.Calibrator, "Other")]++
		if t.IntervalMonths != nil && *t.IntervalMonths > 0 {
			interval[strconv.Itoa(*t.IntervalMonths)+" months"]++
		} else {
			interval[unspecified]++
		}
	}

	known := s.ByLevel[model.RiskOptimal] + s.ByLevel[model.RiskDrifting] + s.ByLevel[model.RiskOverdue]
	for _, lvl := range []model.RiskLevel{model.RiskOptimal, model.RiskDrifting, model.RiskOverdue} {
		if known == 0 {
			s.Percent[lvl] = 0
			continue
		}
		s.Percent[lvl] = int(math.Round(float64(s.ByLevel[lvl]) / float64(known) * 100))
	}

	s.Division = topCounts(div, 7)
	s.Brand = topCounts(brand, 5)
	s.Calib = topCounts(calib, 8)
	s.Interval = topCounts(interval, 0)
	return s
}

// Summarize uses the package defaults.
func Summarize(tools []model.Tool, now time.Time) Summary {
	return defaultClassifier.Summarize(tools, now)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// topCounts sorts by count desc then name and keeps the first n (all when n <= 0).
func topCounts(m map[string]int, n int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Name: k, Value: v})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if a.Value != b.Value {
			return b.Value - a.Value
		}
		return strings.Compare(a.Name, b.Name)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
