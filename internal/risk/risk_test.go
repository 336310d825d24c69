package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibtrack/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		n    int
		want time.Time
	}{
		{"same year", date(2024, 3, 10), 6, date(2024, 9, 10)},
		{"year rollover", date(2024, 11, 15), 3, date(2025, 2, 15)},
		{"day rolls over", date(2025, 1, 31), 1, date(2025, 3, 3)},
		{"leap year roll", date(2024, 1, 31), 1, date(2024, 3, 2)},
		{"twelve months", date(2024, 3, 15), 12, date(2025, 3, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonths(tt.from, tt.n))
		})
	}
}

func TestClassify_RecommendedDate(t *testing.T) {
	now := date(2025, 1, 1)
	tool := model.Tool{
		SerialID:        "SN001",
		LastCalibration: ptr(date(2024, 11, 15)),
		IntervalMonths:  ptr(3),
	}

	c := Classify(tool, now)
	require.NotNil(t, c.RecommendedDate)
	assert.Equal(t, date(2025, 2, 15), *c.RecommendedDate)
	assert.Equal(t, 3, c.IntervalMonths)
}

func TestClassify_DefaultInterval(t *testing.T) {
	now := date(2024, 1, 1)
	for _, interval := range []*int{nil, ptr(0), ptr(-4)} {
		tool := model.Tool{LastCalibration: ptr(date(2024, 1, 10)), IntervalMonths: interval}
		c := Classify(tool, now)
		require.NotNil(t, c.RecommendedDate)
		assert.Equal(t, date(2024, 7, 10), *c.RecommendedDate)
		assert.Equal(t, DefaultIntervalMonths, c.IntervalMonths)
	}

	custom := Classifier{DefaultInterval: 12}
	c := custom.Classify(model.Tool{LastCalibration: ptr(date(2024, 1, 10))}, now)
	assert.Equal(t, date(2025, 1, 10), *c.RecommendedDate)
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		remaining *int
		want      model.RiskLevel
	}{
		{ptr(-5), model.RiskOverdue},
		{ptr(0), model.RiskOverdue},
		{ptr(1), model.RiskDrifting},
		{ptr(2), model.RiskDrifting},
		{ptr(3), model.RiskOptimal},
		{ptr(24), model.RiskOptimal},
		{nil, model.RiskUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.remaining))
	}
}

func TestClassify_RemainingMonthsSources(t *testing.T) {
	now := date(2025, 3, 10)

	t.Run("supplied value wins", func(t *testing.T) {
		c := Classify(model.Tool{
			RemainingMonths: ptr(5),
			CalibrationDue:  ptr(date(2025, 3, 1)),
		}, now)
		assert.Equal(t, 5, *c.RemainingMonths)
		assert.Equal(t, model.RiskOptimal, c.Level)
	})

	t.Run("derived from due date", func(t *testing.T) {
		c := Classify(model.Tool{CalibrationDue: ptr(date(2025, 5, 20))}, now)
		assert.Equal(t, 2, *c.RemainingMonths)
		assert.Equal(t, model.RiskDrifting, c.Level)
	})

	t.Run("derived from recommended date", func(t *testing.T) {
		c := Classify(model.Tool{
			LastCalibration: ptr(date(2024, 6, 1)),
			IntervalMonths:  ptr(6),
		}, now)
		assert.Equal(t, -3, *c.RemainingMonths)
		assert.Equal(t, model.RiskOverdue, c.Level)
	})

	t.Run("nothing known", func(t *testing.T) {
		c := Classify(model.Tool{SerialID: "X"}, now)
		assert.Nil(t, c.RemainingMonths)
		assert.Nil(t, c.RecommendedDate)
		assert.Equal(t, model.RiskUnknown, c.Level)
	})
}

func TestMonthsUntil(t *testing.T) {
	now := date(2025, 3, 15)
	tests := []struct {
		due  time.Time
		want int
	}{
		{date(2025, 3, 20), 0},
		{date(2025, 4, 14), 0},
		{date(2025, 4, 15), 1},
		{date(2026, 3, 15), 12},
		{date(2025, 3, 1), 0},
		{date(2025, 2, 16), 0},
		{date(2025, 2, 15), -1},
		{date(2024, 3, 15), -12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MonthsUntil(now, tt.due), "due %s", tt.due.Format(time.DateOnly))
	}
}

func TestPriority(t *testing.T) {
	assert.Less(t, Priority(model.RiskOverdue), Priority(model.RiskDrifting))
	assert.Less(t, Priority(model.RiskDrifting), Priority(model.RiskOptimal))
	assert.Equal(t, Priority(model.RiskOptimal), Priority(model.RiskUnknown))
}

func TestSummarize(t *testing.T) {
	now := date(2025, 3, 10)
	tools := []model.Tool{
		{SerialID: "1", Brand: "Mitutoyo", Division: "QA", RemainingMonths: ptr(-1), IntervalMonths: ptr(12)},
		{SerialID: "2", Brand: "Mitutoyo", Division: "QA", RemainingMonths: ptr(1)},
		{SerialID: "3", Brand: "Fluke", Division: "Prod", RemainingMonths: ptr(9), Calibrator: "Key Solutions"},
		{SerialID: "4", Brand: "", RemainingMonths: ptr(10)},
		{SerialID: "5", Brand: "Fluke"},
	}

	s := Summarize(tools, now)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.ByLevel[model.RiskOverdue])
	assert.Equal(t, 1, s.ByLevel[model.RiskDrifting])
	assert.Equal(t, 2, s.ByLevel[model.RiskOptimal])
	assert.Equal(t, 1, s.ByLevel[model.RiskUnknown])
	assert.Equal(t, 50, s.Percent[model.RiskOptimal])
	assert.Equal(t, 25, s.Percent[model.RiskDrifting])
	assert.Equal(t, 25, s.Percent[model.RiskOverdue])

	require.NotEmpty(t, s.Brand)
	assert.Equal(t, Count{Name: "Fluke", Value: 2}, s.Brand[0])
	assert.Equal(t, Count{Name: "Mitutoyo", Value: 2}, s.Brand[1])
	assert.Equal(t, []Count{{"QA", 2}, {"Unspecified", 2}, {"Prod", 1}}, s.Division)
	assert.Equal(t, Count{Name: "Other", Value: 4}, s.Calib[0])
	assert.Equal(t, Count{Name: "Unspecified", Value: 4}, s.Interval[0])
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, date(2025, 1, 1))
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Percent[model.RiskOptimal])
	assert.Empty(t, s.Brand)
}
