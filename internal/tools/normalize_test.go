package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventory = `[
  {"serialIdNo": "SN001", "brand": "Snap-on", "description": "Torque Wrench", "div": "QA",
   "lastCalibration": "2024-11-15", "calibrationInterval": "3 months", "remainingMths": "2", "inUse": "Yes"},
  {"serialIdNo": 1002, "brand": "Fluke", "description": "Multimeter",
   "calibrationDue": "15-Mar-2025", "calibrationInterval": 12, "remainingMonths": -1, "inUse": false},
  {"serialIdNo": "SN003", "brand": null, "description": "Caliper",
   "lastCalibration": "not a date", "calibrationInterval": "0", "remainingMonths": "n/a"},
  {"serialIdNo": "", "description": "orphan"},
  {"description": "no serial"},
  {"serialIdNo": "SN001", "description": "duplicate"}
]`

func TestNormalize(t *testing.T) {
	recs, err := DecodeRecords([]byte(inventory))
	require.NoError(t, err)
	require.Len(t, recs, 6)

	tools := Normalize(recs, time.UTC)
	require.Len(t, tools, 3)

	wrench := tools[0]
	assert.Equal(t, "SN001", wrench.SerialID)
	assert.Equal(t, "Torque Wrench", wrench.Description)
	assert.Equal(t, "QA", wrench.Division)
	require.NotNil(t, wrench.LastCalibration)
	assert.Equal(t, time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC), *wrench.LastCalibration)
	assert.Equal(t, 3, *wrench.IntervalMonths)
	assert.Equal(t, 2, *wrench.RemainingMonths)
	assert.True(t, *wrench.InUse)

	meter := tools[1]
	assert.Equal(t, "1002", meter.SerialID)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), *meter.CalibrationDue)
	assert.Equal(t, 12, *meter.IntervalMonths)
	assert.Equal(t, -1, *meter.RemainingMonths)
	assert.False(t, *meter.InUse)

	caliper := tools[2]
	assert.Empty(t, caliper.Brand)
	assert.Nil(t, caliper.LastCalibration)
	assert.Nil(t, caliper.IntervalMonths)
	assert.Nil(t, caliper.RemainingMonths)
	assert.Nil(t, caliper.InUse)
}

func TestDecodeRecordsWrapped(t *testing.T) {
	recs, err := DecodeRecords([]byte(`{"tools": [{"serialIdNo": "A"}]}`))
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	recs, err = DecodeRecords([]byte(`  `))
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = DecodeRecords([]byte(`{"tools": 5}`))
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-01-05", "5-Jan-2025", "05-Jan-2025", "5 January 2025", "2025/01/05", "5 Jan 2025"} {
		got := ParseDate(in, time.UTC)
		require.NotNil(t, got, in)
		assert.Equal(t, want, *got, in)
	}
	assert.Nil(t, ParseDate("", time.UTC))
	assert.Nil(t, ParseDate("01/05/2025", time.UTC))

	rfc := ParseDate("2025-01-05T10:00:00Z", time.UTC)
	require.NotNil(t, rfc)
	assert.Equal(t, 10, rfc.Hour())
}

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"12", ptr(12)},
		{"12 months", ptr(12)},
		{" -3 ", ptr(-3)},
		{"+4", ptr(4)},
		{"6.5", ptr(6)},
		{"twelve", nil},
		{"-", nil},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLeadingInt(tt.in), tt.in)
	}
}

func TestParseBool(t *testing.T) {
	assert.True(t, *ParseBool("YES"))
	assert.True(t, *ParseBool("true"))
	assert.False(t, *ParseBool("No"))
	assert.False(t, *ParseBool("0"))
	assert.Nil(t, ParseBool("maybe"))
}

func ptr[T any](v T) *T { return &v }
