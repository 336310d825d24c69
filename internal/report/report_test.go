package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibtrack/internal/model"
)

func ptr[T any](v T) *T { return &v }

func sampleTools() []model.Tool {
	last := time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)
	return []model.Tool{
		{
			SerialID: "SN001", Description: "Torque Wrench", Brand: "Snap-on", ModelPartNo: "TW-100",
			LastCalibration: &last, CalibrationDue: &due, IntervalMonths: ptr(3), InUse: ptr(true),
			Calibrator: "Key Solutions", PIC: "Dana",
		},
		{SerialID: "SN002", Description: "Caliper, digital", Brand: "Mitutoyo", RemainingMonths: ptr(8)},
	}
}

var now = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func TestCompliance(t *testing.T) {
	r := Builder{}.Compliance(sampleTools(), now)
	require.Len(t, r.Rows, 2)
	assert.Equal(t, "Drifting", r.Rows[0]["status"])
	assert.Equal(t, false, r.Rows[0]["isCompliant"])
	assert.Equal(t, "2024-11-15", r.Rows[0]["lastCalibration"])
	assert.Equal(t, "Optimal", r.Rows[1]["status"])
	assert.Equal(t, true, r.Rows[1]["isCompliant"])
	assert.Nil(t, r.Rows[1]["inUse"])
	assert.Equal(t, "compliance-data", r.Filename())
}

func TestCalendarDifference(t *testing.T) {
	r := Builder{}.Calendar(sampleTools(), now)
	assert.Equal(t, "2025-02-15", r.Rows[0]["predictedIdealCalibrationDate"])
	assert.Equal(t, 5, r.Rows[0]["differenceFromPredictions"])
	assert.Nil(t, r.Rows[1]["differenceFromPredictions"])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Builder{}.Tools(sampleTools(), now)))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Serial ID", recs[0][0])
	assert.Equal(t, "Caliper, digital", recs[2][1])
	assert.Equal(t, "Yes", recs[1][len(recs[1])-1])
	assert.Equal(t, "", recs[2][len(recs[2])-1])
}

func TestWriteCSVEmptyHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Builder{}.Compliance(nil, now)))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Builder{}.Tools(nil, now)))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, Builder{}.Tools(sampleTools(), now)))
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	assert.Equal(t, "SN001", rows[0]["serialIdNo"])
	assert.Equal(t, float64(3), rows[0]["calibrationInterval"])
}

func TestWriteHTMLEscapes(t *testing.T) {
	tools := []model.Tool{{SerialID: "X", Description: "<script>alert(1)</script>"}}
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, Builder{}.Tools(tools, now)))
	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), `data-ready="true"`)
}

func TestRenderTextFormatsSkipBrowser(t *testing.T) {
	out, err := Renderer{}.Render(context.Background(), Builder{}.Tools(sampleTools(), now), FormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "Serial ID,"))
}

func TestParse(t *testing.T) {
	d, err := ParseDataset("Compliance")
	require.NoError(t, err)
	assert.Equal(t, DatasetCompliance, d)
	_, err = ParseDataset("excel")
	assert.Error(t, err)

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
}
