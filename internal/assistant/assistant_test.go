package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibtrack/internal/localcache"
	"calibtrack/internal/model"
)

func ptr[T any](v T) *T { return &v }

var now = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func inventory() []model.Tool {
	due := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	return []model.Tool{
		{SerialID: "126881Di", Brand: "AIKOH", Description: "Dial Push Pull Gauge", ModelPartNo: "ANF-500N", RemainingMonths: ptr(20), InUse: ptr(true), PIC: "RK"},
		{SerialID: "12345", Brand: "Mitutoyo", Description: "Digital Caliper", ModelPartNo: "CD-15AX", RemainingMonths: ptr(-2)},
		{SerialID: "67890", Brand: "Mitutoyo", Description: "Micrometer", CalibrationDue: &due},
	}
}

func TestAnswer(t *testing.T) {
	a := Assistant{}
	tests := []struct {
		q        string
		contains []string
		excludes []string
	}{
		{"Are there any tools overdue?", []string{"1 tools overdue", "Digital Caliper"}, []string{"Micrometer"}},
		{"Tools needing calibration soon", []string{"Micrometer", "2 months remaining"}, nil},
		{"Which tools are in use?", []string{"Dial Push Pull Gauge"}, []string{"Caliper"}},
		{"Show Mitutoyo tools", []string{"tools from Mitutoyo", "Digital Caliper", "Micrometer", "15-Mar-2025"}, nil},
		{"When is the dial push pull gauge due?", []string{"Serial: 126881Di", "PIC: RK", "Status: Optimal"}, nil},
		{"details for 67890", []string{"Micrometer", "Calibration due: 15-Mar-2025"}, nil},
		{"how does calibration work", []string{"I can help with calibration"}, nil},
		{"what's the weather", []string{"I don't have specific information"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			r := a.Answer(tt.q, inventory(), now)
			assert.Equal(t, SenderBot, r.Message.Sender)
			assert.NotEmpty(t, r.Message.ID)
			assert.NotEmpty(t, r.Suggestions)
			for _, s := range tt.contains {
				assert.Contains(t, r.Message.Content, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, r.Message.Content, s)
			}
		})
	}
}

func TestListingTruncates(t *testing.T) {
	lines := make([]string, 13)
	for i := range lines {
		lines[i] = "- x"
	}
	out := listing("head", lines)
	assert.Equal(t, maxListed, strings.Count(out, "- x"))
	assert.True(t, strings.HasSuffix(out, "...and 3 more."))
}

func TestHistory(t *testing.T) {
	store, err := localcache.New(t.TempDir(), localcache.KeyChatHistory, func() []Message { return nil })
	require.NoError(t, err)
	h := NewHistory(store)
	h.now = func() time.Time { return now }

	msgs := h.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "welcome", msgs[0].ID)

	q := NewMessage(SenderUser, "hi", now)
	a := NewMessage(SenderBot, "hello", now)
	assert.NotEqual(t, q.ID, a.ID)
	got, err := h.Append(q, a)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "hi", h.Messages()[1].Content)

	require.NoError(t, h.Clear())
	assert.Len(t, h.Messages(), 1)
}
