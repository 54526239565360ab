package trend

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diet-coach/internal/models"
)

var day0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// series builds a history with one entry per day starting at day0.
func series(weights ...float64) []models.WeightEntry {
	out := make([]models.WeightEntry, len(weights))
	for i, w := range weights {
		out[i] = models.WeightEntry{Timestamp: day0.AddDate(0, 0, i), Weight: w}
	}
	return out
}

func TestSummariseHistory_Empty(t *testing.T) {
	s := SummariseHistory(nil, 7)
	assert.Equal(t, Summary{}, s)
	assert.Equal(t, 0, s.Count)
}

func TestSummariseHistory_SingleEntry(t *testing.T) {
	s := SummariseHistory(series(72.4), 7)

	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 0.0, s.Delta)
	assert.Equal(t, Flat, s.Trend)
	assert.Equal(t, 72.4, s.Avg)
	assert.Equal(t, "2024-03-01", s.From)
	assert.Equal(t, "2024-03-01", s.To)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":1,"from":"2024-03-01","to":"2024-03-01","start":72.4,"end":72.4,"avg":72.4,"delta":0,"trend":"flat"}`, string(data))
}

func TestSummariseHistory_RoundsExactValue(t *testing.T) {
	// 70.005 is stored just below the tie and must round down.
	s := SummariseHistory(series(70.005), 7)
	assert.Equal(t, 70.0, s.Avg)
}

func TestSummariseHistory_Window(t *testing.T) {
	weights := make([]float64, 0, 40)
	for i := 0; i < 40; i++ {
		weights = append(weights, 80-0.1*float64(i))
	}
	history := series(weights...)

	week := SummariseHistory(history, 7)
	// inclusive: the last entry plus the seven days before it
	assert.Equal(t, 8, week.Count)
	assert.Equal(t, history[32].Timestamp.Format(time.DateOnly), week.From)
	assert.Equal(t, history[39].Timestamp.Format(time.DateOnly), week.To)
	assert.Equal(t, 76.8, week.Start)
	assert.Equal(t, 76.1, week.End)
	assert.Equal(t, -0.7, week.Delta)
	assert.Equal(t, Down, week.Trend)

	month := SummariseHistory(history, 30)
	assert.Equal(t, 31, month.Count)
	assert.Equal(t, Down, month.Trend)
}

func TestSummariseHistory_Trend(t *testing.T) {
	tests := []struct {
		name     string
		weights  []float64
		expected Direction
	}{
		{"down", []float64{70, 69.5}, Down},
		{"up", []float64{70, 70.5}, Up},
		{"flat_small_drop", []float64{70, 69.8}, Flat},
		{"flat_at_threshold", []float64{70, 70.25}, Flat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SummariseHistory(series(tt.weights...), 7).Trend)
		})
	}
}

func TestSummariseHistory_Average(t *testing.T) {
	s := SummariseHistory(series(70, 71, 71), 30)
	assert.Equal(t, 70.67, s.Avg)
	assert.Equal(t, 1.0, s.Delta)
}

func TestSuggestAfterLog_Empty(t *testing.T) {
	assert.Equal(t, StartLogging, SuggestAfterLog(nil, "cut", DefaultRecentWindow))
	assert.NotEmpty(t, StartLogging.Message())
}

func TestSuggestAfterLog_Branches(t *testing.T) {
	tests := []struct {
		mode     string
		weights  []float64
		expected Suggestion
	}{
		{"cut", []float64{80, 79.0}, CutTooFast},
		{"cut", []float64{80, 80.1}, CutGaining},
		{"cut", []float64{80, 79.9}, CutOnPace},
		{"bulk", []float64{70, 70.5}, BulkTooFast},
		{"bulk", []float64{70, 70}, BulkSlow},
		{"bulk", []float64{70, 70.1}, BulkOnPace},
		{"recomp", []float64{70, 70.02}, RecompStable},
		{"recomp", []float64{70, 70.5}, RecompFluctuating},
		{"recomp", []float64{70, 69.5}, RecompFluctuating},
		{"maintain", []float64{70, 70}, RecompStable},
		{"CUT", []float64{80, 79.0}, CutTooFast},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected)+"_"+tt.mode, func(t *testing.T) {
			got := SuggestAfterLog(series(tt.weights...), tt.mode, DefaultRecentWindow)
			assert.Equal(t, tt.expected, got)
			assert.NotEmpty(t, got.Message())
		})
	}
}

func TestSuggestAfterLog_SingleEntryIsZeroChange(t *testing.T) {
	h := series(75)
	assert.Equal(t, CutOnPace, SuggestAfterLog(h, "cut", 7))
	assert.Equal(t, BulkSlow, SuggestAfterLog(h, "bulk", 7))
	assert.Equal(t, RecompStable, SuggestAfterLog(h, "recomp", 7))
}

func TestSuggestAfterLog_SameDayUsesOneDay(t *testing.T) {
	h := []models.WeightEntry{
		{Timestamp: day0, Weight: 80},
		{Timestamp: day0.Add(2 * time.Hour), Weight: 79.5},
	}
	assert.Equal(t, CutTooFast, SuggestAfterLog(h, "cut", 7))
}

func TestSuggestAfterLog_UsesRecentWindow(t *testing.T) {
	// a large early drop followed by seven stable days
	h := series(90, 80, 80, 80, 80, 80, 80, 80)
	require.Len(t, h, 8)

	assert.Equal(t, CutOnPace, SuggestAfterLog(h, "cut", 7))
	assert.Equal(t, CutTooFast, SuggestAfterLog(h, "cut", 8))
}

func TestSuggestAfterLog_Deterministic(t *testing.T) {
	h := series(80, 79.6, 79.4, 79.5)
	first := SuggestAfterLog(h, "cut", 7)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, SuggestAfterLog(h, "cut", 7))
	}
}
