package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestYearMetrics_Percentages(t *testing.T) {
	tests := []struct {
		name            string
		metrics         YearMetrics
		wantMissingPre  float64
		wantMissingPost float64
		wantDelta       float64
		wantNotJoined   float64
	}{
		{
			name: "spec scenario",
			metrics: YearMetrics{
				Year:          2017,
				Records:       1000,
				MissingBefore: 50,
				MissingAfter:  10,
				WithCoords:    990,
				NotJoined:     33,
			},
			wantMissingPre:  5.0,
			wantMissingPost: 1.0,
			wantDelta:       4.0,
			wantNotJoined:   100.0 / 30.0,
		},
		{
			name: "nothing missing",
			metrics: YearMetrics{
				Year:       2018,
				Records:    400,
				WithCoords: 400,
			},
			wantMissingPre:  0,
			wantMissingPost: 0,
			wantDelta:       0,
			wantNotJoined:   0,
		},
		{
			name:            "empty year divides safely",
			metrics:         YearMetrics{Year: 2019},
			wantMissingPre:  0,
			wantMissingPost: 0,
			wantDelta:       0,
			wantNotJoined:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantMissingPre, tt.metrics.PctMissingBefore(), 0.001)
			assert.InDelta(t, tt.wantMissingPost, tt.metrics.PctMissingAfter(), 0.001)
			assert.InDelta(t, tt.wantDelta, tt.metrics.Delta(), 0.001)
			assert.InDelta(t, tt.wantNotJoined, tt.metrics.PctNotJoined(), 0.001)
		})
	}
}

func TestCollector_MergesFunctionally(t *testing.T) {
	var base Collector

	one := base.WithYear(YearMetrics{Year: 2017})
	two := one.WithYear(YearMetrics{Year: 2018})

	// The original values are unchanged by later merges.
	assert.Empty(t, base.Years())
	assert.Len(t, one.Years(), 1)
	assert.Len(t, two.Years(), 2)

	assert.Equal(t, 2017, two.Years()[0].Year)
	assert.Equal(t, 2018, two.Years()[1].Year)
}
