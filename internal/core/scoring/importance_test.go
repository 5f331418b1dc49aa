package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportanceZeroSignals(t *testing.T) {
	for _, weight := range []float64{0, 0.5, 1, 2.5} {
		for _, hours := range []float64{0, 1, 24, 1000} {
			assert.Equal(t, 0.0, Importance(0, 0, 0, 0, weight, hours))
		}
	}
}

func TestImportanceFormula(t *testing.T) {
	tests := []struct {
		name                                 string
		forwards, reactions, views, comments int64
		weight, hours                        float64
		want                                 float64
	}{
		{
			// base = 4+3+1+0.5 = 8.5, decay 1, /5 = 1.7
			name:      "unit_signals_fresh",
			forwards:  1,
			reactions: 1,
			views:     1,
			comments:  1,
			weight:    1,
			hours:     0,
			want:      1.7,
		},
		{
			// base = 40, decay at 24h = 0.5, /5 = 4
			name:     "decay_halves_at_24h",
			forwards: 10,
			weight:   1,
			hours:    24,
			want:     4,
		},
		{
			name:   "capped_at_100",
			views:  100000,
			weight: 3,
			hours:  0,
			want:   100,
		},
		{
			// weight scales linearly: base 10 * 2 / 5 = 4
			name:      "source_weight_applies",
			reactions: 2,
			views:     4,
			weight:    2,
			hours:     0,
			want:      4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Importance(tt.forwards, tt.reactions, tt.views, tt.comments, tt.weight, tt.hours)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestImportanceClampsNegativeHours(t *testing.T) {
	fresh := Importance(10, 0, 0, 0, 1, 0)
	future := Importance(10, 0, 0, 0, 1, -48)

	assert.Equal(t, fresh, future, "future-dated posts must not inflate decay above 1")
}

func TestImportanceRounding(t *testing.T) {
	// base = 0.5*1 = 0.5, decay at 12h = 1/1.5, /5 -> 0.0666... -> 0.07
	got := Importance(0, 0, 0, 1, 1, 12)
	assert.Equal(t, 0.07, got)
}

func TestImportanceMonotonicDecay(t *testing.T) {
	prev := Importance(100, 50, 1000, 20, 1, 0)
	for _, hours := range []float64{1, 6, 24, 72, 240} {
		cur := Importance(100, 50, 1000, 20, 1, hours)
		assert.LessOrEqual(t, cur, prev, "score must not grow as the post ages")
		prev = cur
	}
}
