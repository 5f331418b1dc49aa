// Package scoring converts engagement signals, source weight, and recency
// into a bounded importance score.
package scoring

import "math"

const (
	forwardsWeight  = 4.0
	reactionsWeight = 3.0
	viewsWeight     = 1.0
	commentsWeight  = 0.5

	decayHalfLifeHours = 24.0
	scoreDivisor       = 5.0
	maxScore           = 100.0
)

// Importance returns a score in [0, 100] rounded to two decimal places.
// Engagement influence halves roughly every 24 hours. Negative hoursOld
// (future-dated posts) is clamped to zero so decay never exceeds 1.
func Importance(forwards, reactions, views, comments int64, sourceWeight, hoursOld float64) float64 {
	if hoursOld < 0 {
		hoursOld = 0
	}

	base := float64(forwards)*forwardsWeight +
		float64(reactions)*reactionsWeight +
		float64(views)*viewsWeight +
		float64(comments)*commentsWeight

	decay := 1 / (1 + hoursOld/decayHalfLifeHours)

	score := math.Min(maxScore, base*sourceWeight*decay/scoreDivisor)

	return math.Round(score*100) / 100
}
