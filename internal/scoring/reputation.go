package scoring

import (
	"math"

	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

// ShrunkRating pulls a raw rating mean toward the prior in proportion to how
// few ratings back it. With no ratings it is exactly the prior mean.
func ShrunkRating(mean float64, count int, priorMean, priorWeight float64) float64 {
	if count <= 0 {
		return priorMean
	}
	n := float64(count)
	return (priorMean*priorWeight + mean*n) / (priorWeight + n)
}

// Reliability blends punctuality, completion and disputes into [0,1].
func Reliability(onTime, completion, dispute float64) float64 {
	return clamp(0.4*onTime+0.4*completion-0.2*dispute, 0, 1)
}

// ReputationScore combines the shrunk rating (rescaled so 3 stars is 0 and
// 5 stars is 1) with reliability. Higher is better.
func ReputationScore(shrunkRating, reliability float64) float64 {
	return 0.6*((shrunkRating-3)/2) + 0.4*reliability
}

// Reputation scores a worker's history under p's prior.
func (p Params) Reputation(w *store.Worker) float64 {
	r := ShrunkRating(w.RatingMean, w.RatingCount, p.PriorMean, p.PriorWeight)
	rel := Reliability(w.OnTimeRate, w.CompletionRate, w.DisputeRate)
	return ReputationScore(r, rel)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
