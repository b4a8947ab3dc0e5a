package scoring

import "math"

// CancelProbability models the chance a worker drops the job. No worker is
// ever modelled below floor.
func CancelProbability(cancelRate, reputation, floor float64) float64 {
	return math.Max(floor, 0.30*cancelRate+0.10*(1-reputation))
}
