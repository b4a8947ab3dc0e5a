package scoring

import (
	"math"

	"github.com/MikeSquared-Agency/CrewMatch/internal/geo"
	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

// CostBreakdown explains one worker/task cost. Total is the value ranked on;
// lower is better. It is a synthetic score, not a price.
type CostBreakdown struct {
	DistanceKm  float64 `json:"distance_km"`
	ETAMinutes  float64 `json:"eta_minutes"`
	Reputation  float64 `json:"reputation"`
	CancelProb  float64 `json:"cancel_prob"`
	OvertimeHrs float64 `json:"overtime_hours"`

	Labour             float64 `json:"labour"`
	Travel             float64 `json:"travel"`
	Lateness           float64 `json:"lateness"`
	Cancellation       float64 `json:"cancellation"`
	Fairness           float64 `json:"fairness"`
	ReputationDiscount float64 `json:"reputation_discount"`

	Total float64 `json:"total"`
}

// Cost prices a pair that has already passed Check. It does not re-check
// feasibility.
//
//	cost = rate·h + λ·km + γ·late + ρ·p·h + μ·fairness − ν·rep·h
func (p Params) Cost(w *store.Worker, t *store.Task, job *store.Job) CostBreakdown {
	weights := p.Profile(job.Urgency)
	h := t.DurationH

	km := geo.DistanceKm(w.Location(), job.Site())
	eta := p.ETAMinutes(km, w.Transport)
	late := math.Max(0, eta-p.LateGraceMinutes) * p.LatePenaltyPerMinute
	rep := p.Reputation(w)
	cancel := CancelProbability(w.CancelRate, rep, p.MinCancelProb)
	overtime := math.Max(0, w.HoursLast28d-p.FairnessThresholdHours)

	b := CostBreakdown{
		DistanceKm:  km,
		ETAMinutes:  eta,
		Reputation:  rep,
		CancelProb:  cancel,
		OvertimeHrs: overtime,

		Labour:             w.RateHour * h,
		Travel:             weights.Travel * km,
		Lateness:           weights.Lateness * late,
		Cancellation:       weights.Cancellation * cancel * h,
		Fairness:           weights.Fairness * overtime,
		ReputationDiscount: weights.Reputation * rep * h,
	}
	b.Total = b.Labour + b.Travel + b.Lateness + b.Cancellation + b.Fairness - b.ReputationDiscount
	return b
}
