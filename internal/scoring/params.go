package scoring

import (
	"fmt"

	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

// Params holds every tunable of the feasibility gate and the cost model.
type Params struct {
	// Feasibility
	MaxDistanceKm          float64
	DefaultRadiusKm        float64
	ImmediateMaxETAMinutes float64
	Licences               map[string]string // skill -> licence tag it requires

	// Travel
	Speeds           map[store.Transport]float64 // km/h
	DefaultTransport store.Transport

	// Cost terms
	LateGraceMinutes       float64
	LatePenaltyPerMinute   float64
	FairnessThresholdHours float64

	// Reputation prior
	PriorMean   float64
	PriorWeight float64

	MinCancelProb float64

	Profiles       map[store.Urgency]WeightProfile
	DefaultUrgency store.Urgency
}

// DefaultParams returns the production cost model.
func DefaultParams() Params {
	return Params{
		MaxDistanceKm:          15,
		DefaultRadiusKm:        8,
		ImmediateMaxETAMinutes: 15,
		Licences: map[string]string{
			"plumber":     "plumbing_lic",
			"electrician": "electrical_lic",
			"waterproof":  "waterproof_cert",
		},
		Speeds: map[store.Transport]float64{
			store.TransportWalk:    4,
			store.TransportTransit: 18,
			store.TransportCar:     28,
		},
		DefaultTransport:       store.TransportTransit,
		LateGraceMinutes:       15,
		LatePenaltyPerMinute:   0.5,
		FairnessThresholdHours: 60,
		PriorMean:              4.6,
		PriorWeight:            10,
		MinCancelProb:          0.02,
		Profiles:               DefaultProfiles(),
		DefaultUrgency:         store.UrgencyScheduled,
	}
}

// Validate rejects parameter sets that would make the model divide by zero
// or silently drop the fallback profile.
func (p Params) Validate() error {
	if p.MaxDistanceKm <= 0 {
		return fmt.Errorf("max distance must be positive, got %v", p.MaxDistanceKm)
	}
	if p.DefaultRadiusKm <= 0 {
		return fmt.Errorf("default radius must be positive, got %v", p.DefaultRadiusKm)
	}
	if p.ImmediateMaxETAMinutes <= 0 {
		return fmt.Errorf("immediate max ETA must be positive, got %v", p.ImmediateMaxETAMinutes)
	}
	if p.LateGraceMinutes < 0 || p.LatePenaltyPerMinute < 0 || p.FairnessThresholdHours < 0 {
		return fmt.Errorf("lateness and fairness parameters must be non-negative")
	}
	if p.PriorWeight < 0 {
		return fmt.Errorf("prior weight must be non-negative, got %v", p.PriorWeight)
	}
	if p.MinCancelProb < 0 || p.MinCancelProb > 1 {
		return fmt.Errorf("min cancel probability must be within [0,1], got %v", p.MinCancelProb)
	}
	for mode, v := range p.Speeds {
		if v <= 0 {
			return fmt.Errorf("speed for %q must be positive, got %v", mode, v)
		}
	}
	if _, ok := p.Speeds[p.DefaultTransport]; !ok {
		return fmt.Errorf("no speed configured for default transport %q", p.DefaultTransport)
	}
	if _, ok := p.Profiles[p.DefaultUrgency]; !ok {
		return fmt.Errorf("no weight profile for default urgency %q", p.DefaultUrgency)
	}
	for u, w := range p.Profiles {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", u, err)
		}
	}
	return nil
}
