package scoring

import (
	"fmt"

	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

// WeightProfile holds the cost-function coefficients for one urgency class.
type WeightProfile struct {
	Travel       float64 `json:"lambda"` // per km
	Lateness     float64 `json:"gamma"`  // per lateness unit
	Cancellation float64 `json:"rho"`    // per cancel probability per hour
	Fairness     float64 `json:"mu"`     // per overtime hour
	Reputation   float64 `json:"nu"`     // discount per reputation point per hour
}

// DefaultProfiles returns the weight table keyed by urgency class.
func DefaultProfiles() map[store.Urgency]WeightProfile {
	return map[store.Urgency]WeightProfile{
		store.UrgencyImmediate: {Travel: 0.50, Lateness: 0.20, Cancellation: 6.0, Fairness: 1.0, Reputation: 3.0},
		store.UrgencyScheduled: {Travel: 0.25, Lateness: 0.10, Cancellation: 4.5, Fairness: 1.0, Reputation: 4.0},
		store.UrgencyFlex:      {Travel: 0.15, Lateness: 0.00, Cancellation: 4.0, Fairness: 1.2, Reputation: 4.0},
	}
}

// Validate checks that no coefficient is negative.
func (w WeightProfile) Validate() error {
	for name, v := range map[string]float64{
		"lambda": w.Travel, "gamma": w.Lateness, "rho": w.Cancellation, "mu": w.Fairness, "nu": w.Reputation,
	} {
		if v < 0 {
			return fmt.Errorf("negative weight %s: %f", name, v)
		}
	}
	return nil
}

// Profile selects the weights for an urgency class. Unknown classes get the
// default (scheduled) profile.
func (p Params) Profile(u store.Urgency) WeightProfile {
	if w, ok := p.Profiles[u]; ok {
		return w
	}
	return p.Profiles[p.DefaultUrgency]
}
