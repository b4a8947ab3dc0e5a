package config

import (
	"strings"

	"github.com/MikeSquared-Agency/CrewMatch/internal/matching"
	"github.com/MikeSquared-Agency/CrewMatch/internal/scoring"
	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

// defaultMatching mirrors scoring.DefaultParams and matching.DefaultOptions
// so the cost model has a single source of defaults.
func defaultMatching() MatchingConfig {
	p := scoring.DefaultParams()
	o := matching.DefaultOptions()
	m := MatchingConfig{
		MaxDistanceKm:          p.MaxDistanceKm,
		DefaultRadiusKm:        p.DefaultRadiusKm,
		ImmediateMaxETAMinutes: p.ImmediateMaxETAMinutes,
		LateGraceMinutes:       p.LateGraceMinutes,
		LatePenaltyPerMinute:   p.LatePenaltyPerMinute,
		FairnessThresholdHours: p.FairnessThresholdHours,
		PriorMean:              p.PriorMean,
		PriorWeight:            p.PriorWeight,
		MinCancelProb:          p.MinCancelProb,
		Speeds:                 make(map[string]float64, len(p.Speeds)),
		DefaultTransport:       string(p.DefaultTransport),
		Licences:               make(map[string]string, len(p.Licences)),
		Profiles:               make(map[string]WeightProfile, len(p.Profiles)),
		DefaultUrgency:         string(p.DefaultUrgency),
		MaxBackups:             o.MaxBackups,
		MaxReasons:             o.MaxReasons,
		AllowWorkerReuse:       o.AllowWorkerReuse,
	}
	for mode, kmh := range p.Speeds {
		m.Speeds[string(mode)] = kmh
	}
	for skill, lic := range p.Licences {
		m.Licences[skill] = lic
	}
	for u, w := range p.Profiles {
		m.Profiles[string(u)] = WeightProfile{
			Lambda: w.Travel,
			Gamma:  w.Lateness,
			Rho:    w.Cancellation,
			Mu:     w.Fairness,
			Nu:     w.Reputation,
		}
	}
	return m
}

// Params converts the matching section into the cost model's parameters.
func (m MatchingConfig) Params() (scoring.Params, error) {
	p := scoring.Params{
		MaxDistanceKm:          m.MaxDistanceKm,
		DefaultRadiusKm:        m.DefaultRadiusKm,
		ImmediateMaxETAMinutes: m.ImmediateMaxETAMinutes,
		Licences:               make(map[string]string, len(m.Licences)),
		Speeds:                 make(map[store.Transport]float64, len(m.Speeds)),
		DefaultTransport:       scoring.NormalizeTransport(store.Transport(m.DefaultTransport)),
		LateGraceMinutes:       m.LateGraceMinutes,
		LatePenaltyPerMinute:   m.LatePenaltyPerMinute,
		FairnessThresholdHours: m.FairnessThresholdHours,
		PriorMean:              m.PriorMean,
		PriorWeight:            m.PriorWeight,
		MinCancelProb:          m.MinCancelProb,
		Profiles:               make(map[store.Urgency]scoring.WeightProfile, len(m.Profiles)),
		DefaultUrgency:         store.Urgency(m.DefaultUrgency),
	}
	for skill, lic := range m.Licences {
		p.Licences[strings.ToLower(strings.TrimSpace(skill))] = lic
	}
	for mode, kmh := range m.Speeds {
		p.Speeds[scoring.NormalizeTransport(store.Transport(mode))] = kmh
	}
	for u, w := range m.Profiles {
		p.Profiles[store.Urgency(u)] = scoring.WeightProfile{
			Travel:       w.Lambda,
			Lateness:     w.Gamma,
			Cancellation: w.Rho,
			Fairness:     w.Mu,
			Reputation:   w.Nu,
		}
	}
	if err := p.Validate(); err != nil {
		return scoring.Params{}, err
	}
	return p, nil
}

func (m MatchingConfig) Options() matching.Options {
	return matching.Options{
		MaxBackups:       m.MaxBackups,
		MaxReasons:       m.MaxReasons,
		AllowWorkerReuse: m.AllowWorkerReuse,
	}
}
