package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/MikeSquared-Agency/CrewMatch/internal/geo"
	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

// Feasibility is the outcome of the hard eligibility gate for one
// worker/task pair. Reason is empty when Feasible is true.
type Feasibility struct {
	Feasible   bool    `json:"feasible"`
	Reason     string  `json:"reason,omitempty"`
	DistanceKm float64 `json:"distance_km"`
	ETAMinutes float64 `json:"eta_minutes"`
}

// Check runs the gate in order: skill, licence, distance cap, and for
// immediate jobs the travel-time cap. It never fails; it only says no.
func (p Params) Check(w *store.Worker, t *store.Task, job *store.Job) Feasibility {
	if !w.HasSkill(t.Skill) {
		return Feasibility{Reason: "missing skill: " + t.Skill}
	}
	if lic, ok := p.RequiredLicence(t.Skill); ok && !w.HasLicence(lic) {
		return Feasibility{Reason: "missing licence: " + lic}
	}

	km := geo.DistanceKm(w.Location(), job.Site())
	eta := p.ETAMinutes(km, w.Transport)
	f := Feasibility{DistanceKm: km, ETAMinutes: eta}

	if radius := p.EffectiveRadiusKm(w); !(km <= radius) {
		f.Reason = fmt.Sprintf("%.1f km exceeds %.1f km radius", km, radius)
		return f
	}
	if job.Urgency == store.UrgencyImmediate && !(eta <= p.ImmediateMaxETAMinutes) {
		f.Reason = fmt.Sprintf("%.0f min ETA exceeds %.0f min for immediate jobs", eta, p.ImmediateMaxETAMinutes)
		return f
	}

	f.Feasible = true
	return f
}

// Feasible is Check reduced to a boolean.
func (p Params) Feasible(w *store.Worker, t *store.Task, job *store.Job) bool {
	return p.Check(w, t, job).Feasible
}

// EffectiveRadiusKm is the worker's stated radius (or the default when
// unset) under the global hard cap.
func (p Params) EffectiveRadiusKm(w *store.Worker) float64 {
	r := w.RadiusKm
	if r <= 0 || math.IsNaN(r) {
		r = p.DefaultRadiusKm
	}
	return math.Min(r, p.MaxDistanceKm)
}

// RequiredLicence returns the licence gating skill. Skills match the
// way Worker.HasSkill does, ignoring case.
func (p Params) RequiredLicence(skill string) (string, bool) {
	if lic, ok := p.Licences[skill]; ok {
		return lic, true
	}
	for s, lic := range p.Licences {
		if strings.EqualFold(s, strings.TrimSpace(skill)) {
			return lic, true
		}
	}
	return "", false
}

// SpeedKmh returns the travel speed for a transport mode, ignoring case.
// Unknown modes travel at the default transport's speed.
func (p Params) SpeedKmh(mode store.Transport) float64 {
	if v, ok := p.Speeds[mode]; ok && v > 0 {
		return v
	}
	if v, ok := p.Speeds[NormalizeTransport(mode)]; ok && v > 0 {
		return v
	}
	return p.Speeds[p.DefaultTransport]
}

// NormalizeTransport folds a transport mode to its canonical lower-case form.
func NormalizeTransport(mode store.Transport) store.Transport {
	return store.Transport(strings.ToLower(strings.TrimSpace(string(mode))))
}

// ETAMinutes converts a distance into minutes of travel for mode.
func (p Params) ETAMinutes(km float64, mode store.Transport) float64 {
	return km / p.SpeedKmh(mode) * 60
}
