package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewmatch_jobs_total",
			Help: "Jobs processed, by outcome (ok, no_match, invalid, error)",
		},
		[]string{"status"},
	)

	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crewmatch_match_duration_seconds",
			Help:    "Time spent ranking and selecting workers for one job",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	FeasibleCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crewmatch_feasible_candidates",
			Help:    "Feasible workers per evaluated task",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 50, 100},
		},
	)

	DataAccessErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewmatch_data_access_errors_total",
			Help: "Failed roster reads and persistence attempts",
		},
		[]string{"op"},
	)

	RosterCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewmatch_roster_cache_total",
			Help: "Roster cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
