package scoring

import (
	"math"
	"testing"

	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

const eps = 1e-9

func TestShrunkRating(t *testing.T) {
	tests := []struct {
		name  string
		mean  float64
		count int
		want  float64
	}{
		{"no ratings collapses to prior", 1.0, 0, 4.6},
		{"negative count treated as none", 5.0, -3, 4.6},
		{"equal weight halfway", 4.0, 10, 4.3},
		{"many ratings dominate", 4.8, 50, (4.6*10 + 4.8*50) / 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShrunkRating(tt.mean, tt.count, 4.6, 10)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("ShrunkRating(%v, %d) = %f, want %f", tt.mean, tt.count, got, tt.want)
			}
		})
	}
}

func TestReputationWithoutRatingsUsesPrior(t *testing.T) {
	p := DefaultParams()
	for _, mean := range []float64{0, 1, 3.3, 5, 42} {
		w := &store.Worker{RatingMean: mean, RatingCount: 0, OnTimeRate: 0.9, CompletionRate: 0.95, DisputeRate: 0.02}
		want := ReputationScore(4.6, Reliability(0.9, 0.95, 0.02))
		if got := p.Reputation(w); math.Abs(got-want) > eps {
			t.Errorf("mean %v: reputation %f, want prior-based %f", mean, got, want)
		}
	}
}

func TestReliabilityClamped(t *testing.T) {
	tests := []struct {
		name                        string
		onTime, completion, dispute float64
		want                        float64
	}{
		{"typical", 0.95, 0.97, 0.0, 0.768},
		{"rates above one", 1.5, 1.5, 0, 1},
		{"dispute above one", 0, 0, 2, 0},
		{"everything huge", 10, 10, 10, 1},
		{"everything negative", -1, -1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reliability(tt.onTime, tt.completion, tt.dispute)
			if got < 0 || got > 1 {
				t.Fatalf("reliability %f outside [0,1]", got)
			}
			if math.Abs(got-tt.want) > eps {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}

func TestReputationMonotonic(t *testing.T) {
	p := DefaultParams()
	base := store.Worker{RatingMean: 4.2, RatingCount: 20, OnTimeRate: 0.8, CompletionRate: 0.8, DisputeRate: 0.1}
	r0 := p.Reputation(&base)

	up := []struct {
		name   string
		mutate func(w *store.Worker)
	}{
		{"higher rating mean", func(w *store.Worker) { w.RatingMean = 4.9 }},
		{"higher on-time rate", func(w *store.Worker) { w.OnTimeRate = 0.95 }},
		{"higher completion rate", func(w *store.Worker) { w.CompletionRate = 0.99 }},
		{"lower dispute rate", func(w *store.Worker) { w.DisputeRate = 0 }},
	}
	for _, tt := range up {
		t.Run(tt.name, func(t *testing.T) {
			w := base
			tt.mutate(&w)
			if r := p.Reputation(&w); r < r0 {
				t.Errorf("reputation decreased: %f -> %f", r0, r)
			}
		})
	}

	// Above the prior, more ratings pull the score up.
	w := base
	w.RatingMean, w.RatingCount = 4.9, 5
	few := p.Reputation(&w)
	w.RatingCount = 500
	if many := p.Reputation(&w); many < few {
		t.Errorf("more ratings above prior lowered reputation: %f -> %f", few, many)
	}
}

func TestCancelProbabilityFloor(t *testing.T) {
	if got := CancelProbability(0, 1, 0.02); got != 0.02 {
		t.Errorf("expected floor 0.02, got %f", got)
	}
	if got := CancelProbability(0, 5, 0.02); got != 0.02 {
		t.Errorf("expected floor 0.02 for very high reputation, got %f", got)
	}
	if got := CancelProbability(0.5, 0.5, 0.02); math.Abs(got-0.2) > eps {
		t.Errorf("expected 0.2, got %f", got)
	}
}

func TestCancelProbabilityOrdering(t *testing.T) {
	lo := CancelProbability(0.1, 0.5, 0.02)
	hi := CancelProbability(0.2, 0.5, 0.02)
	if !(hi > lo) {
		t.Errorf("expected increasing in cancel rate: %f vs %f", lo, hi)
	}
	good := CancelProbability(0.2, 0.9, 0.02)
	bad := CancelProbability(0.2, 0.1, 0.02)
	if !(bad > good) {
		t.Errorf("expected decreasing in reputation: good %f bad %f", good, bad)
	}
}
