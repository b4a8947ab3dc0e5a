package matching

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/CrewMatch/internal/scoring"
	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMatcher(opts Options) *Matcher {
	return NewMatcher(scoring.DefaultParams(), opts, discardLogger())
}

func job(urgency store.Urgency, tasks ...store.Task) *store.Job {
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	return &store.Job{
		Lat: 0, Lng: 0, Urgency: urgency,
		WindowStart: start, WindowEnd: start.Add(8 * time.Hour),
		Tasks: tasks,
	}
}

func workerA() store.Worker {
	return store.Worker{
		ID: "a", Name: "Worker A", Skills: []string{"tiler"}, RateHour: 50,
		Lat: 0, Lng: 0.01, RadiusKm: 10, Transport: store.TransportCar,
		RatingMean: 4.8, RatingCount: 50, OnTimeRate: 0.95, CompletionRate: 0.97,
		CancelRate: 0.01, DisputeRate: 0.0, HoursLast28d: 20,
	}
}

func workerB() store.Worker {
	return store.Worker{
		ID: "b", Name: "Worker B", Skills: []string{"tiler"}, RateHour: 40,
		Lat: 0, Lng: 0.5, RadiusKm: 10, Transport: store.TransportCar,
		RatingMean: 4.0, RatingCount: 5, OnTimeRate: 0.8, CompletionRate: 0.85,
		CancelRate: 0.1, DisputeRate: 0.05, HoursLast28d: 70,
	}
}

// crew builds n interchangeable tilers within a few km of the site whose
// hourly rate rises with their index.
func crew(n int) []store.Worker {
	out := make([]store.Worker, n)
	for i := range out {
		out[i] = store.Worker{
			ID: fmt.Sprintf("w%d", i), Name: fmt.Sprintf("Tiler %d", i), Skills: []string{"tiler"},
			RateHour: 30 + float64(i)*5, Lat: 0, Lng: 0.01, RadiusKm: 10, Transport: store.TransportCar,
			RatingMean: 4.5, RatingCount: 20, OnTimeRate: 0.9, CompletionRate: 0.9,
		}
	}
	return out
}

func TestMatch_WorkerAPickedPrimary(t *testing.T) {
	m := newMatcher(DefaultOptions())
	j := job(store.UrgencyScheduled, store.Task{Name: "retile", Skill: "tiler", DurationH: 4, OrderIdx: 0})

	res := m.Match(j, []store.Worker{workerA(), workerB()})

	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, StateCompleted, res.State)
	require.Len(t, res.Assignments, 1)

	a := res.Assignments[0]
	assert.Equal(t, "a", a.Primary.ID)
	assert.Equal(t, StateAssigned, a.State)
	// Worker B sits ~55.6 km from the site, far outside its 10 km radius.
	assert.Equal(t, 1, a.Feasible)
	assert.Empty(t, a.Backups)
	require.Len(t, a.Reasons, 1)
	assert.Equal(t, Reason{Worker: "Worker A", Cost: 187.24, Rate: 50}, a.Reasons[0])

	assert.Equal(t, "Worker A", res.Picks()["retile"].Name)
	assert.Equal(t, []*store.Worker{}, res.Backups()["retile"])
}

func TestMatch_ElectricianWithoutLicenceIsNoMatch(t *testing.T) {
	m := newMatcher(DefaultOptions())
	sparky := store.Worker{
		ID: "e", Name: "Sparky", Skills: []string{"electrician"}, RateHour: 80,
		Lat: 0, Lng: 0.01, RadiusKm: 10, Transport: store.TransportCar,
	}
	j := job(store.UrgencyScheduled, store.Task{Name: "rewire", Skill: "electrician", DurationH: 3})

	res := m.Match(j, []store.Worker{sparky})

	assert.Equal(t, StatusNoMatch, res.Status)
	assert.Equal(t, StateNoMatch, res.State)
	assert.Equal(t, "rewire", res.FailedTask)
	assert.Empty(t, res.Picks())
	assert.Empty(t, res.Reasons())
}

func TestMatch_LicenceGatingIgnoresSkillCase(t *testing.T) {
	m := newMatcher(DefaultOptions())
	for _, skill := range []string{"Electrician", "ELECTRICIAN"} {
		sparky := store.Worker{
			ID: "e", Name: "Sparky", Skills: []string{"electrician"}, RateHour: 80,
			Lat: 0, Lng: 0.01, RadiusKm: 10, Transport: store.TransportCar,
		}
		j := job(store.UrgencyScheduled, store.Task{Name: "rewire", Skill: skill, DurationH: 3})

		res := m.Match(j, []store.Worker{sparky})
		assert.Equal(t, StatusNoMatch, res.Status, skill)
		assert.Equal(t, "rewire", res.FailedTask, skill)

		sparky.Licences = []string{"Electrical_Lic"}
		res = m.Match(j, []store.Worker{sparky})
		require.Equal(t, StatusOK, res.Status, skill)
		assert.Equal(t, "Sparky", res.Picks()["rewire"].Name)
	}
}

func TestMatch_NoMatchHaltsBeforeLaterTasks(t *testing.T) {
	m := newMatcher(DefaultOptions())
	j := job(store.UrgencyScheduled,
		store.Task{Name: "tile", Skill: "tiler", DurationH: 2, OrderIdx: 2},
		store.Task{Name: "plumb", Skill: "plumber", DurationH: 1, OrderIdx: 1},
	)

	res := m.Match(j, []store.Worker{workerA()})

	require.Equal(t, StatusNoMatch, res.Status)
	assert.Equal(t, "plumb", res.FailedTask)
	require.Len(t, res.Assignments, 1, "tasks after the failing one are never evaluated")
	assert.Equal(t, StateFailed, res.Assignments[0].State)
	assert.Equal(t, 0, res.Assignments[0].Feasible)
}

func TestMatch_TaskOrderStableOnTies(t *testing.T) {
	m := newMatcher(DefaultOptions())
	j := job(store.UrgencyFlex,
		store.Task{Name: "grout", Skill: "tiler", DurationH: 1, OrderIdx: 5},
		store.Task{Name: "strip", Skill: "tiler", DurationH: 1, OrderIdx: 1},
		store.Task{Name: "prime", Skill: "tiler", DurationH: 1, OrderIdx: 3},
		store.Task{Name: "lay", Skill: "tiler", DurationH: 1, OrderIdx: 3},
	)

	res := m.Match(j, crew(2))
	require.Equal(t, StatusOK, res.Status)

	var names []string
	for _, a := range res.Assignments {
		names = append(names, a.Task.Name)
	}
	assert.Equal(t, []string{"strip", "prime", "lay", "grout"}, names)
	assert.Equal(t, "grout", j.Tasks[0].Name, "the caller's task slice is not reordered")
}

func TestMatch_BackupsAndReasonsCapped(t *testing.T) {
	m := newMatcher(DefaultOptions())
	roster := crew(6)
	// Reverse so the cheapest worker is last in roster order.
	for i, k := 0, len(roster)-1; i < k; i, k = i+1, k-1 {
		roster[i], roster[k] = roster[k], roster[i]
	}
	j := job(store.UrgencyScheduled, store.Task{Name: "lay", Skill: "tiler", DurationH: 4})

	res := m.Match(j, roster)
	require.Equal(t, StatusOK, res.Status)
	a := res.Assignments[0]

	assert.Equal(t, 6, a.Feasible)
	assert.Equal(t, "w0", a.Primary.ID)
	require.Len(t, a.Backups, 3)
	assert.Equal(t, []string{"w1", "w2", "w3"}, []string{a.Backups[0].ID, a.Backups[1].ID, a.Backups[2].ID})
	require.Len(t, a.Reasons, 4)
	for i := 1; i < len(a.Reasons); i++ {
		assert.LessOrEqual(t, a.Reasons[i-1].Cost, a.Reasons[i].Cost)
	}
	assert.Equal(t, "Tiler 0", a.Reasons[0].Worker)
	assert.Equal(t, 30.0, a.Reasons[0].Rate)
	assert.Len(t, a.Ranked, 6)
}

func TestMatch_EqualCostKeepsRosterOrder(t *testing.T) {
	m := newMatcher(DefaultOptions())
	twin := crew(1)[0]
	roster := []store.Worker{twin, twin, twin}
	roster[0].ID, roster[1].ID, roster[2].ID = "z", "m", "a"
	j := job(store.UrgencyScheduled, store.Task{Name: "lay", Skill: "tiler", DurationH: 2})

	res := m.Match(j, roster)
	a := res.Assignments[0]
	assert.Equal(t, "z", a.Primary.ID)
	assert.Equal(t, "m", a.Backups[0].ID)
	assert.Equal(t, "a", a.Backups[1].ID)
}

func TestMatch_Deterministic(t *testing.T) {
	m := newMatcher(DefaultOptions())
	roster := append(crew(5), workerA(), workerB())
	j := job(store.UrgencyImmediate,
		store.Task{Name: "strip", Skill: "tiler", DurationH: 1, OrderIdx: 0},
		store.Task{Name: "lay", Skill: "tiler", DurationH: 3, OrderIdx: 1},
	)

	first := m.Match(j, roster)
	for i := 0; i < 10; i++ {
		again := m.Match(j, roster)
		assert.Equal(t, first.Picks(), again.Picks())
		assert.Equal(t, first.Backups(), again.Backups())
		assert.Equal(t, first.Reasons(), again.Reasons())
	}
}

func TestMatch_WorkerReusePolicy(t *testing.T) {
	j := job(store.UrgencyScheduled,
		store.Task{Name: "strip", Skill: "tiler", DurationH: 2, OrderIdx: 0},
		store.Task{Name: "lay", Skill: "tiler", DurationH: 4, OrderIdx: 1},
	)

	t.Run("allowed", func(t *testing.T) {
		res := newMatcher(DefaultOptions()).Match(j, crew(3))
		require.Equal(t, StatusOK, res.Status)
		assert.Equal(t, "w0", res.Picks()["strip"].ID)
		assert.Equal(t, "w0", res.Picks()["lay"].ID)
	})

	t.Run("disallowed", func(t *testing.T) {
		opts := DefaultOptions()
		opts.AllowWorkerReuse = false
		res := newMatcher(opts).Match(j, crew(3))
		require.Equal(t, StatusOK, res.Status)
		assert.Equal(t, "w0", res.Picks()["strip"].ID)
		assert.Equal(t, "w1", res.Picks()["lay"].ID)
	})

	t.Run("disallowed with a single worker", func(t *testing.T) {
		opts := DefaultOptions()
		opts.AllowWorkerReuse = false
		res := newMatcher(opts).Match(j, crew(1))
		assert.Equal(t, StatusNoMatch, res.Status)
		assert.Equal(t, "lay", res.FailedTask)
		assert.Len(t, res.Assignments, 2)
	})
}

func TestMatch_DoesNotMutateRoster(t *testing.T) {
	m := newMatcher(DefaultOptions())
	roster := append(crew(3), workerA(), workerB())
	before := make([]store.Worker, len(roster))
	copy(before, roster)

	m.Match(job(store.UrgencyFlex, store.Task{Name: "lay", Skill: "tiler", DurationH: 4}), roster)
	assert.Equal(t, before, roster)
}

func TestMatch_EmptyRoster(t *testing.T) {
	res := newMatcher(DefaultOptions()).Match(job(store.UrgencyScheduled, store.Task{Name: "lay", Skill: "tiler", DurationH: 1}), nil)
	assert.Equal(t, StatusNoMatch, res.Status)
	assert.Equal(t, "lay", res.FailedTask)
}
