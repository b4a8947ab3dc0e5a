// Package matching assigns workers to a job's tasks, one task at a time.
package matching

import (
	"log/slog"
	"math"
	"sort"

	"github.com/MikeSquared-Agency/CrewMatch/internal/scoring"
	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusNoMatch Status = "no_match"
)

// State tracks a job or task through one matching run.
type State string

const (
	StatePending    State = "PENDING"
	StateEvaluating State = "EVALUATING"
	StateAssigned   State = "ASSIGNED"
	StateFailed     State = "FAILED"
	StateCompleted  State = "COMPLETED"
	StateNoMatch    State = "NO_MATCH"
)

// Options shapes the output and the reuse policy. They do not affect costs.
type Options struct {
	MaxBackups int
	MaxReasons int
	// AllowWorkerReuse lets the same worker be primary for several tasks of
	// one job. When false, earlier primaries are removed from later tasks'
	// candidate sets before the no-match check.
	AllowWorkerReuse bool
}

func DefaultOptions() Options {
	return Options{MaxBackups: 3, MaxReasons: 4, AllowWorkerReuse: true}
}

// Reason is one ranked explanation entry for a task.
type Reason struct {
	Worker string  `json:"worker"`
	Cost   float64 `json:"cost"`
	Rate   float64 `json:"rate"`
}

// Candidate is a feasible worker with its priced breakdown.
type Candidate struct {
	Worker    *store.Worker         `json:"-"`
	WorkerID  string                `json:"worker_id"`
	Breakdown scoring.CostBreakdown `json:"breakdown"`
}

type TaskAssignment struct {
	Task     store.Task      `json:"task"`
	State    State           `json:"state"`
	Primary  *store.Worker   `json:"primary,omitempty"`
	Backups  []*store.Worker `json:"backups,omitempty"`
	Reasons  []Reason        `json:"reasons,omitempty"`
	Ranked   []Candidate     `json:"ranked,omitempty"`
	Feasible int             `json:"feasible"`
}

// Result is the outcome of one job. When Status is no_match, FailedTask names
// the first task with no feasible worker and Assignments ends with it.
type Result struct {
	Status      Status           `json:"status"`
	State       State            `json:"state"`
	FailedTask  string           `json:"failed_task,omitempty"`
	Assignments []TaskAssignment `json:"assignments"`
}

// Picks maps task name to primary worker. Empty unless Status is ok.
func (r *Result) Picks() map[string]*store.Worker {
	out := make(map[string]*store.Worker)
	if r.Status != StatusOK {
		return out
	}
	for _, a := range r.Assignments {
		out[a.Task.Name] = a.Primary
	}
	return out
}

// Backups maps task name to its ordered fallback workers.
func (r *Result) Backups() map[string][]*store.Worker {
	out := make(map[string][]*store.Worker)
	if r.Status != StatusOK {
		return out
	}
	for _, a := range r.Assignments {
		backups := a.Backups
		if backups == nil {
			backups = []*store.Worker{}
		}
		out[a.Task.Name] = backups
	}
	return out
}

// Reasons maps task name to its ranked explanation entries.
func (r *Result) Reasons() map[string][]Reason {
	out := make(map[string][]Reason)
	if r.Status != StatusOK {
		return out
	}
	for _, a := range r.Assignments {
		out[a.Task.Name] = a.Reasons
	}
	return out
}

// Matcher is stateless between calls and safe for concurrent use.
type Matcher struct {
	params scoring.Params
	opts   Options
	logger *slog.Logger
}

func NewMatcher(params scoring.Params, opts Options, logger *slog.Logger) *Matcher {
	return &Matcher{params: params, opts: opts, logger: logger}
}

// Match runs the greedy per-task assignment over a roster snapshot. It is a
// pure function of its inputs: it does not block, fail, or mutate the roster.
func (m *Matcher) Match(job *store.Job, roster []store.Worker) *Result {
	tasks := make([]store.Task, len(job.Tasks))
	copy(tasks, job.Tasks)
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].OrderIdx < tasks[j].OrderIdx
	})

	result := &Result{Status: StatusOK, State: StatePending}
	used := make(map[string]bool)

	for _, task := range tasks {
		result.State = StateEvaluating
		a := TaskAssignment{Task: task, State: StateEvaluating}

		candidates := m.rank(job, &task, roster, used)
		a.Feasible = len(candidates)

		if len(candidates) == 0 {
			a.State = StateFailed
			result.Assignments = append(result.Assignments, a)
			result.Status = StatusNoMatch
			result.State = StateNoMatch
			result.FailedTask = task.Name
			m.logger.Info("no feasible worker", "task", task.Name, "skill", task.Skill, "urgency", job.Urgency, "roster", len(roster))
			return result
		}

		a.Ranked = candidates
		a.Primary = candidates[0].Worker
		for _, c := range candidates[1:min(len(candidates), 1+m.opts.MaxBackups)] {
			a.Backups = append(a.Backups, c.Worker)
		}
		for _, c := range candidates[:min(len(candidates), m.opts.MaxReasons)] {
			a.Reasons = append(a.Reasons, Reason{
				Worker: c.Worker.Name,
				Cost:   round2(c.Breakdown.Total),
				Rate:   c.Worker.RateHour,
			})
		}
		a.State = StateAssigned
		if !m.opts.AllowWorkerReuse {
			used[a.Primary.ID] = true
		}

		m.logger.Debug("task assigned", "task", task.Name, "worker", a.Primary.ID,
			"cost", candidates[0].Breakdown.Total, "feasible", len(candidates))
		result.Assignments = append(result.Assignments, a)
	}

	result.State = StateCompleted
	return result
}

// rank filters the roster for task and returns feasible workers cheapest
// first. Equal costs keep roster order.
func (m *Matcher) rank(job *store.Job, task *store.Task, roster []store.Worker, used map[string]bool) []Candidate {
	var candidates []Candidate
	for i := range roster {
		w := &roster[i]
		if used[w.ID] {
			continue
		}
		if !m.params.Feasible(w, task, job) {
			continue
		}
		candidates = append(candidates, Candidate{
			Worker:    w,
			WorkerID:  w.ID,
			Breakdown: m.params.Cost(w, task, job),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Breakdown.Total < candidates[j].Breakdown.Total
	})
	return candidates
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
