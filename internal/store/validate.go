package store

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultJobTitle  = "Job"
	DefaultBudgetMax = 10000.0
)

// ValidationError lists every problem found in a job payload.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid job: " + strings.Join(e.Problems, "; ")
}

// Validate checks the job before it reaches the roster or the matcher.
// Urgency is deliberately not checked: unknown classes fall back to the
// scheduled weight profile.
func (j *Job) Validate() error {
	var problems []string

	if !finite(j.Lat) || !finite(j.Lng) || !j.Site().Valid() {
		problems = append(problems, fmt.Sprintf("invalid site coordinates (%v, %v)", j.Lat, j.Lng))
	}
	if j.WindowStart.IsZero() {
		problems = append(problems, "window_start is required")
	}
	if j.WindowEnd.IsZero() {
		problems = append(problems, "window_end is required")
	}
	if !j.WindowStart.IsZero() && !j.WindowEnd.IsZero() && j.WindowEnd.Before(j.WindowStart) {
		problems = append(problems, "window_end is before window_start")
	}
	if j.BudgetMax != nil && (!finite(*j.BudgetMax) || *j.BudgetMax < 0) {
		problems = append(problems, "budget_max must be a non-negative number")
	}

	if len(j.Tasks) == 0 {
		problems = append(problems, "at least one task is required")
	}
	seen := make(map[string]bool, len(j.Tasks))
	for i, t := range j.Tasks {
		name := strings.TrimSpace(t.Name)
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("tasks[%d]: name is required", i))
		case seen[name]:
			problems = append(problems, fmt.Sprintf("tasks[%d]: duplicate task name %q", i, name))
		}
		seen[name] = true
		if strings.TrimSpace(t.Skill) == "" {
			problems = append(problems, fmt.Sprintf("tasks[%d]: skill is required", i))
		}
		if !finite(t.DurationH) || t.DurationH <= 0 {
			problems = append(problems, fmt.Sprintf("tasks[%d]: duration_h must be a positive number", i))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ApplyDefaults fills the optional fields persisted with every job row.
func (j *Job) ApplyDefaults() {
	if strings.TrimSpace(j.Title) == "" {
		j.Title = DefaultJobTitle
	}
	if j.Urgency == "" {
		j.Urgency = UrgencyScheduled
	}
	if j.BudgetMax == nil {
		b := DefaultBudgetMax
		j.BudgetMax = &b
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
