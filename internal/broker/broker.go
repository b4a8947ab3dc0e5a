package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/CrewMatch/internal/config"
	"github.com/MikeSquared-Agency/CrewMatch/internal/hermes"
	"github.com/MikeSquared-Agency/CrewMatch/internal/matching"
	"github.com/MikeSquared-Agency/CrewMatch/internal/metrics"
	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

const (
	OpListWorkers    = "list_workers"
	OpSaveAssignment = "save_assignment"

	maxBackoff     = 2 * time.Second
	publishTimeout = 2 * time.Second
)

// DataAccessError reports a roster read or persistence failure that survived
// every retry. It maps to a server error at the HTTP boundary.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// Outcome is what one request produced. Offers is empty unless the job was
// matched and persisted.
type Outcome struct {
	Job    *store.Job
	Result *matching.Result
	Offers []*store.Offer
}

func (o *Outcome) Matched() bool {
	return o.Result != nil && o.Result.Status == matching.StatusOK
}

type Broker struct {
	store   store.Store
	roster  store.RosterSource
	hermes  hermes.Client
	matcher *matching.Matcher
	logger  *slog.Logger

	rosterTimeout  time.Duration
	persistTimeout time.Duration
	maxRetries     int
	initialBackoff time.Duration
}

// New wires a broker. roster may wrap s (a cache, say); when nil, s serves
// the roster. h may be nil when no event bus is configured.
func New(s store.Store, roster store.RosterSource, h hermes.Client, cfg *config.Config, logger *slog.Logger) (*Broker, error) {
	params, err := cfg.Matching.Params()
	if err != nil {
		return nil, fmt.Errorf("matching params: %w", err)
	}
	if roster == nil {
		roster = s
	}
	return &Broker{
		store:          s,
		roster:         roster,
		hermes:         h,
		matcher:        matching.NewMatcher(params, cfg.Matching.Options(), logger),
		logger:         logger,
		rosterTimeout:  cfg.RosterTimeout(),
		persistTimeout: cfg.PersistTimeout(),
		maxRetries:     cfg.DataAccess.MaxRetries,
		initialBackoff: cfg.InitialBackoff(),
	}, nil
}

// Optimise validates the job, matches it against the current roster and, on
// success, persists the job with one pending offer per task.
func (b *Broker) Optimise(ctx context.Context, job *store.Job) (*Outcome, error) {
	out, err := b.evaluate(ctx, job)
	if err != nil {
		return nil, err
	}

	if !out.Matched() {
		metrics.JobsTotal.WithLabelValues(string(matching.StatusNoMatch)).Inc()
		b.publishNoMatch(ctx, job, out.Result)
		return out, nil
	}

	offers := offersFor(job, out.Result)
	// Every attempt writes under the same IDs, so a retry after a commit
	// whose reply was lost finds the rows instead of duplicating them.
	store.AssignIDs(job, offers)
	err = b.withRetry(ctx, OpSaveAssignment, b.persistTimeout, func(ctx context.Context) error {
		return b.store.SaveAssignment(ctx, job, offers)
	})
	if err != nil {
		metrics.JobsTotal.WithLabelValues("error").Inc()
		b.logger.Error("persist assignment failed", "tasks", len(job.Tasks), "error", err)
		return nil, err
	}
	out.Offers = offers

	metrics.JobsTotal.WithLabelValues(string(matching.StatusOK)).Inc()
	b.logger.Info("job matched", "job_id", job.ID, "tasks", len(job.Tasks), "urgency", job.Urgency)
	b.publishMatched(ctx, job, offers)
	return out, nil
}

// Preview runs the same evaluation as Optimise without writing anything.
func (b *Broker) Preview(ctx context.Context, job *store.Job) (*Outcome, error) {
	return b.evaluate(ctx, job)
}

func (b *Broker) evaluate(ctx context.Context, job *store.Job) (*Outcome, error) {
	if err := job.Validate(); err != nil {
		metrics.JobsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	job.ApplyDefaults()

	var roster []store.Worker
	err := b.withRetry(ctx, OpListWorkers, b.rosterTimeout, func(ctx context.Context) error {
		var err error
		roster, err = b.roster.ListWorkers(ctx)
		return err
	})
	if err != nil {
		metrics.JobsTotal.WithLabelValues("error").Inc()
		b.logger.Error("roster fetch failed", "error", err)
		return nil, err
	}

	start := time.Now()
	res := b.matcher.Match(job, roster)
	metrics.MatchDuration.Observe(time.Since(start).Seconds())
	for _, a := range res.Assignments {
		metrics.FeasibleCandidates.Observe(float64(a.Feasible))
	}

	return &Outcome{Job: job, Result: res}, nil
}

// withRetry runs fn with a per-attempt deadline. Only transient failures are
// retried; an expired deadline is final.
func (b *Broker) withRetry(ctx context.Context, op string, timeout time.Duration, fn func(context.Context) error) error {
	backoff := b.initialBackoff
	var err error
	for attempt := 0; ; attempt++ {
		actx, cancel := context.WithTimeout(ctx, timeout)
		err = fn(actx)
		cancel()
		if err == nil {
			return nil
		}
		metrics.DataAccessErrors.WithLabelValues(op).Inc()

		if attempt >= b.maxRetries || !store.IsTransient(err) || ctx.Err() != nil {
			break
		}
		b.logger.Warn("retrying data access", "op", op, "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return &DataAccessError{Op: op, Err: ctx.Err()}
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return &DataAccessError{Op: op, Err: err}
}

// offersFor builds one pending offer per task, aligned with job.Tasks.
func offersFor(job *store.Job, res *matching.Result) []*store.Offer {
	picks := res.Picks()
	offers := make([]*store.Offer, len(job.Tasks))
	for i, t := range job.Tasks {
		offers[i] = &store.Offer{
			WorkerID: picks[t.Name].ID,
			Status:   store.OfferPending,
		}
	}
	return offers
}

func (b *Broker) publishMatched(ctx context.Context, job *store.Job, offers []*store.Offer) {
	if b.hermes == nil {
		return
	}
	ev := hermes.JobMatchedEvent{
		JobID:     job.ID.String(),
		Urgency:   string(job.Urgency),
		Picks:     make(map[string]string, len(job.Tasks)),
		Timestamp: time.Now().UTC(),
	}
	for i, t := range job.Tasks {
		ev.Picks[t.Name] = offers[i].WorkerID
		ev.OfferIDs = append(ev.OfferIDs, offers[i].ID.String())
	}
	b.publish(ctx, hermes.SubjectJobMatched(ev.JobID), ev)
}

func (b *Broker) publishNoMatch(ctx context.Context, job *store.Job, res *matching.Result) {
	if b.hermes == nil {
		return
	}
	ev := hermes.JobNoMatchEvent{
		Task:      res.FailedTask,
		Urgency:   string(job.Urgency),
		Timestamp: time.Now().UTC(),
	}
	if n := len(res.Assignments); n > 0 {
		ev.Skill = res.Assignments[n-1].Task.Skill
	}
	b.publish(ctx, hermes.SubjectJobNoMatch, ev)
}

// publish never fails the request; the job is already decided.
func (b *Broker) publish(ctx context.Context, subject string, ev interface{}) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := b.hermes.Publish(pctx, subject, ev); err != nil {
		b.logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}

// IsDataAccess reports whether err came from the roster or the store.
func IsDataAccess(err error) bool {
	var dae *DataAccessError
	return errors.As(err, &dae)
}
