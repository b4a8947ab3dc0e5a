package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate creates the workers, jobs, tasks and offers tables if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const workerColumns = `user_id, name, skills, licences, rate_hour, lat, lng,
	COALESCE(radius_km, 0), COALESCE(transport, ''),
	COALESCE(rating_mean, 0), COALESCE(rating_count, 0),
	COALESCE(on_time_rate, 0), COALESCE(completion_rate, 0),
	COALESCE(cancel_rate, 0), COALESCE(dispute_rate, 0),
	COALESCE(hours_last28d, 0), availability`

// ListWorkers reads the whole roster. Order is stable so ties in the matcher
// resolve the same way on every request.
func (s *PostgresStore) ListWorkers(ctx context.Context) ([]Worker, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+workerColumns+` FROM workers ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()

	var workers []Worker
	for rows.Next() {
		var w Worker
		var transport string
		var availability []byte
		if err := rows.Scan(
			&w.ID, &w.Name, &w.Skills, &w.Licences, &w.RateHour, &w.Lat, &w.Lng,
			&w.RadiusKm, &transport,
			&w.RatingMean, &w.RatingCount,
			&w.OnTimeRate, &w.CompletionRate,
			&w.CancelRate, &w.DisputeRate,
			&w.HoursLast28d, &availability,
		); err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		w.Transport = Transport(transport)
		if availability != nil {
			w.Availability = availability
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// UpsertWorkers inserts or replaces roster rows. Used by the seed script.
func (s *PostgresStore) UpsertWorkers(ctx context.Context, workers []Worker) error {
	batch := &pgx.Batch{}
	for _, w := range workers {
		var availability []byte
		if len(w.Availability) > 0 {
			availability = w.Availability
		}
		batch.Queue(`
			INSERT INTO workers (user_id, name, skills, licences, rate_hour, lat, lng, radius_km, transport,
				rating_mean, rating_count, on_time_rate, completion_rate, cancel_rate, dispute_rate,
				hours_last28d, availability)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (user_id) DO UPDATE SET
				name = EXCLUDED.name, skills = EXCLUDED.skills, licences = EXCLUDED.licences,
				rate_hour = EXCLUDED.rate_hour, lat = EXCLUDED.lat, lng = EXCLUDED.lng,
				radius_km = EXCLUDED.radius_km, transport = EXCLUDED.transport,
				rating_mean = EXCLUDED.rating_mean, rating_count = EXCLUDED.rating_count,
				on_time_rate = EXCLUDED.on_time_rate, completion_rate = EXCLUDED.completion_rate,
				cancel_rate = EXCLUDED.cancel_rate, dispute_rate = EXCLUDED.dispute_rate,
				hours_last28d = EXCLUDED.hours_last28d, availability = EXCLUDED.availability`,
			w.ID, w.Name, nonNil(w.Skills), nonNil(w.Licences), w.RateHour, w.Lat, w.Lng, w.RadiusKm, string(w.Transport),
			w.RatingMean, w.RatingCount, w.OnTimeRate, w.CompletionRate, w.CancelRate, w.DisputeRate,
			w.HoursLast28d, availability,
		)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

// nonNil keeps a missing list from encoding as NULL in a NOT NULL array column.
func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func (s *PostgresStore) SaveAssignment(ctx context.Context, job *Job, offers []*Offer) error {
	if len(offers) != len(job.Tasks) {
		return fmt.Errorf("save assignment: %d offers for %d tasks", len(offers), len(job.Tasks))
	}

	// IDs are fixed before the first attempt so a retry after an
	// ambiguous commit finds the rows it already wrote.
	AssignIDs(job, offers)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO jobs (id, title, lat, lng, urgency, window_start, window_end, budget_max)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at`,
		job.ID, job.Title, job.Lat, job.Lng, string(job.Urgency), job.WindowStart, job.WindowEnd, job.BudgetMax,
	).Scan(&job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return loadSavedAssignment(ctx, tx, job, offers)
	}
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	for i := range job.Tasks {
		t := &job.Tasks[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO tasks (id, job_id, name, skill, duration_h, order_idx)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, job.ID, t.Name, t.Skill, t.DurationH, t.OrderIdx,
		)
		if err != nil {
			return fmt.Errorf("insert task %q: %w", t.Name, err)
		}
	}

	for i, o := range offers {
		err = tx.QueryRow(ctx, `
			INSERT INTO offers (id, job_id, task_id, worker_id, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			o.ID, o.JobID, o.TaskID, o.WorkerID, string(o.Status),
		).Scan(&o.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert offer for task %q: %w", job.Tasks[i].Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// loadSavedAssignment fills timestamps for an assignment an earlier attempt
// already committed under the same IDs.
func loadSavedAssignment(ctx context.Context, tx pgx.Tx, job *Job, offers []*Offer) error {
	if err := tx.QueryRow(ctx, `SELECT created_at FROM jobs WHERE id = $1`, job.ID).Scan(&job.CreatedAt); err != nil {
		return fmt.Errorf("load saved job: %w", err)
	}
	for _, o := range offers {
		err := tx.QueryRow(ctx, `SELECT created_at FROM offers WHERE id = $1 AND job_id = $2`, o.ID, job.ID).Scan(&o.CreatedAt)
		if err != nil {
			return fmt.Errorf("load saved offer %s: %w", o.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*JobDetail, error) {
	job := &Job{}
	var urgency string
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, lat, lng, urgency, window_start, window_end, budget_max, created_at
		FROM jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.Title, &job.Lat, &job.Lng, &urgency, &job.WindowStart, &job.WindowEnd, &job.BudgetMax, &job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	job.Urgency = Urgency(urgency)

	rows, err := s.pool.Query(ctx, `
		SELECT id, job_id, name, skill, duration_h, order_idx
		FROM tasks WHERE job_id = $1
		ORDER BY order_idx ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.JobID, &t.Name, &t.Skill, &t.DurationH, &t.OrderIdx); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		job.Tasks = append(job.Tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	offerRows, err := s.pool.Query(ctx, `
		SELECT o.id, o.job_id, o.task_id, o.worker_id, o.status, o.created_at
		FROM offers o JOIN tasks t ON t.id = o.task_id
		WHERE o.job_id = $1
		ORDER BY t.order_idx ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("get offers: %w", err)
	}
	defer offerRows.Close()

	detail := &JobDetail{Job: job}
	for offerRows.Next() {
		o := &Offer{}
		var status string
		if err := offerRows.Scan(&o.ID, &o.JobID, &o.TaskID, &o.WorkerID, &status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		o.Status = OfferStatus(status)
		detail.Offers = append(detail.Offers, o)
	}
	return detail, offerRows.Err()
}
