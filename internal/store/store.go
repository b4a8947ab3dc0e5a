package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/CrewMatch/internal/geo"
)

type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyScheduled Urgency = "scheduled"
	UrgencyFlex      Urgency = "flex"
)

type Transport string

const (
	TransportWalk    Transport = "walk"
	TransportTransit Transport = "transit"
	TransportCar     Transport = "car"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
)

// Worker is a candidate service provider. Rosters are read-only snapshots;
// nothing in the matching path mutates a Worker.
type Worker struct {
	ID        string    `json:"user_id"`
	Name      string    `json:"name"`
	Skills    []string  `json:"skills"`
	Licences  []string  `json:"licences"`
	RateHour  float64   `json:"rate_hour"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	RadiusKm  float64   `json:"radius_km"`
	Transport Transport `json:"transport"`

	// History
	RatingMean     float64 `json:"rating_mean"`
	RatingCount    int     `json:"rating_count"`
	OnTimeRate     float64 `json:"on_time_rate"`
	CompletionRate float64 `json:"completion_rate"`
	CancelRate     float64 `json:"cancel_rate"`
	DisputeRate    float64 `json:"dispute_rate"`
	HoursLast28d   float64 `json:"hours_last28d"`

	// Availability is carried through untouched; time-window conflicts are not resolved here.
	Availability json.RawMessage `json:"availability,omitempty"`
}

func (w *Worker) Location() geo.Point {
	return geo.Point{Lat: w.Lat, Lng: w.Lng}
}

func (w *Worker) HasSkill(skill string) bool {
	return containsFold(w.Skills, skill)
}

func (w *Worker) HasLicence(licence string) bool {
	return containsFold(w.Licences, licence)
}

// Task is one ordered unit of work within a job.
type Task struct {
	ID        uuid.UUID `json:"id,omitempty"`
	JobID     uuid.UUID `json:"job_id,omitempty"`
	Name      string    `json:"name"`
	Skill     string    `json:"skill"`
	DurationH float64   `json:"duration_h"`
	OrderIdx  int       `json:"order_idx"`
}

// Job is a matching request and, once persisted, the job row.
type Job struct {
	ID          uuid.UUID `json:"id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Urgency     Urgency   `json:"urgency,omitempty"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	BudgetMax   *float64  `json:"budget_max,omitempty"`
	Tasks       []Task    `json:"tasks"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

func (j *Job) Site() geo.Point {
	return geo.Point{Lat: j.Lat, Lng: j.Lng}
}

// Offer links a task to the worker picked for it.
type Offer struct {
	ID        uuid.UUID   `json:"id"`
	JobID     uuid.UUID   `json:"job_id"`
	TaskID    uuid.UUID   `json:"task_id"`
	WorkerID  string      `json:"worker_id"`
	Status    OfferStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// JobDetail is a persisted job read back with its tasks and offers.
type JobDetail struct {
	Job    *Job     `json:"job"`
	Offers []*Offer `json:"offers"`
}

// RosterSource supplies the full worker roster for one matching request.
type RosterSource interface {
	ListWorkers(ctx context.Context) ([]Worker, error)
}

type Store interface {
	RosterSource

	// SaveAssignment writes the job row, one row per task and one offer per
	// task as a single unit. offers[i] belongs to job.Tasks[i]. IDs are
	// assigned with AssignIDs, so calling it again with the same job after
	// a lost commit acknowledgement does not write a second copy.
	SaveAssignment(ctx context.Context, job *Job, offers []*Offer) error
	GetJob(ctx context.Context, id uuid.UUID) (*JobDetail, error)

	Close() error
}

// AssignIDs gives the job, its tasks and its offers client-side IDs and
// links them together. IDs already set are kept. offers[i] belongs to
// job.Tasks[i].
func AssignIDs(job *Job, offers []*Offer) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	for i := range job.Tasks {
		t := &job.Tasks[i]
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		t.JobID = job.ID
	}
	for i, o := range offers {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		o.JobID = job.ID
		if i < len(job.Tasks) {
			o.TaskID = job.Tasks[i].ID
		}
		if o.Status == "" {
			o.Status = OfferPending
		}
	}
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
