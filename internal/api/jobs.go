package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/CrewMatch/internal/broker"
	"github.com/MikeSquared-Agency/CrewMatch/internal/matching"
	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

const maxBodyBytes = 1 << 20

// Optimiser is the slice of the broker the HTTP layer drives.
type Optimiser interface {
	Optimise(ctx context.Context, job *store.Job) (*broker.Outcome, error)
	Preview(ctx context.Context, job *store.Job) (*broker.Outcome, error)
}

type JobsHandler struct {
	optimiser Optimiser
	store     store.Store
	logger    *slog.Logger
}

func NewJobsHandler(o Optimiser, s store.Store, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{optimiser: o, store: s, logger: logger}
}

type JobRequest struct {
	Title       string        `json:"title"`
	Lat         float64       `json:"lat"`
	Lng         float64       `json:"lng"`
	Urgency     string        `json:"urgency"`
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	BudgetMax   *float64      `json:"budget_max"`
	Tasks       []TaskRequest `json:"tasks"`
}

type TaskRequest struct {
	Name      string  `json:"name"`
	Skill     string  `json:"skill"`
	DurationH float64 `json:"duration_h"`
	OrderIdx  int     `json:"order_idx"`
}

func (req *JobRequest) toJob() *store.Job {
	job := &store.Job{
		Title:       req.Title,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Urgency:     store.Urgency(req.Urgency),
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
		BudgetMax:   req.BudgetMax,
		Tasks:       make([]store.Task, len(req.Tasks)),
	}
	for i, t := range req.Tasks {
		job.Tasks[i] = store.Task{Name: t.Name, Skill: t.Skill, DurationH: t.DurationH, OrderIdx: t.OrderIdx}
	}
	return job
}

type OptimiseResponse struct {
	Status  matching.Status                 `json:"status"`
	JobID   string                          `json:"job_id,omitempty"`
	Picks   map[string]*store.Worker        `json:"picks"`
	Backups map[string][]*store.Worker      `json:"backups"`
	Reasons map[string][]matching.Reason    `json:"reasons"`
	Explain map[string][]matching.Candidate `json:"explain,omitempty"`
}

type NoMatchResponse struct {
	Status  matching.Status                 `json:"status"`
	Task    string                          `json:"task"`
	Explain map[string][]matching.Candidate `json:"explain,omitempty"`
}

func (h *JobsHandler) Optimise(w http.ResponseWriter, r *http.Request) {
	job, ok := h.decodeJob(w, r)
	if !ok {
		return
	}
	out, err := h.optimiser.Optimise(r.Context(), job)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !out.Matched() {
		writeJSON(w, http.StatusOK, NoMatchResponse{Status: matching.StatusNoMatch, Task: out.Result.FailedTask})
		return
	}
	resp := successResponse(out.Result)
	resp.JobID = out.Job.ID.String()
	writeJSON(w, http.StatusOK, resp)
}

// Preview answers the same question as Optimise without persisting, and adds
// the priced breakdown of every feasible worker per task.
func (h *JobsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	job, ok := h.decodeJob(w, r)
	if !ok {
		return
	}
	out, err := h.optimiser.Preview(r.Context(), job)
	if err != nil {
		h.writeError(w, err)
		return
	}
	explain := make(map[string][]matching.Candidate, len(out.Result.Assignments))
	for _, a := range out.Result.Assignments {
		ranked := a.Ranked
		if ranked == nil {
			ranked = []matching.Candidate{}
		}
		explain[a.Task.Name] = ranked
	}
	if !out.Matched() {
		writeJSON(w, http.StatusOK, NoMatchResponse{Status: matching.StatusNoMatch, Task: out.Result.FailedTask, Explain: explain})
		return
	}
	resp := successResponse(out.Result)
	resp.Explain = explain
	writeJSON(w, http.StatusOK, resp)
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid job id"})
		return
	}
	detail, err := h.store.GetJob(r.Context(), id)
	if errors.Is(err, store.ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if err != nil {
		h.logger.Error("get job failed", "job_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load job"})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *JobsHandler) decodeJob(w http.ResponseWriter, r *http.Request) (*store.Job, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	problems, err := checkSchema(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, validationBody(&store.ValidationError{Problems: problems}))
		return nil, false
	}
	var req JobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	return req.toJob(), true
}

func (h *JobsHandler) writeError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, validationBody(verr))
		return
	}
	h.logger.Error("job request failed", "error", err)
	msg := "internal error"
	var dae *broker.DataAccessError
	if errors.As(err, &dae) {
		msg = "data access failure: " + dae.Op
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

func validationBody(verr *store.ValidationError) map[string]interface{} {
	return map[string]interface{}{"error": verr.Error(), "problems": verr.Problems}
}

func successResponse(res *matching.Result) OptimiseResponse {
	return OptimiseResponse{
		Status:  matching.StatusOK,
		Picks:   res.Picks(),
		Backups: res.Backups(),
		Reasons: res.Reasons(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
