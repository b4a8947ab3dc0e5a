package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

// RosterInvalidator drops any cached roster snapshot.
type RosterInvalidator interface {
	Invalidate(ctx context.Context) error
}

type AdminHandler struct {
	roster store.RosterSource
	cache  RosterInvalidator
	logger *slog.Logger
}

// NewAdminHandler serves operator endpoints. cache may be nil when no roster
// cache is configured.
func NewAdminHandler(roster store.RosterSource, cache RosterInvalidator, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{roster: roster, cache: cache, logger: logger}
}

type WorkersResponse struct {
	Count   int            `json:"count"`
	Workers []store.Worker `json:"workers"`
}

func (h *AdminHandler) Workers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.roster.ListWorkers(r.Context())
	if err != nil {
		h.logger.Error("list workers failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list workers"})
		return
	}
	if workers == nil {
		workers = []store.Worker{}
	}
	writeJSON(w, http.StatusOK, WorkersResponse{Count: len(workers), Workers: workers})
}

func (h *AdminHandler) RefreshRoster(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no cache configured"})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("roster cache invalidate failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
