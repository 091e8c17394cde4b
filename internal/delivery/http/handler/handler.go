package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/cardscout/internal/delivery/http/request"
	"github.com/user/cardscout/internal/delivery/http/response"
	"github.com/user/cardscout/internal/discovery"
	"github.com/user/cardscout/internal/repository"
	"github.com/user/cardscout/internal/scheduler"
	"github.com/user/cardscout/internal/usecase"
)

// RunTrigger starts discovery runs in the background.
type RunTrigger interface {
	Trigger(siteName string) (string, error)
	Current() (string, bool)
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	inventory usecase.InventoryManager
	runs      RunTrigger
	sites     []*discovery.Site
	checks    map[string]HealthCheck
	logger    *zap.Logger
}

// NewHandler creates the API handler. checks are reported by the health
// endpoint by name; the inventory store is always checked.
func NewHandler(inventory usecase.InventoryManager, runs RunTrigger, sites []*discovery.Site, checks map[string]HealthCheck, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	all := map[string]HealthCheck{"store": inventory.Ping}
	for name, c := range checks {
		all[name] = c
	}
	return &Handler{
		inventory: inventory,
		runs:      runs,
		sites:     sites,
		checks:    all,
		logger:    logger,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) HandleListSites(w http.ResponseWriter, r *http.Request) {
	sites := make([]response.SiteResponse, 0, len(h.sites))
	for _, s := range h.sites {
		def := s.Definition
		strategy := string(def.Strategy.Kind)
		if strategy == "" {
			strategy = "anchors"
		}
		sites = append(sites, response.SiteResponse{
			Name:       def.Name,
			ListingURL: def.ListingURL,
			Fetcher:    def.Fetcher,
			Strategy:   strategy,
			Extracts:   len(def.Attributes.Fields) > 0,
		})
	}
	h.writeJSON(w, http.StatusOK, sites)
}

func (h *Handler) HandleGetInventoryRecord(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeJSONError(w, "URL query parameter is required", http.StatusBadRequest)
		return
	}

	rec, err := h.inventory.Lookup(r.Context(), rawURL)
	switch {
	case errors.Is(err, usecase.ErrInvalidURL):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, repository.ErrNotFound):
		h.writeJSONError(w, "URL is not in the inventory", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("failed to look up inventory record", zap.String("url", rawURL), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FromRecord(rec))
}

func (h *Handler) HandleListSiteInventory(w http.ResponseWriter, r *http.Request) {
	siteName := chi.URLParam(r, "site")
	if !h.knownSite(siteName) {
		h.writeJSONError(w, "Unknown site", http.StatusNotFound)
		return
	}

	records, err := h.inventory.ListBySite(r.Context(), siteName)
	if err != nil {
		h.logger.Error("failed to list site inventory", zap.String("site", siteName), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.InventoryListResponse{Site: siteName, Count: len(records), Records: make([]response.InventoryRecordResponse, 0, len(records))}
	for _, rec := range records {
		resp.Records = append(resp.Records, response.FromRecord(rec))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	var req request.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	runID, err := h.runs.Trigger(req.Site)
	switch {
	case errors.Is(err, scheduler.ErrRunInProgress):
		h.writeJSON(w, http.StatusConflict, response.StartRunResponse{Status: "in_progress", RunID: runID})
		return
	case errors.Is(err, scheduler.ErrUnknownSite):
		h.writeJSONError(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("failed to start discovery run", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.StartRunResponse{Status: "accepted", RunID: runID})
}

func (h *Handler) HandleLatestRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.inventory.LatestRun(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		h.writeJSONError(w, "No discovery run recorded", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to read latest run", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.FromSummary(summary)
	if id, ok := h.runs.Current(); ok {
		resp.InProgress = id
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) knownSite(name string) bool {
	for _, s := range h.sites {
		if s.Name() == name {
			return true
		}
	}
	return false
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
