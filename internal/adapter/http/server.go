// Package http exposes the service's ops endpoints and the clustering API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weatherlab/station-clustering/internal/domain"
	"github.com/weatherlab/station-clustering/internal/pipeline"
	"github.com/weatherlab/station-clustering/internal/store"
)

var validate = validator.New()

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Runner executes a clustering run on demand.
type Runner interface {
	RunOnce(ctx context.Context, params pipeline.Params) (pipeline.Result, error)
}

// RunStore reads persisted runs.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	GetRun(ctx context.Context, id string) (domain.Run, []domain.ClusterSummary, error)
	GetClusterMembers(ctx context.Context, runID string, label int) ([]domain.Assignment, error)
}

// Server exposes health, readiness, metrics, and run query/trigger endpoints.
type Server struct {
	httpServer *http.Server
	runner     Runner
	runs       RunStore
	defaults   pipeline.Params
	logger     *slog.Logger
}

// NewServer creates the HTTP server. defaults fill unset fields of POSTed
// run requests.
func NewServer(addr string, ready ReadinessChecker, runner Runner, runs RunStore, defaults pipeline.Params, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second, // POST /runs clusters synchronously
			IdleTimeout:  60 * time.Second,
		},
		runner:   runner,
		runs:     runs,
		defaults: defaults,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/clusters/{label}", s.handleGetCluster)
	mux.HandleFunc("POST /api/v1/runs", s.handleCreateRun)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, summaries, err := s.runs.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("get run failed", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run, "clusters": summaries})
}

func (s *Server) handleGetCluster(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	label, err := strconv.Atoi(r.PathValue("label"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cluster label must be an integer")
		return
	}

	members, err := s.runs.GetClusterMembers(r.Context(), id, label)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "cluster not found")
		return
	}
	if err != nil {
		s.logger.Error("get cluster failed", "run_id", id, "label", label, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get cluster")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": members})
}

// runRequest is the POST /api/v1/runs body. Unset fields fall back to the
// service defaults.
type runRequest struct {
	Algorithm  string   `json:"algorithm" validate:"omitempty,oneof=dbscan kmeans"`
	Features   string   `json:"features" validate:"omitempty,oneof=location location_temperature"`
	Eps        *float64 `json:"eps" validate:"omitempty,gt=0"`
	MinSamples *int     `json:"min_samples" validate:"omitempty,min=1"`
	K          *int     `json:"k" validate:"omitempty,min=1"`
	BBox       *bbox    `json:"bbox"`
}

type bbox struct {
	MinLon float64 `json:"min_lon" validate:"gte=-180,lte=180"`
	MaxLon float64 `json:"max_lon" validate:"gte=-180,lte=180,gtfield=MinLon"`
	MinLat float64 `json:"min_lat" validate:"gte=-85,lte=85"`
	MaxLat float64 `json:"max_lat" validate:"gte=-85,lte=85,gtfield=MinLat"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := s.defaults
	if req.Algorithm != "" {
		params.Algorithm = req.Algorithm
	}
	if req.Features != "" {
		params.Features = req.Features
	}
	if req.Eps != nil {
		params.Eps = *req.Eps
	}
	if req.MinSamples != nil {
		params.MinSamples = *req.MinSamples
	}
	if req.K != nil {
		params.K = *req.K
	}
	if req.BBox != nil {
		params.Box = domain.BoundingBox{
			MinLon: req.BBox.MinLon, MaxLon: req.BBox.MaxLon,
			MinLat: req.BBox.MinLat, MaxLat: req.BBox.MaxLat,
		}
	}

	result, err := s.runner.RunOnce(r.Context(), params)
	if err != nil {
		s.logger.Error("on-demand run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "clustering run failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"run": result.Run, "clusters": result.Summaries})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
