package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/weatherlab/station-clustering/internal/adapter/http"
	"github.com/weatherlab/station-clustering/internal/domain"
	"github.com/weatherlab/station-clustering/internal/pipeline"
	"github.com/weatherlab/station-clustering/internal/store"
)

// --- stubs ---

type stubReadiness struct {
	err error
}

func (s *stubReadiness) CheckReadiness(_ context.Context) error { return s.err }

type stubRunner struct {
	gotParams pipeline.Params
	result    pipeline.Result
	err       error
}

func (s *stubRunner) RunOnce(_ context.Context, params pipeline.Params) (pipeline.Result, error) {
	s.gotParams = params
	if s.err != nil {
		return pipeline.Result{}, s.err
	}
	return s.result, nil
}

type stubRunStore struct {
	runs      []domain.Run
	run       domain.Run
	summaries []domain.ClusterSummary
	members   []domain.Assignment
	err       error
}

func (s *stubRunStore) ListRuns(_ context.Context, _ int) ([]domain.Run, error) {
	return s.runs, s.err
}

func (s *stubRunStore) GetRun(_ context.Context, _ string) (domain.Run, []domain.ClusterSummary, error) {
	return s.run, s.summaries, s.err
}

func (s *stubRunStore) GetClusterMembers(_ context.Context, _ string, _ int) ([]domain.Assignment, error) {
	return s.members, s.err
}

func newTestServer(ready *stubReadiness, runner *stubRunner, runs *stubRunStore) *httpadapter.Server {
	defaults := pipeline.Params{
		Algorithm:  pipeline.AlgorithmDBSCAN,
		Features:   pipeline.FeaturesLocation,
		Eps:        0.15,
		MinSamples: 10,
		K:          3,
		Box:        domain.DefaultBoundingBox,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", ready, runner, runs, defaults, logger)
}

func doRequest(t *testing.T, srv *httpadapter.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- tests ---

func TestServer_Health(t *testing.T) {
	srv := newTestServer(&stubReadiness{}, &stubRunner{}, &stubRunStore{})

	rec := doRequest(t, srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestServer_Ready(t *testing.T) {
	ready := &stubReadiness{err: errors.New("no clustering run has completed yet")}
	srv := newTestServer(ready, &stubRunner{}, &stubRunStore{})

	rec := doRequest(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", decodeBody(t, rec)["status"])

	ready.err = nil
	rec = doRequest(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody(t, rec)["status"])
}

func TestServer_ListRuns(t *testing.T) {
	runs := &stubRunStore{runs: []domain.Run{
		{ID: "run-2", Algorithm: pipeline.AlgorithmDBSCAN},
		{ID: "run-1", Algorithm: pipeline.AlgorithmKMeans},
	}}
	srv := newTestServer(&stubReadiness{}, &stubRunner{}, runs)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Len(t, body["runs"], 2)
}

func TestServer_ListRuns_BadLimit(t *testing.T) {
	srv := newTestServer(&stubReadiness{}, &stubRunner{}, &stubRunStore{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/runs?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/runs?limit=-3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetRun(t *testing.T) {
	runs := &stubRunStore{
		run: domain.Run{ID: "run-1", Algorithm: pipeline.AlgorithmDBSCAN, Clusters: 2},
		summaries: []domain.ClusterSummary{
			{RunID: "run-1", Label: 0, Size: 12},
			{RunID: "run-1", Label: 1, Size: 8},
		},
	}
	srv := newTestServer(&stubReadiness{}, &stubRunner{}, runs)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/runs/run-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "run-1", body["run"].(map[string]any)["id"])
	require.Len(t, body["clusters"], 2)
}

func TestServer_GetRun_NotFound(t *testing.T) {
	runs := &stubRunStore{err: store.ErrNotFound}
	srv := newTestServer(&stubReadiness{}, &stubRunner{}, runs)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/runs/no-such-run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetCluster(t *testing.T) {
	runs := &stubRunStore{members: []domain.Assignment{
		{RunID: "run-1", StationID: "stn-aaaa", Name: "CHEMAINUS", Label: 0, Core: true},
	}}
	srv := newTestServer(&stubReadiness{}, &stubRunner{}, runs)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/runs/run-1/clusters/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody(t, rec)["stations"], 1)

	// Noise stations live under label -1.
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/runs/run-1/clusters/-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_GetCluster_BadLabel(t *testing.T) {
	srv := newTestServer(&stubReadiness{}, &stubRunner{}, &stubRunStore{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/runs/run-1/clusters/west", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateRun_Defaults(t *testing.T) {
	runner := &stubRunner{result: pipeline.Result{
		Run: domain.Run{ID: "run-1", Algorithm: pipeline.AlgorithmDBSCAN, StartedAt: time.Now()},
	}}
	srv := newTestServer(&stubReadiness{}, runner, &stubRunStore{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/runs", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, pipeline.AlgorithmDBSCAN, runner.gotParams.Algorithm)
	assert.Equal(t, 0.15, runner.gotParams.Eps)
	assert.Equal(t, 10, runner.gotParams.MinSamples)
	assert.Equal(t, domain.DefaultBoundingBox, runner.gotParams.Box)
}

func TestServer_CreateRun_Overrides(t *testing.T) {
	runner := &stubRunner{result: pipeline.Result{Run: domain.Run{ID: "run-1"}}}
	srv := newTestServer(&stubReadiness{}, runner, &stubRunStore{})

	body := `{
		"algorithm": "kmeans",
		"features": "location_temperature",
		"eps": 0.3,
		"min_samples": 5,
		"k": 4,
		"bbox": {"min_lon": -130, "max_lon": -60, "min_lat": 45, "max_lat": 60}
	}`
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/runs", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, pipeline.AlgorithmKMeans, runner.gotParams.Algorithm)
	assert.Equal(t, pipeline.FeaturesLocationTemperature, runner.gotParams.Features)
	assert.Equal(t, 0.3, runner.gotParams.Eps)
	assert.Equal(t, 5, runner.gotParams.MinSamples)
	assert.Equal(t, 4, runner.gotParams.K)
	assert.Equal(t, domain.BoundingBox{MinLon: -130, MaxLon: -60, MinLat: 45, MaxLat: 60}, runner.gotParams.Box)
}

func TestServer_CreateRun_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad json", body: `{`},
		{name: "unknown algorithm", body: `{"algorithm": "optics"}`},
		{name: "non-positive eps", body: `{"eps": 0}`},
		{name: "min_samples below one", body: `{"min_samples": 0}`},
		{name: "inverted bbox", body: `{"bbox": {"min_lon": -60, "max_lon": -130, "min_lat": 45, "max_lat": 60}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{}
			srv := newTestServer(&stubReadiness{}, runner, &stubRunStore{})

			rec := doRequest(t, srv, http.MethodPost, "/api/v1/runs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, runner.gotParams.Algorithm, "runner must not be called")
		})
	}
}

func TestServer_CreateRun_RunnerError(t *testing.T) {
	runner := &stubRunner{err: errors.New("extract stations: connection refused")}
	srv := newTestServer(&stubReadiness{}, runner, &stubRunStore{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/runs", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
