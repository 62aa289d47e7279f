// Package pipeline orchestrates clustering runs: extract stations from the
// dataset source, clean and project them, build and scale the feature
// matrix, cluster, summarize, and hand the results to the loaders.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/weatherlab/station-clustering/internal/cluster"
	"github.com/weatherlab/station-clustering/internal/config"
	"github.com/weatherlab/station-clustering/internal/dataset"
	"github.com/weatherlab/station-clustering/internal/domain"
	"github.com/weatherlab/station-clustering/internal/observability"
)

// Algorithm names accepted by runs.
const (
	AlgorithmDBSCAN = "dbscan"
	AlgorithmKMeans = "kmeans"
)

// Params are the knobs of a single clustering run.
type Params struct {
	Algorithm  string
	Features   string
	Eps        float64
	MinSamples int
	K          int // kmeans only
	Box        domain.BoundingBox
}

// DefaultParams derives run parameters from service configuration.
func DefaultParams(cfg *config.Config) Params {
	return Params{
		Algorithm:  cfg.Algorithm,
		Features:   cfg.Features,
		Eps:        cfg.Eps,
		MinSamples: cfg.MinSamples,
		K:          cfg.KMeansK,
		Box:        cfg.BoundingBox,
	}
}

// Validate checks parameter ranges before a run starts.
func (p Params) Validate() error {
	switch p.Algorithm {
	case AlgorithmDBSCAN:
		if p.Eps <= 0 {
			return errors.New("eps must be positive")
		}
		if p.MinSamples < 1 {
			return errors.New("min_samples must be >= 1")
		}
	case AlgorithmKMeans:
		if p.K < 1 {
			return errors.New("k must be >= 1")
		}
	default:
		return fmt.Errorf("unknown algorithm %q", p.Algorithm)
	}
	switch p.Features {
	case FeaturesLocation, FeaturesLocationTemperature:
	default:
		return fmt.Errorf("unknown feature set %q", p.Features)
	}
	return p.Box.Validate()
}

// Result bundles everything a run produces.
type Result struct {
	Run         domain.Run
	Assignments []domain.Assignment
	Summaries   []domain.ClusterSummary
}

// Loader persists or publishes a completed run.
type Loader interface {
	Load(ctx context.Context, result Result) error
}

// Pipeline executes clustering runs one at a time.
type Pipeline struct {
	source  dataset.Source
	loaders []Loader
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	mu    sync.Mutex
	ready atomic.Bool
}

// New creates a Pipeline. Loaders run in order; all must succeed for the run
// to count as loaded.
func New(source dataset.Source, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	return &Pipeline{
		source:  source,
		loaders: loaders,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
	}
}

// CheckReadiness returns nil once at least one run has completed, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no clustering run has completed yet")
	}
	return nil
}

// RunOnce executes a full clustering run with the given parameters. Runs are
// serialized; a second caller blocks until the first finishes.
func (p *Pipeline) RunOnce(ctx context.Context, params Params) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid run params: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	result, err := p.run(ctx, params)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, params Params) (Result, error) {
	runID := uuid.NewString()
	startedAt := p.clock.Now().UTC()

	stations, skipped, err := p.source.Extract(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("extract stations: %w", err)
	}

	unique, duplicates := domain.DedupeStations(stations)
	cleaned, noTemp := domain.CleanStations(unique)
	inBox, outOfBox := domain.FilterBoundingBox(cleaned, params.Box)
	projected := domain.ProjectStations(inBox, params.Box)

	dropped := skipped + duplicates + noTemp + outOfBox
	p.metrics.StationsLoaded.Set(float64(len(projected)))
	p.metrics.StationsDropped.Set(float64(dropped))
	p.logger.Info("stations prepared",
		"run_id", runID,
		"total", len(stations),
		"kept", len(projected),
		"skipped_rows", skipped,
		"duplicates", duplicates,
		"no_mean_temp", noTemp,
		"out_of_box", outOfBox,
	)
	if len(projected) == 0 {
		return Result{}, errors.New("no stations left after cleaning and filtering")
	}

	x, err := Featurize(projected, params.Features)
	if err != nil {
		return Result{}, err
	}
	scaled := (&cluster.StandardScaler{}).FitTransform(x)

	labels, coreIndices, clusters, err := p.cluster(scaled, params)
	if err != nil {
		return Result{}, fmt.Errorf("cluster stations: %w", err)
	}

	noise := 0
	for _, l := range labels {
		if l == cluster.Noise {
			noise++
		}
	}
	p.metrics.ClustersFound.Set(float64(clusters))
	p.metrics.NoiseStations.Set(float64(noise))

	run := domain.Run{
		ID:         runID,
		Algorithm:  params.Algorithm,
		Features:   params.Features,
		Eps:        params.Eps,
		MinSamples: params.MinSamples,
		K:          params.K,
		Stations:   len(projected),
		Clusters:   clusters,
		Noise:      noise,
		StartedAt:  startedAt,
		FinishedAt: p.clock.Now().UTC(),
	}
	result := Result{
		Run:         run,
		Assignments: domain.BuildAssignments(runID, projected, labels, coreIndices),
		Summaries:   domain.Summarize(runID, projected, labels, params.Box),
	}

	for _, loader := range p.loaders {
		if err := loader.Load(ctx, result); err != nil {
			return Result{}, fmt.Errorf("load run %s: %w", runID, err)
		}
	}

	p.logger.Info("clustering run complete",
		"run_id", runID,
		"algorithm", params.Algorithm,
		"features", params.Features,
		"clusters", clusters,
		"noise", noise,
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)
	return result, nil
}

// cluster dispatches to the configured algorithm and normalizes its output
// to (labels, core indices, cluster count).
func (p *Pipeline) cluster(x [][]float64, params Params) ([]int, []int, int, error) {
	switch params.Algorithm {
	case AlgorithmDBSCAN:
		result, err := cluster.DBSCAN{Eps: params.Eps, MinSamples: params.MinSamples}.Fit(x)
		if err != nil {
			return nil, nil, 0, err
		}
		return result.Labels, result.CoreSampleIndices, result.Clusters, nil
	case AlgorithmKMeans:
		result, err := cluster.KMeans{K: params.K, Seed: 1000}.Fit(x)
		if err != nil {
			return nil, nil, 0, err
		}
		return result.Labels, nil, params.K, nil
	default:
		return nil, nil, 0, fmt.Errorf("unknown algorithm %q", params.Algorithm)
	}
}
