package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/weatherlab/station-clustering/internal/domain"
	"github.com/weatherlab/station-clustering/internal/observability"
)

// ErrCircuitOpen is returned when the fetch circuit breaker refuses calls.
var ErrCircuitOpen = errors.New("dataset fetch circuit open")

// Fetcher downloads a station CSV over HTTP. Repeated upstream failures trip
// a circuit breaker so scheduled runs fail fast instead of hammering a dead
// source.
type Fetcher struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFetcher creates a Fetcher for the given URL.
func NewFetcher(url string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	f := &Fetcher{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: metrics,
	}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "dataset-fetch",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("fetch circuit state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.FetchBreakerState.Set(breakerStateValue(to))
		},
	})
	return f
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

// Fetch downloads and parses the dataset.
func (f *Fetcher) Fetch(ctx context.Context) (ReadResult, error) {
	start := time.Now()
	result, err := f.breaker.Execute(func() (any, error) {
		return f.fetchOnce(ctx)
	})
	if err != nil {
		f.metrics.FetchRequests.WithLabelValues("error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ReadResult{}, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return ReadResult{}, err
	}
	f.metrics.FetchRequests.WithLabelValues("success").Inc()
	f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	return result.(ReadResult), nil
}

func (f *Fetcher) fetchOnce(ctx context.Context) (ReadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return ReadResult{}, fmt.Errorf("build dataset request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return ReadResult{}, fmt.Errorf("fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ReadResult{}, fmt.Errorf("fetch dataset: unexpected status %d", resp.StatusCode)
	}

	result, err := Read(resp.Body, f.logger)
	if err != nil {
		return ReadResult{}, err
	}
	return result, nil
}

// Source yields the stations a clustering run starts from.
type Source interface {
	Extract(ctx context.Context) ([]domain.Station, int, error)
}

// FileSource reads stations from a local CSV path on every extract.
type FileSource struct {
	Path   string
	Logger *slog.Logger
}

func (s FileSource) Extract(_ context.Context) ([]domain.Station, int, error) {
	result, err := ReadFile(s.Path, s.Logger)
	if err != nil {
		return nil, 0, err
	}
	return result.Stations, result.Skipped, nil
}

// URLSource downloads stations through a circuit-broken fetcher.
type URLSource struct {
	Fetcher *Fetcher
}

func (s URLSource) Extract(ctx context.Context) ([]domain.Station, int, error) {
	result, err := s.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, 0, err
	}
	return result.Stations, result.Skipped, nil
}
