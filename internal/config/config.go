package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/weatherlab/station-clustering/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatasetPath  string
	DatasetURL   string
	FetchTimeout time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	SQLitePath string

	// Kafka publishing is enabled when brokers are set.
	KafkaBrokers   []string
	KafkaSinkTopic string

	// Default clustering parameters for scheduled and CLI runs.
	Algorithm   string
	Features    string
	Eps         float64
	MinSamples  int
	KMeansK     int
	BoundingBox domain.BoundingBox

	// ScheduleInterval of 0 disables periodic re-clustering.
	ScheduleInterval time.Duration
}

// KafkaEnabled reports whether assignment publishing is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	scheduleInterval, err := parseDuration("SCHEDULE_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}

	eps, err := parseFloat("CLUSTER_EPS", 0.15)
	if err != nil {
		return nil, err
	}
	minSamples, err := parseInt("CLUSTER_MIN_SAMPLES", 10)
	if err != nil {
		return nil, err
	}
	kmeansK, err := parseInt("KMEANS_K", 3)
	if err != nil {
		return nil, err
	}
	box, err := parseBoundingBox()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatasetPath:  os.Getenv("DATASET_PATH"),
		DatasetURL:   os.Getenv("DATASET_URL"),
		FetchTimeout: fetchTimeout,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SQLitePath: envOrDefault("SQLITE_PATH", "data/clusters.db"),

		KafkaBrokers:   parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "station-cluster-assignments"),

		Algorithm:   envOrDefault("CLUSTER_ALGORITHM", "dbscan"),
		Features:    envOrDefault("CLUSTER_FEATURES", "location"),
		Eps:         eps,
		MinSamples:  minSamples,
		KMeansK:     kmeansK,
		BoundingBox: box,

		ScheduleInterval: scheduleInterval,
	}

	if cfg.DatasetPath == "" && cfg.DatasetURL == "" {
		return nil, errors.New("one of DATASET_PATH or DATASET_URL is required")
	}
	if cfg.DatasetPath != "" && cfg.DatasetURL != "" {
		return nil, errors.New("DATASET_PATH and DATASET_URL are mutually exclusive")
	}
	switch cfg.Algorithm {
	case "dbscan", "kmeans":
	default:
		return nil, fmt.Errorf("invalid CLUSTER_ALGORITHM %q", cfg.Algorithm)
	}
	switch cfg.Features {
	case "location", "location_temperature":
	default:
		return nil, fmt.Errorf("invalid CLUSTER_FEATURES %q", cfg.Features)
	}
	if cfg.Eps <= 0 {
		return nil, errors.New("CLUSTER_EPS must be positive")
	}
	if cfg.MinSamples < 1 {
		return nil, errors.New("CLUSTER_MIN_SAMPLES must be >= 1")
	}
	if err := cfg.BoundingBox.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

// parseBoundingBox reads BBOX as "minLon,minLat,maxLon,maxLat", defaulting to
// the Canadian station box.
func parseBoundingBox() (domain.BoundingBox, error) {
	s := os.Getenv("BBOX")
	if s == "" {
		return domain.DefaultBoundingBox, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.BoundingBox{}, errors.New("invalid BBOX: want minLon,minLat,maxLon,maxLat")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.BoundingBox{}, fmt.Errorf("invalid BBOX component %q", p)
		}
		vals[i] = v
	}
	return domain.BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}
