// Command cluster runs DBSCAN (or k-means) over a station CSV once and
// prints the resulting clusters, without the service, the store, or Kafka.
//
// Usage:
//
//	go run ./cmd/cluster \
//	  -csv data/weather-stations20140101-20141231.csv \
//	  -eps 0.15 -min-samples 10 -features location
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/jonboulle/clockwork"

	"github.com/weatherlab/station-clustering/internal/dataset"
	"github.com/weatherlab/station-clustering/internal/domain"
	"github.com/weatherlab/station-clustering/internal/observability"
	"github.com/weatherlab/station-clustering/internal/pipeline"
)

func main() {
	csvPath := flag.String("csv", "", "path to an Environment Canada monthly station CSV")
	algorithm := flag.String("algorithm", "dbscan", "clustering algorithm: dbscan or kmeans")
	features := flag.String("features", "location", "feature set: location or location_temperature")
	eps := flag.Float64("eps", 0.15, "DBSCAN neighborhood radius in scaled feature space")
	minSamples := flag.Int("min-samples", 10, "DBSCAN minimum neighborhood size")
	k := flag.Int("k", 3, "number of clusters for kmeans")
	asJSON := flag.Bool("json", false, "emit the full result as JSON instead of a table")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*csvPath, *algorithm, *features, *eps, *minSamples, *k, *asJSON); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(csvPath, algorithm, features string, eps float64, minSamples, k int, asJSON bool) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	source := dataset.FileSource{Path: csvPath, Logger: logger}
	p := pipeline.New(source, nil, logger, observability.NewMetricsForTesting(), clockwork.NewRealClock())

	result, err := p.RunOnce(context.Background(), pipeline.Params{
		Algorithm:  algorithm,
		Features:   features,
		Eps:        eps,
		MinSamples: minSamples,
		K:          k,
		Box:        domain.DefaultBoundingBox,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	return nil
}

func printResult(result pipeline.Result) {
	run := result.Run
	fmt.Printf("run %s: %s on %s, %d stations\n", run.ID, run.Algorithm, run.Features, run.Stations)
	fmt.Printf("clusters: %d, noise: %d\n\n", run.Clusters, run.Noise)

	summaries := append([]domain.ClusterSummary(nil), result.Summaries...)
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Label < summaries[j].Label })

	fmt.Printf("%-8s %-6s %-10s %-10s %s\n", "cluster", "size", "lat", "lon", "avg temp")
	for _, s := range summaries {
		temp := "n/a"
		if s.HasMeanTemp {
			temp = fmt.Sprintf("%.1f", s.MeanTemp)
		}
		fmt.Printf("%-8d %-6d %-10.3f %-10.3f %s\n", s.Label, s.Size, s.CentroidLat, s.CentroidLon, temp)
	}
}
