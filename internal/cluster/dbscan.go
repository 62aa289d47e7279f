package cluster

import "fmt"

// Noise is the label assigned to samples that belong to no cluster.
const Noise = -1

// DBSCANResult holds the labeling produced by DBSCAN. Labels are cluster
// numbers starting at 0 in discovery order, or Noise (-1). CoreSampleIndices
// lists the rows whose eps-neighborhood (including the row itself) contains
// at least MinSamples rows.
type DBSCANResult struct {
	Labels            []int
	CoreSampleIndices []int
	Clusters          int // number of clusters, noise excluded
}

// DBSCAN is a density-based clusterer: it finds core samples of high density
// and expands clusters from them, labeling sparse-region samples as noise.
type DBSCAN struct {
	Eps        float64
	MinSamples int
	Metric     Metric // defaults to Euclidean
}

// Fit clusters the matrix and returns per-row labels. The implementation is
// the textbook algorithm with an exact O(n²) neighborhood query, which is
// comfortably fast for station datasets (a few thousand rows).
func (d DBSCAN) Fit(x [][]float64) (DBSCANResult, error) {
	if d.Eps <= 0 {
		return DBSCANResult{}, fmt.Errorf("dbscan: eps must be positive, got %g", d.Eps)
	}
	if d.MinSamples < 1 {
		return DBSCANResult{}, fmt.Errorf("dbscan: min samples must be >= 1, got %d", d.MinSamples)
	}
	metric := d.Metric
	if metric == nil {
		metric = Euclidean
	}

	n := len(x)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unclassified
	}

	// Precompute neighborhoods. A sample counts as its own neighbor, matching
	// the convention that MinSamples includes the point itself.
	neighborhoods := make([][]int, n)
	var core []int
	for i := 0; i < n; i++ {
		neighborhoods[i] = regionQuery(x, i, d.Eps, metric)
		if len(neighborhoods[i]) >= d.MinSamples {
			core = append(core, i)
		}
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != unclassified {
			continue
		}
		if len(neighborhoods[i]) < d.MinSamples {
			labels[i] = Noise
			continue
		}
		expandCluster(labels, neighborhoods, i, clusterID, d.MinSamples)
		clusterID++
	}

	return DBSCANResult{
		Labels:            labels,
		CoreSampleIndices: core,
		Clusters:          clusterID,
	}, nil
}

// unclassified marks rows not yet visited. It never escapes Fit.
const unclassified = -2

// expandCluster flood-fills a cluster from a core sample. Border samples
// (density-reachable but not core) join the cluster without extending it.
func expandCluster(labels []int, neighborhoods [][]int, start, clusterID, minSamples int) {
	labels[start] = clusterID

	queue := append([]int(nil), neighborhoods[start]...)
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]

		if labels[j] == Noise {
			// Previously noise, reachable from a core sample: border point.
			labels[j] = clusterID
			continue
		}
		if labels[j] != unclassified {
			continue
		}
		labels[j] = clusterID
		if len(neighborhoods[j]) >= minSamples {
			queue = append(queue, neighborhoods[j]...)
		}
	}
}

// regionQuery returns the indices of all rows within eps of row i, i included.
func regionQuery(x [][]float64, i int, eps float64, metric Metric) []int {
	var neighbors []int
	for j := range x {
		if metric(x[i], x[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
