package cluster

import (
	"fmt"
	"math"
	"math/rand"
)

// KMeansResult holds the labeling and centroids produced by KMeans.
type KMeansResult struct {
	Labels    []int
	Centroids [][]float64
	Inertia   float64 // sum of squared distances to the nearest centroid
}

// KMeans is a partitional clusterer kept alongside DBSCAN for comparison
// runs: it forces every sample into one of K spherical clusters and has no
// noise concept.
type KMeans struct {
	K       int
	NInit   int   // independent initializations; best inertia wins (default 12)
	MaxIter int   // Lloyd iterations per initialization (default 300)
	Seed    int64 // RNG seed for k-means++ initialization
}

// Fit clusters the matrix with k-means++ initialization and Lloyd iteration,
// repeated NInit times, keeping the run with the lowest inertia.
func (k KMeans) Fit(x [][]float64) (KMeansResult, error) {
	if k.K < 1 {
		return KMeansResult{}, fmt.Errorf("kmeans: k must be >= 1, got %d", k.K)
	}
	if len(x) < k.K {
		return KMeansResult{}, fmt.Errorf("kmeans: %d samples for k=%d", len(x), k.K)
	}
	nInit := k.NInit
	if nInit < 1 {
		nInit = 12
	}
	maxIter := k.MaxIter
	if maxIter < 1 {
		maxIter = 300
	}

	rng := rand.New(rand.NewSource(k.Seed))

	best := KMeansResult{Inertia: math.Inf(1)}
	for run := 0; run < nInit; run++ {
		result := lloyd(x, seedPlusPlus(x, k.K, rng), maxIter)
		if result.Inertia < best.Inertia {
			best = result
		}
	}
	return best, nil
}

// seedPlusPlus picks initial centroids with the k-means++ scheme: the first
// uniformly, each subsequent one with probability proportional to squared
// distance from the nearest centroid chosen so far.
func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), x[rng.Intn(len(x))]...))

	dists := make([]float64, len(x))
	for len(centroids) < k {
		var total float64
		for i := range x {
			d := math.Inf(1)
			for _, c := range centroids {
				if dd := sqDist(x[i], c); dd < d {
					d = dd
				}
			}
			dists[i] = d
			total += d
		}

		target := rng.Float64() * total
		idx := len(x) - 1
		var cum float64
		for i, d := range dists {
			cum += d
			if cum >= target {
				idx = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), x[idx]...))
	}
	return centroids
}

// lloyd runs standard k-means iterations until assignments stabilize or
// maxIter is reached.
func lloyd(x [][]float64, centroids [][]float64, maxIter int) KMeansResult {
	k := len(centroids)
	dim := len(x[0])
	labels := make([]int, len(x))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := range x {
			bestLabel, bestDist := 0, math.Inf(1)
			for c := range centroids {
				if d := sqDist(x[i], centroids[c]); d < bestDist {
					bestLabel, bestDist = c, d
				}
			}
			if labels[i] != bestLabel {
				labels[i] = bestLabel
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i := range x {
			c := labels[i]
			counts[c]++
			for j := range x[i] {
				sums[c][j] += x[i][j]
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue // empty cluster keeps its old centroid
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	var inertia float64
	for i := range x {
		inertia += sqDist(x[i], centroids[labels[i]])
	}
	return KMeansResult{Labels: labels, Centroids: centroids, Inertia: inertia}
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
