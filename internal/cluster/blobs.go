package cluster

import "math/rand"

// MakeBlobs generates n samples drawn from isotropic Gaussians around the
// given centroids, split evenly across them. Returns the samples and the
// index of the generating centroid for each. Used by tests and the fixture
// generator to produce datasets with known cluster structure.
func MakeBlobs(centroids [][]float64, n int, stddev float64, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, 0, n)
	y := make([]int, 0, n)

	for i := 0; i < n; i++ {
		c := i % len(centroids)
		row := make([]float64, len(centroids[c]))
		for j := range row {
			row[j] = centroids[c][j] + rng.NormFloat64()*stddev
		}
		x = append(x, row)
		y = append(y, c)
	}
	return x, y
}
