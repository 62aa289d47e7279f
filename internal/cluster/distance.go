package cluster

import (
	"math"

	"github.com/umahmood/haversine"
)

// Metric computes the distance between two feature vectors.
type Metric func(a, b []float64) float64

// Euclidean is the straight-line distance in feature space. The default
// metric for scaled feature matrices.
func Euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Haversine treats rows as [lat, lon] in degrees and returns the great-circle
// distance in kilometers. Use with an eps in kilometers on unscaled
// coordinates when clustering stations geographically without projection.
func Haversine(a, b []float64) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a[0], Lon: a[1]},
		haversine.Coord{Lat: b[0], Lon: b[1]},
	)
	return km
}
