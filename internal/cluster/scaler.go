// Package cluster implements density-based and partitional clustering over
// plain feature matrices. A matrix is a [][]float64 with one row per sample;
// callers are responsible for building rows (see the pipeline package) and
// for replacing NaNs before scaling.
package cluster

import "math"

// StandardScaler standardizes features by removing the mean and scaling to
// unit variance, column by column. Zero-variance columns are passed through
// unscaled to avoid division by zero.
type StandardScaler struct {
	Means   []float64
	Stddevs []float64
}

// Fit computes per-column mean and population standard deviation.
func (s *StandardScaler) Fit(x [][]float64) {
	if len(x) == 0 {
		s.Means, s.Stddevs = nil, nil
		return
	}
	cols := len(x[0])
	s.Means = make([]float64, cols)
	s.Stddevs = make([]float64, cols)

	for j := 0; j < cols; j++ {
		var sum float64
		for i := range x {
			sum += x[i][j]
		}
		mean := sum / float64(len(x))

		var sqSum float64
		for i := range x {
			d := x[i][j] - mean
			sqSum += d * d
		}
		std := math.Sqrt(sqSum / float64(len(x)))
		if std == 0 {
			std = 1
		}

		s.Means[j] = mean
		s.Stddevs[j] = std
	}
}

// Transform returns a new matrix with each column centered and scaled using
// the fitted parameters.
func (s *StandardScaler) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i := range x {
		row := make([]float64, len(x[i]))
		for j := range x[i] {
			row[j] = (x[i][j] - s.Means[j]) / s.Stddevs[j]
		}
		out[i] = row
	}
	return out
}

// FitTransform fits the scaler and transforms the matrix in one call.
func (s *StandardScaler) FitTransform(x [][]float64) [][]float64 {
	s.Fit(x)
	return s.Transform(x)
}

// ReplaceNaN substitutes zeros for NaN and infinite entries in place and
// returns the matrix. Missing measurements enter the feature matrix as NaN;
// clustering needs finite values everywhere.
func ReplaceNaN(x [][]float64) [][]float64 {
	for i := range x {
		for j := range x[i] {
			v := x[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				x[i][j] = 0
			}
		}
	}
	return x
}
