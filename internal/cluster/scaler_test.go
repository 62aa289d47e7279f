package cluster

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	x := [][]float64{
		{1, 100},
		{2, 200},
		{3, 300},
	}

	scaled := (&StandardScaler{}).FitTransform(x)

	// Each column ends up with mean 0 and unit variance.
	for j := 0; j < 2; j++ {
		var sum, sqSum float64
		for i := range scaled {
			sum += scaled[i][j]
		}
		mean := sum / float64(len(scaled))
		for i := range scaled {
			d := scaled[i][j] - mean
			sqSum += d * d
		}
		assert.InDelta(t, 0, mean, 1e-9, "column %d mean", j)
		assert.InDelta(t, 1, math.Sqrt(sqSum/float64(len(scaled))), 1e-9, "column %d stddev", j)
	}

	// Input is left untouched.
	assert.Equal(t, [][]float64{{1, 100}, {2, 200}, {3, 300}}, x)
}

func TestStandardScaler_ZeroVariance(t *testing.T) {
	x := [][]float64{{5, 1}, {5, 2}, {5, 3}}

	s := &StandardScaler{}
	scaled := s.FitTransform(x)

	for i := range scaled {
		assert.Equal(t, 0.0, scaled[i][0], "constant column centers to zero without dividing by zero")
	}
	assert.Equal(t, 1.0, s.Stddevs[0])
}

func TestStandardScaler_Empty(t *testing.T) {
	s := &StandardScaler{}
	s.Fit(nil)
	require.Nil(t, s.Means)
	require.Nil(t, s.Stddevs)
}

func TestReplaceNaN(t *testing.T) {
	x := [][]float64{
		{1, math.NaN(), 3},
		{math.Inf(1), 5, math.Inf(-1)},
	}

	got := ReplaceNaN(x)

	want := [][]float64{{1, 0, 3}, {0, 5, 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReplaceNaN mismatch (-want +got):\n%s", diff)
	}
}
