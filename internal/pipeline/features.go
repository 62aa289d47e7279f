package pipeline

import (
	"fmt"
	"math"

	"github.com/weatherlab/station-clustering/internal/cluster"
	"github.com/weatherlab/station-clustering/internal/domain"
)

// Feature set names accepted by runs.
const (
	FeaturesLocation            = "location"             // [xm, ym]
	FeaturesLocationTemperature = "location_temperature" // [xm, ym, Tx, Tm, Tn]
)

// Featurize builds the feature matrix for the given set. Stations must
// already be projected. Missing temperature measurements enter as NaN and
// are zeroed before scaling, matching the dataset's documented treatment of
// unreported values.
func Featurize(stations []domain.Station, features string) ([][]float64, error) {
	x := make([][]float64, len(stations))
	switch features {
	case FeaturesLocation:
		for i, s := range stations {
			x[i] = []float64{s.XM, s.YM}
		}
	case FeaturesLocationTemperature:
		for i, s := range stations {
			x[i] = []float64{s.XM, s.YM, orNaN(s.MaxTemp), orNaN(s.MeanTemp), orNaN(s.MinTemp)}
		}
	default:
		return nil, fmt.Errorf("unknown feature set %q", features)
	}
	return cluster.ReplaceNaN(x), nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
