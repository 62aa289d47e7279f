package domain

import (
	"fmt"
	"math"
)

// earthRadiusM is the WGS-84 equatorial radius used by the spherical
// Mercator projection.
const earthRadiusM = 6378137.0

// BoundingBox is a lat/lon rectangle. MinLon/MinLat is the lower-left
// corner, which also anchors the Mercator projection.
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// DefaultBoundingBox covers the Canadian station dataset: longitude
// -140..-50, latitude 40..65.
var DefaultBoundingBox = BoundingBox{MinLon: -140, MaxLon: -50, MinLat: 40, MaxLat: 65}

// Validate reports whether the box is well-formed and usable as a Mercator
// anchor.
func (b BoundingBox) Validate() error {
	if b.MinLon >= b.MaxLon {
		return fmt.Errorf("bounding box: min_lon %g >= max_lon %g", b.MinLon, b.MaxLon)
	}
	if b.MinLat >= b.MaxLat {
		return fmt.Errorf("bounding box: min_lat %g >= max_lat %g", b.MinLat, b.MaxLat)
	}
	if b.MinLat < -85 || b.MaxLat > 85 {
		return fmt.Errorf("bounding box: latitude outside Mercator range [-85, 85]")
	}
	return nil
}

// Contains reports whether the station lies strictly inside the box.
func (b BoundingBox) Contains(s Station) bool {
	return s.Lon > b.MinLon && s.Lon < b.MaxLon && s.Lat > b.MinLat && s.Lat < b.MaxLat
}

// CleanStations drops stations without a mean temperature. Stations that
// never report Tm carry no signal for temperature-based clustering and are
// excluded up front, mirroring the dataset's documented cleaning step.
// Returns the kept stations and the number dropped.
func CleanStations(stations []Station) ([]Station, int) {
	kept := make([]Station, 0, len(stations))
	for _, s := range stations {
		if s.MeanTemp == nil {
			continue
		}
		kept = append(kept, s)
	}
	return kept, len(stations) - len(kept)
}

// DedupeStations drops stations whose ID was already seen, keeping the first
// occurrence. Monthly files can repeat a station across rows; repeated rows
// share an ID and would collide downstream. Returns the kept stations and
// the number dropped.
func DedupeStations(stations []Station) ([]Station, int) {
	seen := make(map[string]bool, len(stations))
	kept := make([]Station, 0, len(stations))
	for _, s := range stations {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		kept = append(kept, s)
	}
	return kept, len(stations) - len(kept)
}

// FilterBoundingBox keeps only stations inside the box. Returns the kept
// stations and the number dropped.
func FilterBoundingBox(stations []Station, box BoundingBox) ([]Station, int) {
	kept := make([]Station, 0, len(stations))
	for _, s := range stations {
		if box.Contains(s) {
			kept = append(kept, s)
		}
	}
	return kept, len(stations) - len(kept)
}

// ProjectStations fills each station's XM/YM with spherical Mercator
// coordinates in meters, anchored at the box's lower-left corner so that
// the lower-left station projects near (0, 0).
func ProjectStations(stations []Station, box BoundingBox) []Station {
	out := make([]Station, len(stations))
	for i, s := range stations {
		s.XM, s.YM = box.Project(s.Lat, s.Lon)
		out[i] = s
	}
	return out
}

// Project maps a lat/lon pair to Mercator meters relative to the box's
// lower-left corner.
func (b BoundingBox) Project(lat, lon float64) (x, y float64) {
	x = earthRadiusM * (lon - b.MinLon) * math.Pi / 180
	y = earthRadiusM * (mercatorY(lat) - mercatorY(b.MinLat))
	return x, y
}

// Unproject inverts Project, mapping Mercator meters back to lat/lon.
// Used to report cluster centroids in degrees.
func (b BoundingBox) Unproject(x, y float64) (lat, lon float64) {
	lon = b.MinLon + x/earthRadiusM*180/math.Pi
	yRad := y/earthRadiusM + mercatorY(b.MinLat)
	lat = (2*math.Atan(math.Exp(yRad)) - math.Pi/2) * 180 / math.Pi
	return lat, lon
}

// mercatorY is the Mercator ordinate for a latitude in degrees.
func mercatorY(lat float64) float64 {
	rad := lat * math.Pi / 180
	return math.Log(math.Tan(math.Pi/4 + rad/2))
}
