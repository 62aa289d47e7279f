package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StationRecord is one raw CSV row, keyed by the Environment Canada header
// names. Fields are kept as strings; parsing happens in ParseStationRecord.
type StationRecord struct {
	StnName string `json:"Stn_Name"`
	Lat     string `json:"Lat"`
	Long    string `json:"Long"`
	Prov    string `json:"Prov"`
	Tm      string `json:"Tm"`
	Tx      string `json:"Tx"`
	Tn      string `json:"Tn"`
	P       string `json:"P"`
	HDD     string `json:"HDD"`
	CDD     string `json:"CDD"`
	StnNo   string `json:"Stn_No"`
}

// Station is the typed representation of a weather station with its monthly
// measurements. Optional measurements are pointers; nil means the source
// reported "NA".
type Station struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Province string  `json:"province,omitempty"`
	StnNo    string  `json:"stn_no,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`

	MeanTemp  *float64 `json:"mean_temp,omitempty"`  // Tm
	MaxTemp   *float64 `json:"max_temp,omitempty"`   // Tx
	MinTemp   *float64 `json:"min_temp,omitempty"`   // Tn
	Precip    *float64 `json:"precip,omitempty"`     // P
	HeatingDD *float64 `json:"heating_dd,omitempty"` // HDD
	CoolingDD *float64 `json:"cooling_dd,omitempty"` // CDD

	XM float64 `json:"xm"` // projected x, meters
	YM float64 `json:"ym"` // projected y, meters

	IngestedAt time.Time `json:"ingested_at,omitempty"`
}

// Assignment is one station's cluster membership within a run.
type Assignment struct {
	RunID     string  `json:"run_id"`
	StationID string  `json:"station_id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Label     int     `json:"label"` // -1 = noise
	Core      bool    `json:"core"`
}

// ClusterSummary aggregates one cluster of a run: member count, centroid,
// and the average of the members' reported mean temperatures.
type ClusterSummary struct {
	RunID       string  `json:"run_id"`
	Label       int     `json:"label"`
	Size        int     `json:"size"`
	CentroidLat float64 `json:"centroid_lat"`
	CentroidLon float64 `json:"centroid_lon"`
	MeanTemp    float64 `json:"mean_temp"`
	HasMeanTemp bool    `json:"has_mean_temp"`
}

// Run records one clustering execution and its outcome counts.
type Run struct {
	ID         string    `json:"id"`
	Algorithm  string    `json:"algorithm"` // "dbscan" or "kmeans"
	Features   string    `json:"features"`  // "location" or "location_temperature"
	Eps        float64   `json:"eps"`
	MinSamples int       `json:"min_samples"`
	K          int       `json:"k,omitempty"`
	Stations   int       `json:"stations"`
	Clusters   int       `json:"clusters"` // excludes noise
	Noise      int       `json:"noise"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ParseStationRecord converts a raw CSV row into a Station. A row is rejected
// only when its coordinates are absent or unparseable; missing measurements
// become nil pointers.
func ParseStationRecord(rec StationRecord) (Station, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(rec.Lat), 64)
	if err != nil {
		return Station{}, fmt.Errorf("parse station %q: bad latitude %q", rec.StnName, rec.Lat)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(rec.Long), 64)
	if err != nil {
		return Station{}, fmt.Errorf("parse station %q: bad longitude %q", rec.StnName, rec.Long)
	}

	return Station{
		ID:         generateID(rec.StnName, rec.StnNo, lat, lon),
		Name:       strings.TrimSpace(rec.StnName),
		Province:   strings.TrimSpace(rec.Prov),
		StnNo:      strings.TrimSpace(rec.StnNo),
		Lat:        lat,
		Lon:        lon,
		MeanTemp:   parseMeasurement(rec.Tm),
		MaxTemp:    parseMeasurement(rec.Tx),
		MinTemp:    parseMeasurement(rec.Tn),
		Precip:     parseMeasurement(rec.P),
		HeatingDD:  parseMeasurement(rec.HDD),
		CoolingDD:  parseMeasurement(rec.CDD),
		IngestedAt: clock.Now().UTC(),
	}, nil
}

// parseMeasurement parses an optional measurement column. "NA", empty
// strings, and unparseable values all map to nil.
func parseMeasurement(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "NA") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// generateID produces a deterministic ID from the station's key fields.
// Re-ingesting the same dataset yields the same IDs, so assignments from
// different runs can be joined on station_id.
func generateID(name, stnNo string, lat, lon float64) string {
	input := fmt.Sprintf("%s|%s|%.4f|%.4f", name, stnNo, lat, lon)
	hash := sha256.Sum256([]byte(input))
	return "stn-" + hex.EncodeToString(hash[:8])
}
