package domain

// BuildAssignments pairs stations with their cluster labels. coreIndices
// marks DBSCAN core samples; pass nil for algorithms without the concept.
// stations and labels must be the same length.
func BuildAssignments(runID string, stations []Station, labels []int, coreIndices []int) []Assignment {
	core := make(map[int]bool, len(coreIndices))
	for _, i := range coreIndices {
		core[i] = true
	}

	assignments := make([]Assignment, len(stations))
	for i, s := range stations {
		assignments[i] = Assignment{
			RunID:     runID,
			StationID: s.ID,
			Name:      s.Name,
			Lat:       s.Lat,
			Lon:       s.Lon,
			Label:     labels[i],
			Core:      core[i],
		}
	}
	return assignments
}

// Summarize aggregates each cluster of a run: member count, centroid (mean
// projected position mapped back to degrees), and mean temperature. Noise
// stations are not summarized; callers report them via Run.Noise.
func Summarize(runID string, stations []Station, labels []int, box BoundingBox) []ClusterSummary {
	type acc struct {
		n       int
		sumX    float64
		sumY    float64
		sumTemp float64
		nTemp   int
	}
	byLabel := make(map[int]*acc)
	maxLabel := -1

	for i, s := range stations {
		label := labels[i]
		if label < 0 {
			continue
		}
		a := byLabel[label]
		if a == nil {
			a = &acc{}
			byLabel[label] = a
		}
		a.n++
		a.sumX += s.XM
		a.sumY += s.YM
		if s.MeanTemp != nil {
			a.sumTemp += *s.MeanTemp
			a.nTemp++
		}
		if label > maxLabel {
			maxLabel = label
		}
	}

	summaries := make([]ClusterSummary, 0, len(byLabel))
	for label := 0; label <= maxLabel; label++ {
		a, ok := byLabel[label]
		if !ok {
			continue
		}
		lat, lon := box.Unproject(a.sumX/float64(a.n), a.sumY/float64(a.n))
		s := ClusterSummary{
			RunID:       runID,
			Label:       label,
			Size:        a.n,
			CentroidLat: lat,
			CentroidLon: lon,
		}
		if a.nTemp > 0 {
			s.MeanTemp = a.sumTemp / float64(a.nTemp)
			s.HasMeanTemp = true
		}
		summaries = append(summaries, s)
	}
	return summaries
}
