package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherlab/station-clustering/internal/cluster"
	"github.com/weatherlab/station-clustering/internal/domain"
	"github.com/weatherlab/station-clustering/internal/pipeline"
	"github.com/weatherlab/station-clustering/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "clusters.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResult(runID string, startedAt time.Time) pipeline.Result {
	run := domain.Run{
		ID:         runID,
		Algorithm:  pipeline.AlgorithmDBSCAN,
		Features:   pipeline.FeaturesLocation,
		Eps:        0.15,
		MinSamples: 10,
		Stations:   3,
		Clusters:   1,
		Noise:      1,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(2 * time.Second),
	}
	return pipeline.Result{
		Run: run,
		Assignments: []domain.Assignment{
			{RunID: runID, StationID: "stn-aaaa", Name: "CHEMAINUS", Lat: 48.935, Lon: -123.742, Label: 0, Core: true},
			{RunID: runID, StationID: "stn-bbbb", Name: "COWICHAN LAKE", Lat: 48.829, Lon: -124.052, Label: 0},
			{RunID: runID, StationID: "stn-cccc", Name: "EUREKA", Lat: 79.983, Lon: -85.933, Label: cluster.Noise},
		},
		Summaries: []domain.ClusterSummary{
			{RunID: runID, Label: 0, Size: 2, CentroidLat: 48.882, CentroidLon: -123.897, MeanTemp: 9.1, HasMeanTemp: true},
		},
	}
}

func TestStore_LoadAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	startedAt := time.Date(2014, time.July, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Load(ctx, sampleResult("run-1", startedAt)))

	run, summaries, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, pipeline.AlgorithmDBSCAN, run.Algorithm)
	assert.Equal(t, 0.15, run.Eps)
	assert.Equal(t, 10, run.MinSamples)
	assert.Equal(t, 1, run.Clusters)
	assert.Equal(t, 1, run.Noise)
	assert.True(t, run.StartedAt.Equal(startedAt))
	assert.True(t, run.FinishedAt.Equal(startedAt.Add(2*time.Second)))

	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].Label)
	assert.Equal(t, 2, summaries[0].Size)
	assert.True(t, summaries[0].HasMeanTemp)
	assert.InDelta(t, 9.1, summaries[0].MeanTemp, 1e-9)
}

func TestStore_GetRun_NoMeanTemp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	result := sampleResult("run-1", time.Now())
	result.Summaries[0].MeanTemp = 0
	result.Summaries[0].HasMeanTemp = false
	require.NoError(t, s.Load(ctx, result))

	_, summaries, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.False(t, summaries[0].HasMeanTemp)
}

func TestStore_GetRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, _, err := s.GetRun(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ListRuns_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2014, time.July, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Load(ctx, sampleResult("run-old", base)))
	require.NoError(t, s.Load(ctx, sampleResult("run-mid", base.Add(time.Hour))))
	require.NoError(t, s.Load(ctx, sampleResult("run-new", base.Add(2*time.Hour))))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-mid", runs[1].ID)
	assert.Equal(t, "run-old", runs[2].ID)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
}

func TestStore_GetClusterMembers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx, sampleResult("run-1", time.Now())))

	members, err := s.GetClusterMembers(ctx, "run-1", 0)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "CHEMAINUS", members[0].Name, "members sorted by name")
	assert.True(t, members[0].Core)
	assert.Equal(t, "COWICHAN LAKE", members[1].Name)
	assert.False(t, members[1].Core)

	noise, err := s.GetClusterMembers(ctx, "run-1", cluster.Noise)
	require.NoError(t, err)
	require.Len(t, noise, 1)
	assert.Equal(t, "EUREKA", noise[0].Name)
}

func TestStore_GetClusterMembers_EmptyLabel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	result := sampleResult("run-1", time.Now())
	// Clean run: every station clustered, nothing labeled noise.
	result.Assignments = result.Assignments[:2]
	result.Run.Noise = 0
	require.NoError(t, s.Load(ctx, result))

	noise, err := s.GetClusterMembers(ctx, "run-1", -1)
	require.NoError(t, err, "existing run with no noise is not a missing cluster")
	assert.Empty(t, noise)

	members, err := s.GetClusterMembers(ctx, "run-1", 7)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestStore_GetClusterMembers_RunNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetClusterMembers(context.Background(), "no-such-run", 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Load_DuplicateRunID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	result := sampleResult("run-1", time.Now())
	require.NoError(t, s.Load(ctx, result))
	assert.Error(t, s.Load(ctx, result), "run IDs are unique")
}
