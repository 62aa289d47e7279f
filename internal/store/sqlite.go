// Package store persists clustering runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/weatherlab/station-clustering/internal/domain"
	"github.com/weatherlab/station-clustering/internal/pipeline"
)

// ErrNotFound is returned when a run or cluster does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	algorithm   TEXT NOT NULL,
	features    TEXT NOT NULL,
	eps         REAL NOT NULL,
	min_samples INTEGER NOT NULL,
	k           INTEGER NOT NULL,
	stations    INTEGER NOT NULL,
	clusters    INTEGER NOT NULL,
	noise       INTEGER NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	station_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	lat        REAL NOT NULL,
	lon        REAL NOT NULL,
	label      INTEGER NOT NULL,
	core       INTEGER NOT NULL,
	PRIMARY KEY (run_id, station_id)
);

CREATE INDEX IF NOT EXISTS idx_assignments_run_label ON assignments(run_id, label);

CREATE TABLE IF NOT EXISTS summaries (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	label         INTEGER NOT NULL,
	size          INTEGER NOT NULL,
	centroid_lat  REAL NOT NULL,
	centroid_lon  REAL NOT NULL,
	mean_temp     REAL,
	PRIMARY KEY (run_id, label)
);
`

// Store wraps the SQLite database. It implements pipeline.Loader.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	// busy_timeout helps with "database is locked" when the scheduler and
	// API trigger runs concurrently.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Load persists a completed run with its assignments and summaries in one
// transaction.
func (s *Store) Load(ctx context.Context, result pipeline.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	run := result.Run
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, algorithm, features, eps, min_samples, k, stations, clusters, noise, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Algorithm, run.Features, run.Eps, run.MinSamples, run.K,
		run.Stations, run.Clusters, run.Noise,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	insertAssignment, err := tx.PrepareContext(ctx,
		`INSERT INTO assignments (run_id, station_id, name, lat, lon, label, core)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare assignment insert: %w", err)
	}
	defer insertAssignment.Close()

	for _, a := range result.Assignments {
		if _, err := insertAssignment.ExecContext(ctx, a.RunID, a.StationID, a.Name, a.Lat, a.Lon, a.Label, a.Core); err != nil {
			return fmt.Errorf("insert assignment %s: %w", a.StationID, err)
		}
	}

	for _, sum := range result.Summaries {
		var meanTemp any
		if sum.HasMeanTemp {
			meanTemp = sum.MeanTemp
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO summaries (run_id, label, size, centroid_lat, centroid_lon, mean_temp)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sum.RunID, sum.Label, sum.Size, sum.CentroidLat, sum.CentroidLon, meanTemp)
		if err != nil {
			return fmt.Errorf("insert summary %d: %w", sum.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, algorithm, features, eps, min_samples, k, stations, clusters, noise, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run and its cluster summaries.
func (s *Store) GetRun(ctx context.Context, id string) (domain.Run, []domain.ClusterSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, algorithm, features, eps, min_samples, k, stations, clusters, noise, started_at, finished_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Run{}, nil, ErrNotFound
	}
	if err != nil {
		return domain.Run{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, label, size, centroid_lat, centroid_lon, mean_temp
		 FROM summaries WHERE run_id = ? ORDER BY label`, id)
	if err != nil {
		return domain.Run{}, nil, fmt.Errorf("get summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.ClusterSummary
	for rows.Next() {
		var sum domain.ClusterSummary
		var meanTemp sql.NullFloat64
		if err := rows.Scan(&sum.RunID, &sum.Label, &sum.Size, &sum.CentroidLat, &sum.CentroidLon, &meanTemp); err != nil {
			return domain.Run{}, nil, fmt.Errorf("scan summary: %w", err)
		}
		if meanTemp.Valid {
			sum.MeanTemp = meanTemp.Float64
			sum.HasMeanTemp = true
		}
		summaries = append(summaries, sum)
	}
	return run, summaries, rows.Err()
}

// GetClusterMembers returns the assignments of one cluster within a run.
// Label -1 queries the noise stations; a run with no members under the label
// yields an empty list. ErrNotFound means the run itself does not exist.
func (s *Store) GetClusterMembers(ctx context.Context, runID string, label int) ([]domain.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, station_id, name, lat, lon, label, core
		 FROM assignments WHERE run_id = ? AND label = ? ORDER BY name`, runID, label)
	if err != nil {
		return nil, fmt.Errorf("get cluster members: %w", err)
	}
	defer rows.Close()

	assignments := []domain.Assignment{}
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.RunID, &a.StationID, &a.Name, &a.Lat, &a.Lon, &a.Label, &a.Core); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(assignments) == 0 {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("check run: %w", err)
		}
	}
	return assignments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (domain.Run, error) {
	var run domain.Run
	var startedAt, finishedAt string
	err := row.Scan(&run.ID, &run.Algorithm, &run.Features, &run.Eps, &run.MinSamples, &run.K,
		&run.Stations, &run.Clusters, &run.Noise, &startedAt, &finishedAt)
	if err != nil {
		return domain.Run{}, err
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return domain.Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return domain.Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}
