// Package db persists compression runs and their per-trajectory results to
// SQLite. The schema is managed with embedded migrations so every database
// a run touches is at a known version.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trajectory.report/internal/rest"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the runs database.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the runs database at path and brings
// it to the latest schema version.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db := &DB{sqlDB}

	if err := db.applyPragmas(); err != nil {
		return nil, fmt.Errorf("failed to apply PRAGMAs: %w", err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create sub-filesystem for embedded migrations: %w", err)
	}
	if err := db.MigrateUp(sub); err != nil {
		return nil, err
	}
	return db, nil
}

// applyPragmas applies the SQLite settings every database gets: WAL for
// concurrent readers, a busy timeout instead of immediate lock errors, and
// in-memory temp storage.
func (db *DB) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Run describes the outcome of one build+encode invocation.
type Run struct {
	RunID        string
	Trajectories int
	SetSize      int
	AvgCR        float64
	BuildTime    time.Duration
	EncodeTime   time.Duration
}

// InsertRun records the start of a run.
func (db *DB) InsertRun(runID string, started time.Time, corpusPath, paramsJSON string) error {
	_, err := db.Exec(`
		INSERT INTO compression_run (run_id, started_unix_nanos, corpus_path, params_json)
		VALUES (?, ?, ?, ?)`,
		runID, started.UnixNano(), corpusPath, paramsJSON)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (db *DB) FinishRun(r Run, finished time.Time) error {
	res, err := db.Exec(`
		UPDATE compression_run
		SET finished_unix_nanos = ?, trajectory_count = ?, reference_set_size = ?,
		    avg_cr = ?, build_millis = ?, encode_millis = ?
		WHERE run_id = ?`,
		finished.UnixNano(), r.Trajectories, r.SetSize, r.AvgCR,
		r.BuildTime.Milliseconds(), r.EncodeTime.Milliseconds(), r.RunID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.RunID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: no such run", r.RunID)
	}
	return nil
}

// TrajectoryResult is one encoded trajectory's shape and ratio.
type TrajectoryResult struct {
	Seq   int
	Shape rest.Shape
	CR    float64
}

// InsertTrajectoryResults writes every per-trajectory result of a run in
// one transaction.
func (db *DB) InsertTrajectoryResults(runID string, results []TrajectoryResult) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO run_trajectory (run_id, seq, point_count, ref_segments, raw_points, compression_ratio)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.Exec(runID, r.Seq, r.Shape.M, r.Shape.R, r.Shape.D, r.CR); err != nil {
			return fmt.Errorf("insert result %d of run %s: %w", r.Seq, runID, err)
		}
	}
	return tx.Commit()
}

// Summary aggregates the compression ratios of one run.
type Summary struct {
	Trajectories int // rows recorded for the run
	MeanCR       float64
	StdDevCR     float64
	MinCR        float64
	MaxCR        float64
}

// RunSummary computes ratio statistics for a run.
func (db *DB) RunSummary(runID string) (Summary, error) {
	rows, err := db.Query(`
		SELECT compression_ratio FROM run_trajectory WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return Summary{}, fmt.Errorf("summary of run %s: %w", runID, err)
	}
	defer rows.Close()

	var s Summary
	var crs []float64
	for rows.Next() {
		var cr float64
		if err := rows.Scan(&cr); err != nil {
			return Summary{}, err
		}
		s.Trajectories++
		crs = append(crs, cr)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	if len(crs) == 0 {
		return s, nil
	}

	s.MeanCR = stat.Mean(crs, nil)
	s.StdDevCR = stat.StdDev(crs, nil)
	s.MinCR, s.MaxCR = crs[0], crs[0]
	for _, cr := range crs[1:] {
		s.MinCR = math.Min(s.MinCR, cr)
		s.MaxCR = math.Max(s.MaxCR, cr)
	}
	return s, nil
}

// RunRatios returns the compression ratios of a run in sequence order, for
// histogram rendering.
func (db *DB) RunRatios(runID string) ([]float64, error) {
	rows, err := db.Query(`
		SELECT compression_ratio FROM run_trajectory
		WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("ratios of run %s: %w", runID, err)
	}
	defer rows.Close()

	var crs []float64
	for rows.Next() {
		var cr float64
		if err := rows.Scan(&cr); err != nil {
			return nil, err
		}
		crs = append(crs, cr)
	}
	return crs, rows.Err()
}
