// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/vocalrange/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNoRuns is returned when the database holds no analysis run.
var ErrNoRuns = errors.New("no stored analysis runs")

// Store wraps SQLite access for analysis runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			created_at TEXT NOT NULL,
			root TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_tracks (
			run_id INTEGER NOT NULL,
			file TEXT NOT NULL,
			system TEXT NOT NULL,
			min_note INTEGER NOT NULL,
			max_note INTEGER NOT NULL,
			range_semitones INTEGER NOT NULL,
			PRIMARY KEY (run_id, file)
		);`,
		`CREATE TABLE IF NOT EXISTS run_systems (
			run_id INTEGER NOT NULL,
			system TEXT NOT NULL,
			count INTEGER NOT NULL,
			mean REAL NOT NULL,
			std REAL,
			min INTEGER NOT NULL,
			max INTEGER NOT NULL,
			PRIMARY KEY (run_id, system)
		);`,
		`CREATE TABLE IF NOT EXISTS run_skipped (
			run_id INTEGER NOT NULL,
			file TEXT NOT NULL,
			reason TEXT NOT NULL,
			PRIMARY KEY (run_id, file)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_run_systems_system ON run_systems(system);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveAnalysis stores one analysis run and returns its id.
func (s *Store) SaveAnalysis(ctx context.Context, a model.Analysis) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, root) VALUES (?, ?)`,
		createdAt.UTC().Format(time.RFC3339Nano),
		a.Root,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, tr := range a.Tracks {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_tracks (run_id, file, system, min_note, max_note, range_semitones)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, tr.File, tr.System, tr.MinNote, tr.MaxNote, tr.RangeSemitones); err != nil {
			return 0, err
		}
	}
	for _, sum := range a.Systems {
		std := sql.NullFloat64{Float64: sum.Std, Valid: !math.IsNaN(sum.Std)}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_systems (run_id, system, count, mean, std, min, max)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, sum.System, sum.Count, sum.Mean, std, sum.Min, sum.Max); err != nil {
			return 0, err
		}
	}
	for _, sk := range a.Skipped {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_skipped (run_id, file, reason) VALUES (?, ?, ?)`,
			id, sk.File, sk.Reason); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRuns returns stored runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.RunInfo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT r.id, r.created_at, r.root,
			(SELECT COUNT(*) FROM run_tracks t WHERE t.run_id = r.id),
			(SELECT COUNT(*) FROM run_skipped k WHERE k.run_id = r.id),
			(SELECT COUNT(*) FROM run_systems y WHERE y.run_id = r.id)
		FROM runs r
		ORDER BY r.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunInfo
	for rows.Next() {
		var info model.RunInfo
		var createdAt string
		if err := rows.Scan(&info.RunID, &createdAt, &info.Root, &info.Processed, &info.Skipped, &info.Systems); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		info.CreatedAt = parsed
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// LatestRunID returns the id of the newest run or ErrNoRuns.
func (s *Store) LatestRunID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoRuns
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// LoadRun reads a stored run back into an Analysis.
func (s *Store) LoadRun(ctx context.Context, runID int64) (model.Analysis, error) {
	var a model.Analysis
	var createdAt string
	err := s.db.QueryRowContext(ctx, `SELECT created_at, root FROM runs WHERE id = ?`, runID).Scan(&createdAt, &a.Root)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Analysis{}, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return model.Analysis{}, err
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return model.Analysis{}, err
	}

	if a.Tracks, err = s.loadTracks(ctx, runID); err != nil {
		return model.Analysis{}, err
	}
	if a.Systems, err = s.loadSystems(ctx, runID); err != nil {
		return model.Analysis{}, err
	}
	if a.Skipped, err = s.loadSkipped(ctx, runID); err != nil {
		return model.Analysis{}, err
	}
	return a, nil
}

func (s *Store) loadTracks(ctx context.Context, runID int64) ([]model.TrackRange, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file, system, min_note, max_note, range_semitones
		FROM run_tracks WHERE run_id = ? ORDER BY file ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var tracks []model.TrackRange
	for rows.Next() {
		var tr model.TrackRange
		if err := rows.Scan(&tr.File, &tr.System, &tr.MinNote, &tr.MaxNote, &tr.RangeSemitones); err != nil {
			return nil, err
		}
		tracks = append(tracks, tr)
	}
	return tracks, rows.Err()
}

func (s *Store) loadSystems(ctx context.Context, runID int64) ([]model.SystemSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT system, count, mean, std, min, max
		FROM run_systems WHERE run_id = ? ORDER BY system ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var systems []model.SystemSummary
	for rows.Next() {
		var sum model.SystemSummary
		var std sql.NullFloat64
		if err := rows.Scan(&sum.System, &sum.Count, &sum.Mean, &std, &sum.Min, &sum.Max); err != nil {
			return nil, err
		}
		sum.Std = math.NaN()
		if std.Valid {
			sum.Std = std.Float64
		}
		systems = append(systems, sum)
	}
	return systems, rows.Err()
}

func (s *Store) loadSkipped(ctx context.Context, runID int64) ([]model.SkippedFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file, reason FROM run_skipped WHERE run_id = ? ORDER BY file ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var skipped []model.SkippedFile
	for rows.Next() {
		var sk model.SkippedFile
		if err := rows.Scan(&sk.File, &sk.Reason); err != nil {
			return nil, err
		}
		skipped = append(skipped, sk)
	}
	return skipped, rows.Err()
}

// SystemHistory returns the stored summaries of one system across runs,
// oldest first.
func (s *Store) SystemHistory(ctx context.Context, system string) ([]model.SystemSummary, []model.RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.id, r.created_at, r.root, y.count, y.mean, y.std, y.min, y.max
		FROM run_systems y
		JOIN runs r ON r.id = y.run_id
		WHERE y.system = ?
		ORDER BY r.id ASC`, system)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sums []model.SystemSummary
	var runs []model.RunInfo
	for rows.Next() {
		var info model.RunInfo
		var createdAt string
		sum := model.SystemSummary{System: system}
		var std sql.NullFloat64
		if err := rows.Scan(&info.RunID, &createdAt, &info.Root, &sum.Count, &sum.Mean, &std, &sum.Min, &sum.Max); err != nil {
			return nil, nil, err
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, nil, err
		}
		sum.Std = math.NaN()
		if std.Valid {
			sum.Std = std.Float64
		}
		sums = append(sums, sum)
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return sums, runs, nil
}
