// Package store persists benchmark run history to a local SQLite
// database so past runs can be compared across encoder versions.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/psantana5/encbench/pkg/models"
	"github.com/psantana5/encbench/pkg/retry"
)

// SQLiteStore is the run-history store
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the database at dbPath.
// WAL plus a single-writer pool avoids SQLITE_BUSY under concurrent use.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		encoder TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		cpu_model TEXT,
		cpu_threads INTEGER,
		ram_bytes INTEGER,
		jobs_total INTEGER NOT NULL,
		jobs_failed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		input TEXT NOT NULL,
		quality INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		encode_seconds REAL,
		size_bytes INTEGER,
		psnr REAL,
		ssim REAL,
		xpsnr_y REAL,
		xpsnr_u REAL,
		xpsnr_v REAL,
		w_xpsnr REAL,
		error TEXT,
		PRIMARY KEY (run_id, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_encoder ON runs(encoder, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun persists run metadata and all result rows in one transaction.
// Writes retry on transient lock contention.
func (s *SQLiteStore) SaveRun(ctx context.Context, run models.RunInfo, results []models.JobResult) error {
	return retry.Do(ctx, retry.DefaultConfig(), func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO runs
			(id, encoder, started_at, finished_at, cpu_model, cpu_threads, ram_bytes, jobs_total, jobs_failed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.Encoder, run.StartedAt, run.FinishedAt, run.CPUModel,
			run.CPUThreads, run.RAMBytes, run.JobsTotal, run.JobsFailed)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for _, res := range results {
			_, err = tx.Exec(`
				INSERT INTO results
				(run_id, idx, input, quality, outcome, encode_seconds, size_bytes,
				 psnr, ssim, xpsnr_y, xpsnr_u, xpsnr_v, w_xpsnr, error)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, run.ID, res.Spec.Index, res.Spec.Input, res.Spec.Quality, string(res.Outcome),
				res.Duration.Seconds(), res.Size,
				nullableMetric(res, func(m *models.MetricBundle) float64 { return m.PSNR }),
				nullableMetric(res, func(m *models.MetricBundle) float64 { return m.SSIM }),
				nullableMetric(res, func(m *models.MetricBundle) float64 { return m.XPSNRY }),
				nullableMetric(res, func(m *models.MetricBundle) float64 { return m.XPSNRU }),
				nullableMetric(res, func(m *models.MetricBundle) float64 { return m.XPSNRV }),
				nullableMetric(res, func(m *models.MetricBundle) float64 { return m.WXPSNR }),
				res.Error)
			if err != nil {
				return fmt.Errorf("failed to insert result %d: %w", res.Spec.Index, err)
			}
		}

		return tx.Commit()
	})
}

// ListRuns returns run metadata, newest first
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]models.RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, encoder, started_at, finished_at, cpu_model, cpu_threads, ram_bytes, jobs_total, jobs_failed
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunInfo
	for rows.Next() {
		var run models.RunInfo
		if err := rows.Scan(&run.ID, &run.Encoder, &run.StartedAt, &run.FinishedAt,
			&run.CPUModel, &run.CPUThreads, &run.RAMBytes, &run.JobsTotal, &run.JobsFailed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullableMetric maps absent metrics to SQL NULL
func nullableMetric(res models.JobResult, get func(*models.MetricBundle) float64) interface{} {
	if res.Metrics == nil {
		return nil
	}
	v := get(res.Metrics)
	if math.IsNaN(v) {
		return nil
	}
	return v
}
