// Package schedstore persists committed schedule rows and run totals to
// SQLite, so history outlives the process. cmd/gpuscheduler records to it
// only in simulation mode.
package schedstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/simulator"
)

// Config holds database configuration.
type Config struct {
	Path            string
	RetentionPeriod time.Duration
}

// Store wraps a sql.DB holding committed schedule rows and cost totals.
type Store struct {
	db        *sql.DB
	retention time.Duration
}

// RawDB returns the underlying *sql.DB for components that need direct access.
func (s *Store) RawDB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Open creates the directory, opens the SQLite database, sets WAL mode and
// pragmas, and ensures all tables exist.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	retention := cfg.RetentionPeriod
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	store := &Store{db: sqlDB, retention: retention}
	if err := store.Cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "schedstore: startup cleanup failed (non-fatal): %v\n", err)
	}
	return store, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schedule_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			iteration INTEGER NOT NULL,
			sim_time REAL NOT NULL,
			job_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			gpu_type TEXT NOT NULL,
			gpu_count INTEGER NOT NULL,
			gpu_fraction REAL NOT NULL,
			selected_time REAL NOT NULL,
			completion_percent REAL NOT NULL,
			tardiness REAL NOT NULL,
			tardiness_cost REAL NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schedule_rows_job ON schedule_rows(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedule_rows_iter ON schedule_rows(iteration)`,

		`CREATE TABLE IF NOT EXISTS run_totals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			method TEXT NOT NULL,
			seed INTEGER NOT NULL,
			tardiness REAL NOT NULL,
			tardiness_cost REAL NOT NULL,
			node_cost REAL NOT NULL,
			gpu_cost REAL NOT NULL,
			energy_cost REAL NOT NULL,
			grand_cost REAL NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Cleanup deletes rows older than the configured retention period.
func (s *Store) Cleanup() error {
	cutoff := time.Now().Add(-s.retention).Format(time.RFC3339)
	stmts := []struct {
		sql    string
		cutoff any
	}{
		{"DELETE FROM schedule_rows WHERE recorded_at < ?", cutoff},
		{"DELETE FROM run_totals WHERE recorded_at < ?", cutoff},
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st.sql, st.cutoff); err != nil {
			return fmt.Errorf("cleanup %q: %w", st.sql[:30], err)
		}
	}
	return nil
}

// Row mirrors one persisted schedule_rows record.
type Row struct {
	Iteration          int
	SimTime            float64
	JobID              string
	NodeID             string
	GPUType            string
	GPUCount           int
	GPUFraction        float64
	SelectedTime       float64
	CompletionPercent  float64
	Tardiness          float64
	TardinessCost      float64
}

// RecordStep persists every non-empty schedule entry in a committed step.
func (s *Store) RecordStep(iteration int, simTime float64, rows []Row) error {
	if s.db == nil || len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().Format(time.RFC3339)
	for _, r := range rows {
		if _, err := tx.Exec(
			`INSERT INTO schedule_rows (iteration, sim_time, job_id, node_id, gpu_type, gpu_count, gpu_fraction, selected_time, completion_percent, tardiness, tardiness_cost, recorded_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			r.Iteration, r.SimTime, r.JobID, r.NodeID, r.GPUType, r.GPUCount, r.GPUFraction, r.SelectedTime, r.CompletionPercent, r.Tardiness, r.TardinessCost, now,
		); err != nil {
			return fmt.Errorf("insert schedule row for job %s: %w", r.JobID, err)
		}
	}
	return tx.Commit()
}

// RecordTotals persists a run's final cost totals.
func (s *Store) RecordTotals(method string, seed uint32, t simulator.Totals) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO run_totals (method, seed, tardiness, tardiness_cost, node_cost, gpu_cost, energy_cost, grand_cost, recorded_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		method, seed, t.Tardi, t.TardiCost, t.NodeCost, t.GPUCost, t.EnergyCost, t.GrandCost, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run totals: %w", err)
	}
	return nil
}

// RecentTotals returns the last n persisted run-totals rows, newest first.
func (s *Store) RecentTotals(n int) ([]simulator.Totals, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT tardiness, tardiness_cost, node_cost, gpu_cost, energy_cost, grand_cost
		 FROM run_totals ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying run totals: %w", err)
	}
	defer rows.Close()

	var out []simulator.Totals
	for rows.Next() {
		var t simulator.Totals
		if err := rows.Scan(&t.Tardi, &t.TardiCost, &t.NodeCost, &t.GPUCost, &t.EnergyCost, &t.GrandCost); err != nil {
			return nil, fmt.Errorf("scanning run totals: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
