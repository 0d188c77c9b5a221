// Package results stores probe runs and their scenario outcomes.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// database/sql drivers selectable through results.driver
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Repository persists runs through sqlx. Queries are written with ?
// placeholders and rebound for the configured driver.
type Repository struct {
	db     *sqlx.DB
	driver string
}

// Open connects to dsn with one of the supported drivers. MySQL DSNs need
// parseTime=true so timestamps scan into time.Time.
func Open(driver, dsn string) (*Repository, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported results driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s results store: %w", driver, err)
	}
	if driver == DriverSQLite {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	return &Repository{db: db, driver: driver}, nil
}

// New wraps an existing connection.
func New(db *sql.DB, driver string) *Repository {
	return &Repository{db: sqlx.NewDb(db, driver), driver: driver}
}

// DB returns the underlying sqlx.DB.
func (r *Repository) DB() *sqlx.DB { return r.db }

func (r *Repository) Close() error { return r.db.Close() }

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) timestampType() string {
	switch r.driver {
	case DriverMySQL:
		return "DATETIME(6)"
	case DriverPostgres:
		return "TIMESTAMPTZ"
	default:
		return "TIMESTAMP"
	}
}

// Migrate creates the tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	ts := r.timestampType()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS probe_runs (
			id VARCHAR(36) PRIMARY KEY,
			base_url VARCHAR(512) NOT NULL,
			triggered_by VARCHAR(32) NOT NULL,
			status VARCHAR(16) NOT NULL,
			passed INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL,
			started_at ` + ts + ` NOT NULL,
			finished_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS probe_results (
			run_id VARCHAR(36) NOT NULL,
			position INTEGER NOT NULL,
			suite VARCHAR(128) NOT NULL,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			error TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate results store: %w", err)
		}
	}
	return nil
}

// SaveRun inserts a finished run and its results in one transaction.
func (r *Repository) SaveRun(ctx context.Context, run *models.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("save run: missing id")
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO probe_runs (id, base_url, triggered_by, status, passed, failed, skipped, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.BaseURL, run.Trigger, run.Status, run.Passed, run.Failed, run.Skipped, run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	insert := r.db.Rebind(`
		INSERT INTO probe_results (run_id, position, suite, name, status, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for i, res := range run.Results {
		if _, err := tx.ExecContext(ctx, insert, run.ID, i, res.Suite, res.Name, res.Status, res.DurationMS, res.Error); err != nil {
			return fmt.Errorf("failed to insert result %s: %w", res.FullName(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, base_url, triggered_by, status, passed, failed, skipped, error, started_at, finished_at`

// ListRuns returns the most recent runs first, without their results.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.Run
	err := r.db.SelectContext(ctx, &runs, r.db.Rebind(
		`SELECT `+runColumns+` FROM probe_runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run with its results in execution order.
func (r *Repository) GetRun(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	err := r.db.GetContext(ctx, &run, r.db.Rebind(`SELECT `+runColumns+` FROM probe_runs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	err = r.db.SelectContext(ctx, &run.Results, r.db.Rebind(`
		SELECT run_id, suite, name, status, duration_ms, error
		FROM probe_results WHERE run_id = ? ORDER BY position`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get results of run %s: %w", id, err)
	}
	for i := range run.Results {
		run.Results[i].Duration = time.Duration(run.Results[i].DurationMS) * time.Millisecond
	}
	return &run, nil
}

// DeleteBefore removes runs that started before cutoff and returns how many went.
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff = cutoff.UTC()
	if _, err := tx.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM probe_results WHERE run_id IN (SELECT id FROM probe_runs WHERE started_at < ?)`), cutoff); err != nil {
		return 0, fmt.Errorf("failed to prune results: %w", err)
	}
	res, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM probe_runs WHERE started_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}
