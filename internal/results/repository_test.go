package results

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

func newMock(t *testing.T, driver string) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("error closing db: %v", err)
		}
	})
	return New(db, driver), mock
}

func sampleRun() *models.Run {
	started := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	run := &models.Run{
		ID:         "5f0c6a52-7c4f-4b35-9f0e-6a1c1d3e2a10",
		BaseURL:    "https://demo.playwright.dev/todomvc",
		Trigger:    "schedule",
		StartedAt:  started,
		FinishedAt: started.Add(12 * time.Second),
		Results: []models.ScenarioResult{
			{Suite: "Counter", Name: "should display the current number of todo items", Status: models.StatusPassed, DurationMS: 800},
			{Suite: "Routing", Name: "should respect the back button", Status: models.StatusFailed, DurationMS: 5100, Error: "timed out"},
		},
	}
	run.Tally()
	return run
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	repo, mock := newMock(t, DriverMySQL)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS probe_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS probe_results")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Migrate(context.Background()))
	assert.Equal(t, "DATETIME(6)", repo.timestampType())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun(t *testing.T) {
	repo, mock := newMock(t, DriverPostgres)
	run := sampleRun()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO probe_runs")).
		WithArgs(run.ID, run.BaseURL, "schedule", models.StatusFailed, 1, 1, 0, "", run.StartedAt, run.FinishedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs(run.ID, 0, "Counter", "should display the current number of todo items", models.StatusPassed, int64(800), "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO probe_results")).
		WithArgs(run.ID, 1, "Routing", "should respect the back button", models.StatusFailed, int64(5100), "timed out").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunRollsBackOnError(t *testing.T) {
	repo, mock := newMock(t, DriverSQLite)
	run := sampleRun()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO probe_runs")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO probe_results")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.SaveRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Counter/should display")
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, repo.SaveRun(context.Background(), &models.Run{}))
}

func TestListRuns(t *testing.T) {
	repo, mock := newMock(t, DriverPostgres)
	run := sampleRun()

	rows := sqlmock.NewRows([]string{"id", "base_url", "triggered_by", "status", "passed", "failed", "skipped", "error", "started_at", "finished_at"}).
		AddRow(run.ID, run.BaseURL, run.Trigger, run.Status, 1, 1, 0, "", run.StartedAt, run.FinishedAt)
	mock.ExpectQuery(regexp.QuoteMeta("FROM probe_runs ORDER BY started_at DESC LIMIT $1")).
		WithArgs(50).
		WillReturnRows(rows)

	runs, err := repo.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "schedule", runs[0].Trigger)
	assert.Equal(t, 12*time.Second, runs[0].Duration())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun(t *testing.T) {
	t.Run("with results", func(t *testing.T) {
		repo, mock := newMock(t, DriverMySQL)
		run := sampleRun()

		mock.ExpectQuery(regexp.QuoteMeta("FROM probe_runs WHERE id = ?")).
			WithArgs(run.ID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "base_url", "triggered_by", "status", "passed", "failed", "skipped", "error", "started_at", "finished_at"}).
				AddRow(run.ID, run.BaseURL, run.Trigger, run.Status, 1, 1, 0, "", run.StartedAt, run.FinishedAt))
		mock.ExpectQuery(regexp.QuoteMeta("FROM probe_results WHERE run_id = ? ORDER BY position")).
			WithArgs(run.ID).
			WillReturnRows(sqlmock.NewRows([]string{"run_id", "suite", "name", "status", "duration_ms", "error"}).
				AddRow(run.ID, "Counter", "a", models.StatusPassed, 800, "").
				AddRow(run.ID, "Routing", "b", models.StatusFailed, 5100, "timed out"))

		got, err := repo.GetRun(context.Background(), run.ID)
		require.NoError(t, err)
		require.Len(t, got.Results, 2)
		assert.Equal(t, "Routing/b", got.Results[1].FullName())
		assert.Equal(t, 5100*time.Millisecond, got.Results[1].Duration)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id", func(t *testing.T) {
		repo, mock := newMock(t, DriverSQLite)
		mock.ExpectQuery(regexp.QuoteMeta("FROM probe_runs WHERE id = ?")).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetRun(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})
}

func TestDeleteBefore(t *testing.T) {
	repo, mock := newMock(t, DriverPostgres)
	cutoff := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM probe_results")).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM probe_runs WHERE started_at < $1")).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	n, err := repo.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRoundTrip(t *testing.T) {
	repo, err := Open(DriverSQLite, "file::memory:?cache=shared")
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	require.NoError(t, repo.Migrate(ctx))
	run := sampleRun()
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Status, got.Status)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, []string{"Counter", "Routing"}, []string{got.Results[0].Suite, got.Results[1].Suite})

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
