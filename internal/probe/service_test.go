package probe

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

type memoryStore struct {
	mu   sync.Mutex
	runs []models.Run
	err  error
}

func (m *memoryStore) SaveRun(_ context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return m.err
}

type recorder struct {
	mu       sync.Mutex
	started  []string
	finished []string
	results  []models.ScenarioResult
}

func (r *recorder) RunStarted(run models.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, run.ID)
}

func (r *recorder) ScenarioFinished(_ string, res models.ScenarioResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder) RunFinished(run models.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, run.Status)
}

func fixedExecutor(statuses ...string) Executor {
	return func(ctx context.Context, suites []string, onResult func(models.ScenarioResult)) []models.ScenarioResult {
		out := make([]models.ScenarioResult, 0, len(statuses))
		for i, status := range statuses {
			res := models.ScenarioResult{
				Suite:      "Suite",
				Name:       string(rune('a' + i)),
				Status:     status,
				Duration:   time.Millisecond,
				DurationMS: 1,
			}
			onResult(res)
			out = append(out, res)
		}
		return out
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestService(t *testing.T, exec Executor, opts ...Option) *Service {
	t.Helper()
	cronEngine := cron.New(cron.WithLocation(time.UTC))
	t.Cleanup(func() { cronEngine.Stop() })
	n := 0
	base := []Option{
		WithCron(cronEngine),
		WithLogger(quietLogger()),
		WithIDGenerator(func() string {
			n++
			return "run-" + string(rune('0'+n))
		}),
	}
	return NewService("http://todo.test", exec, append(base, opts...)...)
}

func TestNewServiceRegistersDefaultJob(t *testing.T) {
	svc := newTestService(t, fixedExecutor())
	jobs := svc.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, DefaultJobSlug, jobs[0].Slug)
	assert.Equal(t, "@every 15m", jobs[0].Schedule)
}

func TestScheduleJobsRegistersEntries(t *testing.T) {
	job := &models.ProbeJob{Slug: "smoke", Schedule: "*/5 * * * *", Suites: []string{"New Todo"}}
	svc := newTestService(t, fixedExecutor(), WithJobs([]*models.ProbeJob{job, {Slug: "", Schedule: "@hourly"}}))
	svc.scheduleAllJobs()

	_, ok := svc.entries["smoke"]
	require.True(t, ok, "expected entry for job slug smoke")
	assert.Len(t, svc.entries, 1)
	assert.NotNil(t, svc.jobSnapshot("smoke").NextRunAt)
}

func TestInvalidScheduleIsNotRegistered(t *testing.T) {
	job := &models.ProbeJob{Slug: "broken", Schedule: "every tuesday"}
	svc := newTestService(t, fixedExecutor(), WithJobs([]*models.ProbeJob{job}))
	svc.scheduleAllJobs()

	_, ok := svc.entries["broken"]
	assert.False(t, ok)
}

func TestRunNowRecordsRun(t *testing.T) {
	store := &memoryStore{}
	rec := &recorder{}
	reg := prometheus.NewRegistry()
	metrics := MustNewMetrics(reg)

	svc := newTestService(t, fixedExecutor(models.StatusPassed, models.StatusPassed),
		WithStore(store), WithObserver(rec), WithMetrics(metrics))

	run, err := svc.RunNow(context.Background(), "", TriggerManual)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "http://todo.test", run.BaseURL)
	assert.Equal(t, TriggerManual, run.Trigger)
	assert.Equal(t, models.StatusPassed, run.Status)
	assert.Equal(t, 2, run.Passed)
	for _, res := range run.Results {
		assert.Equal(t, "run-1", res.RunID)
	}

	require.Len(t, store.runs, 1)
	assert.Equal(t, "run-1", store.runs[0].ID)

	assert.Equal(t, []string{"run-1"}, rec.started)
	assert.Equal(t, []string{models.StatusPassed}, rec.finished)
	require.Len(t, rec.results, 2)
	assert.Equal(t, "run-1", rec.results[0].RunID)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues(TriggerManual, models.StatusPassed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.scenarios.WithLabelValues("Suite", models.StatusPassed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.running))
	assert.Greater(t, testutil.ToFloat64(metrics.lastSuccess), 0.0)

	last, ok := svc.LastRun()
	require.True(t, ok)
	assert.Equal(t, "run-1", last.ID)

	job := svc.jobSnapshot(DefaultJobSlug)
	assert.Equal(t, models.StatusPassed, job.LastStatus)
	assert.Equal(t, "run-1", job.LastRunID)
	assert.NotNil(t, job.LastRunAt)
	assert.Nil(t, job.ErrorMessage)
}

func TestRunNowFailedScenariosMarkJob(t *testing.T) {
	svc := newTestService(t, fixedExecutor(models.StatusPassed, models.StatusFailed, models.StatusFailed))

	run, err := svc.RunNow(context.Background(), DefaultJobSlug, TriggerAPI)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, run.Status)
	assert.Equal(t, 2, run.Failed)

	job := svc.jobSnapshot(DefaultJobSlug)
	assert.Equal(t, models.StatusFailed, job.LastStatus)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "2 of 3 scenarios failed", *job.ErrorMessage)
}

func TestRunNowUnknownJob(t *testing.T) {
	svc := newTestService(t, fixedExecutor())
	_, err := svc.RunNow(context.Background(), "nope", TriggerManual)
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestExecutorPanicFailsRun(t *testing.T) {
	svc := newTestService(t, func(context.Context, []string, func(models.ScenarioResult)) []models.ScenarioResult {
		panic("browser crashed")
	})

	run, err := svc.RunNow(context.Background(), "", TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, run.Status)
	assert.Equal(t, "panic: browser crashed", run.Error)

	job := svc.jobSnapshot(DefaultJobSlug)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "panic: browser crashed", *job.ErrorMessage)
}

func TestRunTimeoutIsRecorded(t *testing.T) {
	job := &models.ProbeJob{Slug: "slow", Schedule: "@hourly", TimeoutSeconds: 1}
	svc := newTestService(t, func(ctx context.Context, _ []string, _ func(models.ScenarioResult)) []models.ScenarioResult {
		<-ctx.Done()
		return []models.ScenarioResult{{Suite: "S", Name: "n", Status: models.StatusSkipped}}
	}, WithJobs([]*models.ProbeJob{job}))

	run, err := svc.RunNow(context.Background(), "slow", TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, run.Status)
	assert.Equal(t, "run timed out after 1s", run.Error)
	assert.Equal(t, 1, run.Skipped)
}

func TestStoreErrorDoesNotFailRun(t *testing.T) {
	store := &memoryStore{err: errors.New("disk full")}
	svc := newTestService(t, fixedExecutor(models.StatusPassed), WithStore(store))

	run, err := svc.RunNow(context.Background(), "", TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPassed, run.Status)
	assert.Len(t, store.runs, 1)
}

func TestHeldLockSkipsScheduledRun(t *testing.T) {
	locker := NewLocalLocker()
	reg := prometheus.NewRegistry()
	metrics := MustNewMetrics(reg)

	var calls int
	svc := newTestService(t, func(context.Context, []string, func(models.ScenarioResult)) []models.ScenarioResult {
		calls++
		return nil
	}, WithLocker(locker, time.Minute), WithMetrics(metrics))
	svc.scheduleAllJobs()

	release, ok, err := locker.TryLock(context.Background(), DefaultJobSlug, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	svc.executeJob(DefaultJobSlug, svc.entries[DefaultJobSlug])
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.skipped))
	assert.Empty(t, svc.jobSnapshot(DefaultJobSlug).LastStatus)

	_, err = svc.RunNow(context.Background(), "", TriggerManual)
	assert.ErrorIs(t, err, ErrRunInProgress)

	release()
	svc.executeJob(DefaultJobSlug, svc.entries[DefaultJobSlug])
	assert.Equal(t, 1, calls)
	assert.Equal(t, TriggerSchedule, mustLastRun(t, svc).Trigger)
}

func mustLastRun(t *testing.T, svc *Service) models.Run {
	t.Helper()
	run, ok := svc.LastRun()
	require.True(t, ok)
	return run
}

func TestRunStopsWithContext(t *testing.T) {
	svc := newTestService(t, fixedExecutor())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWithLocationOverridesDefault(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("expected to load test location: %v", err)
	}
	svc := NewService("", fixedExecutor(), WithLocation(loc), WithLogger(quietLogger()))
	now := svc.now()
	if now.Location() != loc {
		t.Fatalf("expected location %s, got %s", loc, now.Location())
	}
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = l.TryLock(ctx, "a", time.Second)
	assert.False(t, ok)

	_, ok, _ = l.TryLock(ctx, "b", time.Second)
	assert.True(t, ok)

	release()
	release()
	_, ok, _ = l.TryLock(ctx, "a", time.Second)
	assert.True(t, ok)
}

func TestRedisLockerKeyAndUnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLocker(client, "todoprobe:")
	assert.Equal(t, "todoprobe:lock:todomvc", l.Key("todomvc"))

	release, ok, err := l.TryLock(context.Background(), "todomvc", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "todoprobe:lock:todomvc")
	assert.False(t, ok)
	assert.Nil(t, release)
}

func TestMustNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNewMetrics(reg)
	second := MustNewMetrics(reg)

	first.runSkipped()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.skipped))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.runStarted()
		nilMetrics.observeRun(models.Run{})
	})
}
