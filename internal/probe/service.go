// Package probe runs the scenario catalog on a schedule against a live
// TodoMVC deployment and records the outcome.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerAPI      = "api"

	DefaultJobSlug = "todomvc"
)

var (
	// ErrRunInProgress means the job's lock is held by another run.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrUnknownJob means no job is registered under the slug.
	ErrUnknownJob = errors.New("unknown probe job")
)

// Executor runs the selected suites (all when empty) and reports each
// scenario through onResult as it finishes.
type Executor func(ctx context.Context, suites []string, onResult func(models.ScenarioResult)) []models.ScenarioResult

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.Run) error
}

// Observer is notified of run progress. Calls happen on the run goroutine.
type Observer interface {
	RunStarted(run models.Run)
	ScenarioFinished(runID string, res models.ScenarioResult)
	RunFinished(run models.Run)
}

// Service coordinates scheduled catalog runs.
type Service struct {
	baseURL   string
	exec      Executor
	cron      *cron.Cron
	parser    cron.Parser
	entries   map[string]cron.EntryID
	jobs      map[string]*models.ProbeJob
	lastRun   *models.Run
	mu        sync.RWMutex
	rootCtx   context.Context
	logger    *log.Logger
	startOnce sync.Once
	stopOnce  sync.Once
	location  *time.Location
	locker    Locker
	lockTTL   time.Duration
	store     RunStore
	metrics   *Metrics
	observers []Observer
	newID     func() string
}

// NewService wires a scheduler that runs exec against baseURL.
func NewService(baseURL string, exec Executor, opts ...Option) *Service {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = log.Default()
	}

	location := options.Location
	if location == nil {
		location = time.UTC
	}

	cronEngine := options.Cron
	if cronEngine == nil {
		cronEngine = cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(options.Logger))),
		)
	}
	var zeroParser cron.Parser
	parser := options.Parser
	if parser == zeroParser {
		parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	}

	locker := options.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	newID := options.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	jobs := make(map[string]*models.ProbeJob)
	defs := options.Jobs
	if len(defs) == 0 {
		defs = defaultJobs()
	}
	for _, job := range defs {
		if job == nil || job.Slug == "" || job.Schedule == "" {
			continue
		}
		jobs[job.Slug] = job.Clone()
	}

	return &Service{
		baseURL:   baseURL,
		exec:      exec,
		cron:      cronEngine,
		parser:    parser,
		entries:   make(map[string]cron.EntryID),
		jobs:      jobs,
		logger:    options.Logger,
		location:  location,
		locker:    locker,
		lockTTL:   options.LockTTL,
		store:     options.Store,
		metrics:   options.Metrics,
		observers: options.Observers,
		newID:     newID,
	}
}

func defaultJobs() []*models.ProbeJob {
	return []*models.ProbeJob{{
		Name:           "TodoMVC catalog",
		Slug:           DefaultJobSlug,
		Schedule:       "@every 15m",
		TimeoutSeconds: 300,
	}}
}

// Run starts the scheduler loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.rootCtx = ctx
		s.mu.Unlock()
		s.scheduleAllJobs()
		s.cron.Start()
		s.logger.Printf("probe: scheduler started for %s", s.baseURL)
	})

	<-ctx.Done()
	s.stopCron()
	return nil
}

func (s *Service) scheduleAllJobs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for slug, job := range s.jobs {
		if job == nil {
			continue
		}
		if err := s.addJobLocked(job.Clone()); err != nil {
			s.logger.Printf("probe: failed to schedule job %s: %v", slug, err)
		}
	}
}

func (s *Service) stopCron() {
	s.stopOnce.Do(func() {
		ctx := s.cron.Stop()
		if ctx == nil {
			return
		}
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			s.logger.Printf("probe: timed out waiting for runs to finish")
		}
	})
}

func (s *Service) addJobLocked(job *models.ProbeJob) error {
	schedule, err := s.parser.Parse(job.Schedule)
	if err != nil {
		return err
	}

	slug := job.Slug
	var entryID cron.EntryID
	entryID = s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.executeJob(slug, entryID)
	}))

	s.entries[slug] = entryID
	s.jobs[slug] = job
	if next := schedule.Next(s.now()); !next.IsZero() {
		job.NextRunAt = &next
	}
	return nil
}

func (s *Service) executeJob(slug string, entryID cron.EntryID) {
	job := s.jobSnapshot(slug)
	if job == nil {
		return
	}

	s.mu.RLock()
	ctx := s.rootCtx
	s.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}

	run, err := s.execute(ctx, job, TriggerSchedule)
	if errors.Is(err, ErrRunInProgress) {
		s.logger.Printf("probe: skipping %s, previous run still holds the lock", slug)
		s.metrics.runSkipped()
		return
	}
	s.finalizeRun(job, slug, entryID, run, err)
}

// RunNow runs a job immediately and waits for it to finish.
func (s *Service) RunNow(ctx context.Context, slug, trigger string) (*models.Run, error) {
	if slug == "" {
		slug = DefaultJobSlug
	}
	job := s.jobSnapshot(slug)
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, slug)
	}
	run, err := s.execute(ctx, job, trigger)
	if errors.Is(err, ErrRunInProgress) {
		return nil, err
	}
	s.mu.RLock()
	entryID := s.entries[slug]
	s.mu.RUnlock()
	s.finalizeRun(job, slug, entryID, run, err)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Service) execute(ctx context.Context, job *models.ProbeJob, trigger string) (models.Run, error) {
	release, ok, err := s.locker.TryLock(ctx, job.Slug, s.lockTTL)
	if err != nil {
		return models.Run{}, fmt.Errorf("lock %s: %w", job.Slug, err)
	}
	if !ok {
		return models.Run{}, ErrRunInProgress
	}
	defer release()

	runCtx := ctx
	var cancel context.CancelFunc
	if job.TimeoutSeconds > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(job.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	run := models.Run{
		ID:        s.newID(),
		BaseURL:   s.baseURL,
		Trigger:   trigger,
		StartedAt: s.now(),
	}
	s.logger.Printf("probe: run %s started (%s)", run.ID, trigger)
	s.metrics.runStarted()
	for _, obs := range s.observers {
		obs.RunStarted(run)
	}

	onResult := func(res models.ScenarioResult) {
		res.RunID = run.ID
		s.metrics.observeScenario(res)
		for _, obs := range s.observers {
			obs.ScenarioFinished(run.ID, res)
		}
	}

	var results []models.ScenarioResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				run.Error = fmt.Sprintf("panic: %v", r)
			}
		}()
		results = s.exec(runCtx, job.Suites, onResult)
	}()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && run.Error == "" {
		run.Error = fmt.Sprintf("run timed out after %ds", job.TimeoutSeconds)
	}

	run.Results = make([]models.ScenarioResult, len(results))
	for i, res := range results {
		res.RunID = run.ID
		run.Results[i] = res
	}
	run.FinishedAt = s.now()
	run.Tally()

	if s.store != nil {
		// the run already happened; persist even if ctx is done
		saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := s.store.SaveRun(saveCtx, &run); err != nil {
			s.logger.Printf("probe: failed to save run %s: %v", run.ID, err)
		}
		cancelSave()
	}

	s.metrics.observeRun(run)
	for _, obs := range s.observers {
		obs.RunFinished(run)
	}
	s.logger.Printf("probe: run %s %s: %d passed, %d failed, %d skipped in %s",
		run.ID, run.Status, run.Passed, run.Failed, run.Skipped, run.Duration().Round(time.Millisecond))

	s.mu.Lock()
	last := run
	s.lastRun = &last
	s.mu.Unlock()
	return run, nil
}

func (s *Service) finalizeRun(job *models.ProbeJob, slug string, entryID cron.EntryID, run models.Run, runErr error) {
	cloned := job.Clone()
	finish := run.FinishedAt
	if finish.IsZero() {
		finish = s.now()
	}
	cloned.LastRunAt = &finish
	cloned.LastRunID = run.ID
	cloned.LastDurationMS = run.Duration().Milliseconds()

	switch {
	case runErr != nil:
		cloned.LastStatus = models.StatusFailed
		msg := runErr.Error()
		cloned.ErrorMessage = &msg
	case run.Status == models.StatusFailed:
		cloned.LastStatus = models.StatusFailed
		msg := run.Error
		if msg == "" {
			msg = fmt.Sprintf("%d of %d scenarios failed", run.Failed, len(run.Results))
		}
		cloned.ErrorMessage = &msg
	default:
		cloned.LastStatus = run.Status
		cloned.ErrorMessage = nil
	}

	if entry := s.cron.Entry(entryID); entry.ID != 0 && !entry.Next.IsZero() {
		next := entry.Next.In(s.location)
		cloned.NextRunAt = &next
	}

	s.applyExecutionResult(slug, cloned)
}

func (s *Service) now() time.Time {
	if s.location == nil {
		return time.Now()
	}
	return time.Now().In(s.location)
}

func (s *Service) applyExecutionResult(slug string, job *models.ProbeJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[slug] = job.Clone()
}

func (s *Service) jobSnapshot(slug string) *models.ProbeJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if job, ok := s.jobs[slug]; ok {
		return job.Clone()
	}
	return nil
}

// Jobs returns a snapshot of every job ordered by slug.
func (s *Service) Jobs() []*models.ProbeJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ProbeJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// LastRun returns the most recent finished run of any job.
func (s *Service) LastRun() (models.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return models.Run{}, false
	}
	return *s.lastRun, true
}
