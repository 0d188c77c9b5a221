package probe

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

type options struct {
	Logger    *log.Logger
	Cron      *cron.Cron
	Parser    cron.Parser
	Jobs      []*models.ProbeJob
	Location  *time.Location
	Locker    Locker
	LockTTL   time.Duration
	Store     RunStore
	Metrics   *Metrics
	Observers []Observer
	NewID     func() string
}

// Option applies configuration to the probe service.
type Option func(*options)

func defaultOptions() options {
	return options{Logger: log.Default(), Location: time.UTC, LockTTL: 10 * time.Minute}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithCron supplies a preconfigured cron scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithCronParser allows replacing the cron expression parser.
func WithCronParser(p cron.Parser) Option {
	return func(o *options) {
		o.Parser = p
	}
}

// WithJobs registers explicit job definitions instead of the default job.
func WithJobs(jobs []*models.ProbeJob) Option {
	return func(o *options) {
		o.Jobs = jobs
	}
}

// WithLocation sets the scheduler timezone location.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.Location = loc
	}
}

// WithLocker serialises runs across processes, e.g. through Redis.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(o *options) {
		o.Locker = l
		if ttl > 0 {
			o.LockTTL = ttl
		}
	}
}

// WithStore persists every finished run.
func WithStore(s RunStore) Option {
	return func(o *options) {
		o.Store = s
	}
}

// WithMetrics records runs on the given collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.Metrics = m
	}
}

// WithObserver adds a listener for run progress.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.Observers = append(o.Observers, obs)
	}
}

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.NewID = fn
	}
}
