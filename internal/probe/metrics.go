package probe

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

// Metrics exposes Prometheus collectors for probe runs.
type Metrics struct {
	runs            *prometheus.CounterVec
	scenarios       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	scenarioSeconds *prometheus.HistogramVec
	lastSuccess     prometheus.Gauge
	running         prometheus.Gauge
	skipped         prometheus.Counter
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns the metrics registered with the global registry.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers the collectors on reg, reusing collectors that
// are already registered under the same name. Other errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todoprobe",
			Name:      "runs_total",
			Help:      "Catalog runs by trigger and status.",
		}, []string{"trigger", "status"}),
		scenarios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todoprobe",
			Name:      "scenarios_total",
			Help:      "Scenario outcomes by suite and status.",
		}, []string{"suite", "status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "todoprobe",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a catalog run.",
			Buckets:   []float64{5, 10, 20, 30, 60, 120, 300},
		}),
		scenarioSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "todoprobe",
			Name:      "scenario_duration_seconds",
			Help:      "Wall time of a single scenario.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"suite"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "todoprobe",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run in which every scenario passed.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "todoprobe",
			Name:      "runs_in_progress",
			Help:      "Catalog runs currently executing.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "todoprobe",
			Name:      "runs_skipped_total",
			Help:      "Scheduled runs skipped because another run held the lock.",
		}),
	}

	register := func(c prometheus.Collector) prometheus.Collector {
		if err := reg.Register(c); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				return already.ExistingCollector
			}
			panic(err)
		}
		return c
	}
	m.runs = register(m.runs).(*prometheus.CounterVec)
	m.scenarios = register(m.scenarios).(*prometheus.CounterVec)
	m.runDuration = register(m.runDuration).(prometheus.Histogram)
	m.scenarioSeconds = register(m.scenarioSeconds).(*prometheus.HistogramVec)
	m.lastSuccess = register(m.lastSuccess).(prometheus.Gauge)
	m.running = register(m.running).(prometheus.Gauge)
	m.skipped = register(m.skipped).(prometheus.Counter)
	return m
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.running.Inc()
}

func (m *Metrics) runSkipped() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}

func (m *Metrics) observeScenario(res models.ScenarioResult) {
	if m == nil {
		return
	}
	m.scenarios.WithLabelValues(res.Suite, res.Status).Inc()
	m.scenarioSeconds.WithLabelValues(res.Suite).Observe(res.Duration.Seconds())
}

func (m *Metrics) observeRun(run models.Run) {
	if m == nil {
		return
	}
	m.running.Dec()
	m.runs.WithLabelValues(run.Trigger, run.Status).Inc()
	m.runDuration.Observe(run.Duration().Seconds())
	if run.Status == models.StatusPassed {
		m.lastSuccess.Set(float64(run.FinishedAt.UnixNano()) / float64(time.Second))
	}
}
