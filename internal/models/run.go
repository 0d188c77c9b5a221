package models

import "time"

// Result statuses shared by scenarios and runs.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ScenarioResult is the outcome of one catalog scenario.
type ScenarioResult struct {
	RunID      string        `json:"run_id" db:"run_id"`
	Suite      string        `json:"suite" db:"suite"`
	Name       string        `json:"name" db:"name"`
	Status     string        `json:"status" db:"status"`
	DurationMS int64         `json:"duration_ms" db:"duration_ms"`
	Error      string        `json:"error,omitempty" db:"error"`
	Steps      []string      `json:"steps,omitempty" db:"-"`
	Duration   time.Duration `json:"-" db:"-"`
}

// FullName is "Suite/Name", the form used by filters and metrics.
func (r ScenarioResult) FullName() string {
	return r.Suite + "/" + r.Name
}

// Run is one pass over the scenario catalog.
type Run struct {
	ID         string           `json:"id" db:"id"`
	BaseURL    string           `json:"base_url" db:"base_url"`
	Trigger    string           `json:"trigger" db:"triggered_by"`
	Status     string           `json:"status" db:"status"`
	Passed     int              `json:"passed" db:"passed"`
	Failed     int              `json:"failed" db:"failed"`
	Skipped    int              `json:"skipped" db:"skipped"`
	Error      string           `json:"error,omitempty" db:"error"`
	StartedAt  time.Time        `json:"started_at" db:"started_at"`
	FinishedAt time.Time        `json:"finished_at" db:"finished_at"`
	Results    []ScenarioResult `json:"results,omitempty" db:"-"`
}

// Tally recomputes the counters and the overall status from Results.
func (r *Run) Tally() {
	r.Passed, r.Failed, r.Skipped = 0, 0, 0
	for _, res := range r.Results {
		switch res.Status {
		case StatusPassed:
			r.Passed++
		case StatusFailed:
			r.Failed++
		default:
			r.Skipped++
		}
	}
	r.Status = StatusPassed
	if r.Failed > 0 || r.Error != "" {
		r.Status = StatusFailed
	}
}

// Duration is the wall time of the run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
