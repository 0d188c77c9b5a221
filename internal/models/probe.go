package models

import "time"

// ProbeJob is the in-memory state of a scheduled catalog run.
type ProbeJob struct {
	Name           string
	Slug           string
	Schedule       string
	TimeoutSeconds int
	Suites         []string
	LastRunID      string
	LastRunAt      *time.Time
	NextRunAt      *time.Time
	LastStatus     string
	ErrorMessage   *string
	LastDurationMS int64
}

// Clone returns a deep copy of the job so schedule mutations stay isolated.
func (j *ProbeJob) Clone() *ProbeJob {
	if j == nil {
		return nil
	}
	copy := *j
	if j.Suites != nil {
		copy.Suites = append([]string(nil), j.Suites...)
	}
	if j.LastRunAt != nil {
		lr := *j.LastRunAt
		copy.LastRunAt = &lr
	}
	if j.NextRunAt != nil {
		nr := *j.NextRunAt
		copy.NextRunAt = &nr
	}
	if j.ErrorMessage != nil {
		err := *j.ErrorMessage
		copy.ErrorMessage = &err
	}
	return &copy
}
