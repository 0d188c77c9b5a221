package browser

import "time"

// Poller retries a check until it holds or Timeout elapses. Intervals start
// at the entries of Backoff and then stay at MaxInterval.
type Poller struct {
	Timeout     time.Duration
	Backoff     []time.Duration
	MaxInterval time.Duration

	// Sleep and Now are replaceable for tests.
	Sleep func(time.Duration)
	Now   func() time.Time
}

const (
	DefaultExpectTimeout = 5 * time.Second
	DefaultMaxInterval   = time.Second
)

// DefaultPoller mirrors the browser runner's expect() timing: 5s with
// 100/250/500ms then 1s intervals.
func DefaultPoller() Poller {
	return Poller{
		Timeout:     DefaultExpectTimeout,
		Backoff:     []time.Duration{100 * time.Millisecond, 250 * time.Millisecond, 500 * time.Millisecond},
		MaxInterval: DefaultMaxInterval,
	}
}

// Check is one attempt. It returns whether the condition held, a
// human-readable description of what was observed, and any read error.
type Check func() (ok bool, observed string, err error)

// Outcome is what Poll reports when the deadline passes.
type Outcome struct {
	Attempts int
	Observed string
	Err      error
}

// Poll runs check until it succeeds (nil) or the deadline elapses. The
// check always runs at least once, even with a zero timeout.
func (p Poller) Poll(check Check) (Outcome, bool) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	maxInterval := p.MaxInterval
	if maxInterval <= 0 {
		maxInterval = DefaultMaxInterval
	}

	deadline := now().Add(p.Timeout)
	var out Outcome
	for attempt := 0; ; attempt++ {
		ok, observed, err := check()
		out.Attempts++
		out.Observed = observed
		out.Err = err
		if ok && err == nil {
			return out, true
		}

		remaining := deadline.Sub(now())
		if remaining <= 0 {
			return out, false
		}
		interval := maxInterval
		if attempt < len(p.Backoff) {
			interval = p.Backoff[attempt]
		}
		if interval > remaining {
			interval = remaining
		}
		sleep(interval)
	}
}

// Until polls check and converts a timeout into an *AssertionError for q.
func (p Poller) Until(q Query, expectation string, negated bool, check Check) error {
	out, ok := p.Poll(check)
	if ok {
		return nil
	}
	return &AssertionError{
		Query:       q,
		Expectation: expectation,
		Negated:     negated,
		Last:        out.Observed,
		Timeout:     p.Timeout,
		Err:         out.Err,
	}
}

// Wait is Until for a subject that is not an element locator.
func (p Poller) Wait(subject, expectation string, check Check) error {
	out, ok := p.Poll(check)
	if ok {
		return nil
	}
	return &AssertionError{
		Subject:     subject,
		Expectation: expectation,
		Last:        out.Observed,
		Timeout:     p.Timeout,
		Err:         out.Err,
	}
}
