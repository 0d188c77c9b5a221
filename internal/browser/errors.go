package browser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	// ErrNotFound means a query resolved to no actionable element.
	ErrNotFound = errors.New("locator resolved to no element")
	// ErrAmbiguous means a query resolved to several elements where one was required.
	ErrAmbiguous = errors.New("locator resolved to more than one element")
	// ErrTimeout means a polled condition never held before the deadline.
	ErrTimeout = errors.New("assertion timed out")
	// ErrPrecondition means an action was invoked in a state that does not allow it.
	ErrPrecondition = errors.New("action precondition violated")
)

// AssertionError describes a polled expectation that did not hold in time.
type AssertionError struct {
	Query Query
	// Subject replaces the query in the message for checks that are not
	// about an element, such as browser storage.
	Subject     string
	Expectation string
	Negated     bool
	Last        string
	Diff        string
	Timeout     time.Duration
	Err         error
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	b.WriteString("expect(")
	if e.Subject != "" {
		b.WriteString(e.Subject)
	} else {
		b.WriteString(e.Query.String())
	}
	b.WriteString(")")
	if e.Negated {
		b.WriteString(".not")
	}
	b.WriteString(".")
	b.WriteString(e.Expectation)
	fmt.Fprintf(&b, " timed out after %s", e.Timeout)
	if e.Last != "" {
		b.WriteString("; last observed: ")
		b.WriteString(e.Last)
	}
	if e.Err != nil {
		b.WriteString("; last error: ")
		b.WriteString(e.Err.Error())
	}
	if e.Diff != "" {
		b.WriteString("\n")
		b.WriteString(e.Diff)
	}
	return b.String()
}

// Is makes every AssertionError match ErrTimeout.
func (e *AssertionError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *AssertionError) Unwrap() error { return e.Err }

// notFound and ambiguous decorate the sentinels with the offending query.
func notFound(q Query, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: %s", ErrNotFound, q)
	}
	return fmt.Errorf("%w: %s (%s)", ErrNotFound, q, reason)
}

func ambiguous(q Query, n int) error {
	return fmt.Errorf("%w: %s matched %d elements", ErrAmbiguous, q, n)
}

// NotFound builds an ErrNotFound for q; page implementations use it.
func NotFound(q Query, reason string) error { return notFound(q, reason) }

// Ambiguous builds an ErrAmbiguous for q; page implementations use it.
func Ambiguous(q Query, n int) error { return ambiguous(q, n) }

// Precondition builds an ErrPrecondition for an action.
func Precondition(action, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrPrecondition, action, fmt.Sprintf(format, args...))
}

// lineDiff renders expected vs actual lists as a -/+ line diff.
func lineDiff(expected, actual []string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(strings.Join(expected, "\n")+"\n", strings.Join(actual, "\n")+"\n")
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out.WriteString(prefix)
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}
