package browser

import (
	"fmt"
	"strconv"
	"strings"
)

// StepKind identifies how a query step narrows the current element set.
type StepKind int

const (
	StepCSS StepKind = iota
	StepRole
	StepPlaceholder
	StepLabel
	StepTestID
	StepNth
)

// Step is one link in a locator chain.
type Step struct {
	Kind  StepKind
	Value string
	Name  string
	Exact bool
	Index int
}

func (s Step) String() string {
	switch s.Kind {
	case StepCSS:
		return "css=" + s.Value
	case StepRole:
		if s.Name == "" {
			return "role=" + s.Value
		}
		return fmt.Sprintf("role=%s[name=%s]", s.Value, quote(s.Name, s.Exact))
	case StepPlaceholder:
		return "placeholder=" + quote(s.Value, s.Exact)
	case StepLabel:
		return "label=" + quote(s.Value, s.Exact)
	case StepTestID:
		return "testid=" + strconv.Quote(s.Value)
	case StepNth:
		return "nth=" + strconv.Itoa(s.Index)
	default:
		return "unknown"
	}
}

func quote(v string, exact bool) string {
	q := strconv.Quote(v)
	if !exact {
		q += "i"
	}
	return q
}

// Query is an immutable description of a set of elements. Two queries built
// from the same steps are interchangeable; nothing is resolved until a Page
// acts on or reads through the query.
type Query struct {
	steps []Step
}

// Root matches the document itself.
func Root() Query { return Query{} }

// CSS starts a query at the elements matching selector.
func CSS(selector string) Query { return Root().CSS(selector) }

// Role starts a query at the visible elements with the ARIA role.
func Role(role, name string) Query { return Root().Role(role, name) }

// Label starts a query at the form controls labelled text.
func Label(text string) Query { return Root().Label(text) }

// Placeholder starts a query at the inputs whose placeholder matches text.
func Placeholder(text string) Query { return Root().Placeholder(text) }

// TestID starts a query at the elements carrying data-testid=id.
func TestID(id string) Query { return Root().TestID(id) }

func (q Query) with(s Step) Query {
	steps := make([]Step, len(q.steps), len(q.steps)+1)
	copy(steps, q.steps)
	return Query{steps: append(steps, s)}
}

// CSS narrows to descendants matching selector.
func (q Query) CSS(selector string) Query {
	return q.with(Step{Kind: StepCSS, Value: selector})
}

// Role narrows to visible descendants with role whose accessible name contains
// name (case-insensitive). An empty name matches any element with the role.
func (q Query) Role(role, name string) Query {
	return q.with(Step{Kind: StepRole, Value: role, Name: name})
}

// RoleExact is Role with a whole-string, case-sensitive name match.
func (q Query) RoleExact(role, name string) Query {
	return q.with(Step{Kind: StepRole, Value: role, Name: name, Exact: true})
}

// Placeholder narrows to descendant inputs whose placeholder contains text.
func (q Query) Placeholder(text string) Query {
	return q.with(Step{Kind: StepPlaceholder, Value: text})
}

// Label narrows to descendant controls whose label or aria-label contains text.
func (q Query) Label(text string) Query {
	return q.with(Step{Kind: StepLabel, Value: text})
}

// TestID narrows to descendants carrying data-testid=id.
func (q Query) TestID(id string) Query {
	return q.with(Step{Kind: StepTestID, Value: id, Exact: true})
}

// Nth picks the i-th match in document order; negative indexes count from the end.
func (q Query) Nth(i int) Query {
	return q.with(Step{Kind: StepNth, Index: i})
}

// First is Nth(0).
func (q Query) First() Query { return q.Nth(0) }

// Last is Nth(-1).
func (q Query) Last() Query { return q.Nth(-1) }

// Steps returns a copy of the chain.
func (q Query) Steps() []Step {
	out := make([]Step, len(q.steps))
	copy(out, q.steps)
	return out
}

// IsRoot reports whether the query has no steps.
func (q Query) IsRoot() bool { return len(q.steps) == 0 }

// String renders the chain in a selector-like form, e.g.
// css=footer >> role=button[name="Clear completed"i].
func (q Query) String() string {
	if len(q.steps) == 0 {
		return ":root"
	}
	parts := make([]string, len(q.steps))
	for i, s := range q.steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " >> ")
}

// Equal reports structural equality.
func (q Query) Equal(other Query) bool {
	if len(q.steps) != len(other.steps) {
		return false
	}
	for i := range q.steps {
		if q.steps[i] != other.steps[i] {
			return false
		}
	}
	return true
}

// MatchText applies the browser's text matching rules: exact compares whole
// strings, otherwise a case-insensitive substring match after whitespace
// normalisation.
func MatchText(actual, expected string, exact bool) bool {
	actual = NormalizeWhitespace(actual)
	expected = NormalizeWhitespace(expected)
	if exact {
		return actual == expected
	}
	return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
}

// NormalizeWhitespace trims and collapses runs of whitespace into one space.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
