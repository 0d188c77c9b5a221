package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Todo is one item as the TodoMVC app persists it in browser storage.
// The app owns these records; the harness only reads them.
type Todo struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// UnmarshalJSON accepts the id as a string or a number; builds that use
// Date.now() store numeric ids.
func (t *Todo) UnmarshalJSON(data []byte) error {
	type plain Todo
	var aux struct {
		plain
		ID json.RawMessage `json:"id,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Todo(aux.plain)
	t.ID = ""
	if len(aux.ID) == 0 || string(aux.ID) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.ID, &s); err == nil {
		t.ID = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(aux.ID, &n); err != nil {
		return fmt.Errorf("todo id %s: %w", aux.ID, err)
	}
	t.ID = n.String()
	return nil
}

// Filter selects which rows the app shows without changing the stored items.
type Filter string

const (
	FilterAll       Filter = "All"
	FilterActive    Filter = "Active"
	FilterCompleted Filter = "Completed"
)

// Filters lists the footer links in display order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

var titleCaser = cases.Title(language.English)

// ParseFilter accepts any casing of a filter name ("completed", "ACTIVE").
func ParseFilter(name string) (Filter, error) {
	f := Filter(titleCaser.String(strings.TrimSpace(name)))
	for _, known := range Filters {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", name)
}

// Hash returns the route fragment the app uses for the filter.
func (f Filter) Hash() string {
	switch f {
	case FilterActive:
		return "#/active"
	case FilterCompleted:
		return "#/completed"
	default:
		return "#/"
	}
}

// FilterFromHash maps a URL fragment back to its filter; unknown routes show everything.
func FilterFromHash(hash string) Filter {
	switch strings.TrimPrefix(strings.TrimPrefix(hash, "#"), "/") {
	case "active":
		return FilterActive
	case "completed":
		return FilterCompleted
	default:
		return FilterAll
	}
}

// Includes reports whether a todo is visible under the filter.
func (f Filter) Includes(t Todo) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// EditState is the observed state of a single row.
type EditState int

const (
	StateDisplay EditState = iota
	StateEditing
)

func (s EditState) String() string {
	if s == StateEditing {
		return "editing"
	}
	return "display"
}

// CountCompleted returns how many todos are completed.
func CountCompleted(todos []Todo) int {
	n := 0
	for _, t := range todos {
		if t.Completed {
			n++
		}
	}
	return n
}

// Titles returns the titles in order.
func Titles(todos []Todo) []string {
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.Title)
	}
	return out
}
