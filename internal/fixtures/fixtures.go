// Package fixtures holds the test data the scenario catalog types into the app.
package fixtures

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultStorageKey is where the React TodoMVC build keeps its todos.
const DefaultStorageKey = "react-todos"

// Fixtures is the injected test data for one target app.
type Fixtures struct {
	StorageKey string   `yaml:"storage_key" json:"storage_key"`
	Titles     []string `yaml:"titles" json:"titles"`
	Edited     string   `yaml:"edited" json:"edited"`
}

// Default returns the classic TodoMVC titles.
func Default() Fixtures {
	return Fixtures{
		StorageKey: DefaultStorageKey,
		Titles: []string{
			"buy some cheese",
			"feed the cat",
			"book a doctors appointment",
		},
		Edited: "buy some sausages",
	}
}

// Load reads fixtures from a YAML file. Missing fields keep their defaults.
func Load(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("failed to read fixtures %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML fixtures over Default and validates the result.
func Parse(data []byte) (Fixtures, error) {
	f := Default()
	var raw Fixtures
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Fixtures{}, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if raw.StorageKey != "" {
		f.StorageKey = raw.StorageKey
	}
	if len(raw.Titles) > 0 {
		f.Titles = raw.Titles
	}
	if raw.Edited != "" {
		f.Edited = raw.Edited
	}
	if err := f.Validate(); err != nil {
		return Fixtures{}, err
	}
	return f, nil
}

// Validate checks the catalog has enough distinct, non-blank titles to run.
func (f Fixtures) Validate() error {
	if strings.TrimSpace(f.StorageKey) == "" {
		return fmt.Errorf("fixtures: storage_key is required")
	}
	if len(f.Titles) < 3 {
		return fmt.Errorf("fixtures: need at least 3 titles, got %d", len(f.Titles))
	}
	seen := make(map[string]bool, len(f.Titles))
	for i, t := range f.Titles {
		if strings.TrimSpace(t) != t || t == "" {
			return fmt.Errorf("fixtures: title %d (%q) must be non-empty and trimmed", i, t)
		}
		if seen[t] {
			return fmt.Errorf("fixtures: duplicate title %q", t)
		}
		seen[t] = true
	}
	if strings.TrimSpace(f.Edited) == "" {
		return fmt.Errorf("fixtures: edited title is required")
	}
	for _, t := range f.Titles {
		if t == f.Edited {
			return fmt.Errorf("fixtures: edited title %q must differ from the titles", f.Edited)
		}
	}
	return nil
}

// First returns the first n titles.
func (f Fixtures) First(n int) []string {
	if n > len(f.Titles) {
		n = len(f.Titles)
	}
	return append([]string(nil), f.Titles[:n]...)
}

// Without returns the titles with index i removed, in order.
func (f Fixtures) Without(i int) []string {
	out := make([]string, 0, len(f.Titles))
	for j, t := range f.Titles {
		if j != i {
			out = append(out, t)
		}
	}
	return out
}

// Replaced returns the titles with index i replaced by title.
func (f Fixtures) Replaced(i int, title string) []string {
	out := append([]string(nil), f.Titles...)
	if i >= 0 && i < len(out) {
		out[i] = title
	}
	return out
}
