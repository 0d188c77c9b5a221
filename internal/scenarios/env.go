// Package scenarios is the TodoMVC scenario catalog and the runner that
// executes it against any browser.Page.
package scenarios

import (
	"fmt"
	"log"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
	"github.com/gotrs-io/todomvc-e2e/internal/fixtures"
	"github.com/gotrs-io/todomvc-e2e/internal/pages"
)

// Env is what a scenario sees: a fresh page, the façades over it and the
// injected test data.
type Env struct {
	Page     browser.Page
	BaseURL  string
	Fixtures fixtures.Fixtures
	App      pages.App
	Logger   *log.Logger

	steps []string
}

// NewEnv binds the façades to page.
func NewEnv(page browser.Page, baseURL string, fx fixtures.Fixtures, logger *log.Logger) *Env {
	if logger == nil {
		logger = log.Default()
	}
	return &Env{
		Page:     page,
		BaseURL:  baseURL,
		Fixtures: fx,
		App:      pages.NewApp(page, fx.StorageKey),
		Logger:   logger,
	}
}

// Goto opens the app.
func (e *Env) Goto() error {
	if err := e.Page.Navigate(e.BaseURL); err != nil {
		return fmt.Errorf("failed to open %s: %w", e.BaseURL, err)
	}
	return nil
}

// Step runs fn as a named step. Failed steps keep their name in the error.
func (e *Env) Step(name string, fn func() error) error {
	e.steps = append(e.steps, name)
	if err := fn(); err != nil {
		return fmt.Errorf("step %q: %w", name, err)
	}
	return nil
}

// Steps returns the names of the steps started so far.
func (e *Env) Steps() []string {
	return append([]string(nil), e.steps...)
}

// CreateDefaultTodos adds every fixture title.
func (e *Env) CreateDefaultTodos() error {
	return e.App.Header.AddTodos(e.Fixtures.Titles...)
}

// Total is how many todos CreateDefaultTodos adds.
func (e *Env) Total() int { return len(e.Fixtures.Titles) }

// itemsLeft renders the footer counter the way the app does.
func itemsLeft(n int) string {
	if n == 1 {
		return "1 item left"
	}
	return fmt.Sprintf("%d items left", n)
}

// all runs checks in order and stops at the first error.
func all(checks ...func() error) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
