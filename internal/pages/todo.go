package pages

import (
	"errors"
	"fmt"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

// Todo is one row of the list, or every row when built by TodoList.Todos.
// Rows are addressed by position, so a Todo keeps pointing at "the i-th
// row" as rows are added or removed.
type Todo struct {
	self     browser.Locator
	textbox  browser.Locator
	checkbox browser.Locator
	label    browser.Locator
}

func newTodo(self browser.Locator) Todo {
	return Todo{
		self:     self,
		textbox:  self.Role("textbox", EditTextboxName),
		checkbox: self.Role("checkbox", ""),
		label:    self.CSS("label"),
	}
}

// Locator returns the row locator.
func (t Todo) Locator() browser.Locator { return t.self }

// Count returns how many rows the handle matches.
func (t Todo) Count() (int, error) { return t.self.Count() }

// State observes whether the row shows its label or its edit field.
func (t Todo) State() (models.EditState, error) {
	rows, err := t.self.Count()
	if err != nil {
		return models.StateDisplay, err
	}
	switch {
	case rows == 0:
		return models.StateDisplay, browser.NotFound(t.self.Query(), "")
	case rows > 1:
		return models.StateDisplay, browser.Ambiguous(t.self.Query(), rows)
	}
	// hidden edit fields are not exposed with the textbox role
	edits, err := t.textbox.Count()
	if err != nil {
		return models.StateDisplay, err
	}
	if edits > 0 {
		return models.StateEditing, nil
	}
	return models.StateDisplay, nil
}

// require waits for the row to reach want, since the UI settles
// asynchronously after the previous action.
func (t Todo) require(action string, want models.EditState) error {
	var last models.EditState
	var lastErr error
	poller := browser.PollerFor(t.self.Page())
	_, ok := poller.Poll(func() (bool, string, error) {
		last, lastErr = t.State()
		if lastErr != nil {
			return false, "", lastErr
		}
		return last == want, last.String(), nil
	})
	if ok {
		return nil
	}
	if lastErr != nil && (errors.Is(lastErr, browser.ErrNotFound) || errors.Is(lastErr, browser.ErrAmbiguous)) {
		return fmt.Errorf("%s: %w", action, lastErr)
	}
	return browser.Precondition(action, "row %s is %s, want %s", t.self, last, want)
}

// Edit double-clicks the row to open its edit field.
func (t Todo) Edit() error {
	if err := t.require("edit", models.StateDisplay); err != nil {
		return err
	}
	return t.self.DblClick()
}

// Fill replaces the edit field's content without committing it.
func (t Todo) Fill(text string) error {
	if err := t.require("fill", models.StateEditing); err != nil {
		return err
	}
	return t.textbox.Fill(text)
}

// Save fills the edit field and commits with Enter. The app trims the text
// and removes the row when nothing is left.
func (t Todo) Save(text string) error {
	if err := t.Fill(text); err != nil {
		return err
	}
	return t.textbox.Press("Enter")
}

// CancelEdit leaves editing with Escape, discarding the typed text.
func (t Todo) CancelEdit() error {
	if err := t.require("cancel edit", models.StateEditing); err != nil {
		return err
	}
	return t.textbox.Press("Escape")
}

// Blur commits the edit through focus loss.
func (t Todo) Blur() error {
	if err := t.require("blur", models.StateEditing); err != nil {
		return err
	}
	return t.textbox.DispatchEvent("blur")
}

func (t Todo) Complete() error {
	if err := t.require("complete", models.StateDisplay); err != nil {
		return err
	}
	return t.checkbox.Check()
}

func (t Todo) Uncomplete() error {
	if err := t.require("uncomplete", models.StateDisplay); err != nil {
		return err
	}
	return t.checkbox.Uncheck()
}

// TodoAssertions extends the row assertions with completion and editing checks.
type TodoAssertions struct {
	browser.Assertions
	t Todo
}

func (t Todo) Expect() TodoAssertions {
	return TodoAssertions{Assertions: t.self.Expect(), t: t}
}

func (a TodoAssertions) ToBeCompleted() error {
	return a.t.self.Expect().ToHaveClass(CompletedClass)
}

func (a TodoAssertions) NotToBeCompleted() error {
	return a.t.self.Expect().Not().ToHaveClass(CompletedClass)
}

// ToHaveCompleted is ToBeCompleted or NotToBeCompleted depending on completed.
func (a TodoAssertions) ToHaveCompleted(completed bool) error {
	if completed {
		return a.ToBeCompleted()
	}
	return a.NotToBeCompleted()
}

// ToHaveEditableValue expects the edit field to hold value.
func (a TodoAssertions) ToHaveEditableValue(value string) error {
	return a.t.textbox.Expect().ToHaveValue(value)
}

// ToBeEditable expects the label and checkbox to be hidden.
func (a TodoAssertions) ToBeEditable() error {
	if err := a.t.label.Expect().ToBeHidden(); err != nil {
		return err
	}
	return a.t.checkbox.Expect().ToBeHidden()
}
