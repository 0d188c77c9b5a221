package pages

import (
	"fmt"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
)

// Header owns the new-todo input and the mark-all toggle.
type Header struct {
	self      browser.Locator
	input     browser.Locator
	toggleAll browser.Locator
}

func NewHeader(page browser.Page) Header {
	self := browser.NewLocator(page, browser.CSS(AppRootSelector).CSS("header"))
	return Header{
		self:  self,
		input: self.Placeholder(NewTodoPlaceholder),
		// the toggle sits in the main section, not inside <header>
		toggleAll: browser.NewLocator(page, browser.Label(ToggleAllLabel)),
	}
}

// Locator returns the header region.
func (h Header) Locator() browser.Locator { return h.self }

// AddTodo types text into the input and submits it with Enter.
func (h Header) AddTodo(text string) error {
	if err := h.input.Fill(text); err != nil {
		return fmt.Errorf("add todo %q: %w", text, err)
	}
	if err := h.input.Press("Enter"); err != nil {
		return fmt.Errorf("add todo %q: %w", text, err)
	}
	return nil
}

// AddTodos adds each title in order.
func (h Header) AddTodos(titles ...string) error {
	for _, title := range titles {
		if err := h.AddTodo(title); err != nil {
			return err
		}
	}
	return nil
}

func (h Header) CompleteAll() error {
	if err := h.toggleAll.Check(); err != nil {
		return fmt.Errorf("complete all: %w", err)
	}
	return nil
}

func (h Header) UncompleteAll() error {
	if err := h.toggleAll.Uncheck(); err != nil {
		return fmt.Errorf("uncomplete all: %w", err)
	}
	return nil
}

// HeaderAssertions extends the region assertions with header checks.
type HeaderAssertions struct {
	browser.Assertions
	h Header
}

func (h Header) Expect() HeaderAssertions {
	return HeaderAssertions{Assertions: h.self.Expect(), h: h}
}

// ToHaveEmptyInput expects the new-todo input to be cleared.
func (a HeaderAssertions) ToHaveEmptyInput() error {
	return a.h.input.Expect().ToBeEmpty()
}

// ToAllowUncompleteAll expects the toggle to be checked when allow is true
// and unchecked otherwise.
func (a HeaderAssertions) ToAllowUncompleteAll(allow bool) error {
	return a.h.toggleAll.Expect().ToHaveChecked(allow)
}
