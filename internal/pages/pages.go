// Package pages contains the TodoMVC page objects. Each façade narrows the
// page to one region and exposes actions plus polling assertions over it.
package pages

import (
	"github.com/gotrs-io/todomvc-e2e/internal/browser"
)

// UI contract of the TodoMVC app.
const (
	AppRootSelector     = ".todoapp"
	NewTodoPlaceholder  = "What needs to be done?"
	ToggleAllLabel      = "Mark all as complete"
	TodoItemTestID      = "todo-item"
	TodoCountTestID     = "todo-count"
	EditTextboxName     = "Edit"
	ClearCompletedLabel = "Clear completed"

	CompletedClass = "completed"
	SelectedClass  = "selected"
)

// App bundles the façades for one page.
type App struct {
	Page     browser.Page
	Header   Header
	TodoList TodoList
	Footer   Footer
	Storage  Storage
}

// NewApp builds every façade over page. storageKey is the localStorage key
// the app persists under.
func NewApp(page browser.Page, storageKey string) App {
	return App{
		Page:     page,
		Header:   NewHeader(page),
		TodoList: NewTodoList(page),
		Footer:   NewFooter(page),
		Storage:  NewStorage(page, storageKey),
	}
}
