package pages

import (
	"fmt"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
)

// TodoList owns the rows of the list.
type TodoList struct {
	self browser.Locator
}

func NewTodoList(page browser.Page) TodoList {
	return TodoList{self: browser.NewLocator(page, browser.CSS(AppRootSelector).Role("list", "").First())}
}

// Locator returns the list region.
func (l TodoList) Locator() browser.Locator { return l.self }

// Todos returns a handle on every visible row.
func (l TodoList) Todos() Todo {
	return newTodo(l.self.TestID(TodoItemTestID))
}

// TodoAt returns the i-th visible row, 0-based in document order.
func (l TodoList) TodoAt(i int) Todo {
	return newTodo(l.self.TestID(TodoItemTestID).Nth(i))
}

// Count returns the current number of visible rows.
func (l TodoList) Count() (int, error) {
	return l.Todos().Count()
}

// ForEach applies fn to rows 0..n-1 where n is counted once up front.
// Callers that remove rows inside fn must account for the shift themselves.
func (l TodoList) ForEach(fn func(i int, todo Todo) error) error {
	n, err := l.Count()
	if err != nil {
		return fmt.Errorf("count todos: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := fn(i, l.TodoAt(i)); err != nil {
			return fmt.Errorf("todo %d: %w", i, err)
		}
	}
	return nil
}

// Titles returns the visible row texts.
func (l TodoList) Titles() ([]string, error) {
	texts, err := l.Todos().Locator().InnerTexts()
	if err != nil {
		return nil, err
	}
	for i := range texts {
		texts[i] = browser.NormalizeWhitespace(texts[i])
	}
	return texts, nil
}

// TodoListAssertions extends the list assertions with bulk row checks.
type TodoListAssertions struct {
	browser.Assertions
	l TodoList
}

func (l TodoList) Expect() TodoListAssertions {
	return TodoListAssertions{Assertions: l.self.Expect(), l: l}
}

// ToHaveAllCompleted expects every current row to be completed.
func (a TodoListAssertions) ToHaveAllCompleted() error {
	return a.l.ForEach(func(_ int, todo Todo) error {
		return todo.Expect().ToBeCompleted()
	})
}

// ToHaveNoneCompleted expects no current row to be completed.
func (a TodoListAssertions) ToHaveNoneCompleted() error {
	return a.l.ForEach(func(_ int, todo Todo) error {
		return todo.Expect().NotToBeCompleted()
	})
}

// ToHaveTitles expects exactly these rows, in order.
func (a TodoListAssertions) ToHaveTitles(titles ...string) error {
	return a.l.Todos().Locator().Expect().ToHaveTexts(titles...)
}

// ToHaveCount expects n visible rows.
func (a TodoListAssertions) ToHaveCount(n int) error {
	return a.l.Todos().Locator().Expect().ToHaveCount(n)
}
