package scenarios

import (
	"strings"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

// Scenario is one test case.
type Scenario struct {
	Name string
	Run  func(e *Env) error
}

// Suite groups scenarios sharing setup and teardown. AfterEach runs only
// when BeforeEach and the scenario succeeded.
type Suite struct {
	Name       string
	BeforeEach func(e *Env) error
	AfterEach  func(e *Env) error
	Scenarios  []Scenario
}

// Catalog returns the full TodoMVC catalog in execution order.
func Catalog() []Suite {
	return []Suite{
		newTodoSuite(),
		markAllSuite(),
		itemSuite(),
		editingSuite(),
		counterSuite(),
		clearCompletedSuite(),
		persistenceSuite(),
		routingSuite(),
	}
}

// Select keeps the scenarios whose "Suite/Name" contains any of the
// patterns, case-insensitively. No patterns keeps everything.
func Select(suites []Suite, patterns ...string) []Suite {
	if len(patterns) == 0 {
		return suites
	}
	var out []Suite
	for _, s := range suites {
		kept := s
		kept.Scenarios = nil
		for _, sc := range s.Scenarios {
			full := strings.ToLower(s.Name + "/" + sc.Name)
			for _, p := range patterns {
				if strings.Contains(full, strings.ToLower(p)) {
					kept.Scenarios = append(kept.Scenarios, sc)
					break
				}
			}
		}
		if len(kept.Scenarios) > 0 {
			out = append(out, kept)
		}
	}
	return out
}

// Names lists "Suite/Name" for every scenario.
func Names(suites []Suite) []string {
	var out []string
	for _, s := range suites {
		for _, sc := range s.Scenarios {
			out = append(out, models.ScenarioResult{Suite: s.Name, Name: sc.Name}.FullName())
		}
	}
	return out
}

func newTodoSuite() Suite {
	return Suite{
		Name: "New Todo",
		Scenarios: []Scenario{
			{"should allow me to add todo items", func(e *Env) error {
				fx, app := e.Fixtures, e.App
				return all(
					func() error { return app.Header.AddTodo(fx.Titles[0]) },
					func() error { return app.TodoList.Expect().ToHaveTitles(fx.Titles[0]) },
					func() error { return app.Header.AddTodo(fx.Titles[1]) },
					func() error { return app.TodoList.Expect().ToHaveTitles(fx.First(2)...) },
					func() error { return app.Storage.Expect().ToHaveCount(2) },
				)
			}},
			{"should clear text input field when an item is added", func(e *Env) error {
				app := e.App
				return all(
					func() error { return app.Header.AddTodo(e.Fixtures.Titles[0]) },
					app.Header.Expect().ToHaveEmptyInput,
					func() error { return app.Storage.Expect().ToHaveCount(1) },
				)
			}},
			{"should append new items to the bottom of the list", func(e *Env) error {
				app := e.App
				return all(
					e.CreateDefaultTodos,
					app.Footer.Expect().ToHaveVisibleCount,
					func() error { return app.Footer.Expect().ToHaveCountText(itemsLeft(e.Total())) },
					func() error { return app.TodoList.Expect().ToHaveTitles(e.Fixtures.Titles...) },
					func() error { return app.Storage.Expect().ToHaveCount(e.Total()) },
				)
			}},
		},
	}
}

func markAllSuite() Suite {
	return Suite{
		Name: "Mark all as completed",
		BeforeEach: func(e *Env) error {
			return all(
				e.CreateDefaultTodos,
				func() error { return e.App.Storage.Expect().ToHaveCount(e.Total()) },
			)
		},
		AfterEach: func(e *Env) error {
			return e.App.Storage.Expect().ToHaveCount(e.Total())
		},
		Scenarios: []Scenario{
			{"should allow me to mark all items as completed", func(e *Env) error {
				app := e.App
				return all(
					app.Header.CompleteAll,
					app.TodoList.Expect().ToHaveAllCompleted,
					func() error { return app.Storage.Expect().ToHaveCompletedCount(e.Total()) },
				)
			}},
			{"should allow me to clear the complete state of all items", func(e *Env) error {
				app := e.App
				return all(
					app.Header.CompleteAll,
					app.Header.UncompleteAll,
					app.TodoList.Expect().ToHaveNoneCompleted,
				)
			}},
			{"complete all checkbox should update state when items are completed / cleared", func(e *Env) error {
				app := e.App
				first := app.TodoList.TodoAt(0)
				return all(
					app.Header.CompleteAll,
					func() error { return app.Header.Expect().ToAllowUncompleteAll(true) },
					func() error { return app.Storage.Expect().ToHaveCompletedCount(e.Total()) },
					first.Uncomplete,
					func() error { return app.Header.Expect().ToAllowUncompleteAll(false) },
					first.Complete,
					func() error { return app.Storage.Expect().ToHaveCompletedCount(e.Total()) },
					func() error { return app.Header.Expect().ToAllowUncompleteAll(true) },
				)
			}},
		},
	}
}

func itemSuite() Suite {
	return Suite{
		Name: "Item",
		Scenarios: []Scenario{
			{"should allow me to mark items as complete", func(e *Env) error {
				app := e.App
				first, second := app.TodoList.TodoAt(0), app.TodoList.TodoAt(1)
				return all(
					func() error { return app.Header.AddTodos(e.Fixtures.First(2)...) },
					first.Complete,
					first.Expect().ToBeCompleted,
					second.Expect().NotToBeCompleted,
					second.Complete,
					first.Expect().ToBeCompleted,
					second.Expect().ToBeCompleted,
				)
			}},
			{"should allow me to un-mark items as complete", func(e *Env) error {
				app := e.App
				first, second := app.TodoList.TodoAt(0), app.TodoList.TodoAt(1)
				return all(
					func() error { return app.Header.AddTodos(e.Fixtures.First(2)...) },
					first.Complete,
					first.Expect().ToBeCompleted,
					second.Expect().NotToBeCompleted,
					func() error { return app.Storage.Expect().ToHaveCompletedCount(1) },
					first.Uncomplete,
					first.Expect().NotToBeCompleted,
					second.Expect().NotToBeCompleted,
					func() error { return app.Storage.Expect().ToHaveCompletedCount(0) },
				)
			}},
			{"should allow me to edit an item", func(e *Env) error {
				fx, app := e.Fixtures, e.App
				second := app.TodoList.TodoAt(1)
				return all(
					e.CreateDefaultTodos,
					second.Edit,
					func() error { return second.Expect().ToHaveEditableValue(fx.Titles[1]) },
					func() error { return second.Save(fx.Edited) },
					func() error { return app.TodoList.Expect().ToHaveTitles(fx.Replaced(1, fx.Edited)...) },
					func() error { return app.Storage.Expect().ToContainTitle(fx.Edited) },
				)
			}},
		},
	}
}

func editingSuite() Suite {
	return Suite{
		Name: "Editing",
		BeforeEach: func(e *Env) error {
			return all(
				e.CreateDefaultTodos,
				func() error { return e.App.Storage.Expect().ToHaveCount(e.Total()) },
			)
		},
		Scenarios: []Scenario{
			{"should hide other controls when editing", func(e *Env) error {
				second := e.App.TodoList.TodoAt(1)
				return all(
					second.Edit,
					second.Expect().ToBeEditable,
					func() error { return e.App.Storage.Expect().ToHaveCount(e.Total()) },
				)
			}},
			{"should save edits on blur", func(e *Env) error {
				fx, app := e.Fixtures, e.App
				second := app.TodoList.TodoAt(1)
				return all(
					second.Edit,
					func() error { return second.Fill(fx.Edited) },
					second.Blur,
					func() error { return app.TodoList.Expect().ToHaveTitles(fx.Replaced(1, fx.Edited)...) },
					func() error { return app.Storage.Expect().ToContainTitle(fx.Edited) },
				)
			}},
			{"should trim entered text", func(e *Env) error {
				fx, app := e.Fixtures, e.App
				second := app.TodoList.TodoAt(1)
				return all(
					second.Edit,
					func() error { return second.Save("    " + fx.Edited + "    ") },
					func() error { return app.TodoList.Expect().ToHaveTitles(fx.Replaced(1, fx.Edited)...) },
					func() error { return app.Storage.Expect().ToContainTitle(fx.Edited) },
				)
			}},
			{"should remove the item if an empty text string was entered", func(e *Env) error {
				fx, app := e.Fixtures, e.App
				second := app.TodoList.TodoAt(1)
				return all(
					second.Edit,
					func() error { return second.Save("") },
					func() error { return app.TodoList.Expect().ToHaveTitles(fx.Without(1)...) },
				)
			}},
			{"should cancel edits on escape", func(e *Env) error {
				fx, app := e.Fixtures, e.App
				second := app.TodoList.TodoAt(1)
				return all(
					second.Edit,
					second.CancelEdit,
					func() error { return app.TodoList.Expect().ToHaveTitles(fx.Titles...) },
				)
			}},
		},
	}
}

func counterSuite() Suite {
	return Suite{
		Name: "Counter",
		Scenarios: []Scenario{
			{"should display the current number of todo items", func(e *Env) error {
				fx, app := e.Fixtures, e.App
				return all(
					func() error { return app.Header.AddTodo(fx.Titles[0]) },
					func() error { return app.Footer.Expect().ToHaveCountText(itemsLeft(1)) },
					func() error { return app.Header.AddTodo(fx.Titles[1]) },
					func() error { return app.Footer.Expect().ToHaveCountText(itemsLeft(2)) },
					func() error { return app.Storage.Expect().ToHaveCount(2) },
				)
			}},
		},
	}
}

func clearCompletedSuite() Suite {
	return Suite{
		Name: "Clear completed button",
		BeforeEach: func(e *Env) error {
			return e.CreateDefaultTodos()
		},
		Scenarios: []Scenario{
			{"should display the correct text", func(e *Env) error {
				app := e.App
				return all(
					app.TodoList.TodoAt(0).Complete,
					func() error { return app.Footer.Expect().ToAllowClearingCompleted(true) },
				)
			}},
			{"should remove completed items when clicked", func(e *Env) error {
				fx, app := e.Fixtures, e.App
				return all(
					app.TodoList.TodoAt(1).Complete,
					app.Footer.ClearCompleted,
					func() error { return app.TodoList.Expect().ToHaveTitles(fx.Without(1)...) },
				)
			}},
			{"should be hidden when there are no items that are completed", func(e *Env) error {
				app := e.App
				return all(
					app.TodoList.TodoAt(1).Complete,
					app.Footer.ClearCompleted,
					func() error { return app.Footer.Expect().ToAllowClearingCompleted(false) },
				)
			}},
		},
	}
}

func persistenceSuite() Suite {
	return Suite{
		Name: "Persistence",
		Scenarios: []Scenario{
			{"should persist its data", func(e *Env) error {
				fx, app := e.Fixtures, e.App
				first, second := app.TodoList.TodoAt(0), app.TodoList.TodoAt(1)
				want := []models.Todo{
					{Title: fx.Titles[0], Completed: true},
					{Title: fx.Titles[1]},
				}
				err := e.Step("add and complete", func() error {
					return all(
						func() error { return app.Header.AddTodos(fx.First(2)...) },
						first.Complete,
						first.Expect().ToBeCompleted,
						func() error { return app.TodoList.Expect().ToHaveTitles(fx.First(2)...) },
						second.Expect().NotToBeCompleted,
						func() error { return app.Storage.Expect().ToHaveCompletedCount(1) },
						func() error { return app.Storage.Expect().ToEqual(want) },
					)
				})
				if err != nil {
					return err
				}
				return e.Step("reload", func() error {
					return all(
						e.Page.Reload,
						func() error { return app.TodoList.Expect().ToHaveTitles(fx.First(2)...) },
						first.Expect().ToBeCompleted,
						second.Expect().NotToBeCompleted,
					)
				})
			}},
		},
	}
}

func routingSuite() Suite {
	return Suite{
		Name: "Routing",
		BeforeEach: func(e *Env) error {
			return all(
				e.CreateDefaultTodos,
				// the app must have saved before navigating or items can get lost
				func() error { return e.App.Storage.Expect().ToContainTitle(e.Fixtures.Titles[0]) },
			)
		},
		Scenarios: []Scenario{
			{"should allow me to display active items", func(e *Env) error {
				fx, app := e.Fixtures, e.App
				return all(
					app.TodoList.TodoAt(1).Complete,
					func() error { return app.Storage.Expect().ToHaveCompletedCount(1) },
					func() error { return app.Footer.SelectLink("Active") },
					func() error { return app.TodoList.Expect().ToHaveTitles(fx.Without(1)...) },
				)
			}},
			{"should respect the back button", func(e *Env) error {
				app := e.App
				err := all(
					app.TodoList.TodoAt(1).Complete,
					func() error { return app.Storage.Expect().ToHaveCompletedCount(1) },
					func() error {
						return e.Step("Showing all items", func() error {
							return all(
								func() error { return app.Footer.SelectLink("All") },
								func() error { return app.TodoList.Expect().ToHaveCount(e.Total()) },
							)
						})
					},
					func() error {
						return e.Step("Showing active items", func() error { return app.Footer.SelectLink("Active") })
					},
					func() error {
						return e.Step("Showing completed items", func() error { return app.Footer.SelectLink("Completed") })
					},
				)
				if err != nil {
					return err
				}
				return all(
					func() error { return app.TodoList.Expect().ToHaveCount(1) },
					e.Page.GoBack,
					func() error { return app.TodoList.Expect().ToHaveCount(e.Total() - 1) },
					e.Page.GoBack,
					func() error { return app.TodoList.Expect().ToHaveCount(e.Total()) },
				)
			}},
			{"should allow me to display completed items", func(e *Env) error {
				app := e.App
				return all(
					app.TodoList.TodoAt(1).Complete,
					func() error { return app.Storage.Expect().ToHaveCompletedCount(1) },
					func() error { return app.Footer.SelectLink("completed") },
					func() error { return app.TodoList.Expect().ToHaveCount(1) },
				)
			}},
			{"should allow me to display all items", func(e *Env) error {
				app := e.App
				return all(
					app.TodoList.TodoAt(1).Complete,
					func() error { return app.Footer.SelectLink("Active") },
					func() error { return app.Footer.SelectLink("Completed") },
					func() error { return app.Footer.SelectLink("All") },
					func() error { return app.TodoList.Expect().ToHaveCount(e.Total()) },
				)
			}},
			{"should highlight the currently applied filter", func(e *Env) error {
				app := e.App
				return all(
					app.Footer.Link("All").Expect().ToBeSelected,
					func() error { return app.Footer.SelectLink("Active") },
					app.Footer.Link("Active").Expect().ToBeSelected,
					func() error { return app.Footer.SelectLink("Completed") },
					app.Footer.Link("Completed").Expect().ToBeSelected,
					func() error { return app.Footer.Expect().ToHaveSelectedOnly(models.FilterCompleted) },
				)
			}},
		},
	}
}
