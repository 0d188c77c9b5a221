package pages

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

// storedTodosSchema is the shape the app persists: an array of
// {title, completed} records, optionally carrying an id.
var storedTodosSchema = gojsonschema.NewStringLoader(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["title", "completed"],
		"properties": {
			"id": {"type": ["string", "number"]},
			"title": {"type": "string"},
			"completed": {"type": "boolean"}
		}
	}
}`)

const readItemScript = `(key) => window.localStorage.getItem(key)`

// Storage reads the app's persisted todos out of band through the page.
type Storage struct {
	page browser.Page
	key  string
}

func NewStorage(page browser.Page, key string) Storage {
	return Storage{page: page, key: key}
}

// Key returns the localStorage key.
func (s Storage) Key() string { return s.key }

// Raw returns the stored JSON and whether the key exists.
func (s Storage) Raw() (string, bool, error) {
	v, err := s.page.Evaluate(readItemScript, s.key)
	if err != nil {
		return "", false, fmt.Errorf("read localStorage[%q]: %w", s.key, err)
	}
	if v == nil {
		return "", false, nil
	}
	raw, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("read localStorage[%q]: unexpected %T", s.key, v)
	}
	return raw, true, nil
}

// Todos validates and decodes the stored todos. A missing key is ErrNotFound.
func (s Storage) Todos() ([]models.Todo, error) {
	raw, ok, err := s.Raw()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: localStorage[%q]", browser.ErrNotFound, s.key)
	}
	if err := validateStoredTodos(raw); err != nil {
		return nil, fmt.Errorf("localStorage[%q]: %w", s.key, err)
	}
	var todos []models.Todo
	if err := json.Unmarshal([]byte(raw), &todos); err != nil {
		return nil, fmt.Errorf("failed to decode localStorage[%q]: %w", s.key, err)
	}
	return todos, nil
}

func validateStoredTodos(raw string) error {
	result, err := gojsonschema.Validate(storedTodosSchema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.Field()+": "+e.Description())
	}
	return fmt.Errorf("invalid todos payload: %s", strings.Join(msgs, "; "))
}

// StorageAssertions poll the stored todos until they match.
type StorageAssertions struct {
	s      Storage
	poller browser.Poller
}

func (s Storage) Expect() StorageAssertions {
	return StorageAssertions{s: s, poller: browser.PollerFor(s.page)}
}

func (a StorageAssertions) subject() string {
	return fmt.Sprintf("localStorage[%q]", a.s.key)
}

func (a StorageAssertions) until(expectation string, fn func([]models.Todo) (bool, string)) error {
	return a.poller.Wait(a.subject(), expectation, func() (bool, string, error) {
		todos, err := a.s.Todos()
		if err != nil {
			return false, "", err
		}
		ok, observed := fn(todos)
		return ok, observed, nil
	})
}

// ToHaveCount expects n stored todos.
func (a StorageAssertions) ToHaveCount(n int) error {
	return a.until(fmt.Sprintf("toHaveCount(%d)", n), func(todos []models.Todo) (bool, string) {
		return len(todos) == n, strconv.Itoa(len(todos))
	})
}

// ToHaveCompletedCount expects n stored todos to be completed.
func (a StorageAssertions) ToHaveCompletedCount(n int) error {
	return a.until(fmt.Sprintf("toHaveCompletedCount(%d)", n), func(todos []models.Todo) (bool, string) {
		got := models.CountCompleted(todos)
		return got == n, strconv.Itoa(got)
	})
}

// ToContainTitle expects some stored todo to have exactly title.
func (a StorageAssertions) ToContainTitle(title string) error {
	return a.until(fmt.Sprintf("toContainTitle(%q)", title), func(todos []models.Todo) (bool, string) {
		titles := models.Titles(todos)
		for _, t := range titles {
			if t == title {
				return true, ""
			}
		}
		return false, fmt.Sprintf("%q", titles)
	})
}

// ToEqual expects the stored titles and completion flags to match want in
// order. Ids are assigned by the app and ignored.
func (a StorageAssertions) ToEqual(want []models.Todo) error {
	return a.until(fmt.Sprintf("toEqual(%s)", describe(want)), func(todos []models.Todo) (bool, string) {
		if len(todos) != len(want) {
			return false, describe(todos)
		}
		for i := range todos {
			if todos[i].Title != want[i].Title || todos[i].Completed != want[i].Completed {
				return false, describe(todos)
			}
		}
		return true, describe(todos)
	})
}

func describe(todos []models.Todo) string {
	parts := make([]string, len(todos))
	for i, t := range todos {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		parts[i] = fmt.Sprintf("[%s] %q", mark, t.Title)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
