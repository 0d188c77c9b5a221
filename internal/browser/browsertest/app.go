package browsertest

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

// markup follows the reference TodoMVC DOM: the main section and footer
// exist only while there are todos, the edit field is hidden unless its row
// is being edited, and the clear button exists only when something is done.
const markup = `<!doctype html>
<html lang="en">
<head><title>React • TodoMVC</title></head>
<body>
<section class="todoapp">
  <header class="header">
    <h1>todos</h1>
    <input class="new-todo" placeholder="What needs to be done?" autofocus value="{{ newTodo }}" data-node="new-todo">
  </header>
  {% if hasTodos %}
  <section class="main">
    <input id="toggle-all" class="toggle-all" type="checkbox"{% if allCompleted %} checked{% endif %} data-node="toggle-all">
    <label for="toggle-all">Mark all as complete</label>
    <ul class="todo-list">
      {% for t in rows %}
      <li data-testid="todo-item" class="{{ t.Class }}" data-node="item:{{ t.ID }}">
        <div class="view"{% if t.Editing %} hidden{% endif %}>
          <input class="toggle" type="checkbox"{% if t.Completed %} checked{% endif %} data-node="toggle:{{ t.ID }}">
          <label data-testid="todo-title" data-node="title:{{ t.ID }}">{{ t.Title }}</label>
          <button class="destroy" data-node="destroy:{{ t.ID }}"></button>
        </div>
        <input class="edit" aria-label="Edit" value="{{ t.EditValue }}"{% if not t.Editing %} hidden{% endif %} data-node="edit:{{ t.ID }}">
      </li>
      {% endfor %}
    </ul>
  </section>
  <footer class="footer">
    <span class="todo-count" data-testid="todo-count"><strong>{{ remaining }}</strong> item{{ remaining|pluralize }} left</span>
    <ul class="filters">
      {% for f in filters %}
      <li><a href="{{ f.Hash }}" class="{% if f.Selected %}selected{% endif %}" data-node="filter:{{ f.Name }}">{{ f.Name }}</a></li>
      {% endfor %}
    </ul>
    {% if completed %}<button class="clear-completed" data-node="clear-completed">Clear completed</button>{% endif %}
  </footer>
  {% endif %}
</section>
<footer class="info">
  <p>Double-click to edit a todo</p>
  <p>Part of <a href="http://todomvc.com">TodoMVC</a></p>
</footer>
</body>
</html>`

var markupTemplate = pongo2.Must(pongo2.FromString(markup))

type row struct {
	ID        string
	Title     string
	Completed bool
	Editing   bool
	EditValue string
	Class     string
}

type filterLink struct {
	Name     string
	Hash     string
	Selected bool
}

// app is the TodoMVC state machine. It never touches the DOM directly;
// render turns the state into markup.
type app struct {
	todos     []models.Todo
	nextID    int
	newTodo   string
	editingID string
	editValue string
	filter    models.Filter
}

func (a *app) load(raw string) {
	a.todos = nil
	a.nextID = 0
	a.newTodo = ""
	a.editingID = ""
	a.editValue = ""
	if raw == "" {
		return
	}
	var stored []models.Todo
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return
	}
	for _, t := range stored {
		if n, err := strconv.Atoi(t.ID); err == nil && n >= a.nextID {
			a.nextID = n + 1
		}
	}
	for i := range stored {
		if stored[i].ID == "" {
			stored[i].ID = a.newID()
		}
	}
	a.todos = stored
}

func (a *app) save() string {
	todos := a.todos
	if todos == nil {
		todos = []models.Todo{}
	}
	b, _ := json.Marshal(todos)
	return string(b)
}

func (a *app) newID() string {
	id := strconv.Itoa(a.nextID)
	a.nextID++
	return id
}

func (a *app) index(id string) int {
	for i, t := range a.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (a *app) add() bool {
	title := strings.TrimSpace(a.newTodo)
	if title == "" {
		return false
	}
	a.todos = append(a.todos, models.Todo{ID: a.newID(), Title: title})
	a.newTodo = ""
	return true
}

func (a *app) setCompleted(id string, done bool) bool {
	i := a.index(id)
	if i < 0 || a.todos[i].Completed == done {
		return false
	}
	a.todos[i].Completed = done
	return true
}

func (a *app) setAll(done bool) bool {
	changed := false
	for i := range a.todos {
		if a.todos[i].Completed != done {
			a.todos[i].Completed = done
			changed = true
		}
	}
	return changed
}

func (a *app) allCompleted() bool {
	return len(a.todos) > 0 && models.CountCompleted(a.todos) == len(a.todos)
}

func (a *app) destroy(id string) bool {
	i := a.index(id)
	if i < 0 {
		return false
	}
	a.todos = append(a.todos[:i], a.todos[i+1:]...)
	if a.editingID == id {
		a.editingID = ""
	}
	return true
}

func (a *app) clearCompleted() bool {
	kept := a.todos[:0]
	for _, t := range a.todos {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	changed := len(kept) != len(a.todos)
	a.todos = kept
	return changed
}

func (a *app) startEdit(id string) bool {
	i := a.index(id)
	if i < 0 {
		return false
	}
	a.editingID = id
	a.editValue = a.todos[i].Title
	return true
}

// commitEdit saves the trimmed edit text, or removes the row when it is empty.
func (a *app) commitEdit() bool {
	if a.editingID == "" {
		return false
	}
	id := a.editingID
	a.editingID = ""
	title := strings.TrimSpace(a.editValue)
	a.editValue = ""
	if title == "" {
		return a.destroy(id)
	}
	if i := a.index(id); i >= 0 {
		a.todos[i].Title = title
	}
	return true
}

func (a *app) cancelEdit() {
	a.editingID = ""
	a.editValue = ""
}

func (a *app) render() (string, error) {
	remaining := len(a.todos) - models.CountCompleted(a.todos)
	rows := make([]row, 0, len(a.todos))
	for _, t := range a.todos {
		if !a.filter.Includes(t) {
			continue
		}
		r := row{ID: t.ID, Title: t.Title, Completed: t.Completed}
		var class []string
		if t.Completed {
			class = append(class, "completed")
		}
		if t.ID == a.editingID {
			r.Editing = true
			r.EditValue = a.editValue
			class = append(class, "editing")
		}
		r.Class = strings.Join(class, " ")
		rows = append(rows, r)
	}
	filters := make([]filterLink, 0, len(models.Filters))
	for _, f := range models.Filters {
		filters = append(filters, filterLink{Name: string(f), Hash: f.Hash(), Selected: f == a.filter})
	}
	return markupTemplate.Execute(pongo2.Context{
		"newTodo":      a.newTodo,
		"hasTodos":     len(a.todos) > 0,
		"allCompleted": a.allCompleted(),
		"rows":         rows,
		"remaining":    remaining,
		"completed":    models.CountCompleted(a.todos),
		"filters":      filters,
	})
}
