package browsertest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
)

const demoURL = "https://demo.playwright.dev/todomvc"

var (
	newTodo  = browser.CSS("header").Placeholder("What needs to be done?")
	rows     = browser.Role("list", "").TestID("todo-item")
	counter  = browser.CSS("footer").TestID("todo-count")
	clearBtn = browser.CSS("footer").Role("button", "Clear completed")
)

func addTodos(t *testing.T, p *Page, titles ...string) {
	t.Helper()
	for _, title := range titles {
		require.NoError(t, p.Fill(newTodo, title))
		require.NoError(t, p.Press(newTodo, "Enter"))
	}
}

func TestAddAndRender(t *testing.T) {
	p := New()
	require.NoError(t, p.Navigate(demoURL))

	n, err := p.Count(rows)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "empty app renders no rows")

	addTodos(t, p, "buy some cheese", "  feed the cat  ", "   ")

	texts, err := p.InnerTexts(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"buy some cheese", "feed the cat"}, texts)

	value, err := p.InputValue(newTodo)
	require.NoError(t, err)
	assert.Empty(t, value)

	text, err := p.InnerText(counter)
	require.NoError(t, err)
	assert.Equal(t, "2 items left", text)

	assert.JSONEq(t,
		`[{"id":"0","title":"buy some cheese","completed":false},{"id":"1","title":"feed the cat","completed":false}]`,
		p.Storage()[DefaultStorageKey])
}

func TestActionsAreStrict(t *testing.T) {
	p := New()
	require.NoError(t, p.Navigate(demoURL))
	addTodos(t, p, "a", "b")

	err := p.DblClick(rows)
	assert.ErrorIs(t, err, browser.ErrAmbiguous)

	err = p.Click(clearBtn)
	assert.ErrorIs(t, err, browser.ErrNotFound, "clear button only exists with completed items")

	_, err = p.InputValue(rows.Nth(5))
	assert.ErrorIs(t, err, browser.ErrNotFound)
}

func TestEditingLifecycle(t *testing.T) {
	p := New()
	require.NoError(t, p.Navigate(demoURL))
	addTodos(t, p, "a", "b", "c")

	second := rows.Nth(1)
	edit := second.Role("textbox", "Edit")

	n, err := p.Count(edit)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "edit box is hidden until double click")

	require.NoError(t, p.DblClick(second))
	value, err := p.InputValue(edit)
	require.NoError(t, err)
	assert.Equal(t, "b", value)

	visible, err := p.IsVisible(second.CSS("label"))
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, p.Fill(edit, "  bee  "))
	require.NoError(t, p.Press(edit, "Enter"))
	texts, _ := p.InnerTexts(rows)
	assert.Equal(t, []string{"a", "bee", "c"}, texts)

	require.NoError(t, p.DblClick(second))
	require.NoError(t, p.Fill(edit, "discarded"))
	require.NoError(t, p.Press(edit, "Escape"))
	texts, _ = p.InnerTexts(rows)
	assert.Equal(t, []string{"a", "bee", "c"}, texts)

	require.NoError(t, p.DblClick(second))
	require.NoError(t, p.Fill(edit, "blurred"))
	require.NoError(t, p.DispatchEvent(edit, "blur"))
	texts, _ = p.InnerTexts(rows)
	assert.Equal(t, []string{"a", "blurred", "c"}, texts)

	require.NoError(t, p.DblClick(second))
	require.NoError(t, p.Fill(edit, ""))
	require.NoError(t, p.Press(edit, "Enter"))
	texts, _ = p.InnerTexts(rows)
	assert.Equal(t, []string{"a", "c"}, texts)
}

func TestCompletionFiltersAndHistory(t *testing.T) {
	p := New()
	require.NoError(t, p.Navigate(demoURL))
	addTodos(t, p, "a", "b", "c")

	require.NoError(t, p.Check(rows.Nth(1).Role("checkbox", "")))
	class, _, err := p.Attribute(rows.Nth(1), "class")
	require.NoError(t, err)
	assert.Equal(t, "completed", class)

	text, _ := p.InnerText(counter)
	assert.Equal(t, "2 items left", text)
	visible, err := p.IsVisible(clearBtn)
	require.NoError(t, err)
	assert.True(t, visible)

	filters := browser.CSS("footer")
	require.NoError(t, p.Click(filters.Role("link", "Active")))
	texts, _ := p.InnerTexts(rows)
	assert.Equal(t, []string{"a", "c"}, texts)

	require.NoError(t, p.Click(filters.Role("link", "completed")))
	texts, _ = p.InnerTexts(rows)
	assert.Equal(t, []string{"b"}, texts)
	assert.Equal(t, demoURL+"#/completed", p.URL())

	require.NoError(t, p.GoBack())
	n, _ := p.Count(rows)
	assert.Equal(t, 2, n)
	require.NoError(t, p.GoBack())
	n, _ = p.Count(rows)
	assert.Equal(t, 3, n)

	require.NoError(t, p.Click(clearBtn))
	texts, _ = p.InnerTexts(rows)
	assert.Equal(t, []string{"a", "c"}, texts)
	n, _ = p.Count(clearBtn)
	assert.Equal(t, 0, n)
}

func TestToggleAllTracksRows(t *testing.T) {
	p := New()
	require.NoError(t, p.Navigate(demoURL))
	addTodos(t, p, "a", "b")

	toggleAll := browser.Label("Mark all as complete")
	require.NoError(t, p.Check(toggleAll))
	checked, err := p.IsChecked(toggleAll)
	require.NoError(t, err)
	assert.True(t, checked)

	require.NoError(t, p.Uncheck(rows.Nth(0).Role("checkbox", "")))
	checked, _ = p.IsChecked(toggleAll)
	assert.False(t, checked)

	require.NoError(t, p.Uncheck(toggleAll), "unchecking an unchecked box is a no-op")
	out, err := p.Evaluate(`key => JSON.parse(localStorage.getItem(key)).filter(t => t.completed).length`, DefaultStorageKey)
	require.NoError(t, err)
	assert.EqualValues(t, 1, out)

	require.NoError(t, p.Check(toggleAll))
	require.NoError(t, p.Uncheck(toggleAll))
	out, err = p.Evaluate(`key => JSON.parse(localStorage.getItem(key)).filter(t => t.completed).length`, DefaultStorageKey)
	require.NoError(t, err)
	assert.EqualValues(t, 0, out)
}

func TestReloadRestoresFromStorage(t *testing.T) {
	p := New(WithStorageKey("todos-test"))
	require.NoError(t, p.Navigate(demoURL))
	addTodos(t, p, "a", "b")
	require.NoError(t, p.Check(rows.Nth(0).Role("checkbox", "")))

	require.NoError(t, p.Reload())
	texts, _ := p.InnerTexts(rows)
	assert.Equal(t, []string{"a", "b"}, texts)
	class, _, _ := p.Attribute(rows.Nth(0), "class")
	assert.Equal(t, "completed", class)
	_, ok := p.Storage()["todos-test"]
	assert.True(t, ok)
}

func TestRenderLagDelaysReads(t *testing.T) {
	p := New(WithRenderLag(2))
	require.NoError(t, p.Navigate(demoURL))
	addTodos(t, p, "a")

	n, _ := p.Count(rows)
	assert.Equal(t, 0, n, "first read after a mutation sees the old DOM")
	n, _ = p.Count(rows)
	assert.Equal(t, 0, n)
	n, _ = p.Count(rows)
	assert.Equal(t, 1, n)
}

func TestEvaluateReadsLocalStorage(t *testing.T) {
	p := New()
	require.NoError(t, p.Navigate(demoURL))

	out, err := p.Evaluate(`key => localStorage.getItem(key)`, "missing")
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = p.Evaluate(`() => localStorage.setItem("k", "v")`, nil)
	require.NoError(t, err)
	out, err = p.Evaluate(`key => window.localStorage[key]`, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", out)
}
