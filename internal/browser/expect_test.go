package browser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
	"github.com/gotrs-io/todomvc-e2e/internal/browser/browsertest"
)

func newApp(t *testing.T, opts ...browsertest.Option) *browsertest.Page {
	t.Helper()
	page := browsertest.New(opts...)
	require.NoError(t, page.Navigate("https://demo.playwright.dev/todomvc"))
	return page
}

func add(t *testing.T, page browser.Page, titles ...string) {
	t.Helper()
	input := browser.NewLocator(page, browser.Placeholder("What needs to be done?"))
	for _, title := range titles {
		require.NoError(t, input.Fill(title))
		require.NoError(t, input.Press("Enter"))
	}
}

func TestAssertionsAgainstLaggingPage(t *testing.T) {
	page := newApp(t, browsertest.WithRenderLag(3))
	add(t, page, "buy some cheese", "feed the cat")

	rows := browser.NewLocator(page, browser.Role("list", "").TestID("todo-item"))
	require.NoError(t, rows.Expect().ToHaveCount(2))
	require.NoError(t, rows.Expect().ToHaveTexts("buy some cheese", "feed the cat"))

	count := browser.NewLocator(page, browser.CSS("footer").TestID("todo-count"))
	require.NoError(t, count.Expect().ToBeVisible())
	require.NoError(t, count.Expect().ToHaveText("2 items left"))
	require.NoError(t, count.Expect().ToContainText("items"))

	first := rows.Nth(0)
	require.NoError(t, first.Role("checkbox", "").Check())
	require.NoError(t, first.Expect().ToHaveClass("completed"))
	require.NoError(t, rows.Nth(1).Expect().Not().ToHaveClass("completed"))
	require.NoError(t, first.Role("checkbox", "").Expect().ToBeChecked())
	require.NoError(t, rows.Nth(1).Role("checkbox", "").Expect().ToHaveChecked(false))
}

func TestVisibilityTreatsMissingAsHidden(t *testing.T) {
	page := newApp(t)
	clear := browser.NewLocator(page, browser.CSS("footer").Role("button", "Clear completed"))

	require.NoError(t, clear.Expect().ToBeHidden())
	require.NoError(t, clear.Expect().ToHaveVisibility(false))
	require.NoError(t, clear.Expect().Not().ToBeVisible())

	err := clear.Expect().ToBeVisible()
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrTimeout)
	assert.Contains(t, err.Error(), "<no element>")
}

func TestInputAssertions(t *testing.T) {
	page := newApp(t)
	input := browser.NewLocator(page, browser.CSS("header").Placeholder("What needs to be done?"))

	require.NoError(t, input.Fill("draft"))
	require.NoError(t, input.Expect().ToHaveValue("draft"))
	require.NoError(t, input.Expect().Not().ToBeEmpty())
	require.NoError(t, input.Press("Enter"))
	require.NoError(t, input.Expect().ToBeEmpty())
}

func TestToHaveTextsFailureCarriesDiff(t *testing.T) {
	page := newApp(t)
	add(t, page, "a", "c")

	rows := browser.NewLocator(page, browser.Role("list", "").TestID("todo-item"))
	err := rows.Expect().ToHaveTexts("a", "b", "c")
	require.Error(t, err)

	var ae *browser.AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "  a\n- b\n  c", ae.Diff)
	assert.Equal(t, `["a" "c"]`, ae.Last)
}

func TestNegationFlipsResult(t *testing.T) {
	page := newApp(t)
	add(t, page, "a")
	rows := browser.NewLocator(page, browser.Role("list", "").TestID("todo-item"))

	require.NoError(t, rows.Expect().Not().ToHaveCount(0))
	err := rows.Expect().Not().ToHaveCount(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".not.toHaveCount(1)")
	assert.NoError(t, rows.Expect().Not().Not().ToHaveCount(1))
}

func TestPollerForUsesPageTiming(t *testing.T) {
	page := newApp(t)
	assert.Equal(t, page.Poller().Timeout, browser.PollerFor(page).Timeout)

	var plain browser.Page = struct{ browser.Page }{page}
	assert.Equal(t, browser.DefaultExpectTimeout, browser.PollerFor(plain).Timeout)
}
