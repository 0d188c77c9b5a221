package browser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Assertions are polling expectations over a locator. Each method retries
// against the live page until the condition holds or the poller times out.
type Assertions struct {
	loc    Locator
	poller Poller
	not    bool
}

// Not inverts the next expectation.
func (a Assertions) Not() Assertions {
	a.not = !a.not
	return a
}

// Locator returns the asserted locator.
func (a Assertions) Locator() Locator { return a.loc }

func (a Assertions) run(name string, check Check) error {
	if a.not {
		inner := check
		check = func() (bool, string, error) {
			ok, observed, err := inner()
			if err != nil {
				return false, observed, err
			}
			return !ok, observed, nil
		}
	}
	return a.poller.Until(a.loc.query, name, a.not, check)
}

// single treats "no element" as a definite observation for state checks.
func single(err error) (bool, error) {
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	return false, err
}

// ToBeVisible expects exactly one visible element.
func (a Assertions) ToBeVisible() error {
	return a.run("toBeVisible()", func() (bool, string, error) {
		visible, err := a.loc.IsVisible()
		missing, err := single(err)
		if err != nil {
			return false, "", err
		}
		if missing {
			return false, "<no element>", nil
		}
		return visible, visibility(visible), nil
	})
}

// ToBeHidden expects the element to be hidden or absent.
func (a Assertions) ToBeHidden() error {
	return a.run("toBeHidden()", func() (bool, string, error) {
		visible, err := a.loc.IsVisible()
		missing, err := single(err)
		if err != nil {
			return false, "", err
		}
		if missing {
			return true, "<no element>", nil
		}
		return !visible, visibility(visible), nil
	})
}

// ToHaveVisibility is ToBeVisible when visible is true and ToBeHidden otherwise.
func (a Assertions) ToHaveVisibility(visible bool) error {
	if visible {
		return a.ToBeVisible()
	}
	return a.ToBeHidden()
}

func visibility(v bool) string {
	if v {
		return "visible"
	}
	return "hidden"
}

// ToHaveText expects the element's normalised inner text to equal text.
func (a Assertions) ToHaveText(text string) error {
	want := NormalizeWhitespace(text)
	return a.run(fmt.Sprintf("toHaveText(%q)", want), func() (bool, string, error) {
		got, err := a.loc.InnerText()
		if err != nil {
			return false, "", err
		}
		got = NormalizeWhitespace(got)
		return got == want, strconv.Quote(got), nil
	})
}

// ToContainText expects the element's inner text to contain text.
func (a Assertions) ToContainText(text string) error {
	want := NormalizeWhitespace(text)
	return a.run(fmt.Sprintf("toContainText(%q)", want), func() (bool, string, error) {
		got, err := a.loc.InnerText()
		if err != nil {
			return false, "", err
		}
		got = NormalizeWhitespace(got)
		return strings.Contains(got, want), strconv.Quote(got), nil
	})
}

// ToHaveTexts expects one element per entry, in order, each with the given
// normalised text. On timeout the error carries a line diff.
func (a Assertions) ToHaveTexts(texts ...string) error {
	want := make([]string, len(texts))
	for i, t := range texts {
		want[i] = NormalizeWhitespace(t)
	}
	var last []string
	err := a.run(fmt.Sprintf("toHaveText(%q)", want), func() (bool, string, error) {
		got, err := a.loc.InnerTexts()
		if err != nil {
			return false, "", err
		}
		for i := range got {
			got[i] = NormalizeWhitespace(got[i])
		}
		last = got
		return equalStrings(got, want), fmt.Sprintf("%q", got), nil
	})
	var ae *AssertionError
	if errors.As(err, &ae) && !a.not && last != nil {
		ae.Diff = lineDiff(want, last)
	}
	return err
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ToHaveValue expects an input's current value.
func (a Assertions) ToHaveValue(value string) error {
	return a.run(fmt.Sprintf("toHaveValue(%q)", value), func() (bool, string, error) {
		got, err := a.loc.InputValue()
		if err != nil {
			return false, "", err
		}
		return got == value, strconv.Quote(got), nil
	})
}

// ToBeEmpty expects an input with an empty value.
func (a Assertions) ToBeEmpty() error {
	return a.run("toBeEmpty()", func() (bool, string, error) {
		got, err := a.loc.InputValue()
		if err != nil {
			return false, "", err
		}
		return got == "", strconv.Quote(got), nil
	})
}

// ToHaveClass expects the class attribute to contain the class token.
func (a Assertions) ToHaveClass(class string) error {
	return a.run(fmt.Sprintf("toHaveClass(%q)", class), func() (bool, string, error) {
		got, _, err := a.loc.page.Attribute(a.loc.query, "class")
		if err != nil {
			return false, "", err
		}
		for _, token := range strings.Fields(got) {
			if token == class {
				return true, strconv.Quote(got), nil
			}
		}
		return false, strconv.Quote(got), nil
	})
}

// ToBeChecked expects a checked checkbox.
func (a Assertions) ToBeChecked() error {
	return a.run("toBeChecked()", func() (bool, string, error) {
		checked, err := a.loc.IsChecked()
		if err != nil {
			return false, "", err
		}
		return checked, strconv.FormatBool(checked), nil
	})
}

// ToHaveChecked is ToBeChecked when checked is true and Not().ToBeChecked otherwise.
func (a Assertions) ToHaveChecked(checked bool) error {
	if checked {
		return a.ToBeChecked()
	}
	return a.Not().ToBeChecked()
}

// ToHaveCount expects exactly n matches.
func (a Assertions) ToHaveCount(n int) error {
	return a.run(fmt.Sprintf("toHaveCount(%d)", n), func() (bool, string, error) {
		got, err := a.loc.Count()
		if err != nil {
			return false, "", err
		}
		return got == n, strconv.Itoa(got), nil
	})
}
