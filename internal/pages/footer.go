package pages

import (
	"fmt"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

// Footer owns the remaining count, clear-completed and the filter links.
type Footer struct {
	self           browser.Locator
	countText      browser.Locator
	clearCompleted browser.Locator
}

func NewFooter(page browser.Page) Footer {
	self := browser.NewLocator(page, browser.CSS(AppRootSelector).CSS("footer"))
	return Footer{
		self:           self,
		countText:      self.TestID(TodoCountTestID),
		clearCompleted: self.Role("button", ClearCompletedLabel),
	}
}

// Locator returns the footer region.
func (f Footer) Locator() browser.Locator { return f.self }

func (f Footer) ClearCompleted() error {
	if err := f.clearCompleted.Click(); err != nil {
		return fmt.Errorf("clear completed: %w", err)
	}
	return nil
}

// Link returns the filter link called name. Filter names match exactly
// after case folding ("active" finds "Active"); other names match as a
// substring.
func (f Footer) Link(name string) FooterLink {
	if filter, err := models.ParseFilter(name); err == nil {
		return FooterLink{self: f.self.RoleExact("link", string(filter)), name: name}
	}
	return FooterLink{self: f.self.Role("link", name), name: name}
}

// SelectLink is Link(name).Select().
func (f Footer) SelectLink(name string) error {
	return f.Link(name).Select()
}

// FooterAssertions extends the footer assertions with count and filter checks.
type FooterAssertions struct {
	browser.Assertions
	f Footer
}

func (f Footer) Expect() FooterAssertions {
	return FooterAssertions{Assertions: f.self.Expect(), f: f}
}

// ToHaveCountText expects the remaining counter to read text, e.g. "2 items left".
func (a FooterAssertions) ToHaveCountText(text string) error {
	return a.f.countText.Expect().ToHaveText(text)
}

func (a FooterAssertions) ToHaveVisibleCount() error {
	return a.f.countText.Expect().ToBeVisible()
}

// ToAllowClearingCompleted expects the clear-completed button to be shown
// when visible is true and hidden otherwise.
func (a FooterAssertions) ToAllowClearingCompleted(visible bool) error {
	return a.f.clearCompleted.Expect().ToHaveVisibility(visible)
}

// ToHaveSelectedOnly expects filter to be the one selected link.
func (a FooterAssertions) ToHaveSelectedOnly(filter models.Filter) error {
	for _, other := range models.Filters {
		link := a.f.Link(string(other)).Expect()
		var err error
		if other == filter {
			err = link.ToBeSelected()
		} else {
			err = link.NotToBeSelected()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// FooterLink is one of the All / Active / Completed filter links.
type FooterLink struct {
	self browser.Locator
	name string
}

// Locator returns the link locator.
func (l FooterLink) Locator() browser.Locator { return l.self }

func (l FooterLink) Name() string { return l.name }

// Filter maps the link name to the filter it applies.
func (l FooterLink) Filter() (models.Filter, error) {
	return models.ParseFilter(l.name)
}

// Select activates the filter.
func (l FooterLink) Select() error {
	if err := l.self.Click(); err != nil {
		return fmt.Errorf("select filter %q: %w", l.name, err)
	}
	return nil
}

type FooterLinkAssertions struct {
	browser.Assertions
	l FooterLink
}

func (l FooterLink) Expect() FooterLinkAssertions {
	return FooterLinkAssertions{Assertions: l.self.Expect(), l: l}
}

func (a FooterLinkAssertions) ToBeSelected() error {
	return a.l.self.Expect().ToHaveClass(SelectedClass)
}

func (a FooterLinkAssertions) NotToBeSelected() error {
	return a.l.self.Expect().Not().ToHaveClass(SelectedClass)
}
