package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightPage adapts a playwright.Page to Page.
type PlaywrightPage struct {
	page   playwright.Page
	poller Poller
	// readTimeout bounds single-element reads so polling stays responsive.
	readTimeout float64
}

// NewPlaywrightPage wraps page. Reads of a single element wait at most
// poller.Backoff[0] (or 100ms) because Poller does the retrying.
func NewPlaywrightPage(page playwright.Page, poller Poller) *PlaywrightPage {
	rt := 100.0
	if len(poller.Backoff) > 0 {
		rt = float64(poller.Backoff[0].Milliseconds())
	}
	return &PlaywrightPage{page: page, poller: poller, readTimeout: rt}
}

// Raw exposes the wrapped page for screenshots and tracing.
func (p *PlaywrightPage) Raw() playwright.Page { return p.page }

// Poller implements PollerProvider.
func (p *PlaywrightPage) Poller() Poller { return p.poller }

func (p *PlaywrightPage) Navigate(url string) error {
	if _, err := p.page.Goto(url); err != nil {
		if strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
			return fmt.Errorf("redirect loop navigating to %s: %w", url, err)
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *PlaywrightPage) Reload() error {
	if _, err := p.page.Reload(); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	return nil
}

func (p *PlaywrightPage) GoBack() error {
	if _, err := p.page.GoBack(); err != nil {
		return fmt.Errorf("failed to go back: %w", err)
	}
	return nil
}

func (p *PlaywrightPage) URL() string { return p.page.URL() }

func (p *PlaywrightPage) Evaluate(expression string, arg any) (any, error) {
	out, err := p.page.Evaluate(expression, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate script: %w", err)
	}
	return out, nil
}

// locator translates a Query into a playwright locator chain rooted at the document.
func (p *PlaywrightPage) locator(q Query) playwright.Locator {
	loc := p.page.Locator(":root")
	for _, s := range q.steps {
		switch s.Kind {
		case StepCSS:
			loc = loc.Locator(s.Value)
		case StepRole:
			opts := playwright.LocatorGetByRoleOptions{}
			if s.Name != "" {
				opts.Name = s.Name
				opts.Exact = playwright.Bool(s.Exact)
			}
			loc = loc.GetByRole(playwright.AriaRole(s.Value), opts)
		case StepPlaceholder:
			loc = loc.GetByPlaceholder(s.Value, playwright.LocatorGetByPlaceholderOptions{Exact: playwright.Bool(s.Exact)})
		case StepLabel:
			loc = loc.GetByLabel(s.Value, playwright.LocatorGetByLabelOptions{Exact: playwright.Bool(s.Exact)})
		case StepTestID:
			loc = loc.GetByTestId(s.Value)
		case StepNth:
			loc = loc.Nth(s.Index)
		}
	}
	return loc
}

// translate maps playwright failures onto the package's error taxonomy.
// count, when set, re-resolves the query after a timeout to tell a missing
// element from one that exists but never became actionable.
func translate(q Query, action string, err error, count func() (int, error)) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "strict mode violation"):
		return fmt.Errorf("%s: %w: %s: %w", action, ErrAmbiguous, q, err)
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%s: %w: %s: %w", action, timeoutCause(count), q, err)
	default:
		return fmt.Errorf("%s %s: %w", action, q, err)
	}
}

func timeoutCause(count func() (int, error)) error {
	if count == nil {
		return ErrNotFound
	}
	n, err := count()
	switch {
	case err != nil, n == 0:
		return ErrNotFound
	case n > 1:
		return ErrAmbiguous
	default:
		// covered, disabled or hidden
		return ErrPrecondition
	}
}

// act runs fn on the locator for q and translates its failure.
func (p *PlaywrightPage) act(q Query, action string, fn func(playwright.Locator) error) error {
	loc := p.locator(q)
	return translate(q, action, fn(loc), loc.Count)
}

func (p *PlaywrightPage) Fill(q Query, text string) error {
	return p.act(q, "fill", func(l playwright.Locator) error { return l.Fill(text) })
}

func (p *PlaywrightPage) Press(q Query, key string) error {
	return p.act(q, "press "+key, func(l playwright.Locator) error { return l.Press(key) })
}

func (p *PlaywrightPage) Click(q Query) error {
	return p.act(q, "click", func(l playwright.Locator) error { return l.Click() })
}

func (p *PlaywrightPage) DblClick(q Query) error {
	return p.act(q, "dblclick", func(l playwright.Locator) error { return l.Dblclick() })
}

func (p *PlaywrightPage) Check(q Query) error {
	return p.act(q, "check", func(l playwright.Locator) error { return l.Check() })
}

func (p *PlaywrightPage) Uncheck(q Query) error {
	return p.act(q, "uncheck", func(l playwright.Locator) error { return l.Uncheck() })
}

func (p *PlaywrightPage) DispatchEvent(q Query, event string) error {
	return p.act(q, "dispatch "+event, func(l playwright.Locator) error { return l.DispatchEvent(event, nil) })
}

func (p *PlaywrightPage) Count(q Query) (int, error) {
	n, err := p.locator(q).Count()
	return n, translate(q, "count", err, nil)
}

// one resolves q to exactly one element without waiting for it to appear.
func (p *PlaywrightPage) one(q Query) (playwright.Locator, error) {
	loc := p.locator(q)
	n, err := loc.Count()
	if err != nil {
		return nil, translate(q, "count", err, nil)
	}
	switch {
	case n == 0:
		return nil, notFound(q, "")
	case n > 1:
		return nil, ambiguous(q, n)
	}
	return loc, nil
}

func (p *PlaywrightPage) IsVisible(q Query) (bool, error) {
	loc, err := p.one(q)
	if err != nil {
		return false, err
	}
	v, err := loc.IsVisible()
	return v, translate(q, "isVisible", err, nil)
}

func (p *PlaywrightPage) IsChecked(q Query) (bool, error) {
	loc, err := p.one(q)
	if err != nil {
		return false, err
	}
	v, err := loc.IsChecked(playwright.LocatorIsCheckedOptions{Timeout: playwright.Float(p.readTimeout)})
	return v, translate(q, "isChecked", err, nil)
}

func (p *PlaywrightPage) InputValue(q Query) (string, error) {
	loc, err := p.one(q)
	if err != nil {
		return "", err
	}
	v, err := loc.InputValue(playwright.LocatorInputValueOptions{Timeout: playwright.Float(p.readTimeout)})
	return v, translate(q, "inputValue", err, nil)
}

func (p *PlaywrightPage) Attribute(q Query, name string) (string, bool, error) {
	loc, err := p.one(q)
	if err != nil {
		return "", false, err
	}
	v, err := loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(p.readTimeout)})
	if err != nil {
		return "", false, translate(q, "getAttribute", err, nil)
	}
	return v, v != "", nil
}

func (p *PlaywrightPage) InnerText(q Query) (string, error) {
	loc, err := p.one(q)
	if err != nil {
		return "", err
	}
	v, err := loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(p.readTimeout)})
	return v, translate(q, "innerText", err, nil)
}

func (p *PlaywrightPage) InnerTexts(q Query) ([]string, error) {
	v, err := p.locator(q).AllInnerTexts()
	return v, translate(q, "allInnerTexts", err, nil)
}

// Screenshot writes a full-page PNG to path, creating parent directories.
func (p *PlaywrightPage) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	if _, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return nil
}
