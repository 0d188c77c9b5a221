// Package browsertest provides an in-memory TodoMVC page that implements
// browser.Page, so façades and scenarios can be exercised without a browser.
package browsertest

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

// DefaultStorageKey is the key the React TodoMVC app persists under.
const DefaultStorageKey = "react-todos"

// Option configures a Page.
type Option func(*Page)

// WithStorageKey changes the storage key the app persists under.
func WithStorageKey(key string) Option {
	return func(p *Page) { p.storageKey = key }
}

// WithRenderLag makes the next n reads after every mutation observe the
// previous DOM, imitating an app that updates asynchronously.
func WithRenderLag(n int) Option {
	return func(p *Page) { p.lag = n }
}

// WithPoller sets the assertion timing returned by Poller.
func WithPoller(poller browser.Poller) Option {
	return func(p *Page) { p.poller = poller }
}

// Page is a fake TodoMVC tab. The zero value is not usable; call New.
type Page struct {
	mu sync.Mutex

	storageKey string
	storage    map[string]string
	app        app

	history []string
	cursor  int

	doc        *goquery.Document
	stale      *goquery.Document
	staleReads int
	lag        int

	poller browser.Poller
}

// New returns a blank page (about:blank) with empty storage.
func New(opts ...Option) *Page {
	p := &Page{
		storageKey: DefaultStorageKey,
		storage:    map[string]string{},
		history:    []string{"about:blank"},
		poller: browser.Poller{
			Timeout:     500 * time.Millisecond,
			Backoff:     []time.Duration{time.Millisecond, 2 * time.Millisecond, 5 * time.Millisecond},
			MaxInterval: 10 * time.Millisecond,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.app.filter = models.FilterAll
	p.doc, _ = goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	return p
}

// Poller implements browser.PollerProvider with short test-friendly timing.
func (p *Page) Poller() browser.Poller { return p.poller }

// Storage returns a copy of the simulated localStorage.
func (p *Page) Storage() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.storage))
	for k, v := range p.storage {
		out[k] = v
	}
	return out
}

// rerender rebuilds the DOM from app state and persists the todos.
func (p *Page) rerender(persist bool) error {
	if persist {
		p.storage[p.storageKey] = p.app.save()
	}
	markup, err := p.app.render()
	if err != nil {
		return fmt.Errorf("render todomvc: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("parse todomvc: %w", err)
	}
	if p.lag > 0 {
		p.stale = p.doc
		p.staleReads = p.lag
	}
	p.doc = doc
	return nil
}

// freshRender renders a newly loaded document; loads are never observed stale.
func (p *Page) freshRender() error {
	err := p.rerender(false)
	p.stale, p.staleReads = nil, 0
	return err
}

// readDoc is the DOM a read observes, honouring render lag.
func (p *Page) readDoc() *goquery.Document {
	if p.staleReads > 0 && p.stale != nil {
		p.staleReads--
		return p.stale
	}
	return p.doc
}

func (p *Page) currentURL() string { return p.history[p.cursor] }

func (p *Page) push(u string) {
	p.history = append(p.history[:p.cursor+1], u)
	p.cursor = len(p.history) - 1
}

func (p *Page) Navigate(rawURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", rawURL, err)
	}
	p.push(rawURL)
	p.app.load(p.storage[p.storageKey])
	p.app.filter = models.FilterFromHash(u.Fragment)
	return p.freshRender()
}

func (p *Page) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, _ := url.Parse(p.currentURL())
	p.app.load(p.storage[p.storageKey])
	if u != nil {
		p.app.filter = models.FilterFromHash(u.Fragment)
	}
	return p.freshRender()
}

func (p *Page) GoBack() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cursor == 0 {
		return nil
	}
	p.cursor--
	u, _ := url.Parse(p.currentURL())
	if u != nil {
		p.app.filter = models.FilterFromHash(u.Fragment)
	}
	return p.rerender(false)
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentURL()
}

// target resolves q to one element of the current DOM for an action.
func (p *Page) target(q browser.Query, mustBeVisible bool) (*goquery.Selection, string, error) {
	sel := resolve(p.doc, q)
	switch n := sel.Length(); {
	case n == 0:
		return nil, "", browser.NotFound(q, "")
	case n > 1:
		return nil, "", browser.Ambiguous(q, n)
	}
	if mustBeVisible && !visible(sel) {
		return nil, "", browser.NotFound(q, "element is not visible")
	}
	node, _ := sel.Attr("data-node")
	return sel, node, nil
}

func splitNode(node string) (kind, id string) {
	kind, id, _ = strings.Cut(node, ":")
	return kind, id
}

func (p *Page) Fill(q browser.Query, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, node, err := p.target(q, true)
	if err != nil {
		return err
	}
	if r := roleOf(sel); r != "textbox" {
		return fmt.Errorf("fill %s: element is not an <input> or <textarea> (role %q)", q, r)
	}
	switch kind, _ := splitNode(node); kind {
	case "new-todo":
		p.app.newTodo = text
	case "edit":
		p.app.editValue = text
	}
	return p.rerender(false)
}

func (p *Page) Press(q browser.Query, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, node, err := p.target(q, true)
	if err != nil {
		return err
	}
	kind, _ := splitNode(node)
	switch {
	case kind == "new-todo" && key == "Enter":
		if p.app.add() {
			return p.rerender(true)
		}
	case kind == "edit" && key == "Enter":
		if p.app.commitEdit() {
			return p.rerender(true)
		}
	case kind == "edit" && key == "Escape":
		p.app.cancelEdit()
	case len(key) == 1 && kind == "new-todo":
		p.app.newTodo += key
	case len(key) == 1 && kind == "edit":
		p.app.editValue += key
	}
	return p.rerender(false)
}

func (p *Page) Click(q browser.Query) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, node, err := p.target(q, true)
	if err != nil {
		return err
	}
	return p.click(node)
}

func (p *Page) click(node string) error {
	kind, id := splitNode(node)
	switch kind {
	case "toggle":
		i := p.app.index(id)
		if i >= 0 && p.app.setCompleted(id, !p.app.todos[i].Completed) {
			return p.rerender(true)
		}
	case "toggle-all":
		if p.app.setAll(!p.app.allCompleted()) {
			return p.rerender(true)
		}
	case "destroy":
		if p.app.destroy(id) {
			return p.rerender(true)
		}
	case "clear-completed":
		if p.app.clearCompleted() {
			return p.rerender(true)
		}
	case "filter":
		f, err := models.ParseFilter(id)
		if err != nil {
			return err
		}
		base, _, _ := strings.Cut(p.currentURL(), "#")
		p.push(base + f.Hash())
		p.app.filter = f
	}
	return p.rerender(false)
}

func (p *Page) DblClick(q browser.Query) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, node, err := p.target(q, true)
	if err != nil {
		return err
	}
	switch kind, id := splitNode(node); kind {
	case "item", "title":
		p.app.startEdit(id)
	}
	return p.rerender(false)
}

func (p *Page) setChecked(action string, q browser.Query, want bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, node, err := p.target(q, true)
	if err != nil {
		return err
	}
	if roleOf(sel) != "checkbox" {
		return fmt.Errorf("%s %s: not a checkbox", action, q)
	}
	if _, checked := sel.Attr("checked"); checked == want {
		return nil
	}
	if err := p.click(node); err != nil {
		return err
	}
	after := resolve(p.doc, q)
	if _, checked := after.Attr("checked"); after.Length() == 1 && checked != want {
		return fmt.Errorf("%s %s: clicking the checkbox did not change its state", action, q)
	}
	return nil
}

func (p *Page) Check(q browser.Query) error { return p.setChecked("check", q, true) }

func (p *Page) Uncheck(q browser.Query) error { return p.setChecked("uncheck", q, false) }

func (p *Page) DispatchEvent(q browser.Query, event string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, node, err := p.target(q, false)
	if err != nil {
		return err
	}
	kind, _ := splitNode(node)
	switch event {
	case "blur", "focusout":
		if kind == "edit" && p.app.commitEdit() {
			return p.rerender(true)
		}
	case "click":
		return p.click(node)
	default:
		return nil
	}
	return p.rerender(false)
}

func (p *Page) Count(q browser.Query) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return resolve(p.readDoc(), q).Length(), nil
}

// read resolves q to exactly one element of the observed DOM.
func (p *Page) read(q browser.Query) (*goquery.Selection, error) {
	sel := resolve(p.readDoc(), q)
	switch n := sel.Length(); {
	case n == 0:
		return nil, browser.NotFound(q, "")
	case n > 1:
		return nil, browser.Ambiguous(q, n)
	}
	return sel, nil
}

func (p *Page) IsVisible(q browser.Query) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.read(q)
	if err != nil {
		return false, err
	}
	return visible(sel), nil
}

func (p *Page) IsChecked(q browser.Query) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.read(q)
	if err != nil {
		return false, err
	}
	if r := roleOf(sel); r != "checkbox" && r != "radio" {
		return false, fmt.Errorf("isChecked %s: not a checkbox or radio button", q)
	}
	_, checked := sel.Attr("checked")
	return checked, nil
}

func (p *Page) InputValue(q browser.Query) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.read(q)
	if err != nil {
		return "", err
	}
	switch goquery.NodeName(sel) {
	case "input":
		v, _ := sel.Attr("value")
		return v, nil
	case "textarea":
		return sel.Text(), nil
	}
	return "", fmt.Errorf("inputValue %s: not an <input> or <textarea>", q)
}

func (p *Page) Attribute(q browser.Query, name string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.read(q)
	if err != nil {
		return "", false, err
	}
	v, ok := sel.Attr(name)
	return v, ok, nil
}

func (p *Page) InnerText(q browser.Query) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.read(q)
	if err != nil {
		return "", err
	}
	return innerText(sel), nil
}

func (p *Page) InnerTexts(q browser.Query) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := resolve(p.readDoc(), q)
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, el *goquery.Selection) {
		out = append(out, innerText(el))
	})
	return out, nil
}

var _ browser.Page = (*Page)(nil)
