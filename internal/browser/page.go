package browser

// Page is the live page collaborator the façades drive. Actions resolve the
// query to exactly one element and fail with ErrNotFound or ErrAmbiguous
// otherwise. Reads are instantaneous snapshots; retrying is the job of Poller.
type Page interface {
	Navigate(url string) error
	Reload() error
	GoBack() error
	URL() string
	Evaluate(expression string, arg any) (any, error)

	Fill(q Query, text string) error
	Press(q Query, key string) error
	Click(q Query) error
	DblClick(q Query) error
	Check(q Query) error
	Uncheck(q Query) error
	DispatchEvent(q Query, event string) error

	Count(q Query) (int, error)
	IsVisible(q Query) (bool, error)
	IsChecked(q Query) (bool, error)
	InputValue(q Query) (string, error)
	Attribute(q Query, name string) (string, bool, error)
	InnerText(q Query) (string, error)
	InnerTexts(q Query) ([]string, error)
}

// PollerProvider is implemented by pages that carry their own assertion timing.
type PollerProvider interface {
	Poller() Poller
}

// PollerFor returns the page's poller or DefaultPoller.
func PollerFor(p Page) Poller {
	if pp, ok := p.(PollerProvider); ok {
		return pp.Poller()
	}
	return DefaultPoller()
}

// Locator binds a query to a page.
type Locator struct {
	page  Page
	query Query
}

// NewLocator binds q to page.
func NewLocator(page Page, q Query) Locator {
	return Locator{page: page, query: q}
}

// Page returns the page the locator resolves against.
func (l Locator) Page() Page { return l.page }

// Query returns the structural descriptor.
func (l Locator) Query() Query { return l.query }

func (l Locator) String() string { return l.query.String() }

func (l Locator) CSS(selector string) Locator { return NewLocator(l.page, l.query.CSS(selector)) }

func (l Locator) Role(role, name string) Locator {
	return NewLocator(l.page, l.query.Role(role, name))
}

func (l Locator) RoleExact(role, name string) Locator {
	return NewLocator(l.page, l.query.RoleExact(role, name))
}

func (l Locator) Placeholder(text string) Locator {
	return NewLocator(l.page, l.query.Placeholder(text))
}

func (l Locator) Label(text string) Locator { return NewLocator(l.page, l.query.Label(text)) }

func (l Locator) TestID(id string) Locator { return NewLocator(l.page, l.query.TestID(id)) }

func (l Locator) Nth(i int) Locator { return NewLocator(l.page, l.query.Nth(i)) }

func (l Locator) First() Locator { return NewLocator(l.page, l.query.First()) }

func (l Locator) Fill(text string) error { return l.page.Fill(l.query, text) }

func (l Locator) Press(key string) error { return l.page.Press(l.query, key) }

func (l Locator) Click() error { return l.page.Click(l.query) }

func (l Locator) DblClick() error { return l.page.DblClick(l.query) }

func (l Locator) Check() error { return l.page.Check(l.query) }

func (l Locator) Uncheck() error { return l.page.Uncheck(l.query) }

func (l Locator) DispatchEvent(event string) error { return l.page.DispatchEvent(l.query, event) }

func (l Locator) Count() (int, error) { return l.page.Count(l.query) }

func (l Locator) IsVisible() (bool, error) { return l.page.IsVisible(l.query) }

func (l Locator) IsChecked() (bool, error) { return l.page.IsChecked(l.query) }

func (l Locator) InputValue() (string, error) { return l.page.InputValue(l.query) }

func (l Locator) InnerText() (string, error) { return l.page.InnerText(l.query) }

func (l Locator) InnerTexts() ([]string, error) { return l.page.InnerTexts(l.query) }

// Expect returns polling assertions for the locator using the page's poller.
func (l Locator) Expect() Assertions {
	return Assertions{loc: l, poller: PollerFor(l.page)}
}
