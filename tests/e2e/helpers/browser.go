package helpers

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
	"github.com/gotrs-io/todomvc-e2e/internal/pages"
	"github.com/gotrs-io/todomvc-e2e/tests/e2e/config"
)

// BrowserHelper provides browser setup and teardown for tests
type BrowserHelper struct {
	Session *browser.Session
	Page    *browser.PlaywrightPage
	App     *pages.App
	Config  *config.TestConfig
	t       *testing.T
}

// NewBrowserHelper creates a new browser helper instance. The test is
// skipped when browsers are disabled or the target cannot be reached.
func NewBrowserHelper(t *testing.T) *BrowserHelper {
	t.Helper()
	if os.Getenv("SKIP_BROWSER") == "true" {
		t.Skip("SKIP_BROWSER=true")
	}
	cfg := config.GetConfig()
	if cfg.FixturesErr != nil {
		t.Fatalf("invalid TODO_FIXTURES: %v", cfg.FixturesErr)
	}
	if !config.Reachable(cfg.BaseURL) {
		t.Skipf("target %s is not reachable", cfg.BaseURL)
	}
	return &BrowserHelper{Config: cfg, t: t}
}

// Setup initializes the browser and opens a page on the target.
func (b *BrowserHelper) Setup() error {
	poller := browser.DefaultPoller()
	poller.Timeout = b.Config.ExpectTimeout
	opts := browser.SessionOptions{
		Engine:        b.Config.Engine,
		Headless:      b.Config.Headless,
		SlowMo:        b.Config.SlowMo,
		ActionTimeout: b.Config.Timeout,
		Poller:        poller,
		Viewport:      &playwright.Size{Width: 1280, Height: 720},
		Logger:        log.Default(),
	}
	if b.Config.Videos {
		opts.VideoDir = "./test-results/videos"
	}
	b.Session = browser.NewSession(opts)
	if err := b.Session.Start(); err != nil {
		return err
	}
	b.Page = b.Session.Page
	b.attach(b.Page)
	return nil
}

// attach binds the page objects to page using the fixture storage key.
func (b *BrowserHelper) attach(page browser.Page) {
	app := pages.NewApp(page, b.Config.Fixtures.StorageKey)
	b.App = &app
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// TearDown closes the browser and cleans up resources
func (b *BrowserHelper) TearDown() {
	if b.Session == nil {
		return
	}
	if b.t.Failed() && b.Config.Screenshots && b.Page != nil {
		name := unsafeName.ReplaceAllString(b.t.Name(), "_")
		path := filepath.Join("test-results", "screenshots", fmt.Sprintf("%s_%d.png", name, time.Now().Unix()))
		if err := b.Page.Screenshot(path); err != nil {
			b.t.Logf("screenshot failed: %v", err)
		}
	}
	b.Session.Close()
}

// NavigateTo navigates to a path relative to the base URL
func (b *BrowserHelper) NavigateTo(path string) error {
	return b.Page.Navigate(b.Config.BaseURL + path)
}
