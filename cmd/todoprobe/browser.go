package main

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
	"github.com/gotrs-io/todomvc-e2e/internal/config"
	"github.com/gotrs-io/todomvc-e2e/internal/fixtures"
	"github.com/gotrs-io/todomvc-e2e/internal/models"
	"github.com/gotrs-io/todomvc-e2e/internal/probe"
	"github.com/gotrs-io/todomvc-e2e/internal/scenarios"
	"github.com/gotrs-io/todomvc-e2e/internal/version"
)

// ProbeAgentHeader tags every request the probe's browser makes.
const ProbeAgentHeader = "X-Probe-Agent"

func startBrowser(cfg *config.Config) (*browser.Session, error) {
	poller := browser.DefaultPoller()
	if cfg.Browser.ExpectTimeout > 0 {
		poller.Timeout = cfg.Browser.ExpectTimeout
	}
	session := browser.NewSession(browser.SessionOptions{
		Engine:        cfg.Browser.Engine,
		Headless:      cfg.Browser.Headless,
		SlowMo:        cfg.Browser.SlowMo,
		ActionTimeout: cfg.Browser.ActionTimeout,
		Poller:        poller,
		VideoDir:      cfg.Browser.VideoDir,
		Viewport: &playwright.Size{
			Width:  cfg.Browser.Viewport.Width,
			Height: cfg.Browser.Viewport.Height,
		},
		SkipInstall: cfg.Browser.SkipInstall,
		Headers:     map[string]string{ProbeAgentHeader: version.UserAgent("")},
		Logger:      logger,
	})
	if err := session.Start(); err != nil {
		return nil, err
	}
	return session, nil
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// screenshotName turns "Editing/should trim entered text" into
// "editing-should-trim-entered-text.png".
func screenshotName(scenario string) string {
	return strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(scenario), "-"), "-") + ".png"
}

// pageFactory gives every scenario its own browser context and keeps a
// screenshot of the ones that fail.
func pageFactory(session *browser.Session, screenshotDir string) scenarios.PageFactory {
	return func(_ context.Context, scenario string) (browser.Page, func(bool), error) {
		page, release, err := session.NewIsolatedPage()
		if err != nil {
			return nil, nil, err
		}
		return page, func(failed bool) {
			if failed && screenshotDir != "" {
				path := filepath.Join(screenshotDir, screenshotName(scenario))
				if err := page.Screenshot(path); err != nil {
					logger.Printf("[browser] %v", err)
				} else {
					logger.Printf("[browser] screenshot saved to %s", path)
				}
			}
			release()
		}, nil
	}
}

// newExecutor adapts the scenario runner to the probe scheduler.
func newExecutor(baseURL string, fx fixtures.Fixtures, factory scenarios.PageFactory) probe.Executor {
	return func(ctx context.Context, suites []string, onResult func(models.ScenarioResult)) []models.ScenarioResult {
		runner := scenarios.NewRunner(factory, baseURL)
		runner.Fixtures = fx
		runner.Logger = logger
		runner.OnResult = onResult
		return runner.Run(ctx, scenarios.Select(scenarios.Catalog(), suites...))
	}
}
