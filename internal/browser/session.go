package browser

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

// SessionOptions configures a browser session.
type SessionOptions struct {
	Engine        string // chromium, firefox or webkit
	Headless      bool
	SlowMo        time.Duration
	ActionTimeout time.Duration
	Poller        Poller
	VideoDir      string
	Viewport      *playwright.Size
	SkipInstall   bool
	// Headers are sent with every request, e.g. to tag probe traffic.
	Headers map[string]string
	Logger  *log.Logger
}

// Session owns a playwright driver, a browser, one context and one page.
type Session struct {
	Playwright *playwright.Playwright
	Browser    playwright.Browser
	Context    playwright.BrowserContext
	Page       *PlaywrightPage

	opts   SessionOptions
	logger *log.Logger
}

// NewSession returns an unstarted session.
func NewSession(opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Engine == "" {
		opts.Engine = "chromium"
	}
	if opts.Poller.Timeout == 0 {
		opts.Poller = DefaultPoller()
	}
	return &Session{opts: opts, logger: opts.Logger}
}

// Start installs (unless disabled) and runs the driver, launches the browser
// and opens a page.
func (s *Session) Start() error {
	var pw *playwright.Playwright
	var err error
	runOpts := &playwright.RunOptions{Browsers: []string{s.opts.Engine}}
	if !s.opts.SkipInstall && os.Getenv("PLAYWRIGHT_PREINSTALLED") != "1" {
		if err = playwright.Install(runOpts); err != nil {
			return fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}
	pw, err = playwright.Run()
	if err != nil {
		// Driver/browser mismatch is the common cause; reinstall once.
		_ = playwright.Install(runOpts)
		pw, err = playwright.Run()
		if err != nil {
			return fmt.Errorf("could not start playwright after retry: %w", err)
		}
	}
	s.Playwright = pw

	browserType, err := s.browserType()
	if err != nil {
		s.Close()
		return err
	}
	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
		SlowMo:   playwright.Float(float64(s.opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		s.Close()
		return fmt.Errorf("could not launch %s: %w", s.opts.Engine, err)
	}
	s.Browser = browser

	bctx, err := browser.NewContext(s.contextOptions())
	if err != nil {
		s.Close()
		return fmt.Errorf("could not create context: %w", err)
	}
	s.Context = bctx

	page, err := bctx.NewPage()
	if err != nil {
		s.Close()
		return fmt.Errorf("could not create page: %w", err)
	}
	s.Page = s.wrap(page)
	s.logger.Printf("[browser] %s session started (headless=%t)", s.opts.Engine, s.opts.Headless)
	return nil
}

func (s *Session) contextOptions() playwright.BrowserNewContextOptions {
	viewport := s.opts.Viewport
	if viewport == nil {
		viewport = &playwright.Size{Width: 1280, Height: 720}
	}
	opts := playwright.BrowserNewContextOptions{Viewport: viewport}
	if s.opts.VideoDir != "" {
		opts.RecordVideo = &playwright.RecordVideo{Dir: s.opts.VideoDir}
	}
	if len(s.opts.Headers) > 0 {
		opts.ExtraHttpHeaders = s.opts.Headers
	}
	return opts
}

func (s *Session) wrap(page playwright.Page) *PlaywrightPage {
	if s.opts.ActionTimeout > 0 {
		page.SetDefaultTimeout(float64(s.opts.ActionTimeout.Milliseconds()))
	}
	return NewPlaywrightPage(page, s.opts.Poller)
}

// NewIsolatedPage opens a page in its own browser context, so it starts with
// empty storage. release closes the page and its context.
func (s *Session) NewIsolatedPage() (*PlaywrightPage, func(), error) {
	if s.Browser == nil {
		return nil, nil, fmt.Errorf("session not started")
	}
	bctx, err := s.Browser.NewContext(s.contextOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("could not create context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, nil, fmt.Errorf("could not create page: %w", err)
	}
	return s.wrap(page), func() {
		_ = page.Close()
		_ = bctx.Close()
	}, nil
}

func (s *Session) browserType() (playwright.BrowserType, error) {
	switch s.opts.Engine {
	case "chromium":
		return s.Playwright.Chromium, nil
	case "firefox":
		return s.Playwright.Firefox, nil
	case "webkit":
		return s.Playwright.WebKit, nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", s.opts.Engine)
	}
}

// Screenshot writes a full-page PNG of the session page to path.
func (s *Session) Screenshot(path string) error {
	if s.Page == nil {
		return fmt.Errorf("no page to capture")
	}
	return s.Page.Screenshot(path)
}

// Close releases everything that was started. Safe to call more than once.
func (s *Session) Close() {
	if s.Page != nil {
		_ = s.Page.Raw().Close()
		s.Page = nil
	}
	if s.Context != nil {
		_ = s.Context.Close()
		s.Context = nil
	}
	if s.Browser != nil {
		_ = s.Browser.Close()
		s.Browser = nil
	}
	if s.Playwright != nil {
		_ = s.Playwright.Stop()
		s.Playwright = nil
	}
}
