package config

import (
	"bufio"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gotrs-io/todomvc-e2e/internal/fixtures"
)

// DefaultBaseURL is the public TodoMVC build the suite targets by default.
const DefaultBaseURL = "https://demo.playwright.dev/todomvc"

// TestConfig holds all configuration for E2E tests
type TestConfig struct {
	BaseURL       string
	Engine        string
	Timeout       time.Duration
	ExpectTimeout time.Duration
	Headless      bool
	SlowMo        time.Duration
	Screenshots   bool
	Videos        bool
	Fixtures      fixtures.Fixtures
	FixturesErr   error
}

var loadOnce sync.Once

// loadDotEnv loads simple KEY=VALUE lines from .env if present.
// Existing environment variables take precedence and are not overwritten.
func loadDotEnv() {
	paths := []string{".env", "../../.env"}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if i := strings.Index(line, "="); i > 0 {
				key := strings.TrimSpace(line[:i])
				val := strings.TrimSpace(line[i+1:])
				if val == "" || key == "" {
					continue
				}
				if (strings.HasPrefix(val, "\"") && strings.HasSuffix(val, "\"")) || (strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'")) {
					val = val[1 : len(val)-1]
				}
				if os.Getenv(key) == "" {
					_ = os.Setenv(key, val)
				}
			}
		}
		_ = f.Close()
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("[e2e-config] ignoring invalid %s=%q", key, raw)
	return fallback
}

// GetConfig returns the test configuration from environment variables
func GetConfig() *TestConfig {
	loadOnce.Do(loadDotEnv)
	baseURL := strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	fx := fixtures.Default()
	var fxErr error
	if path := os.Getenv("TODO_FIXTURES"); path != "" {
		fx, fxErr = fixtures.Load(path)
	}
	if key := os.Getenv("STORAGE_KEY"); key != "" && fxErr == nil {
		fx.StorageKey = key
	}

	engine := os.Getenv("BROWSER")
	if engine == "" {
		engine = "chromium"
	}
	log.Printf("[e2e-config] BaseURL=%s engine=%s storage_key=%s", baseURL, engine, fx.StorageKey)

	return &TestConfig{
		BaseURL:       baseURL,
		Engine:        engine,
		Timeout:       durationEnv("E2E_TIMEOUT", 30*time.Second),
		ExpectTimeout: durationEnv("EXPECT_TIMEOUT", 5*time.Second),
		Headless:      os.Getenv("HEADLESS") != "false",
		SlowMo:        durationEnv("SLOW_MO", 0),
		Screenshots:   os.Getenv("SCREENSHOTS") != "false",
		Videos:        os.Getenv("VIDEOS") == "true",
		Fixtures:      fx,
		FixturesErr:   fxErr,
	}
}

// Reachable reports whether the target answers HTTP at all.
func Reachable(base string) bool {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}
	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.Dial("tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(base)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
