package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	mu.Lock()
	cfg = nil
	once = sync.Once{}
	mu.Unlock()
}

func TestDefaults(t *testing.T) {
	c := Defaults()
	assert.Equal(t, "https://demo.playwright.dev/todomvc", c.Target.BaseURL)
	assert.Equal(t, "chromium", c.Browser.Engine)
	assert.True(t, c.Browser.Headless)
	assert.Equal(t, 5*time.Second, c.Browser.ExpectTimeout)
	assert.Equal(t, 1280, c.Browser.Viewport.Width)
	assert.Equal(t, "@every 15m", c.Probe.Schedule)
	assert.Equal(t, "sqlite3", c.Results.Driver)
	assert.Equal(t, "0.0.0.0:8089", c.Server.GetServerAddr())
	assert.Equal(t, "localhost:6379", c.Redis.GetRedisAddr())
	assert.False(t, c.Probe.UsesRedisLock())

	warnings, err := Validate(c)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestLoad(t *testing.T) {
	t.Run("missing file keeps defaults", func(t *testing.T) {
		reset()
		require.NoError(t, Load(t.TempDir()))
		require.NotNil(t, Get())
		assert.Equal(t, "chromium", Get().Browser.Engine)
	})

	t.Run("file, local override and environment", func(t *testing.T) {
		reset()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "todoprobe.yaml"), []byte(`
target:
  base_url: http://localhost:3000/todomvc
browser:
  engine: firefox
probe:
  schedule: "*/5 * * * *"
  suites: [Routing, Counter]
`), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "todoprobe.local.yaml"), []byte(`
browser:
  engine: webkit
`), 0644))
		t.Setenv("TODOE2E_SERVER_PORT", "9999")
		t.Setenv("TODOE2E_REDIS_PASSWORD", "s3cret")

		require.NoError(t, Load(dir))
		c := Get()
		require.NotNil(t, c)
		assert.Equal(t, "http://localhost:3000/todomvc", c.Target.BaseURL)
		assert.Equal(t, "webkit", c.Browser.Engine)
		assert.Equal(t, "*/5 * * * *", c.Probe.Schedule)
		assert.Equal(t, []string{"Routing", "Counter"}, c.Probe.Suites)
		assert.Equal(t, 9999, c.Server.Port)
		assert.Equal(t, "s3cret", c.Redis.Password)
		assert.True(t, c.Browser.Headless, "defaults fill unset keys")
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("Load valid YAML config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "test-config.yaml")

		configContent := `
target:
  base_url: https://todomvc.example.test/react
results:
  driver: postgres
  dsn: postgres://probe@localhost/probe?sslmode=disable
server:
  host: localhost
  port: 8080
`
		require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))
		reset()

		require.NoError(t, LoadFromFile(configFile))

		loadedCfg := Get()
		require.NotNil(t, loadedCfg)
		assert.Equal(t, "https://todomvc.example.test/react", loadedCfg.Target.BaseURL)
		assert.Equal(t, "postgres", loadedCfg.Results.Driver)
		assert.Equal(t, "localhost:8080", loadedCfg.Server.GetServerAddr())
	})

	t.Run("Error on non-existent file", func(t *testing.T) {
		err := LoadFromFile("/non/existent/config.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("Error on invalid YAML", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "invalid-config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("target:\n  base_url: [this is invalid\n"), 0644))

		err := LoadFromFile(configFile)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("MustLoad panics on error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "todoprobe.yaml"), []byte("probe: [broken"), 0644))
		reset()

		defer func() {
			r := recover()
			require.NotNil(t, r)
			assert.Contains(t, r.(string), "Failed to load configuration")
		}()
		MustLoad(dir)
	})
}

func TestValidator(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
		warning string
	}{
		{name: "relative base url", mutate: func(c *Config) { c.Target.BaseURL = "/todomvc" }, wantErr: "target.base_url"},
		{name: "unknown engine", mutate: func(c *Config) { c.Browser.Engine = "lynx" }, wantErr: "browser.engine"},
		{name: "bad schedule", mutate: func(c *Config) { c.Probe.Schedule = "every now and then" }, wantErr: "probe.schedule"},
		{name: "disabled probe skips schedule", mutate: func(c *Config) {
			c.Probe.Enabled = false
			c.Probe.Schedule = "nope"
		}},
		{name: "unknown driver", mutate: func(c *Config) { c.Results.Driver = "oracle" }, wantErr: "results.driver"},
		{name: "unknown lock", mutate: func(c *Config) { c.Probe.Lock = "zookeeper" }, wantErr: "probe.lock"},
		{name: "redis without password", mutate: func(c *Config) { c.Probe.Lock = "redis" }, warning: "redis.password"},
		{name: "headed browser", mutate: func(c *Config) { c.Browser.Headless = false }, warning: "browser.headless"},
		{name: "fragment in base url", mutate: func(c *Config) { c.Target.BaseURL += "#/active" }, warning: "#fragment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(c)
			warnings, err := Validate(c)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.warning != "" {
				require.NotEmpty(t, warnings)
				assert.Contains(t, fmt.Sprint(warnings), tt.warning)
			}
		})
	}
}

func TestConcurrentConfigAccess(t *testing.T) {
	mu.Lock()
	cfg = Defaults()
	mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c := Get()
				_ = c.Server.GetServerAddr()
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				next := Defaults()
				next.Server.Port = 9000 + id
				mu.Lock()
				cfg = next
				mu.Unlock()
				time.Sleep(time.Millisecond)
			}
		}(i)
	}
	wg.Wait()
	assert.NotNil(t, Get())
}

func BenchmarkGetConfig(b *testing.B) {
	mu.Lock()
	cfg = Defaults()
	mu.Unlock()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Get()
		}
	})
}
