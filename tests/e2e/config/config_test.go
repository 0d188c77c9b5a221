package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDefaults(t *testing.T) {
	for _, key := range []string{"BASE_URL", "TODO_FIXTURES", "STORAGE_KEY", "BROWSER", "HEADLESS", "SLOW_MO", "EXPECT_TIMEOUT"} {
		t.Setenv(key, "")
	}
	cfg := GetConfig()
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "chromium", cfg.Engine)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 5*time.Second, cfg.ExpectTimeout)
	assert.Equal(t, "react-todos", cfg.Fixtures.StorageKey)
	assert.NoError(t, cfg.FixturesErr)
}

func TestGetConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("titles: [one, two, three]\nedited: four\n"), 0o644))

	t.Setenv("BASE_URL", "http://localhost:3000/")
	t.Setenv("TODO_FIXTURES", path)
	t.Setenv("STORAGE_KEY", "todos-vanillajs")
	t.Setenv("HEADLESS", "false")
	t.Setenv("SLOW_MO", "250")
	t.Setenv("EXPECT_TIMEOUT", "2s")

	cfg := GetConfig()
	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowMo)
	assert.Equal(t, 2*time.Second, cfg.ExpectTimeout)
	assert.Equal(t, []string{"one", "two", "three"}, cfg.Fixtures.Titles)
	assert.Equal(t, "todos-vanillajs", cfg.Fixtures.StorageKey)
}

func TestReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, Reachable(srv.URL))
	assert.False(t, Reachable("http://127.0.0.1:1"))
	assert.False(t, Reachable("not a url"))
}
