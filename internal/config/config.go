package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
)

// EnvPrefix is the prefix of environment overrides, e.g. TODOE2E_TARGET_BASE_URL.
const EnvPrefix = "TODOE2E"

// Config represents the probe configuration
type Config struct {
	Target   TargetConfig   `mapstructure:"target"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Fixtures FixturesConfig `mapstructure:"fixtures"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Server   ServerConfig   `mapstructure:"server"`
	Results  ResultsConfig  `mapstructure:"results"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type TargetConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

type BrowserConfig struct {
	Engine        string        `mapstructure:"engine"`
	Headless      bool          `mapstructure:"headless"`
	SlowMo        time.Duration `mapstructure:"slow_mo"`
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
	ExpectTimeout time.Duration `mapstructure:"expect_timeout"`
	SkipInstall   bool          `mapstructure:"skip_install"`
	VideoDir      string        `mapstructure:"video_dir"`
	ScreenshotDir string        `mapstructure:"screenshot_dir"`
	Viewport      struct {
		Width  int `mapstructure:"width"`
		Height int `mapstructure:"height"`
	} `mapstructure:"viewport"`
}

type FixturesConfig struct {
	Path string `mapstructure:"path"`
}

type ProbeConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Suites   []string      `mapstructure:"suites"`
	Lock     string        `mapstructure:"lock"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ResultsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	Limit   int    `mapstructure:"limit"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type LoggingConfig struct {
	Color bool `mapstructure:"color"`
	Steps bool `mapstructure:"steps"`
}

// setDefaults mirrors configs/todoprobe.yaml so the probe runs without a file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("target.base_url", "https://demo.playwright.dev/todomvc")
	v.SetDefault("target.probe_timeout", 5*time.Second)

	v.SetDefault("browser.engine", "chromium")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.action_timeout", 10*time.Second)
	v.SetDefault("browser.expect_timeout", 5*time.Second)
	v.SetDefault("browser.slow_mo", time.Duration(0))
	v.SetDefault("browser.skip_install", false)
	v.SetDefault("browser.video_dir", "")
	v.SetDefault("browser.screenshot_dir", "test-results")
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 720)

	v.SetDefault("probe.enabled", true)
	v.SetDefault("probe.schedule", "@every 15m")
	v.SetDefault("probe.timeout", 5*time.Minute)
	v.SetDefault("probe.suites", []string{})
	v.SetDefault("probe.lock", "local")

	v.SetDefault("fixtures.path", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8089)
	v.SetDefault("server.read_timeout", 15*time.Second)
	// POST /api/runs waits for a whole run
	v.SetDefault("server.write_timeout", 6*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("results.enabled", true)
	v.SetDefault("results.driver", "sqlite3")
	v.SetDefault("results.dsn", "file:todoprobe.db?cache=shared")
	v.SetDefault("results.limit", 50)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "todoprobe:")
	v.SetDefault("redis.lock_ttl", 10*time.Minute)

	v.SetDefault("logging.color", true)
	v.SetDefault("logging.steps", false)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return c, nil
}

// Load initializes the configuration from todoprobe.yaml in configPath with
// hot reload support. A missing file leaves the defaults in place.
func Load(configPath string) error {
	var err error
	once.Do(func() {
		v := newViper()
		v.SetConfigName("todoprobe")
		v.AddConfigPath(configPath)

		fileFound := true
		if err = v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				err = fmt.Errorf("failed to read config: %w", err)
				return
			}
			fileFound, err = false, nil
		}

		// Environment-specific overrides (optional)
		v.SetConfigName("todoprobe.local")
		if mergeErr := v.MergeInConfig(); mergeErr != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(mergeErr, &notFound) {
				err = fmt.Errorf("failed to merge config: %w", mergeErr)
				return
			}
		}

		var loaded *Config
		if loaded, err = decode(v); err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()

		if !fileFound {
			return
		}
		// watch the base file; a reload drops the local override
		v.SetConfigName("todoprobe")

		// Watch for config changes
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Printf("[config] file changed: %s", e.Name)
			newCfg, err := decode(v)
			if err != nil {
				log.Printf("[config] failed to reload: %v", err)
				return
			}

			mu.Lock()
			cfg = newCfg
			mu.Unlock()
			log.Printf("[config] reloaded")
		})
	})

	return err
}

// Get returns the current configuration (thread-safe)
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// GetRedisAddr returns the Redis server address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetServerAddr returns the server listen address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UsesRedisLock reports whether runs are serialised through Redis.
func (c *ProbeConfig) UsesRedisLock() bool {
	return strings.EqualFold(c.Lock, "redis")
}

// LoadFromFile loads configuration from a specific file (useful for testing)
func LoadFromFile(configFile string) error {
	v := newViper()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	loaded, err := decode(v)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	cfg = loaded
	return nil
}

// Defaults returns the configuration with no file and no environment applied.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	c, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("invalid default configuration: %v", err))
	}
	return c
}

// MustLoad loads configuration and panics on error
func MustLoad(configPath string) {
	if err := Load(configPath); err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
}
