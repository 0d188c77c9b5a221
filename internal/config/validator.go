package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validator collects configuration problems. Errors stop the probe from
// starting; warnings are only logged.
type Validator struct {
	config   *Config
	errors   []string
	warnings []string
}

func NewValidator(cfg *Config) *Validator {
	return &Validator{
		config:   cfg,
		errors:   []string{},
		warnings: []string{},
	}
}

func (v *Validator) Validate() error {
	v.validateTarget()
	v.validateBrowser()
	v.validateProbe()
	v.validateResults()
	v.validateRedis()

	if len(v.errors) > 0 {
		return fmt.Errorf("config validation failed:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

// Warnings returns the warnings found by the last Validate.
func (v *Validator) Warnings() []string {
	return append([]string(nil), v.warnings...)
}

func (v *Validator) validateTarget() {
	u, err := url.Parse(v.config.Target.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.addError(fmt.Sprintf("target.base_url %q is not an absolute URL", v.config.Target.BaseURL))
		return
	}
	if u.Fragment != "" {
		v.addWarning("target.base_url carries a #fragment; filters navigate by hash and will replace it")
	}
}

func (v *Validator) validateBrowser() {
	switch strings.ToLower(v.config.Browser.Engine) {
	case "chromium", "firefox", "webkit":
	default:
		v.addError(fmt.Sprintf("browser.engine %q must be chromium, firefox or webkit", v.config.Browser.Engine))
	}
	if v.config.Browser.ExpectTimeout <= 0 {
		v.addError("browser.expect_timeout must be positive")
	}
	if !v.config.Browser.Headless {
		v.addWarning("browser.headless is false; scheduled runs need a display")
	}
}

func (v *Validator) validateProbe() {
	if !v.config.Probe.Enabled {
		return
	}
	if _, err := cron.ParseStandard(v.config.Probe.Schedule); err != nil {
		v.addError(fmt.Sprintf("probe.schedule %q: %v", v.config.Probe.Schedule, err))
	}
	switch strings.ToLower(v.config.Probe.Lock) {
	case "", "local", "redis":
	default:
		v.addError(fmt.Sprintf("probe.lock %q must be local or redis", v.config.Probe.Lock))
	}
	if v.config.Probe.Timeout > 0 && v.config.Probe.Timeout < v.config.Browser.ExpectTimeout {
		v.addWarning("probe.timeout is shorter than a single assertion timeout")
	}
}

func (v *Validator) validateResults() {
	if !v.config.Results.Enabled {
		return
	}
	switch v.config.Results.Driver {
	case "sqlite3", "postgres", "mysql":
	default:
		v.addError(fmt.Sprintf("results.driver %q must be sqlite3, postgres or mysql", v.config.Results.Driver))
	}
	if v.config.Results.DSN == "" {
		v.addError("results.dsn is required when results are enabled")
	}
}

func (v *Validator) validateRedis() {
	if !v.config.Probe.UsesRedisLock() {
		return
	}
	if v.config.Redis.Host == "" {
		v.addError("redis.host is required for probe.lock=redis")
	}
	if v.config.Redis.Password == "" {
		v.addWarning("redis.password is empty")
	}
	if v.config.Redis.LockTTL < v.config.Probe.Timeout {
		v.addWarning("redis.lock_ttl is shorter than probe.timeout; a slow run may lose its lock")
	}
}

func (v *Validator) addError(message string) {
	v.errors = append(v.errors, "  - "+message)
}

func (v *Validator) addWarning(message string) {
	v.warnings = append(v.warnings, "  - "+message)
}

// Validate is a convenience wrapper around NewValidator(cfg).Validate.
func Validate(cfg *Config) ([]string, error) {
	v := NewValidator(cfg)
	err := v.Validate()
	return v.Warnings(), err
}
