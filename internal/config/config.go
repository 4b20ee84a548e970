// Package config loads the optional liftoff.yaml project configuration
// and the adjacent .env file. Every field is optional: with no
// configuration at all, the stock clean/build/deploy pipeline runs with
// its built-in tool commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AaronHausheer/liftoff/internal/model"
	"github.com/AaronHausheer/liftoff/internal/retry"
)

// FileName is the configuration file looked up in the project directory.
const FileName = "liftoff.yaml"

// Config is the root of liftoff.yaml.
type Config struct {
	Tools   ToolsConfig   `yaml:"tools"`
	Build   BuildConfig   `yaml:"build"`
	History HistoryConfig `yaml:"history"`
	Events  EventsConfig  `yaml:"events"`
	Metrics MetricsConfig `yaml:"metrics"`
	Verify  VerifyConfig  `yaml:"verify"`
}

// ToolsConfig overrides the external tool binaries invoked by the
// pipeline. Values may be bare names resolved via PATH or absolute paths.
type ToolsConfig struct {
	Cargo  string `yaml:"cargo"`
	Vercel string `yaml:"vercel"`
}

// BuildConfig adjusts the build phase.
type BuildConfig struct {
	// ExtraArgs are appended to `cargo build --release`.
	ExtraArgs []string `yaml:"extra_args"`

	// HermeticImage overrides the container image used by --hermetic
	// builds. Empty selects the built-in default.
	HermeticImage string `yaml:"hermetic_image"`
}

// HistoryConfig controls the local run-history database.
type HistoryConfig struct {
	// Path is the SQLite database location, relative to the project
	// directory unless absolute.
	Path string `yaml:"path"`

	// Disabled turns off history recording entirely.
	Disabled bool `yaml:"disabled"`
}

// EventsConfig enables publishing deploy events to NATS. Publishing is
// off unless a URL is set.
type EventsConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// MetricsConfig enables pushing run metrics to a Prometheus
// Pushgateway. Pushing is off unless a URL is set.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// VerifyConfig tunes post-deploy verification.
type VerifyConfig struct {
	// Path is the API path probed on the deployment URL.
	Path string `yaml:"path"`

	// Retries is the number of retry attempts after the first failed
	// probe. Nil selects the default policy's count.
	Retries *int `yaml:"retries"`

	// Backoff selects the delay growth mode: fixed, linear, or
	// exponential.
	Backoff string `yaml:"backoff"`

	// InitialDelay and MaxDelay are Go duration strings (e.g. "2s").
	InitialDelay string `yaml:"initial_delay"`
	MaxDelay     string `yaml:"max_delay"`
}

// Default returns the configuration used when no liftoff.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads liftoff.yaml from dir, returning a fully defaulted Config.
// A missing file yields the defaults; a malformed file is a
// configuration error.
//
// Load also loads dir/.env into the process environment first, so the
// CLI sees the same variables the deployed functions read. Variables
// already set in the environment are never overridden.
func Load(dir string) (*Config, error) {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		// godotenv.Load never overwrites variables that are already set.
		_ = godotenv.Load(envPath)
	}

	cfg := &Config{}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, model.WrapCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("failed to read %s", FileName), err)
	}

	// KnownFields rejects misspelled keys instead of silently ignoring
	// them, which would otherwise surface as tools mysteriously running
	// with defaults.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, model.WrapCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("invalid %s", FileName), err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills in zero-valued fields.
func (c *Config) applyDefaults() {
	if c.Tools.Cargo == "" {
		c.Tools.Cargo = "cargo"
	}
	if c.Tools.Vercel == "" {
		c.Tools.Vercel = "vercel"
	}
	if c.History.Path == "" {
		c.History.Path = filepath.Join(".liftoff", "history.db")
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "liftoff.deploys"
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "liftoff"
	}
	if c.Verify.Path == "" {
		c.Verify.Path = "/api/movies"
	}
}

// HistoryPath resolves the history database location against the
// project directory.
func (c *Config) HistoryPath(dir string) string {
	if filepath.IsAbs(c.History.Path) {
		return c.History.Path
	}
	return filepath.Join(dir, c.History.Path)
}

// VerifyPolicy builds the retry policy for post-deploy verification
// from the verify section. Unset fields fall back to the default
// policy; malformed durations or an unknown backoff mode are
// configuration errors.
func (c *Config) VerifyPolicy() (retry.Policy, error) {
	var initial, maxDelay time.Duration

	if c.Verify.InitialDelay != "" {
		d, err := time.ParseDuration(c.Verify.InitialDelay)
		if err != nil {
			return retry.Policy{}, model.WrapCLIError(model.ExitConfigInvalid,
				"invalid verify.initial_delay", err)
		}
		initial = d
	}
	if c.Verify.MaxDelay != "" {
		d, err := time.ParseDuration(c.Verify.MaxDelay)
		if err != nil {
			return retry.Policy{}, model.WrapCLIError(model.ExitConfigInvalid,
				"invalid verify.max_delay", err)
		}
		maxDelay = d
	}

	mode := retry.BackoffMode(strings.ToLower(strings.TrimSpace(c.Verify.Backoff)))
	switch mode {
	case "", retry.BackoffFixed, retry.BackoffLinear, retry.BackoffExponential:
	default:
		return retry.Policy{}, model.NewCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("invalid verify.backoff %q (want fixed, linear, or exponential)", c.Verify.Backoff))
	}

	retries := -1
	if c.Verify.Retries != nil {
		retries = *c.Verify.Retries
	}

	return retry.NewPolicy(mode, initial, maxDelay, retries), nil
}
