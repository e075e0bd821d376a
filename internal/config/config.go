// =============================================================================
// Firefly Amazon Reconciler - Configuration Module
// =============================================================================
//
// Two configuration layers:
//
//   1. config.yaml — behavior: cache location/backend, logging, the base
//      search query, politeness delays, failure policy.
//   2. environment (.env via godotenv, or process env) — secrets: Amazon
//      credentials and the Firefly host/token. Secrets never live in the
//      yaml file.
//
// Defaults are applied before validation, and validation reports every
// problem it finds, not just the first one.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// requiredEnvVars must all be present (in the process env or .env) for
// the reconciler to run.
var requiredEnvVars = []string{
	"AMAZON_HOST", "AMAZON_USER", "AMAZON_PASSWORD",
	"FIREFLY_HOST", "FIREFLY_TOKEN",
}

// Config is the merged file + environment configuration.
type Config struct {
	// CacheDir is where fetched pages and scraped order details live.
	CacheDir string `yaml:"cache_dir"`

	// CacheBackend selects the order-cache backend: "file" or "redis".
	CacheBackend string `yaml:"cache_backend"`

	// RedisAddr / RedisPass apply when CacheBackend is "redis".
	RedisAddr string `yaml:"redis_addr"`
	RedisPass string `yaml:"redis_pass"`

	// LogFile receives all log output; stdout when empty.
	LogFile string `yaml:"log_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// BaseQuery is the fixed Firefly search predicate identifying the
	// merchant's transactions.
	BaseQuery string `yaml:"base_query"`

	// ScrapeFailurePolicy is "defer" or "tag".
	ScrapeFailurePolicy string `yaml:"scrape_failure_policy"`

	// MinDelaySeconds / MaxDelaySeconds bound the politeness delay
	// between Amazon page navigations. Pointers so an explicit zero
	// (no delay, e.g. against a local mirror) survives defaulting.
	MinDelaySeconds *int `yaml:"min_delay_seconds"`
	MaxDelaySeconds *int `yaml:"max_delay_seconds"`

	// Environment-provided settings (not part of the yaml file).
	AmazonHost     string `yaml:"-"`
	AmazonUser     string `yaml:"-"`
	AmazonPassword string `yaml:"-"`
	FireflyHost    string `yaml:"-"`
	FireflyToken   string `yaml:"-"`
}

// Load reads the yaml file (a missing file means defaults only), merges
// the environment, applies defaults and validates. A .env file in the
// working directory is honored but optional.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only; the env still has to provide the secrets.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional; real env vars win over it either way.
	_ = godotenv.Load()

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnv pulls the required secrets, reporting every missing variable
// at once.
func (c *Config) loadEnv() error {
	var missing []string
	for _, key := range requiredEnvVars {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	c.AmazonHost = os.Getenv("AMAZON_HOST")
	c.AmazonUser = os.Getenv("AMAZON_USER")
	c.AmazonPassword = os.Getenv("AMAZON_PASSWORD")
	c.FireflyHost = os.Getenv("FIREFLY_HOST")
	c.FireflyToken = os.Getenv("FIREFLY_TOKEN")
	return nil
}

func (c *Config) applyDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = ".cache/"
	}
	if c.CacheBackend == "" {
		c.CacheBackend = "file"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.BaseQuery == "" {
		c.BaseQuery = `destination_account_starts:"Amazon"`
	}
	if c.ScrapeFailurePolicy == "" {
		c.ScrapeFailurePolicy = "defer"
	}
	if c.MinDelaySeconds == nil {
		c.MinDelaySeconds = intp(2)
	}
	if c.MaxDelaySeconds == nil {
		c.MaxDelaySeconds = intp(5)
	}
}

func intp(v int) *int { return &v }

// Validate checks the merged configuration, collecting every problem.
func (c *Config) Validate() error {
	var problems []string

	switch c.CacheBackend {
	case "file", "redis":
	default:
		problems = append(problems, fmt.Sprintf("cache_backend must be file or redis, not %q", c.CacheBackend))
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		problems = append(problems, "redis_addr is required with cache_backend: redis")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level must be debug, info, warn or error, not %q", c.LogLevel))
	}

	switch c.ScrapeFailurePolicy {
	case "defer", "tag":
	default:
		problems = append(problems, fmt.Sprintf("scrape_failure_policy must be defer or tag, not %q", c.ScrapeFailurePolicy))
	}

	if c.MinDelaySeconds != nil && c.MaxDelaySeconds != nil &&
		(*c.MinDelaySeconds < 0 || *c.MaxDelaySeconds < *c.MinDelaySeconds) {
		problems = append(problems, "delay bounds must satisfy 0 <= min_delay_seconds <= max_delay_seconds")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
