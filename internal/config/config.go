// Package config loads the pt configuration file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papertrail/papertrail/internal/paper"
	"github.com/papertrail/papertrail/internal/scoring"
	"github.com/papertrail/papertrail/internal/suggest"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME and XDG_DATA_HOME.
	ConfigDir = "pt"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// DBFile is the default database file name.
	DBFile = "papertrail.db"
)

// Environment variables that override the config file.
const (
	EnvSimilarityEndpoint = "PT_SIMILARITY_ENDPOINT"
	EnvSuggestionEndpoint = "PT_SUGGEST_ENDPOINT"
	EnvDBPath             = "PT_DB_PATH"
	EnvLogLevel           = "PT_LOG_LEVEL"
)

// Config is the pt configuration, stored in ~/.config/pt/config.yml.
type Config struct {
	SimilarityEndpoint string        `yaml:"similarity_endpoint,omitempty"`
	SuggestionEndpoint string        `yaml:"suggestion_endpoint,omitempty"`
	Timeout            time.Duration `yaml:"timeout,omitempty"`
	RateLimit          float64       `yaml:"rate_limit,omitempty"` // requests per second, 0 for unlimited
	DBPath             string        `yaml:"db_path,omitempty"`
	SuggestPolicy      string        `yaml:"suggest_policy,omitempty"` // "sentence" or "citation"
	DedupKey           string        `yaml:"dedup_key,omitempty"`      // "fingerprint" or "count"
	SweepSchedule      string        `yaml:"sweep_schedule,omitempty"`
	LogLevel           string        `yaml:"log_level,omitempty"`
}

// Errors reported when a command needs an endpoint that is not configured.
var (
	ErrNoSimilarityEndpoint = errors.New("similarity_endpoint not configured")
	ErrNoSuggestionEndpoint = errors.New("suggestion_endpoint not configured")
)

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/pt/config.yml.
func Path() string {
	return xdgPath("XDG_CONFIG_HOME", ".config", ConfigFile)
}

// DefaultDBPath returns the default database location.
// Respects XDG_DATA_HOME, defaults to ~/.local/share/pt/papertrail.db.
func DefaultDBPath() string {
	return xdgPath("XDG_DATA_HOME", filepath.Join(".local", "share"), DBFile)
}

func xdgPath(env, fallback, name string) string {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, ConfigDir, name)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Timeout:   scoring.DefaultTimeout,
		RateLimit: scoring.DefaultRateLimit,
	}
}

// Load reads the config file at path over the defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides file values with non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvSimilarityEndpoint); v != "" {
		c.SimilarityEndpoint = v
	}
	if v := getenv(EnvSuggestionEndpoint); v != "" {
		c.SuggestionEndpoint = v
	}
	if v := getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Resolve fills derived defaults: the database path and tilde expansion.
func (c *Config) Resolve() {
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath()
	}
	c.DBPath = ExpandTilde(c.DBPath)
}

// Validate checks every configured value. Unset endpoints are allowed;
// commands that need one call RequireSimilarity or RequireSuggestion.
func (c *Config) Validate() error {
	if err := validateEndpoint("similarity_endpoint", c.SimilarityEndpoint); err != nil {
		return err
	}
	if err := validateEndpoint("suggestion_endpoint", c.SuggestionEndpoint); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s (must be positive)", c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("invalid rate_limit: %g (must not be negative)", c.RateLimit)
	}
	if _, err := suggest.PolicyByName(c.SuggestPolicy); err != nil {
		return fmt.Errorf("invalid suggest_policy: %w", err)
	}
	if _, ok := paper.KeyFuncByName(c.DedupKey); !ok {
		return fmt.Errorf("invalid dedup_key: %q (valid: fingerprint, count)", c.DedupKey)
	}
	if c.SweepSchedule != "" {
		if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
			return fmt.Errorf("invalid sweep_schedule: %w", err)
		}
	}
	return nil
}

func validateEndpoint(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s: %q (want an http or https URL)", field, raw)
	}
	return nil
}

// RequireSimilarity returns an error if no similarity endpoint is set.
func (c *Config) RequireSimilarity() error {
	if c.SimilarityEndpoint == "" {
		return ErrNoSimilarityEndpoint
	}
	return nil
}

// RequireSuggestion returns an error if no suggestion endpoint is set.
func (c *Config) RequireSuggestion() error {
	if c.SuggestionEndpoint == "" {
		return ErrNoSuggestionEndpoint
	}
	return nil
}

// Endpoints returns the scoring service endpoints.
func (c *Config) Endpoints() scoring.Endpoints {
	return scoring.Endpoints{
		Similarity: c.SimilarityEndpoint,
		Suggestion: c.SuggestionEndpoint,
	}
}

// ExpandTilde expands a leading ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// HelpfulConfigMessage explains how to configure a missing endpoint.
func HelpfulConfigMessage() string {
	configPath := Path()
	return fmt.Sprintf(`Scoring service endpoints are not configured.

Tip: Create %s:
  mkdir -p %s
  echo 'similarity_endpoint: https://scoring.example.org/similarity/papers' >> %s
  echo 'suggestion_endpoint: https://scoring.example.org/suggest_papers' >> %s

Or set %s and %s.`,
		configPath,
		filepath.Dir(configPath),
		configPath,
		configPath,
		EnvSimilarityEndpoint,
		EnvSuggestionEndpoint)
}
