// Package main provides the pt CLI entry point.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/papertrail/papertrail/internal/config"
	"github.com/papertrail/papertrail/internal/paper"
	"github.com/papertrail/papertrail/internal/scoring"
	"github.com/papertrail/papertrail/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// Persistent flags
var (
	humanOutput bool
	projectFlag string
	configFlag  string
	dbFlag      string
	verbose     bool
)

// EnvProject supplies the default project when --project is not given.
const EnvProject = "PT_PROJECT"

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pt",
	Short: "Paper library similarity and citation suggestions",
	Long: `pt manages per-project paper libraries backed by a remote scoring service.

Core features:
  - Projects created from a batch of PDFs
  - Papers added from PDFs, with embedded metadata
  - Pairwise similarity graph, recomputed when the paper set changes
  - Citation suggestions for the clause being drafted
  - Stable citation keys and BibTeX entries

Scoring endpoints are read from ~/.config/pt/config.yml or the
PT_SIMILARITY_ENDPOINT and PT_SUGGEST_ENDPOINT environment variables.
All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "Project ID (default: $"+EnvProject+")")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ~/.config/pt/config.yml)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.Version = Version
}

// mustLoadConfig loads the config file and environment overrides, exits on error.
func mustLoadConfig() *config.Config {
	path := configFlag
	if path == "" {
		path = config.Path()
	}

	cfg, err := config.Load(path)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	cfg.ApplyEnv(os.Getenv)
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}
	cfg.Resolve()

	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return cfg
}

// mustProject returns the selected project ID, exits if none is set.
func mustProject() string {
	id := projectFlag
	if id == "" {
		id = os.Getenv(EnvProject)
	}
	if id == "" {
		exitWithError(ExitConfigError, "no project selected\n\nPass --project or set %s.", EnvProject)
	}
	return id
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(cfg *config.Config, logger zerolog.Logger) *storage.DB {
	if err := os.MkdirAll(dirOf(cfg.DBPath), 0755); err != nil {
		exitWithError(ExitError, "creating database directory: %v", err)
	}
	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	db.SetLogger(logger)
	return db
}

// newLogger returns a console logger on stderr at the configured level.
func newLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.WarnLevel
	if cfg.LogLevel != "" {
		if l, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			level = l
		}
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

// newScoringClient builds the scoring service client from config.
func newScoringClient(cfg *config.Config, logger zerolog.Logger) *scoring.Client {
	return scoring.NewClient(cfg.Endpoints(),
		scoring.WithTimeout(cfg.Timeout),
		scoring.WithRateLimit(cfg.RateLimit),
		scoring.WithLogger(logger),
	)
}

// mustRequireEndpoint exits with a configuration hint when check fails.
func mustRequireEndpoint(check func() error) {
	if err := check(); err != nil {
		exitWithError(ExitConfigError, "%v\n\n%s", err, config.HelpfulConfigMessage())
	}
}

// mustKeyFunc resolves the configured dedup key.
func mustKeyFunc(cfg *config.Config) paper.KeyFunc {
	fn, ok := paper.KeyFuncByName(cfg.DedupKey)
	if !ok {
		exitWithError(ExitConfigError, "invalid dedup_key %q", cfg.DedupKey)
	}
	return fn
}

// env bundles what most commands need.
type env struct {
	cfg     *config.Config
	logger  zerolog.Logger
	db      *storage.DB
	project string
}

// mustSetup loads config, opens the database and resolves the project.
// The caller must call close.
func mustSetup() *env {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	return &env{
		cfg:     cfg,
		logger:  logger,
		db:      mustOpenDatabase(cfg, logger),
		project: mustProject(),
	}
}

func (e *env) close() {
	e.db.Close()
}
