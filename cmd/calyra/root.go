// ABOUTME: Root Cobra command for calyra CLI.
// ABOUTME: Loads config, builds the logger, and manages the store and tracker lifecycle.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/harperreed/calyra/internal/config"
	"github.com/harperreed/calyra/internal/storage"
	"github.com/harperreed/calyra/internal/tracker"
	"github.com/spf13/cobra"
)

// skipStoreAnnotation marks commands that open storage themselves, or not at all.
const skipStoreAnnotation = "calyra/skip-store"

var (
	flagBackend  string
	flagDataDir  string
	flagLogLevel string
)

var (
	cfg    *config.Config
	logger *log.Logger
	store  storage.Store
	tr     *tracker.Tracker
)

var rootCmd = &cobra.Command{
	Use:           "calyra",
	Short:         "Personal data tracker",
	SilenceErrors: true,
	SilenceUsage:  true,
	Long: `Calyra is a CLI tool for tracking anything you can write down by date.

Each table has a Date column plus the columns you add. Every row belongs to
one date, and cells hold free text: numbers ("8"), fractions ("10/10"), or
notes. Numeric columns can be shown as a calendar heatmap or a line chart,
and rendered to PNG once per month.

QUICK START:

  $ calyra table add Workouts                  # Create a table
  $ calyra column add Workouts Reps            # Add a column
  $ calyra row set Workouts today Reps=10/10   # Record a value
  $ calyra table show Workouts                 # See the rows
  $ calyra heatmap Workouts Reps               # Heatmap in the terminal
  $ calyra export png -t Workouts -c Reps      # Monthly PNG export

Tables can be addressed by title or by the number shown in 'calyra table list'.

MCP INTEGRATION:

  Run 'calyra mcp' to start the Model Context Protocol server for use with
  Claude Desktop or other MCP-compatible AI assistants. Add to your Claude
  config:

  {
    "mcpServers": {
      "calyra": { "command": "calyra", "args": ["mcp"] }
    }
  }

CONFIGURATION:

  ~/.config/calyra/config.yaml, overridden by CALYRA_BACKEND,
  CALYRA_DATA_DIR and CALYRA_LOG_LEVEL, overridden by flags.

DATA STORAGE:

  Badger (default) keeps data in ~/.local/share/calyra/badger.
  SQLite keeps data in ~/.local/share/calyra/calyra.db.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip init for commands that don't need it
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if err := setup(); err != nil {
			return err
		}
		if cmd.Annotations[skipStoreAnnotation] == "true" {
			return nil
		}
		return openTracker(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown()
	},
}

// setup loads config, applies flag overrides, and builds the logger.
func setup() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flagBackend != "" {
		cfg.Backend = flagBackend
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logger = newLogger(cfg.GetLogLevel())
	return nil
}

// newLogger writes to stderr and tags every line with a per-process session
// id so writes from concurrent processes can be told apart.
func newLogger(level log.Level) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		Prefix:          "calyra",
		ReportTimestamp: true,
	})
	return l.With("session", uuid.NewString()[:8])
}

func openTracker(cmd *cobra.Command) error {
	s, err := cfg.OpenStorage(logger)
	if err != nil {
		logger.Error("failed to open storage", "path", cfg.StoragePath(), "err", err)
		return fmt.Errorf("failed to open storage: %w", err)
	}
	store = s

	tr = tracker.New(store, logger)
	tr.OnPersistError(func(err error) {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ Changes could not be saved: %v\n", err)
	})

	firstRun, err := tr.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}
	if firstRun {
		logger.Debug("no stored state, starting empty", "path", cfg.StoragePath())
	}
	return nil
}

// shutdown drains the tracker and closes the store. It is safe to call more
// than once.
func shutdown() error {
	var firstErr error
	if tr != nil {
		if err := tr.Close(); err != nil {
			firstErr = fmt.Errorf("failed to save changes: %w", err)
		}
		tr = nil
	}
	if store != nil {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close storage: %w", err)
		}
		store = nil
	}
	return firstErr
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "storage backend: badger or sqlite")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: ~/.local/share/calyra)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
}
