// Command issuefeed parses issue tracker XML feeds and keeps the parsed
// issues in a local SQLite store.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satyaki-up/issuefeed/internal/config"
	"github.com/satyaki-up/issuefeed/internal/db"
	"github.com/satyaki-up/issuefeed/internal/feed"
	"github.com/satyaki-up/issuefeed/internal/issues"
)

var (
	dbPath     string
	jsonOutput bool
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "issuefeed",
	Short: "Parse issue tracker XML feeds and query imported issues",
	Long: `issuefeed reads RSS-style issue exports and turns every <item> into a
structured issue record. Parsed issues can be printed or imported into a
local SQLite store and queried later.

Configuration is read from the nearest issuefeed.yaml found by walking up
from the working directory:
  db: .issuefeed/issues.db
  project: WID
  workers: 4
  log_level: info`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(lastUpdatedCmd)
}

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return renderError(err)
	}
	return 0
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg = &config.Config{}
	if cwd, err := os.Getwd(); err == nil {
		found, err := config.Discover(cwd)
		if err != nil {
			return fmt.Errorf("load %s: %w", config.FileName, err)
		}
		if found != nil {
			cfg = found
		}
	}

	if strings.TrimSpace(dbPath) == "" {
		dbPath = cfg.DBPath
	}
	if strings.TrimSpace(dbPath) == "" {
		dbPath = db.DefaultPath()
	}

	name := logLevel
	if name == "" {
		name = cfg.LogLevel
	}
	level, err := config.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("%w: %v", issues.ErrInvalidInput, err)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if cfg.Path != "" {
		logger.Debug("loaded config", "path", cfg.Path)
	}
	return nil
}

func openService(ctx context.Context) (*issues.Service, *sql.DB, error) {
	database, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return issues.NewService(database), database, nil
}

// projectOrDefault falls back to the configured project key.
func projectOrDefault(project string) string {
	if strings.TrimSpace(project) == "" {
		return cfg.Project
	}
	return project
}

func renderError(err error) int {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	switch {
	case errors.Is(err, issues.ErrInvalidInput):
		return 2
	case errors.Is(err, issues.ErrNotFound):
		return 3
	case errors.Is(err, feed.ErrMalformedFeed):
		return 4
	default:
		return 1
	}
}
