package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgoulah/raemisreport/internal/config"
	"github.com/jgoulah/raemisreport/internal/database"
	"github.com/jgoulah/raemisreport/internal/logging"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "raemisreport",
	Short: "Fetch network usage records and render usage reports",
	Long: `raemisreport pulls per-session network usage records from a Raemis API endpoint,
saves a CSV snapshot, and renders hourly usage profiles for school year and summer
break weekdays and weekends, plus scatter charts of the last full month.

Running without a subcommand performs a report run.`,
	RunE:          runReport,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "run ledger file (default is <output_dir>/runs.db, \"-\" disables)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// saveConfig saves the configuration file
func saveConfig(cfg *config.Config) error {
	return config.Save(getConfigPath(), cfg)
}

// newLogger builds the logger described by the log section
func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// getDBPath returns the ledger path, "" when the ledger is disabled
func getDBPath(cfg *config.Config) (string, error) {
	switch dbPath {
	case "":
		return cfg.GetDatabasePath()
	case "-":
		return "", nil
	default:
		path, err := homedir.Expand(dbPath)
		if err != nil {
			return "", fmt.Errorf("expanding --db %q: %w", dbPath, err)
		}
		return path, nil
	}
}

// openDB opens the run ledger. It returns nil when the ledger is disabled.
func openDB(cfg *config.Config) (*database.DB, error) {
	path, err := getDBPath(cfg)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// openLedger is openDB for commands that need the ledger
func openLedger() (*database.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if db == nil {
		return nil, fmt.Errorf("run ledger is disabled")
	}
	return db, nil
}
