package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgoulah/raemisreport/internal/config"
	"github.com/jgoulah/raemisreport/internal/publisher"
	"github.com/jgoulah/raemisreport/internal/report"
	"github.com/jgoulah/raemisreport/pkg/models"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch records and write the CSV snapshot and charts",
	Long: `Fetches all usage records from the configured endpoint, writes data_<timestamp>.csv,
renders the hourly profile charts for each school year / summer break and weekday /
weekend partition, and the scatter charts of the last full calendar month.

The run is recorded in the ledger and, when MQTT is enabled, its summary is published.
Exit status is 0 on success, 1 when nothing was written, 2 when the snapshot was
written but a later stage failed.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Report started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	pipeline, err := report.New(cfg, report.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Fetching records from %s...\n", cfg.Endpoint)
	run, runErr := pipeline.Run(ctx)
	printRun(run)

	recordRun(cfg, logger, run)
	publishRun(cfg, logger, run)

	if runErr != nil {
		return &exitError{code: report.ExitCode(run, runErr), err: runErr}
	}

	fmt.Printf("=== Report finished in %s ===\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	return nil
}

func printRun(run *models.RunSummary) {
	if run.CSVPath == "" {
		return
	}

	size := ""
	if info, err := os.Stat(run.CSVPath); err == nil {
		size = fmt.Sprintf(" (%s)", humanize.Bytes(uint64(info.Size())))
	}
	fmt.Printf("✓ Data saved to %s%s\n", run.CSVPath, size)
	fmt.Printf("✓ %s records, %s in %s\n",
		humanize.Comma(int64(run.Records)),
		humanize.Comma(int64(run.MonthlyRecords)),
		run.MonthStart.Format("January 2006"))

	for _, p := range run.Partitions {
		fmt.Printf("  %-16s %8s records  %2d hours\n", p.Partition, humanize.Comma(int64(p.Records)), len(p.Hours))
	}
	for _, chart := range run.Charts {
		fmt.Printf("✓ Chart saved to %s\n", filepath.Base(chart))
	}
}

// recordRun stores the run in the ledger. Failures are logged only.
func recordRun(cfg *config.Config, logger *logrus.Logger, run *models.RunSummary) {
	db, err := openDB(cfg)
	if err != nil {
		logger.WithError(err).Warn("Could not open run ledger")
		return
	}
	if db == nil {
		return
	}
	defer db.Close()

	if err := db.InsertRun(run); err != nil {
		logger.WithError(err).Warn("Could not record run")
		return
	}
	fmt.Printf("✓ Run %s recorded\n", run.ID)
}

// publishRun sends the run summary over MQTT when enabled. Failures are
// logged only.
func publishRun(cfg *config.Config, logger *logrus.Logger, run *models.RunSummary) {
	if !cfg.MQTT.Enabled {
		return
	}

	pub, err := publisher.New(cfg.MQTT, cfg.GetTopicPrefix())
	if err != nil {
		logger.WithError(err).Warn("Could not connect to MQTT broker")
		return
	}
	defer pub.Close()

	if err := pub.PublishRun(run); err != nil {
		logger.WithError(err).Warn("Could not publish run summary")
		return
	}
	fmt.Printf("✓ Summary published to %s\n", publisher.RunTopic(cfg.GetTopicPrefix()))
}
