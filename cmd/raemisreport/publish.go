package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/raemisreport/internal/publisher"
)

var publishCmd = &cobra.Command{
	Use:   "publish [run-id]",
	Short: "Publish a recorded run summary over MQTT",
	Long:  `Reads a run from the ledger and publishes its summary to <topic_prefix>/run as a retained message. Defaults to the latest run.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.MQTT.Enabled {
		return fmt.Errorf("MQTT is not enabled in config")
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if db == nil {
		return fmt.Errorf("run ledger is disabled")
	}
	defer db.Close()

	run, err := lookupRun(db, args)
	if err != nil {
		return err
	}

	pub, err := publisher.New(cfg.MQTT, cfg.GetTopicPrefix())
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	fmt.Printf("Publishing run %s (%s)... ", run.ID, run.Timestamp)
	if err := pub.PublishRun(run); err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("✓")
	return nil
}
