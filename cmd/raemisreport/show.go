package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/raemisreport/internal/database"
	"github.com/jgoulah/raemisreport/pkg/models"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one recorded run with its hourly profiles",
	Long:  `Displays a run from the ledger, including the hourly aggregates of every partition. Defaults to the latest run.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the run as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := lookupRun(db, args)
	if err != nil {
		return err
	}

	if showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Printf("Run:        %s\n", run.ID)
	fmt.Printf("Timestamp:  %s\n", run.Timestamp)
	fmt.Printf("Started:    %s (%s)\n", run.StartedAt.Local().Format("2006-01-02 15:04:05 MST"), humanize.Time(run.StartedAt))
	fmt.Printf("Duration:   %s\n", run.FinishedAt.Sub(run.StartedAt))
	fmt.Printf("Status:     %s\n", run.Status)
	if run.Error != "" {
		fmt.Printf("Error:      %s\n", run.Error)
	}
	fmt.Printf("Records:    %s\n", humanize.Comma(int64(run.Records)))
	if !run.MonthStart.IsZero() {
		fmt.Printf("Month:      %s (%s records)\n", run.MonthStart.Format("January 2006"), humanize.Comma(int64(run.MonthlyRecords)))
	}
	if run.CSVPath != "" {
		fmt.Printf("Snapshot:   %s\n", run.CSVPath)
	}
	for _, chart := range run.Charts {
		fmt.Printf("Chart:      %s\n", chart)
	}

	for _, p := range run.Partitions {
		printPartition(p)
	}
	return nil
}

// lookupRun returns the run named in args, or the latest run
func lookupRun(db *database.DB, args []string) (*models.RunSummary, error) {
	id := ""
	if len(args) > 0 {
		id = args[0]
	} else {
		runs, err := db.ListRuns(1)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no runs recorded")
		}
		id = runs[0].ID
	}

	run, err := db.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, nil
}

func printPartition(p models.PartitionSummary) {
	fmt.Printf("\n%s (%s records)\n", p.Partition, humanize.Comma(int64(p.Records)))
	fmt.Println(strings.Repeat("-", 52))
	fmt.Printf("%-6s  %10s  %10s  %6s  %10s\n", "Hour", "Mean MB", "Sum MB", "Count", "Std MB")
	fmt.Println(strings.Repeat("-", 52))
	for _, h := range p.Hours {
		std := "-"
		if h.HasStdDev() {
			std = fmt.Sprintf("%.4f", h.StdDev)
		}
		fmt.Printf("%02d:00   %10.4f  %10.4f  %6d  %10s\n", h.Hour, h.Mean, h.Sum, h.Count, std)
	}
}
