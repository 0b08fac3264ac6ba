package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded report runs",
	Long:  `Displays the most recent report runs stored in the run ledger.`,
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show (0 = all)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(runsLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	fmt.Println("------------------------------------------------------------------------------------------")
	fmt.Printf("%-36s  %-15s  %-13s  %8s  %6s  %s\n", "ID", "Timestamp", "Status", "Records", "Charts", "Started")
	fmt.Println("------------------------------------------------------------------------------------------")

	for _, run := range runs {
		fmt.Printf("%-36s  %-15s  %-13s  %8s  %6d  %s\n",
			run.ID, run.Timestamp, run.Status,
			humanize.Comma(int64(run.Records)), len(run.Charts),
			humanize.Time(run.StartedAt))
	}

	fmt.Println("------------------------------------------------------------------------------------------")
	fmt.Printf("Total: %d runs\n", len(runs))
	return nil
}
