package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/raemisreport/internal/config"
)

var (
	initEndpoint string
	initUsername string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Writes a config file with the default settings. The password is best supplied
through the RAEMIS_PASSWORD environment variable.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", "", "Raemis API endpoint returning usage records")
	initCmd.Flags().StringVar(&initUsername, "username", "", "API username")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := getConfigPath()

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	cfg.Endpoint = initEndpoint
	cfg.Username = initUsername

	if err := saveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("✓ Config written to %s\n", path)
	if cfg.Endpoint == "" {
		fmt.Println("Set endpoint before running a report")
	}
	return nil
}
