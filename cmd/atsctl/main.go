// Package main provides atsctl, the operator CLI of the reports service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/garnizeh/ats/cmd/atsctl/commands"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "atsctl",
		Short: "Operate the ATS reports database and snapshots",
		Long: `atsctl manages the ATS reports service from the command line.

Commands:
  migrate   Apply schema migrations (and demo data with --seed)
  report    Build the comprehensive report and print it
  backup    Snapshot the SQLite database
  restore   Replace the SQLite database with a snapshot`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config YAML file")

	rootCmd.AddCommand(commands.NewMigrateCommand(&configPath))
	rootCmd.AddCommand(commands.NewReportCommand(&configPath))
	rootCmd.AddCommand(commands.NewBackupCommand(&configPath))
	rootCmd.AddCommand(commands.NewRestoreCommand(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "atsctl %s (built: %s)\n", version, buildTime)
		},
	}
}
