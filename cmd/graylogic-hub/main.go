// Gray Logic Hub - property state synchronization for building devices.
//
// The hub keeps the actual and expected state of every connector, device
// and channel property, pushes expected state to devices through protocol
// bridges and tracks device connection state.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. Running the root command starts
// the hub.
func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "graylogic-hub",
		Short: "Property state synchronization hub",
		Long: `graylogic-hub stores the state of connector, device and channel
properties, pushes requested state to devices through protocol bridges and
tracks device connection state.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", getConfigPath(),
		"path to the YAML configuration file (env GRAYLOGIC_CONFIG)")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "graylogic-hub %s (commit %s, built %s)\n", version, commit, date)
			},
		},
		newMigrateCommand(&configPath),
	)
	return root
}

func newMigrateCommand(configPath *string) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(cmd.Context(), *configPath, rollback, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the most recent migration instead")
	return cmd
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
