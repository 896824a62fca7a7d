// Package commands implements the bricks-http command line.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the bricks-http command tree.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bricks-http",
		Short: "Send HTTP requests through the go-bricks-sdk pipeline",
		Long: `bricks-http issues HTTP requests through a configured go-bricks-sdk pipeline.

Retries, request ids, rate limiting, circuit breaking and telemetry are read from
bricks-http.yaml and BRICKS_* environment variables, and can be overridden by flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		NewDoCommand(),
		NewVersionCommand(version),
	)
	return rootCmd
}
