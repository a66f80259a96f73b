// Package main provides the trustctl CLI for inspecting and adjusting
// supplier trust scores without going through the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	rootCmd := &cobra.Command{
		Use:   "trustctl",
		Short: "Supplier trust score engine CLI",
		Long: `trustctl computes, previews and adjusts supplier trust scores, lists the
ranking and assesses drug batch risk against the configured stores.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default: env and built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&opts.format, "format", formatConsole, "Output format: console, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored console output")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(
		newScoreCmd(opts),
		newRecalculateCmd(opts),
		newPreviewCmd(opts),
		newHistoryCmd(opts),
		newAdjustCmd(opts),
		newBadgesCmd(opts),
		newRankingCmd(opts),
		newRiskCmd(opts),
		newBatchRisksCmd(opts),
		newExportCmd(opts),
	)

	return rootCmd
}
