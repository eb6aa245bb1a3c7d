package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/rvault/internal/cli"
	"github.com/example/rvault/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "rvault",
		Short:   "rvault - local-first research orchestration engine",
		Version: version.String(),
		Long: `rvault maintains an append-only research ledger per project and runs the
machinery around it: gated ingestion with source trust weighting,
similarity synthesis, verification missions, scheduled watches, and a
next-best-action planner.`,
	}

	// Project lifecycle
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.ProjectCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.SummaryCmd())

	// Ledger surface
	rootCmd.AddCommand(cli.LogCmd())
	rootCmd.AddCommand(cli.InsightCmd())
	rootCmd.AddCommand(cli.FindingsCmd())
	rootCmd.AddCommand(cli.BranchCmd())
	rootCmd.AddCommand(cli.HypothesisCmd())
	rootCmd.AddCommand(cli.ArtifactCmd())

	// Engines
	rootCmd.AddCommand(cli.ScuttleCmd())
	rootCmd.AddCommand(cli.SynthesizeCmd())
	rootCmd.AddCommand(cli.VerifyCmd())
	rootCmd.AddCommand(cli.WatchCmd())
	rootCmd.AddCommand(cli.WatchdogCmd())
	rootCmd.AddCommand(cli.StrategyCmd())

	// Projections
	rootCmd.AddCommand(cli.ExportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
