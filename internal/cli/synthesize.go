package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/wire"
)

// SynthesizeCmd returns the synthesize command
func SynthesizeCmd() *cobra.Command {
	var branch string
	var threshold float64
	var topK, maxLinks int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "synthesize [project-id]",
		Short: "Discover similarity links between findings",
		Long: `Run one link-discovery pass over a branch's findings.

Pairs scoring at or above the threshold become links, capped per node
(--top-k) and globally (--max-links). Existing links are never
recreated, so re-running with unchanged inputs is a no-op.

Examples:
  rvault synthesize quantum-survey
  rvault synthesize quantum-survey --threshold 0.3 --top-k 3 --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resp, err := wire.SynthesisService().Synthesize(ctx, primary.SynthesizeRequest{
				ProjectID: args[0],
				Branch:    branch,
				Threshold: threshold,
				TopK:      topK,
				MaxLinks:  maxLinks,
				DryRun:    dryRun,
			})
			if err != nil {
				return err
			}

			label := "Created"
			if resp.DryRun {
				label = "Would create"
			}
			fmt.Printf("✓ Synthesis pass: %d candidates, %s %d links (%d already existed)\n",
				resp.Candidates, label, resp.Created, resp.SkippedExisting)
			for _, l := range resp.Links {
				fmt.Printf("  %s ↔ %s (%.2f)\n", l.FromID, l.ToID, l.Score)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch name (default main)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.2, "Similarity threshold in [0,1]")
	cmd.Flags().IntVar(&topK, "top-k", 3, "Per-node link cap (0 = unlimited)")
	cmd.Flags().IntVar(&maxLinks, "max-links", 0, "Global new-link cap (0 = unlimited)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Score and report without writing links")

	return cmd
}
