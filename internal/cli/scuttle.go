package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/wire"
)

// ScuttleCmd returns the scuttle command
func ScuttleCmd() *cobra.Command {
	var branch string
	var tags []string

	cmd := &cobra.Command{
		Use:   "scuttle [project-id] [url]",
		Short: "Fetch a URL and record it as a finding",
		Long: `Fetch a URL through the ingestion gateway and record the result.

The URL is validated against the network boundary policy before any
bytes move: private, loopback, and link-local destinations are refused.
Source trust weighting caps the recorded confidence.

Examples:
  rvault scuttle quantum-survey https://www.reddit.com/r/QuantumComputing/comments/abc/
  rvault scuttle quantum-survey https://example.com/paper --tag annealing`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resp, err := wire.IngestService().Scuttle(ctx, primary.ScuttleRequest{
				ProjectID: args[0],
				Branch:    branch,
				URL:       args[1],
				Tags:      tags,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Scuttled %s\n", args[1])
			fmt.Printf("  Finding:    %s\n", resp.Finding.ID)
			fmt.Printf("  Source:     %s\n", resp.Source)
			fmt.Printf("  Confidence: %s\n", confidenceColor(resp.Confidence))
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch name (default main)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Extra tags (repeatable)")

	return cmd
}
