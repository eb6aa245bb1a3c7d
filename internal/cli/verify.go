package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/wire"
)

// VerifyCmd returns the verify command
func VerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Manage verification missions",
		Long: `Plan and execute verification missions against low-confidence findings.

SEARCH missions look for corroboration; REFUTE missions (for findings
tagged unverified or disputed) look for contradicting evidence.`,
	}

	cmd.AddCommand(verifyPlanCmd())
	cmd.AddCommand(verifyRunCmd())
	cmd.AddCommand(verifyListCmd())
	cmd.AddCommand(verifyCompleteCmd())

	return cmd
}

func verifyPlanCmd() *cobra.Command {
	var threshold float64
	var max int

	cmd := &cobra.Command{
		Use:   "plan [project-id]",
		Short: "Create missions for unverified low-confidence findings",
		Long: `Create verification missions for findings below the confidence
threshold. Findings already queued are skipped, so planning twice never
doubles the queue.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resp, err := wire.VerifyService().Plan(ctx, primary.VerifyPlanRequest{
				ProjectID: args[0],
				Threshold: threshold,
				Max:       max,
			})
			if err != nil {
				return err
			}

			if len(resp.Missions) == 0 {
				fmt.Println("Nothing to verify.")
				return nil
			}
			fmt.Printf("✓ Planned %d missions\n", len(resp.Missions))
			for _, m := range resp.Missions {
				fmt.Printf("  %s  %-6s  %s\n", m.ID, m.Type, m.FindingID)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Confidence threshold (default 0.8)")
	cmd.Flags().IntVar(&max, "max", 0, "Maximum missions to create (default 10)")

	return cmd
}

func verifyRunCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "run [project-id]",
		Short: "Execute queued verification missions",
		Long: `Execute up to --limit open or blocked missions. Each mission searches
the web for its finding; corroboration raises confidence, contest
lowers it. Per-mission failures never abort the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			summary, err := wire.VerifyService().Run(ctx, primary.VerifyRunRequest{
				ProjectID: args[0],
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			printBatchSummary(summary)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum missions to run (default 5)")

	return cmd
}

func verifyListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list [project-id]",
		Short: "List verification missions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			missions, err := wire.VerifyService().List(ctx, args[0], status)
			if err != nil {
				return err
			}

			if len(missions) == 0 {
				fmt.Println("No missions found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tFINDING\tNOTE")
			fmt.Fprintln(w, "--\t----\t------\t-------\t----")
			for _, m := range missions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					m.ID, m.Type, missionStatusColor(m.Status), m.FindingID, m.Note)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (open/blocked/done/cancelled)")

	return cmd
}

func verifyCompleteCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "complete [mission-id] [status]",
		Short: "Manually transition a mission",
		Long: `Manually transition a mission: the human-review override.

Only legal transitions are accepted: open missions may become blocked,
done, or cancelled; blocked missions may become done or cancelled.

Examples:
  rvault verify complete msn_abc123 done --note "confirmed by primary source"
  rvault verify complete msn_abc123 cancelled`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			err := wire.VerifyService().Complete(ctx, primary.VerifyCompleteRequest{
				MissionID: args[0],
				Status:    args[1],
				Note:      note,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Mission %s → %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Resolution note")

	return cmd
}

func missionStatusColor(status string) string {
	switch status {
	case "open":
		return color.CyanString(status)
	case "blocked":
		return color.YellowString(status)
	case "done":
		return color.GreenString(status)
	case "cancelled":
		return color.New(color.Faint).Sprint(status)
	default:
		return status
	}
}

func printBatchSummary(summary *primary.BatchSummary) {
	fmt.Printf("✓ Processed %d, skipped %d, failed %d\n",
		summary.Processed, summary.Skipped, summary.Failed)
	for _, e := range summary.Errors {
		fmt.Printf("  %s %s: %s\n", color.RedString("✗"), e.ItemID, e.Reason)
	}
}
