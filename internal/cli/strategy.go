package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/wire"
)

// StrategyCmd returns the strategy command
func StrategyCmd() *cobra.Command {
	var execute bool

	cmd := &cobra.Command{
		Use:   "strategy [project-id]",
		Short: "Rank next-best actions from the ledger state",
		Long: `Analyze the project's ledger and return ranked recommendations:
queued missions to run, low-confidence findings to queue, overdue
watches, synthesis debt, and stale hypotheses or branches.

With --execute the top mechanical recommendation is also carried out.

Examples:
  rvault strategy quantum-survey
  rvault strategy quantum-survey --execute`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resp, err := wire.StrategyService().Strategize(ctx, primary.StrategizeRequest{
				ProjectID: args[0],
				Execute:   execute,
			})
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			for i, r := range resp.Recommendations {
				marker := " "
				if i == 0 {
					marker = color.GreenString("→")
				}
				fmt.Printf("%s ", marker)
				bold.Printf("%-18s", r.Action)
				fmt.Printf(" (%d)  %s\n", r.Weight, r.Rationale)
			}

			if resp.Execution != nil {
				fmt.Println()
				if resp.Execution.OK {
					fmt.Printf("✓ Executed %s\n", resp.Execution.Action)
				} else {
					fmt.Printf("%s %s failed\n", color.RedString("✗"), resp.Execution.Action)
				}
				for k, v := range resp.Execution.Details {
					fmt.Printf("  %s: %v\n", k, v)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&execute, "execute", false, "Carry out the top recommendation")

	return cmd
}
