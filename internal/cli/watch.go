package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/wire"
)

// WatchCmd returns the watch command
func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage watch targets",
		Long:  "Register URLs and search queries for periodic re-ingestion",
	}

	cmd.AddCommand(watchAddCmd())
	cmd.AddCommand(watchListCmd())
	cmd.AddCommand(watchDisableCmd())

	return cmd
}

func watchAddCmd() *cobra.Command {
	var branch, watchType string
	var interval time.Duration
	var tags []string

	cmd := &cobra.Command{
		Use:   "add [project-id] [target]",
		Short: "Register a watch target",
		Long: `Register a watch target, due immediately so the next watchdog pass
picks it up. URL targets are re-scuttled; query targets are re-searched
with new results deduplicated against what was already seen.

Examples:
  rvault watch add quantum-survey https://example.com/feed --interval 1h
  rvault watch add quantum-survey "quantum annealing benchmark" --type query --interval 6h`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			target, err := wire.WatchService().Add(ctx, primary.AddWatchRequest{
				ProjectID:       args[0],
				Branch:          branch,
				Type:            watchType,
				Target:          args[1],
				IntervalSeconds: int64(interval.Seconds()),
				Tags:            tags,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Watch %s added (%s every %s)\n", target.ID, target.Type, interval)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch name (default main)")
	cmd.Flags().StringVar(&watchType, "type", "url", "Target type: url or query")
	cmd.Flags().DurationVar(&interval, "interval", time.Hour, "Re-poll interval (minimum 1m)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tags applied to ingested results")

	return cmd
}

func watchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [project-id]",
		Short: "List a project's watch targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			targets, err := wire.WatchService().List(ctx, args[0])
			if err != nil {
				return err
			}

			if len(targets) == 0 {
				fmt.Println("No watch targets found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tNEXT DUE\tTARGET")
			fmt.Fprintln(w, "--\t----\t------\t--------\t------")
			for _, t := range targets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Type, t.Status, t.NextDueAt, t.Target)
			}
			w.Flush()
			return nil
		},
	}
}

func watchDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable [watch-id]",
		Short: "Stop a target from being scheduled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := wire.WatchService().Disable(ctx, args[0]); err != nil {
				return err
			}

			fmt.Printf("✓ Watch %s disabled\n", args[0])
			return nil
		},
	}
}

// WatchdogCmd returns the watchdog command
func WatchdogCmd() *cobra.Command {
	var project string
	var limit int
	var dryRun bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watchdog",
		Short: "Run scheduler passes over due watch targets",
		Long: `Run a scheduler pass over due watch targets. Each due target is
claimed by compare-and-swap before any fetch, so concurrent passes
never double-process a target.

By default one pass runs and the command exits. With --interval the
command loops until interrupted.

Examples:
  rvault watchdog
  rvault watchdog --project quantum-survey --dry-run
  rvault watchdog --interval 5m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := primary.WatchdogRequest{
				ProjectID: project,
				Limit:     limit,
				DryRun:    dryRun,
			}

			if interval <= 0 {
				summary, err := wire.WatchdogService().RunOnce(context.Background(), req)
				if err != nil {
					return err
				}
				printBatchSummary(summary)
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Watchdog running every %s (ctrl-c to stop)\n", interval)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				summary, err := wire.WatchdogService().RunOnce(ctx, req)
				if err != nil {
					fmt.Fprintf(os.Stderr, "pass failed: %v\n", err)
				} else {
					printBatchSummary(summary)
				}

				select {
				case <-ctx.Done():
					fmt.Println("Watchdog stopped.")
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Restrict to one project")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum targets per pass (default 20)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate and fetch without claiming or writing")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Loop with this period instead of one pass")

	return cmd
}
