package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/wire"
)

// ExportCmd returns the export command
func ExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export read-only projections of a project",
		Long:  "Render a project's ledger as JSON, Markdown, a force-graph, or a telemetry stream",
	}

	cmd.AddCommand(exportJSONCmd())
	cmd.AddCommand(exportMarkdownCmd())
	cmd.AddCommand(exportGraphCmd())
	cmd.AddCommand(exportEventsCmd())

	return cmd
}

func exportJSONCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "json [project-id]",
		Short: "Export the full project projection as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			data, err := wire.ExportService().ExportJSON(ctx, args[0])
			if err != nil {
				return err
			}
			return writeExport(data, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

func exportMarkdownCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "markdown [project-id]",
		Short: "Export a human-readable report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			data, err := wire.ExportService().ExportMarkdown(ctx, args[0])
			if err != nil {
				return err
			}
			return writeExport(data, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

func exportGraphCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "graph [project-id]",
		Short: "Export the {nodes, links} graph projection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			graph, err := wire.ExportService().Graph(ctx, args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(graph, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode graph: %w", err)
			}
			return writeExport(data, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

func exportEventsCmd() *cobra.Command {
	var after int64
	var limit int
	var tail string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Export telemetry events after a cursor",
		Long: `Export durable telemetry events after the given cursor id, oldest
first. This is the replay/resume surface for external stream consumers.
With --tail, show a project's newest events instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var events []*primary.TelemetryEvent
			var err error
			if tail != "" {
				events, err = wire.ExportService().RecentEvents(ctx, tail, limit)
			} else {
				events, err = wire.ExportService().Events(ctx, after, limit)
			}
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(events, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode events: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().Int64Var(&after, "after", 0, "Resume cursor (event id)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum events (default 100)")
	cmd.Flags().StringVar(&tail, "tail", "", "Project id: show its newest events instead of replaying")

	return cmd
}

func writeExport(data []byte, output string) error {
	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Printf("✓ Wrote %s\n", output)
	return nil
}
