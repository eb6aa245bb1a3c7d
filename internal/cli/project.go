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

// ProjectCmd returns the project command
func ProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long:  "Update and list research projects in the ledger",
	}

	cmd.AddCommand(projectUpdateCmd())
	cmd.AddCommand(projectListCmd())

	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var status string
	var priority int

	cmd := &cobra.Command{
		Use:   "update [project-id]",
		Short: "Update project status and/or priority",
		Long: `Update project status and/or priority. Unset flags are left untouched.

Valid statuses: active, paused, completed, failed.

Examples:
  rvault project update quantum-survey --status paused
  rvault project update quantum-survey --priority 9`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			req := primary.UpdateProjectRequest{ID: args[0], Status: status}
			if cmd.Flags().Changed("priority") {
				req.Priority = &priority
			}
			if err := wire.ProjectService().Update(ctx, req); err != nil {
				return err
			}

			fmt.Printf("✓ Project %s updated\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "New status (active/paused/completed/failed)")
	cmd.Flags().IntVar(&priority, "priority", 0, "New priority")

	return cmd
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			projects, err := wire.ProjectService().List(ctx)
			if err != nil {
				return err
			}

			if len(projects) == 0 {
				fmt.Println("No projects found.")
				fmt.Println()
				fmt.Println("Create your first project:")
				fmt.Println("  rvault init my-project")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPRIORITY\tCREATED")
			fmt.Fprintln(w, "--\t----\t------\t--------\t-------")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					p.ID, p.Name, p.Status, p.Priority, p.CreatedAt)
			}
			w.Flush()
			return nil
		},
	}
}

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	var branch, tag string
	var limit int

	cmd := &cobra.Command{
		Use:   "status [project-id]",
		Short: "Show a project with its recent findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			status, err := wire.ProjectService().Status(ctx, primary.StatusRequest{
				ProjectID: args[0],
				Branch:    branch,
				Tag:       tag,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			p := status.Project
			bold := color.New(color.Bold)
			bold.Printf("%s", p.Name)
			fmt.Printf("  [%s]  priority %d\n", projectStatusColor(p.Status), p.Priority)
			if p.Objective != "" {
				fmt.Printf("Objective: %s\n", p.Objective)
			}
			fmt.Println()

			if len(status.RecentFindings) == 0 {
				fmt.Println("No findings yet.")
				return nil
			}

			fmt.Println("Recent findings:")
			for _, f := range status.RecentFindings {
				fmt.Printf("  %s  %-14s %s %s\n",
					f.ID, f.Type, confidenceColor(f.Confidence), findingLabel(f))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch name (default main)")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter findings by tag")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum findings to show")

	return cmd
}

// SummaryCmd returns the summary command
func SummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary [project-id]",
		Short: "Show aggregate counts across a project's ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			summary, err := wire.ProjectService().Summary(ctx, args[0])
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			bold.Printf("%s", summary.Project.Name)
			fmt.Printf("  [%s]\n\n", projectStatusColor(summary.Project.Status))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Branches:\t%d\n", summary.Branches)
			fmt.Fprintf(w, "Findings:\t%d\n", summary.Findings)
			fmt.Fprintf(w, "Artifacts:\t%d\n", summary.Artifacts)
			fmt.Fprintf(w, "Hypotheses:\t%d\n", summary.Hypotheses)
			fmt.Fprintf(w, "Links:\t%d\n", summary.Links)
			fmt.Fprintf(w, "Open missions:\t%d\n", summary.OpenMissions)
			fmt.Fprintf(w, "Blocked missions:\t%d\n", summary.BlockedMissions)
			fmt.Fprintf(w, "Watch targets:\t%d\n", summary.WatchTargets)
			w.Flush()
			return nil
		},
	}
}

func projectStatusColor(status string) string {
	switch status {
	case "active":
		return color.GreenString(status)
	case "paused":
		return color.YellowString(status)
	case "failed":
		return color.RedString(status)
	default:
		return status
	}
}

func confidenceColor(confidence float64) string {
	s := fmt.Sprintf("%.2f", confidence)
	switch {
	case confidence >= 0.8:
		return color.GreenString(s)
	case confidence >= 0.5:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

func findingLabel(f *primary.Finding) string {
	if f.Title != "" {
		return f.Title
	}
	if len(f.Content) > 60 {
		return f.Content[:60] + "..."
	}
	return f.Content
}
