package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var name, objective string
	var priority int

	cmd := &cobra.Command{
		Use:   "init [project-id]",
		Short: "Initialize a research project",
		Long: `Initialize a research project with its main branch.

Re-running init for an existing project is a no-op and returns the
stored project unchanged.

Examples:
  rvault init quantum-survey --objective "map the annealing solver landscape"
  rvault init quantum-survey --name "Quantum Survey" --priority 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			project, err := wire.ProjectService().Init(ctx, primary.InitProjectRequest{
				ID:        args[0],
				Name:      name,
				Objective: objective,
				Priority:  priority,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Project %s initialized (status: %s, priority: %d)\n",
				project.ID, project.Status, project.Priority)
			if project.Objective != "" {
				fmt.Printf("  Objective: %s\n", project.Objective)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the id)")
	cmd.Flags().StringVar(&objective, "objective", "", "Research objective")
	cmd.Flags().IntVar(&priority, "priority", 0, "Scheduling priority (higher first)")

	return cmd
}
