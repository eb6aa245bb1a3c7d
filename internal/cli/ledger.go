package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/wire"
)

// LogCmd returns the log command
func LogCmd() *cobra.Command {
	var branch, payload, source string
	var step int
	var confidence float64
	var tags []string

	cmd := &cobra.Command{
		Use:   "log [project-id] [type]",
		Short: "Append a raw typed event to the ledger",
		Long: `Append a raw typed event row to a branch of the ledger.

The payload is free-form JSON; the type is an uppercase event name by
convention (NOTE, FINDING, ERROR, ...).

Examples:
  rvault log quantum-survey NOTE --payload '{"detail":"solver diverged on run 4"}'
  rvault log quantum-survey FINDING --step 2 --confidence 0.6 --source lab`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var decoded map[string]any
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
					return fmt.Errorf("payload is not valid JSON: %w", err)
				}
			}

			finding, err := wire.LedgerService().Log(ctx, primary.LogRequest{
				ProjectID:  args[0],
				Branch:     branch,
				Type:       args[1],
				Step:       step,
				Payload:    decoded,
				Confidence: confidence,
				Source:     source,
				Tags:       tags,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Logged %s as %s\n", args[1], finding.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch name (default main)")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload")
	cmd.Flags().StringVar(&source, "source", "", "Event source")
	cmd.Flags().IntVar(&step, "step", 0, "Step number within a run")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "Confidence in [0,1]")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tags (repeatable)")

	return cmd
}

// InsightCmd returns the insight command
func InsightCmd() *cobra.Command {
	var branch, content, sourceURL string
	var confidence float64
	var tags []string

	cmd := &cobra.Command{
		Use:   "insight [project-id] [title]",
		Short: "Record a curated insight",
		Long: `Record a curated insight: a human-judged finding with type INSIGHT
and source manual, at full confidence unless stated otherwise.

Examples:
  rvault insight quantum-survey "tunneling dominates at low temperature"
  rvault insight quantum-survey "weak anneal schedules stall" --confidence 0.7`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			finding, err := wire.LedgerService().AddInsight(ctx, primary.AddInsightRequest{
				ProjectID:  args[0],
				Branch:     branch,
				Title:      args[1],
				Content:    content,
				SourceURL:  sourceURL,
				Confidence: confidence,
				Tags:       tags,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Insight recorded as %s (confidence: %.2f)\n", finding.ID, finding.Confidence)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch name (default main)")
	cmd.Flags().StringVar(&content, "content", "", "Insight body")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "Supporting URL")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "Confidence in [0,1] (default 1.0)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tags (repeatable)")

	return cmd
}

// FindingsCmd returns the findings command
func FindingsCmd() *cobra.Command {
	var branch, findingType, tag string
	var limit int

	cmd := &cobra.Command{
		Use:   "findings [project-id]",
		Short: "List findings on a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			findings, err := wire.LedgerService().ListFindings(ctx, primary.ListFindingsRequest{
				ProjectID: args[0],
				Branch:    branch,
				Type:      findingType,
				Tag:       tag,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			if len(findings) == 0 {
				fmt.Println("No findings found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tCONF\tSOURCE\tTITLE")
			fmt.Fprintln(w, "--\t----\t----\t------\t-----")
			for _, f := range findings {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n",
					f.ID, f.Type, f.Confidence, f.Source, findingLabel(f))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch name (default main)")
	cmd.Flags().StringVar(&findingType, "type", "", "Filter by finding type")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum findings to list")

	return cmd
}

// BranchCmd returns the branch command
func BranchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Manage research branches",
		Long:  "Create and list branches: parallel lines of inquiry within a project",
	}

	cmd.AddCommand(branchCreateCmd())
	cmd.AddCommand(branchListCmd())

	return cmd
}

func branchCreateCmd() *cobra.Command {
	var parent, hypothesis string

	cmd := &cobra.Command{
		Use:   "create [project-id] [name]",
		Short: "Create a branch, optionally forked from a parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			branch, err := wire.LedgerService().CreateBranch(ctx, primary.CreateBranchRequest{
				ProjectID:  args[0],
				Name:       args[1],
				Parent:     parent,
				Hypothesis: hypothesis,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Branch %s created (%s)\n", branch.Name, branch.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Parent branch name")
	cmd.Flags().StringVar(&hypothesis, "hypothesis", "", "Hypothesis this branch explores")

	return cmd
}

func branchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [project-id]",
		Short: "List a project's branches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			branches, err := wire.LedgerService().ListBranches(ctx, args[0])
			if err != nil {
				return err
			}

			if len(branches) == 0 {
				fmt.Println("No branches found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPARENT\tHYPOTHESIS")
			fmt.Fprintln(w, "--\t----\t------\t----------")
			for _, b := range branches {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Name, b.Parent, b.Hypothesis)
			}
			w.Flush()
			return nil
		},
	}
}

// HypothesisCmd returns the hypothesis command
func HypothesisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hypothesis",
		Short: "Manage hypotheses",
	}

	cmd.AddCommand(hypothesisAddCmd())
	cmd.AddCommand(hypothesisListCmd())
	cmd.AddCommand(hypothesisUpdateCmd())

	return cmd
}

func hypothesisUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [project-id] [hypothesis-id] [status]",
		Short: "Move a hypothesis to a new status (open, accepted, rejected, archived)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := wire.LedgerService().UpdateHypothesis(ctx, args[0], args[1], args[2]); err != nil {
				return err
			}

			fmt.Printf("✓ Hypothesis %s is now %s\n", args[1], args[2])
			return nil
		},
	}
}

func hypothesisAddCmd() *cobra.Command {
	var branch, rationale string
	var confidence float64

	cmd := &cobra.Command{
		Use:   "add [project-id] [statement]",
		Short: "Record a hypothesis on a branch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			h, err := wire.LedgerService().AddHypothesis(ctx, primary.AddHypothesisRequest{
				ProjectID:  args[0],
				Branch:     branch,
				Statement:  args[1],
				Rationale:  rationale,
				Confidence: confidence,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Hypothesis %s recorded (confidence: %.2f)\n", h.ID, h.Confidence)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch name (default main)")
	cmd.Flags().StringVar(&rationale, "rationale", "", "Why this hypothesis is plausible")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "Confidence in [0,1] (default 0.5)")

	return cmd
}

func hypothesisListCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "list [project-id]",
		Short: "List hypotheses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			hypotheses, err := wire.LedgerService().ListHypotheses(ctx, args[0], branch)
			if err != nil {
				return err
			}

			if len(hypotheses) == 0 {
				fmt.Println("No hypotheses found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tCONF\tSTATEMENT")
			fmt.Fprintln(w, "--\t------\t----\t---------")
			for _, h := range hypotheses {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", h.ID, h.Status, h.Confidence, h.Statement)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Restrict to one branch")

	return cmd
}

// ArtifactCmd returns the artifact command
func ArtifactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Manage artifacts (external file references)",
	}

	cmd.AddCommand(artifactAddCmd())
	cmd.AddCommand(artifactListCmd())

	return cmd
}

func artifactAddCmd() *cobra.Command {
	var branch, artifactType, metadata string

	cmd := &cobra.Command{
		Use:   "add [project-id] [path]",
		Short: "Register an external file reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var decoded map[string]any
			if metadata != "" {
				if err := json.Unmarshal([]byte(metadata), &decoded); err != nil {
					return fmt.Errorf("metadata is not valid JSON: %w", err)
				}
			}

			artifact, err := wire.LedgerService().AddArtifact(ctx, primary.AddArtifactRequest{
				ProjectID: args[0],
				Branch:    branch,
				Path:      args[1],
				Type:      artifactType,
				Metadata:  decoded,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Artifact %s registered (%s)\n", artifact.ID, artifact.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch name (default main)")
	cmd.Flags().StringVar(&artifactType, "type", "", "Artifact type (default file)")
	cmd.Flags().StringVar(&metadata, "metadata", "", "JSON metadata")

	return cmd
}

func artifactListCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "list [project-id]",
		Short: "List a branch's artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			artifacts, err := wire.LedgerService().ListArtifacts(ctx, args[0], branch)
			if err != nil {
				return err
			}

			if len(artifacts) == 0 {
				fmt.Println("No artifacts found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tPATH")
			fmt.Fprintln(w, "--\t----\t----")
			for _, a := range artifacts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Type, a.Path)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Restrict to one branch")

	return cmd
}
