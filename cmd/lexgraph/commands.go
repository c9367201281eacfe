package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/lexgraph/internal/domain"
	"github.com/yungbote/lexgraph/internal/graph"
)

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop all nodes and re-run schema setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			manager := graph.NewSchemaManager(a.client, a.log)
			if err := manager.Clear(ctx); err != nil {
				return err
			}
			result, err := manager.Setup(ctx)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <parsed.json>",
		Short: "Initial load of a parsed document tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			tree, err := domain.ParseDocumentTree(raw)
			if err != nil {
				return err
			}

			if _, err := graph.NewSchemaManager(a.client, a.log).Setup(ctx); err != nil {
				return err
			}
			stats, err := graph.NewLoader(a.client, a.log, a.cfg.Language).Load(ctx, tree)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func applyAmendmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply-amendment <amendment.json>",
		Short: "Apply a single amendment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			amendment, err := domain.ParseAmendment(raw)
			if err != nil {
				return err
			}

			stats, err := graph.NewEngine(a.client, a.log, a.cfg.Language).ApplyAmendment(ctx, amendment)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func applyAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply-all <amendments-dir>",
		Short: "Apply every amendment JSON in a directory, chronologically",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			batch, report, err := readAmendmentDir(args[0])
			if err != nil {
				return err
			}
			domain.SortAmendments(batch)

			engine := graph.NewEngine(a.client, a.log, a.cfg.Language)
			for _, amendment := range batch {
				stats, err := engine.ApplyAmendment(ctx, amendment)
				switch {
				case err != nil:
					a.log.Error("amendment failed",
						"amendment", amendment.Number, "error", err)
					report.Errors = append(report.Errors, domain.BatchError{
						AmendmentNumber: amendment.Number,
						Reason:          err.Error(),
					})
				case stats.AlreadyApplied:
					report.Skipped++
				default:
					report.Processed++
				}
			}
			return printJSON(report)
		},
	}
}

func readAmendmentDir(dir string) ([]domain.Amendment, domain.BatchReport, error) {
	var report domain.BatchReport

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, report, fmt.Errorf("read %s: %w", dir, err)
	}
	batch := make([]domain.Amendment, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, report, fmt.Errorf("read %s: %w", path, err)
		}
		amendment, err := domain.ParseAmendment(raw)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, domain.BatchError{
				Reason: fmt.Sprintf("%s: %v", entry.Name(), err),
			})
			continue
		}
		batch = append(batch, amendment)
	}
	return batch, report, nil
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run the graph invariant checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			report, err := graph.NewVerifier(a.client, a.log).Run(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if report.Failed() {
				return fmt.Errorf("invariant checks failed")
			}
			return nil
		},
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
