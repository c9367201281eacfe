package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/lexgraph/internal/domain"
	"github.com/yungbote/lexgraph/internal/rag"
	"github.com/yungbote/lexgraph/internal/server"
)

func queryCmd() *cobra.Command {
	var (
		date      string
		component string
		amendment int
		topK      int
	)
	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Answer a temporal question over the graph",
		Long: `Answer a temporal question. With a natural-language question the
planner classifies it; with explicit flags the plan is built directly.

  lexgraph query "what did article 7 say in 1995?"
  lexgraph query --component tit_02_art_007_art_007 --date 1995-06-01
  lexgraph query --amendment 45`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			var plan domain.QueryPlan
			if len(args) == 1 {
				plan = rag.NewPlanner().Plan(args[0])
			}
			if component != "" {
				plan.TargetComponent = component
				if plan.Kind == "" {
					plan.Kind = domain.QueryPointInTime
				}
			}
			if date != "" {
				plan.TargetDate = date
				if plan.Kind == "" {
					plan.Kind = domain.QueryPointInTime
				}
			}
			if amendment > 0 {
				plan.AmendmentNumber = amendment
				plan.Kind = domain.QueryProvenance
			}
			if plan.Kind == "" {
				plan.Kind = domain.QuerySemantic
			}
			plan.TopK = topK

			retriever := rag.NewRetriever(a.client, a.log, nil)
			results, err := retriever.Retrieve(ctx, plan)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"plan": plan, "results": results})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "point-in-time date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&component, "component", "", "target component id")
	cmd.Flags().IntVar(&amendment, "amendment", 0, "amendment number for provenance")
	cmd.Flags().IntVar(&topK, "top-k", 10, "maximum results")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only query API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			retriever := rag.NewRetriever(a.client, a.log, nil)
			return server.New(retriever, rag.NewPlanner(), a.log).Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
