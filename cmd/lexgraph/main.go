// Package main provides the lexgraph binary: schema setup, initial load,
// amendment application and temporal queries over a versioned legal-document
// graph.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/lexgraph/internal/config"
	"github.com/yungbote/lexgraph/internal/platform/logger"
	"github.com/yungbote/lexgraph/internal/platform/neo4jdb"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var cfgPath string

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lexgraph",
		Short:         "Temporal versioned-graph store for legal documents",
		Long:          "lexgraph maintains a Neo4j graph of a legal document and its amendments under the aggregation model, and answers point-in-time, provenance, history and impact queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (env vars override)")

	root.AddCommand(resetCmd())
	root.AddCommand(loadCmd())
	root.AddCommand(applyAmendmentCmd())
	root.AddCommand(applyAllCmd())
	root.AddCommand(verifyCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(serveCmd())
	return root
}

// app bundles the shared runtime handles. The CLI owns one graph client and
// hands it into the loader, engine and retriever.
type app struct {
	cfg    config.Config
	log    *logger.Logger
	client *neo4jdb.Client
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log = log.With("run_id", uuid.NewString())

	client, err := neo4jdb.New(ctx, neo4jdb.Options{
		URI:            cfg.Neo4j.URI,
		User:           cfg.Neo4j.User,
		Password:       cfg.Neo4j.Password,
		Database:       cfg.Neo4j.Database,
		TimeoutSeconds: cfg.Neo4j.TimeoutSeconds,
		MaxPoolSize:    cfg.Neo4j.MaxPoolSize,
	}, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, client: client}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.client.Close(ctx); err != nil {
		a.log.Warn("closing graph client", "error", err)
	}
	a.log.Sync()
}
