package graph_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/yungbote/lexgraph/internal/domain"
	"github.com/yungbote/lexgraph/internal/graph"
	"github.com/yungbote/lexgraph/internal/platform/logger"
	"github.com/yungbote/lexgraph/internal/platform/neo4jdb"
	"github.com/yungbote/lexgraph/internal/rag"
)

// The lifecycle test needs a running database; it is skipped unless
// NEO4J_URI is set. It exercises the full path: schema, initial load,
// amendment propagation, duplicate and out-of-order rejection, repeal,
// retrieval and the invariant checks.

func integrationClient(t *testing.T) *neo4jdb.Client {
	t.Helper()
	if os.Getenv("NEO4J_URI") == "" {
		t.Skip("NEO4J_URI not set")
	}
	client, err := neo4jdb.NewFromEnv(context.Background(), logger.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func fixtureTree() *domain.DocumentTree {
	return &domain.DocumentTree{
		OfficialID:    "TESTNORM",
		Name:          "Integration Fixture",
		EnactmentDate: "1988-10-05",
		Components: []*domain.ParsedComponent{
			{
				ComponentID:   "tit_01",
				ComponentType: domain.TypeTitle,
				OrderingID:    "01",
				Header:        "TÍTULO I",
				Children: []*domain.ParsedComponent{
					{
						ComponentID:   "tit_01_cap_01",
						ComponentType: domain.TypeChapter,
						OrderingID:    "01",
						Header:        "CAPÍTULO I",
						Children: []*domain.ParsedComponent{
							{
								ComponentID:   "tit_01_cap_01_art_001",
								ComponentType: domain.TypeArticle,
								OrderingID:    "001",
								Content:       "Original first article.",
								FullText:      "Art. 1º Original first article.",
							},
							{
								ComponentID:   "tit_01_cap_01_art_002",
								ComponentType: domain.TypeArticle,
								OrderingID:    "002",
								Content:       "Original second article.",
								FullText:      "Art. 2º Original second article.",
							},
						},
					},
				},
			},
		},
	}
}

func TestAmendmentLifecycle(t *testing.T) {
	client := integrationClient(t)
	ctx := context.Background()
	log := logger.NewNop()

	manager := graph.NewSchemaManager(client, log)
	if err := manager.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := manager.Setup(ctx); err != nil {
		t.Fatalf("schema setup: %v", err)
	}

	loader := graph.NewLoader(client, log, "pt")
	stats, err := loader.Load(ctx, fixtureTree())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Components != 4 || stats.CTVs != 4 {
		t.Fatalf("load stats = %+v, want 4 components and 4 CTVs", stats)
	}

	// Re-running the load creates nothing.
	again, err := loader.Load(ctx, fixtureTree())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Components != 0 || again.CTVs != 0 || again.Relationships != 0 {
		t.Fatalf("reload created nodes: %+v", again)
	}

	counts, err := manager.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[graph.LabelNorm] != 1 || counts[graph.LabelComponent] != 4 || counts[graph.LabelCTV] != 4 {
		t.Fatalf("label counts = %v", counts)
	}
	// Both articles carry text, both connectors carry headers.
	if counts[graph.LabelCLV] != 4 || counts[graph.LabelTextUnit] != 4 {
		t.Fatalf("expression counts = %v", counts)
	}

	engine := graph.NewEngine(client, log, "pt")
	retriever := rag.NewRetriever(client, log, nil)

	amendment := domain.Amendment{
		Number:      1,
		Date:        "1995-06-01",
		Description: "rewrites the first article",
		Changes: []domain.Change{{
			ComponentID: "tit_01_cap_01_art_001",
			NewContent:  "Art. 1º Amended first article.",
			ChangeType:  domain.ChangeModify,
		}},
	}

	t.Run("propagation and reuse", func(t *testing.T) {
		astats, err := engine.ApplyAmendment(ctx, amendment)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		// The leaf plus its chapter and title ancestors are versioned.
		if astats.NewCTVs != 3 {
			t.Errorf("new ctvs = %d, want 3", astats.NewCTVs)
		}
		if astats.ClosedCTVs != 3 {
			t.Errorf("closed ctvs = %d, want 3", astats.ClosedCTVs)
		}
		// The untouched sibling article keeps its v1, referenced by the
		// chapter's new fan-out.
		if astats.ReusedCTVs != 1 {
			t.Errorf("reused ctvs = %d, want 1", astats.ReusedCTVs)
		}
		// Chapter aggregates two articles; title aggregates one chapter.
		if astats.NewAggregations != 3 {
			t.Errorf("new aggregations = %d, want 3", astats.NewAggregations)
		}

		history, err := retriever.VersionHistory(ctx, "tit_01_cap_01_art_002")
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(history) != 1 {
			t.Errorf("untouched sibling has %d versions, want 1", len(history))
		}
	})

	t.Run("point in time", func(t *testing.T) {
		before, err := retriever.PointInTime(ctx, "tit_01_cap_01_art_001", "1990-01-01", 1)
		if err != nil {
			t.Fatalf("before: %v", err)
		}
		if len(before) != 1 || before[0].Text != "Art. 1º Original first article." {
			t.Fatalf("before = %+v", before)
		}
		if before[0].VersionInfo.Version != 1 || before[0].VersionInfo.IsActive {
			t.Errorf("before version info = %+v", before[0].VersionInfo)
		}

		after, err := retriever.PointInTime(ctx, "tit_01_cap_01_art_001", "2000-01-01", 1)
		if err != nil {
			t.Fatalf("after: %v", err)
		}
		if len(after) != 1 || after[0].Text != "Art. 1º Amended first article." {
			t.Fatalf("after = %+v", after)
		}
		if after[0].VersionInfo.Version != 2 || !after[0].VersionInfo.IsActive {
			t.Errorf("after version info = %+v", after[0].VersionInfo)
		}

		// Before enactment, nothing is valid.
		none, err := retriever.PointInTime(ctx, "tit_01_cap_01_art_001", "1980-01-01", 1)
		if err != nil {
			t.Fatalf("pre-enactment: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("pre-enactment results = %+v, want none", none)
		}
	})

	t.Run("duplicate amendment is a no-op", func(t *testing.T) {
		dup, err := engine.ApplyAmendment(ctx, amendment)
		if err != nil {
			t.Fatalf("duplicate apply: %v", err)
		}
		if !dup.AlreadyApplied {
			t.Fatalf("duplicate not detected: %+v", dup)
		}
		if dup.NewCTVs != 0 || dup.ClosedCTVs != 0 {
			t.Errorf("duplicate wrote versions: %+v", dup)
		}
	})

	t.Run("out of order amendment is rejected", func(t *testing.T) {
		stale := domain.Amendment{
			Number: 2,
			Date:   "1992-01-01",
			Changes: []domain.Change{{
				ComponentID: "tit_01_cap_01_art_002",
				NewContent:  "too late",
				ChangeType:  domain.ChangeModify,
			}},
		}
		if _, err := engine.ApplyAmendment(ctx, stale); !errors.Is(err, graph.ErrOutOfOrder) {
			t.Fatalf("err = %v, want ErrOutOfOrder", err)
		}
	})

	t.Run("unknown component is skipped", func(t *testing.T) {
		mixed := domain.Amendment{
			Number: 3,
			Date:   "2001-03-15",
			Changes: []domain.Change{
				{ComponentID: "does_not_exist", NewContent: "x", ChangeType: domain.ChangeModify},
				{ComponentID: "tit_01_cap_01_art_002", NewContent: "Art. 2º Amended second article.", ChangeType: domain.ChangeModify},
			},
		}
		mstats, err := engine.ApplyAmendment(ctx, mixed)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if mstats.SkippedChanges != 1 {
			t.Errorf("skipped = %d, want 1", mstats.SkippedChanges)
		}
		if mstats.NewCTVs != 3 {
			t.Errorf("new ctvs = %d, want 3", mstats.NewCTVs)
		}
	})

	t.Run("repeal", func(t *testing.T) {
		repeal := domain.Amendment{
			Number: 4,
			Date:   "2010-07-01",
			Changes: []domain.Change{{
				ComponentID: "tit_01_cap_01_art_001",
				ChangeType:  domain.ChangeRepeal,
			}},
		}
		if _, err := engine.ApplyAmendment(ctx, repeal); err != nil {
			t.Fatalf("repeal: %v", err)
		}

		gone, err := retriever.PointInTime(ctx, "tit_01_cap_01_art_001", "2020-01-01", 1)
		if err != nil {
			t.Fatalf("after repeal: %v", err)
		}
		if len(gone) != 0 {
			t.Errorf("repealed article still retrieved: %+v", gone)
		}

		// The pre-repeal text is still reachable at its own time.
		still, err := retriever.PointInTime(ctx, "tit_01_cap_01_art_001", "2005-01-01", 1)
		if err != nil {
			t.Fatalf("pre-repeal read: %v", err)
		}
		if len(still) != 1 || still[0].VersionInfo.Version != 2 {
			t.Errorf("pre-repeal state = %+v", still)
		}
	})

	t.Run("non-leaf change is skipped", func(t *testing.T) {
		inner := domain.Amendment{
			Number: 5,
			Date:   "2015-01-01",
			Changes: []domain.Change{{
				ComponentID: "tit_01_cap_01",
				NewContent:  "rewritten chapter heading",
				ChangeType:  domain.ChangeModify,
			}},
		}
		istats, err := engine.ApplyAmendment(ctx, inner)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if istats.SkippedChanges != 1 {
			t.Errorf("skipped = %d, want 1", istats.SkippedChanges)
		}
		if istats.NewCTVs != 0 || istats.ClosedCTVs != 0 {
			t.Errorf("inner change wrote versions: %+v", istats)
		}

		// The chapter's history is untouched: v1 load plus the three
		// propagated versions.
		history, err := retriever.VersionHistory(ctx, "tit_01_cap_01")
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(history) != 4 {
			t.Errorf("chapter versions = %d, want 4", len(history))
		}
	})

	t.Run("provenance", func(t *testing.T) {
		results, err := retriever.Provenance(ctx, 1, "", 10)
		if err != nil {
			t.Fatalf("provenance: %v", err)
		}
		// Amendment 1 produced the leaf plus two propagated ancestors.
		if len(results) != 3 {
			t.Fatalf("provenance results = %d, want 3", len(results))
		}
		var leaf *domain.RetrievalResult
		for i := range results {
			if results[i].ComponentID == "tit_01_cap_01_art_001" {
				leaf = &results[i]
			}
		}
		if leaf == nil || leaf.Provenance == nil {
			t.Fatalf("leaf provenance missing: %+v", results)
		}
		if leaf.Provenance.PreviousText != "Art. 1º Original first article." {
			t.Errorf("previous text = %q", leaf.Provenance.PreviousText)
		}
	})

	t.Run("hierarchical impact", func(t *testing.T) {
		impacted, err := retriever.HierarchicalImpact(ctx, "tit_01", "1988-10-05", "2024-01-01")
		if err != nil {
			t.Fatalf("impact: %v", err)
		}
		byID := map[string][]int{}
		for _, imp := range impacted {
			byID[imp.ComponentID] = imp.Amendments
		}
		if len(byID["tit_01_cap_01_art_001"]) != 2 {
			t.Errorf("art_001 amendments = %v, want amendment 1 and the repeal", byID["tit_01_cap_01_art_001"])
		}
		if len(byID["tit_01_cap_01_art_002"]) != 1 {
			t.Errorf("art_002 amendments = %v, want exactly the mixed amendment", byID["tit_01_cap_01_art_002"])
		}
	})

	t.Run("invariants hold", func(t *testing.T) {
		counts, err := manager.Counts(ctx)
		if err != nil {
			t.Fatalf("counts: %v", err)
		}
		// Amendments 1, 3, 4 and the all-skipped 5 committed; the
		// out-of-order one rolled back.
		if counts[graph.LabelAction] != 4 {
			t.Errorf("action count = %d, want 4", counts[graph.LabelAction])
		}

		report, err := graph.NewVerifier(client, log).Run(ctx)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if report.Failed() {
			for _, c := range report.Checks {
				if !c.Passed {
					t.Errorf("invariant %s violated %d times", c.Name, c.Violations)
				}
			}
		}
	})
}
