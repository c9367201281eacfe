package graph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lexgraph/internal/platform/logger"
	"github.com/yungbote/lexgraph/internal/platform/neo4jdb"
)

// invariantCheck is one named invariant expressed as a Cypher query that
// returns a single `violations` count. Zero violations means the invariant
// holds.
type invariantCheck struct {
	Name        string
	Description string
	Query       string
}

var invariantChecks = []invariantCheck{
	{
		Name:        "single_active_version",
		Description: "every component has exactly one active CTV",
		Query: `
			MATCH (c:Component)
			OPTIONAL MATCH (c)-[:HAS_VERSION]->(v:CTV {is_active: true})
			WITH c, count(v) AS actives
			WHERE actives <> 1
			RETURN count(c) AS violations`,
	},
	{
		Name:        "active_open_ended",
		Description: "active CTVs have no end date",
		Query: `
			MATCH (v:CTV {is_active: true})
			WHERE v.date_end IS NOT NULL
			RETURN count(v) AS violations`,
	},
	{
		Name:        "non_overlapping_validity",
		Description: "validity intervals of a component's CTVs do not overlap",
		Query: `
			MATCH (c:Component)-[:HAS_VERSION]->(v1:CTV)
			MATCH (c)-[:HAS_VERSION]->(v2:CTV)
			WHERE v1.ctv_id < v2.ctv_id
			  AND v1.date_start < v2.date_start
			  AND (v1.date_end IS NULL OR v1.date_end > v2.date_start)
			RETURN count(*) AS violations`,
	},
	{
		Name:        "monotone_versions",
		Description: "later version numbers start strictly later",
		Query: `
			MATCH (c:Component)-[:HAS_VERSION]->(v1:CTV)
			MATCH (c)-[:HAS_VERSION]->(v2:CTV)
			WHERE v1.version_number < v2.version_number
			  AND v1.date_start >= v2.date_start
			RETURN count(*) AS violations`,
	},
	{
		Name:        "version_contiguity",
		Description: "a superseded version ends exactly where its successor starts",
		Query: `
			MATCH (v:CTV)-[:SUPERSEDES]->(prev:CTV)
			WHERE prev.date_end IS NULL OR prev.date_end <> v.date_start
			RETURN count(*) AS violations`,
	},
	{
		Name:        "supersedes_chain",
		Description: "each CTV above v1 supersedes exactly its predecessor",
		Query: `
			MATCH (v:CTV)
			WHERE v.version_number > 1
			OPTIONAL MATCH (v)-[:SUPERSEDES]->(prev:CTV)
			WITH v, collect(prev) AS prevs
			WHERE size(prevs) <> 1
			   OR prevs[0].component_id <> v.component_id
			   OR prevs[0].version_number <> v.version_number - 1
			RETURN count(v) AS violations`,
	},
	{
		Name:        "supersedes_descends",
		Description: "SUPERSEDES always points to a lower version",
		Query: `
			MATCH (v:CTV)-[:SUPERSEDES]->(prev:CTV)
			WHERE prev.version_number >= v.version_number
			RETURN count(*) AS violations`,
	},
	{
		Name:        "aggregates_completeness",
		Description: "a parent CTV aggregates exactly its component's children",
		Query: `
			MATCH (c:Component)-[:HAS_VERSION]->(v:CTV)
			WHERE (c)-[:HAS_CHILD]->()
			MATCH (c)-[:HAS_CHILD]->(child:Component)
			WITH v, collect(DISTINCT child.component_id) AS expected
			OPTIONAL MATCH (v)-[:AGGREGATES]->(cv:CTV)
			WITH v, expected, collect(DISTINCT cv.component_id) AS actual
			WHERE size(expected) <> size(actual)
			   OR any(x IN expected WHERE NOT x IN actual)
			RETURN count(v) AS violations`,
	},
	{
		Name:        "point_in_time_closure",
		Description: "aggregated child intervals cover the parent interval",
		Query: `
			MATCH (v:CTV)-[:AGGREGATES]->(cv:CTV)
			WHERE cv.date_start > v.date_start
			   OR (cv.date_end IS NOT NULL AND (v.date_end IS NULL OR cv.date_end < v.date_end))
			RETURN count(*) AS violations`,
	},
	{
		Name:        "leaf_text",
		Description: "active non-repealed leaf CTVs carry a text expression",
		Query: `
			MATCH (c:Component)-[:HAS_VERSION]->(v:CTV {is_active: true})
			WHERE NOT c.component_type IN ['norm', 'title', 'chapter', 'section', 'subsection']
			  AND coalesce(v.is_repealed, false) = false
			  AND NOT (v)-[:EXPRESSED_IN]->(:CLV)-[:HAS_TEXT]->(:TextUnit)
			RETURN count(v) AS violations`,
	},
	{
		Name:        "causality",
		Description: "every CTV above v1 has exactly one producing action",
		Query: `
			MATCH (v:CTV)
			OPTIONAL MATCH (:Action)-[r:RESULTED_IN]->(v)
			WITH v, count(r) AS incoming
			WHERE (v.version_number > 1 AND incoming <> 1)
			   OR (v.version_number = 1 AND incoming > 0)
			RETURN count(v) AS violations`,
	},
}

// CheckResult reports one invariant check.
type CheckResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Violations  int    `json:"violations"`
	Passed      bool   `json:"passed"`
}

// VerifyReport is the full invariant report, keyed by invariant name in
// declaration order.
type VerifyReport struct {
	Checks []CheckResult `json:"checks"`
}

func (r VerifyReport) Failed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return true
		}
	}
	return false
}

// Verifier runs the invariant checks. Each check is an independent
// read-only traversal, so they run concurrently.
type Verifier struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewVerifier(client *neo4jdb.Client, log *logger.Logger) *Verifier {
	return &Verifier{client: client, log: log.With("component", "Verifier")}
}

func (v *Verifier) Run(ctx context.Context) (VerifyReport, error) {
	results := make([]CheckResult, len(invariantChecks))

	g, gctx := errgroup.WithContext(ctx)
	for i, check := range invariantChecks {
		i, check := i, check
		g.Go(func() error {
			rows, err := v.client.Read(gctx, check.Query, nil)
			if err != nil {
				return fmt.Errorf("verify %s: %w", check.Name, err)
			}
			violations := 0
			if len(rows) > 0 {
				violations = rowInt(rows[0], "violations")
			}
			results[i] = CheckResult{
				Name:        check.Name,
				Description: check.Description,
				Violations:  violations,
				Passed:      violations == 0,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return VerifyReport{}, err
	}

	report := VerifyReport{Checks: results}
	for _, c := range report.Checks {
		if c.Passed {
			v.log.Debug("invariant holds", "check", c.Name)
		} else {
			v.log.Error("invariant violated", "check", c.Name, "violations", c.Violations)
		}
	}
	return report, nil
}
