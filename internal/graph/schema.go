package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/lexgraph/internal/platform/logger"
	"github.com/yungbote/lexgraph/internal/platform/neo4jdb"
)

// Uniqueness constraints, one per node kind.
var schemaConstraints = []string{
	`CREATE CONSTRAINT norm_official_id IF NOT EXISTS FOR (n:Norm) REQUIRE n.official_id IS UNIQUE`,
	`CREATE CONSTRAINT component_id IF NOT EXISTS FOR (c:Component) REQUIRE c.component_id IS UNIQUE`,
	`CREATE CONSTRAINT ctv_id IF NOT EXISTS FOR (v:CTV) REQUIRE v.ctv_id IS UNIQUE`,
	`CREATE CONSTRAINT clv_id IF NOT EXISTS FOR (l:CLV) REQUIRE l.clv_id IS UNIQUE`,
	`CREATE CONSTRAINT text_id IF NOT EXISTS FOR (t:TextUnit) REQUIRE t.text_id IS UNIQUE`,
	`CREATE CONSTRAINT action_id IF NOT EXISTS FOR (a:Action) REQUIRE a.action_id IS UNIQUE`,
}

// Indexes on the hot traversal paths.
var schemaIndexes = []string{
	`CREATE INDEX component_type IF NOT EXISTS FOR (c:Component) ON (c.component_type)`,
	`CREATE INDEX component_parent IF NOT EXISTS FOR (c:Component) ON (c.parent_id)`,
	`CREATE INDEX ctv_component IF NOT EXISTS FOR (v:CTV) ON (v.component_id)`,
	`CREATE INDEX ctv_active IF NOT EXISTS FOR (v:CTV) ON (v.is_active)`,
	`CREATE INDEX ctv_date_start IF NOT EXISTS FOR (v:CTV) ON (v.date_start)`,
	`CREATE INDEX clv_language IF NOT EXISTS FOR (l:CLV) ON (l.language)`,
	`CREATE INDEX action_amendment IF NOT EXISTS FOR (a:Action) ON (a.amendment_number)`,
	`CREATE INDEX action_date IF NOT EXISTS FOR (a:Action) ON (a.amendment_date)`,
}

// SchemaManager declares constraints and indexes. Setup is idempotent and
// safe to re-run.
type SchemaManager struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewSchemaManager(client *neo4jdb.Client, log *logger.Logger) *SchemaManager {
	return &SchemaManager{client: client, log: log.With("component", "SchemaManager")}
}

// SetupResult reports how many schema objects this run actually created.
type SetupResult struct {
	ConstraintsCreated int `json:"constraints_created"`
	IndexesCreated     int `json:"indexes_created"`
}

func (m *SchemaManager) Setup(ctx context.Context) (SetupResult, error) {
	var res SetupResult
	for _, stmt := range schemaConstraints {
		created, err := m.run(ctx, stmt)
		if err != nil {
			return res, fmt.Errorf("schema: constraint: %w", err)
		}
		if created {
			res.ConstraintsCreated++
		}
	}
	for _, stmt := range schemaIndexes {
		created, err := m.run(ctx, stmt)
		if err != nil {
			return res, fmt.Errorf("schema: index: %w", err)
		}
		if created {
			res.IndexesCreated++
		}
	}
	m.log.Info("schema setup complete",
		"constraints_created", res.ConstraintsCreated,
		"indexes_created", res.IndexesCreated)
	return res, nil
}

func (m *SchemaManager) run(ctx context.Context, stmt string) (bool, error) {
	_, _, err := m.client.Write(ctx, stmt, nil)
	if err != nil {
		// IF NOT EXISTS covers the common path; older servers can still
		// report an equivalent-schema error, which is not a failure here.
		if strings.Contains(strings.ToLower(err.Error()), "already exists") ||
			strings.Contains(strings.ToLower(err.Error()), "equivalent") {
			m.log.Debug("schema object already exists", "statement", stmt)
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Clear deletes every node and relationship. Used by the reset command and
// by integration tests.
func (m *SchemaManager) Clear(ctx context.Context) error {
	_, sum, err := m.client.Write(ctx, `MATCH (n) DETACH DELETE n`, nil)
	if err != nil {
		return fmt.Errorf("schema: clear: %w", err)
	}
	m.log.Warn("graph cleared", "nodes_deleted", sum.NodesDeleted)
	return nil
}

// Counts returns the node count per label, for reporting.
func (m *SchemaManager) Counts(ctx context.Context) (map[string]int64, error) {
	rows, err := m.client.Read(ctx, `
		MATCH (n)
		UNWIND labels(n) AS label
		RETURN label, count(*) AS count
		ORDER BY label`, nil)
	if err != nil {
		return nil, fmt.Errorf("schema: counts: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		label, _ := r["label"].(string)
		count, _ := r["count"].(int64)
		if label != "" {
			out[label] = count
		}
	}
	return out, nil
}
