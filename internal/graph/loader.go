package graph

import (
	"context"
	"fmt"

	"github.com/yungbote/lexgraph/internal/domain"
	"github.com/yungbote/lexgraph/internal/platform/logger"
	"github.com/yungbote/lexgraph/internal/platform/neo4jdb"
)

// Loader materializes the v1 graph from a parsed document tree: one
// Component per node, one CTV per Component, one CLV+TextUnit for
// text-bearing components, one AGGREGATES edge per parent-child link.
// Every statement is a MERGE, so re-running the load on the same tree
// creates nothing.
type Loader struct {
	client   WriteStore
	log      *logger.Logger
	language string
}

func NewLoader(client WriteStore, log *logger.Logger, language string) *Loader {
	if language == "" {
		language = "pt"
	}
	return &Loader{client: client, log: log.With("component", "Loader"), language: language}
}

type loadBatch struct {
	components []map[string]any
	ctvs       []map[string]any
	clvs       []map[string]any
	texts      []map[string]any
	hasChild   []map[string]any
	topLevel   []map[string]any
	aggregates []map[string]any
}

// Load walks the tree pre-order and writes the whole v1 graph in a single
// transaction.
func (l *Loader) Load(ctx context.Context, tree *domain.DocumentTree) (domain.LoadStats, error) {
	var stats domain.LoadStats
	if tree == nil {
		return stats, fmt.Errorf("loader: nil document tree")
	}
	if !domain.ValidDate(tree.EnactmentDate) {
		return stats, fmt.Errorf("loader: enactment_date %q is not YYYY-MM-DD", tree.EnactmentDate)
	}

	batch := &loadBatch{}
	for idx, component := range tree.Components {
		l.flatten(batch, component, tree.OfficialID, "", "", tree.EnactmentDate, idx+1)
	}

	l.log.Info("loading document tree",
		"official_id", tree.OfficialID,
		"components", len(batch.components))

	err := l.client.WriteTx(ctx, func(tx neo4jdb.Tx) error {
		// The driver may retry the transaction function; every attempt
		// starts from zero or the counters double.
		stats = domain.LoadStats{}

		_, sum, err := tx.Run(`
			MERGE (n:Norm {official_id: $official_id})
			ON CREATE SET n.name = $name,
			              n.enactment_date = $enactment_date,
			              n.created_at = datetime()`,
			map[string]any{
				"official_id":    tree.OfficialID,
				"name":           tree.Name,
				"enactment_date": tree.EnactmentDate,
			})
		if err != nil {
			return fmt.Errorf("merge norm: %w", err)
		}
		stats.Norms += sum.NodesCreated
		stats.Relationships += sum.RelationshipsCreated

		sum, err = runBatch(tx, `
			UNWIND $rows AS row
			MERGE (c:Component {component_id: row.component_id})
			ON CREATE SET c.component_type = row.component_type,
			              c.ordering_id = row.ordering_id,
			              c.parent_id = row.parent_id,
			              c.norm_id = row.norm_id,
			              c.sibling_index = row.sibling_index,
			              c.created_at = datetime()`,
			batch.components)
		if err != nil {
			return fmt.Errorf("merge components: %w", err)
		}
		stats.Components += sum.NodesCreated
		stats.Relationships += sum.RelationshipsCreated

		sum, err = runBatch(tx, `
			UNWIND $rows AS row
			MATCH (parent:Component {component_id: row.parent_id})
			MATCH (child:Component {component_id: row.child_id})
			MERGE (parent)-[:HAS_CHILD]->(child)`,
			batch.hasChild)
		if err != nil {
			return fmt.Errorf("merge HAS_CHILD: %w", err)
		}
		stats.Relationships += sum.RelationshipsCreated

		sum, err = runBatch(tx, `
			UNWIND $rows AS row
			MATCH (n:Norm {official_id: row.norm_id})
			MATCH (c:Component {component_id: row.component_id})
			MERGE (n)-[:HAS_COMPONENT]->(c)`,
			batch.topLevel)
		if err != nil {
			return fmt.Errorf("merge HAS_COMPONENT: %w", err)
		}
		stats.Relationships += sum.RelationshipsCreated

		sum, err = runBatch(tx, `
			UNWIND $rows AS row
			MATCH (c:Component {component_id: row.component_id})
			MERGE (v:CTV {ctv_id: row.ctv_id})
			ON CREATE SET v.component_id = row.component_id,
			              v.version_number = 1,
			              v.date_start = row.date_start,
			              v.date_end = null,
			              v.is_active = true,
			              v.is_original = row.is_original,
			              v.is_repealed = false,
			              v.created_by_action = 'initial_load',
			              v.amendment_numbers = row.amendment_numbers,
			              v.created_at = datetime()
			MERGE (c)-[:HAS_VERSION]->(v)`,
			batch.ctvs)
		if err != nil {
			return fmt.Errorf("merge CTVs: %w", err)
		}
		stats.CTVs += sum.NodesCreated
		stats.Relationships += sum.RelationshipsCreated

		sum, err = runBatch(tx, `
			UNWIND $rows AS row
			MATCH (v:CTV {ctv_id: row.ctv_id})
			MERGE (lv:CLV {clv_id: row.clv_id})
			ON CREATE SET lv.ctv_id = row.ctv_id,
			              lv.language = row.language,
			              lv.created_at = datetime()
			MERGE (v)-[:EXPRESSED_IN]->(lv)`,
			batch.clvs)
		if err != nil {
			return fmt.Errorf("merge CLVs: %w", err)
		}
		stats.CLVs += sum.NodesCreated
		stats.Relationships += sum.RelationshipsCreated

		sum, err = runBatch(tx, `
			UNWIND $rows AS row
			MATCH (lv:CLV {clv_id: row.clv_id})
			MERGE (t:TextUnit {text_id: row.text_id})
			ON CREATE SET t.clv_id = row.clv_id,
			              t.header = row.header,
			              t.content = row.content,
			              t.full_text = row.full_text,
			              t.char_count = row.char_count,
			              t.content_hash = row.content_hash,
			              t.created_at = datetime()
			MERGE (lv)-[:HAS_TEXT]->(t)`,
			batch.texts)
		if err != nil {
			return fmt.Errorf("merge TextUnits: %w", err)
		}
		stats.TextUnits += sum.NodesCreated
		stats.Relationships += sum.RelationshipsCreated

		sum, err = runBatch(tx, `
			UNWIND $rows AS row
			MATCH (parent:CTV {ctv_id: row.parent_ctv})
			MATCH (child:CTV {ctv_id: row.child_ctv})
			MERGE (parent)-[r:AGGREGATES]->(child)
			ON CREATE SET r.ordering = row.ordering`,
			batch.aggregates)
		if err != nil {
			return fmt.Errorf("merge AGGREGATES: %w", err)
		}
		stats.Relationships += sum.RelationshipsCreated

		return nil
	})
	if err != nil {
		return domain.LoadStats{}, fmt.Errorf("loader: %w", err)
	}

	l.log.Info("load complete",
		"norms", stats.Norms,
		"components", stats.Components,
		"ctvs", stats.CTVs,
		"clvs", stats.CLVs,
		"text_units", stats.TextUnits,
		"relationships", stats.Relationships)
	return stats, nil
}

func runBatch(tx neo4jdb.Tx, query string, rows []map[string]any) (neo4jdb.Summary, error) {
	if len(rows) == 0 {
		return neo4jdb.Summary{}, nil
	}
	_, sum, err := tx.Run(query, map[string]any{"rows": rows})
	return sum, err
}

// flatten turns the tree into per-label row batches. ordering is the
// 1-based sibling index within the parent, persisted on the Component as
// the authoritative AGGREGATES ordering.
func (l *Loader) flatten(batch *loadBatch, component *domain.ParsedComponent, normID, parentID, parentCTV, enactmentDate string, ordering int) {
	ctvID := CTVID(component.ComponentID, 1)

	var parentField any
	if parentID != "" {
		parentField = parentID
	}
	batch.components = append(batch.components, map[string]any{
		"component_id":   component.ComponentID,
		"component_type": string(component.ComponentType),
		"ordering_id":    component.OrderingID,
		"parent_id":      parentField,
		"norm_id":        normID,
		"sibling_index":  ordering,
	})

	amendmentNumbers := make([]any, 0, len(component.Events))
	for _, ev := range component.Events {
		if ev.AmendmentNumber > 0 {
			amendmentNumbers = append(amendmentNumbers, ev.AmendmentNumber)
		}
	}
	batch.ctvs = append(batch.ctvs, map[string]any{
		"component_id":      component.ComponentID,
		"ctv_id":            ctvID,
		"date_start":        enactmentDate,
		"is_original":       component.Original(),
		"amendment_numbers": amendmentNumbers,
	})

	if component.HasText() || component.Header != "" {
		clvID := CLVID(ctvID, l.language)
		batch.clvs = append(batch.clvs, map[string]any{
			"ctv_id":   ctvID,
			"clv_id":   clvID,
			"language": l.language,
		})
		batch.texts = append(batch.texts, map[string]any{
			"clv_id":       clvID,
			"text_id":      TextUnitID(clvID),
			"header":       component.Header,
			"content":      component.Content,
			"full_text":    component.FullText,
			"char_count":   len([]rune(component.FullText)),
			"content_hash": ContentHash(component.FullText),
		})
	}

	if parentID == "" {
		batch.topLevel = append(batch.topLevel, map[string]any{
			"norm_id":      normID,
			"component_id": component.ComponentID,
		})
	} else {
		batch.hasChild = append(batch.hasChild, map[string]any{
			"parent_id": parentID,
			"child_id":  component.ComponentID,
		})
	}
	if parentCTV != "" {
		batch.aggregates = append(batch.aggregates, map[string]any{
			"parent_ctv": parentCTV,
			"child_ctv":  ctvID,
			"ordering":   ordering,
		})
	}

	for idx, child := range component.Children {
		l.flatten(batch, child, normID, component.ComponentID, ctvID, enactmentDate, idx+1)
	}
}
