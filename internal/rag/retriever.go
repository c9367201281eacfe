// Package rag exposes the retrieval operators over the versioned graph:
// point-in-time reads, provenance, version history and hierarchical impact,
// plus a thin natural-language query planner for the CLI and HTTP surfaces.
package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yungbote/lexgraph/internal/domain"
	"github.com/yungbote/lexgraph/internal/platform/logger"
	"github.com/yungbote/lexgraph/internal/platform/neo4jdb"
)

// TextSearcher is the external collaborator for semantic plans. The engine
// narrows to a temporal scope; ranking and embeddings live elsewhere.
type TextSearcher interface {
	Search(ctx context.Context, query string, asOf string, topK int) ([]domain.RetrievalResult, error)
}

// Retriever executes query plans as graph traversals. Unknown component ids
// yield empty results, never errors.
type Retriever struct {
	client   *neo4jdb.Client
	log      *logger.Logger
	searcher TextSearcher
}

// NewRetriever builds a retriever. searcher may be nil, in which case
// semantic plans fall back to a keyword scan over the active versions.
func NewRetriever(client *neo4jdb.Client, log *logger.Logger, searcher TextSearcher) *Retriever {
	return &Retriever{client: client, log: log.With("component", "Retriever"), searcher: searcher}
}

// Retrieve dispatches on the plan variant.
func (r *Retriever) Retrieve(ctx context.Context, plan domain.QueryPlan) ([]domain.RetrievalResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	switch plan.Kind {
	case domain.QueryPointInTime:
		return r.PointInTime(ctx, plan.TargetComponent, plan.TargetDate, plan.Limit())
	case domain.QueryProvenance:
		return r.Provenance(ctx, plan.AmendmentNumber, plan.TargetComponent, plan.Limit())
	case domain.QuerySemantic:
		return r.semantic(ctx, plan, "")
	case domain.QueryHybrid:
		// Narrow temporally first; with a concrete component the date
		// pins a single version and no text search is needed.
		if plan.TargetComponent != "" {
			return r.PointInTime(ctx, plan.TargetComponent, plan.TargetDate, plan.Limit())
		}
		return r.semantic(ctx, plan, plan.TargetDate)
	}
	return nil, fmt.Errorf("retrieve: unknown plan kind %q", plan.Kind)
}

// PointInTime returns the state of the law at a date: one version for a
// named component, or the whole-norm snapshot capped at topK. An empty date
// means today.
func (r *Retriever) PointInTime(ctx context.Context, componentID, date string, topK int) ([]domain.RetrievalResult, error) {
	if date == "" {
		date = time.Now().UTC().Format(domain.DateLayout)
	}
	if !domain.ValidDate(date) {
		return nil, fmt.Errorf("point in time: date %q is not YYYY-MM-DD", date)
	}

	if componentID != "" {
		rows, err := r.client.Read(ctx, `
			MATCH (c:Component)
			WHERE c.component_id = $comp_id OR c.component_id ENDS WITH $comp_id
			MATCH (c)-[:HAS_VERSION]->(v:CTV)
			WHERE v.date_start <= $query_date
			  AND (v.date_end IS NULL OR v.date_end > $query_date)
			  AND coalesce(v.is_repealed, false) = false
			OPTIONAL MATCH (v)-[:EXPRESSED_IN]->(:CLV)-[:HAS_TEXT]->(t:TextUnit)
			RETURN c.component_id AS component_id,
			       c.component_type AS component_type,
			       t.full_text AS text,
			       v.version_number AS version,
			       v.date_start AS date_start,
			       v.date_end AS date_end,
			       v.is_active AS is_active,
			       v.is_original AS is_original,
			       v.amendment_number AS amendment_number
			ORDER BY c.component_id = $comp_id DESC, c.component_id
			LIMIT 1`,
			map[string]any{"comp_id": componentID, "query_date": date})
		if err != nil {
			return nil, fmt.Errorf("point in time: %w", err)
		}
		return collectResults(rows), nil
	}

	rows, err := r.client.Read(ctx, `
		MATCH (:Norm)-[:HAS_COMPONENT]->(top:Component)
		MATCH (top)-[:HAS_CHILD*0..]->(c:Component)
		MATCH (c)-[:HAS_VERSION]->(v:CTV)
		WHERE v.date_start <= $query_date
		  AND (v.date_end IS NULL OR v.date_end > $query_date)
		  AND coalesce(v.is_repealed, false) = false
		OPTIONAL MATCH (v)-[:EXPRESSED_IN]->(:CLV)-[:HAS_TEXT]->(t:TextUnit)
		RETURN c.component_id AS component_id,
		       c.component_type AS component_type,
		       t.full_text AS text,
		       v.version_number AS version,
		       v.date_start AS date_start,
		       v.date_end AS date_end,
		       v.is_active AS is_active,
		       v.is_original AS is_original,
		       v.amendment_number AS amendment_number
		ORDER BY c.component_id
		LIMIT $limit`,
		map[string]any{"query_date": date, "limit": topK})
	if err != nil {
		return nil, fmt.Errorf("point in time snapshot: %w", err)
	}
	return collectResults(rows), nil
}

// Provenance answers "which amendment changed what": by amendment number
// (each new version paired with the text it replaced), by component (full
// history, newest first), or neither (recent actions, newest first).
func (r *Retriever) Provenance(ctx context.Context, amendmentNumber int, componentID string, topK int) ([]domain.RetrievalResult, error) {
	switch {
	case amendmentNumber > 0:
		rows, err := r.client.Read(ctx, `
			MATCH (a:Action {amendment_number: $number})-[:RESULTED_IN]->(v:CTV)
			MATCH (c:Component {component_id: v.component_id})
			OPTIONAL MATCH (v)-[:EXPRESSED_IN]->(:CLV)-[:HAS_TEXT]->(t:TextUnit)
			OPTIONAL MATCH (v)-[:SUPERSEDES]->(prev:CTV)
			OPTIONAL MATCH (prev)-[:EXPRESSED_IN]->(:CLV)-[:HAS_TEXT]->(pt:TextUnit)
			RETURN c.component_id AS component_id,
			       c.component_type AS component_type,
			       t.full_text AS text,
			       v.version_number AS version,
			       v.date_start AS date_start,
			       v.date_end AS date_end,
			       v.is_active AS is_active,
			       v.amendment_number AS amendment_number,
			       a.amendment_date AS amendment_date,
			       a.description AS description,
			       pt.full_text AS previous_text,
			       prev.version_number AS previous_version
			ORDER BY v.created_by_action, c.component_id
			LIMIT $limit`,
			map[string]any{"number": amendmentNumber, "limit": topK})
		if err != nil {
			return nil, fmt.Errorf("provenance by amendment: %w", err)
		}
		return collectProvenance(rows, amendmentNumber), nil

	case componentID != "":
		rows, err := r.client.Read(ctx, `
			MATCH (c:Component {component_id: $comp_id})-[:HAS_VERSION]->(v:CTV)
			OPTIONAL MATCH (v)-[:EXPRESSED_IN]->(:CLV)-[:HAS_TEXT]->(t:TextUnit)
			OPTIONAL MATCH (v)-[:SUPERSEDES]->(prev:CTV)
			OPTIONAL MATCH (prev)-[:EXPRESSED_IN]->(:CLV)-[:HAS_TEXT]->(pt:TextUnit)
			OPTIONAL MATCH (a:Action)-[:RESULTED_IN]->(v)
			RETURN c.component_id AS component_id,
			       c.component_type AS component_type,
			       t.full_text AS text,
			       v.version_number AS version,
			       v.date_start AS date_start,
			       v.date_end AS date_end,
			       v.is_active AS is_active,
			       v.is_repealed AS is_repealed,
			       v.amendment_number AS amendment_number,
			       a.amendment_date AS amendment_date,
			       a.description AS description,
			       pt.full_text AS previous_text,
			       prev.version_number AS previous_version
			ORDER BY v.version_number DESC
			LIMIT $limit`,
			map[string]any{"comp_id": componentID, "limit": topK})
		if err != nil {
			return nil, fmt.Errorf("provenance by component: %w", err)
		}
		return collectProvenance(rows, 0), nil

	default:
		rows, err := r.client.Read(ctx, `
			MATCH (a:Action)-[:RESULTED_IN]->(v:CTV)
			MATCH (c:Component {component_id: v.component_id})
			OPTIONAL MATCH (v)-[:EXPRESSED_IN]->(:CLV)-[:HAS_TEXT]->(t:TextUnit)
			RETURN c.component_id AS component_id,
			       c.component_type AS component_type,
			       t.full_text AS text,
			       v.version_number AS version,
			       v.date_start AS date_start,
			       v.date_end AS date_end,
			       v.is_active AS is_active,
			       v.amendment_number AS amendment_number,
			       a.amendment_date AS amendment_date,
			       a.description AS description
			ORDER BY a.amendment_date DESC, c.component_id
			LIMIT $limit`,
			map[string]any{"limit": topK})
		if err != nil {
			return nil, fmt.Errorf("recent provenance: %w", err)
		}
		return collectProvenance(rows, 0), nil
	}
}

// VersionHistory returns every version of a component, newest first.
func (r *Retriever) VersionHistory(ctx context.Context, componentID string) ([]domain.HistoryEntry, error) {
	rows, err := r.client.Read(ctx, `
		MATCH (c:Component {component_id: $comp_id})-[:HAS_VERSION]->(v:CTV)
		OPTIONAL MATCH (v)-[:EXPRESSED_IN]->(:CLV)-[:HAS_TEXT]->(t:TextUnit)
		RETURN v.version_number AS version,
		       v.date_start AS date_start,
		       v.date_end AS date_end,
		       v.amendment_number AS amendment_number,
		       t.header AS text_header
		ORDER BY v.version_number DESC`,
		map[string]any{"comp_id": componentID})
	if err != nil {
		return nil, fmt.Errorf("version history: %w", err)
	}
	out := make([]domain.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.HistoryEntry{
			Version:         intVal(row, "version"),
			DateStart:       strVal(row, "date_start"),
			DateEnd:         strVal(row, "date_end"),
			AmendmentNumber: intVal(row, "amendment_number"),
			TextHeader:      strVal(row, "text_header"),
		})
	}
	return out, nil
}

// HierarchicalImpact lists the descendants of scope that were amended in
// [from, to], each with the amendment numbers responsible.
func (r *Retriever) HierarchicalImpact(ctx context.Context, scopeID, from, to string) ([]domain.ImpactedComponent, error) {
	if !domain.ValidDate(from) || !domain.ValidDate(to) {
		return nil, fmt.Errorf("hierarchical impact: range [%q, %q] is not YYYY-MM-DD", from, to)
	}
	rows, err := r.client.Read(ctx, `
		MATCH (scope:Component {component_id: $scope_id})
		MATCH (scope)-[:HAS_CHILD*0..]->(d:Component)
		MATCH (d)-[:HAS_VERSION]->(v:CTV)
		WHERE v.date_start >= $from AND v.date_start <= $to
		  AND v.created_by_action = 'amendment'
		MATCH (a:Action)-[:RESULTED_IN]->(v)
		WITH d, collect(DISTINCT a.amendment_number) AS amendments
		RETURN d.component_id AS component_id,
		       d.component_type AS component_type,
		       amendments
		ORDER BY component_id`,
		map[string]any{"scope_id": scopeID, "from": from, "to": to})
	if err != nil {
		return nil, fmt.Errorf("hierarchical impact: %w", err)
	}
	out := make([]domain.ImpactedComponent, 0, len(rows))
	for _, row := range rows {
		impact := domain.ImpactedComponent{
			ComponentID:   strVal(row, "component_id"),
			ComponentType: domain.ComponentType(strVal(row, "component_type")),
		}
		if list, ok := row["amendments"].([]any); ok {
			for _, n := range list {
				if num, ok := n.(int64); ok {
					impact.Amendments = append(impact.Amendments, int(num))
				}
			}
		}
		out = append(out, impact)
	}
	return out, nil
}

// semantic delegates to the external searcher when one is wired, otherwise
// falls back to an unranked keyword scan.
func (r *Retriever) semantic(ctx context.Context, plan domain.QueryPlan, asOf string) ([]domain.RetrievalResult, error) {
	query := plan.SemanticQuery
	if query == "" {
		query = plan.OriginalQuery
	}
	if r.searcher != nil {
		return r.searcher.Search(ctx, query, asOf, plan.Limit())
	}
	return r.keywordScan(ctx, query, asOf, plan.Limit())
}

// keywordScan is the built-in fallback: a case-insensitive ordered-keyword
// match over the versions valid at asOf (active versions when asOf is
// empty). It does not rank.
func (r *Retriever) keywordScan(ctx context.Context, query, asOf string, topK int) ([]domain.RetrievalResult, error) {
	keywords := strings.Fields(query)
	if len(keywords) > 3 {
		keywords = keywords[:3]
	}
	if len(keywords) == 0 {
		return nil, nil
	}
	escaped := make([]string, len(keywords))
	for i, k := range keywords {
		escaped[i] = regexp.QuoteMeta(k)
	}
	pattern := "(?i).*" + strings.Join(escaped, ".*") + ".*"

	validity := `v.is_active = true`
	params := map[string]any{"pattern": pattern, "limit": topK}
	if asOf != "" {
		validity = `v.date_start <= $as_of AND (v.date_end IS NULL OR v.date_end > $as_of)`
		params["as_of"] = asOf
	}

	rows, err := r.client.Read(ctx, fmt.Sprintf(`
		MATCH (c:Component)-[:HAS_VERSION]->(v:CTV)
		WHERE %s AND coalesce(v.is_repealed, false) = false
		MATCH (v)-[:EXPRESSED_IN]->(:CLV)-[:HAS_TEXT]->(t:TextUnit)
		WHERE t.full_text =~ $pattern
		RETURN c.component_id AS component_id,
		       c.component_type AS component_type,
		       t.full_text AS text,
		       v.version_number AS version,
		       v.date_start AS date_start,
		       v.date_end AS date_end,
		       v.is_active AS is_active,
		       v.amendment_number AS amendment_number
		ORDER BY c.component_id
		LIMIT $limit`, validity), params)
	if err != nil {
		return nil, fmt.Errorf("keyword scan: %w", err)
	}
	return collectResults(rows), nil
}

func collectResults(rows []map[string]any) []domain.RetrievalResult {
	out := make([]domain.RetrievalResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToResult(row))
	}
	return out
}

func collectProvenance(rows []map[string]any, amendmentNumber int) []domain.RetrievalResult {
	out := make([]domain.RetrievalResult, 0, len(rows))
	for _, row := range rows {
		res := rowToResult(row)
		number := amendmentNumber
		if number == 0 {
			number = intVal(row, "amendment_number")
		}
		if number > 0 || row["amendment_date"] != nil {
			res.Provenance = &domain.Provenance{
				AmendmentNumber: number,
				AmendmentDate:   strVal(row, "amendment_date"),
				Description:     strVal(row, "description"),
				PreviousText:    strVal(row, "previous_text"),
				PreviousVersion: intVal(row, "previous_version"),
			}
		}
		out = append(out, res)
	}
	return out
}

func rowToResult(row map[string]any) domain.RetrievalResult {
	return domain.RetrievalResult{
		ComponentID:   strVal(row, "component_id"),
		ComponentType: domain.ComponentType(strVal(row, "component_type")),
		Text:          strVal(row, "text"),
		VersionInfo: domain.VersionInfo{
			Version:         intVal(row, "version"),
			DateStart:       strVal(row, "date_start"),
			DateEnd:         strVal(row, "date_end"),
			IsActive:        boolVal(row, "is_active"),
			IsOriginal:      boolVal(row, "is_original"),
			IsRepealed:      boolVal(row, "is_repealed"),
			AmendmentNumber: intVal(row, "amendment_number"),
		},
	}
}

func strVal(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func intVal(row map[string]any, key string) int {
	v, ok := row[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func boolVal(row map[string]any, key string) bool {
	v, ok := row[key]
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}
