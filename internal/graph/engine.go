package graph

import (
	"context"
	"fmt"

	"github.com/yungbote/lexgraph/internal/domain"
	"github.com/yungbote/lexgraph/internal/platform/logger"
	"github.com/yungbote/lexgraph/internal/platform/neo4jdb"
)

// WriteStore is the write surface the loader and the engine need from the
// graph client.
type WriteStore interface {
	WriteTx(ctx context.Context, fn func(tx neo4jdb.Tx) error) error
}

// Engine applies amendments under the aggregation model. A changed leaf and
// its ancestors get new CTVs; every untouched sibling keeps its CTV and the
// new parent version references it by identity. One amendment runs inside
// one write transaction: any failure after the Action node leaves no
// half-applied state.
type Engine struct {
	client   WriteStore
	log      *logger.Logger
	language string
}

func NewEngine(client WriteStore, log *logger.Logger, language string) *Engine {
	if language == "" {
		language = "pt"
	}
	return &Engine{client: client, log: log.With("component", "TemporalEngine"), language: language}
}

// ApplyAmendment versions each changed leaf, propagates new versions up the
// ancestor chain deepest-first, and rebuilds each affected parent's
// AGGREGATES fan-out over the currently active child versions.
func (e *Engine) ApplyAmendment(ctx context.Context, a domain.Amendment) (domain.AmendmentStats, error) {
	var stats domain.AmendmentStats
	if err := a.Validate(); err != nil {
		return stats, err
	}

	log := e.log.With("amendment", a.Number, "date", a.Date)
	log.Info("applying amendment", "changes", len(a.Changes))

	err := e.client.WriteTx(ctx, func(tx neo4jdb.Tx) error {
		// The driver may retry the transaction function; every attempt
		// starts from zero or the counters double.
		stats = domain.AmendmentStats{}

		if err := e.checkChronology(tx, a); err != nil {
			return err
		}

		created, err := e.createAction(tx, a)
		if err != nil {
			return err
		}
		if !created {
			log.Warn("amendment already applied, skipping")
			stats.AlreadyApplied = true
			return nil
		}
		stats.ActionsCreated++

		touched := make([]string, 0, len(a.Changes))
		for _, change := range a.Changes {
			leaf, err := e.isLeaf(tx, change.ComponentID)
			if err != nil {
				return err
			}
			if !leaf {
				log.Warn("skipping change, component is not a leaf",
					"component_id", change.ComponentID,
					"change_type", change.ChangeType)
				stats.SkippedChanges++
				continue
			}
			ok, err := e.versionLeaf(tx, a, change, &stats)
			if err != nil {
				return err
			}
			if !ok {
				log.Warn("skipping change, component has no active version",
					"component_id", change.ComponentID,
					"change_type", change.ChangeType)
				stats.SkippedChanges++
				continue
			}
			touched = append(touched, change.ComponentID)
		}

		ancestors, err := e.affectedAncestors(tx, touched)
		if err != nil {
			return err
		}
		for _, ancestorID := range ancestors {
			if err := e.propagate(tx, a, ancestorID, &stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.AmendmentStats{}, fmt.Errorf("apply amendment %d: %w", a.Number, err)
	}

	log.Info("amendment applied",
		"new_ctvs", stats.NewCTVs,
		"closed_ctvs", stats.ClosedCTVs,
		"reused_ctvs", stats.ReusedCTVs,
		"new_aggregations", stats.NewAggregations,
		"skipped_changes", stats.SkippedChanges)
	return stats, nil
}

// checkChronology rejects amendments dated before any existing version.
func (e *Engine) checkChronology(tx neo4jdb.Tx, a domain.Amendment) error {
	rows, _, err := tx.Run(`MATCH (v:CTV) RETURN max(v.date_start) AS max_start`, nil)
	if err != nil {
		return fmt.Errorf("chronology check: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	maxStart := rowString(rows[0], "max_start")
	if maxStart != "" && a.Date < maxStart {
		return fmt.Errorf("%w: amendment date %s < latest version date %s", ErrOutOfOrder, a.Date, maxStart)
	}
	return nil
}

// createAction merges the Action node. A second application of the same
// amendment number merges onto the existing node and creates nothing, which
// is how duplicates are detected.
func (e *Engine) createAction(tx neo4jdb.Tx, a domain.Amendment) (bool, error) {
	_, sum, err := tx.Run(`
		MERGE (act:Action {action_id: $action_id})
		ON CREATE SET act.action_type = 'amendment',
		              act.amendment_number = $number,
		              act.amendment_date = $date,
		              act.description = $description,
		              act.affected_components = $affected,
		              act.created_at = datetime()`,
		map[string]any{
			"action_id":   a.ActionID(),
			"number":      a.Number,
			"date":        a.Date,
			"description": a.Description,
			"affected":    a.AffectedComponents(),
		})
	if err != nil {
		return false, fmt.Errorf("create action: %w", err)
	}
	return sum.NodesCreated > 0, nil
}

// isLeaf reports whether the component has no HAS_CHILD out-edge. Changes
// are only defined on leaves: a new version of an inner component must
// rebuild its fan-out, and only propagation does that. Unknown components
// count as leaves here and are caught by the active-version lookup.
func (e *Engine) isLeaf(tx neo4jdb.Tx, componentID string) (bool, error) {
	rows, _, err := tx.Run(`
		MATCH (c:Component {component_id: $component_id})
		OPTIONAL MATCH (c)-[:HAS_CHILD]->(ch:Component)
		RETURN count(ch) AS children`,
		map[string]any{"component_id": componentID})
	if err != nil {
		return false, fmt.Errorf("leaf check for %s: %w", componentID, err)
	}
	if len(rows) == 0 {
		return true, nil
	}
	return rowInt(rows[0], "children") == 0, nil
}

// activeVersion returns the component's single active CTV, or ok=false when
// the component is unknown or has no active version.
func (e *Engine) activeVersion(tx neo4jdb.Tx, componentID string) (ctvID string, version int, ok bool, err error) {
	rows, _, err := tx.Run(`
		MATCH (c:Component {component_id: $component_id})-[:HAS_VERSION]->(v:CTV {is_active: true})
		RETURN v.ctv_id AS ctv_id, v.version_number AS version
		LIMIT 1`,
		map[string]any{"component_id": componentID})
	if err != nil {
		return "", 0, false, fmt.Errorf("load active version of %s: %w", componentID, err)
	}
	if len(rows) == 0 {
		return "", 0, false, nil
	}
	return rowString(rows[0], "ctv_id"), rowInt(rows[0], "version"), true, nil
}

func (e *Engine) closeVersion(tx neo4jdb.Tx, ctvID, endDate string, stats *domain.AmendmentStats) error {
	_, _, err := tx.Run(`
		MATCH (v:CTV {ctv_id: $ctv_id})
		SET v.date_end = $end_date,
		    v.is_active = false`,
		map[string]any{"ctv_id": ctvID, "end_date": endDate})
	if err != nil {
		return fmt.Errorf("close version %s: %w", ctvID, err)
	}
	stats.ClosedCTVs++
	return nil
}

// versionLeaf handles one change: closes the active CTV, opens the
// successor, carries the new text, and wires SUPERSEDES and RESULTED_IN.
// Returns ok=false when the change must be skipped (unknown component or no
// active version), which is a warning, not a failure of the amendment.
func (e *Engine) versionLeaf(tx neo4jdb.Tx, a domain.Amendment, change domain.Change, stats *domain.AmendmentStats) (bool, error) {
	oldCTV, oldVersion, ok, err := e.activeVersion(tx, change.ComponentID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := e.closeVersion(tx, oldCTV, a.Date, stats); err != nil {
		return false, err
	}

	newVersion := oldVersion + 1
	newCTV := CTVID(change.ComponentID, newVersion)
	isRepeal := change.ChangeType == domain.ChangeRepeal

	_, _, err = tx.Run(`
		MATCH (c:Component {component_id: $component_id})
		MATCH (prev:CTV {ctv_id: $prev_ctv})
		CREATE (v:CTV {
			ctv_id: $ctv_id,
			component_id: $component_id,
			version_number: $version,
			date_start: $date_start,
			date_end: null,
			is_active: true,
			is_original: false,
			is_repealed: $is_repealed,
			created_by_action: 'amendment',
			amendment_number: $number,
			created_at: datetime()
		})
		CREATE (c)-[:HAS_VERSION]->(v)
		CREATE (v)-[:SUPERSEDES]->(prev)`,
		map[string]any{
			"component_id": change.ComponentID,
			"prev_ctv":     oldCTV,
			"ctv_id":       newCTV,
			"version":      newVersion,
			"date_start":   a.Date,
			"is_repealed":  isRepeal,
			"number":       a.Number,
		})
	if err != nil {
		return false, fmt.Errorf("create version %s: %w", newCTV, err)
	}
	stats.NewCTVs++

	// Repealed versions carry no expression; a repeal is the absence of
	// text from its start date on.
	if !isRepeal && change.NewContent != "" {
		clvID := CLVID(newCTV, e.language)
		_, _, err = tx.Run(`
			MATCH (v:CTV {ctv_id: $ctv_id})
			CREATE (lv:CLV {clv_id: $clv_id, ctv_id: $ctv_id, language: $language, created_at: datetime()})
			CREATE (t:TextUnit {
				text_id: $text_id,
				clv_id: $clv_id,
				content: $content,
				full_text: $content,
				char_count: $char_count,
				content_hash: $content_hash,
				created_at: datetime()
			})
			CREATE (v)-[:EXPRESSED_IN]->(lv)
			CREATE (lv)-[:HAS_TEXT]->(t)`,
			map[string]any{
				"ctv_id":       newCTV,
				"clv_id":       clvID,
				"text_id":      TextUnitID(clvID),
				"language":     e.language,
				"content":      change.NewContent,
				"char_count":   len([]rune(change.NewContent)),
				"content_hash": ContentHash(change.NewContent),
			})
		if err != nil {
			return false, fmt.Errorf("create expression for %s: %w", newCTV, err)
		}
	}

	if err := e.linkResultedIn(tx, a.ActionID(), newCTV, false); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) linkResultedIn(tx neo4jdb.Tx, actionID, ctvID string, propagated bool) error {
	_, _, err := tx.Run(`
		MATCH (act:Action {action_id: $action_id})
		MATCH (v:CTV {ctv_id: $ctv_id})
		MERGE (act)-[r:RESULTED_IN]->(v)
		ON CREATE SET r.propagated = $propagated`,
		map[string]any{"action_id": actionID, "ctv_id": ctvID, "propagated": propagated})
	if err != nil {
		return fmt.Errorf("link RESULTED_IN %s: %w", ctvID, err)
	}
	return nil
}

// affectedAncestors unions the ancestor chains of the touched components
// and orders them deepest-first, so every affected descendant of a parent
// is versioned before the parent rebuilds its fan-out. Directly touched
// components are excluded: they were already versioned.
func (e *Engine) affectedAncestors(tx neo4jdb.Tx, touched []string) ([]string, error) {
	if len(touched) == 0 {
		return nil, nil
	}
	rows, _, err := tx.Run(`
		UNWIND $ids AS cid
		MATCH (c:Component {component_id: cid})<-[:HAS_CHILD*]-(anc:Component)
		WITH DISTINCT anc
		WHERE NOT anc.component_id IN $ids
		OPTIONAL MATCH p = (anc)<-[:HAS_CHILD*]-(root:Component)
		WHERE NOT (:Component)-[:HAS_CHILD]->(root)
		RETURN anc.component_id AS component_id,
		       coalesce(max(length(p)), 0) AS depth
		ORDER BY depth DESC, component_id`,
		map[string]any{"ids": touched})
	if err != nil {
		return nil, fmt.Errorf("collect ancestors: %w", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowString(r, "component_id"))
	}
	return out, nil
}

// propagate opens a new version of an ancestor and rebuilds its AGGREGATES
// fan-out from the HAS_CHILD set. Children untouched by this amendment keep
// their existing CTVs and are referenced as-is; that reuse is the point of
// the aggregation model.
func (e *Engine) propagate(tx neo4jdb.Tx, a domain.Amendment, componentID string, stats *domain.AmendmentStats) error {
	oldCTV, oldVersion, ok, err := e.activeVersion(tx, componentID)
	if err != nil {
		return err
	}
	if !ok {
		// An ancestor without an active version breaks the single-active
		// invariant; the amendment cannot proceed.
		return fmt.Errorf("%w: ancestor %s", ErrNoActiveVersion, componentID)
	}

	if err := e.closeVersion(tx, oldCTV, a.Date, stats); err != nil {
		return err
	}

	newVersion := oldVersion + 1
	newCTV := CTVID(componentID, newVersion)

	_, _, err = tx.Run(`
		MATCH (c:Component {component_id: $component_id})
		MATCH (prev:CTV {ctv_id: $prev_ctv})
		CREATE (v:CTV {
			ctv_id: $ctv_id,
			component_id: $component_id,
			version_number: $version,
			date_start: $date_start,
			date_end: null,
			is_active: true,
			is_original: false,
			is_repealed: false,
			created_by_action: 'amendment_propagation',
			amendment_number: $number,
			created_at: datetime()
		})
		CREATE (c)-[:HAS_VERSION]->(v)
		CREATE (v)-[:SUPERSEDES]->(prev)`,
		map[string]any{
			"component_id": componentID,
			"prev_ctv":     oldCTV,
			"ctv_id":       newCTV,
			"version":      newVersion,
			"date_start":   a.Date,
			"number":       a.Number,
		})
	if err != nil {
		return fmt.Errorf("create propagated version %s: %w", newCTV, err)
	}
	stats.NewCTVs++

	// The ancestor's own wording did not change; copy its expression so
	// each CTV owns one.
	clvID := CLVID(newCTV, e.language)
	_, _, err = tx.Run(`
		MATCH (prev:CTV {ctv_id: $prev_ctv})-[:EXPRESSED_IN]->(pl:CLV)-[:HAS_TEXT]->(pt:TextUnit)
		MATCH (v:CTV {ctv_id: $ctv_id})
		CREATE (lv:CLV {clv_id: $clv_id, ctv_id: $ctv_id, language: pl.language, created_at: datetime()})
		CREATE (t:TextUnit {
			text_id: $text_id,
			clv_id: $clv_id,
			header: pt.header,
			content: pt.content,
			full_text: pt.full_text,
			char_count: pt.char_count,
			content_hash: pt.content_hash,
			created_at: datetime()
		})
		CREATE (v)-[:EXPRESSED_IN]->(lv)
		CREATE (lv)-[:HAS_TEXT]->(t)`,
		map[string]any{
			"prev_ctv": oldCTV,
			"ctv_id":   newCTV,
			"clv_id":   clvID,
			"text_id":  TextUnitID(clvID),
		})
	if err != nil {
		return fmt.Errorf("copy expression to %s: %w", newCTV, err)
	}

	// Fan-out over the active version of every HAS_CHILD child: brand-new
	// for children this amendment touched, untouched otherwise. Ordering
	// comes from the authoritative sibling_index on the Component.
	rows, _, err := tx.Run(`
		MATCH (v:CTV {ctv_id: $ctv_id})
		MATCH (pc:Component {component_id: $component_id})-[:HAS_CHILD]->(child:Component)
		MATCH (child)-[:HAS_VERSION]->(cv:CTV {is_active: true})
		CREATE (v)-[:AGGREGATES {ordering: coalesce(child.sibling_index, 0)}]->(cv)
		RETURN count(*) AS created,
		       sum(CASE WHEN cv.date_start < $date THEN 1 ELSE 0 END) AS reused`,
		map[string]any{
			"ctv_id":       newCTV,
			"component_id": componentID,
			"date":         a.Date,
		})
	if err != nil {
		return fmt.Errorf("rebuild fan-out of %s: %w", newCTV, err)
	}
	if len(rows) > 0 {
		stats.NewAggregations += rowInt(rows[0], "created")
		stats.ReusedCTVs += rowInt(rows[0], "reused")
	}

	return e.linkResultedIn(tx, a.ActionID(), newCTV, true)
}
