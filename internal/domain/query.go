package domain

import "fmt"

// QueryKind tags the QueryPlan variant.
type QueryKind string

const (
	QueryPointInTime QueryKind = "point_in_time"
	QueryProvenance  QueryKind = "provenance"
	QuerySemantic    QueryKind = "semantic"
	QueryHybrid      QueryKind = "hybrid"
)

// QueryPlan is the classified query handed to the retriever. Point-in-time
// and provenance plans are resolved by graph traversal alone; semantic and
// hybrid plans are narrowed temporally and then delegated to an external
// text-search collaborator.
type QueryPlan struct {
	Kind            QueryKind `json:"kind"`
	OriginalQuery   string    `json:"original_query,omitempty"`
	TargetDate      string    `json:"target_date,omitempty"`
	TargetComponent string    `json:"target_component,omitempty"`
	AmendmentNumber int       `json:"amendment_number,omitempty"`
	SemanticQuery   string    `json:"semantic_query,omitempty"`
	TopK            int       `json:"top_k,omitempty"`
}

func (p QueryPlan) Validate() error {
	switch p.Kind {
	case QueryPointInTime:
		if p.TargetDate != "" && !ValidDate(p.TargetDate) {
			return fmt.Errorf("query plan: target_date %q is not YYYY-MM-DD", p.TargetDate)
		}
	case QueryProvenance, QuerySemantic, QueryHybrid:
	default:
		return fmt.Errorf("query plan: unknown kind %q", p.Kind)
	}
	return nil
}

// Limit returns top_k with the retriever default applied.
func (p QueryPlan) Limit() int {
	if p.TopK > 0 {
		return p.TopK
	}
	return 10
}

// VersionInfo describes the temporal placement of one retrieved CTV.
type VersionInfo struct {
	Version         int    `json:"version"`
	DateStart       string `json:"date_start"`
	DateEnd         string `json:"date_end,omitempty"`
	IsActive        bool   `json:"is_active"`
	IsOriginal      bool   `json:"is_original,omitempty"`
	IsRepealed      bool   `json:"is_repealed,omitempty"`
	AmendmentNumber int    `json:"amendment_number,omitempty"`
}

// Provenance attributes a retrieved version to the amendment that produced
// it, including the superseded text for diffing.
type Provenance struct {
	AmendmentNumber int    `json:"amendment_number"`
	AmendmentDate   string `json:"amendment_date"`
	Description     string `json:"description,omitempty"`
	PreviousText    string `json:"previous_text,omitempty"`
	PreviousVersion int    `json:"previous_version,omitempty"`
}

// RetrievalResult is one row of retriever output.
type RetrievalResult struct {
	ComponentID   string        `json:"component_id"`
	ComponentType ComponentType `json:"component_type"`
	Text          string        `json:"text,omitempty"`
	VersionInfo   VersionInfo   `json:"version_info"`
	Provenance    *Provenance   `json:"provenance,omitempty"`
}

// HistoryEntry is one row of a component's version history.
type HistoryEntry struct {
	Version         int    `json:"version"`
	DateStart       string `json:"date_start"`
	DateEnd         string `json:"date_end,omitempty"`
	AmendmentNumber int    `json:"amendment_number,omitempty"`
	TextHeader      string `json:"text_header,omitempty"`
}

// ImpactedComponent is one row of a hierarchical impact query: a descendant
// changed inside the date range, with the actions responsible.
type ImpactedComponent struct {
	ComponentID   string        `json:"component_id"`
	ComponentType ComponentType `json:"component_type"`
	Amendments    []int         `json:"amendments"`
}
