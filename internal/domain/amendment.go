package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ChangeType enumerates what an amendment does to one component.
type ChangeType string

const (
	ChangeModify ChangeType = "modify"
	ChangeAdd    ChangeType = "add"
	ChangeRepeal ChangeType = "repeal"
)

func (t ChangeType) Valid() bool {
	switch t {
	case ChangeModify, ChangeAdd, ChangeRepeal:
		return true
	}
	return false
}

// Change is one component-level edit within an amendment.
type Change struct {
	ComponentID string     `json:"component_id"`
	NewContent  string     `json:"new_content"`
	ChangeType  ChangeType `json:"change_type"`
}

// Amendment is the apply-amendment input record produced by the amendment
// parser.
type Amendment struct {
	Number      int      `json:"number"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Changes     []Change `json:"changes"`
}

// ActionID returns the deterministic Action node id for this amendment.
func (a Amendment) ActionID() string {
	return fmt.Sprintf("ec_%d", a.Number)
}

// AffectedComponents lists the component ids this amendment touches
// directly, in change order.
func (a Amendment) AffectedComponents() []string {
	out := make([]string, 0, len(a.Changes))
	for _, c := range a.Changes {
		out = append(out, c.ComponentID)
	}
	return out
}

// Validate checks the amendment record shape. Two changes targeting the
// same component within one amendment are rejected outright: the engine's
// propagation order gives them no defined meaning.
func (a Amendment) Validate() error {
	if a.Number <= 0 {
		return fmt.Errorf("amendment: number must be positive, got %d", a.Number)
	}
	if !ValidDate(a.Date) {
		return fmt.Errorf("amendment %d: date %q is not YYYY-MM-DD", a.Number, a.Date)
	}
	if len(a.Changes) == 0 {
		return fmt.Errorf("amendment %d: no changes", a.Number)
	}
	seen := make(map[string]bool, len(a.Changes))
	for i, ch := range a.Changes {
		if strings.TrimSpace(ch.ComponentID) == "" {
			return fmt.Errorf("amendment %d: change %d has no component_id", a.Number, i)
		}
		if !ch.ChangeType.Valid() {
			return fmt.Errorf("amendment %d: change %d has unknown change_type %q", a.Number, i, ch.ChangeType)
		}
		if seen[ch.ComponentID] {
			return fmt.Errorf("amendment %d: duplicate change for component %s", a.Number, ch.ComponentID)
		}
		seen[ch.ComponentID] = true
	}
	return nil
}

// ParseAmendment decodes and validates one amendment JSON record.
func ParseAmendment(raw []byte) (Amendment, error) {
	var a Amendment
	if err := json.Unmarshal(raw, &a); err != nil {
		return Amendment{}, fmt.Errorf("amendment: decode: %w", err)
	}
	if err := a.Validate(); err != nil {
		return Amendment{}, err
	}
	return a, nil
}

// SortAmendments orders a batch chronologically by date, breaking ties by
// amendment number. Amendments must be applied in non-decreasing date
// order.
func SortAmendments(batch []Amendment) {
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].Date != batch[j].Date {
			return batch[i].Date < batch[j].Date
		}
		return batch[i].Number < batch[j].Number
	})
}

// AmendmentStats reports what one applied amendment did to the graph.
type AmendmentStats struct {
	NewCTVs         int  `json:"new_ctvs"`
	ClosedCTVs      int  `json:"closed_ctvs"`
	ReusedCTVs      int  `json:"reused_ctvs"`
	NewAggregations int  `json:"new_aggregations"`
	ActionsCreated  int  `json:"actions_created"`
	SkippedChanges  int  `json:"skipped_changes"`
	AlreadyApplied  bool `json:"already_applied,omitempty"`
}

// LoadStats reports what the initial load created.
type LoadStats struct {
	Norms         int `json:"norms"`
	Components    int `json:"components"`
	CTVs          int `json:"ctvs"`
	CLVs          int `json:"clvs"`
	TextUnits     int `json:"text_units"`
	Relationships int `json:"relationships"`
}

// BatchError records a single failed amendment within a batch run.
type BatchError struct {
	AmendmentNumber int    `json:"amendment_number"`
	Reason          string `json:"reason"`
}

// BatchReport is the apply-all result surface.
type BatchReport struct {
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Errors    []BatchError `json:"errors,omitempty"`
}
