package rag

import (
	"testing"

	"github.com/yungbote/lexgraph/internal/domain"
)

func TestRowToResult(t *testing.T) {
	row := map[string]any{
		"component_id":     "tit_08_art_214_art_214",
		"component_type":   "article",
		"text":             "Art. 214. ...",
		"version":          int64(3),
		"date_start":       "2009-11-11",
		"date_end":         nil,
		"is_active":        true,
		"is_original":      false,
		"amendment_number": int64(59),
	}
	res := rowToResult(row)
	if res.ComponentID != "tit_08_art_214_art_214" {
		t.Errorf("component_id = %q", res.ComponentID)
	}
	if res.ComponentType != domain.TypeArticle {
		t.Errorf("component_type = %q", res.ComponentType)
	}
	if res.Text != "Art. 214. ..." {
		t.Errorf("text = %q", res.Text)
	}
	v := res.VersionInfo
	if v.Version != 3 || v.DateStart != "2009-11-11" || v.DateEnd != "" {
		t.Errorf("version info = %+v", v)
	}
	if !v.IsActive || v.IsOriginal || v.IsRepealed {
		t.Errorf("flags = %+v", v)
	}
	if v.AmendmentNumber != 59 {
		t.Errorf("amendment_number = %d", v.AmendmentNumber)
	}
}

func TestCollectProvenance(t *testing.T) {
	rows := []map[string]any{
		{
			"component_id":     "art_a",
			"component_type":   "article",
			"text":             "new text",
			"version":          int64(2),
			"amendment_number": int64(45),
			"amendment_date":   "2004-12-30",
			"description":      "judiciary reform",
			"previous_text":    "old text",
			"previous_version": int64(1),
		},
		{
			// An original version has no producing action.
			"component_id":   "art_b",
			"component_type": "article",
			"text":           "untouched",
			"version":        int64(1),
		},
	}

	out := collectProvenance(rows, 0)
	if len(out) != 2 {
		t.Fatalf("results = %d, want 2", len(out))
	}

	p := out[0].Provenance
	if p == nil {
		t.Fatalf("amended row missing provenance")
	}
	if p.AmendmentNumber != 45 || p.AmendmentDate != "2004-12-30" {
		t.Errorf("provenance = %+v", p)
	}
	if p.PreviousText != "old text" || p.PreviousVersion != 1 {
		t.Errorf("previous state = %+v", p)
	}

	if out[1].Provenance != nil {
		t.Errorf("original row grew provenance: %+v", out[1].Provenance)
	}
}

func TestCollectProvenanceExplicitNumber(t *testing.T) {
	rows := []map[string]any{{
		"component_id":   "art_a",
		"component_type": "article",
		"version":        int64(2),
		"amendment_date": "2004-12-30",
	}}
	out := collectProvenance(rows, 45)
	if out[0].Provenance == nil || out[0].Provenance.AmendmentNumber != 45 {
		t.Fatalf("explicit amendment number not applied: %+v", out[0].Provenance)
	}
}

func TestValueCoercions(t *testing.T) {
	row := map[string]any{
		"s":  "x",
		"i":  int64(7),
		"f":  float64(7),
		"b":  true,
		"nl": nil,
	}
	if strVal(row, "s") != "x" || strVal(row, "nl") != "" || strVal(row, "gone") != "" {
		t.Errorf("strVal wrong")
	}
	if intVal(row, "i") != 7 || intVal(row, "f") != 7 || intVal(row, "nl") != 0 {
		t.Errorf("intVal wrong")
	}
	if !boolVal(row, "b") || boolVal(row, "nl") {
		t.Errorf("boolVal wrong")
	}
}
