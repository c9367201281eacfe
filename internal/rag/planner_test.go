package rag

import (
	"testing"

	"github.com/yungbote/lexgraph/internal/domain"
)

func TestPlannerClassification(t *testing.T) {
	p := NewPlanner()

	cases := []struct {
		name      string
		query     string
		kind      domain.QueryKind
		date      string
		component string
		amendment int
	}{
		{
			name:      "point in time pt",
			query:     "o que dizia o art. 7 em 1995?",
			kind:      domain.QueryPointInTime,
			date:      "1995-07-01",
			component: "art_7",
		},
		{
			name:      "point in time en",
			query:     "what did article 214 say in 2005?",
			kind:      domain.QueryPointInTime,
			date:      "2005-07-01",
			component: "art_214",
		},
		{
			name:  "date only is hybrid",
			query: "como era a constituição em 2004?",
			kind:  domain.QueryHybrid,
			date:  "2004-07-01",
		},
		{
			name:      "provenance cue",
			query:     "qual emenda alterou o artigo 214?",
			kind:      domain.QueryProvenance,
			component: "art_214",
		},
		{
			name:      "amendment number",
			query:     "emenda constitucional 45",
			kind:      domain.QueryProvenance,
			amendment: 45,
		},
		{
			name:      "history cue",
			query:     "histórico do artigo 6",
			kind:      domain.QueryProvenance,
			component: "art_6",
		},
		{
			name:  "no cues is semantic",
			query: "direitos sociais dos trabalhadores",
			kind:  domain.QuerySemantic,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := p.Plan(tc.query)
			if plan.Kind != tc.kind {
				t.Fatalf("kind = %q, want %q", plan.Kind, tc.kind)
			}
			if plan.TargetDate != tc.date {
				t.Errorf("date = %q, want %q", plan.TargetDate, tc.date)
			}
			if plan.TargetComponent != tc.component {
				t.Errorf("component = %q, want %q", plan.TargetComponent, tc.component)
			}
			if plan.AmendmentNumber != tc.amendment {
				t.Errorf("amendment = %d, want %d", plan.AmendmentNumber, tc.amendment)
			}
			if plan.OriginalQuery != tc.query {
				t.Errorf("original query not preserved")
			}
		})
	}
}

func TestPlannerFullDate(t *testing.T) {
	p := NewPlanner()
	plan := p.Plan("texto do art. 92 em 30/12/2004")
	if plan.TargetDate != "2004-12-30" {
		t.Fatalf("date = %q, want 2004-12-30", plan.TargetDate)
	}
	if plan.Kind != domain.QueryPointInTime {
		t.Errorf("kind = %q, want point_in_time", plan.Kind)
	}
}

func TestPlannerRejectsImpossibleFullDate(t *testing.T) {
	p := NewPlanner()
	// 45/13/2004 is not a calendar date, so only the year reference counts.
	plan := p.Plan("em 2004")
	if plan.TargetDate != "2004-07-01" {
		t.Fatalf("date = %q, want 2004-07-01", plan.TargetDate)
	}
}

func TestPlannerStripsDatesFromSemanticQuery(t *testing.T) {
	p := NewPlanner()
	plan := p.Plan("educação em 1995")
	if plan.SemanticQuery != "educação" {
		t.Errorf("semantic query = %q, want %q", plan.SemanticQuery, "educação")
	}
}
