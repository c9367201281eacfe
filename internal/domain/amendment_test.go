package domain

import "testing"

func validAmendment() Amendment {
	return Amendment{
		Number: 45,
		Date:   "2004-12-30",
		Changes: []Change{
			{ComponentID: "tit_04_art_092_art_092", NewContent: "Art. 92 ...", ChangeType: ChangeModify},
		},
	}
}

func TestAmendmentValidate(t *testing.T) {
	if err := validAmendment().Validate(); err != nil {
		t.Fatalf("valid amendment rejected: %v", err)
	}

	a := validAmendment()
	a.Number = 0
	if err := a.Validate(); err == nil {
		t.Errorf("zero number accepted")
	}

	a = validAmendment()
	a.Date = "30/12/2004"
	if err := a.Validate(); err == nil {
		t.Errorf("bad date accepted")
	}

	a = validAmendment()
	a.Changes = nil
	if err := a.Validate(); err == nil {
		t.Errorf("empty changes accepted")
	}

	a = validAmendment()
	a.Changes[0].ChangeType = "rewrite"
	if err := a.Validate(); err == nil {
		t.Errorf("unknown change_type accepted")
	}

	a = validAmendment()
	a.Changes = append(a.Changes, a.Changes[0])
	if err := a.Validate(); err == nil {
		t.Errorf("duplicate change for one component accepted")
	}
}

func TestParseAmendment(t *testing.T) {
	raw := []byte(`{
		"number": 10,
		"date": "2000-01-01",
		"description": "changes article A",
		"changes": [
			{"component_id": "art_a", "new_content": "Modified.", "change_type": "modify"},
			{"component_id": "art_b", "new_content": "", "change_type": "repeal"}
		]
	}`)
	a, err := ParseAmendment(raw)
	if err != nil {
		t.Fatalf("ParseAmendment: %v", err)
	}
	if a.ActionID() != "ec_10" {
		t.Errorf("ActionID = %q, want ec_10", a.ActionID())
	}
	affected := a.AffectedComponents()
	if len(affected) != 2 || affected[0] != "art_a" || affected[1] != "art_b" {
		t.Errorf("AffectedComponents = %v", affected)
	}
}

func TestSortAmendments(t *testing.T) {
	batch := []Amendment{
		{Number: 3, Date: "2005-01-01", Changes: []Change{{ComponentID: "x", ChangeType: ChangeModify}}},
		{Number: 2, Date: "2001-06-15", Changes: []Change{{ComponentID: "x", ChangeType: ChangeModify}}},
		{Number: 5, Date: "2001-06-15", Changes: []Change{{ComponentID: "x", ChangeType: ChangeModify}}},
		{Number: 1, Date: "1992-03-01", Changes: []Change{{ComponentID: "x", ChangeType: ChangeModify}}},
	}
	SortAmendments(batch)

	wantOrder := []int{1, 2, 5, 3}
	for i, want := range wantOrder {
		if batch[i].Number != want {
			t.Fatalf("position %d = amendment %d, want %d", i, batch[i].Number, want)
		}
	}
	for i := 1; i < len(batch); i++ {
		if batch[i-1].Date > batch[i].Date {
			t.Fatalf("dates out of order: %s after %s", batch[i].Date, batch[i-1].Date)
		}
	}
}

func TestQueryPlanValidateAndLimit(t *testing.T) {
	plan := QueryPlan{Kind: QueryPointInTime, TargetDate: "2015-07-01"}
	if err := plan.Validate(); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}
	if plan.Limit() != 10 {
		t.Errorf("default limit = %d, want 10", plan.Limit())
	}

	plan.TopK = 3
	if plan.Limit() != 3 {
		t.Errorf("limit = %d, want 3", plan.Limit())
	}

	plan.TargetDate = "July 2015"
	if err := plan.Validate(); err == nil {
		t.Errorf("bad target_date accepted")
	}

	if err := (QueryPlan{Kind: "keyword"}).Validate(); err == nil {
		t.Errorf("unknown kind accepted")
	}
}
