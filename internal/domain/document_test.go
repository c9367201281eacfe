package domain

import "testing"

func TestParseDocumentTree(t *testing.T) {
	raw := []byte(`{
		"official_id": "CF1988",
		"name": "Constituição da República Federativa do Brasil",
		"enactment_date": "1988-10-05",
		"components": [
			{
				"component_id": "tit_01",
				"component_type": "title",
				"ordering_id": "01",
				"header": "TÍTULO I",
				"children": [
					{
						"component_id": "tit_01_art_001_art_001",
						"component_type": "article",
						"ordering_id": "001",
						"full_text": "Art. 1º ...",
						"content": "Art. 1º ..."
					}
				]
			}
		]
	}`)

	tree, err := ParseDocumentTree(raw)
	if err != nil {
		t.Fatalf("ParseDocumentTree: %v", err)
	}
	if tree.OfficialID != "CF1988" {
		t.Errorf("official_id = %q, want CF1988", tree.OfficialID)
	}
	if len(tree.Components) != 1 {
		t.Fatalf("components = %d, want 1", len(tree.Components))
	}
	title := tree.Components[0]
	if !title.ComponentType.IsStructural() {
		t.Errorf("title should be structural")
	}
	if title.HasText() {
		t.Errorf("title has no full_text, HasText should be false")
	}
	if len(title.Children) != 1 || !title.Children[0].HasText() {
		t.Errorf("article child should be text-bearing")
	}
	if !title.Original() {
		t.Errorf("is_original defaults to true")
	}
}

func TestParseDocumentTreeRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"missing official_id", `{"enactment_date":"1988-10-05","components":[{"component_id":"a","component_type":"article"}]}`},
		{"bad date", `{"official_id":"X","enactment_date":"05/10/1988","components":[{"component_id":"a","component_type":"article"}]}`},
		{"no components", `{"official_id":"X","enactment_date":"1988-10-05","components":[]}`},
		{"component without id", `{"official_id":"X","enactment_date":"1988-10-05","components":[{"component_type":"article"}]}`},
		{"child without type", `{"official_id":"X","enactment_date":"1988-10-05","components":[{"component_id":"a","component_type":"title","children":[{"component_id":"b"}]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseDocumentTree([]byte(tc.raw)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidDate(t *testing.T) {
	valid := []string{"1988-10-05", "2001-01-01", "2024-02-29"}
	for _, d := range valid {
		if !ValidDate(d) {
			t.Errorf("ValidDate(%q) = false, want true", d)
		}
	}
	invalid := []string{"", "1988-13-01", "1988-10-5", "05/10/1988", "1988-10-05T00:00:00Z", "2023-02-29"}
	for _, d := range invalid {
		if ValidDate(d) {
			t.Errorf("ValidDate(%q) = true, want false", d)
		}
	}
}

func TestDateStringsOrderChronologically(t *testing.T) {
	// The whole store relies on ISO date strings comparing lexically in
	// chronological order.
	pairs := [][2]string{
		{"1988-10-05", "2000-01-01"},
		{"2000-01-01", "2000-01-02"},
		{"1999-12-31", "2000-01-01"},
	}
	for _, p := range pairs {
		if !(p[0] < p[1]) {
			t.Errorf("%q should sort before %q", p[0], p[1])
		}
	}
}
