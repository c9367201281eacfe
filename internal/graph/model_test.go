package graph

import "testing"

func TestDeterministicIDs(t *testing.T) {
	ctv := CTVID("tit_08_art_214_art_214", 3)
	if ctv != "tit_08_art_214_art_214_v3" {
		t.Errorf("CTVID = %q", ctv)
	}
	clv := CLVID(ctv, "pt")
	if clv != "tit_08_art_214_art_214_v3_pt" {
		t.Errorf("CLVID = %q", clv)
	}
	if got := TextUnitID(clv); got != "tit_08_art_214_art_214_v3_pt_text" {
		t.Errorf("TextUnitID = %q", got)
	}
}

func TestContentHash(t *testing.T) {
	h1 := ContentHash("Art. 1º A República...")
	h2 := ContentHash("Art. 1º A República...")
	h3 := ContentHash("Art. 2º ...")

	if len(h1) != 16 {
		t.Errorf("hash length = %d, want 16", len(h1))
	}
	if h1 != h2 {
		t.Errorf("hash not stable: %q vs %q", h1, h2)
	}
	if h1 == h3 {
		t.Errorf("different texts hash equal")
	}
}

func TestRowCoercions(t *testing.T) {
	row := map[string]any{
		"s":    "hello",
		"i":    int64(42),
		"b":    true,
		"null": nil,
	}
	if rowString(row, "s") != "hello" || rowString(row, "null") != "" || rowString(row, "missing") != "" {
		t.Errorf("rowString wrong")
	}
	if rowInt(row, "i") != 42 || rowInt(row, "null") != 0 {
		t.Errorf("rowInt wrong")
	}
	if !rowBool(row, "b") || rowBool(row, "null") {
		t.Errorf("rowBool wrong")
	}
}
