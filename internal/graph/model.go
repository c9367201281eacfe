// Package graph implements the versioned-graph core: schema setup, the
// initial document load, the amendment-propagation engine and the invariant
// verifier. The graph follows an FRBR/LRMoo-inspired model: Component is
// abstract identity, CTV its temporal versions, CLV the language binding
// and TextUnit the text carrier; Action records causality.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Node labels.
const (
	LabelNorm      = "Norm"
	LabelComponent = "Component"
	LabelCTV       = "CTV"
	LabelCLV       = "CLV"
	LabelTextUnit  = "TextUnit"
	LabelAction    = "Action"
)

// Deterministic node ids. Component ids encode the hierarchical path and
// come from the parser; everything below hangs off them.

func CTVID(componentID string, version int) string {
	return fmt.Sprintf("%s_v%d", componentID, version)
}

func CLVID(ctvID, language string) string {
	return fmt.Sprintf("%s_%s", ctvID, language)
}

func TextUnitID(clvID string) string {
	return fmt.Sprintf("%s_text", clvID)
}

// ContentHash returns a short stable digest of the text, stored on
// TextUnits for dedup checks downstream.
func ContentHash(fullText string) string {
	sum := sha256.Sum256([]byte(fullText))
	return hex.EncodeToString(sum[:])[:16]
}
