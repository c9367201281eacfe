// Package domain holds the data contracts shared by the loader, the
// temporal engine, the retriever and the outer surfaces: the parsed
// document tree, amendment records, query plans and retrieval results.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ComponentType enumerates the structural levels of a norm.
type ComponentType string

const (
	TypeNorm       ComponentType = "norm"
	TypeTitle      ComponentType = "title"
	TypeChapter    ComponentType = "chapter"
	TypeSection    ComponentType = "section"
	TypeSubsection ComponentType = "subsection"
	TypeArticle    ComponentType = "article"
	TypeParagraph  ComponentType = "paragraph"
	TypeItem       ComponentType = "item"
	TypeLetter     ComponentType = "letter"
)

// StructuralTypes are the connector levels that may carry a header but no
// body text of their own.
var StructuralTypes = map[ComponentType]bool{
	TypeTitle:      true,
	TypeChapter:    true,
	TypeSection:    true,
	TypeSubsection: true,
}

func (t ComponentType) IsStructural() bool {
	return StructuralTypes[t]
}

// ComponentEvent is an amendment marker observed by the parser on the
// original text ("(Redação dada pela EC nº 45)" style annotations).
type ComponentEvent struct {
	EventType       string `json:"event_type,omitempty"`
	AmendmentNumber int    `json:"amendment_number,omitempty"`
}

// ParsedComponent is one node of the parsed document tree produced by the
// structural parser.
type ParsedComponent struct {
	ComponentID   string             `json:"component_id"`
	ComponentType ComponentType      `json:"component_type"`
	OrderingID    string             `json:"ordering_id"`
	Header        string             `json:"header,omitempty"`
	Content       string             `json:"content,omitempty"`
	FullText      string             `json:"full_text,omitempty"`
	IsOriginal    *bool              `json:"is_original,omitempty"`
	Events        []ComponentEvent   `json:"events,omitempty"`
	Children      []*ParsedComponent `json:"children,omitempty"`
}

// Original reports the parser's is_original flag, defaulting to true.
func (c *ParsedComponent) Original() bool {
	if c.IsOriginal == nil {
		return true
	}
	return *c.IsOriginal
}

// HasText reports whether this component carries its own text body.
// Structural connectors usually carry only a header.
func (c *ParsedComponent) HasText() bool {
	return strings.TrimSpace(c.FullText) != ""
}

// DocumentTree is the initial-load input: the norm identity plus the parsed
// component hierarchy.
type DocumentTree struct {
	OfficialID    string             `json:"official_id"`
	Name          string             `json:"name"`
	EnactmentDate string             `json:"enactment_date"`
	Components    []*ParsedComponent `json:"components"`
}

// ParseDocumentTree decodes and validates the loader input JSON.
func ParseDocumentTree(raw []byte) (*DocumentTree, error) {
	var tree DocumentTree
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("document tree: decode: %w", err)
	}
	if strings.TrimSpace(tree.OfficialID) == "" {
		return nil, fmt.Errorf("document tree: official_id is required")
	}
	if !ValidDate(tree.EnactmentDate) {
		return nil, fmt.Errorf("document tree: enactment_date %q is not YYYY-MM-DD", tree.EnactmentDate)
	}
	if len(tree.Components) == 0 {
		return nil, fmt.Errorf("document tree: no components")
	}
	var walk func(c *ParsedComponent) error
	walk = func(c *ParsedComponent) error {
		if c == nil {
			return fmt.Errorf("document tree: nil component")
		}
		if strings.TrimSpace(c.ComponentID) == "" {
			return fmt.Errorf("document tree: component without component_id (type %q)", c.ComponentType)
		}
		if c.ComponentType == "" {
			return fmt.Errorf("document tree: component %s without component_type", c.ComponentID)
		}
		for _, child := range c.Children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range tree.Components {
		if err := walk(c); err != nil {
			return nil, err
		}
	}
	return &tree, nil
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD date. Dates are
// kept as ISO strings throughout; lexical order equals chronological order.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
