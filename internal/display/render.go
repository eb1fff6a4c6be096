// Package display turns classified values into a presentation tree. Render
// is pure; Format draws a tree for a terminal.
package display

import (
	"encoding/json"
	"sort"

	"github.com/mesh-intelligence/catalog/internal/relation"
	"github.com/mesh-intelligence/catalog/internal/shape"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Node is an element of the presentation tree.
type Node interface {
	node()
}

// Empty marks an absent value.
type Empty struct{}

// Text is literal text. Datetime marks a timestamp.
type Text struct {
	Value    string
	Datetime bool
}

// YesNo is a boolean indicator.
type YesNo struct{ Value bool }

// Link points at another entity.
type Link struct {
	EntityID string
	Label    string
}

// Color is a swatch with its code. Link is set when the color is an entity.
type Color struct {
	Hex  string
	Link *Link
}

// Tag is one member of a multi relation. Color is empty when none resolves.
type Tag struct {
	Link
	Color string
}

// TagList is a multi relation shown inline.
type TagList struct{ Tags []Tag }

// Row is one attribute of a nested entity.
type Row struct {
	Key   string
	Value Node
}

// Related is a single relation with the related entity's own values.
type Related struct {
	Link     Link
	TypeName string
	Rows     []Row
}

// Dump is a structured value shown as indented JSON.
type Dump struct{ JSON string }

func (Empty) node()   {}
func (Text) node()    {}
func (YesNo) node()   {}
func (Link) node()    {}
func (Color) node()   {}
func (TagList) node() {}
func (Related) node() {}
func (Dump) node()    {}

// MaxDepth bounds nested entity tables. Deeper relations, and relations back
// to an entity already being shown, collapse to a link.
const MaxDepth = relation.MaxDepth

// Render builds the presentation of s.
func Render(s shape.Shape) Node {
	return render(s, 0, map[string]bool{})
}

// RenderValue classifies value against declared and renders it.
func RenderValue(value any, declared types.AttributeType) Node {
	return Render(shape.Classify(value, declared))
}

func render(s shape.Shape, depth int, path map[string]bool) Node {
	switch v := s.(type) {
	case shape.Boolean:
		return YesNo{Value: v.Value}
	case shape.Number:
		return Text{Value: shape.Stringify(v.Value)}
	case shape.HexColor:
		return Color{Hex: v.Code}
	case shape.PlainText:
		return Text{Value: v.Text, Datetime: v.Datetime}
	case shape.RelatedMulti:
		tags := make([]Tag, len(v.Refs))
		for i, r := range v.Refs {
			tags[i] = Tag{Link: linkOf(r)}
			if hex, ok := relation.ResolveColor(r); ok {
				tags[i].Color = hex
			}
		}
		return TagList{Tags: tags}
	case shape.RelatedSingle:
		return renderRelated(v.Ref, depth, path)
	case shape.Structured:
		b, err := json.MarshalIndent(v.Value, "", "  ")
		if err != nil {
			return Text{Value: shape.Stringify(v.Value)}
		}
		return Dump{JSON: string(b)}
	}
	return Empty{}
}

func renderRelated(ref types.EntityRef, depth int, path map[string]bool) Node {
	link := linkOf(ref)
	if ref.EntityTypeName == relation.ColorTypeName {
		if hex, ok := ref.Values["hex"].(string); ok && hex != "" {
			return Color{Hex: hex, Link: &link}
		}
	}
	if depth >= MaxDepth || path[ref.ID] {
		return link
	}
	path[ref.ID] = true
	defer delete(path, ref.ID)

	keys := make([]string, 0, len(ref.Values))
	for k := range ref.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]Row, len(keys))
	for i, k := range keys {
		rows[i] = Row{Key: k, Value: render(shape.Classify(ref.Values[k], ""), depth+1, path)}
	}
	return Related{Link: link, TypeName: ref.EntityTypeName, Rows: rows}
}

func linkOf(r types.EntityRef) Link {
	return Link{EntityID: r.ID, Label: r.Label()}
}
