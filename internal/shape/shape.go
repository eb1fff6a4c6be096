// Package shape classifies attribute values into the fixed set of value
// shapes that drive display and editing. Classification is pure and total:
// every input, including malformed or schema-inconsistent values, maps to
// exactly one shape.
package shape

import "github.com/mesh-intelligence/catalog/pkg/types"

// Kind identifies a value shape.
type Kind int

// Value shape kinds.
const (
	KindUnset Kind = iota
	KindBoolean
	KindNumber
	KindHexColor
	KindRelatedSingle
	KindRelatedMulti
	KindPlainText
	KindStructured
)

var kindNames = map[Kind]string{
	KindUnset:         "unset",
	KindBoolean:       "boolean",
	KindNumber:        "number",
	KindHexColor:      "hex_color",
	KindRelatedSingle: "related_single",
	KindRelatedMulti:  "related_multi",
	KindPlainText:     "plain_text",
	KindStructured:    "structured",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Shape is the classified form of a value. The set of implementations is
// closed; switch on the concrete type or on Kind.
type Shape interface {
	Kind() Kind
	sealed()
}

// Unset is an absent or null value.
type Unset struct{}

// Boolean is a true/false value.
type Boolean struct{ Value bool }

// Number is a numeric value.
type Number struct{ Value float64 }

// HexColor is a "#RRGGBB" color code.
type HexColor struct{ Code string }

// RelatedSingle is one hydrated related entity.
type RelatedSingle struct{ Ref types.EntityRef }

// RelatedMulti is a non-empty ordered list of related entities.
type RelatedMulti struct{ Refs []types.EntityRef }

// PlainText is any other scalar, shown as text. Datetime marks text that the
// schema declares to be a timestamp.
type PlainText struct {
	Text     string
	Datetime bool
}

// Structured is an object-like value that is not a relation.
type Structured struct{ Value any }

func (Unset) Kind() Kind         { return KindUnset }
func (Boolean) Kind() Kind       { return KindBoolean }
func (Number) Kind() Kind        { return KindNumber }
func (HexColor) Kind() Kind      { return KindHexColor }
func (RelatedSingle) Kind() Kind { return KindRelatedSingle }
func (RelatedMulti) Kind() Kind  { return KindRelatedMulti }
func (PlainText) Kind() Kind     { return KindPlainText }
func (Structured) Kind() Kind    { return KindStructured }

func (Unset) sealed()         {}
func (Boolean) sealed()       {}
func (Number) sealed()        {}
func (HexColor) sealed()      {}
func (RelatedSingle) sealed() {}
func (RelatedMulti) sealed()  {}
func (PlainText) sealed()     {}
func (Structured) sealed()    {}
