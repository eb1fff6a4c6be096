package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalog/internal/shape"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

func TestRender(t *testing.T) {
	ocean := types.EntityRef{ID: "c1", Name: "ocean-row", EntityTypeID: "t-color", EntityTypeName: "color", Values: types.Values{"name": "Ocean", "hex": "#0077BE"}}
	beach := types.EntityRef{ID: "g1", Name: "Beach", EntityTypeID: "t-tag", EntityTypeName: "tag", Values: types.Values{"color": ocean}}
	plain := types.EntityRef{ID: "g2", Name: "Plain", EntityTypeID: "t-tag", EntityTypeName: "tag", Values: types.Values{}}

	tests := []struct {
		name string
		in   shape.Shape
		want Node
	}{
		{"unset", shape.Unset{}, Empty{}},
		{"boolean", shape.Boolean{Value: true}, YesNo{Value: true}},
		{"number", shape.Number{Value: 2.5}, Text{Value: "2.5"}},
		{"hex", shape.HexColor{Code: "#C2B280"}, Color{Hex: "#C2B280"}},
		{"datetime", shape.PlainText{Text: "2024-01-01T00:00:00.000Z", Datetime: true}, Text{Value: "2024-01-01T00:00:00.000Z", Datetime: true}},
		{"structured", shape.Structured{Value: map[string]any{"a": 1.0}}, Dump{JSON: "{\n  \"a\": 1\n}"}},
		{
			"color entity shows swatch and link",
			shape.RelatedSingle{Ref: ocean},
			Color{Hex: "#0077BE", Link: &Link{EntityID: "c1", Label: "Ocean"}},
		},
		{
			"tags are colorized through nested relations",
			shape.RelatedMulti{Refs: []types.EntityRef{beach, plain}},
			TagList{Tags: []Tag{
				{Link: Link{EntityID: "g1", Label: "Beach"}, Color: "#0077BE"},
				{Link: Link{EntityID: "g2", Label: "Plain"}},
			}},
		},
		{
			"single relation nests its values",
			shape.RelatedSingle{Ref: beach},
			Related{
				Link:     Link{EntityID: "g1", Label: "Beach"},
				TypeName: "tag",
				Rows: []Row{
					{Key: "color", Value: Color{Hex: "#0077BE", Link: &Link{EntityID: "c1", Label: "Ocean"}}},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestRenderTerminates(t *testing.T) {
	t.Run("cycle collapses to a link", func(t *testing.T) {
		a := types.EntityRef{ID: "a", Name: "A", EntityTypeName: "node", Values: types.Values{}}
		b := types.EntityRef{ID: "b", Name: "B", EntityTypeName: "node", Values: types.Values{"next": a}}
		a.Values["next"] = b

		n := Render(shape.RelatedSingle{Ref: a})
		ra, ok := n.(Related)
		require.True(t, ok)
		rb, ok := ra.Rows[0].Value.(Related)
		require.True(t, ok)
		assert.Equal(t, Link{EntityID: "a", Label: "A"}, rb.Rows[0].Value)
	})

	t.Run("siblings pointing at the same entity both expand", func(t *testing.T) {
		shared := types.EntityRef{ID: "s", Name: "S", EntityTypeName: "node", Values: types.Values{"n": 1.0}}
		root := types.EntityRef{ID: "r", Name: "R", EntityTypeName: "node", Values: types.Values{"left": shared, "right": shared}}
		n := Render(shape.RelatedSingle{Ref: root}).(Related)
		for _, row := range n.Rows {
			_, ok := row.Value.(Related)
			assert.True(t, ok, row.Key)
		}
	})

	t.Run("depth bound", func(t *testing.T) {
		ref := types.EntityRef{ID: "leaf", Name: "Leaf", EntityTypeName: "node", Values: types.Values{}}
		for i := 0; i < MaxDepth+3; i++ {
			ref = types.EntityRef{ID: string(rune('a' + i)), Name: "N", EntityTypeName: "node", Values: types.Values{"inner": ref}}
		}
		n := Render(shape.RelatedSingle{Ref: ref})
		depth := 0
		for {
			r, ok := n.(Related)
			if !ok {
				break
			}
			depth++
			n = r.Rows[0].Value
		}
		assert.Equal(t, MaxDepth, depth)
		_, isLink := n.(Link)
		assert.True(t, isLink)
	})
}

func TestRenderValue(t *testing.T) {
	assert.Equal(t, YesNo{Value: false}, RenderValue(false, ""))
	assert.Equal(t, Text{Value: "#0077BE"}, RenderValue("#0077BE", types.AttributeText))
	assert.Equal(t, Empty{}, RenderValue(nil, types.AttributeNumber))
}
