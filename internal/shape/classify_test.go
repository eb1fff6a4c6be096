package shape

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

func colorRef(id, name, hex string) map[string]any {
	return map[string]any{
		"id":               id,
		"name":             name,
		"slug":             name,
		"entity_type_id":   "t-color",
		"entity_type_name": "color",
		"values":           map[string]any{"name": name, "hex": hex},
	}
}

func TestClassify(t *testing.T) {
	ocean := colorRef("c1", "Ocean", "#0077BE")
	sand := colorRef("c2", "Sand", "#C2B280")

	tests := []struct {
		name     string
		value    any
		declared types.AttributeType
		want     Shape
	}{
		{"nil is unset", nil, types.AttributeText, Unset{}},
		{"nil with unknown type", nil, "geo_point", Unset{}},
		{"text", "hello", types.AttributeText, PlainText{Text: "hello"}},
		{"textarea keeps hex-looking text", "#0077BE", types.AttributeTextarea, PlainText{Text: "#0077BE"}},
		{"number", 42.5, types.AttributeNumber, Number{Value: 42.5}},
		{"number from int", 7, types.AttributeNumber, Number{Value: 7}},
		{"number from numeric string", " 12 ", types.AttributeNumber, Number{Value: 12}},
		{"number declared but not numeric", "abc", types.AttributeNumber, PlainText{Text: "abc"}},
		{"boolean", true, types.AttributeBoolean, Boolean{Value: true}},
		{"boolean from string", "False", types.AttributeBoolean, Boolean{Value: false}},
		{"boolean declared but numeric", 1.0, types.AttributeBoolean, PlainText{Text: "1"}},
		{"hex", "#0077BE", types.AttributeHex, HexColor{Code: "#0077BE"}},
		{"hex declared but malformed", "#07B", types.AttributeHex, PlainText{Text: "#07B"}},
		{"datetime", "2024-01-02T03:04:05.000Z", types.AttributeDatetime, PlainText{Text: "2024-01-02T03:04:05.000Z", Datetime: true}},
		{"datetime declared but numeric", 5.0, types.AttributeDatetime, PlainText{Text: "5"}},
		{"no declared type boolean", false, "", Boolean{Value: false}},
		{"no declared type number", 3.0, "", Number{Value: 3}},
		{"no declared type json number", json.Number("4.25"), "", Number{Value: 4.25}},
		{"no declared type hex", "#c2b280", "", HexColor{Code: "#c2b280"}},
		{"no declared type text", "plain", "", PlainText{Text: "plain"}},
		{"unrecognized type sniffs", "#C2B280", "geo_point", HexColor{Code: "#C2B280"}},
		{"relation type with scalar sniffs", 9.0, types.AttributeRelation, Number{Value: 9}},
		{"json type sniffs boolean", true, types.AttributeJSON, Boolean{Value: true}},
		{"text declared but object", map[string]any{"a": 1.0}, types.AttributeText, Structured{Value: map[string]any{"a": 1.0}}},
		{"empty list is structured", []any{}, types.AttributeRelationMulti, Structured{Value: []any{}}},
		{"list of scalars is structured", []any{"a", "b"}, "", Structured{Value: []any{"a", "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.value, tt.declared))
		})
	}

	t.Run("related single regardless of declared type", func(t *testing.T) {
		for _, declared := range []types.AttributeType{types.AttributeRelation, types.AttributeText, types.AttributeNumber, "", "geo_point"} {
			got := Classify(ocean, declared)
			require.Equal(t, KindRelatedSingle, got.Kind(), "declared %q", declared)
			ref := got.(RelatedSingle).Ref
			assert.Equal(t, "c1", ref.ID)
			assert.Equal(t, "color", ref.EntityTypeName)
			assert.Equal(t, "#0077BE", ref.Values["hex"])
		}
	})

	t.Run("related multi keeps order", func(t *testing.T) {
		got := Classify([]any{sand, ocean}, types.AttributeRelationMulti)
		require.Equal(t, KindRelatedMulti, got.Kind())
		refs := got.(RelatedMulti).Refs
		require.Len(t, refs, 2)
		assert.Equal(t, "c2", refs[0].ID)
		assert.Equal(t, "c1", refs[1].ID)
	})

	t.Run("mixed list drops members that are not related entities", func(t *testing.T) {
		got := Classify([]any{ocean, "stray", 4.0, sand}, "")
		require.Equal(t, KindRelatedMulti, got.Kind())
		assert.Len(t, got.(RelatedMulti).Refs, 2)
	})

	t.Run("members of another entity type are dropped", func(t *testing.T) {
		tag := map[string]any{"id": "g1", "name": "Beach", "entity_type_id": "t-tag", "entity_type_name": "tag", "values": map[string]any{}}
		got := Classify([]any{ocean, tag, sand}, types.AttributeRelationMulti)
		require.Equal(t, KindRelatedMulti, got.Kind())
		refs := got.(RelatedMulti).Refs
		require.Len(t, refs, 2)
		assert.Equal(t, "c1", refs[0].ID)
		assert.Equal(t, "c2", refs[1].ID)
	})

	t.Run("list whose first member is not related is structured", func(t *testing.T) {
		got := Classify([]any{"stray", ocean}, types.AttributeRelationMulti)
		assert.Equal(t, KindStructured, got.Kind())
	})

	t.Run("typed refs", func(t *testing.T) {
		ref := types.EntityRef{ID: "e1", Name: "x", EntityTypeName: "tag"}
		assert.Equal(t, RelatedSingle{Ref: ref}, Classify(ref, ""))
		assert.Equal(t, RelatedMulti{Refs: []types.EntityRef{ref}}, Classify([]types.EntityRef{ref}, ""))
		assert.Equal(t, KindStructured, Classify([]types.EntityRef{}, "").Kind())
	})

	t.Run("numeric ids from decoded JSON", func(t *testing.T) {
		m := map[string]any{"id": 12.0, "name": "n", "values": map[string]any{}, "entity_type_name": "tag"}
		got := Classify(m, types.AttributeRelation)
		require.Equal(t, KindRelatedSingle, got.Kind())
		assert.Equal(t, "12", got.(RelatedSingle).Ref.ID)
	})
}

func TestClassifyTotal(t *testing.T) {
	values := []any{
		nil, true, 0, -1.5, "", "x", "#FFFFFF", "#GGGGGG", []any{}, []any{nil},
		map[string]any{}, map[string]any{"id": nil, "name": nil, "values": nil, "entity_type_name": nil},
		map[string]any{"id": "1", "name": "n", "values": "not a map", "entity_type_name": "t"},
		struct{ A int }{1}, []int{1, 2}, json.Number("nope"),
	}
	declared := []types.AttributeType{
		"", types.AttributeText, types.AttributeTextarea, types.AttributeNumber,
		types.AttributeBoolean, types.AttributeHex, types.AttributeDatetime,
		types.AttributeJSON, types.AttributeRelation, types.AttributeRelationMulti, "??",
	}
	for _, v := range values {
		for _, d := range declared {
			assert.NotPanics(t, func() {
				s := Classify(v, d)
				assert.NotNil(t, s)
				assert.NotEqual(t, "unknown", s.Kind().String())
			})
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"a", "a"},
		{true, "true"},
		{3.0, "3"},
		{0.1, "0.1"},
		{int64(-4), "-4"},
		{map[string]any{"a": 1.0}, `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stringify(tt.in))
	}
}

func TestRefIDs(t *testing.T) {
	assert.Equal(t, []string{"c1"}, RefIDs(colorRef("c1", "Ocean", "#0077BE")))
	assert.Equal(t, []string{"c1", "c2"}, RefIDs([]any{colorRef("c1", "a", "#000000"), colorRef("c2", "b", "#FFFFFF")}))
	assert.Nil(t, RefIDs("c1"))
}
