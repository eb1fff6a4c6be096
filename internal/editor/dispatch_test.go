package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/memstore"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

func TestDispatch(t *testing.T) {
	d := NewDispatcher(memstore.New(), zap.NewNop())
	colorType := &types.RelatedEntityType{ID: "t-color", Name: "color"}
	ocean := types.EntityRef{ID: "c1", Name: "Ocean", EntityTypeID: "t-color", EntityTypeName: "color", Values: types.Values{"hex": "#0077BE"}}

	tests := []struct {
		name       string
		attr       *types.Attribute
		value      any
		wantKind   Kind
		wantState  State
		wantTarget string
	}{
		{"no schema and no value is read-only", nil, nil, KindNone, StateUnloaded, ""},
		{"no schema boolean", nil, true, KindBoolean, StateUnloaded, ""},
		{"no schema number", nil, 4.0, KindNumber, StateUnloaded, ""},
		{"no schema hex", nil, "#0077BE", KindHex, StateUnloaded, ""},
		{"no schema text", nil, "legacy", KindText, StateUnloaded, ""},
		{"no schema object", nil, map[string]any{"a": 1.0}, KindStructured, StateUnloaded, ""},
		{"no schema related entity uses its type", nil, ocean, KindSingleRelation, StateUnloaded, "t-color"},
		{"no schema related list uses first type", nil, []types.EntityRef{ocean}, KindMultiRelation, StateUnloaded, "t-color"},
		{"text", &types.Attribute{Slug: "name", Type: types.AttributeText}, "Ocean", KindText, StateUnloaded, ""},
		{"textarea unset", &types.Attribute{Slug: "notes", Type: types.AttributeTextarea}, nil, KindTextarea, StateUnloaded, ""},
		{"number with bad value still edits as number", &types.Attribute{Slug: "n", Type: types.AttributeNumber}, "abc", KindNumber, StateUnloaded, ""},
		{"boolean", &types.Attribute{Slug: "b", Type: types.AttributeBoolean}, false, KindBoolean, StateUnloaded, ""},
		{"hex", &types.Attribute{Slug: "hex", Type: types.AttributeHex}, "#000000", KindHex, StateUnloaded, ""},
		{"datetime", &types.Attribute{Slug: "at", Type: types.AttributeDatetime}, nil, KindDatetime, StateUnloaded, ""},
		{"json", &types.Attribute{Slug: "meta", Type: types.AttributeJSON}, nil, KindStructured, StateUnloaded, ""},
		{"unrecognized type edits as text", &types.Attribute{Slug: "geo", Type: "geo_point"}, "1,2", KindText, StateUnloaded, ""},
		{
			"relation unset",
			&types.Attribute{Slug: "color", Type: types.AttributeRelation, RelatedEntityType: colorType},
			nil, KindSingleRelation, StateUnloaded, "t-color",
		},
		{
			"relation_multi unset",
			&types.Attribute{Slug: "tags", Type: types.AttributeRelationMulti, RelatedEntityType: &types.RelatedEntityType{ID: "t-tag", Name: "tag"}},
			nil, KindMultiRelation, StateUnloaded, "t-tag",
		},
		{
			"relation_multi with empty list is unset",
			&types.Attribute{Slug: "tags", Type: types.AttributeRelationMulti, RelatedEntityType: &types.RelatedEntityType{ID: "t-tag", Name: "tag"}},
			[]any{}, KindMultiRelation, StateUnloaded, "t-tag",
		},
		{
			"relation without target is misconfigured",
			&types.Attribute{Slug: "color", Type: types.AttributeRelation},
			nil, KindMisconfigured, StateMisconfigured, "",
		},
		{
			"misconfigured even with a value",
			&types.Attribute{Slug: "color", Type: types.AttributeRelationMulti},
			[]types.EntityRef{ocean}, KindMisconfigured, StateMisconfigured, "",
		},
		{
			"runtime shape wins over declared scalar type",
			&types.Attribute{Slug: "color", Type: types.AttributeText},
			ocean, KindSingleRelation, StateUnloaded, "t-color",
		},
		{
			"single value under a multi attribute edits as single",
			&types.Attribute{Slug: "tags", Type: types.AttributeRelationMulti, RelatedEntityType: colorType},
			ocean, KindSingleRelation, StateUnloaded, "t-color",
		},
		{
			"object under a number attribute is structured",
			&types.Attribute{Slug: "n", Type: types.AttributeNumber},
			map[string]any{"x": 1.0}, KindStructured, StateUnloaded, "",
		},
		{
			"related entity without type id cannot be edited",
			nil, types.EntityRef{ID: "x", Name: "x", EntityTypeName: "tag"}, KindMisconfigured, StateMisconfigured, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := d.Dispatch(tt.attr, tt.value, nil)
			assert.Equal(t, tt.wantKind, e.Kind())
			assert.Equal(t, tt.wantState, e.State())
			if tt.wantTarget == "" {
				return
			}
			if assert.NotNil(t, e.Target()) {
				assert.Equal(t, tt.wantTarget, e.Target().ID)
			}
		})
	}
}

func TestKindAndStateNames(t *testing.T) {
	assert.Equal(t, "relation_multi", KindMultiRelation.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Equal(t, "creating_new", StateCreatingNew.String())
	assert.Equal(t, "unknown", State(99).String())
}
