package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalog/internal/memstore"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

func TestInput(t *testing.T) {
	tests := []struct {
		name    string
		typ     types.AttributeType
		raw     string
		want    any
		wantErr error
	}{
		{"text passes through", types.AttributeText, "  Ocean ", "  Ocean ", nil},
		{"textarea passes through", types.AttributeTextarea, "a\nb", "a\nb", nil},
		{"hex passes through", types.AttributeHex, "#0077be", "#0077be", nil},
		{"number", types.AttributeNumber, "42.5", 42.5, nil},
		{"number blank clears", types.AttributeNumber, "  ", nil, nil},
		{"number invalid", types.AttributeNumber, "4x", nil, ErrInvalidInput},
		{"number NaN", types.AttributeNumber, "NaN", nil, ErrInvalidInput},
		{"boolean", types.AttributeBoolean, "true", true, nil},
		{"boolean false", types.AttributeBoolean, "false", false, nil},
		{"boolean invalid", types.AttributeBoolean, "maybe", nil, ErrInvalidInput},
		{"datetime local form", types.AttributeDatetime, "2024-03-05T14:30", "2024-03-05T14:30:00.000Z", nil},
		{"datetime rfc3339", types.AttributeDatetime, "2024-03-05T14:30:00+02:00", "2024-03-05T12:30:00.000Z", nil},
		{"datetime date only", types.AttributeDatetime, "2024-03-05", "2024-03-05T00:00:00.000Z", nil},
		{"datetime blank clears", types.AttributeDatetime, "", nil, nil},
		{"datetime invalid", types.AttributeDatetime, "yesterday", nil, ErrInvalidInput},
		{"json object", types.AttributeJSON, `{"a": [1, 2]}`, map[string]any{"a": []any{1.0, 2.0}}, nil},
		{"json invalid", types.AttributeJSON, `{"a":`, nil, ErrInvalidInput},
		{"unrecognized type as text", "geo_point", "1,2", "1,2", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			attr := &types.Attribute{Slug: "x", Type: tt.typ}
			e := NewDispatcher(memstore.New(), nil).Dispatch(attr, nil, rec.onChange)
			err := e.Input(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, rec.values, "invalid input reports nothing")
				return
			}
			require.NoError(t, err)
			require.Len(t, rec.values, 1)
			assert.Equal(t, tt.want, rec.last())
			assert.Equal(t, tt.want, e.Value())
		})
	}
}

func TestInputLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	rec := &recorder{}
	d := NewDispatcher(memstore.New(), nil).WithLocation(loc)
	e := d.Dispatch(&types.Attribute{Slug: "at", Type: types.AttributeDatetime}, nil, rec.onChange)
	require.NoError(t, e.Input("2024-03-05T14:30"))
	assert.Equal(t, "2024-03-05T12:30:00.000Z", rec.last())
}

func TestInputReadOnly(t *testing.T) {
	e := NewDispatcher(memstore.New(), nil).Dispatch(nil, nil, nil)
	assert.Equal(t, KindNone, e.Kind())
	assert.ErrorIs(t, e.Input("x"), ErrReadOnly)

	e.Close()
	assert.ErrorIs(t, e.Input("x"), ErrClosed)
}
