package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

func TestDemoSeed(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	doc, err := DemoSeed()
	require.NoError(t, err)

	res, err := b.Seed(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 4, res.EntityTypes)
	assert.Equal(t, 17, res.Attributes)
	assert.Equal(t, 11, res.Entities)

	pack, err := b.GetEntityBySlug(ctx, "product", "trail-backpack")
	require.NoError(t, err)
	assert.Equal(t, 89.5, pack.Values["price"])
	assert.Equal(t, "2024-03-01T09:00:00.000Z", pack.Values["released_at"])
	assert.Equal(t, map[string]any{"volume_l": 24.0, "pockets": 6.0}, pack.Values["specs"])

	color, ok := pack.Values["color"].(types.EntityRef)
	require.True(t, ok)
	assert.Equal(t, "navy", color.Slug)
	assert.Equal(t, "#1B2A49", color.Values["hex"])

	tags, ok := pack.Values["tags"].([]types.EntityRef)
	require.True(t, ok)
	require.Len(t, tags, 2)
	assert.Equal(t, "new", tags[0].Slug)
	assert.Equal(t, "outdoor", tags[1].Slug)
	tagColor, ok := tags[0].Values["color"].(types.EntityRef)
	require.True(t, ok)
	assert.Equal(t, "red", tagColor.Slug)

	product, err := b.GetEntityType(ctx, pack.EntityTypeID)
	require.NoError(t, err)
	supplier, ok := product.Attribute("supplier")
	require.True(t, ok)
	assert.True(t, supplier.Misconfigured())
	inStock, ok := product.Attribute("in_stock")
	require.True(t, ok)
	require.NotNil(t, inStock.DefaultValue)
	assert.Equal(t, "true", *inStock.DefaultValue)
}

func TestSeedIdempotency(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	doc, err := DemoSeed()
	require.NoError(t, err)
	_, err = b.Seed(ctx, doc)
	require.NoError(t, err)

	res, err := b.Seed(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, res)

	all, err := b.ListEntities(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 11)
}

func TestSeedExtendsExistingTypes(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	first, err := ParseSeed([]byte(`
entity_types:
  - name: color
    attributes:
      - {name: Name, slug: name, type: text}
`))
	require.NoError(t, err)
	_, err = b.Seed(ctx, first)
	require.NoError(t, err)

	second, err := ParseSeed([]byte(`
entity_types:
  - name: color
    attributes:
      - {name: Name, slug: name, type: text}
      - {name: Hex, slug: hex, type: hex, sort_order: 5}
entities:
  - {type: color, name: Deep Sea Blue, values: {name: Deep Sea Blue, hex: "#003366"}}
  - {type: color, name: Other, slug: custom-slug}
`))
	require.NoError(t, err)
	res, err := b.Seed(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Attributes: 1, Entities: 2}, res)

	e, err := b.GetEntityBySlug(ctx, "color", "deep-sea-blue")
	require.NoError(t, err)
	assert.Equal(t, "#003366", e.Values["hex"])
	_, err = b.GetEntityBySlug(ctx, "color", "custom-slug")
	assert.NoError(t, err)
}

func TestSeedErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "unknown target type",
			yaml: `
entity_types:
  - name: tag
    attributes:
      - {name: Color, slug: color, type: relation, target: color}
`,
			want: types.ErrEntityTypeNotFound,
		},
		{
			name: "entity of unknown type",
			yaml: `
entities:
  - {type: color, name: Red}
`,
			want: types.ErrEntityTypeNotFound,
		},
		{
			name: "unresolvable reference",
			yaml: `
entity_types:
  - name: color
    attributes:
      - {name: Name, slug: name, type: text}
  - name: tag
    attributes:
      - {name: Color, slug: color, type: relation, target: color}
entities:
  - {type: tag, name: Sale, values: {color: missing}}
`,
			want: types.ErrInvalidRelation,
		},
		{
			name: "reference without target",
			yaml: `
entity_types:
  - name: tag
    attributes:
      - {name: Owner, slug: owner, type: relation}
entities:
  - {type: tag, name: Sale, values: {owner: someone}}
`,
			want: types.ErrInvalidRelation,
		},
		{
			name: "bad attribute type",
			yaml: `
entity_types:
  - name: tag
    attributes:
      - {name: Where, slug: where, type: geo}
`,
			want: types.ErrInvalidAttribute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBackend(t)
			doc, err := ParseSeed([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = b.Seed(context.Background(), doc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseSeedRejectsUnknownFields(t *testing.T) {
	_, err := ParseSeed([]byte("entity_types:\n  - name: color\n    colour: red\n"))
	assert.Error(t, err)
}
