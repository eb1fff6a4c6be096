// Schema and data seeding from YAML documents.
package sqlite

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/catalog/internal/slug"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

//go:embed seeds/demo.yaml
var demoSeed []byte

// SeedDoc declares entity types, their attributes and entities.
type SeedDoc struct {
	EntityTypes []SeedType   `yaml:"entity_types"`
	Entities    []SeedEntity `yaml:"entities"`
}

// SeedType declares an entity type.
type SeedType struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Category    string          `yaml:"category"`
	Attributes  []SeedAttribute `yaml:"attributes"`
}

// SeedAttribute declares one attribute. Target names the related entity type
// of a relation attribute. SortOrder defaults to the attribute's position.
type SeedAttribute struct {
	Name      string  `yaml:"name"`
	Slug      string  `yaml:"slug"`
	Type      string  `yaml:"type"`
	Required  bool    `yaml:"required"`
	Default   *string `yaml:"default"`
	SortOrder *int    `yaml:"sort_order"`
	Target    string  `yaml:"target"`
}

// SeedEntity declares an entity by type name. Relation values name related
// entities by slug within the attribute's target type, or as "type/slug".
type SeedEntity struct {
	Type   string         `yaml:"type"`
	Name   string         `yaml:"name"`
	Slug   string         `yaml:"slug"`
	Values map[string]any `yaml:"values"`
}

// SeedResult counts what a seed run created.
type SeedResult struct {
	EntityTypes int
	Attributes  int
	Entities    int
}

// ParseSeed decodes a YAML seed document. Unknown fields are rejected.
func ParseSeed(data []byte) (SeedDoc, error) {
	var doc SeedDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return SeedDoc{}, fmt.Errorf("parsing seed: %w", err)
	}
	return doc, nil
}

// DemoSeed returns the built-in demo catalog.
func DemoSeed() (SeedDoc, error) {
	return ParseSeed(demoSeed)
}

// Seed applies doc to the store. Types are matched by name and attributes by
// slug; entities whose slug already exists for their type are left alone, so
// seeding twice is harmless. Entities may reference entities declared
// earlier in the document.
func (b *Backend) Seed(ctx context.Context, doc SeedDoc) (SeedResult, error) {
	var res SeedResult

	byName, err := b.typesByName(ctx)
	if err != nil {
		return res, err
	}

	for _, st := range doc.EntityTypes {
		detail, ok := byName[st.Name]
		if !ok {
			et, err := b.CreateEntityType(ctx, types.EntityType{
				Name:        st.Name,
				Description: st.Description,
				Category:    st.Category,
			})
			if err != nil {
				return res, fmt.Errorf("seeding type %s: %w", st.Name, err)
			}
			detail = types.EntityTypeDetail{EntityType: et}
			res.EntityTypes++
		}
		byName[st.Name] = detail
	}

	for _, st := range doc.EntityTypes {
		detail := byName[st.Name]
		for i, sa := range st.Attributes {
			if _, ok := detail.Attribute(sa.Slug); ok {
				continue
			}
			attr := types.Attribute{
				EntityTypeID: detail.ID,
				Name:         sa.Name,
				Slug:         sa.Slug,
				Type:         types.AttributeType(sa.Type),
				IsRequired:   sa.Required,
				DefaultValue: sa.Default,
				SortOrder:    i,
			}
			if sa.SortOrder != nil {
				attr.SortOrder = *sa.SortOrder
			}
			if sa.Target != "" {
				target, ok := byName[sa.Target]
				if !ok {
					return res, fmt.Errorf("seeding %s.%s: %w: target %s", st.Name, sa.Slug, types.ErrEntityTypeNotFound, sa.Target)
				}
				attr.RelatedEntityType = &types.RelatedEntityType{ID: target.ID}
			}
			if _, err := b.AddAttribute(ctx, attr); err != nil {
				return res, fmt.Errorf("seeding %s.%s: %w", st.Name, sa.Slug, err)
			}
			res.Attributes++
		}
	}

	// Reload so relation targets carry names.
	byName, err = b.typesByName(ctx)
	if err != nil {
		return res, err
	}

	for _, se := range doc.Entities {
		detail, ok := byName[se.Type]
		if !ok {
			return res, fmt.Errorf("seeding entity %s: %w: %s", se.Name, types.ErrEntityTypeNotFound, se.Type)
		}
		name, entitySlug := strings.TrimSpace(se.Name), se.Slug
		if entitySlug == "" {
			name, entitySlug, err = slug.For(se.Name)
			if err != nil {
				return res, fmt.Errorf("seeding entity %q: %w", se.Name, err)
			}
		}
		if _, err := b.GetEntityBySlug(ctx, se.Type, entitySlug); err == nil {
			continue
		} else if !errors.Is(err, types.ErrNotFound) {
			return res, err
		}

		values, err := b.resolveSeedValues(ctx, detail, se.Values)
		if err != nil {
			return res, fmt.Errorf("seeding entity %s: %w", entitySlug, err)
		}
		if _, err := b.CreateEntity(ctx, types.NewEntity{
			EntityTypeID: detail.ID,
			Name:         name,
			Slug:         entitySlug,
			Values:       values,
		}); err != nil {
			return res, fmt.Errorf("seeding entity %s: %w", entitySlug, err)
		}
		res.Entities++
	}

	b.logger.Info("seed applied",
		zap.Int("entity_types", res.EntityTypes),
		zap.Int("attributes", res.Attributes),
		zap.Int("entities", res.Entities),
	)
	return res, nil
}

func (b *Backend) typesByName(ctx context.Context) (map[string]types.EntityTypeDetail, error) {
	list, err := b.ListEntityTypes(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.EntityTypeDetail, len(list))
	for _, et := range list {
		detail, err := b.GetEntityType(ctx, et.ID)
		if err != nil {
			return nil, err
		}
		out[et.Name] = detail
	}
	return out, nil
}

// resolveSeedValues replaces relation slugs with entity IDs.
func (b *Backend) resolveSeedValues(ctx context.Context, detail types.EntityTypeDetail, raw map[string]any) (types.Values, error) {
	values := make(types.Values, len(raw))
	for key, v := range raw {
		attr, ok := detail.Attribute(key)
		if !ok || !attr.Type.IsRelation() {
			values[key] = v
			continue
		}
		switch ref := v.(type) {
		case nil:
		case string:
			id, err := b.resolveSeedRef(ctx, attr, ref)
			if err != nil {
				return nil, err
			}
			values[key] = id
		case []any:
			ids := make([]any, 0, len(ref))
			for _, item := range ref {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%w: %s: list items must be slugs", types.ErrInvalidValue, key)
				}
				id, err := b.resolveSeedRef(ctx, attr, s)
				if err != nil {
					return nil, err
				}
				ids = append(ids, id)
			}
			values[key] = ids
		default:
			return nil, fmt.Errorf("%w: %s: expected slug or list of slugs", types.ErrInvalidValue, key)
		}
	}
	return values, nil
}

func (b *Backend) resolveSeedRef(ctx context.Context, attr *types.Attribute, ref string) (string, error) {
	typeName, entitySlug, explicit := strings.Cut(ref, "/")
	if !explicit {
		if attr.RelatedEntityType == nil {
			return "", fmt.Errorf("%w: %s has no target type; use type/slug", types.ErrInvalidRelation, attr.Slug)
		}
		typeName, entitySlug = attr.RelatedEntityType.Name, ref
	}
	e, err := b.GetEntityBySlug(ctx, typeName, entitySlug)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %s/%s: %v", types.ErrInvalidRelation, attr.Slug, typeName, entitySlug, err)
	}
	return e.ID, nil
}
