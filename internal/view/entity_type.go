package view

import (
	"context"
	"fmt"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/slug"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// TypeView is the surface of one entity type: its schema and its entities.
type TypeView struct {
	store  types.Store
	logger *zap.Logger

	detail   types.EntityTypeDetail
	entities []types.Entity
}

// LoadType fetches the entity type and its entities. Failures are wrapped
// with types.ErrFetchFailed.
func LoadType(ctx context.Context, store types.Store, typeID string, opts Options) (*TypeView, error) {
	tv := &TypeView{store: store, logger: opts.logger()}
	if err := tv.Refresh(ctx, typeID); err != nil {
		return nil, err
	}
	return tv, nil
}

// Refresh refetches the type and its entities.
func (tv *TypeView) Refresh(ctx context.Context, typeID string) error {
	detail, err := tv.store.GetEntityType(ctx, typeID)
	if err != nil {
		return fmt.Errorf("%w: entity type %s: %w", types.ErrFetchFailed, typeID, err)
	}
	entities, err := tv.store.ListEntities(ctx, typeID)
	if err != nil {
		return fmt.Errorf("%w: entities of type %s: %w", types.ErrFetchFailed, typeID, err)
	}
	tv.detail = detail
	tv.entities = entities
	return nil
}

// Type returns the loaded entity type with its schema.
func (tv *TypeView) Type() types.EntityTypeDetail { return tv.detail }

// Attributes returns the schema in display order.
func (tv *TypeView) Attributes() []types.Attribute { return tv.detail.Ordered() }

// Entities returns the entities of the type as last loaded.
func (tv *TypeView) Entities() []types.Entity { return tv.entities }

// Title returns the plural heading for the type, e.g. "colors".
func (tv *TypeView) Title() string {
	return inflection.Plural(tv.detail.Name)
}

// CreateEntity creates an entity of this type named name, with the slug
// derived from it and the name recorded as its "name" value. Failures wrap
// types.ErrCreateFailed.
func (tv *TypeView) CreateEntity(ctx context.Context, name string) (types.Entity, error) {
	trimmed, s, err := slug.For(name)
	if err != nil {
		return types.Entity{}, fmt.Errorf("%w: %w", types.ErrCreateFailed, err)
	}
	created, err := tv.store.CreateEntity(ctx, types.NewEntity{
		EntityTypeID: tv.detail.ID,
		Name:         trimmed,
		Slug:         s,
		Values:       types.Values{"name": trimmed},
	})
	if err != nil {
		tv.logger.Warn("Failed to create entity",
			zap.String("entity_type_id", tv.detail.ID),
			zap.String("slug", s),
			zap.Error(err))
		return types.Entity{}, fmt.Errorf("%w: %s: %w", types.ErrCreateFailed, trimmed, err)
	}
	tv.entities = append(tv.entities, created)
	return created, nil
}
