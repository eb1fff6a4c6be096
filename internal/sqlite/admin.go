package sqlite

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// CreateEntityType registers a new entity type. The ID is generated when
// empty. Returns ErrDuplicateType if the name is taken.
func (b *Backend) CreateEntityType(ctx context.Context, et types.EntityType) (types.EntityType, error) {
	et.Name = strings.TrimSpace(et.Name)
	if et.Name == "" {
		return types.EntityType{}, types.ErrInvalidName
	}
	if et.ID == "" {
		et.ID = generateUUID()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.EntityType{}, types.ErrDetached
	}

	_, err := b.db.ExecContext(ctx,
		"INSERT INTO entity_types (entity_type_id, name, description, category, created_at) VALUES (?, ?, ?, ?, ?)",
		et.ID, et.Name, et.Description, et.Category, b.timestamp())
	if isUniqueViolation(err) {
		return types.EntityType{}, fmt.Errorf("%w: %s", types.ErrDuplicateType, et.Name)
	}
	if err != nil {
		return types.EntityType{}, fmt.Errorf("inserting entity type: %w", err)
	}
	if err := b.persist(ctx, entityTypesFile); err != nil {
		return types.EntityType{}, err
	}
	b.logger.Debug("entity type created", zap.String("entity_type_id", et.ID), zap.String("name", et.Name))
	return et, nil
}

// AddAttribute appends an attribute to an entity type's schema. A relation
// attribute may omit its target type; it is then stored but cannot be
// edited. A slug already used by the type returns ErrInvalidAttribute.
func (b *Backend) AddAttribute(ctx context.Context, attr types.Attribute) (types.Attribute, error) {
	attr.Name = strings.TrimSpace(attr.Name)
	attr.Slug = strings.TrimSpace(attr.Slug)
	switch {
	case attr.Name == "":
		return types.Attribute{}, fmt.Errorf("%w: name is required", types.ErrInvalidAttribute)
	case attr.Slug == "":
		return types.Attribute{}, fmt.Errorf("%w: slug is required", types.ErrInvalidAttribute)
	case !attr.Type.IsKnown():
		return types.Attribute{}, fmt.Errorf("%w: unknown type %q", types.ErrInvalidAttribute, attr.Type)
	case !attr.Type.IsRelation() && attr.RelatedEntityType != nil:
		return types.Attribute{}, fmt.Errorf("%w: %s is not a relation", types.ErrInvalidAttribute, attr.Slug)
	}
	if attr.ID == "" {
		attr.ID = generateUUID()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.Attribute{}, types.ErrDetached
	}

	if err := entityTypeExists(ctx, b.db, attr.EntityTypeID); err != nil {
		return types.Attribute{}, err
	}
	var target any
	if attr.RelatedEntityType != nil && attr.RelatedEntityType.ID != "" {
		related, err := getEntityType(ctx, b.db, attr.RelatedEntityType.ID)
		if err != nil {
			return types.Attribute{}, fmt.Errorf("%w: target of %s: %v", types.ErrInvalidAttribute, attr.Slug, err)
		}
		attr.RelatedEntityType.Name = related.Name
		target = related.ID
	}

	var def any
	if attr.DefaultValue != nil {
		def = *attr.DefaultValue
	}
	_, err := b.db.ExecContext(ctx, `INSERT INTO attributes (attribute_id, entity_type_id, name, slug, attr_type,
    is_required, default_value, sort_order, related_entity_type_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attr.ID, attr.EntityTypeID, attr.Name, attr.Slug, string(attr.Type),
		attr.IsRequired, def, attr.SortOrder, target)
	if isUniqueViolation(err) {
		return types.Attribute{}, fmt.Errorf("%w: slug %s already defined", types.ErrInvalidAttribute, attr.Slug)
	}
	if err != nil {
		return types.Attribute{}, fmt.Errorf("inserting attribute: %w", err)
	}
	if err := b.persist(ctx, attributesFile); err != nil {
		return types.Attribute{}, err
	}
	b.logger.Debug("attribute added",
		zap.String("entity_type_id", attr.EntityTypeID),
		zap.String("slug", attr.Slug),
		zap.String("type", string(attr.Type)),
	)
	return attr, nil
}
