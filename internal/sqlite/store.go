package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

var _ types.Store = (*Backend)(nil)

// ListEntityTypes returns every entity type ordered by name.
func (b *Backend) ListEntityTypes(ctx context.Context) ([]types.EntityType, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	rows, err := b.db.QueryContext(ctx,
		"SELECT entity_type_id, name, description, category FROM entity_types ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing entity types: %w", err)
	}
	defer rows.Close()

	out := []types.EntityType{}
	for rows.Next() {
		var et types.EntityType
		var desc, category sql.NullString
		if err := rows.Scan(&et.ID, &et.Name, &desc, &category); err != nil {
			return nil, fmt.Errorf("scanning entity type: %w", err)
		}
		et.Description = desc.String
		et.Category = category.String
		out = append(out, et)
	}
	return out, rows.Err()
}

// GetEntityType returns the entity type with its attribute schema ordered by
// sort order.
func (b *Backend) GetEntityType(ctx context.Context, id string) (types.EntityTypeDetail, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.EntityTypeDetail{}, types.ErrDetached
	}
	return getEntityType(ctx, b.db, id)
}

func getEntityType(ctx context.Context, q queryer, id string) (types.EntityTypeDetail, error) {
	var d types.EntityTypeDetail
	var desc, category sql.NullString
	err := q.QueryRowContext(ctx,
		"SELECT entity_type_id, name, description, category FROM entity_types WHERE entity_type_id = ?", id).
		Scan(&d.ID, &d.Name, &desc, &category)
	if errors.Is(err, sql.ErrNoRows) {
		return types.EntityTypeDetail{}, types.ErrEntityTypeNotFound
	}
	if err != nil {
		return types.EntityTypeDetail{}, fmt.Errorf("reading entity type %s: %w", id, err)
	}
	d.Description = desc.String
	d.Category = category.String

	rows, err := q.QueryContext(ctx, `SELECT a.attribute_id, a.name, a.slug, a.attr_type, a.is_required,
    a.default_value, a.sort_order, a.related_entity_type_id, t.name
FROM attributes a
LEFT JOIN entity_types t ON t.entity_type_id = a.related_entity_type_id
WHERE a.entity_type_id = ?
ORDER BY a.sort_order, a.slug`, id)
	if err != nil {
		return types.EntityTypeDetail{}, fmt.Errorf("reading attributes of %s: %w", id, err)
	}
	defer rows.Close()

	d.Attributes = []types.Attribute{}
	for rows.Next() {
		a := types.Attribute{EntityTypeID: id}
		var typ string
		var def, relatedID, relatedName sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &a.Slug, &typ, &a.IsRequired,
			&def, &a.SortOrder, &relatedID, &relatedName); err != nil {
			return types.EntityTypeDetail{}, fmt.Errorf("scanning attribute: %w", err)
		}
		a.Type = types.AttributeType(typ)
		if def.Valid {
			a.DefaultValue = &def.String
		}
		if relatedID.Valid && relatedID.String != "" {
			a.RelatedEntityType = &types.RelatedEntityType{ID: relatedID.String, Name: relatedName.String}
		}
		d.Attributes = append(d.Attributes, a)
	}
	return d, rows.Err()
}

// ListEntities returns entities without values. Entities of one type are
// ordered by name; the full listing is ordered by type name, then name.
func (b *Backend) ListEntities(ctx context.Context, entityTypeID string) ([]types.Entity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	query := `SELECT e.entity_id, e.name, e.slug, e.entity_type_id, t.name
FROM entities e
JOIN entity_types t ON t.entity_type_id = e.entity_type_id`
	var args []any
	if entityTypeID != "" {
		query += " WHERE e.entity_type_id = ? ORDER BY e.name, e.entity_id"
		args = append(args, entityTypeID)
	} else {
		query += " ORDER BY t.name, e.name, e.entity_id"
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	out := []types.Entity{}
	for rows.Next() {
		var e types.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Slug, &e.EntityTypeID, &e.EntityTypeName); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetEntity returns the entity with relations hydrated DefaultDepth levels
// deep.
func (b *Backend) GetEntity(ctx context.Context, id string) (types.Entity, error) {
	return b.GetEntityDepth(ctx, id, DefaultDepth)
}

// GetEntityDepth returns the entity with relations hydrated depth levels
// deep. Relations below the last level are omitted.
func (b *Backend) GetEntityDepth(ctx context.Context, id string, depth int) (types.Entity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Entity{}, types.ErrDetached
	}
	return loadEntity(ctx, b.db, id, clampDepth(depth))
}

// GetEntityBySlug looks an entity up by its type name and slug.
func (b *Backend) GetEntityBySlug(ctx context.Context, typeName, slug string) (types.Entity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Entity{}, types.ErrDetached
	}

	var id string
	err := b.db.QueryRowContext(ctx, `SELECT e.entity_id
FROM entities e
JOIN entity_types t ON t.entity_type_id = e.entity_type_id
WHERE t.name = ? AND e.slug = ?`, typeName, slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entity{}, types.ErrNotFound
	}
	if err != nil {
		return types.Entity{}, fmt.Errorf("looking up %s/%s: %w", typeName, slug, err)
	}
	return loadEntity(ctx, b.db, id, DefaultDepth)
}

// CreateEntity creates an entity with its initial values. Values for slugs
// outside the type's schema and nil values are skipped.
func (b *Backend) CreateEntity(ctx context.Context, req types.NewEntity) (types.Entity, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	if err := req.Validate(); err != nil {
		return types.Entity{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.Entity{}, types.ErrDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Entity{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := entityTypeExists(ctx, tx, req.EntityTypeID); err != nil {
		return types.Entity{}, err
	}

	var taken int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entities WHERE entity_type_id = ? AND slug = ?",
		req.EntityTypeID, req.Slug).Scan(&taken); err != nil {
		return types.Entity{}, fmt.Errorf("checking slug: %w", err)
	}
	if taken > 0 {
		return types.Entity{}, fmt.Errorf("%w: %s", types.ErrDuplicateSlug, req.Slug)
	}

	id := generateUUID()
	now := b.timestamp()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO entities (entity_id, entity_type_id, name, slug, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, req.EntityTypeID, req.Name, req.Slug, now, now); err != nil {
		if isUniqueViolation(err) {
			return types.Entity{}, fmt.Errorf("%w: %s", types.ErrDuplicateSlug, req.Slug)
		}
		return types.Entity{}, fmt.Errorf("inserting entity: %w", err)
	}

	attrs, err := loadAttributes(ctx, tx, req.EntityTypeID)
	if err != nil {
		return types.Entity{}, err
	}
	if err := writeValues(ctx, tx, id, attrs, req.Values, false); err != nil {
		return types.Entity{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Entity{}, fmt.Errorf("committing entity: %w", err)
	}
	if err := b.persist(ctx, entitiesFile, entityValuesFile, entityRelationsFile); err != nil {
		return types.Entity{}, err
	}

	b.logger.Debug("entity created",
		zap.String("entity_id", id),
		zap.String("entity_type_id", req.EntityTypeID),
		zap.String("slug", req.Slug),
	)
	return loadEntity(ctx, b.db, id, DefaultDepth)
}

// UpdateEntityValues writes the given slugs in one transaction. A nil value
// clears the attribute; a slug outside the schema fails the whole update with
// ErrUnknownAttribute.
func (b *Backend) UpdateEntityValues(ctx context.Context, id string, values types.Values) (types.Entity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.Entity{}, types.ErrDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Entity{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var typeID string
	err = tx.QueryRowContext(ctx, "SELECT entity_type_id FROM entities WHERE entity_id = ?", id).Scan(&typeID)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entity{}, types.ErrNotFound
	}
	if err != nil {
		return types.Entity{}, fmt.Errorf("reading entity %s: %w", id, err)
	}

	attrs, err := loadAttributes(ctx, tx, typeID)
	if err != nil {
		return types.Entity{}, err
	}
	if err := writeValues(ctx, tx, id, attrs, values, true); err != nil {
		return types.Entity{}, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE entities SET updated_at = ? WHERE entity_id = ?", b.timestamp(), id); err != nil {
		return types.Entity{}, fmt.Errorf("touching entity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Entity{}, fmt.Errorf("committing values: %w", err)
	}
	if err := b.persist(ctx, entitiesFile, entityValuesFile, entityRelationsFile); err != nil {
		return types.Entity{}, err
	}

	b.logger.Debug("entity values updated", zap.String("entity_id", id), zap.Int("count", len(values)))
	return loadEntity(ctx, b.db, id, DefaultDepth)
}

// DeleteEntity removes the entity, its values and every relation that points
// at it.
func (b *Backend) DeleteEntity(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE entity_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound
	}
	for _, stmt := range []string{
		"DELETE FROM entity_values WHERE entity_id = ?",
		"DELETE FROM entity_relations WHERE entity_id = ?",
		"DELETE FROM entity_relations WHERE related_entity_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("deleting dependents of %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	if err := b.persist(ctx, entitiesFile, entityValuesFile, entityRelationsFile); err != nil {
		return err
	}
	b.logger.Debug("entity deleted", zap.String("entity_id", id))
	return nil
}

func entityTypeExists(ctx context.Context, q queryer, id string) error {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM entity_types WHERE entity_type_id = ?", id).Scan(&n); err != nil {
		return fmt.Errorf("checking entity type: %w", err)
	}
	if n == 0 {
		return types.ErrEntityTypeNotFound
	}
	return nil
}

// writeValues applies values to entityID inside tx. With strict set, a slug
// outside attrs is an error; otherwise it is skipped.
func writeValues(ctx context.Context, tx *sql.Tx, entityID string, attrs map[string]attrInfo, values types.Values, strict bool) error {
	slugs := make([]string, 0, len(values))
	for slug := range values {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		v := values[slug]
		attr, ok := attrs[slug]
		if !ok {
			if strict {
				return fmt.Errorf("%w: %s", types.ErrUnknownAttribute, slug)
			}
			continue
		}
		if !strict && v == nil {
			continue
		}

		var err error
		switch attr.typ {
		case types.AttributeRelation:
			err = writeRelation(ctx, tx, entityID, attr, v)
		case types.AttributeRelationMulti:
			err = writeRelationMulti(ctx, tx, entityID, attr, v)
		default:
			err = writeScalar(ctx, tx, entityID, attr, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeScalar(ctx context.Context, tx *sql.Tx, entityID string, attr attrInfo, v any) error {
	if v == nil {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM entity_values WHERE entity_id = ? AND attribute_id = ?", entityID, attr.id)
		return err
	}
	encoded, err := encodeValue(attr, v)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO entity_values (entity_id, attribute_id, value) VALUES (?, ?, ?)
ON CONFLICT (entity_id, attribute_id) DO UPDATE SET value = excluded.value`, entityID, attr.id, encoded)
	if err != nil {
		return fmt.Errorf("writing %s: %w", attr.slug, err)
	}
	return nil
}

func writeRelation(ctx context.Context, tx *sql.Tx, entityID string, attr attrInfo, v any) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM entity_relations WHERE entity_id = ? AND attribute_id = ?", entityID, attr.id); err != nil {
		return fmt.Errorf("clearing %s: %w", attr.slug, err)
	}
	if v == nil {
		return nil
	}
	relatedID, ok := relationID(v)
	if !ok {
		return invalidValue(attr, v)
	}
	return insertEdge(ctx, tx, entityID, attr, relatedID, 0)
}

func writeRelationMulti(ctx context.Context, tx *sql.Tx, entityID string, attr attrInfo, v any) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM entity_relations WHERE entity_id = ? AND attribute_id = ?", entityID, attr.id); err != nil {
		return fmt.Errorf("clearing %s: %w", attr.slug, err)
	}
	if v == nil {
		return nil
	}
	ids, err := relationIDs(attr, v)
	if err != nil {
		return err
	}
	for i, relatedID := range ids {
		if err := insertEdge(ctx, tx, entityID, attr, relatedID, i); err != nil {
			return err
		}
	}
	return nil
}

// insertEdge checks that relatedID exists and has the attribute's target
// type, then records the edge.
func insertEdge(ctx context.Context, tx *sql.Tx, entityID string, attr attrInfo, relatedID string, order int) error {
	var typeID string
	err := tx.QueryRowContext(ctx, "SELECT entity_type_id FROM entities WHERE entity_id = ?", relatedID).Scan(&typeID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s: entity %s does not exist", types.ErrInvalidRelation, attr.slug, relatedID)
	}
	if err != nil {
		return fmt.Errorf("reading related entity %s: %w", relatedID, err)
	}
	if attr.target != "" && typeID != attr.target {
		return fmt.Errorf("%w: %s: entity %s is not of type %s", types.ErrInvalidRelation, attr.slug, relatedID, attr.target)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO entity_relations (entity_id, attribute_id, related_entity_id, sort_order) VALUES (?, ?, ?, ?)",
		entityID, attr.id, relatedID, order)
	if err != nil {
		return fmt.Errorf("writing %s: %w", attr.slug, err)
	}
	return nil
}
