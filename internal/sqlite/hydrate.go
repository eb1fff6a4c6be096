package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Hydration depth for relation values.
const (
	DefaultDepth = 5
	maxDepth     = 10
)

const selectEntity = `SELECT e.entity_id, e.name, e.slug, e.entity_type_id, t.name
FROM entities e
JOIN entity_types t ON t.entity_type_id = e.entity_type_id
WHERE e.entity_id = ?`

// relationEdge is one related entity of a relation attribute.
type relationEdge struct {
	slug    string
	multi   bool
	related types.EntityRef
}

// loadEntity reads the entity with values hydrated depth levels deep.
func loadEntity(ctx context.Context, q queryer, id string, depth int) (types.Entity, error) {
	var e types.Entity
	err := q.QueryRowContext(ctx, selectEntity, id).
		Scan(&e.ID, &e.Name, &e.Slug, &e.EntityTypeID, &e.EntityTypeName)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entity{}, types.ErrNotFound
	}
	if err != nil {
		return types.Entity{}, fmt.Errorf("reading entity %s: %w", id, err)
	}
	values, err := loadValues(ctx, q, id, 0, depth)
	if err != nil {
		return types.Entity{}, err
	}
	e.Values = values
	return e, nil
}

// loadValues reads the values of one entity. Relation values are hydrated
// recursively while depth < limit and omitted beyond it.
func loadValues(ctx context.Context, q queryer, entityID string, depth, limit int) (types.Values, error) {
	values := types.Values{}

	rows, err := q.QueryContext(ctx, `SELECT a.slug, v.value
FROM entity_values v
JOIN attributes a ON a.attribute_id = v.attribute_id
WHERE v.entity_id = ?`, entityID)
	if err != nil {
		return nil, fmt.Errorf("reading values of %s: %w", entityID, err)
	}
	for rows.Next() {
		var slug, raw string
		if err := rows.Scan(&slug, &raw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning value: %w", err)
		}
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil || decoded == nil {
			continue
		}
		values[slug] = decoded
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if depth >= limit {
		return values, nil
	}

	edges, err := loadEdges(ctx, q, entityID)
	if err != nil {
		return nil, err
	}
	for _, edge := range edges {
		nested, err := loadValues(ctx, q, edge.related.ID, depth+1, limit)
		if err != nil {
			return nil, err
		}
		ref := edge.related
		ref.Values = nested
		if !edge.multi {
			values[edge.slug] = ref
			continue
		}
		list, _ := values[edge.slug].([]types.EntityRef)
		values[edge.slug] = append(list, ref)
	}
	return values, nil
}

// loadEdges reads the relation edges of one entity ordered by attribute slug
// and position. Rows are fully read before any nested query runs.
func loadEdges(ctx context.Context, q queryer, entityID string) ([]relationEdge, error) {
	rows, err := q.QueryContext(ctx, `SELECT a.slug, a.attr_type, e.entity_id, e.name, e.slug, e.entity_type_id, t.name
FROM entity_relations r
JOIN attributes a ON a.attribute_id = r.attribute_id
JOIN entities e ON e.entity_id = r.related_entity_id
JOIN entity_types t ON t.entity_type_id = e.entity_type_id
WHERE r.entity_id = ?
ORDER BY a.slug, r.sort_order`, entityID)
	if err != nil {
		return nil, fmt.Errorf("reading relations of %s: %w", entityID, err)
	}
	defer rows.Close()

	var edges []relationEdge
	for rows.Next() {
		var edge relationEdge
		var attrType string
		r := &edge.related
		if err := rows.Scan(&edge.slug, &attrType, &r.ID, &r.Name, &r.Slug, &r.EntityTypeID, &r.EntityTypeName); err != nil {
			return nil, fmt.Errorf("scanning relation: %w", err)
		}
		edge.multi = types.AttributeType(attrType) == types.AttributeRelationMulti
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

// loadAttributes reads the schema of an entity type keyed by slug.
func loadAttributes(ctx context.Context, q queryer, entityTypeID string) (map[string]attrInfo, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT attribute_id, slug, attr_type, related_entity_type_id FROM attributes WHERE entity_type_id = ?",
		entityTypeID)
	if err != nil {
		return nil, fmt.Errorf("reading attributes: %w", err)
	}
	defer rows.Close()

	attrs := make(map[string]attrInfo)
	for rows.Next() {
		var a attrInfo
		var typ string
		var target sql.NullString
		if err := rows.Scan(&a.id, &a.slug, &typ, &target); err != nil {
			return nil, fmt.Errorf("scanning attribute: %w", err)
		}
		a.typ = types.AttributeType(typ)
		a.target = target.String
		attrs[a.slug] = a
	}
	return attrs, rows.Err()
}

// clampDepth maps a requested hydration depth onto the supported range.
// A negative depth selects DefaultDepth.
func clampDepth(depth int) int {
	switch {
	case depth < 0:
		return DefaultDepth
	case depth > maxDepth:
		return maxDepth
	}
	return depth
}
