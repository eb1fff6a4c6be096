package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
)

// queryer is the subset of *sql.DB and *sql.Tx used by the read paths.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// tableRecords returns the JSONL records for one data file.
var tableRecords = map[string]func(ctx context.Context, q queryer) ([]json.RawMessage, error){
	entityTypesFile:     entityTypeRecords,
	attributesFile:      attributeRecords,
	entitiesFile:        entityRecords,
	entityValuesFile:    entityValueRecords,
	entityRelationsFile: entityRelationRecords,
}

// writeTableJSONL queries the table behind file and writes it to dir.
func writeTableJSONL(ctx context.Context, q queryer, dir, file string) error {
	fetch, ok := tableRecords[file]
	if !ok {
		return fmt.Errorf("unknown data file %s", file)
	}
	records, err := fetch(ctx, q)
	if err != nil {
		return fmt.Errorf("querying %s: %w", file, err)
	}
	if err := writeJSONL(filepath.Join(dir, file), records); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	return nil
}

func entityTypeRecords(ctx context.Context, q queryer) ([]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT entity_type_id, name, description, category, created_at FROM entity_types ORDER BY created_at, entity_type_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []entityTypeJSON
	for rows.Next() {
		var rec entityTypeJSON
		var desc, category sql.NullString
		if err := rows.Scan(&rec.EntityTypeID, &rec.Name, &desc, &category, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Description = desc.String
		rec.Category = category.String
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return marshalRecords(recs)
}

func attributeRecords(ctx context.Context, q queryer) ([]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx, `SELECT attribute_id, entity_type_id, name, slug, attr_type,
    is_required, default_value, sort_order, related_entity_type_id
FROM attributes ORDER BY entity_type_id, sort_order, slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []attributeJSON
	for rows.Next() {
		var rec attributeJSON
		var def, related sql.NullString
		if err := rows.Scan(&rec.AttributeID, &rec.EntityTypeID, &rec.Name, &rec.Slug, &rec.AttrType,
			&rec.IsRequired, &def, &rec.SortOrder, &related); err != nil {
			return nil, err
		}
		if def.Valid {
			rec.DefaultValue = &def.String
		}
		if related.Valid && related.String != "" {
			rec.RelatedEntityTypeID = &related.String
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return marshalRecords(recs)
}

func entityRecords(ctx context.Context, q queryer) ([]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT entity_id, entity_type_id, name, slug, created_at, updated_at FROM entities ORDER BY created_at, entity_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []entityJSON
	for rows.Next() {
		var rec entityJSON
		if err := rows.Scan(&rec.EntityID, &rec.EntityTypeID, &rec.Name, &rec.Slug, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return marshalRecords(recs)
}

func entityValueRecords(ctx context.Context, q queryer) ([]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT entity_id, attribute_id, value FROM entity_values ORDER BY entity_id, attribute_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []entityValueJSON
	for rows.Next() {
		var rec entityValueJSON
		var value string
		if err := rows.Scan(&rec.EntityID, &rec.AttributeID, &value); err != nil {
			return nil, err
		}
		if !json.Valid([]byte(value)) {
			continue
		}
		rec.Value = json.RawMessage(value)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return marshalRecords(recs)
}

func entityRelationRecords(ctx context.Context, q queryer) ([]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx, `SELECT entity_id, attribute_id, related_entity_id, sort_order
FROM entity_relations ORDER BY entity_id, attribute_id, sort_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []entityRelationJSON
	for rows.Next() {
		var rec entityRelationJSON
		if err := rows.Scan(&rec.EntityID, &rec.AttributeID, &rec.RelatedEntityID, &rec.SortOrder); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return marshalRecords(recs)
}
