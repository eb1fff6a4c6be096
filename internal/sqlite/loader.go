// JSONL loading for startup.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// jsonlTableMapping maps JSONL filenames to their SQLite tables and column
// lists. The order matters: tables with foreign keys load after the tables
// they reference. Columns listed in jsonColumns are stored as JSON text.
var jsonlTableMapping = []struct {
	file        string
	table       string
	columns     []string
	jsonColumns map[string]bool
}{
	{entityTypesFile, "entity_types", []string{"entity_type_id", "name", "description", "category", "created_at"}, nil},
	{attributesFile, "attributes", []string{"attribute_id", "entity_type_id", "name", "slug", "attr_type", "is_required", "default_value", "sort_order", "related_entity_type_id"}, nil},
	{entitiesFile, "entities", []string{"entity_id", "entity_type_id", "name", "slug", "created_at", "updated_at"}, nil},
	{entityValuesFile, "entity_values", []string{"entity_id", "attribute_id", "value"}, map[string]bool{"value": true}},
	{entityRelationsFile, "entity_relations", []string{"entity_id", "attribute_id", "related_entity_id", "sort_order"}, nil},
}

// loadAllJSONL reads each JSONL file from dataDir and inserts the records
// into the corresponding SQLite tables. Loading is transactional: all tables
// load or the database stays empty. Malformed lines and records that violate
// constraints are skipped. Unknown fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return 0, fmt.Errorf("disabling foreign keys for load: %w", err)
	}

	var skipped int
	for _, mapping := range jsonlTableMapping {
		records, err := readJSONL(filepath.Join(dataDir, mapping.file))
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", mapping.file, err)
		}
		if len(records) == 0 {
			continue
		}
		n, err := insertRecords(tx, mapping.table, mapping.columns, mapping.jsonColumns, records)
		if err != nil {
			return 0, fmt.Errorf("loading %s into %s: %w", mapping.file, mapping.table, err)
		}
		skipped += n
	}

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return 0, fmt.Errorf("re-enabling foreign keys: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return skipped, nil
}

// insertRecords inserts parsed JSONL records into a SQLite table and returns
// how many records were skipped. Only columns listed in the mapping are
// extracted; extra fields do not cause errors.
func insertRecords(tx *sql.Tx, table string, columns []string, jsonColumns map[string]bool, records []json.RawMessage) (int, error) {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	var skipped int
	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			skipped++
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			val, ok := obj[col]
			if !ok {
				continue
			}
			if jsonColumns[col] {
				b, err := json.Marshal(val)
				if err != nil {
					continue
				}
				args[i] = string(b)
				continue
			}
			switch v := val.(type) {
			case map[string]any, []any:
				b, err := json.Marshal(v)
				if err != nil {
					continue
				}
				args[i] = string(b)
			default:
				args[i] = val
			}
		}

		if _, err := stmt.Exec(args...); err != nil {
			skipped++
			continue
		}
	}
	return skipped, nil
}
