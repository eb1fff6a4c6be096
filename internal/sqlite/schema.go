// Package sqlite implements the SQLite backend for the catalog entity store.
// SQLite is the query engine; JSONL files in the data directory are the
// source of truth.
package sqlite

// Schema DDL for all tables.
const (
	createEntityTypes = `CREATE TABLE entity_types (
    entity_type_id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT,
    category TEXT,
    created_at TEXT NOT NULL
);`

	createAttributes = `CREATE TABLE attributes (
    attribute_id TEXT PRIMARY KEY,
    entity_type_id TEXT NOT NULL,
    name TEXT NOT NULL,
    slug TEXT NOT NULL,
    attr_type TEXT NOT NULL,
    is_required INTEGER NOT NULL DEFAULT 0,
    default_value TEXT,
    sort_order INTEGER NOT NULL DEFAULT 0,
    related_entity_type_id TEXT,
    UNIQUE (entity_type_id, slug),
    FOREIGN KEY (entity_type_id) REFERENCES entity_types(entity_type_id)
);`

	createEntities = `CREATE TABLE entities (
    entity_id TEXT PRIMARY KEY,
    entity_type_id TEXT NOT NULL,
    name TEXT NOT NULL,
    slug TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (entity_type_id, slug),
    FOREIGN KEY (entity_type_id) REFERENCES entity_types(entity_type_id)
);`

	createEntityValues = `CREATE TABLE entity_values (
    entity_id TEXT NOT NULL,
    attribute_id TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (entity_id, attribute_id),
    FOREIGN KEY (entity_id) REFERENCES entities(entity_id),
    FOREIGN KEY (attribute_id) REFERENCES attributes(attribute_id)
);`

	createEntityRelations = `CREATE TABLE entity_relations (
    entity_id TEXT NOT NULL,
    attribute_id TEXT NOT NULL,
    related_entity_id TEXT NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (entity_id, attribute_id, related_entity_id),
    FOREIGN KEY (entity_id) REFERENCES entities(entity_id),
    FOREIGN KEY (attribute_id) REFERENCES attributes(attribute_id),
    FOREIGN KEY (related_entity_id) REFERENCES entities(entity_id)
);`
)

// Index DDL for common queries.
const (
	idxAttributesType      = `CREATE INDEX idx_attributes_type ON attributes(entity_type_id);`
	idxEntitiesType        = `CREATE INDEX idx_entities_type ON entities(entity_type_id);`
	idxEntityValuesEntity  = `CREATE INDEX idx_entity_values_entity ON entity_values(entity_id);`
	idxRelationsEntity     = `CREATE INDEX idx_entity_relations_entity ON entity_relations(entity_id, attribute_id, sort_order);`
	idxRelationsRelated    = `CREATE INDEX idx_entity_relations_related ON entity_relations(related_entity_id);`
	idxAttributesRelatedTo = `CREATE INDEX idx_attributes_related ON attributes(related_entity_type_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createEntityTypes,
	createAttributes,
	createEntities,
	createEntityValues,
	createEntityRelations,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxAttributesType,
	idxEntitiesType,
	idxEntityValuesEntity,
	idxRelationsEntity,
	idxRelationsRelated,
	idxAttributesRelatedTo,
}
