// JSON record structures for the JSONL data files.
package sqlite

import "encoding/json"

// entityTypeJSON represents an entity type in entity_types.jsonl.
type entityTypeJSON struct {
	EntityTypeID string `json:"entity_type_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	CreatedAt    string `json:"created_at"`
}

// attributeJSON represents an attribute in attributes.jsonl.
type attributeJSON struct {
	AttributeID         string  `json:"attribute_id"`
	EntityTypeID        string  `json:"entity_type_id"`
	Name                string  `json:"name"`
	Slug                string  `json:"slug"`
	AttrType            string  `json:"attr_type"`
	IsRequired          bool    `json:"is_required"`
	DefaultValue        *string `json:"default_value"`
	SortOrder           int     `json:"sort_order"`
	RelatedEntityTypeID *string `json:"related_entity_type_id"`
}

// entityJSON represents an entity in entities.jsonl.
type entityJSON struct {
	EntityID     string `json:"entity_id"`
	EntityTypeID string `json:"entity_type_id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// entityValueJSON represents a scalar or json value in entity_values.jsonl.
// Value holds the JSON encoding of the stored value.
type entityValueJSON struct {
	EntityID    string          `json:"entity_id"`
	AttributeID string          `json:"attribute_id"`
	Value       json.RawMessage `json:"value"`
}

// entityRelationJSON represents one relation edge in entity_relations.jsonl.
type entityRelationJSON struct {
	EntityID        string `json:"entity_id"`
	AttributeID     string `json:"attribute_id"`
	RelatedEntityID string `json:"related_entity_id"`
	SortOrder       int    `json:"sort_order"`
}
