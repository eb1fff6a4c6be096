package types

import "sort"

// Entity type categories.
const (
	CategoryContent   = "content"
	CategoryComponent = "component"
)

// EntityType is a named schema that entities are instances of.
type EntityType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// EntityTypeDetail is an entity type together with its attribute schema.
type EntityTypeDetail struct {
	EntityType
	Attributes []Attribute `json:"attributes"`
}

// Attribute returns the schema entry for slug.
func (d *EntityTypeDetail) Attribute(slug string) (*Attribute, bool) {
	for i := range d.Attributes {
		if d.Attributes[i].Slug == slug {
			return &d.Attributes[i], true
		}
	}
	return nil, false
}

// Ordered returns the attributes sorted by sort order, then slug.
func (d *EntityTypeDetail) Ordered() []Attribute {
	out := make([]Attribute, len(d.Attributes))
	copy(out, d.Attributes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// Values maps attribute slugs to values. Values are sparse: a missing slug
// means the attribute has no value. Keys that are not in the entity type's
// schema are legal and must be tolerated.
type Values map[string]any

// Clone returns a shallow copy of v. A nil map clones to an empty one.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Entity is an instance of an entity type with its attribute values.
// Relation values arrive hydrated as EntityRef (or as the equivalent decoded
// JSON object), possibly nested.
type Entity struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	EntityTypeID   string `json:"entity_type_id"`
	EntityTypeName string `json:"entity_type_name"`
	Values         Values `json:"values,omitempty"`
}

// Ref returns e as a related-entity reference.
func (e Entity) Ref() EntityRef {
	return EntityRef(e)
}

// Label returns the display label: values.name when it is a non-empty
// string, otherwise the entity's own name.
func (e Entity) Label() string {
	return EntityRef(e).Label()
}

// EntityRef is a related entity as embedded in another entity's values.
type EntityRef struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	EntityTypeID   string `json:"entity_type_id"`
	EntityTypeName string `json:"entity_type_name"`
	Values         Values `json:"values"`
}

// Label returns values.name when it is a non-empty string, otherwise Name.
func (r EntityRef) Label() string {
	if s, ok := r.Values["name"].(string); ok && s != "" {
		return s
	}
	return r.Name
}

// NewEntity is the request to create an entity. Values whose slugs are not
// part of the entity type's schema are ignored.
type NewEntity struct {
	EntityTypeID string `json:"entity_type_id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Values       Values `json:"values,omitempty"`
}

// Validate checks the fields every backend requires.
func (n NewEntity) Validate() error {
	if n.EntityTypeID == "" {
		return ErrEntityTypeNotFound
	}
	if n.Name == "" {
		return ErrInvalidName
	}
	if n.Slug == "" {
		return ErrInvalidSlug
	}
	return nil
}
