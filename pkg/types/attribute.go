package types

// AttributeType is the declared type of an attribute. The set is open: a
// value outside the constants below is tolerated and treated as unrecognized.
type AttributeType string

// Attribute types understood by the classifier, the editors and the store.
const (
	AttributeText          AttributeType = "text"
	AttributeTextarea      AttributeType = "textarea"
	AttributeNumber        AttributeType = "number"
	AttributeBoolean       AttributeType = "boolean"
	AttributeHex           AttributeType = "hex"
	AttributeDatetime      AttributeType = "datetime"
	AttributeJSON          AttributeType = "json"
	AttributeRelation      AttributeType = "relation"
	AttributeRelationMulti AttributeType = "relation_multi"
)

// knownAttributeTypes is the set of recognized attribute types.
var knownAttributeTypes = map[AttributeType]bool{
	AttributeText:          true,
	AttributeTextarea:      true,
	AttributeNumber:        true,
	AttributeBoolean:       true,
	AttributeHex:           true,
	AttributeDatetime:      true,
	AttributeJSON:          true,
	AttributeRelation:      true,
	AttributeRelationMulti: true,
}

// IsKnown reports whether t is one of the recognized attribute types.
func (t AttributeType) IsKnown() bool {
	return knownAttributeTypes[t]
}

// IsRelation reports whether t references other entities.
func (t AttributeType) IsRelation() bool {
	return t == AttributeRelation || t == AttributeRelationMulti
}

// IsScalar reports whether t describes a single primitive value. Only scalar
// types decide how a primitive value is interpreted; the others leave the
// decision to the value itself.
func (t AttributeType) IsScalar() bool {
	switch t {
	case AttributeText, AttributeTextarea, AttributeNumber,
		AttributeBoolean, AttributeHex, AttributeDatetime:
		return true
	}
	return false
}

// RelatedEntityType names the entity type a relation attribute points at.
type RelatedEntityType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Attribute is one entry of an entity type's schema.
type Attribute struct {
	ID                string             `json:"id"`
	EntityTypeID      string             `json:"entity_type_id,omitempty"`
	Name              string             `json:"name"`
	Slug              string             `json:"slug"`
	Type              AttributeType      `json:"type"`
	IsRequired        bool               `json:"is_required"`
	DefaultValue      *string            `json:"default_value"`
	SortOrder         int                `json:"sort_order"`
	RelatedEntityType *RelatedEntityType `json:"related_entity_type"`
}

// Misconfigured reports whether a relation attribute lacks its target type.
// Such an attribute can be displayed but never edited.
func (a *Attribute) Misconfigured() bool {
	if a == nil || !a.Type.IsRelation() {
		return false
	}
	return a.RelatedEntityType == nil || a.RelatedEntityType.ID == ""
}
