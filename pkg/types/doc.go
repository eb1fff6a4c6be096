// Package types defines the entity-attribute-value data model shared by the
// catalog packages: entity types and their attribute schema, entities and
// their sparse value maps, the Store interface every backend implements, and
// the standard errors returned across package boundaries.
package types
