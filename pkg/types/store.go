package types

import (
	"context"
	"errors"
)

// Store is the entity store the catalog reads from and writes to. The SQLite
// backend and the HTTP client both implement it.
type Store interface {
	// ListEntityTypes returns every entity type ordered by name.
	ListEntityTypes(ctx context.Context) ([]EntityType, error)

	// GetEntityType returns the entity type with its attribute schema.
	// Returns ErrEntityTypeNotFound if no type exists with that ID.
	GetEntityType(ctx context.Context, id string) (EntityTypeDetail, error)

	// ListEntities returns entities without values, ordered by name. An empty
	// entityTypeID lists entities of every type.
	ListEntities(ctx context.Context, entityTypeID string) ([]Entity, error)

	// GetEntity returns the entity with hydrated values.
	// Returns ErrNotFound if no entity exists with that ID.
	GetEntity(ctx context.Context, id string) (Entity, error)

	// GetEntityBySlug looks an entity up by its type name and slug.
	GetEntityBySlug(ctx context.Context, typeName, slug string) (Entity, error)

	// CreateEntity creates an entity and returns it with hydrated values.
	CreateEntity(ctx context.Context, req NewEntity) (Entity, error)

	// UpdateEntityValues applies a partial update: only the given slugs are
	// written, a nil value clears the attribute. Returns the canonical entity.
	UpdateEntityValues(ctx context.Context, id string, values Values) (Entity, error)

	// DeleteEntity removes the entity, its values and every relation that
	// points at it.
	DeleteEntity(ctx context.Context, id string) error
}

// Store errors.
var (
	ErrNotFound           = errors.New("entity not found")
	ErrEntityTypeNotFound = errors.New("entity type not found")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidSlug        = errors.New("invalid slug")
	ErrDuplicateSlug      = errors.New("slug already in use for this entity type")
	ErrDuplicateType      = errors.New("entity type name already in use")
	ErrUnknownAttribute   = errors.New("unknown attribute")
	ErrInvalidValue       = errors.New("value does not match attribute type")
	ErrInvalidRelation    = errors.New("invalid related entity")
	ErrInvalidAttribute   = errors.New("invalid attribute definition")
	ErrAlreadyAttached    = errors.New("store is already attached")
	ErrDetached           = errors.New("store is detached")
)

// Engine errors. Failures of store calls made on behalf of the engine are
// wrapped with one of these so callers can tell which interaction failed.
var (
	ErrFetchFailed  = errors.New("fetch failed")
	ErrCreateFailed = errors.New("create failed")
	ErrCommitFailed = errors.New("commit failed")

	// ErrSuperseded is returned when an asynchronous result arrives after
	// its owner was closed or moved on; the result has been discarded.
	ErrSuperseded = errors.New("result superseded")
)
