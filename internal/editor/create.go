package editor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/slug"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Creator creates related entities from inside a relation editor.
type Creator struct {
	store  types.Store
	logger *zap.Logger
}

// NewCreator creates a Creator. A nil logger disables logging.
func NewCreator(store types.Store, logger *zap.Logger) *Creator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Creator{store: store, logger: logger}
}

// CreateRelated creates an entity of the given type named proposedName and
// returns it as a reference. The name is trimmed and the slug derived from
// it; a name without slug characters is rejected before the store is called.
// Every failure wraps types.ErrCreateFailed.
func (c *Creator) CreateRelated(ctx context.Context, entityTypeID, proposedName string) (types.EntityRef, error) {
	name, s, err := slug.For(proposedName)
	if err != nil {
		return types.EntityRef{}, fmt.Errorf("%w: %w", types.ErrCreateFailed, err)
	}
	created, err := c.store.CreateEntity(ctx, types.NewEntity{
		EntityTypeID: entityTypeID,
		Name:         name,
		Slug:         s,
		Values:       types.Values{"name": name},
	})
	if err != nil {
		c.logger.Warn("Failed to create related entity",
			zap.String("entity_type_id", entityTypeID),
			zap.String("name", name),
			zap.String("slug", s),
			zap.Error(err))
		return types.EntityRef{}, fmt.Errorf("%w: %s: %w", types.ErrCreateFailed, name, err)
	}
	return created.Ref(), nil
}
