// Package relation loads candidate entities for relation editors and
// resolves display colors through nested relations.
package relation

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/shape"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// MaxDepth bounds recursion through nested relations.
const MaxDepth = 5

// ColorTypeName is the entity type whose entities carry a hex swatch.
const ColorTypeName = "color"

// DefaultSwatch is shown when no color can be resolved.
const DefaultSwatch = "#888888"

// Resolver reads candidate entities from a store. It holds no cache; callers
// keep what they load for as long as they need it.
type Resolver struct {
	store  types.Store
	logger *zap.Logger
}

// NewResolver creates a Resolver. A nil logger disables logging.
func NewResolver(store types.Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger}
}

// ListCandidates returns every entity of the given type, without values.
// Failures are wrapped with types.ErrFetchFailed.
func (r *Resolver) ListCandidates(ctx context.Context, entityTypeID string) ([]types.Entity, error) {
	entities, err := r.store.ListEntities(ctx, entityTypeID)
	if err != nil {
		r.logger.Warn("Failed to list relation candidates",
			zap.String("entity_type_id", entityTypeID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: listing entities of type %s: %w", types.ErrFetchFailed, entityTypeID, err)
	}
	return entities, nil
}

// Hydrate replaces each entity with its full record so that values are
// available, e.g. the hex of a color candidate. The first failure aborts and
// is wrapped with types.ErrFetchFailed.
func (r *Resolver) Hydrate(ctx context.Context, entities []types.Entity) ([]types.Entity, error) {
	out := make([]types.Entity, len(entities))
	for i, e := range entities {
		full, err := r.store.GetEntity(ctx, e.ID)
		if err != nil {
			r.logger.Warn("Failed to hydrate relation candidate",
				zap.String("entity_id", e.ID),
				zap.Error(err))
			return nil, fmt.Errorf("%w: entity %s: %w", types.ErrFetchFailed, e.ID, err)
		}
		out[i] = full
	}
	return out, nil
}

// ResolveColor returns the hex color shown for ref. A color entity yields its
// own hex value. Any other entity yields the color of its nested single
// relations, trying the "color" attribute first and then the remaining
// attributes in slug order. A nested relation that resolves to no color
// falls through to the next slug. Recursion stops at MaxDepth and on cycles.
func ResolveColor(ref types.EntityRef) (string, bool) {
	return resolveColor(ref, 0, map[string]bool{})
}

func resolveColor(ref types.EntityRef, depth int, visited map[string]bool) (string, bool) {
	if depth > MaxDepth || (ref.ID != "" && visited[ref.ID]) {
		return "", false
	}
	visited[ref.ID] = true

	if ref.EntityTypeName == ColorTypeName {
		if hex, ok := ref.Values["hex"].(string); ok && hex != "" {
			return hex, true
		}
	}
	for _, key := range nestedOrder(ref.Values) {
		nested, ok := shape.AsRef(ref.Values[key])
		if !ok {
			continue
		}
		if hex, ok := resolveColor(nested, depth+1, visited); ok {
			return hex, true
		}
	}
	return "", false
}

func nestedOrder(values types.Values) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != ColorTypeName {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := values[ColorTypeName]; ok {
		keys = append([]string{ColorTypeName}, keys...)
	}
	return keys
}

// Swatch returns the resolved color of v when it is a related entity, or
// DefaultSwatch.
func Swatch(v any) string {
	if ref, ok := shape.AsRef(v); ok {
		if hex, ok := ResolveColor(ref); ok {
			return hex
		}
	}
	return DefaultSwatch
}
