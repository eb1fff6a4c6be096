// Package memstore implements types.Store in memory. Values are stored as
// given, already hydrated, so it is meant for demos and tests rather than as
// a source of truth.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Operation names passed to hooks and used as keys for injected failures.
const (
	OpListEntityTypes    = "ListEntityTypes"
	OpGetEntityType      = "GetEntityType"
	OpListEntities       = "ListEntities"
	OpGetEntity          = "GetEntity"
	OpGetEntityBySlug    = "GetEntityBySlug"
	OpCreateEntity       = "CreateEntity"
	OpUpdateEntityValues = "UpdateEntityValues"
	OpDeleteEntity       = "DeleteEntity"
)

// MemoryStore implements types.Store using maps.
type MemoryStore struct {
	mu       sync.RWMutex
	types    map[string]types.EntityTypeDetail
	entities map[string]types.Entity
	failures map[string]error
	hook     func(ctx context.Context, op string)
	calls    map[string]int
}

// New creates an empty MemoryStore.
func New() *MemoryStore {
	return &MemoryStore{
		types:    make(map[string]types.EntityTypeDetail),
		entities: make(map[string]types.Entity),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// AddType registers an entity type with its schema.
func (s *MemoryStore) AddType(d types.EntityTypeDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[d.ID] = d
}

// AddEntity stores e as is. EntityTypeName is filled from the registered type
// when empty.
func (s *MemoryStore) AddEntity(e types.Entity) types.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	if e.EntityTypeName == "" {
		e.EntityTypeName = s.types[e.EntityTypeID].Name
	}
	e.Values = e.Values.Clone()
	s.entities[e.ID] = e
	return e
}

// Fail makes every later call of op return err. A nil err clears it.
func (s *MemoryStore) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// OnCall installs a hook run at the start of every operation, outside the
// store lock. Tests use it to block a call until they release it.
func (s *MemoryStore) OnCall(hook func(ctx context.Context, op string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Calls returns how many times op was invoked.
func (s *MemoryStore) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

func (s *MemoryStore) enter(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(ctx, op)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures[op]
}

func (s *MemoryStore) ListEntityTypes(ctx context.Context) ([]types.EntityType, error) {
	if err := s.enter(ctx, OpListEntityTypes); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.EntityType, 0, len(s.types))
	for _, d := range s.types {
		out = append(out, d.EntityType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetEntityType(ctx context.Context, id string) (types.EntityTypeDetail, error) {
	if err := s.enter(ctx, OpGetEntityType); err != nil {
		return types.EntityTypeDetail{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.types[id]
	if !ok {
		return types.EntityTypeDetail{}, types.ErrEntityTypeNotFound
	}
	return d, nil
}

func (s *MemoryStore) ListEntities(ctx context.Context, entityTypeID string) ([]types.Entity, error) {
	if err := s.enter(ctx, OpListEntities); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Entity
	for _, e := range s.entities {
		if entityTypeID != "" && e.EntityTypeID != entityTypeID {
			continue
		}
		e.Values = nil
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetEntity(ctx context.Context, id string) (types.Entity, error) {
	if err := s.enter(ctx, OpGetEntity); err != nil {
		return types.Entity{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

func (s *MemoryStore) get(id string) (types.Entity, error) {
	e, ok := s.entities[id]
	if !ok {
		return types.Entity{}, types.ErrNotFound
	}
	e.Values = e.Values.Clone()
	return e, nil
}

func (s *MemoryStore) GetEntityBySlug(ctx context.Context, typeName, slug string) (types.Entity, error) {
	if err := s.enter(ctx, OpGetEntityBySlug); err != nil {
		return types.Entity{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entities {
		if e.EntityTypeName == typeName && e.Slug == slug {
			return s.get(e.ID)
		}
	}
	return types.Entity{}, types.ErrNotFound
}

func (s *MemoryStore) CreateEntity(ctx context.Context, req types.NewEntity) (types.Entity, error) {
	if err := s.enter(ctx, OpCreateEntity); err != nil {
		return types.Entity{}, err
	}
	if err := req.Validate(); err != nil {
		return types.Entity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.types[req.EntityTypeID]
	if !ok {
		return types.Entity{}, types.ErrEntityTypeNotFound
	}
	for _, e := range s.entities {
		if e.EntityTypeID == req.EntityTypeID && e.Slug == req.Slug {
			return types.Entity{}, fmt.Errorf("%w: %s", types.ErrDuplicateSlug, req.Slug)
		}
	}
	e := types.Entity{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Name:           req.Name,
		Slug:           req.Slug,
		EntityTypeID:   d.ID,
		EntityTypeName: d.Name,
		Values:         req.Values.Clone(),
	}
	s.entities[e.ID] = e
	return s.get(e.ID)
}

// UpdateEntityValues merges values into the stored entity. A nil value
// removes the slug.
func (s *MemoryStore) UpdateEntityValues(ctx context.Context, id string, values types.Values) (types.Entity, error) {
	if err := s.enter(ctx, OpUpdateEntityValues); err != nil {
		return types.Entity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return types.Entity{}, types.ErrNotFound
	}
	merged := e.Values.Clone()
	for k, v := range values {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	e.Values = merged
	s.entities[id] = e
	return s.get(id)
}

func (s *MemoryStore) DeleteEntity(ctx context.Context, id string) error {
	if err := s.enter(ctx, OpDeleteEntity); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return types.ErrNotFound
	}
	delete(s.entities, id)
	return nil
}

var _ types.Store = (*MemoryStore)(nil)
