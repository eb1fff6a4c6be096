// Package session tracks the edits made to one entity as a sparse overlay
// over an immutable base snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// ErrCommitInProgress is returned by mutations attempted while a commit is
// waiting for the store.
var ErrCommitInProgress = errors.New("commit in progress")

// Session holds a base entity snapshot and the overlay of edited values.
// The overlay only ever contains slugs that were explicitly set; a slug set
// to nil is an explicit clear. Merged values give the overlay precedence.
type Session struct {
	store types.Store

	mu         sync.Mutex
	base       types.Entity
	overlay    types.Values
	generation uint64
	committing bool
}

// New creates a session over base. The base values are copied.
func New(store types.Store, base types.Entity) *Session {
	base.Values = base.Values.Clone()
	return &Session{
		store:   store,
		base:    base,
		overlay: types.Values{},
	}
}

// Base returns the current base snapshot.
func (s *Session) Base() types.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.base
	b.Values = b.Values.Clone()
	return b
}

// SetValue records an edit for slug.
func (s *Session) SetValue(slug string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committing {
		return ErrCommitInProgress
	}
	s.overlay[slug] = v
	return nil
}

// Value returns the merged value for slug and whether any value is present.
func (s *Session) Value(slug string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.overlay[slug]; ok {
		return v, true
	}
	v, ok := s.base.Values[slug]
	return v, ok
}

// Merged returns base values with the overlay applied on top.
func (s *Session) Merged() types.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := s.base.Values.Clone()
	for k, v := range s.overlay {
		merged[k] = v
	}
	return merged
}

// Slugs returns every slug present in the merged values, sorted.
func (s *Session) Slugs() []string {
	merged := s.Merged()
	out := make([]string, 0, len(merged))
	for k := range merged {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HasChanges reports whether the overlay is non-empty.
func (s *Session) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.overlay) > 0
}

// IsEdited reports whether slug is in the overlay.
func (s *Session) IsEdited(slug string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.overlay[slug]
	return ok
}

// Overlay returns a copy of the pending edits.
func (s *Session) Overlay() types.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Clone()
}

// Discard drops every pending edit. Discarding a clean session is a no-op.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committing {
		return ErrCommitInProgress
	}
	s.overlay = types.Values{}
	return nil
}

// Replace swaps in a freshly fetched snapshot and drops pending edits. A
// commit still waiting for the store is superseded.
func (s *Session) Replace(base types.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base.Values = base.Values.Clone()
	s.base = base
	s.overlay = types.Values{}
	s.generation++
	s.committing = false
}

// Close supersedes any in-flight commit. The session must not be used
// afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.committing = false
}

// Commit sends the overlay as one partial update. On success the returned
// entity becomes the new base and the overlay is cleared. On failure the
// overlay is left exactly as it was and the error wraps types.ErrCommitFailed.
// Committing a clean session returns the base without calling the store.
func (s *Session) Commit(ctx context.Context) (types.Entity, error) {
	s.mu.Lock()
	if s.committing {
		s.mu.Unlock()
		return types.Entity{}, ErrCommitInProgress
	}
	if len(s.overlay) == 0 {
		b := s.base
		s.mu.Unlock()
		return b, nil
	}
	id := s.base.ID
	pending := s.overlay.Clone()
	gen := s.generation
	s.committing = true
	s.mu.Unlock()

	updated, err := s.store.UpdateEntityValues(ctx, id, pending)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return types.Entity{}, types.ErrSuperseded
	}
	s.committing = false
	if err != nil {
		return types.Entity{}, fmt.Errorf("%w: entity %s: %w", types.ErrCommitFailed, id, err)
	}
	updated.Values = updated.Values.Clone()
	s.base = updated
	s.overlay = types.Values{}
	return updated, nil
}
