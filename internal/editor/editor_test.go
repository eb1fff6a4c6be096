package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/memstore"
	"github.com/mesh-intelligence/catalog/internal/session"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

var (
	colorTarget = &types.RelatedEntityType{ID: "t-color", Name: "color"}
	tagTarget   = &types.RelatedEntityType{ID: "t-tag", Name: "tag"}
	colorAttr   = &types.Attribute{Slug: "color", Type: types.AttributeRelation, RelatedEntityType: colorTarget}
	tagsAttr    = &types.Attribute{Slug: "tags", Type: types.AttributeRelationMulti, RelatedEntityType: tagTarget}
)

func newStore(t *testing.T) *memstore.MemoryStore {
	t.Helper()
	s := memstore.New()
	s.AddType(types.EntityTypeDetail{EntityType: types.EntityType{ID: "t-color", Name: "color"}})
	s.AddType(types.EntityTypeDetail{EntityType: types.EntityType{ID: "t-tag", Name: "tag"}})
	s.AddType(types.EntityTypeDetail{EntityType: types.EntityType{ID: "t-product", Name: "product"}})
	s.AddEntity(types.Entity{ID: "c1", Name: "Ocean", Slug: "ocean", EntityTypeID: "t-color", Values: types.Values{"name": "Ocean", "hex": "#0077BE"}})
	s.AddEntity(types.Entity{ID: "c2", Name: "Sand", Slug: "sand", EntityTypeID: "t-color", Values: types.Values{"name": "Sand", "hex": "#C2B280"}})
	s.AddEntity(types.Entity{ID: "g1", Name: "Beach", Slug: "beach", EntityTypeID: "t-tag", Values: types.Values{"name": "Beach"}})
	s.AddEntity(types.Entity{ID: "g2", Name: "Summer", Slug: "summer", EntityTypeID: "t-tag", Values: types.Values{"name": "Summer"}})
	return s
}

type recorder struct{ values []any }

func (r *recorder) onChange(v any) error {
	r.values = append(r.values, v)
	return nil
}

func (r *recorder) last() any {
	if len(r.values) == 0 {
		return nil
	}
	return r.values[len(r.values)-1]
}

func ids(v any) []string {
	var out []string
	for _, r := range selected(v) {
		out = append(out, r.ID)
	}
	return out
}

func TestSingleRelationEditor(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		check func(t *testing.T, e *Editor, rec *recorder, store *memstore.MemoryStore)
	}{
		{
			name: "select requires loaded candidates",
			check: func(t *testing.T, e *Editor, rec *recorder, _ *memstore.MemoryStore) {
				assert.ErrorIs(t, e.Select("c1"), ErrInvalidTransition)
				assert.Empty(t, rec.values)
			},
		},
		{
			name: "load hydrates color candidates and select replaces value",
			check: func(t *testing.T, e *Editor, rec *recorder, store *memstore.MemoryStore) {
				require.NoError(t, e.LoadCandidates(ctx))
				assert.Equal(t, StateCandidatesLoaded, e.State())
				assert.Equal(t, 2, store.Calls(memstore.OpGetEntity), "color candidates are fetched in full")

				opts := e.Options()
				require.Len(t, opts, 2)
				assert.Equal(t, Option{ID: "c1", Label: "Ocean", Hex: "#0077BE"}, opts[0])

				require.NoError(t, e.BeginSelect())
				assert.Equal(t, StateSelecting, e.State())
				require.NoError(t, e.Select("c2"))
				assert.Equal(t, StateCommitted, e.State())
				require.Len(t, rec.values, 1)
				ref, ok := rec.last().(types.EntityRef)
				require.True(t, ok)
				assert.Equal(t, "c2", ref.ID)
				assert.Equal(t, "#C2B280", e.Swatch())

				require.NoError(t, e.Select("c1"))
				assert.Equal(t, []string{"c1"}, ids(rec.last()))
			},
		},
		{
			name: "unknown candidate",
			check: func(t *testing.T, e *Editor, rec *recorder, _ *memstore.MemoryStore) {
				require.NoError(t, e.LoadCandidates(ctx))
				assert.ErrorIs(t, e.Select("g1"), ErrUnknownCandidate)
				assert.Empty(t, rec.values)
			},
		},
		{
			name: "single relation cannot be deselected",
			check: func(t *testing.T, e *Editor, _ *recorder, _ *memstore.MemoryStore) {
				assert.ErrorIs(t, e.Deselect("c1"), ErrDeselectSingle)
			},
		},
		{
			name: "swatch defaults when unset",
			check: func(t *testing.T, e *Editor, _ *recorder, _ *memstore.MemoryStore) {
				assert.True(t, e.IsColor())
				assert.Equal(t, "#888888", e.Swatch())
			},
		},
		{
			name: "candidate load failure is local",
			check: func(t *testing.T, e *Editor, rec *recorder, store *memstore.MemoryStore) {
				store.Fail(memstore.OpListEntities, errors.New("timeout"))
				err := e.LoadCandidates(ctx)
				assert.ErrorIs(t, err, types.ErrFetchFailed)
				assert.ErrorIs(t, e.Err(), types.ErrFetchFailed)
				assert.Equal(t, StateUnloaded, e.State())

				store.Fail(memstore.OpListEntities, nil)
				require.NoError(t, e.LoadCandidates(ctx))
				assert.NoError(t, e.Err())
				assert.Empty(t, rec.values)
			},
		},
		{
			name: "scalar input is refused",
			check: func(t *testing.T, e *Editor, _ *recorder, _ *memstore.MemoryStore) {
				assert.ErrorIs(t, e.Input("c1"), ErrNotScalar)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			rec := &recorder{}
			e := NewDispatcher(store, zap.NewNop()).Dispatch(colorAttr, nil, rec.onChange)
			tt.check(t, e, rec, store)
		})
	}
}

func TestMultiRelationEditor(t *testing.T) {
	ctx := context.Background()
	beach := types.EntityRef{ID: "g1", Name: "Beach", EntityTypeID: "t-tag", EntityTypeName: "tag", Values: types.Values{"name": "Beach"}}
	summer := types.EntityRef{ID: "g2", Name: "Summer", EntityTypeID: "t-tag", EntityTypeName: "tag", Values: types.Values{"name": "Summer"}}

	t.Run("remove emits a new list and leaves the old one intact", func(t *testing.T) {
		store := newStore(t)
		rec := &recorder{}
		original := []types.EntityRef{beach, summer}
		e := NewDispatcher(store, nil).Dispatch(tagsAttr, original, rec.onChange)

		require.NoError(t, e.Deselect("g1"))
		require.Len(t, rec.values, 1)
		assert.Equal(t, []string{"g2"}, ids(rec.last()))
		assert.Equal(t, "g1", original[0].ID)
		assert.Len(t, original, 2)

		require.NoError(t, e.Deselect("g2"))
		assert.Nil(t, rec.last(), "removing the last entity clears the value")
		assert.ErrorIs(t, e.Deselect("g2"), ErrNotSelected)
	})

	t.Run("options exclude selected and add appends", func(t *testing.T) {
		store := newStore(t)
		rec := &recorder{}
		e := NewDispatcher(store, nil).Dispatch(tagsAttr, []any{map[string]any{
			"id": "g1", "name": "Beach", "entity_type_id": "t-tag", "entity_type_name": "tag", "values": map[string]any{"name": "Beach"},
		}}, rec.onChange)
		require.NoError(t, e.LoadCandidates(ctx))
		assert.Equal(t, 0, store.Calls(memstore.OpGetEntity), "non-color candidates are not hydrated")

		opts := e.Options()
		require.Len(t, opts, 1)
		assert.Equal(t, "g2", opts[0].ID)

		require.NoError(t, e.Select("g2"))
		assert.Equal(t, []string{"g1", "g2"}, ids(rec.last()))
		assert.Empty(t, e.Options())
		assert.ErrorIs(t, e.Select("g2"), ErrAlreadySelected)
		assert.Len(t, rec.values, 1)
	})

	t.Run("selected candidate keeps its name", func(t *testing.T) {
		store := newStore(t)
		rec := &recorder{}
		e := NewDispatcher(store, nil).Dispatch(tagsAttr, nil, rec.onChange)
		require.NoError(t, e.LoadCandidates(ctx))
		require.NoError(t, e.Select("g1"))
		refs := rec.last().([]types.EntityRef)
		require.Len(t, refs, 1)
		assert.Equal(t, types.Values{"name": "Beach"}, refs[0].Values)
	})
}

func TestCreateOnDemand(t *testing.T) {
	ctx := context.Background()

	t.Run("create then edit", func(t *testing.T) {
		store := newStore(t)
		product := store.AddEntity(types.Entity{ID: "p1", Name: "Towel", Slug: "towel", EntityTypeID: "t-product", Values: types.Values{"name": "Towel"}})
		sess := session.New(store, product)

		e := NewDispatcher(store, zap.NewNop()).Dispatch(colorAttr, nil, func(v any) error {
			require.NoError(t, sess.SetValue("color", v))
			return nil
		})
		require.NoError(t, e.LoadCandidates(ctx))
		require.NoError(t, e.BeginCreate())
		require.NoError(t, e.SetNewName("Ocean Blue!!"))

		created, err := e.SubmitCreate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ocean-blue", created.Slug)
		assert.Equal(t, "Ocean Blue!!", created.Name)
		assert.Equal(t, types.Values{"name": "Ocean Blue!!"}, created.Values)
		assert.Equal(t, StateCommitted, e.State())
		assert.Empty(t, e.NewName())

		v, ok := sess.Value("color")
		require.True(t, ok)
		assert.Equal(t, []string{created.ID}, ids(v))
		assert.True(t, sess.HasChanges())

		found := false
		for _, o := range e.Options() {
			found = found || o.ID == created.ID
		}
		assert.True(t, found, "created entity joins the candidates")

		updated, err := sess.Commit(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{created.ID}, ids(updated.Values["color"]))
	})

	t.Run("create appends to a multi relation", func(t *testing.T) {
		store := newStore(t)
		rec := &recorder{}
		e := NewDispatcher(store, nil).Dispatch(tagsAttr, nil, rec.onChange)
		require.NoError(t, e.LoadCandidates(ctx))
		require.NoError(t, e.Select("g1"))
		require.NoError(t, e.BeginCreate())
		require.NoError(t, e.SetNewName("  Winter   Sale "))
		created, err := e.SubmitCreate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "winter-sale", created.Slug)
		assert.Equal(t, []string{"g1", created.ID}, ids(rec.last()))
	})

	t.Run("store failure keeps the form and leaves the value alone", func(t *testing.T) {
		store := newStore(t)
		rec := &recorder{}
		e := NewDispatcher(store, zap.NewNop()).Dispatch(colorAttr, nil, rec.onChange)
		require.NoError(t, e.LoadCandidates(ctx))
		require.NoError(t, e.BeginCreate())
		require.NoError(t, e.SetNewName("Ocean"))

		_, err := e.SubmitCreate(ctx)
		assert.ErrorIs(t, err, types.ErrCreateFailed)
		assert.ErrorIs(t, err, types.ErrDuplicateSlug)
		assert.Equal(t, StateCreatingNew, e.State())
		assert.Equal(t, "Ocean", e.NewName())
		assert.Empty(t, rec.values)
		assert.ErrorIs(t, e.Err(), types.ErrCreateFailed)

		require.NoError(t, e.SetNewName("Ocean Deep"))
		_, err = e.SubmitCreate(ctx)
		require.NoError(t, err)
		assert.Len(t, rec.values, 1)
	})

	t.Run("name without slug characters never reaches the store", func(t *testing.T) {
		store := newStore(t)
		rec := &recorder{}
		e := NewDispatcher(store, nil).Dispatch(colorAttr, nil, rec.onChange)
		require.NoError(t, e.LoadCandidates(ctx))
		require.NoError(t, e.BeginCreate())
		require.NoError(t, e.SetNewName("!!!"))
		_, err := e.SubmitCreate(ctx)
		assert.ErrorIs(t, err, types.ErrCreateFailed)
		assert.ErrorIs(t, err, types.ErrInvalidSlug)
		assert.Equal(t, 0, store.Calls(memstore.OpCreateEntity))
		assert.Equal(t, StateCreatingNew, e.State())
	})

	t.Run("cancel returns to candidates", func(t *testing.T) {
		store := newStore(t)
		e := NewDispatcher(store, nil).Dispatch(colorAttr, nil, nil)
		assert.ErrorIs(t, e.BeginCreate(), ErrInvalidTransition)
		require.NoError(t, e.LoadCandidates(ctx))
		require.NoError(t, e.BeginCreate())
		require.NoError(t, e.SetNewName("Teal"))
		require.NoError(t, e.CancelCreate())
		assert.Equal(t, StateCandidatesLoaded, e.State())
		assert.Empty(t, e.NewName())
		assert.ErrorIs(t, e.SetNewName("x"), ErrInvalidTransition)
	})

	t.Run("misconfigured editor refuses everything", func(t *testing.T) {
		store := newStore(t)
		e := NewDispatcher(store, nil).Dispatch(&types.Attribute{Slug: "color", Type: types.AttributeRelation}, nil, nil)
		assert.ErrorIs(t, e.LoadCandidates(ctx), ErrReadOnly)
		assert.ErrorIs(t, e.BeginCreate(), ErrReadOnly)
		assert.ErrorIs(t, e.Input("x"), ErrReadOnly)
		assert.Equal(t, 0, store.Calls(memstore.OpListEntities))
	})
}

func TestEditorSuperseded(t *testing.T) {
	ctx := context.Background()

	t.Run("closed before candidates arrive", func(t *testing.T) {
		store := newStore(t)
		entered := make(chan struct{})
		release := make(chan struct{})
		store.OnCall(func(_ context.Context, op string) {
			if op == memstore.OpListEntities {
				close(entered)
				<-release
			}
		})
		e := NewDispatcher(store, nil).Dispatch(tagsAttr, nil, nil)
		done := make(chan error, 1)
		go func() { done <- e.LoadCandidates(ctx) }()
		<-entered
		e.Close()
		close(release)
		assert.ErrorIs(t, <-done, types.ErrSuperseded)
		assert.Equal(t, StateUnloaded, e.State())
		assert.Empty(t, e.Options())
	})

	t.Run("closed before creation returns", func(t *testing.T) {
		store := newStore(t)
		rec := &recorder{}
		e := NewDispatcher(store, nil).Dispatch(tagsAttr, nil, rec.onChange)
		require.NoError(t, e.LoadCandidates(ctx))
		require.NoError(t, e.BeginCreate())
		require.NoError(t, e.SetNewName("Autumn"))

		entered := make(chan struct{})
		release := make(chan struct{})
		store.OnCall(func(_ context.Context, op string) {
			if op == memstore.OpCreateEntity {
				close(entered)
				<-release
			}
		})
		done := make(chan error, 1)
		go func() {
			_, err := e.SubmitCreate(ctx)
			done <- err
		}()
		<-entered
		assert.ErrorIs(t, e.CancelCreate(), ErrInvalidTransition, "cannot cancel while submitting")
		e.Close()
		close(release)
		assert.ErrorIs(t, <-done, types.ErrSuperseded)
		assert.Empty(t, rec.values)
	})
}

func TestEditorRefusedChange(t *testing.T) {
	ctx := context.Background()
	errRefused := errors.New("refused")
	refuse := func(any) error { return errRefused }

	t.Run("input keeps the previous value", func(t *testing.T) {
		store := newStore(t)
		e := NewDispatcher(store, nil).Dispatch(&types.Attribute{Slug: "price", Type: types.AttributeNumber}, 1.0, refuse)
		assert.ErrorIs(t, e.Input("42"), errRefused)
		assert.Equal(t, 1.0, e.Value())
	})

	t.Run("select restores value and state", func(t *testing.T) {
		store := newStore(t)
		e := NewDispatcher(store, nil).Dispatch(tagsAttr, nil, refuse)
		require.NoError(t, e.LoadCandidates(ctx))
		assert.ErrorIs(t, e.Select("g1"), errRefused)
		assert.Nil(t, e.Value())
		assert.Equal(t, StateCandidatesLoaded, e.State())
		assert.Len(t, e.Options(), 2)
	})

	t.Run("deselect keeps the selection", func(t *testing.T) {
		store := newStore(t)
		beach := types.EntityRef{ID: "g1", Name: "Beach", EntityTypeName: "tag", Values: types.Values{"name": "Beach"}}
		e := NewDispatcher(store, nil).Dispatch(tagsAttr, []types.EntityRef{beach}, refuse)
		assert.ErrorIs(t, e.Deselect("g1"), errRefused)
		assert.Equal(t, []string{"g1"}, ids(e.Value()))
	})

	t.Run("created entity stays a candidate", func(t *testing.T) {
		store := newStore(t)
		e := NewDispatcher(store, nil).Dispatch(colorAttr, nil, refuse)
		require.NoError(t, e.LoadCandidates(ctx))
		require.NoError(t, e.BeginCreate())
		require.NoError(t, e.SetNewName("Teal"))
		created, err := e.SubmitCreate(ctx)
		assert.ErrorIs(t, err, errRefused)
		require.NotEmpty(t, created.ID)
		assert.Nil(t, e.Value())
		assert.Equal(t, StateCandidatesLoaded, e.State())

		found := false
		for _, o := range e.Options() {
			found = found || o.ID == created.ID
		}
		assert.True(t, found)
	})
}
