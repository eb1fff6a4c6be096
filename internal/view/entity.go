// Package view assembles the per-entity and per-type surfaces a presentation
// layer drives: rows of merged values, display trees, editors wired to the
// edit session, and the commit, discard, reload and delete actions.
package view

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/display"
	"github.com/mesh-intelligence/catalog/internal/editor"
	"github.com/mesh-intelligence/catalog/internal/session"
	"github.com/mesh-intelligence/catalog/internal/shape"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Mode selects between read-only display and editing.
type Mode int

const (
	Viewing Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "viewing"
}

// Options configures a view.
type Options struct {
	Logger *zap.Logger
	// Location reads zone-less datetime input. Defaults to UTC.
	Location *time.Location
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Row is one attribute line of an entity view.
type Row struct {
	Slug      string
	Attribute *types.Attribute // nil when the slug is not in the schema
	Value     any
	Edited    bool
	Shape     shape.Kind
}

// Label returns the attribute name, or the slug for slugs outside the schema.
func (r Row) Label() string {
	if r.Attribute != nil && r.Attribute.Name != "" {
		return r.Attribute.Name
	}
	return r.Slug
}

// EntityView is the editing surface of one entity. It owns the entity's edit
// session and one editor per attribute.
type EntityView struct {
	store      types.Store
	dispatcher *editor.Dispatcher
	logger     *zap.Logger

	mu         sync.Mutex
	entityType types.EntityTypeDetail
	session    *session.Session
	editors    map[string]*editor.Editor
	reloads    uint64
	closed     bool
}

// LoadEntity fetches the entity and its type. A failure here leaves nothing to
// show and is wrapped with types.ErrFetchFailed.
func LoadEntity(ctx context.Context, store types.Store, id string, opts Options) (*EntityView, error) {
	logger := opts.logger()
	entity, detail, err := fetch(ctx, store, id)
	if err != nil {
		logger.Warn("Failed to load entity", zap.String("entity_id", id), zap.Error(err))
		return nil, err
	}
	return &EntityView{
		store:      store,
		dispatcher: editor.NewDispatcher(store, logger).WithLocation(opts.Location),
		logger:     logger,
		entityType: detail,
		session:    session.New(store, entity),
		editors:    make(map[string]*editor.Editor),
	}, nil
}

func fetch(ctx context.Context, store types.Store, id string) (types.Entity, types.EntityTypeDetail, error) {
	entity, err := store.GetEntity(ctx, id)
	if err != nil {
		return types.Entity{}, types.EntityTypeDetail{}, fmt.Errorf("%w: entity %s: %w", types.ErrFetchFailed, id, err)
	}
	detail, err := store.GetEntityType(ctx, entity.EntityTypeID)
	if err != nil {
		return types.Entity{}, types.EntityTypeDetail{}, fmt.Errorf("%w: entity type %s: %w", types.ErrFetchFailed, entity.EntityTypeID, err)
	}
	return entity, detail, nil
}

// Entity returns the current base snapshot.
func (v *EntityView) Entity() types.Entity {
	return v.session.Base()
}

// Type returns the entity's type and schema.
func (v *EntityView) Type() types.EntityTypeDetail {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.entityType
}

// Session returns the edit session.
func (v *EntityView) Session() *session.Session {
	return v.session
}

// Rows lists the attribute lines for mode. Editing lists every schema
// attribute in schema order followed by slugs outside the schema. Viewing
// lists only slugs that hold a value, schema slugs first.
func (v *EntityView) Rows(mode Mode) []Row {
	detail := v.Type()
	merged := v.session.Merged()

	var rows []Row
	seen := make(map[string]bool)
	for _, a := range detail.Ordered() {
		attr := a
		seen[attr.Slug] = true
		val, ok := merged[attr.Slug]
		if mode == Viewing && (!ok || val == nil) {
			continue
		}
		rows = append(rows, v.row(attr.Slug, &attr, val))
	}

	var drift []string
	for slug, val := range merged {
		if seen[slug] || (mode == Viewing && val == nil) {
			continue
		}
		drift = append(drift, slug)
	}
	sort.Strings(drift)
	for _, slug := range drift {
		rows = append(rows, v.row(slug, nil, merged[slug]))
	}
	return rows
}

func (v *EntityView) row(slug string, attr *types.Attribute, val any) Row {
	var declared types.AttributeType
	if attr != nil {
		declared = attr.Type
	}
	return Row{
		Slug:      slug,
		Attribute: attr,
		Value:     val,
		Edited:    v.session.IsEdited(slug),
		Shape:     shape.Classify(val, declared).Kind(),
	}
}

// Display renders the merged value of slug.
func (v *EntityView) Display(slug string) display.Node {
	val, _ := v.session.Value(slug)
	var declared types.AttributeType
	if attr, ok := v.attribute(slug); ok {
		declared = attr.Type
	}
	return display.RenderValue(val, declared)
}

func (v *EntityView) attribute(slug string) (*types.Attribute, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.entityType.Attribute(slug)
}

// Editor returns the editor for slug, creating it on first use from the
// merged value. Its changes are written to the edit session.
func (v *EntityView) Editor(slug string) *editor.Editor {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.editors[slug]; ok {
		return e
	}
	attr, _ := v.entityType.Attribute(slug)
	val, _ := v.session.Value(slug)
	e := v.dispatcher.Dispatch(attr, val, func(nv any) error {
		if err := v.session.SetValue(slug, nv); err != nil {
			v.logger.Warn("Edit not recorded",
				zap.String("slug", slug),
				zap.Error(err))
			return err
		}
		return nil
	})
	v.editors[slug] = e
	return e
}

// resetEditors drops every editor so the next Editor call starts from the
// current merged values. Callers hold mu.
func (v *EntityView) resetEditors() {
	for _, e := range v.editors {
		e.Close()
	}
	v.editors = make(map[string]*editor.Editor)
}

// Commit sends pending edits to the store. On failure the edits stay pending
// and the error wraps types.ErrCommitFailed.
func (v *EntityView) Commit(ctx context.Context) (types.Entity, error) {
	updated, err := v.session.Commit(ctx)
	if err != nil {
		v.logger.Warn("Failed to commit edits",
			zap.String("entity_id", v.session.Base().ID),
			zap.Error(err))
		return types.Entity{}, err
	}
	v.mu.Lock()
	v.resetEditors()
	v.mu.Unlock()
	return updated, nil
}

// Discard drops pending edits.
func (v *EntityView) Discard() error {
	if err := v.session.Discard(); err != nil {
		return err
	}
	v.mu.Lock()
	v.resetEditors()
	v.mu.Unlock()
	return nil
}

// Reload refetches the entity and its type and drops pending edits.
func (v *EntityView) Reload(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return types.ErrSuperseded
	}
	v.reloads++
	gen := v.reloads
	id := v.session.Base().ID
	v.mu.Unlock()

	entity, detail, err := fetch(ctx, v.store, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || gen != v.reloads {
		return types.ErrSuperseded
	}
	if err != nil {
		return err
	}
	v.entityType = detail
	v.session.Replace(entity)
	v.resetEditors()
	return nil
}

// Delete removes the entity from the store and closes the view.
func (v *EntityView) Delete(ctx context.Context) error {
	id := v.session.Base().ID
	if err := v.store.DeleteEntity(ctx, id); err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	v.logger.Info("Deleted entity", zap.String("entity_id", id))
	v.Close()
	return nil
}

// Close discards the view. Results of store calls still in flight are
// dropped.
func (v *EntityView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.resetEditors()
	v.session.Close()
}
