package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/relation"
	"github.com/mesh-intelligence/catalog/internal/shape"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Kind identifies the editing behavior chosen for a value.
type Kind int

// Editor kinds.
const (
	KindNone Kind = iota // nothing to edit; shown as a dash
	KindText
	KindTextarea
	KindNumber
	KindBoolean
	KindHex
	KindDatetime
	KindStructured
	KindSingleRelation
	KindMultiRelation
	KindMisconfigured
)

var kindNames = map[Kind]string{
	KindNone:           "none",
	KindText:           "text",
	KindTextarea:       "textarea",
	KindNumber:         "number",
	KindBoolean:        "boolean",
	KindHex:            "hex",
	KindDatetime:       "datetime",
	KindStructured:     "structured",
	KindSingleRelation: "relation",
	KindMultiRelation:  "relation_multi",
	KindMisconfigured:  "misconfigured",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsRelation reports whether k edits references to other entities.
func (k Kind) IsRelation() bool {
	return k == KindSingleRelation || k == KindMultiRelation
}

// State is the lifecycle state of a relation editor. Scalar editors have no
// lifecycle and stay in StateUnloaded.
type State int

// Relation editor states.
const (
	StateUnloaded State = iota
	StateCandidatesLoaded
	StateSelecting
	StateCreatingNew
	StateCommitted
	StateMisconfigured
)

var stateNames = map[State]string{
	StateUnloaded:         "unloaded",
	StateCandidatesLoaded: "candidates_loaded",
	StateSelecting:        "selecting",
	StateCreatingNew:      "creating_new",
	StateCommitted:        "committed",
	StateMisconfigured:    "misconfigured",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Editor errors.
var (
	ErrReadOnly          = errors.New("value is not editable")
	ErrNotRelation       = errors.New("editor does not edit relations")
	ErrNotScalar         = errors.New("editor does not accept text input")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid editor state transition")
	ErrUnknownCandidate  = errors.New("not a candidate")
	ErrAlreadySelected   = errors.New("already selected")
	ErrNotSelected       = errors.New("not selected")
	ErrDeselectSingle    = errors.New("single relation cannot be deselected")
	ErrClosed            = errors.New("editor is closed")
)

// Option is one selectable candidate of a relation editor.
type Option struct {
	ID    string
	Label string
	Hex   string // resolved color, empty when none
}

// Editor edits one attribute value. All methods are safe for concurrent use.
// The mutex is never held across store calls; results of calls that return
// after Close, or after a newer call of the same kind started, are discarded
// with types.ErrSuperseded.
type Editor struct {
	d        *Dispatcher
	kind     Kind
	attr     *types.Attribute
	target   *types.RelatedEntityType
	onChange ChangeFunc

	mu         sync.Mutex
	state      State
	value      any
	candidates []types.Entity
	newName    string
	err        error
	loads      uint64
	creates    uint64
	changes    uint64
	submitting bool
	closed     bool
}

// Kind returns the editing behavior chosen at dispatch.
func (e *Editor) Kind() Kind { return e.kind }

// Attribute returns the schema entry the editor was built for, or nil.
func (e *Editor) Attribute() *types.Attribute { return e.attr }

// Target returns the entity type a relation editor selects from.
func (e *Editor) Target() *types.RelatedEntityType { return e.target }

// IsColor reports whether the editor selects color entities.
func (e *Editor) IsColor() bool {
	return e.target != nil && e.target.Name == relation.ColorTypeName
}

// State returns the current lifecycle state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Value returns the value as last accepted through onChange.
func (e *Editor) Value() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Err returns the last failure of a candidate load or creation.
func (e *Editor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// NewName returns the name typed into the create form.
func (e *Editor) NewName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.newName
}

// Selected returns the related entities currently held by the value.
func (e *Editor) Selected() []types.EntityRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	return selected(e.value)
}

func selected(v any) []types.EntityRef {
	if ref, ok := shape.AsRef(v); ok {
		return []types.EntityRef{ref}
	}
	if refs, ok := shape.AsRefs(v); ok {
		return refs
	}
	return nil
}

// Swatch returns the preview color of the current value.
func (e *Editor) Swatch() string {
	return relation.Swatch(e.Value())
}

// Close marks the editor as discarded. Pending results are dropped.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

func (e *Editor) relationGuard() error {
	if e.closed {
		return ErrClosed
	}
	if e.kind == KindMisconfigured {
		return ErrReadOnly
	}
	if !e.kind.IsRelation() {
		return ErrNotRelation
	}
	return nil
}

// LoadCandidates fetches the selectable entities of the target type. Color
// candidates are fetched in full so their swatches can be shown. A failure is
// kept on the editor and does not affect any other editor.
func (e *Editor) LoadCandidates(ctx context.Context) error {
	e.mu.Lock()
	if err := e.relationGuard(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.loads++
	gen := e.loads
	target := e.target
	color := e.IsColor()
	e.mu.Unlock()

	candidates, err := e.d.resolver.ListCandidates(ctx, target.ID)
	if err == nil && color {
		candidates, err = e.d.resolver.Hydrate(ctx, candidates)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.loads {
		return types.ErrSuperseded
	}
	if err != nil {
		e.err = err
		return err
	}
	e.err = nil
	e.candidates = candidates
	if e.state == StateUnloaded {
		e.state = StateCandidatesLoaded
	}
	return nil
}

// Options lists the candidates offered for selection. Multi-relation
// editors leave out entities that are already selected.
func (e *Editor) Options() []Option {
	e.mu.Lock()
	defer e.mu.Unlock()
	taken := map[string]bool{}
	if e.kind == KindMultiRelation {
		for _, r := range selected(e.value) {
			taken[r.ID] = true
		}
	}
	out := make([]Option, 0, len(e.candidates))
	for _, c := range e.candidates {
		if taken[c.ID] {
			continue
		}
		opt := Option{ID: c.ID, Label: c.Label()}
		if hex, ok := relation.ResolveColor(c.Ref()); ok {
			opt.Hex = hex
		}
		out = append(out, opt)
	}
	return out
}

// BeginSelect opens the selection list.
func (e *Editor) BeginSelect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.relationGuard(); err != nil {
		return err
	}
	switch e.state {
	case StateCandidatesLoaded, StateCommitted, StateSelecting:
		e.state = StateSelecting
		return nil
	}
	return fmt.Errorf("%w: select from %s", ErrInvalidTransition, e.state)
}

// CancelSelect closes the selection list without changing the value.
func (e *Editor) CancelSelect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.relationGuard(); err != nil {
		return err
	}
	if e.state != StateSelecting {
		return fmt.Errorf("%w: cancel select from %s", ErrInvalidTransition, e.state)
	}
	e.state = StateCandidatesLoaded
	return nil
}

// Select picks the candidate with the given id. A single relation is
// replaced; a multi relation gets the entity appended.
func (e *Editor) Select(id string) error {
	e.mu.Lock()
	if err := e.relationGuard(); err != nil {
		e.mu.Unlock()
		return err
	}
	switch e.state {
	case StateCandidatesLoaded, StateSelecting, StateCommitted:
	default:
		e.mu.Unlock()
		return fmt.Errorf("%w: select from %s", ErrInvalidTransition, e.state)
	}
	var pick *types.Entity
	for i := range e.candidates {
		if e.candidates[i].ID == id {
			pick = &e.candidates[i]
			break
		}
	}
	if pick == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
	}
	next, err := e.withAdded(refOf(*pick))
	if err != nil {
		e.mu.Unlock()
		return err
	}
	return e.apply(next, StateCommitted, e.state)
}

// Deselect removes the entity with the given id from a multi relation.
// Removing the last entity clears the value.
func (e *Editor) Deselect(id string) error {
	e.mu.Lock()
	if err := e.relationGuard(); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.kind != KindMultiRelation {
		e.mu.Unlock()
		return ErrDeselectSingle
	}
	if e.state == StateCreatingNew {
		e.mu.Unlock()
		return fmt.Errorf("%w: deselect from %s", ErrInvalidTransition, e.state)
	}
	current := selected(e.value)
	next := make([]types.EntityRef, 0, len(current))
	found := false
	for _, r := range current {
		if r.ID == id {
			found = true
			continue
		}
		next = append(next, r)
	}
	if !found {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotSelected, id)
	}
	var out any = next
	if len(next) == 0 {
		out = nil
	}
	state := e.state
	if state != StateUnloaded {
		state = StateCommitted
	}
	return e.apply(out, state, e.state)
}

// BeginCreate opens the inline form for creating a new related entity.
func (e *Editor) BeginCreate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.relationGuard(); err != nil {
		return err
	}
	switch e.state {
	case StateCandidatesLoaded, StateSelecting, StateCommitted:
		e.state = StateCreatingNew
		e.newName = ""
		return nil
	}
	return fmt.Errorf("%w: create from %s", ErrInvalidTransition, e.state)
}

// SetNewName records the name typed into the create form.
func (e *Editor) SetNewName(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.relationGuard(); err != nil {
		return err
	}
	if e.state != StateCreatingNew {
		return fmt.Errorf("%w: name entry in %s", ErrInvalidTransition, e.state)
	}
	e.newName = name
	return nil
}

// CancelCreate closes the create form. The value is unchanged.
func (e *Editor) CancelCreate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.relationGuard(); err != nil {
		return err
	}
	if e.state != StateCreatingNew || e.submitting {
		return fmt.Errorf("%w: cancel create from %s", ErrInvalidTransition, e.state)
	}
	e.state = StateCandidatesLoaded
	e.newName = ""
	return nil
}

// SubmitCreate creates an entity of the target type named after the create
// form and selects it. On failure the editor stays in StateCreatingNew with
// the typed name intact, and the value is not touched. When onChange refuses
// the selection, the created entity is returned with the refusal and stays
// among the candidates while the editor returns to StateCandidatesLoaded.
func (e *Editor) SubmitCreate(ctx context.Context) (types.EntityRef, error) {
	e.mu.Lock()
	if err := e.relationGuard(); err != nil {
		e.mu.Unlock()
		return types.EntityRef{}, err
	}
	if e.state != StateCreatingNew || e.submitting {
		e.mu.Unlock()
		return types.EntityRef{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, e.state)
	}
	e.creates++
	gen := e.creates
	e.submitting = true
	name := e.newName
	targetID := e.target.ID
	e.mu.Unlock()

	ref, err := e.d.creator.CreateRelated(ctx, targetID, name)

	e.mu.Lock()
	e.submitting = false
	if e.closed || gen != e.creates {
		e.mu.Unlock()
		return types.EntityRef{}, types.ErrSuperseded
	}
	if err != nil {
		e.err = err
		e.mu.Unlock()
		return types.EntityRef{}, err
	}
	next, err := e.withAdded(ref)
	if err != nil {
		e.mu.Unlock()
		return types.EntityRef{}, err
	}
	e.err = nil
	e.candidates = append(e.candidates, types.Entity(ref))
	e.newName = ""
	e.d.logger.Info("Created related entity",
		zap.String("entity_id", ref.ID),
		zap.String("entity_type_id", targetID))
	if err := e.apply(next, StateCommitted, StateCandidatesLoaded); err != nil {
		return ref, err
	}
	return ref, nil
}

// apply makes next the value and reports it through onChange. A refused
// change puts back the previous value and moves the editor to restore.
// Callers hold mu; apply releases it.
func (e *Editor) apply(next any, state, restore State) error {
	prev := e.value
	e.changes++
	gen := e.changes
	e.value = next
	e.state = state
	e.mu.Unlock()

	err := e.onChange(next)
	if err == nil {
		return nil
	}
	e.mu.Lock()
	if gen == e.changes {
		e.value = prev
		e.state = restore
	}
	e.mu.Unlock()
	return fmt.Errorf("change not recorded: %w", err)
}

// withAdded returns the value that results from adding ref. Callers hold mu.
func (e *Editor) withAdded(ref types.EntityRef) (any, error) {
	if e.kind == KindSingleRelation {
		return ref, nil
	}
	current := selected(e.value)
	for _, r := range current {
		if r.ID == ref.ID {
			return nil, fmt.Errorf("%w: %s", ErrAlreadySelected, ref.ID)
		}
	}
	next := make([]types.EntityRef, 0, len(current)+1)
	next = append(next, current...)
	return append(next, ref), nil
}

// refOf converts a candidate to the reference stored in a value. Candidates
// listed without values carry their name so the label survives.
func refOf(c types.Entity) types.EntityRef {
	ref := c.Ref()
	if len(ref.Values) == 0 {
		ref.Values = types.Values{"name": c.Name}
	} else {
		ref.Values = ref.Values.Clone()
	}
	return ref
}
