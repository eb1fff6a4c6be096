// Package editor selects and drives the editing behavior for an attribute
// value. Each attribute gets its own Editor; editors report every change
// synchronously through an onChange callback and never write to the store
// except to create related entities on demand.
package editor

import (
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/relation"
	"github.com/mesh-intelligence/catalog/internal/shape"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Dispatcher builds editors. It is safe for concurrent use.
type Dispatcher struct {
	resolver *relation.Resolver
	creator  *Creator
	logger   *zap.Logger
	location *time.Location
}

// NewDispatcher creates a Dispatcher backed by store. Datetime input without
// a zone is read as UTC; see WithLocation.
func NewDispatcher(store types.Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		resolver: relation.NewResolver(store, logger),
		creator:  NewCreator(store, logger),
		logger:   logger,
		location: time.UTC,
	}
}

// WithLocation returns a copy of d that reads zone-less datetime input in loc.
func (d *Dispatcher) WithLocation(loc *time.Location) *Dispatcher {
	cp := *d
	if loc == nil {
		loc = time.UTC
	}
	cp.location = loc
	return &cp
}

// ChangeFunc receives every new value of an editor. A non-nil error refuses
// the change; the editor keeps its previous value and returns the error.
type ChangeFunc func(value any) error

// Dispatch returns the editor for one attribute value. attr may be nil for
// slugs that are not part of the schema; such values are edited by their
// runtime shape, and absent ones get a read-only editor. Object-like values
// are always edited by their runtime shape. onChange receives the complete
// new value on every edit.
func (d *Dispatcher) Dispatch(attr *types.Attribute, value any, onChange ChangeFunc) *Editor {
	if onChange == nil {
		onChange = func(any) error { return nil }
	}
	e := &Editor{
		d:        d,
		attr:     attr,
		value:    value,
		onChange: onChange,
	}

	if attr.Misconfigured() {
		e.kind = KindMisconfigured
		e.state = StateMisconfigured
		d.logger.Debug("Relation attribute has no target type",
			zap.String("attribute", attr.Slug))
		return e
	}

	var declared types.AttributeType
	if attr != nil {
		declared = attr.Type
	}
	s := shape.Classify(value, declared)

	switch v := s.(type) {
	case shape.RelatedSingle:
		e.setRelation(KindSingleRelation, targetOf(attr, v.Ref))
		return e
	case shape.RelatedMulti:
		e.setRelation(KindMultiRelation, targetOf(attr, v.Refs[0]))
		return e
	case shape.Structured:
		if attr != nil && attr.Type.IsRelation() && isEmptyList(value) {
			e.value = nil
			e.setRelation(relationKind(attr.Type), attr.RelatedEntityType)
			return e
		}
		e.kind = KindStructured
		return e
	}

	if attr == nil {
		e.kind = kindOfShape(s)
		return e
	}
	switch attr.Type {
	case types.AttributeRelation, types.AttributeRelationMulti:
		if s.Kind() != shape.KindUnset {
			// A scalar where a relation belongs cannot be offered as a selection.
			e.kind = kindOfShape(s)
			return e
		}
		e.setRelation(relationKind(attr.Type), attr.RelatedEntityType)
	case types.AttributeText:
		e.kind = KindText
	case types.AttributeTextarea:
		e.kind = KindTextarea
	case types.AttributeNumber:
		e.kind = KindNumber
	case types.AttributeBoolean:
		e.kind = KindBoolean
	case types.AttributeHex:
		e.kind = KindHex
	case types.AttributeDatetime:
		e.kind = KindDatetime
	case types.AttributeJSON:
		e.kind = KindStructured
	default:
		e.kind = KindText
	}
	return e
}

func (e *Editor) setRelation(kind Kind, target *types.RelatedEntityType) {
	if target == nil || target.ID == "" {
		e.kind = KindMisconfigured
		e.state = StateMisconfigured
		return
	}
	e.kind = kind
	e.target = target
	e.state = StateUnloaded
}

func relationKind(t types.AttributeType) Kind {
	if t == types.AttributeRelationMulti {
		return KindMultiRelation
	}
	return KindSingleRelation
}

// targetOf prefers the schema's target type and falls back to the type of
// the related entity itself.
func targetOf(attr *types.Attribute, ref types.EntityRef) *types.RelatedEntityType {
	if attr != nil && attr.RelatedEntityType != nil && attr.RelatedEntityType.ID != "" {
		return attr.RelatedEntityType
	}
	return &types.RelatedEntityType{ID: ref.EntityTypeID, Name: ref.EntityTypeName}
}

func kindOfShape(s shape.Shape) Kind {
	switch v := s.(type) {
	case shape.Unset:
		return KindNone
	case shape.Boolean:
		return KindBoolean
	case shape.Number:
		return KindNumber
	case shape.HexColor:
		return KindHex
	case shape.PlainText:
		if v.Datetime {
			return KindDatetime
		}
		return KindText
	case shape.Structured:
		return KindStructured
	}
	return KindText
}

func isEmptyList(v any) bool {
	switch l := v.(type) {
	case []any:
		return len(l) == 0
	case []types.EntityRef:
		return len(l) == 0
	case []map[string]any:
		return len(l) == 0
	}
	return false
}
