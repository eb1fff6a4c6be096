package editor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/catalog/internal/shape"
)

// Input converts raw text for a scalar editor and reports the result through
// onChange. Blank input clears number, datetime and structured values.
// Invalid input returns ErrInvalidInput and reports nothing. A refusal from
// onChange is returned and the previous value kept.
func (e *Editor) Input(raw string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	switch e.kind {
	case KindNone, KindMisconfigured:
		e.mu.Unlock()
		return ErrReadOnly
	case KindSingleRelation, KindMultiRelation:
		e.mu.Unlock()
		return ErrNotScalar
	}
	v, err := convert(e.kind, raw, e.d.location)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	return e.apply(v, e.state, e.state)
}

func convert(kind Kind, raw string, loc *time.Location) (any, error) {
	switch kind {
	case KindNumber:
		s := strings.TrimSpace(raw)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, raw)
		}
		return f, nil
	case KindBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidInput, raw)
		}
		return b, nil
	case KindDatetime:
		s := strings.TrimSpace(raw)
		if s == "" {
			return nil, nil
		}
		norm, ok := shape.NormalizeDatetime(s, loc)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a date or time", ErrInvalidInput, raw)
		}
		return norm, nil
	case KindStructured:
		s := strings.TrimSpace(raw)
		if s == "" {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return v, nil
	}
	return raw, nil
}
