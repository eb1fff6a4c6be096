package sqlite

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/catalog/internal/shape"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// attrInfo is the part of an attribute the write path needs.
type attrInfo struct {
	id     string
	slug   string
	typ    types.AttributeType
	target string
}

// encodeValue converts v to the JSON text stored for a non-relation
// attribute. Values that do not fit the declared type return
// ErrInvalidValue.
func encodeValue(attr attrInfo, v any) (string, error) {
	var stored any
	switch attr.typ {
	case types.AttributeText, types.AttributeTextarea:
		s, ok := v.(string)
		if !ok {
			return "", invalidValue(attr, v)
		}
		stored = s
	case types.AttributeHex:
		s, ok := v.(string)
		if !ok || !shape.IsHex(s) {
			return "", invalidValue(attr, v)
		}
		stored = s
	case types.AttributeNumber:
		f, ok := toNumber(v)
		if !ok {
			return "", invalidValue(attr, v)
		}
		stored = f
	case types.AttributeBoolean:
		bv, ok := toBool(v)
		if !ok {
			return "", invalidValue(attr, v)
		}
		stored = bv
	case types.AttributeDatetime:
		s, ok := v.(string)
		if !ok {
			return "", invalidValue(attr, v)
		}
		norm, ok := shape.NormalizeDatetime(s, time.UTC)
		if !ok {
			return "", invalidValue(attr, v)
		}
		stored = norm
	default:
		stored = v
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", types.ErrInvalidValue, attr.slug, err)
	}
	return string(data), nil
}

func invalidValue(attr attrInfo, v any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", types.ErrInvalidValue, attr.slug, attr.typ, v)
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// relationID extracts a related entity ID from an ID string, a number, an
// entity reference or an object carrying "id".
func relationID(v any) (string, bool) {
	switch r := v.(type) {
	case string:
		r = strings.TrimSpace(r)
		return r, r != ""
	case float64:
		return strconv.FormatFloat(r, 'f', -1, 64), true
	case int:
		return strconv.Itoa(r), true
	case int64:
		return strconv.FormatInt(r, 10), true
	case json.Number:
		return r.String(), true
	case types.EntityRef:
		return r.ID, r.ID != ""
	case *types.EntityRef:
		if r == nil {
			return "", false
		}
		return r.ID, r.ID != ""
	case types.Entity:
		return r.ID, r.ID != ""
	case map[string]any:
		return relationID(r["id"])
	case types.Values:
		return relationID(r["id"])
	}
	return "", false
}

// relationIDs extracts the ordered, de-duplicated IDs of a multi relation.
// Items that carry no ID are skipped; a value that is not a list returns
// ErrInvalidValue.
func relationIDs(attr attrInfo, v any) ([]string, error) {
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []string:
		for _, s := range list {
			items = append(items, s)
		}
	case []types.EntityRef:
		for _, r := range list {
			items = append(items, r)
		}
	case []types.Entity:
		for _, e := range list {
			items = append(items, e)
		}
	case []map[string]any:
		for _, m := range list {
			items = append(items, m)
		}
	default:
		return nil, invalidValue(attr, v)
	}

	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, ok := relationID(item)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
