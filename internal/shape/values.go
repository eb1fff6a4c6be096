package shape

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

var hexPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// DatetimeLayout is the normalized form of datetime values, always UTC.
const DatetimeLayout = "2006-01-02T15:04:05.000Z"

// localLayouts are datetime forms without a zone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDatetime reads an RFC 3339 timestamp, or one of the zone-less
// date-time forms in loc (UTC when nil).
func ParseDatetime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDatetime parses s and formats it in DatetimeLayout.
func NormalizeDatetime(s string, loc *time.Location) (string, bool) {
	t, ok := ParseDatetime(s, loc)
	if !ok {
		return "", false
	}
	return t.UTC().Format(DatetimeLayout), true
}

// IsHex reports whether s is a "#RRGGBB" color code.
func IsHex(s string) bool {
	return hexPattern.MatchString(s)
}

// AsRef reports whether v is a related entity: an EntityRef, an Entity, or
// an object carrying id, name, values and entity_type_name.
func AsRef(v any) (types.EntityRef, bool) {
	switch r := v.(type) {
	case types.EntityRef:
		return r, true
	case *types.EntityRef:
		if r == nil {
			return types.EntityRef{}, false
		}
		return *r, true
	case types.Entity:
		return r.Ref(), true
	case *types.Entity:
		if r == nil {
			return types.EntityRef{}, false
		}
		return r.Ref(), true
	case types.Values:
		return refFromMap(r)
	case map[string]any:
		return refFromMap(r)
	}
	return types.EntityRef{}, false
}

func refFromMap(m map[string]any) (types.EntityRef, bool) {
	for _, k := range []string{"id", "name", "values", "entity_type_name"} {
		if _, ok := m[k]; !ok {
			return types.EntityRef{}, false
		}
	}
	var values types.Values
	switch vals := m["values"].(type) {
	case nil:
	case types.Values:
		values = vals
	case map[string]any:
		values = vals
	default:
		return types.EntityRef{}, false
	}
	ref := types.EntityRef{
		ID:             Stringify(m["id"]),
		Name:           stringField(m["name"]),
		Slug:           stringField(m["slug"]),
		EntityTypeID:   stringField(m["entity_type_id"]),
		EntityTypeName: stringField(m["entity_type_name"]),
		Values:         values,
	}
	return ref, true
}

func stringField(v any) string {
	if v == nil {
		return ""
	}
	return Stringify(v)
}

// AsRefs reports whether v is a non-empty list whose first element is a
// related entity. Later elements that are not related entities, or whose
// entity type differs from the first one's, are dropped.
func AsRefs(v any) ([]types.EntityRef, bool) {
	var items []any
	switch l := v.(type) {
	case []types.EntityRef:
		for _, r := range l {
			items = append(items, r)
		}
	case []types.Entity:
		for _, e := range l {
			items = append(items, e)
		}
	case []map[string]any:
		for _, m := range l {
			items = append(items, m)
		}
	case []any:
		items = l
	default:
		return nil, false
	}
	if len(items) == 0 {
		return nil, false
	}
	first, ok := AsRef(items[0])
	if !ok {
		return nil, false
	}
	out := make([]types.EntityRef, 0, len(items))
	for _, item := range items {
		ref, ok := AsRef(item)
		if !ok {
			continue
		}
		if first.EntityTypeID != "" && ref.EntityTypeID != first.EntityTypeID {
			continue
		}
		out = append(out, ref)
	}
	return out, true
}

// RefIDs returns the ids of the related entities held by v: a single id for
// a related entity, the ordered ids for a related list, nil otherwise.
func RefIDs(v any) []string {
	if ref, ok := AsRef(v); ok {
		return []string{ref.ID}
	}
	if refs, ok := AsRefs(v); ok {
		ids := make([]string, len(refs))
		for i, r := range refs {
			ids[i] = r.ID
		}
		return ids
	}
	return nil
}

// Stringify renders a scalar as text. Numbers use the shortest
// representation; other non-string values are rendered as JSON.
func Stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	}
	if p, ok := primitive(v); ok {
		if f, ok := p.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
