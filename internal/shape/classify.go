package shape

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Classify maps value to its shape. Non-primitive values are classified by
// structure alone. Primitive values follow the declared type when it is a
// scalar type able to represent them; otherwise the value is sniffed in the
// order boolean, number, hex color, plain text.
func Classify(value any, declared types.AttributeType) Shape {
	if value == nil {
		return Unset{}
	}
	if p, ok := primitive(value); ok {
		if declared.IsScalar() {
			return byDeclared(p, declared)
		}
		return sniff(p)
	}
	return byStructure(value)
}

func sniff(p any) Shape {
	switch v := p.(type) {
	case bool:
		return Boolean{Value: v}
	case float64:
		return Number{Value: v}
	case string:
		if IsHex(v) {
			return HexColor{Code: v}
		}
		return PlainText{Text: v}
	}
	return PlainText{Text: Stringify(p)}
}

func byDeclared(p any, declared types.AttributeType) Shape {
	switch declared {
	case types.AttributeNumber:
		switch v := p.(type) {
		case float64:
			return Number{Value: v}
		case string:
			if f, ok := parseNumber(v); ok {
				return Number{Value: f}
			}
		}
	case types.AttributeBoolean:
		switch v := p.(type) {
		case bool:
			return Boolean{Value: v}
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true":
				return Boolean{Value: true}
			case "false":
				return Boolean{Value: false}
			}
		}
	case types.AttributeHex:
		if s, ok := p.(string); ok && IsHex(s) {
			return HexColor{Code: s}
		}
	case types.AttributeDatetime:
		if s, ok := p.(string); ok {
			return PlainText{Text: s, Datetime: true}
		}
	}
	return PlainText{Text: Stringify(p)}
}

func byStructure(value any) Shape {
	if ref, ok := AsRef(value); ok {
		return RelatedSingle{Ref: ref}
	}
	if refs, ok := AsRefs(value); ok {
		return RelatedMulti{Refs: refs}
	}
	return Structured{Value: value}
}

// primitive normalizes scalars to bool, float64 or string.
func primitive(value any) (any, bool) {
	switch v := value.(type) {
	case bool, string:
		return v, true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
		return v.String(), true
	}
	return nil, false
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
