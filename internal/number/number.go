// Package number coerces the numeric types produced by the JSON, YAML and
// SQLite decoders into a single comparable form.
package number

import (
	"cmp"
	"encoding/json"
)

// ToFloat64 converts supported numeric values to float64.
func ToFloat64(value any) (float64, bool) {
	switch current := value.(type) {
	case int:
		return float64(current), true
	case int8:
		return float64(current), true
	case int16:
		return float64(current), true
	case int32:
		return float64(current), true
	case int64:
		return float64(current), true
	case uint:
		return float64(current), true
	case uint8:
		return float64(current), true
	case uint16:
		return float64(current), true
	case uint32:
		return float64(current), true
	case uint64:
		return float64(current), true
	case float32:
		return float64(current), true
	case float64:
		return current, true
	case json.Number:
		parsed, err := current.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// Is reports whether value is one of the supported numeric types.
func Is(value any) bool {
	_, ok := ToFloat64(value)
	return ok
}

// Equal reports whether two numeric values are the same number. The second
// result is false when either value is not numeric.
func Equal(a, b any) (bool, bool) {
	if x, ok := toInteger(a); ok {
		if y, ok := toInteger(b); ok {
			return x == y, true
		}
	}
	left, ok := ToFloat64(a)
	if !ok {
		return false, false
	}
	right, ok := ToFloat64(b)
	if !ok {
		return false, false
	}
	return left == right, true
}

// Compare orders two numeric values by magnitude. The second result is false
// when either value is not numeric.
func Compare(a, b any) (int, bool) {
	if x, ok := toInteger(a); ok {
		if y, ok := toInteger(b); ok {
			return x.compare(y), true
		}
	}
	left, ok := ToFloat64(a)
	if !ok {
		return 0, false
	}
	right, ok := ToFloat64(b)
	if !ok {
		return 0, false
	}
	return cmp.Compare(left, right), true
}

// integer holds any signed or unsigned 64-bit value exactly. Zero is never
// negative.
type integer struct {
	negative  bool
	magnitude uint64
}

func signed(v int64) integer {
	if v < 0 {
		return integer{negative: true, magnitude: uint64(-(v + 1)) + 1}
	}
	return integer{magnitude: uint64(v)}
}

func (a integer) compare(b integer) int {
	switch {
	case a.negative && !b.negative:
		return -1
	case !a.negative && b.negative:
		return 1
	case a.negative:
		return cmp.Compare(b.magnitude, a.magnitude)
	default:
		return cmp.Compare(a.magnitude, b.magnitude)
	}
}

func toInteger(value any) (integer, bool) {
	switch current := value.(type) {
	case int:
		return signed(int64(current)), true
	case int8:
		return signed(int64(current)), true
	case int16:
		return signed(int64(current)), true
	case int32:
		return signed(int64(current)), true
	case int64:
		return signed(current), true
	case uint:
		return integer{magnitude: uint64(current)}, true
	case uint8:
		return integer{magnitude: uint64(current)}, true
	case uint16:
		return integer{magnitude: uint64(current)}, true
	case uint32:
		return integer{magnitude: uint64(current)}, true
	case uint64:
		return integer{magnitude: current}, true
	case json.Number:
		parsed, err := current.Int64()
		if err != nil {
			return integer{}, false
		}
		return signed(parsed), true
	default:
		return integer{}, false
	}
}
