package data

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// The helpers below give event property values the loose, dynamically typed
// semantics that modifier tests are written against: numbers compare with
// numeric strings, missing values are falsy, strings order lexicographically.

// Truthy reports whether a property value counts as true in a bare test.
// nil, false, zero, NaN and the empty string are falsy; everything else is truthy.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	if n, ok := numeric(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

// ToNumber converts a value to a float64. Booleans convert to 0 or 1 and
// strings are parsed after trimming whitespace, with the empty string
// converting to 0. The second result is false when no conversion exists.
func ToNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return math.NaN(), false
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), false
		}
		return n, true
	}
	if n, ok := numeric(v); ok {
		return n, true
	}
	return math.NaN(), false
}

// ToString renders a value the way it reads in a string comparison.
// Integral floats print without a fractional part and nil prints as "".
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}

// LooseEqual compares two values, converting between numbers, numeric
// strings and booleans when the kinds differ.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	if aIsString && bIsString {
		return as == bs
	}

	if isScalar(a) && isScalar(b) {
		an, aok := ToNumber(a)
		bn, bok := ToNumber(b)
		return aok && bok && an == bn
	}

	return reflect.DeepEqual(a, b)
}

// Compare orders two values. Two strings compare lexicographically; any other
// pair is compared numerically. The second result is false when the values
// have no ordering, in which case every relational operator is false.
func Compare(a, b any) (int, bool) {
	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	if aIsString && bIsString {
		return strings.Compare(as, bs), true
	}

	if !isScalar(a) || !isScalar(b) {
		return 0, false
	}
	an, aok := ToNumber(a)
	bn, bok := ToNumber(b)
	if !aok || !bok || math.IsNaN(an) || math.IsNaN(bn) {
		return 0, false
	}
	switch {
	case an < bn:
		return -1, true
	case an > bn:
		return 1, true
	default:
		return 0, true
	}
}

// isScalar reports whether v is a bool, string or number.
func isScalar(v any) bool {
	switch v.(type) {
	case bool, string:
		return true
	}
	_, ok := numeric(v)
	return ok
}

func numeric(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	}
	return 0, false
}
