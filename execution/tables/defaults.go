package tables

import (
	"context"
	"slices"
	"strings"

	"github.com/robbyt/go-evmod/execution/data"
)

// Names of the default methods.
const (
	MethodStop          = "stop"
	MethodStopImmediate = "stopImmediate"
	MethodPrevent       = "prevent"
)

// Names of the default variables.
const (
	VariableArrowForward  = "ARROW_FORWARD"
	VariableArrowBackward = "ARROW_BACKWARD"
)

// DefaultOperators returns a fresh map of the built-in operators.
//
// Equality is loose: numbers equal numeric strings. The relational operators
// compare two strings lexicographically and anything else numerically; values
// without an ordering make every relational operator false. The string
// operators require a string property value and are false otherwise, except
// that includes also accepts a list.
func DefaultOperators() map[string]OperatorFunc {
	return map[string]OperatorFunc{
		"=":  data.LooseEqual,
		"!=": func(l, r any) bool { return !data.LooseEqual(l, r) },
		">":  ordered(func(c int) bool { return c > 0 }),
		">=": ordered(func(c int) bool { return c >= 0 }),
		"<":  ordered(func(c int) bool { return c < 0 }),
		"<=": ordered(func(c int) bool { return c <= 0 }),
		"startsWith": func(l, r any) bool {
			s, ok := l.(string)
			return ok && strings.HasPrefix(s, data.ToString(r))
		},
		"endsWith": func(l, r any) bool {
			s, ok := l.(string)
			return ok && strings.HasSuffix(s, data.ToString(r))
		},
		"includes": includes,
	}
}

// DefaultVariables returns a fresh map of the built-in variables.
//
// ARROW_FORWARD is the arrow key that moves forward in the writing direction
// of the event target: ArrowLeft for right-to-left content, ArrowRight otherwise.
// ARROW_BACKWARD is the opposite key.
func DefaultVariables() map[string]VariableFunc {
	return map[string]VariableFunc{
		VariableArrowForward: func(_ context.Context, ev data.Event) (any, error) {
			if isRTL(ev) {
				return "ArrowLeft", nil
			}
			return "ArrowRight", nil
		},
		VariableArrowBackward: func(_ context.Context, ev data.Event) (any, error) {
			if isRTL(ev) {
				return "ArrowRight", nil
			}
			return "ArrowLeft", nil
		},
	}
}

// DefaultMethods returns a fresh map of the built-in event-control methods.
func DefaultMethods() map[string]MethodFunc {
	return map[string]MethodFunc{
		MethodStop:          func(ev data.Event) { ev.StopPropagation() },
		MethodStopImmediate: func(ev data.Event) { ev.StopImmediatePropagation() },
		MethodPrevent:       func(ev data.Event) { ev.PreventDefault() },
	}
}

func ordered(accept func(int) bool) OperatorFunc {
	return func(l, r any) bool {
		c, ok := data.Compare(l, r)
		return ok && accept(c)
	}
}

func includes(l, r any) bool {
	switch v := l.(type) {
	case string:
		return strings.Contains(v, data.ToString(r))
	case []any:
		return slices.ContainsFunc(v, func(item any) bool { return sameValue(item, r) })
	case []string:
		s, ok := r.(string)
		return ok && slices.Contains(v, s)
	}
	return false
}

// sameValue is strict equality, except that numbers of different Go types compare by value.
func sameValue(a, b any) bool {
	an, aok := data.ToNumber(a)
	bn, bok := data.ToNumber(b)
	_, aString := a.(string)
	_, bString := b.(string)
	_, aBool := a.(bool)
	_, bBool := b.(bool)
	if aok && bok && !aString && !bString && !aBool && !bBool {
		return an == bn
	}
	if !isComparable(a) || !isComparable(b) {
		return false
	}
	return a == b
}

func isComparable(v any) bool {
	switch v.(type) {
	case nil, bool, string:
		return true
	}
	_, ok := data.ToNumber(v)
	return ok
}

func isRTL(ev data.Event) bool {
	if dp, ok := ev.(data.DirectionProvider); ok {
		return dp.Direction() == "rtl"
	}
	if v, ok := ev.Property("direction"); ok {
		return v == "rtl"
	}
	return false
}
