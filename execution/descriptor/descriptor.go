// Package descriptor holds the compiled form of an event modifier string:
// the event name, its filter tests and the event-control methods to run
// when every test passes.
//
// A Descriptor is the interchange format between the compiler and the
// evaluator. It can be produced by the compiler or built directly with New,
// and is never mutated after construction, so one value can be shared by any
// number of bindings.
package descriptor

import (
	"slices"
	"strings"
)

// Test is one filter condition of a descriptor.
//
// A test without an operator is a truthiness check on Property. Negate
// applies to the final boolean result of the test, after the operator.
type Test struct {
	Negate   bool    `json:"negate,omitempty"   yaml:"negate,omitempty"`
	Property string  `json:"property"           yaml:"property"`
	Operator string  `json:"operator,omitempty" yaml:"operator,omitempty"`
	Operand  Operand `json:"operand"            yaml:"operand"`
}

// HasOperator reports whether the test compares the property against an operand.
func (t Test) HasOperator() bool {
	return t.Operator != ""
}

// IsVariableRef reports whether the operand must be resolved through the variable table.
func (t Test) IsVariableRef() bool {
	return t.Operand.Kind == OperandIdentifier
}

// Negated returns a copy of the test with the negate flag flipped.
func (t Test) Negated() Test {
	t.Negate = !t.Negate
	return t
}

// String renders the test body in modifier syntax, without brackets.
func (t Test) String() string {
	var sb strings.Builder
	if t.Negate {
		sb.WriteByte('!')
	}
	sb.WriteString(t.Property)
	if !t.HasOperator() {
		return sb.String()
	}
	if isWordOperator(t.Operator) {
		sb.WriteByte(' ')
		sb.WriteString(t.Operator)
		sb.WriteByte(' ')
	} else {
		sb.WriteString(t.Operator)
	}
	sb.WriteString(t.Operand.String())
	return sb.String()
}

// Descriptor is an event name plus its ordered tests and ordered method names.
type Descriptor struct {
	EventName   string   `json:"event"             yaml:"event"`
	Tests       []Test   `json:"tests,omitempty"   yaml:"tests,omitempty"`
	MethodNames []string `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// New builds a descriptor directly, bypassing the compiler. The slices are copied.
func New(eventName string, tests []Test, methodNames []string) *Descriptor {
	return &Descriptor{
		EventName:   eventName,
		Tests:       slices.Clone(tests),
		MethodNames: slices.Clone(methodNames),
	}
}

// HasModifiers reports whether the descriptor carries any tests or methods.
// A descriptor without modifiers is a plain event name.
func (d *Descriptor) HasModifiers() bool {
	return len(d.Tests) > 0 || len(d.MethodNames) > 0
}

// String renders the descriptor back to modifier syntax. Tests are written
// before methods, which is also the order in which they take effect.
func (d *Descriptor) String() string {
	var sb strings.Builder
	sb.WriteString(d.EventName)
	for _, t := range d.Tests {
		sb.WriteByte('[')
		sb.WriteString(t.String())
		sb.WriteByte(']')
	}
	for _, m := range d.MethodNames {
		sb.WriteByte('.')
		sb.WriteString(m)
	}
	return sb.String()
}

// isWordOperator reports whether op is written with letters or digits, and so
// needs whitespace on both sides in modifier syntax.
func isWordOperator(op string) bool {
	for _, r := range op {
		if r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			return true
		}
	}
	return false
}
