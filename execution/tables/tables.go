// Package tables holds the three name-keyed dispatch tables consulted when a
// compiled descriptor is evaluated: operators, variables and methods.
//
// Tables are passed to the compiler and evaluator explicitly rather than held
// in package state, so independent engines (and tests) never share entries by
// accident. All three tables are safe for concurrent use.
package tables

import (
	"context"

	"github.com/robbyt/go-evmod/execution/data"
)

// OperatorFunc is a binary predicate applied to a property value and an operand value.
type OperatorFunc func(left, right any) bool

// VariableFunc computes the value of a variable operand for one event. It is
// called once per test per event and its result is never cached.
type VariableFunc func(ctx context.Context, ev data.Event) (any, error)

// MethodFunc is an event-control action invoked for its side effect.
type MethodFunc func(ev data.Event)

// Tables bundles the operator, variable and method tables used by one engine.
type Tables struct {
	Operators *Registry[OperatorFunc]
	Variables *Registry[VariableFunc]
	Methods   *Registry[MethodFunc]
}

// New returns tables seeded with the default operators, variables and methods.
func New() *Tables {
	t := NewEmpty()
	for name, fn := range DefaultOperators() {
		t.Operators.entries[name] = fn
	}
	for name, fn := range DefaultVariables() {
		t.Variables.entries[name] = fn
	}
	for name, fn := range DefaultMethods() {
		t.Methods.entries[name] = fn
	}
	return t
}

// NewEmpty returns tables with no entries.
func NewEmpty() *Tables {
	return &Tables{
		Operators: newRegistry[OperatorFunc](ErrUnknownOperator),
		Variables: newRegistry[VariableFunc](ErrUnknownVariable),
		Methods:   newRegistry[MethodFunc](ErrUnknownMethod),
	}
}

// Clone returns an independent copy of the tables. Changes to the copy are not
// visible through the original and vice versa.
func (t *Tables) Clone() *Tables {
	return &Tables{
		Operators: t.Operators.clone(),
		Variables: t.Variables.clone(),
		Methods:   t.Methods.clone(),
	}
}
