package descriptor

import (
	"fmt"
	"strconv"
	"strings"
)

// OperandKind tags the right-hand side of a test.
type OperandKind int

const (
	// OperandNone means the test has no operand (a plain truthiness check).
	OperandNone OperandKind = iota

	// OperandNumber is a base-10 floating point literal.
	OperandNumber

	// OperandString is a quote-stripped string literal.
	OperandString

	// OperandIdentifier is a variable reference resolved per event.
	OperandIdentifier
)

var operandKindNames = map[OperandKind]string{
	OperandNone:       "none",
	OperandNumber:     "number",
	OperandString:     "string",
	OperandIdentifier: "identifier",
}

func (k OperandKind) String() string {
	if name, ok := operandKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k OperandKind) MarshalText() ([]byte, error) {
	name, ok := operandKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown operand kind %d", int(k))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OperandKind) UnmarshalText(text []byte) error {
	for kind, name := range operandKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown operand kind %q", text)
}

// Operand is the tagged right-hand side of a test: a Number, a String, or an
// Identifier naming a variable that is resolved when the test is evaluated.
type Operand struct {
	Kind   OperandKind `json:"kind"             yaml:"kind"`
	Number float64     `json:"number,omitempty" yaml:"number,omitempty"`
	Text   string      `json:"text,omitempty"   yaml:"text,omitempty"`
}

// Number returns a numeric literal operand.
func Number(v float64) Operand {
	return Operand{Kind: OperandNumber, Number: v}
}

// String returns a string literal operand.
func String(s string) Operand {
	return Operand{Kind: OperandString, Text: s}
}

// Identifier returns a variable reference operand.
func Identifier(name string) Operand {
	return Operand{Kind: OperandIdentifier, Text: name}
}

// IsZero reports whether the operand is absent.
func (o Operand) IsZero() bool {
	return o.Kind == OperandNone
}

// Literal returns the literal value of a Number or String operand.
// The second result is false for identifiers and absent operands.
func (o Operand) Literal() (any, bool) {
	switch o.Kind {
	case OperandNumber:
		return o.Number, true
	case OperandString:
		return o.Text, true
	default:
		return nil, false
	}
}

// String renders the operand in modifier syntax.
func (o Operand) String() string {
	switch o.Kind {
	case OperandNumber:
		return strconv.FormatFloat(o.Number, 'f', -1, 64)
	case OperandString:
		if strings.Contains(o.Text, `"`) {
			return "'" + o.Text + "'"
		}
		return `"` + o.Text + `"`
	case OperandIdentifier:
		return o.Text
	default:
		return ""
	}
}
