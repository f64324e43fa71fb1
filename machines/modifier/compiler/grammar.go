package compiler

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/robbyt/go-evmod/execution/descriptor"
)

var (
	eventNamePattern = regexp.MustCompile(`^[\w-]+`)

	// modifierPattern matches one modifier at the start of the remaining input.
	modifierPattern = regexp.MustCompile(`^(?:\[([^\]]*)\]|\.(\w+))`)

	// testPattern matches a whole test body. Submatches: negation, property,
	// symbolic operator, word operator, operand. The symbolic operator is the
	// shortest run of punctuation that leaves a valid operand, so "a>-1"
	// compares against -1.
	testPattern = regexp.MustCompile(
		`^\s*(!)?\s*([\w-]+)\s*(?:(?:([^\w\s]+?)|\s([^\s'"]+)\s)\s*(` + operandPattern + `))?\s*$`,
	)

	numberPattern = regexp.MustCompile(`^` + numberLiteral + `$`)
)

const (
	numberLiteral  = `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`
	operandPattern = numberLiteral + `|".*"|'.*'|\w+`
)

// classifyOperand turns operand text into a Number, a String or an Identifier,
// in that order of preference. Numeric literals out of float64 range become
// infinities.
func classifyOperand(text string) descriptor.Operand {
	if numberPattern.MatchString(text) {
		n, err := strconv.ParseFloat(text, 64)
		if err == nil || errors.Is(err, strconv.ErrRange) {
			return descriptor.Number(n)
		}
	}
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' || first == '\'') && first == last {
			return descriptor.String(text[1 : len(text)-1])
		}
	}
	return descriptor.Identifier(text)
}

// parseTest parses the body of a bracketed modifier.
func parseTest(body string) (descriptor.Test, bool) {
	m := testPattern.FindStringSubmatch(body)
	if m == nil {
		return descriptor.Test{}, false
	}
	t := descriptor.Test{
		Negate:   m[1] != "",
		Property: m[2],
		Operator: m[3],
	}
	if t.Operator == "" {
		t.Operator = m[4]
	}
	if t.Operator != "" {
		t.Operand = classifyOperand(m[5])
	}
	return t, true
}
