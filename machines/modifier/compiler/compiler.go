// Package compiler turns event modifier strings such as
// "keydown[altKey][!ctrlKey].prevent" into descriptors.
//
// A modifier string is an event name followed by any number of modifiers:
// bracketed tests and dot-prefixed method names, optionally separated by
// whitespace. Tests and methods are collected into two separate lists; the
// relative order of a test and a method in the source is not kept, because
// all tests are evaluated before any method runs.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robbyt/go-evmod/execution/descriptor"
	"github.com/robbyt/go-evmod/execution/tables"
	"github.com/robbyt/go-evmod/internal/helpers"
)

// Compiler compiles modifier strings. It is safe for concurrent use.
type Compiler struct {
	tables     *tables.Tables
	logHandler slog.Handler
	logger     *slog.Logger
}

// NewCompiler creates a new modifier Compiler with the provided options.
func NewCompiler(opts ...FunctionalOption) (*Compiler, error) {
	c := &Compiler{}
	c.applyDefaults()

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("error applying compiler option: %w", err)
		}
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid compiler configuration: %w", err)
	}

	c.logHandler, c.logger = helpers.LoggerOrDefault(c.logger, c.logHandler, "modifier", "Compiler")
	return c, nil
}

func (c *Compiler) String() string {
	return "modifier.Compiler"
}

// Strict reports whether the compiler validates names against its tables.
func (c *Compiler) Strict() bool {
	return c.tables != nil
}

// Compile parses a modifier string into a descriptor. Malformed input fails
// with an error wrapping ErrSyntax and one of the detail errors; no partial
// descriptor is returned.
func (c *Compiler) Compile(source string) (*descriptor.Descriptor, error) {
	logger := c.logger.WithGroup("compile")

	d, err := parse(source)
	if err != nil {
		logger.Warn("failed to compile modifier", "source", source, "error", err)
		return nil, err
	}

	if c.tables != nil {
		if err := c.checkNames(d); err != nil {
			logger.Warn("modifier references unknown names", "source", source, "error", err)
			return nil, err
		}
	}

	logger.Debug("compiled modifier",
		"source", source,
		"event", d.EventName,
		"tests", len(d.Tests),
		"methods", len(d.MethodNames),
	)
	return d, nil
}

// MustCompile is like Compile but panics on error. It simplifies the
// initialization of package-level descriptors.
func (c *Compiler) MustCompile(source string) *descriptor.Descriptor {
	d, err := c.Compile(source)
	if err != nil {
		panic(err)
	}
	return d
}

func parse(source string) (*descriptor.Descriptor, error) {
	loc := eventNamePattern.FindStringIndex(source)
	if loc == nil {
		return nil, syntaxError(ErrInvalidEventName, source, 0)
	}
	eventName := source[:loc[1]]

	var tests []descriptor.Test
	var methods []string

	pos := loc[1]
	for {
		pos = skipSpace(source, pos)
		if pos == len(source) {
			break
		}

		rest := source[pos:]
		m := modifierPattern.FindStringSubmatchIndex(rest)
		if m == nil {
			switch rest[0] {
			case '[', ']':
				return nil, syntaxError(ErrUnmatchedBracket, source, pos)
			default:
				return nil, syntaxError(ErrUnexpectedInput, source, pos)
			}
		}

		if m[2] >= 0 {
			body := rest[m[2]:m[3]]
			t, ok := parseTest(body)
			if !ok {
				return nil, syntaxError(ErrInvalidTest, source, pos)
			}
			tests = append(tests, t)
		} else {
			methods = append(methods, rest[m[4]:m[5]])
		}
		pos += m[1]
	}

	return &descriptor.Descriptor{
		EventName:   eventName,
		Tests:       tests,
		MethodNames: methods,
	}, nil
}

func (c *Compiler) checkNames(d *descriptor.Descriptor) error {
	var errs []error
	for _, t := range d.Tests {
		if !t.HasOperator() {
			continue
		}
		if _, err := c.tables.Operators.Lookup(t.Operator); err != nil {
			errs = append(errs, err)
		}
		if t.IsVariableRef() {
			if _, err := c.tables.Variables.Lookup(t.Operand.Text); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, name := range d.MethodNames {
		if _, err := c.tables.Methods.Lookup(name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnknownName, errors.Join(errs...))
}

func syntaxError(detail error, source string, offset int) error {
	return fmt.Errorf("%w: %w at offset %d in %q", ErrSyntax, detail, offset, source)
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && strings.IndexByte(" \t\n\r\f\v", s[pos]) >= 0 {
		pos++
	}
	return pos
}
