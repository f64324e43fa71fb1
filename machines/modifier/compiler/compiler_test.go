package compiler

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/robbyt/go-evmod/execution/descriptor"
	"github.com/robbyt/go-evmod/execution/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCompiler(t *testing.T, opts ...FunctionalOption) *Compiler {
	t.Helper()
	handler := slog.NewTextHandler(&bytes.Buffer{}, nil)
	c, err := NewCompiler(append([]FunctionalOption{WithLogHandler(handler)}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestCompile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		want   descriptor.Descriptor
	}{
		{
			name:   "plain event name",
			source: "click",
			want:   descriptor.Descriptor{EventName: "click"},
		},
		{
			name:   "event name with hyphen and digits",
			source: "my-event_2.stop",
			want:   descriptor.Descriptor{EventName: "my-event_2", MethodNames: []string{"stop"}},
		},
		{
			name:   "truthiness tests and a method",
			source: "keydown[altKey][!ctrlKey].prevent",
			want: descriptor.Descriptor{
				EventName: "keydown",
				Tests: []descriptor.Test{
					{Property: "altKey"},
					{Negate: true, Property: "ctrlKey"},
				},
				MethodNames: []string{"prevent"},
			},
		},
		{
			name:   "negated string comparison",
			source: `keydown[!code>"KeyM"]`,
			want: descriptor.Descriptor{
				EventName: "keydown",
				Tests: []descriptor.Test{
					{Negate: true, Property: "code", Operator: ">", Operand: descriptor.String("KeyM")},
				},
			},
		},
		{
			name:   "spaces between and inside modifiers",
			source: "keydown .stop[ code = ARROW_FORWARD ] .prevent [ctrlKey] [ ! altKey ]",
			want: descriptor.Descriptor{
				EventName: "keydown",
				Tests: []descriptor.Test{
					{Property: "code", Operator: "=", Operand: descriptor.Identifier("ARROW_FORWARD")},
					{Property: "ctrlKey"},
					{Negate: true, Property: "altKey"},
				},
				MethodNames: []string{"stop", "prevent"},
			},
		},
		{
			name:   "word operator",
			source: `keyup[code startsWith "Key"]`,
			want: descriptor.Descriptor{
				EventName: "keyup",
				Tests: []descriptor.Test{
					{Property: "code", Operator: "startsWith", Operand: descriptor.String("Key")},
				},
			},
		},
		{
			name:   "two character operator",
			source: "wheel[deltaY>=2]",
			want: descriptor.Descriptor{
				EventName: "wheel",
				Tests: []descriptor.Test{
					{Property: "deltaY", Operator: ">=", Operand: descriptor.Number(2)},
				},
			},
		},
		{
			name:   "negative operand without a space",
			source: "wheel[deltaY>-1]",
			want: descriptor.Descriptor{
				EventName: "wheel",
				Tests: []descriptor.Test{
					{Property: "deltaY", Operator: ">", Operand: descriptor.Number(-1)},
				},
			},
		},
		{
			name:   "hyphenated property",
			source: "custom[data-id!='x']",
			want: descriptor.Descriptor{
				EventName: "custom",
				Tests: []descriptor.Test{
					{Property: "data-id", Operator: "!=", Operand: descriptor.String("x")},
				},
			},
		},
		{
			name:   "methods keep their order",
			source: "click.prevent.stop",
			want:   descriptor.Descriptor{EventName: "click", MethodNames: []string{"prevent", "stop"}},
		},
		{
			name:   "method before test",
			source: "click.stop[altKey]",
			want: descriptor.Descriptor{
				EventName:   "click",
				Tests:       []descriptor.Test{{Property: "altKey"}},
				MethodNames: []string{"stop"},
			},
		},
		{
			name:   "unknown names are not checked without tables",
			source: "click[a~FOO].teleport",
			want: descriptor.Descriptor{
				EventName: "click",
				Tests: []descriptor.Test{
					{Property: "a", Operator: "~", Operand: descriptor.Identifier("FOO")},
				},
				MethodNames: []string{"teleport"},
			},
		},
	}

	c := newTestCompiler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := c.Compile(tt.source)
			require.NoError(t, err)
			require.Equal(t, tt.want, *got)
		})
	}
}

func TestCompileEventName(t *testing.T) {
	t.Parallel()

	c := newTestCompiler(t)
	for _, source := range []string{
		"click",
		"keydown[altKey]",
		"my-event.stop",
		"a_b-c [x] .y",
		"pointer-down[button=0]",
	} {
		d, err := c.Compile(source)
		require.NoError(t, err, source)
		want := eventNamePattern.FindString(source)
		assert.Equal(t, want, d.EventName, source)
	}
}

func TestClassifyOperand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want descriptor.Operand
	}{
		{"123", descriptor.Number(123)},
		{"1.5", descriptor.Number(1.5)},
		{".5", descriptor.Number(0.5)},
		{"-2", descriptor.Number(-2)},
		{"1e3", descriptor.Number(1000)},
		{"1e999", descriptor.Number(math.Inf(1))},
		{"-1e999", descriptor.Number(math.Inf(-1))},
		{"1e-999", descriptor.Number(0)},
		{`"abc"`, descriptor.String("abc")},
		{`'abc'`, descriptor.String("abc")},
		{`""`, descriptor.String("")},
		{`'it"s'`, descriptor.String(`it"s`)},
		{`"a\nb"`, descriptor.String(`a\nb`)},
		{"FOO", descriptor.Identifier("FOO")},
		{"123abc", descriptor.Identifier("123abc")},
		{"Infinity", descriptor.Identifier("Infinity")},
		{"NaN", descriptor.Identifier("NaN")},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classifyOperand(tt.text))
		})
	}
}

func TestCompileOperandKinds(t *testing.T) {
	t.Parallel()

	c := newTestCompiler(t)
	tests := []struct {
		source string
		want   descriptor.Operand
	}{
		{"click[detail=123]", descriptor.Number(123)},
		{"click[detail='abc']", descriptor.String("abc")},
		{`click[detail="abc"]`, descriptor.String("abc")},
		{"click[detail=FOO]", descriptor.Identifier("FOO")},
		{"click[detail = 123abc]", descriptor.Identifier("123abc")},
		{`click[detail="a b"]`, descriptor.String("a b")},
		{"wheel[deltaY < 1e999]", descriptor.Number(math.Inf(1))},
		{"wheel[deltaY>-1e999]", descriptor.Number(math.Inf(-1))},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			t.Parallel()
			d, err := c.Compile(tt.source)
			require.NoError(t, err)
			require.Len(t, d.Tests, 1)
			assert.Equal(t, tt.want, d.Tests[0].Operand)
		})
	}
}

func TestCompileSyntaxErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		detail error
	}{
		{"empty", "", ErrInvalidEventName},
		{"leading space", " click", ErrInvalidEventName},
		{"modifier only", "[altKey]", ErrInvalidEventName},
		{"unclosed bracket", "click[altKey", ErrUnmatchedBracket},
		{"stray closing bracket", "click]", ErrUnmatchedBracket},
		{"empty test", "click[]", ErrInvalidTest},
		{"blank test", "click[  ]", ErrInvalidTest},
		{"operator without operand", "click[a>]", ErrInvalidTest},
		{"bare words", "click[a b]", ErrInvalidTest},
		{"word operator without spaces", `click[code startsWith"Key"]`, ErrInvalidTest},
		{"mismatched quotes", `click[code='Key"]`, ErrInvalidTest},
		{"double negation", "click[!!a]", ErrInvalidTest},
		{"trailing dot", "click.", ErrUnexpectedInput},
		{"junk after method", "click.prevent!", ErrUnexpectedInput},
		{"junk between modifiers", "click[a],[b]", ErrUnexpectedInput},
	}

	c := newTestCompiler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := c.Compile(tt.source)
			require.Nil(t, d)
			require.ErrorIs(t, err, ErrSyntax)
			require.ErrorIs(t, err, tt.detail)
		})
	}
}

func TestCompileStrict(t *testing.T) {
	t.Parallel()

	c := newTestCompiler(t, WithTables(tables.New()))
	require.True(t, c.Strict())

	_, err := c.Compile(`keydown[code=ARROW_FORWARD][key startsWith "a"].prevent.stop`)
	require.NoError(t, err)

	tests := []struct {
		source string
		want   error
	}{
		{"click[a~1]", tables.ErrUnknownOperator},
		{"click[a=FOO]", tables.ErrUnknownVariable},
		{"click.teleport", tables.ErrUnknownMethod},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			t.Parallel()
			_, err := c.Compile(tt.source)
			require.ErrorIs(t, err, ErrUnknownName)
			require.ErrorIs(t, err, tt.want)
			require.NotErrorIs(t, err, ErrSyntax)
		})
	}

	t.Run("reports every unknown name", func(t *testing.T) {
		t.Parallel()
		_, err := c.Compile("click[a~FOO].teleport")
		require.ErrorIs(t, err, tables.ErrUnknownOperator)
		require.ErrorIs(t, err, tables.ErrUnknownVariable)
		require.ErrorIs(t, err, tables.ErrUnknownMethod)
	})
}

func TestCompileRoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestCompiler(t)
	for _, source := range []string{
		"keydown[altKey][!ctrlKey].prevent",
		`keydown[!code>"KeyM"]`,
		"keydown .stop[ code = ARROW_FORWARD ] .prevent",
		`keyup[code startsWith 'Key'][detail>=1.5]`,
		`input[value='say "hi"']`,
	} {
		first, err := c.Compile(source)
		require.NoError(t, err, source)
		second, err := c.Compile(first.String())
		require.NoError(t, err, first.String())
		assert.Equal(t, first, second, source)
	}
}

func TestCompileLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	c, err := NewCompiler(WithLogHandler(handler))
	require.NoError(t, err)

	_, err = c.Compile("click[altKey]")
	require.NoError(t, err)
	_, err = c.Compile("click[")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "compiled modifier")
	assert.Contains(t, out, "failed to compile modifier")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestMustCompile(t *testing.T) {
	t.Parallel()

	c := newTestCompiler(t)
	require.NotPanics(t, func() { c.MustCompile("click.stop") })
	require.Panics(t, func() { c.MustCompile("click[") })
}

func TestNewCompilerOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		c, err := NewCompiler()
		require.NoError(t, err)
		require.NotNil(t, c.logger)
		require.False(t, c.Strict())
		require.Equal(t, "modifier.Compiler", c.String())
	})

	t.Run("with logger", func(t *testing.T) {
		t.Parallel()
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		c, err := NewCompiler(WithLogger(logger))
		require.NoError(t, err)
		require.Same(t, logger, c.logger)
	})

	t.Run("invalid options", func(t *testing.T) {
		t.Parallel()
		_, err := NewCompiler(WithLogHandler(nil))
		require.Error(t, err)
		_, err = NewCompiler(WithLogger(nil))
		require.Error(t, err)
		_, err = NewCompiler(WithTables(nil))
		require.Error(t, err)
	})
}
