package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	*globalState
	out *bytes.Buffer
	err *bytes.Buffer
}

func newTestState(t *testing.T, stdin string) *testState {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &testState{
		globalState: &globalState{
			ctx:    t.Context(),
			fs:     afero.NewOsFs(),
			stdout: out,
			stderr: errOut,
			stdin:  strings.NewReader(stdin),
		},
		out: out,
		err: errOut,
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestCompile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		wantCode int
		contains []string
	}{
		{
			name:     "yaml",
			args:     []string{"compile", `keydown[ctrlKey][code="KeyS"].prevent`},
			contains: []string{"event: keydown", "property: ctrlKey", "- prevent"},
		},
		{
			name:     "json",
			args:     []string{"compile", "--format", "json", "click[!altKey].stop"},
			contains: []string{`"event": "click"`, `"negate": true`, `"stop"`},
		},
		{
			name:     "syntax error",
			args:     []string{"compile", "click[altKey"},
			wantCode: 1,
		},
		{
			name:     "strict unknown method",
			args:     []string{"compile", "--strict", "click.explode"},
			wantCode: 1,
		},
		{
			name:     "bad format",
			args:     []string{"compile", "--format", "xml", "click"},
			wantCode: 1,
		},
		{
			name:     "missing argument",
			args:     []string{"compile"},
			wantCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gs := newTestState(t, "")
			code := execute(gs.globalState, tt.args)
			assert.Equal(t, tt.wantCode, code, gs.err.String())
			for _, want := range tt.contains {
				assert.Contains(t, gs.out.String(), want)
			}
			if tt.wantCode != 0 {
				assert.Contains(t, gs.err.String(), "error:")
			}
		})
	}
}

func TestEval(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	keys := writeFile(t, dir, "keys.star", `
def NEXT_KEY(event):
    return "ArrowRight"
`)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		contains []string
		absent   []string
	}{
		{
			name:     "pass",
			args:     []string{"eval", `keydown[ctrlKey][code="KeyS"].prevent`, "--event", `{"ctrlKey":true,"code":"KeyS"}`},
			contains: []string{"PASS", "methods: prevent"},
		},
		{
			name:     "fail",
			args:     []string{"eval", `keydown[ctrlKey].prevent`, "--event", `{"ctrlKey":false}`},
			contains: []string{"FAIL"},
			absent:   []string{"methods:"},
		},
		{
			name:     "imported variable",
			args:     []string{"eval", "keydown[key=NEXT_KEY]", "--import", keys, "--event", `{"key":"ArrowRight"}`},
			contains: []string{"PASS"},
		},
		{
			name:     "unknown variable",
			args:     []string{"eval", "keydown[key=NEXT_KEY]", "--event", `{"key":"ArrowRight"}`},
			wantCode: 1,
		},
		{
			name:     "invalid event",
			args:     []string{"eval", "keydown", "--event", `[1,2]`},
			wantCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gs := newTestState(t, "")
			code := execute(gs.globalState, tt.args)
			assert.Equal(t, tt.wantCode, code, gs.err.String())
			for _, want := range tt.contains {
				assert.Contains(t, gs.out.String(), want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, gs.out.String(), unwanted)
			}
		})
	}
}

const appConfig = `
imports:
  - url: keys.star
bindings:
  "textarea":
    "keydown[code=NEXT_KEY].prevent": next
    "click[altKey]": select
shortcuts:
  "#editor":
    "ctrl+KeyS": save
`

const appPage = `<html><body><div id="editor"><textarea id="text"></textarea></div></body></html>`

const keysModule = `
def NEXT_KEY(event):
    return "ArrowRight"
`

func TestCheck(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "keys.star", keysModule)
	good := writeFile(t, dir, "app.yaml", appConfig)
	bad := writeFile(t, dir, "bad.toml", `
[bindings.body]
"click.explode" = "boom"
`)

	gs := newTestState(t, "")
	require.Equal(t, 0, execute(gs.globalState, []string{"check", good}), gs.err.String())
	assert.Contains(t, gs.out.String(), "ok ")
	assert.Contains(t, gs.out.String(), "1 imports, 2 modifiers, 3 actions")

	gs = newTestState(t, "")
	assert.Equal(t, 1, execute(gs.globalState, []string{"check", bad}))
	assert.Contains(t, gs.err.String(), "unknown")

	gs = newTestState(t, "")
	assert.Equal(t, 1, execute(gs.globalState, []string{"check", filepath.Join(dir, "missing.yaml")}))
}

func TestRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "keys.star", keysModule)
	cfg := writeFile(t, dir, "app.yaml", appConfig)
	page := writeFile(t, dir, "page.html", appPage)

	events := strings.Join([]string{
		`# replayed in order`,
		`{"selector": "#text", "type": "keydown", "props": {"code": "ArrowRight"}}`,
		`{"selector": "#text", "type": "keydown", "props": {"ctrlKey": true, "code": "KeyS"}}`,
		`{"selector": "#text", "type": "click", "props": {"altKey": false}}`,
		`{"selector": "#nothing", "type": "click"}`,
		``,
	}, "\n")

	gs := newTestState(t, events)
	code := execute(gs.globalState, []string{"run", cfg, "--html", page, "--events", "-"})
	require.Equal(t, 0, code, gs.err.String())

	out := gs.out.String()
	assert.Contains(t, out, "action next on textarea#text")
	assert.Contains(t, out, "action save on div#editor")
	assert.NotContains(t, out, "action select")
	assert.Contains(t, out, "click on #nothing: no matching element")
	assert.Equal(t, 2, strings.Count(out, "default prevented"))
}

func TestRun_InvalidLine(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "keys.star", keysModule)
	cfg := writeFile(t, dir, "app.yaml", appConfig)
	page := writeFile(t, dir, "page.html", appPage)
	events := writeFile(t, dir, "events.jsonl", `{"type": "keydown"}`)

	gs := newTestState(t, "")
	assert.Equal(t, 1, execute(gs.globalState, []string{"run", cfg, "--html", page, "--events", events}))
	assert.Contains(t, gs.err.String(), "line 1")
	assert.Contains(t, gs.err.String(), "selector and type are required")
}

func TestParseEventLine(t *testing.T) {
	t.Parallel()

	re, err := parseEventLine(`{"selector": "p", "type": "ping", "props": {"n": 2}, "bubbles": false}`)
	require.NoError(t, err)
	assert.Equal(t, "p", re.selector)
	assert.Equal(t, "ping", re.event.Type())
	assert.False(t, re.event.Bubbles())
	assert.True(t, re.event.Cancelable())
	v, ok := re.event.Property("n")
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 0)

	_, err = parseEventLine(`not json`)
	require.ErrorIs(t, err, errInvalidEventLine)
	_, err = parseEventLine(`{"selector": "p", "type": "x", "props": [1]}`)
	require.ErrorIs(t, err, errInvalidEventLine)
}
