package loader

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importRecorder struct {
	mu      sync.Mutex
	sources []string
	fail    error
}

func (r *importRecorder) importFn(_ context.Context, source *url.URL, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.sources = append(r.sources, source.String()+"="+string(content))
	return nil
}

func writeModule(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewImporter(t *testing.T) {
	t.Parallel()

	rec := &importRecorder{}

	_, err := NewImporter("", nil)
	require.Error(t, err)

	_, err = NewImporter("", rec.importFn, WithHTTPOptions(nil))
	require.Error(t, err)

	_, err = NewImporter("", rec.importFn, WithLogger(nil))
	require.Error(t, err)

	_, err = NewImporter("://bad", rec.importFn)
	require.ErrorContains(t, err, "unable to parse URL")

	i, err := NewImporter("https://example.com/mods/", rec.importFn,
		WithLogHandler(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	assert.NotNil(t, i.logger)
}

func TestImporter_Resolve(t *testing.T) {
	t.Parallel()

	rec := &importRecorder{}

	tests := []struct {
		name    string
		base    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "relative against http base", base: "https://example.com/mods/", raw: "wide.js", want: "https://example.com/mods/wide.js"},
		{name: "parent against http base", base: "https://example.com/mods/a/", raw: "../wide.js", want: "https://example.com/mods/wide.js"},
		{name: "absolute overrides base", base: "https://example.com/mods/", raw: "http://other.org/x.lua", want: "http://other.org/x.lua"},
		{name: "relative against path base", base: "/srv/mods/", raw: "wide.star", want: "file:///srv/mods/wide.star"},
		{name: "absolute path without base", raw: "/srv/mods/wide.star", want: "file:///srv/mods/wide.star"},
		{name: "relative without base", raw: "wide.star", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			i, err := NewImporter(tt.base, rec.importFn)
			require.NoError(t, err)

			u, err := i.Resolve(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrScriptNotAvailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestImporter_ImportOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeModule(t, dir, "wide.star", "def isWide(ev): return True")

	var logs bytes.Buffer
	handler := slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})

	rec := &importRecorder{}
	i, err := NewImporter(dir+"/", rec.importFn, WithLogHandler(handler))
	require.NoError(t, err)

	require.NoError(t, i.Import(t.Context(), "wide.star"))
	require.NoError(t, i.Import(t.Context(), "./wide.star"))
	require.NoError(t, i.Import(t.Context(), "file://"+filepath.ToSlash(dir)+"/wide.star"))

	require.Len(t, rec.sources, 1)
	assert.Contains(t, rec.sources[0], "def isWide(ev): return True")
	assert.True(t, i.Imported("wide.star"))
	assert.Contains(t, logs.String(), "module already imported")
}

func TestImporter_FailedImportIsRetried(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := &importRecorder{}
	i, err := NewImporter(dir+"/", rec.importFn)
	require.NoError(t, err)

	t.Run("missing file", func(t *testing.T) {
		err := i.Import(t.Context(), "late.lua")
		require.ErrorIs(t, err, ErrImportFailed)
		require.ErrorIs(t, err, ErrScriptNotAvailable)
		assert.False(t, i.Imported("late.lua"))
	})

	writeModule(t, dir, "late.lua", "function isLate(ev) return true end")

	t.Run("import function error", func(t *testing.T) {
		boom := errors.New("compile failed")
		rec.mu.Lock()
		rec.fail = boom
		rec.mu.Unlock()

		err := i.Import(t.Context(), "late.lua")
		require.ErrorIs(t, err, boom)
		assert.False(t, i.Imported("late.lua"))

		rec.mu.Lock()
		rec.fail = nil
		rec.mu.Unlock()
	})

	t.Run("retry succeeds", func(t *testing.T) {
		require.NoError(t, i.Import(t.Context(), "late.lua"))
		assert.True(t, i.Imported("late.lua"))
		assert.Len(t, rec.sources, 1)
	})
}

func TestImporter_HTTP(t *testing.T) {
	t.Parallel()

	var hits int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		if r.URL.Path != "/mods/wide.js" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("function isWide(ev) { return true; }"))
	}))
	t.Cleanup(server.Close)

	rec := &importRecorder{}
	i, err := NewImporter(server.URL+"/mods/", rec.importFn)
	require.NoError(t, err)

	require.NoError(t, i.Import(t.Context(), "wide.js"))
	require.NoError(t, i.Import(t.Context(), server.URL+"/mods/wide.js"))
	require.Error(t, i.Import(t.Context(), "other.js"))

	require.Len(t, rec.sources, 1)
	assert.Equal(t, server.URL+"/mods/wide.js=function isWide(ev) { return true; }", rec.sources[0])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, hits)
}

func TestImporter_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	rec := &importRecorder{}
	i, err := NewImporter("", rec.importFn)
	require.NoError(t, err)

	err = i.Import(t.Context(), "ftp://example.com/a.js")
	require.ErrorIs(t, err, ErrSchemeUnsupported)
}

func TestImporter_ImportWith(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeModule(t, dir, "keys.js", "function k(ev) { return 1; }")

	defaultRec := &importRecorder{}
	overrideRec := &importRecorder{}
	i, err := NewImporter(dir+"/", defaultRec.importFn)
	require.NoError(t, err)

	require.ErrorIs(t, i.ImportWith(t.Context(), "keys.js", nil), ErrImportFailed)
	require.NoError(t, i.ImportWith(t.Context(), "keys.js", overrideRec.importFn))
	require.NoError(t, i.Import(t.Context(), "keys.js"))

	assert.Empty(t, defaultRec.sources)
	assert.Len(t, overrideRec.sources, 1)
}

func TestResolveURL_NilBase(t *testing.T) {
	t.Parallel()

	u, err := ResolveURL(nil, "https://example.com/a.lua")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.lua", u.String())

	_, err = ResolveURL(nil, "a.lua")
	require.ErrorIs(t, err, ErrScriptNotAvailable)
}

// gatedImport blocks every call until release is closed.
type gatedImport struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
	err     error
}

func newGatedImport(err error) *gatedImport {
	return &gatedImport{
		started: make(chan struct{}),
		release: make(chan struct{}),
		err:     err,
	}
}

func (g *gatedImport) importFn(_ context.Context, _ *url.URL, _ []byte) error {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.err
}

func TestImporter_ConcurrentImportWaits(t *testing.T) {
	t.Parallel()

	errCompile := errors.New("compile failed")

	tests := []struct {
		name    string
		fail    error
		wantErr bool
	}{
		{name: "import succeeds", fail: nil},
		{name: "import fails", fail: errCompile, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeModule(t, dir, "keys.star", "NEXT_KEY = 'ArrowRight'")

			gate := newGatedImport(tt.fail)
			i, err := NewImporter(dir+"/", gate.importFn)
			require.NoError(t, err)

			first := make(chan error, 1)
			go func() { first <- i.Import(t.Context(), "keys.star") }()
			<-gate.started

			second := make(chan error, 1)
			go func() { second <- i.Import(t.Context(), "keys.star") }()

			select {
			case err := <-second:
				t.Fatalf("second import returned before the first finished: %v", err)
			case <-time.After(50 * time.Millisecond):
			}

			close(gate.release)
			errs := []error{<-first, <-second}

			for _, err := range errs {
				if tt.wantErr {
					require.ErrorIs(t, err, ErrImportFailed)
					require.ErrorIs(t, err, errCompile)
				} else {
					require.NoError(t, err)
				}
			}
			assert.Equal(t, !tt.wantErr, i.Imported("keys.star"))
			assert.Equal(t, int32(1), gate.calls.Load())
		})
	}
}

func TestImporter_WaiterContextCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeModule(t, dir, "keys.lua", "NEXT_KEY = 'ArrowRight'")

	gate := newGatedImport(nil)
	i, err := NewImporter(dir+"/", gate.importFn)
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() { first <- i.Import(t.Context(), "keys.lua") }()
	<-gate.started

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err = i.Import(ctx, "keys.lua")
	require.ErrorIs(t, err, ErrImportFailed)
	require.ErrorIs(t, err, context.Canceled)

	close(gate.release)
	require.NoError(t, <-first)
	assert.True(t, i.Imported("keys.lua"))
	assert.Equal(t, int32(1), gate.calls.Load())
}

func TestImporter_ImportLoader(t *testing.T) {
	t.Parallel()

	rec := &importRecorder{}
	i, err := NewImporter("", rec.importFn)
	require.NoError(t, err)

	l, err := NewFromString("NEXT_KEY = 'ArrowLeft'")
	require.NoError(t, err)

	require.NoError(t, i.ImportLoader(t.Context(), l, rec.importFn))
	require.NoError(t, i.ImportLoader(t.Context(), l, rec.importFn))
	require.Len(t, rec.sources, 1)
	assert.Equal(t, l.GetSourceURL().String()+"=NEXT_KEY = 'ArrowLeft'", rec.sources[0])
	assert.True(t, i.Imported(l.GetSourceURL().String()))

	err = i.ImportLoader(t.Context(), nil, rec.importFn)
	require.ErrorIs(t, err, ErrImportFailed)

	err = i.ImportLoader(t.Context(), l, nil)
	require.ErrorIs(t, err, ErrImportFailed)
}
