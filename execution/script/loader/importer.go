package loader

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/robbyt/go-evmod/internal/helpers"
	"golang.org/x/sync/singleflight"
)

// ImportFunc receives the content of a newly imported module, typically to
// compile it and register its exported variables.
type ImportFunc func(ctx context.Context, source *url.URL, content []byte) error

// ImporterOption configures an Importer.
type ImporterOption func(*Importer) error

// WithHTTPOptions sets the options used for http and https imports.
func WithHTTPOptions(options *HTTPOptions) ImporterOption {
	return func(i *Importer) error {
		if options == nil {
			return fmt.Errorf("HTTP options cannot be nil")
		}
		i.httpOptions = options
		return nil
	}
}

func WithLogHandler(handler slog.Handler) ImporterOption {
	return func(i *Importer) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		i.logHandler = handler
		i.logger = nil
		return nil
	}
}

func WithLogger(logger *slog.Logger) ImporterOption {
	return func(i *Importer) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		i.logger = logger
		i.logHandler = nil
		return nil
	}
}

// Importer loads script modules by URL, at most once per absolute URL.
// Relative URLs resolve against the base URL.
type Importer struct {
	base        *url.URL
	httpOptions *HTTPOptions
	importFn    ImportFunc
	logHandler  slog.Handler
	logger      *slog.Logger

	inflight singleflight.Group
	mu       sync.Mutex
	imported map[string]bool
}

// NewImporter creates an Importer. base may be empty, an absolute path, or
// a file, http or https URL.
func NewImporter(base string, fn ImportFunc, opts ...ImporterOption) (*Importer, error) {
	if fn == nil {
		return nil, fmt.Errorf("import function cannot be nil")
	}

	i := &Importer{
		importFn:    fn,
		httpOptions: DefaultHTTPOptions(),
		imported:    make(map[string]bool),
	}

	if base != "" {
		u, err := ParseLocation(base)
		if err != nil {
			return nil, err
		}
		i.base = u
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}

	i.logHandler, i.logger = helpers.LoggerOrDefault(i.logger, i.logHandler, "loader", "Importer")
	return i, nil
}

// Resolve returns the absolute URL that rawURL refers to.
func (i *Importer) Resolve(rawURL string) (*url.URL, error) {
	return ResolveURL(i.base, rawURL)
}

// ResolveURL resolves rawURL against base, which may be nil. URLs without
// a scheme must end up as absolute paths and are given the file scheme.
func ResolveURL(base *url.URL, rawURL string) (*url.URL, error) {
	ref, err := ParseLocation(rawURL)
	if err != nil {
		return nil, err
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme == "" {
		if !filepath.IsAbs(filepath.FromSlash(ref.Path)) {
			return nil, fmt.Errorf("%w: relative URL %q without a base URL", ErrScriptNotAvailable, rawURL)
		}
		ref.Scheme = "file"
	}
	return ref, nil
}

// Imported reports whether rawURL has been imported successfully.
func (i *Importer) Imported(rawURL string) bool {
	u, err := i.Resolve(rawURL)
	if err != nil {
		return false
	}
	return i.isImported(u.String())
}

func (i *Importer) isImported(key string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.imported[key]
}

// Import loads rawURL and hands its content to the ImportFunc. URLs that
// were already imported are skipped. Callers arriving while the same URL
// is being imported wait for that import and share its result. A failed
// import is forgotten so it can be retried.
func (i *Importer) Import(ctx context.Context, rawURL string) error {
	return i.ImportWith(ctx, rawURL, i.importFn)
}

// ImportWith is Import with a different ImportFunc for this URL.
func (i *Importer) ImportWith(ctx context.Context, rawURL string, fn ImportFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: import function cannot be nil", ErrImportFailed)
	}
	u, err := i.Resolve(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrImportFailed, err)
	}
	return i.importOnce(ctx, u, fn, func() (Loader, error) {
		return FromURL(u, i.httpOptions)
	})
}

// ImportLoader imports the content of l, keyed by its source URL. It is
// used for modules that have no fetchable location, such as inline
// strings.
func (i *Importer) ImportLoader(ctx context.Context, l Loader, fn ImportFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: import function cannot be nil", ErrImportFailed)
	}
	if l == nil || l.GetSourceURL() == nil {
		return fmt.Errorf("%w: loader has no source URL", ErrImportFailed)
	}
	return i.importOnce(ctx, l.GetSourceURL(), fn, func() (Loader, error) {
		return l, nil
	})
}

// importOnce runs at most one import per key at a time. The first caller's
// context governs the load; a waiter whose context ends stops waiting but
// does not cancel the import.
func (i *Importer) importOnce(
	ctx context.Context,
	u *url.URL,
	fn ImportFunc,
	open func() (Loader, error),
) error {
	key := u.String()
	logger := i.logger.With("url", key)

	if i.isImported(key) {
		logger.DebugContext(ctx, "module already imported")
		return nil
	}

	ch := i.inflight.DoChan(key, func() (any, error) {
		if i.isImported(key) {
			return nil, nil
		}
		l, err := open()
		if err != nil {
			return nil, err
		}
		content, err := ReadAll(ctx, l)
		if err != nil {
			return nil, err
		}
		if err := fn(ctx, u, content); err != nil {
			return nil, err
		}
		i.mu.Lock()
		i.imported[key] = true
		i.mu.Unlock()
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %w", ErrImportFailed, key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			logger.WarnContext(ctx, "module import failed", "error", res.Err, "shared", res.Shared)
			return fmt.Errorf("%w: %s: %w", ErrImportFailed, key, res.Err)
		}
		logger.DebugContext(ctx, "module imported", "shared", res.Shared)
		return nil
	}
}

// ParseLocation parses a URL, treating Windows style absolute paths as
// file paths rather than URLs with a drive letter scheme.
func ParseLocation(raw string) (*url.URL, error) {
	if filepath.IsAbs(raw) && filepath.VolumeName(raw) != "" {
		return &url.URL{Scheme: "file", Path: filepath.ToSlash(raw)}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL: %w", err)
	}
	return u, nil
}
