// Package loader reads script sources from strings, local files and HTTP
// servers, and imports script modules by URL.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

type Loader interface {
	GetReader() (io.ReadCloser, error)
	GetReaderWithContext(ctx context.Context) (io.ReadCloser, error)
	GetSourceURL() *url.URL
}

// ReadAll reads the full content of a loader.
func ReadAll(ctx context.Context, l Loader) ([]byte, error) {
	reader, err := l.GetReaderWithContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.GetSourceURL(), err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInputEmpty, l.GetSourceURL())
	}
	return content, nil
}

// FromURL picks a loader for an absolute URL: file URLs and bare absolute
// paths load from disk, http and https from the network.
func FromURL(u *url.URL, httpOptions *HTTPOptions) (Loader, error) {
	switch u.Scheme {
	case "", "file":
		return NewFromDisk(u.Path)
	case "http", "https":
		if httpOptions == nil {
			httpOptions = DefaultHTTPOptions()
		}
		return NewFromHTTPWithOptions(u.String(), httpOptions)
	default:
		return nil, fmt.Errorf("%w: %s", ErrSchemeUnsupported, u.String())
	}
}
