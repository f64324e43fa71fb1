package loader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/robbyt/go-evmod/internal/helpers"
)

type FromDisk struct {
	path      string
	sourceURL *url.URL
}

func NewFromDisk(path string) (*FromDisk, error) {
	path = strings.TrimPrefix(path, "file://")

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return nil, fmt.Errorf("%w: %s", ErrSchemeUnsupported, path)
	}

	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: relative paths are not supported", ErrScriptNotAvailable)
	}

	path = filepath.Clean(path)
	if path == "/" || path == "\\" {
		return nil, fmt.Errorf("%w: path is empty or invalid", ErrScriptNotAvailable)
	}

	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}

	return &FromDisk{
		path:      u.String(),
		sourceURL: u,
	}, nil
}

func (l *FromDisk) String() string {
	noChkSum := fmt.Sprintf("loader.FromDisk{Path: %s}", l.path)

	reader, err := l.GetReader()
	if err != nil {
		return noChkSum
	}
	defer func() { _ = reader.Close() }()

	chksum, err := helpers.ShortHashReader(reader)
	if err != nil || chksum == "" {
		return noChkSum
	}

	return fmt.Sprintf("loader.FromDisk{Path: %s, SHA256: %s}", l.path, chksum)
}

func (l *FromDisk) GetReader() (io.ReadCloser, error) {
	f, err := os.Open(filepath.FromSlash(l.sourceURL.Path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptNotAvailable, err)
	}
	return f, nil
}

func (l *FromDisk) GetReaderWithContext(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.GetReader()
}

// GetSourceURL returns the source URL of the script.
func (l *FromDisk) GetSourceURL() *url.URL {
	return l.sourceURL
}
