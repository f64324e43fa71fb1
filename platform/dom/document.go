// Package dom is an in-memory event host over a parsed HTML document.
// Elements carry event listeners, and events dispatched on an element run
// its listeners and then bubble through its ancestors up to the document.
package dom

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	gohtml "golang.org/x/net/html"

	"github.com/robbyt/go-evmod/internal/helpers"
)

// Document owns the parsed tree and hands out one Element per node, so that
// listeners added through different queries land on the same target.
type Document struct {
	doc        *goquery.Document
	logHandler slog.Handler
	logger     *slog.Logger

	mu       sync.Mutex
	elements map[*gohtml.Node]*Element
}

// ParseHTML parses an HTML document.
func ParseHTML(r io.Reader, opts ...Option) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	d := &Document{
		doc:      doc,
		elements: make(map[*gohtml.Node]*Element),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	d.logHandler, d.logger = helpers.LoggerOrDefault(d.logger, d.logHandler, "dom", "Document")
	return d, nil
}

// ParseHTMLString parses an HTML document held in a string.
func ParseHTMLString(src string, opts ...Option) (*Document, error) {
	return ParseHTML(strings.NewReader(src), opts...)
}

func (d *Document) String() string {
	return "dom.Document"
}

// Root returns the document node. Every bubbling event ends here.
func (d *Document) Root() *Element {
	return d.element(d.doc.Selection.Nodes[0])
}

// QuerySelector returns the first element matching selector.
func (d *Document) QuerySelector(selector string) (*Element, error) {
	return d.Root().QuerySelector(selector)
}

// QuerySelectorAll returns every element matching selector in document order.
func (d *Document) QuerySelectorAll(selector string) ([]*Element, error) {
	return d.Root().QuerySelectorAll(selector)
}

// Selection exposes the underlying goquery selection of the whole document.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

func (d *Document) element(n *gohtml.Node) *Element {
	if n == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{
		doc:       d,
		node:      n,
		listeners: make(map[string][]*listener),
	}
	d.elements[n] = el
	return el
}

func compileSelector(selector string) error {
	if _, err := cascadia.Compile(selector); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSelector, selector, err)
	}
	return nil
}
