package dom

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	gohtml "golang.org/x/net/html"

	"github.com/robbyt/go-evmod/execution/data"
)

const (
	DirectionLTR = "ltr"
	DirectionRTL = "rtl"
)

// ListenerID identifies a registered listener. Handlers are funcs and cannot
// be compared, so removal goes through the ID returned on registration.
type ListenerID string

type listener struct {
	id      ListenerID
	handler data.Handler
	removed atomic.Bool
}

// Element is an event target: an element node or the document node.
type Element struct {
	doc  *Document
	node *gohtml.Node

	mu        sync.RWMutex
	listeners map[string][]*listener
}

func (e *Element) String() string {
	if e.node.Type == gohtml.DocumentNode {
		return "#document"
	}
	var sb strings.Builder
	sb.WriteString(e.node.Data)
	if id := e.ID(); id != "" {
		sb.WriteString("#" + id)
	}
	return sb.String()
}

// TagName returns the lower case tag name, or "#document".
func (e *Element) TagName() string {
	if e.node.Type == gohtml.DocumentNode {
		return "#document"
	}
	return e.node.Data
}

// Attr returns the value of an attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) ID() string {
	id, _ := e.Attr("id")
	return id
}

// Document returns the document the element belongs to.
func (e *Element) Document() *Document {
	return e.doc
}

// Parent returns the parent target, or nil for the document node.
func (e *Element) Parent() *Element {
	for p := e.node.Parent; p != nil; p = p.Parent {
		if p.Type == gohtml.ElementNode || p.Type == gohtml.DocumentNode {
			return e.doc.element(p)
		}
	}
	return nil
}

// Direction returns the writing direction from the nearest "ltr" or "rtl"
// dir attribute on the element or its ancestors, defaulting to "ltr".
func (e *Element) Direction() string {
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != gohtml.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if a.Namespace != "" || a.Key != "dir" {
				continue
			}
			switch dir := strings.ToLower(strings.TrimSpace(a.Val)); dir {
			case DirectionLTR, DirectionRTL:
				return dir
			}
		}
	}
	return DirectionLTR
}

// Selection returns a goquery selection holding only this node.
func (e *Element) Selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.node).Selection
}

// QuerySelector returns the first descendant matching selector, or nil.
func (e *Element) QuerySelector(selector string) (*Element, error) {
	all, err := e.QuerySelectorAll(selector)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

// QuerySelectorAll returns the descendants matching selector in document order.
func (e *Element) QuerySelectorAll(selector string) ([]*Element, error) {
	if err := compileSelector(selector); err != nil {
		return nil, err
	}
	sel := goquery.NewDocumentFromNode(e.node).Find(selector)
	out := make([]*Element, 0, sel.Length())
	for _, n := range sel.Nodes {
		out = append(out, e.doc.element(n))
	}
	return out, nil
}

// AddEventListener registers handler for events named eventType. Listeners
// run in registration order.
func (e *Element) AddEventListener(eventType string, handler data.Handler) (ListenerID, error) {
	if eventType == "" {
		return "", ErrEmptyEventType
	}
	if handler == nil {
		return "", ErrNilHandler
	}

	l := &listener{id: ListenerID(uuid.NewString()), handler: handler}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[eventType] = append(e.listeners[eventType], l)
	return l.id, nil
}

// RemoveEventListener unregisters a listener and reports whether it was
// found. A listener removed during a dispatch does not run afterwards.
func (e *Element) RemoveEventListener(eventType string, id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ls := e.listeners[eventType]
	idx := slices.IndexFunc(ls, func(l *listener) bool { return l.id == id })
	if idx < 0 {
		return false
	}
	ls[idx].removed.Store(true)
	ls = slices.Delete(slices.Clone(ls), idx, idx+1)
	if len(ls) == 0 {
		delete(e.listeners, eventType)
	} else {
		e.listeners[eventType] = ls
	}
	return true
}

// ListenerCount returns the number of listeners for eventType.
func (e *Element) ListenerCount(eventType string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[eventType])
}

func (e *Element) snapshot(eventType string) []*listener {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.listeners[eventType])
}

// DispatchEvent runs the listeners of ev on this element and, when the event
// bubbles, on each ancestor up to the document. StopPropagation ends the
// dispatch after the current target; StopImmediatePropagation ends it at
// once. A failing listener does not stop the others; all listener errors
// are joined. The result is false when the default action was prevented.
func (e *Element) DispatchEvent(ctx context.Context, ev *Event) (bool, error) {
	if ev == nil {
		return false, ErrNilEvent
	}
	if !ev.dispatching.CompareAndSwap(false, true) {
		return false, fmt.Errorf("%w: %s", ErrAlreadyDispatching, ev.Type())
	}
	defer ev.finishDispatch()

	ev.target = e
	logger := e.doc.logger.With("event", ev.Type(), "target", e.String())
	logger.DebugContext(ctx, "dispatching event")

	var errs []error
	for node := e; node != nil; node = node.Parent() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ev.currentTarget = node
		for _, l := range node.snapshot(ev.Type()) {
			if l.removed.Load() {
				continue
			}
			if err := l.handler(ctx, ev); err != nil {
				logger.WarnContext(ctx, "listener failed", "currentTarget", node.String(), "error", err)
				errs = append(errs, fmt.Errorf("%w on %s: %w", ErrListenerFailed, node, err))
			}
			if ev.immediateStopped {
				break
			}
		}
		if ev.stopped || !ev.Bubbles() {
			break
		}
	}

	return !ev.DefaultPrevented(), errors.Join(errs...)
}
