package dom

import (
	"sync/atomic"

	"github.com/robbyt/go-evmod/execution/data"
)

// Event is a dispatchable event. It implements data.Event, exposing the
// built-in properties "type", "bubbles", "cancelable" and "defaultPrevented"
// ahead of its own properties.
type Event struct {
	typ        string
	bubbles    bool
	cancelable bool
	view       *data.CompositeProvider

	target        *Element
	currentTarget *Element

	stopped          bool
	immediateStopped bool
	defaultPrevented bool
	dispatching      atomic.Bool
}

// EventOption configures an Event.
type EventOption func(*Event)

func WithBubbles(bubbles bool) EventOption {
	return func(ev *Event) { ev.bubbles = bubbles }
}

func WithCancelable(cancelable bool) EventOption {
	return func(ev *Event) { ev.cancelable = cancelable }
}

// NewEvent creates a bubbling, cancelable event, like one raised by user
// input. props may be nil.
func NewEvent(eventType string, props data.Provider, opts ...EventOption) *Event {
	if props == nil {
		props = data.NewStaticProvider(nil)
	}
	ev := &Event{
		typ:        eventType,
		bubbles:    true,
		cancelable: true,
	}
	ev.view = data.NewCompositeProvider(builtins{ev}, props)
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

// NewCustomEvent creates a synthetic event that neither bubbles nor can be
// cancelled.
func NewCustomEvent(eventType string, props map[string]any) *Event {
	return NewEvent(eventType, data.NewStaticProvider(props), WithBubbles(false), WithCancelable(false))
}

// NewEventFromJSON creates a bubbling, cancelable event whose properties are
// read from a JSON object.
func NewEventFromJSON(eventType string, raw string, opts ...EventOption) (*Event, error) {
	props, err := data.NewJSONProvider(raw)
	if err != nil {
		return nil, err
	}
	return NewEvent(eventType, props, opts...), nil
}

func (ev *Event) Type() string           { return ev.typ }
func (ev *Event) Bubbles() bool          { return ev.bubbles }
func (ev *Event) Cancelable() bool       { return ev.cancelable }
func (ev *Event) DefaultPrevented() bool { return ev.defaultPrevented }

// Target returns the element the event was dispatched on.
func (ev *Event) Target() *Element { return ev.target }

// CurrentTarget returns the element whose listeners are running, or nil
// outside a dispatch.
func (ev *Event) CurrentTarget() *Element { return ev.currentTarget }

// PropagationStopped reports whether StopPropagation was called during the
// current dispatch.
func (ev *Event) PropagationStopped() bool { return ev.stopped }

func (ev *Event) Property(name string) (any, bool) {
	return ev.view.Property(name)
}

func (ev *Event) Properties() map[string]any {
	return ev.view.Properties()
}

func (ev *Event) StopPropagation() {
	ev.stopped = true
}

func (ev *Event) StopImmediatePropagation() {
	ev.stopped = true
	ev.immediateStopped = true
}

// PreventDefault marks the default action as cancelled. It has no effect on
// events that are not cancelable.
func (ev *Event) PreventDefault() {
	if ev.cancelable {
		ev.defaultPrevented = true
	}
}

// Direction returns the writing direction of the target, "ltr" when the
// event has not been dispatched.
func (ev *Event) Direction() string {
	if ev.target == nil {
		return DirectionLTR
	}
	return ev.target.Direction()
}

func (ev *Event) finishDispatch() {
	ev.currentTarget = nil
	ev.stopped = false
	ev.immediateStopped = false
	ev.dispatching.Store(false)
}

// builtins exposes the event's own state as properties.
type builtins struct {
	ev *Event
}

func (b builtins) Property(name string) (any, bool) {
	switch name {
	case "type":
		return b.ev.typ, true
	case "bubbles":
		return b.ev.bubbles, true
	case "cancelable":
		return b.ev.cancelable, true
	case "defaultPrevented":
		return b.ev.defaultPrevented, true
	}
	return nil, false
}

func (b builtins) Properties() map[string]any {
	return map[string]any{
		"type":             b.ev.typ,
		"bubbles":          b.ev.bubbles,
		"cancelable":       b.ev.cancelable,
		"defaultPrevented": b.ev.defaultPrevented,
	}
}

var (
	_ data.Event             = (*Event)(nil)
	_ data.DirectionProvider = (*Event)(nil)
)
