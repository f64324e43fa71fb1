package binding

import (
	"context"
	"fmt"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/platform/dom"
)

// Action is what a binding does when its event passes: one of Func,
// EventName or Dispatch.
type Action interface {
	handler(target *dom.Element) (data.Handler, error)
}

// Func is called with the live event.
type Func func(ctx context.Context, ev data.Event) error

// EventName dispatches a new custom event of that name on the bound target.
// Custom events neither bubble nor can be cancelled.
type EventName string

// Dispatch re-dispatches the given event instance on the bound target.
type Dispatch struct {
	Event *dom.Event
}

func (f Func) handler(*dom.Element) (data.Handler, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil func", ErrInvalidAction)
	}
	return data.Handler(f), nil
}

func (n EventName) handler(target *dom.Element) (data.Handler, error) {
	if n == "" {
		return nil, fmt.Errorf("%w: empty event name", ErrInvalidAction)
	}
	name := string(n)
	return func(ctx context.Context, _ data.Event) error {
		_, err := target.DispatchEvent(ctx, dom.NewCustomEvent(name, nil))
		return err
	}, nil
}

func (d Dispatch) handler(target *dom.Element) (data.Handler, error) {
	if d.Event == nil {
		return nil, fmt.Errorf("%w: nil event", ErrInvalidAction)
	}
	ev := d.Event
	return func(ctx context.Context, _ data.Event) error {
		_, err := target.DispatchEvent(ctx, ev)
		return err
	}, nil
}

// Handler normalizes an action into a handler acting on target.
func Handler(target *dom.Element, a Action) (data.Handler, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if a == nil {
		return nil, fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	return a.handler(target)
}
