// Package data provides read access to the named properties of live events,
// and the Event and Handler types shared by the evaluator and the host.
package data

import (
	"context"
)

// Provider is an interface for retrieving the named properties of an event.
type Provider interface {
	// Property returns the value of a named property and whether it exists.
	// A missing property reads as nil, the equivalent of an undefined field.
	Property(name string) (any, bool)

	// Properties returns a snapshot of every property. Callers may modify the returned map.
	Properties() map[string]any
}

// Event is a live event: a bag of named properties plus the three control
// capabilities that the method table can invoke.
type Event interface {
	Provider

	// StopPropagation prevents the event from reaching further targets.
	StopPropagation()

	// StopImmediatePropagation also prevents remaining listeners on the current target from running.
	StopImmediatePropagation()

	// PreventDefault suppresses the default action of the event.
	PreventDefault()
}

// DirectionProvider is implemented by events that know the writing direction
// ("ltr" or "rtl") of their target.
type DirectionProvider interface {
	Direction() string
}

// Handler handles a single occurrence of an event. An error returned by a
// Handler is surfaced to whoever dispatched the event.
type Handler func(ctx context.Context, ev Event) error

// Snapshot returns the properties of an event for handing to a script
// machine. When the event knows its direction and no property of that name
// exists, it is included under "direction".
func Snapshot(ev Provider) map[string]any {
	props := ev.Properties()
	if props == nil {
		props = make(map[string]any)
	}
	if dp, ok := ev.(DirectionProvider); ok {
		if _, exists := props["direction"]; !exists {
			props["direction"] = dp.Direction()
		}
	}
	return props
}
