package starlark

import (
	"fmt"
	"slices"

	starlarkLib "go.starlark.net/starlark"
)

// eventValue exposes event properties to a variable function. Properties can
// be read as attributes (event.code) or by key (event["code"]). A missing
// property reads as None.
type eventValue struct {
	props *starlarkLib.Dict
}

var (
	_ starlarkLib.HasAttrs = (*eventValue)(nil)
	_ starlarkLib.Mapping  = (*eventValue)(nil)
)

func newEventValue(props map[string]any) (*eventValue, error) {
	v, err := toStarlark(props)
	if err != nil {
		return nil, fmt.Errorf("failed to convert event properties: %w", err)
	}
	dict := v.(*starlarkLib.Dict)
	dict.Freeze()
	return &eventValue{props: dict}, nil
}

func (e *eventValue) String() string          { return "event(" + e.props.String() + ")" }
func (e *eventValue) Type() string            { return "event" }
func (e *eventValue) Freeze()                 {}
func (e *eventValue) Truth() starlarkLib.Bool { return starlarkLib.True }

func (e *eventValue) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: event")
}

// Attr returns the named property, or None when it is missing.
func (e *eventValue) Attr(name string) (starlarkLib.Value, error) {
	v, found, err := e.props.Get(starlarkLib.String(name))
	if err != nil {
		return nil, err
	}
	if !found {
		return starlarkLib.None, nil
	}
	return v, nil
}

func (e *eventValue) AttrNames() []string {
	names := make([]string, 0, e.props.Len())
	for _, k := range e.props.Keys() {
		if s, ok := k.(starlarkLib.String); ok {
			names = append(names, string(s))
		}
	}
	slices.Sort(names)
	return names
}

// Get implements starlark.Mapping.
func (e *eventValue) Get(k starlarkLib.Value) (starlarkLib.Value, bool, error) {
	v, found, err := e.props.Get(k)
	if err != nil || found {
		return v, found, err
	}
	return starlarkLib.None, true, nil
}
