package starlark

import (
	"fmt"

	starlarkLib "go.starlark.net/starlark"

	"github.com/robbyt/go-evmod/execution/data"
)

// toGo converts a value returned by a variable function to a Go value that the
// operator table understands.
func toGo(v starlarkLib.Value) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch v := v.(type) {
	case starlarkLib.NoneType:
		return nil, nil
	case starlarkLib.Bool:
		return bool(v), nil
	case starlarkLib.Int:
		if i, ok := v.Int64(); ok {
			return i, nil
		}
		return nil, fmt.Errorf("integer %s overflows int64", v)
	case starlarkLib.Float:
		return float64(v), nil
	case starlarkLib.String:
		return string(v), nil
	case *starlarkLib.List:
		return sequenceToGo(v)
	case starlarkLib.Tuple:
		return sequenceToGo(v)
	case *starlarkLib.Dict:
		dict := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			key, ok := item[0].(starlarkLib.String)
			if !ok {
				key = starlarkLib.String(item[0].String())
			}
			val, err := toGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("failed to convert dict value: %w", err)
			}
			dict[string(key)] = val
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported Starlark type %s", v.Type())
	}
}

func sequenceToGo(seq starlarkLib.Indexable) ([]any, error) {
	list := make([]any, 0, seq.Len())
	for i := range seq.Len() {
		elem, err := toGo(seq.Index(i))
		if err != nil {
			return nil, fmt.Errorf("failed to convert list element: %w", err)
		}
		list = append(list, elem)
	}
	return list, nil
}

// toStarlark converts an event property value to a Starlark value.
func toStarlark(v any) (starlarkLib.Value, error) {
	if v == nil {
		return starlarkLib.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlarkLib.Bool(val), nil
	case int:
		return starlarkLib.MakeInt(val), nil
	case int64:
		return starlarkLib.MakeInt64(val), nil
	case float64:
		return starlarkLib.Float(val), nil
	case string:
		return starlarkLib.String(val), nil
	case []string:
		elements := make([]starlarkLib.Value, len(val))
		for i, s := range val {
			elements[i] = starlarkLib.String(s)
		}
		return starlarkLib.NewList(elements), nil
	case []any:
		elements := make([]starlarkLib.Value, len(val))
		for i, elem := range val {
			var err error
			elements[i], err = toStarlark(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to convert list element: %w", err)
			}
		}
		return starlarkLib.NewList(elements), nil
	case map[string]any:
		dict := starlarkLib.NewDict(len(val))
		for k, v := range val {
			starlarkVal, err := toStarlark(v)
			if err != nil {
				return nil, fmt.Errorf("failed to convert dict value for key %q: %w", k, err)
			}
			if err := dict.SetKey(starlarkLib.String(k), starlarkVal); err != nil {
				return nil, fmt.Errorf("failed to set dict key: %w", err)
			}
		}
		return dict, nil
	}

	if n, ok := data.ToNumber(v); ok {
		return starlarkLib.Float(n), nil
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}
