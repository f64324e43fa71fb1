package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/robbyt/go-evmod/execution/data"
)

// toGo converts a Lua value to a Go value. Integral numbers become int64.
// Tables with contiguous integer keys starting at 1 become slices, other
// tables become maps.
func toGo(lv lua.LValue) any {
	return toGoVisited(lv, make(map[*lua.LTable]bool))
}

func toGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGoVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = toGoVisited(v, visited)
	})
	return m
}

// toLua converts an event property value to a Lua value.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []string:
		t := L.CreateTable(len(val), 0)
		for _, s := range val {
			t.Append(lua.LString(s))
		}
		return t
	case []any:
		t := L.CreateTable(len(val), 0)
		for _, elem := range val {
			t.Append(toLua(L, elem))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(val))
		for k, elem := range val {
			t.RawSetString(k, toLua(L, elem))
		}
		return t
	}
	if n, ok := data.ToNumber(v); ok {
		return lua.LNumber(n)
	}
	return lua.LString(fmt.Sprint(v))
}
