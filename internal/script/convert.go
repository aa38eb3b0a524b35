package script

import (
	"reflect"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// toLua converts a Go value into a Lua value. Maps and slices become
// tables, structs become tables keyed by exported field name and values
// with no Lua equivalent become userdata. A value that contains itself
// converts to nil at the point where it repeats.
func toLua(L *lua.LState, v any) lua.LValue {
	c := converter{L: L, visited: make(map[visitKey]bool)}
	return c.toLua(v)
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

type converter struct {
	L *lua.LState
	// visited holds the containers on the current conversion path.
	visited map[visitKey]bool
}

func (c *converter) toLua(v any) lua.LValue {
	if v == nil {
		return lua.LNil
	}

	switch val := v.(type) {
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case time.Time:
		return lua.LNumber(float64(val.UnixNano()) / 1e9)
	case time.Duration:
		return lua.LNumber(val.Seconds())
	case lua.LValue:
		return val
	}

	return c.reflectToLua(reflect.ValueOf(v))
}

func (c *converter) reflectToLua(rv reflect.Value) lua.LValue {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		if rv.Kind() == reflect.Interface {
			return c.toLua(rv.Elem().Interface())
		}
		return c.enter(rv, func() lua.LValue {
			return c.toLua(rv.Elem().Interface())
		})

	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())

	case reflect.Slice:
		if rv.IsNil() {
			return c.L.NewTable()
		}
		return c.enter(rv, func() lua.LValue { return c.sequence(rv) })
	case reflect.Array:
		return c.sequence(rv)

	case reflect.Map:
		if rv.IsNil() {
			return c.L.NewTable()
		}
		return c.enter(rv, func() lua.LValue {
			t := c.L.NewTable()
			iter := rv.MapRange()
			for iter.Next() {
				t.RawSet(c.toLua(iter.Key().Interface()), c.toLua(iter.Value().Interface()))
			}
			return t
		})

	case reflect.Struct:
		t := c.L.NewTable()
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			t.RawSetString(field.Name, c.toLua(rv.Field(i).Interface()))
		}
		return t
	}

	ud := c.L.NewUserData()
	ud.Value = rv.Interface()
	return ud
}

func (c *converter) sequence(rv reflect.Value) lua.LValue {
	t := c.L.NewTable()
	for i := 0; i < rv.Len(); i++ {
		t.RawSetInt(i+1, c.toLua(rv.Index(i).Interface()))
	}
	return t
}

// enter converts a pointer, map or slice unless it is already on the
// current path.
func (c *converter) enter(rv reflect.Value, fn func() lua.LValue) lua.LValue {
	key := visitKey{ptr: rv.Pointer(), typ: rv.Type()}
	if c.visited[key] {
		return lua.LNil
	}
	c.visited[key] = true
	defer delete(c.visited, key)
	return fn()
}
