package scripting

import (
	"github.com/yuin/gopher-lua"

	"github.com/benwilber/tinysse/internal/hooks"
)

// toLua converts a hooks.Value into a lua.LValue for passing into script
// code.
func toLua(L *lua.LState, v hooks.Value) lua.LValue {
	switch v.Kind {
	case hooks.KindNull:
		return lua.LNil
	case hooks.KindBool:
		return lua.LBool(v.Bool)
	case hooks.KindInt:
		return lua.LNumber(v.Int)
	case hooks.KindFloat:
		return lua.LNumber(v.Float)
	case hooks.KindString:
		return lua.LString(v.Str)
	case hooks.KindBytes:
		return lua.LString(string(v.Bytes))
	case hooks.KindSeq:
		t := L.NewTable()
		for i, elem := range v.Seq {
			t.RawSetInt(i+1, toLua(L, elem))
		}
		return t
	case hooks.KindMap:
		t := L.NewTable()
		for k, elem := range v.Map {
			t.RawSetString(k, toLua(L, elem))
		}
		return t
	case hooks.KindForeign:
		if ud, ok := v.Foreign.(*lua.LUserData); ok {
			return ud
		}
		ud := L.NewUserData()
		ud.Value = v.Foreign
		return ud
	default:
		return lua.LNil
	}
}

// fromLua converts a lua.LValue returned from script code into a
// hooks.Value. Tables are ambiguous between sequence and map in Lua; a
// table is treated as a sequence when its keys are a dense 1..n integer
// run, and as a map otherwise.
func fromLua(v lua.LValue) hooks.Value {
	switch lv := v.(type) {
	case *lua.LNilType:
		return hooks.Null
	case lua.LBool:
		return hooks.Bool(bool(lv))
	case lua.LNumber:
		f := float64(lv)
		if f == float64(int64(f)) {
			return hooks.Int(int64(f))
		}
		return hooks.Float(f)
	case lua.LString:
		return hooks.String(string(lv))
	case *lua.LTable:
		return fromLuaTable(lv)
	case *lua.LUserData:
		return hooks.Foreign(lv.Value)
	default:
		return hooks.Null
	}
}

func fromLuaTable(t *lua.LTable) hooks.Value {
	n := t.Len()
	if n > 0 && isDenseSeq(t, n) {
		seq := make([]hooks.Value, n)
		for i := 1; i <= n; i++ {
			seq[i-1] = fromLua(t.RawGetInt(i))
		}
		return hooks.Seq(seq...)
	}
	m := map[string]hooks.Value{}
	t.ForEach(func(k, val lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			m[string(ks)] = fromLua(val)
		}
	})
	if len(m) == 0 && n == 0 {
		// An empty table is ambiguous; treat as an empty map, matching
		// the json module's default (scripts use json.array() to force
		// empty-sequence encoding, per spec.md §4.3).
		return hooks.Map(m)
	}
	return hooks.Map(m)
}

func isDenseSeq(t *lua.LTable, n int) bool {
	count := 0
	t.ForEach(func(lua.LValue, lua.LValue) { count++ })
	return count == n
}
