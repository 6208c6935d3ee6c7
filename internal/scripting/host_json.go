package scripting

import (
	"encoding/json"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// jsonArrayMarker is set on the hidden key of a table produced by
// json.array(), so encode() renders it (and only it, when empty) as "[]"
// instead of the default "{}" for an empty table. Without the marker, an
// empty Lua table is ambiguous between an empty object and an empty array;
// spec.md §4.3 resolves that ambiguity by requiring the explicit sentinel.
const jsonArrayMarker = "__tinysse_json_array__"

// jsonNullUserData is the single sentinel instance returned as json.null.
type jsonNullUserData struct{}

func (e *Engine) installJSON() {
	nullUD := e.ls.NewUserData()
	nullUD.Value = jsonNullUserData{}

	t := e.ls.NewTable()
	t.RawSetString("null", nullUD)
	t.RawSetString("array", e.ls.NewFunction(luaJSONArray))
	t.RawSetString("encode", e.ls.NewFunction(luaJSONEncode))
	t.RawSetString("decode", e.ls.NewFunction(luaJSONDecode))
	t.RawSetString("print", e.ls.NewFunction(luaJSONPrint))
	t.RawSetString("pprint", e.ls.NewFunction(luaJSONPPrint))
	e.ls.SetGlobal("json", callableModule(e.ls, t, luaJSONEncode))
}

func luaJSONArray(L *lua.LState) int {
	t := L.NewTable()
	t.RawSetString(jsonArrayMarker, lua.LBool(true))
	L.Push(t)
	return 1
}

func luaJSONEncode(L *lua.LState) int {
	v := L.CheckAny(1)
	goVal := luaToGo(v)
	data, err := json.Marshal(goVal)
	if err != nil {
		L.RaiseError("json.encode: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(data))
	return 1
}

func luaJSONDecode(L *lua.LState) int {
	s := L.CheckString(1)
	var goVal interface{}
	if err := json.Unmarshal([]byte(s), &goVal); err != nil {
		L.RaiseError("json.decode: %s", err.Error())
		return 0
	}
	L.Push(goToLua(L, goVal))
	return 1
}

func luaJSONPrint(L *lua.LState) int {
	v := L.CheckAny(1)
	data, _ := json.Marshal(luaToGo(v))
	fmt.Println(string(data))
	return 0
}

func luaJSONPPrint(L *lua.LState) int {
	v := L.CheckAny(1)
	data, _ := json.MarshalIndent(luaToGo(v), "", "  ")
	fmt.Println(string(data))
	return 0
}

// luaToGo converts a Lua value into a plain Go value suitable for
// encoding/json, honoring the json.null and json.array() sentinels.
func luaToGo(v lua.LValue) interface{} {
	switch lv := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(lv)
	case lua.LNumber:
		return float64(lv)
	case lua.LString:
		return string(lv)
	case *lua.LUserData:
		if _, ok := lv.Value.(jsonNullUserData); ok {
			return nil
		}
		return fmt.Sprintf("%v", lv.Value)
	case *lua.LTable:
		n := lv.Len()
		if n > 0 {
			out := make([]interface{}, n)
			for i := 1; i <= n; i++ {
				out[i-1] = luaToGo(lv.RawGetInt(i))
			}
			return out
		}
		if b, ok := lv.RawGetString(jsonArrayMarker).(lua.LBool); ok && bool(b) {
			return []interface{}{}
		}
		m := map[string]interface{}{}
		empty := true
		lv.ForEach(func(k, val lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = luaToGo(val)
				empty = false
			}
		})
		if empty {
			return map[string]interface{}{}
		}
		return m
	default:
		return nil
	}
}

// goToLua converts a decoded encoding/json value back into a Lua value,
// using the json.null sentinel for JSON null so scripts can distinguish it
// from an absent field.
func goToLua(L *lua.LState, v interface{}) lua.LValue {
	switch gv := v.(type) {
	case nil:
		ud := L.NewUserData()
		ud.Value = jsonNullUserData{}
		return ud
	case bool:
		return lua.LBool(gv)
	case float64:
		return lua.LNumber(gv)
	case string:
		return lua.LString(gv)
	case []interface{}:
		t := L.NewTable()
		for i, elem := range gv {
			t.RawSetInt(i+1, goToLua(L, elem))
		}
		t.RawSetString(jsonArrayMarker, lua.LBool(true))
		return t
	case map[string]interface{}:
		t := L.NewTable()
		for k, elem := range gv {
			t.RawSetString(k, goToLua(L, elem))
		}
		return t
	default:
		return lua.LNil
	}
}
