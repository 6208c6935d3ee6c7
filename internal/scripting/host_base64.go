package scripting

import (
	"encoding/base64"

	lua "github.com/yuin/gopher-lua"
)

// installBase64 installs the base64 module: standard and URL-safe
// encode/decode, per spec.md §4.3. Calling the module directly is
// shorthand for encode() with the standard alphabet.
func (e *Engine) installBase64() {
	t := e.ls.NewTable()
	t.RawSetString("encode", e.ls.NewFunction(luaBase64Encode))
	t.RawSetString("decode", e.ls.NewFunction(luaBase64Decode))
	t.RawSetString("url_encode", e.ls.NewFunction(luaBase64URLEncode))
	t.RawSetString("url_decode", e.ls.NewFunction(luaBase64URLDecode))
	e.ls.SetGlobal("base64", callableModule(e.ls, t, luaBase64Encode))
}

func luaBase64Encode(L *lua.LState) int {
	s := L.CheckString(1)
	L.Push(lua.LString(base64.StdEncoding.EncodeToString([]byte(s))))
	return 1
}

func luaBase64Decode(L *lua.LState) int {
	s := L.CheckString(1)
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		L.RaiseError("base64.decode: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(data))
	return 1
}

func luaBase64URLEncode(L *lua.LState) int {
	s := L.CheckString(1)
	L.Push(lua.LString(base64.URLEncoding.EncodeToString([]byte(s))))
	return 1
}

func luaBase64URLDecode(L *lua.LState) int {
	s := L.CheckString(1)
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		L.RaiseError("base64.url_decode: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(data))
	return 1
}
