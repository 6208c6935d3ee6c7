package scripting

import (
	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
)

func (e *Engine) installUUID() {
	t := e.ls.NewTable()
	t.RawSetString("v4", e.ls.NewFunction(luaUUIDv4))
	t.RawSetString("v7", e.ls.NewFunction(luaUUIDv7))
	e.ls.SetGlobal("uuid", callableModule(e.ls, t, luaUUIDv4))
}

func luaUUIDv4(L *lua.LState) int {
	L.Push(lua.LString(uuid.NewString()))
	return 1
}

func luaUUIDv7(L *lua.LState) int {
	id, err := uuid.NewV7()
	if err != nil {
		L.RaiseError("uuid.v7: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(id.String()))
	return 1
}
