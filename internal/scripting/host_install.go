package scripting

import lua "github.com/yuin/gopher-lua"

// installHostAPI installs every module spec.md §4.3 requires onto the
// engine's global Lua environment. Called once, at construction, before
// any script is loaded, so a script can reference every module at its top
// level.
func (e *Engine) installHostAPI() {
	e.ls.SetGlobal("sleep", e.ls.NewFunction(e.luaSleep))
	e.ls.SetGlobal("mutex", e.ls.NewFunction(e.luaMutexCtor))

	e.installUUID()
	e.installJSON()
	e.installBase64()
	e.installURL()
	e.installLog()
	e.installHTTP()
	e.installSQLite()
	e.installFernet()
	e.installTemplate()
}

// callableModule wraps a table with an __call metamethod so that calling
// the module directly (e.g. uuid(), base64()) dispatches to defaultFn, per
// spec.md's "calling the module is v4()" / "module-call is encode" rules.
func callableModule(L *lua.LState, t *lua.LTable, defaultFn lua.LGFunction) *lua.LTable {
	mt := L.NewTable()
	mt.RawSetString("__call", L.NewFunction(func(L *lua.LState) int {
		L.Remove(1) // drop the table itself from the call args
		return defaultFn(L)
	}))
	L.SetMetatable(t, mt)
	return t
}
