package scripting

import (
	"net/url"

	lua "github.com/yuin/gopher-lua"
)

// installURL installs the url module: form encode/decode (with support for
// repeated keys) and raw component quote/unquote, per spec.md §4.3.
func (e *Engine) installURL() {
	t := e.ls.NewTable()
	t.RawSetString("encode", e.ls.NewFunction(luaURLEncode))
	t.RawSetString("decode", e.ls.NewFunction(luaURLDecode))
	t.RawSetString("quote", e.ls.NewFunction(luaURLQuote))
	t.RawSetString("unquote", e.ls.NewFunction(luaURLUnquote))
	e.ls.SetGlobal("url", callableModule(e.ls, t, luaURLEncode))
}

// luaURLEncode builds a query string from a table. A key whose value is a
// sequence table is emitted once per element, supporting repeatable keys
// (e.g. {tag = {"a", "b"}} -> "tag=a&tag=b").
func luaURLEncode(L *lua.LState) int {
	tbl := L.CheckTable(1)
	values := url.Values{}
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		if seq, ok := v.(*lua.LTable); ok {
			n := seq.Len()
			for i := 1; i <= n; i++ {
				values.Add(string(key), lua.LVAsString(seq.RawGetInt(i)))
			}
			return
		}
		values.Add(string(key), lua.LVAsString(v))
	})
	L.Push(lua.LString(values.Encode()))
	return 1
}

// luaURLDecode parses a query string into a table. A key seen more than
// once is returned as a sequence of its values; a key seen once is
// returned as a plain string.
func luaURLDecode(L *lua.LState) int {
	s := L.CheckString(1)
	values, err := url.ParseQuery(s)
	if err != nil {
		L.RaiseError("url.decode: %s", err.Error())
		return 0
	}
	out := L.NewTable()
	for k, vs := range values {
		if len(vs) == 1 {
			out.RawSetString(k, lua.LString(vs[0]))
			continue
		}
		seq := L.NewTable()
		for i, v := range vs {
			seq.RawSetInt(i+1, lua.LString(v))
		}
		out.RawSetString(k, seq)
	}
	L.Push(out)
	return 1
}

func luaURLQuote(L *lua.LState) int {
	s := L.CheckString(1)
	L.Push(lua.LString(url.QueryEscape(s)))
	return 1
}

func luaURLUnquote(L *lua.LState) int {
	s := L.CheckString(1)
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		L.RaiseError("url.unquote: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(decoded))
	return 1
}
