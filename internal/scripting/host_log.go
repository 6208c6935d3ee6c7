package scripting

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

// installLog installs the log module, backed by the engine's logrus
// logger. Each level has a plain variadic form (args joined with a space,
// like print) and an "f" formatted form (first arg is a Printf pattern).
func (e *Engine) installLog() {
	t := e.ls.NewTable()
	e.registerLogLevel(t, "error", logrus.ErrorLevel)
	e.registerLogLevel(t, "warn", logrus.WarnLevel)
	e.registerLogLevel(t, "info", logrus.InfoLevel)
	e.registerLogLevel(t, "debug", logrus.DebugLevel)
	e.registerLogLevel(t, "trace", logrus.TraceLevel)
	e.ls.SetGlobal("log", t)
}

func (e *Engine) registerLogLevel(t *lua.LTable, name string, level logrus.Level) {
	t.RawSetString(name, e.ls.NewFunction(func(L *lua.LState) int {
		e.log.Log(level, luaJoinArgs(L))
		return 0
	}))
	t.RawSetString(name+"f", e.ls.NewFunction(func(L *lua.LState) int {
		e.log.Log(level, luaFormatArgs(L))
		return 0
	}))
}

func luaJoinArgs(L *lua.LState) string {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.Get(i).String()
	}
	return strings.Join(parts, " ")
}

func luaFormatArgs(L *lua.LState) string {
	n := L.GetTop()
	if n == 0 {
		return ""
	}
	format := L.CheckString(1)
	args := make([]interface{}, 0, n-1)
	for i := 2; i <= n; i++ {
		args = append(args, L.Get(i).String())
	}
	return fmt.Sprintf(format, args...)
}
