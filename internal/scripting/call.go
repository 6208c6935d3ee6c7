package scripting

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/benwilber/tinysse/internal/hooks"
)

// Call invokes the named global Lua function, if defined, with args
// converted from hooks.Value, serialized through the single script lane.
// defined is false (with a nil error) when the hook is simply not present
// in the script; callers use that to fall back to default behavior. A
// non-nil error means the hook was present but raised an error; the
// returned value itself is not checked here.
func (e *Engine) Call(ctx context.Context, name string, args ...hooks.Value) (result hooks.Value, defined bool, err error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	fn, ok := e.ls.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return hooks.Null, false, nil
	}

	prevCtx := e.currentCtx
	e.currentCtx = ctx
	defer func() { e.currentCtx = prevCtx }()

	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = toLua(e.ls, a)
	}

	if perr := e.ls.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs...); perr != nil {
		return hooks.Null, true, fmt.Errorf("scripting: hook %s: %w", name, perr)
	}
	ret := e.ls.Get(-1)
	e.ls.Pop(1)
	return fromLua(ret), true, nil
}

// CallVoid is Call without a return value, used for hooks whose return is
// ignored (tick, unsubscribe, startup).
func (e *Engine) CallVoid(ctx context.Context, name string, args ...hooks.Value) (defined bool, err error) {
	_, defined, err = e.Call(ctx, name, args...)
	return defined, err
}
