// Package scripting owns the embedded Lua runtime and exposes the host API
// tinysse scripts can call: sleep, mutex, an HTTP agent, structured logging,
// uuid/json/base64/url codecs, sqlite, fernet, and templates (spec.md §4.3).
//
// The runtime is logically single-threaded: exactly one hook executes Lua
// code at any instant, process-wide (spec.md §5). That is modeled here with
// a single mutex guarding the *lua.LState, not a channel-actor, because the
// suspension points scripts need (sleep, mutex, http) are expressed as
// plain blocking Go calls that release the mutex for their duration and
// reacquire it before returning control to Lua — "serialization per
// scripting step, not per hook call" falls out of that directly: a hook
// that never calls Await runs start-to-finish before any other hook's
// Lua code can run, and one that does call Await lets a queued hook run
// during the gap.
package scripting

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

// Engine owns the single Lua state shared by every hook invocation.
type Engine struct {
	lock sync.Mutex
	ls   *lua.LState

	log *logrus.Logger

	// currentCtx is the context.Context of whichever hook call currently
	// holds lock. Host primitives read it to observe cancellation at
	// their suspension point. It is only valid while lock is held by the
	// call that set it.
	currentCtx context.Context

	httpAgent *httpAgent
	sqliteDBs *sqliteRegistry
	templates *templateSet

	closed chan struct{}
}

// Options configures Engine construction.
type Options struct {
	Logger       *logrus.Logger
	UnsafeScript bool // when false, os/io-capable Lua stdlib is not opened
}

// New creates an Engine and loads the given Lua source as the script. An
// empty source is valid: no hooks will be defined, so every hook call
// reports "not defined" and the caller falls back to DefaultPipeline
// behavior.
func New(source string, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	ls := lua.NewState(lua.Options{SkipOpenLibs: !opts.UnsafeScript})
	if !opts.UnsafeScript {
		// Only load the safe subset: no io/os/package/debug, which could
		// escape the sandbox. Scripts still get base, table, string,
		// math per the --unsafe-script=false default.
		for _, pair := range []struct {
			name string
			fn   lua.LGFunction
		}{
			{lua.BaseLibName, lua.OpenBase},
			{lua.TabLibName, lua.OpenTable},
			{lua.StringLibName, lua.OpenString},
			{lua.MathLibName, lua.OpenMath},
		} {
			if err := ls.CallByParam(lua.P{Fn: ls.NewFunction(pair.fn), NRet: 0, Protect: true}, lua.LString(pair.name)); err != nil {
				return nil, fmt.Errorf("scripting: opening %s: %w", pair.name, err)
			}
		}
	}

	e := &Engine{
		ls:        ls,
		log:       opts.Logger,
		httpAgent: newHTTPAgent(),
		sqliteDBs: newSQLiteRegistry(),
		templates: newTemplateSet(),
		closed:    make(chan struct{}),
	}
	e.installHostAPI()

	if source != "" {
		if err := ls.DoString(source); err != nil {
			return nil, fmt.Errorf("scripting: loading script: %w", err)
		}
	}
	return e, nil
}

// Close releases engine resources. Safe to call once.
func (e *Engine) Close() {
	select {
	case <-e.closed:
		return
	default:
		close(e.closed)
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	e.ls.Close()
	e.sqliteDBs.closeAll()
}

// HasHook reports whether the named global is defined as a Lua function,
// without running anything.
func (e *Engine) HasHook(name string) bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	_, ok := e.ls.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Await runs fn without holding the Lua state lock, so other queued hook
// invocations can run their own Lua code while fn blocks. Host primitives
// (sleep, mutex, http) are built on this. The lock is reacquired before
// Await returns, regardless of how fn completes.
func (e *Engine) Await(fn func()) {
	e.lock.Unlock()
	defer e.lock.Lock()
	fn()
}

// context returns the context.Context of the currently executing hook, for
// host primitives to select on. Must be called with lock held.
func (e *Engine) context() context.Context {
	if e.currentCtx != nil {
		return e.currentCtx
	}
	return context.Background()
}
