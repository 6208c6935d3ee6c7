package scripting

import (
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// luaSleep implements sleep(ms): an awaitable timed suspension that
// releases the script lane for its duration rather than blocking the
// process (spec.md §4.3). It honors the calling hook's context so a
// cancelled session unblocks promptly at this suspension point.
func (e *Engine) luaSleep(L *lua.LState) int {
	ms := L.CheckInt64(1)
	ctx := e.context()
	e.Await(func() {
		timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		case <-e.closed:
		}
	})
	return 0
}

// asyncMutex is the Go backing object for a script-level mutex() value. It
// is an ordinary, non-reentrant sync.Mutex: recursive acquisition from the
// same logical lock-holder deadlocks by design, per spec.md §4.3.
type asyncMutex struct {
	mu sync.Mutex
}

// luaMutexCtor implements mutex(): returns a callable value. Invoking it
// with a function runs that function under exclusive ownership of the
// lock, suspending (not blocking the process) while the lock is contended.
func (e *Engine) luaMutexCtor(L *lua.LState) int {
	m := &asyncMutex{}

	lockFn := L.NewFunction(func(L *lua.LState) int {
		fn := L.CheckFunction(1)
		ctx := e.context()

		var got bool
		e.Await(func() {
			// The goroutine takes the lock on its own time and then
			// hands it off via a synchronous send on acquired. If the
			// waiter below gives up first (ctx done / engine closed),
			// it closes cancel instead of receiving — the goroutine's
			// own select then sees cancel ready and unlocks what it
			// just took, so the lock never leaks to an abandoned
			// holder.
			acquired := make(chan struct{})
			cancel := make(chan struct{})
			go func() {
				m.mu.Lock()
				select {
				case acquired <- struct{}{}:
				case <-cancel:
					m.mu.Unlock()
				}
			}()
			select {
			case <-acquired:
				got = true
			case <-ctx.Done():
				close(cancel)
			case <-e.closed:
				close(cancel)
			}
		})

		if !got {
			// Lock was never actually handed to us (context cancelled
			// or engine closed while waiting); nothing to run or
			// unlock.
			return 0
		}

		defer m.mu.Unlock()
		if err := L.CallByParam(lua.P{Fn: fn, NRet: lua.MultRet, Protect: true}); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return L.GetTop()
	})

	L.Push(lockFn)
	return 1
}
