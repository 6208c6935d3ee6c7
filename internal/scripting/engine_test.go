package scripting

import (
	"context"
	"sync"
	"testing"

	"github.com/benwilber/tinysse/internal/hooks"
)

func TestHasHookAndCallUndefined(t *testing.T) {
	e, err := New(`function publish(p) return p end`, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if !e.HasHook("publish") {
		t.Fatal("expected publish hook to be defined")
	}
	if e.HasHook("subscribe") {
		t.Fatal("expected subscribe hook to be undefined")
	}

	_, defined, err := e.Call(context.Background(), "subscribe")
	if err != nil {
		t.Fatal(err)
	}
	if defined {
		t.Fatal("Call reported a hook as defined that was never set")
	}
}

func TestCallRoundTripsValues(t *testing.T) {
	e, err := New(`
		function publish(p)
			p.msg.data = p.msg.data .. "-seen"
			return p
		end
	`, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	arg := hooks.Null.Set("msg", hooks.Null.Set("data", hooks.String("hello")))
	ret, defined, err := e.Call(context.Background(), "publish", arg)
	if err != nil || !defined {
		t.Fatalf("Call failed: defined=%v err=%v", defined, err)
	}
	got := ret.Get("msg").Get("data").AsString()
	if got != "hello-seen" {
		t.Fatalf("got %q, want %q", got, "hello-seen")
	}
}

// TestScriptSerialization exercises P9: a hook with no suspension points
// run from 100 concurrent triggers must increment a shared global exactly
// 100 times, because the engine serializes hook execution through a single
// lane.
func TestScriptSerialization(t *testing.T) {
	e, err := New(`
		counter = 0
		function tick(n)
			local x = counter
			counter = x + 1
		end
	`, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			e.CallVoid(context.Background(), "tick", hooks.Int(int64(n)))
		}(i)
	}
	wg.Wait()

	e.lock.Lock()
	counterLV := e.ls.GetGlobal("counter")
	e.lock.Unlock()

	got := fromLua(counterLV)
	if got.Kind != hooks.KindInt || got.Int != 100 {
		t.Fatalf("counter = %+v, want 100", got)
	}
}

func TestSleepSuspendsWithoutBlockingOtherHooks(t *testing.T) {
	e, err := New(`
		function publish(p)
			sleep(10)
			return p
		end
		function subscribe(s)
			return s
		end
	`, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	done := make(chan struct{})
	go func() {
		e.Call(context.Background(), "publish", hooks.Null.Set("msg", hooks.Null))
		close(done)
	}()

	// While publish is sleeping (lane released), subscribe must still be
	// able to run without waiting for publish to finish.
	ret, defined, err := e.Call(context.Background(), "subscribe", hooks.Null)
	if err != nil || !defined {
		t.Fatalf("subscribe call failed while publish slept: defined=%v err=%v", defined, err)
	}
	if ret.IsNull() {
		t.Fatal("expected subscribe to return its argument")
	}

	<-done
}
