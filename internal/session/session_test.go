package session

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benwilber/tinysse/internal/hooks"
	"github.com/benwilber/tinysse/internal/message"
	"github.com/benwilber/tinysse/internal/queue"
)

// bufWriter adapts a bytes.Buffer into session.Writer; Flush only counts
// calls, since the buffer has nowhere to flush to.
type bufWriter struct {
	bytes.Buffer
	flushes int32
}

func (w *bufWriter) Flush() { atomic.AddInt32(&w.flushes, 1) }

func newSub() *hooks.SubscribeCtx {
	return &hooks.SubscribeCtx{Req: hooks.RequestSnapshot{}}
}

func TestStreamBasicFanOut(t *testing.T) {
	q := queue.New(4)
	reader := q.Subscribe()
	w := &bufWriter{}
	sub := newSub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Stream(ctx, w, hooks.DefaultPipeline{}, sub, reader, Config{
			KeepAliveInterval: time.Hour,
			Timeout:           time.Hour,
		})
	}()

	// give Stream time to write the hello frame before publishing
	time.Sleep(10 * time.Millisecond)
	q.Publish(&message.Message{Data: "Hello"})
	time.Sleep(10 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stream did not return after cancellation")
	}

	out := w.String()
	if !strings.HasPrefix(out, ": ok\n\n") {
		t.Fatalf("missing hello frame, got %q", out)
	}
	if !strings.Contains(out, "data: Hello\n\n") {
		t.Fatalf("missing delivered frame, got %q", out)
	}
}

func TestStreamUnsubscribeCalledOnce(t *testing.T) {
	q := queue.New(4)
	reader := q.Subscribe()
	w := &bufWriter{}
	sub := newSub()

	var calls int32
	pl := &countingUnsubPipeline{calls: &calls}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Stream(ctx, w, pl, sub, reader, Config{
			KeepAliveInterval: time.Hour,
			Timeout:           time.Hour,
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stream did not return")
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("unsubscribe called %d times, want 1", got)
	}
}

func TestStreamTimeoutEmitsRetryFrame(t *testing.T) {
	q := queue.New(4)
	reader := q.Subscribe()
	w := &bufWriter{}
	sub := newSub()

	ctx := context.Background()
	err := Stream(ctx, w, hooks.DefaultPipeline{}, sub, reader, Config{
		KeepAliveInterval: time.Hour,
		Timeout:           20 * time.Millisecond,
		TimeoutRetryMs:    1500,
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}
	if !strings.Contains(w.String(), "retry: 1500\n\n") {
		t.Fatalf("missing retry frame, got %q", w.String())
	}
}

func TestStreamCatchupSkipsMessageHook(t *testing.T) {
	q := queue.New(4)
	reader := q.Subscribe()
	w := &bufWriter{}
	sub := newSub()

	var messageCalls int32
	pl := &catchupPipeline{messageCalls: &messageCalls}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Stream(ctx, w, pl, sub, reader, Config{
			KeepAliveInterval: time.Hour,
			Timeout:           time.Hour,
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	out := w.String()
	if !strings.Contains(out, "id: a\n") || !strings.Contains(out, "id: b\n") {
		t.Fatalf("missing catch-up frames, got %q", out)
	}
	if atomic.LoadInt32(&messageCalls) != 0 {
		t.Fatal("message hook invoked for catch-up frames")
	}
}

type countingUnsubPipeline struct {
	hooks.DefaultPipeline
	calls *int32
}

func (p *countingUnsubPipeline) Unsubscribe(ctx context.Context, sub *hooks.SubscribeCtx) {
	atomic.AddInt32(p.calls, 1)
}

type catchupPipeline struct {
	hooks.DefaultPipeline
	messageCalls *int32
}

func (p *catchupPipeline) Catchup(ctx context.Context, sub *hooks.SubscribeCtx, lastEventID string) ([]message.Message, error) {
	return []message.Message{
		{ID: "a", Data: "first"},
		{ID: "b", Data: "second"},
	}, nil
}

func (p *catchupPipeline) Message(ctx context.Context, pub *hooks.PublishCtx, sub *hooks.SubscribeCtx) (message.Message, bool, error) {
	atomic.AddInt32(p.messageCalls, 1)
	return pub.Msg.Clone(), true, nil
}
