package hooks

import (
	"context"
	"testing"

	"github.com/benwilber/tinysse/internal/message"
)

func TestDefaultPipelinePassesThrough(t *testing.T) {
	ctx := context.Background()
	p := DefaultPipeline{}

	pub := &PublishCtx{Msg: message.Message{Data: "hi"}}
	ok, err := p.Publish(ctx, pub)
	if !ok || err != nil {
		t.Fatalf("Publish() = (%v, %v), want (true, nil)", ok, err)
	}

	sub := &SubscribeCtx{}
	ok, err = p.Subscribe(ctx, sub)
	if !ok || err != nil {
		t.Fatalf("Subscribe() = (%v, %v), want (true, nil)", ok, err)
	}

	out, deliver, err := p.Message(ctx, pub, sub)
	if !deliver || err != nil || out.Data != "hi" {
		t.Fatalf("Message() = (%+v, %v, %v)", out, deliver, err)
	}

	frames, err := p.Catchup(ctx, sub, "")
	if frames != nil || err != nil {
		t.Fatalf("Catchup() = (%v, %v), want (nil, nil)", frames, err)
	}

	if _, has := p.Timeout(ctx, sub, 1000); has {
		t.Fatalf("Timeout() hasRetry = true, want false")
	}
}

func TestValueMapGetSet(t *testing.T) {
	v := Null
	v = v.Set("id", String("abc"))
	if got := v.Get("id").AsString(); got != "abc" {
		t.Errorf("Get(id) = %q, want abc", got)
	}
	if !v.Get("missing").IsNull() {
		t.Error("Get(missing) should be null")
	}
}

func TestRequestSnapshotLastEventID(t *testing.T) {
	r := RequestSnapshot{
		Headers: map[string][]string{"Last-Event-Id": {"h1"}},
		Query:   "last_event_id=q1",
	}
	if got := r.LastEventID(); got != "h1" {
		t.Errorf("LastEventID() = %q, want h1 (header wins)", got)
	}

	r2 := RequestSnapshot{Query: "last_event_id=q1"}
	if got := r2.LastEventID(); got != "q1" {
		t.Errorf("LastEventID() = %q, want q1", got)
	}
}
