package hooks

import (
	"context"

	"github.com/benwilber/tinysse/internal/message"
)

// Pipeline is the set of named hooks spec.md §4.4 defines, with the return
// discipline and error containment already baked into each method's
// signature: a rejection is a (false, nil) or (..., false, nil) result, not
// a Go error. A Go error from a Pipeline method means the hook itself
// misbehaved (panicked, raised, returned the wrong shape) and the caller
// must apply the hook's documented error semantics (reject / skip / log).
type Pipeline interface {
	// Startup runs once at process start. A non-nil error aborts startup.
	Startup(ctx context.Context, cli Value) error

	// Tick fires on every ticker interval with a strictly increasing,
	// 1-based counter. Errors are logged and otherwise ignored.
	Tick(ctx context.Context, count uint64) error

	// Publish may accept (true) or reject (false) a publish. On accept, pub
	// holds the (possibly mutated) context to enqueue.
	Publish(ctx context.Context, pub *PublishCtx) (accepted bool, err error)

	// Subscribe may accept or reject a new subscriber. On accept, sub
	// holds the (possibly mutated) context to keep for the session's
	// lifetime.
	Subscribe(ctx context.Context, sub *SubscribeCtx) (accepted bool, err error)

	// Catchup is called on every subscribe, even when lastEventID is
	// empty. It returns the ordered replay frames. On error, no catch-up
	// frames are sent (not a rejection of the subscription).
	Catchup(ctx context.Context, sub *SubscribeCtx, lastEventID string) ([]message.Message, error)

	// Message is called once per accepted publish, per live subscriber. A
	// false result means skip this subscriber for this message; it is not
	// an error.
	Message(ctx context.Context, pub *PublishCtx, sub *SubscribeCtx) (out message.Message, deliver bool, err error)

	// Unsubscribe runs exactly once per accepted subscribe, regardless of
	// teardown reason.
	Unsubscribe(ctx context.Context, sub *SubscribeCtx)

	// Timeout runs when a session's idle budget is exhausted. hasRetry
	// indicates whether the hook supplied an explicit retry value.
	Timeout(ctx context.Context, sub *SubscribeCtx, elapsedMs int64) (retryMs int64, hasRetry bool)
}

// DefaultPipeline implements the default-accept hooks used when no script
// is configured, per spec.md §4.4: publish and subscribe pass their context
// through unchanged, message delivers the publish unchanged, and every
// other hook is a no-op.
type DefaultPipeline struct{}

var _ Pipeline = DefaultPipeline{}

func (DefaultPipeline) Startup(context.Context, Value) error { return nil }

func (DefaultPipeline) Tick(context.Context, uint64) error { return nil }

func (DefaultPipeline) Publish(_ context.Context, _ *PublishCtx) (bool, error) {
	return true, nil
}

func (DefaultPipeline) Subscribe(_ context.Context, _ *SubscribeCtx) (bool, error) {
	return true, nil
}

func (DefaultPipeline) Catchup(context.Context, *SubscribeCtx, string) ([]message.Message, error) {
	return nil, nil
}

func (DefaultPipeline) Message(_ context.Context, pub *PublishCtx, _ *SubscribeCtx) (message.Message, bool, error) {
	return pub.Msg.Clone(), true, nil
}

func (DefaultPipeline) Unsubscribe(context.Context, *SubscribeCtx) {}

func (DefaultPipeline) Timeout(context.Context, *SubscribeCtx, int64) (int64, bool) {
	return 0, false
}
