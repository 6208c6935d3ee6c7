package broker

import (
	"context"
	"net/http"

	"github.com/benwilber/tinysse/internal/hooks"
	"github.com/benwilber/tinysse/internal/session"
)

// handleSubscribe implements spec.md §4.5's subscribe path. The queue
// reader is attached before the catchup hook runs (inside session.Stream),
// satisfying the ordering contract of spec.md §5: messages published
// during catch-up must be queued for live delivery, not missed.
func (b *Broker) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	sw, ok := w.(session.Writer)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := &hooks.SubscribeCtx{Req: hooks.SnapshotRequest(r)}
	accepted, err := b.pipeline.Subscribe(r.Context(), sub)
	if err != nil {
		b.log.WithError(err).Warn("subscribe hook error")
	}
	if !accepted {
		http.Error(w, "subscribe rejected", http.StatusForbidden)
		return
	}

	reader := b.queue.Subscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	sw.Flush()

	ctx, stop := mergeContext(r.Context(), b.rootCtx)
	defer stop()

	b.trackSubscriber(1)
	b.wg.Add(1)
	defer func() {
		b.trackSubscriber(-1)
		b.wg.Done()
	}()

	if err := session.Stream(ctx, sw, b.pipeline, sub, reader, b.cfg.Session); err != nil {
		b.log.WithError(err).WithField("remote", r.RemoteAddr).Debug("subscriber stream ended")
	}
}

// mergeContext returns a context cancelled when either a or b is done.
func mergeContext(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
