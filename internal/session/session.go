// Package session drives one subscriber's outbound SSE byte stream: the
// Opening -> Hello -> [Catchup] -> Live <-> Idle -> Closing -> Closed state
// machine of spec.md §4.2, grounded on the connection loop in buffkit's
// sse/handler.go ServeHTTP (hello frame, per-event write+flush, teardown on
// disconnect) generalized from a fixed "connected" event to the full
// catch-up/live/keep-alive/idle-timeout contract a script controls.
package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/benwilber/tinysse/internal/hooks"
	"github.com/benwilber/tinysse/internal/message"
	"github.com/benwilber/tinysse/internal/queue"
)

// Writer is what a session writes SSE frames to: a flushable byte sink.
// The http.ResponseWriter net/http hands a handler satisfies this whenever
// the underlying transport supports streaming, which net/http guarantees
// for HTTP/1.1 and HTTP/2.
type Writer interface {
	io.Writer
	http.Flusher
}

// Config carries the per-session timing knobs spec.md §6 exposes as CLI
// flags.
type Config struct {
	KeepAliveInterval time.Duration
	KeepAliveText     string
	Timeout           time.Duration
	TimeoutRetryMs    int64
	Logger            *logrus.Logger
}

// Stream drives one subscriber connection to completion: it writes the
// hello frame, replays catch-up if requested, then alternates live
// delivery and keep-alives until the connection is closed, times out, or
// the queue shuts down. reader must already be subscribed to the queue —
// the caller is responsible for satisfying the ordering contract of
// spec.md §5 (subscribe the reader before calling the catchup hook).
//
// Stream calls pipeline.Unsubscribe exactly once before returning,
// regardless of how the session ends.
func Stream(ctx context.Context, w Writer, pipeline hooks.Pipeline, sub *hooks.SubscribeCtx, reader *queue.Reader, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	id := NewID()
	log := logger.WithField("subscriber", string(id))

	defer pipeline.Unsubscribe(ctx, sub)

	if err := writeFrame(w, message.CommentFrame("ok")); err != nil {
		return err
	}

	if err := runCatchup(ctx, w, pipeline, sub); err != nil {
		log.WithError(err).Warn("catchup hook error")
	}

	return runLive(ctx, w, pipeline, sub, reader, cfg, log)
}

// runCatchup replays Last-Event-ID history, if any, directly to the wire.
// The message hook is never invoked for these frames (spec.md §4.7).
func runCatchup(ctx context.Context, w Writer, pipeline hooks.Pipeline, sub *hooks.SubscribeCtx) error {
	lastEventID := sub.Req.LastEventID()
	msgs, err := pipeline.Catchup(ctx, sub, lastEventID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if err := writeFrame(w, m.Frame()); err != nil {
			return err
		}
	}
	return nil
}

type recvResult struct {
	rec queue.Recv
	err error
}

func runLive(ctx context.Context, w Writer, pipeline hooks.Pipeline, sub *hooks.SubscribeCtx, reader *queue.Reader, cfg Config, log *logrus.Entry) error {
	start := time.Now()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	keepAlive := cfg.KeepAliveInterval
	if keepAlive <= 0 {
		keepAlive = 60 * time.Second
	}
	keepAliveText := cfg.KeepAliveText
	if keepAliveText == "" {
		keepAliveText = "keep-alive"
	}

	pumpCtx, cancelPump := context.WithCancel(ctx)
	defer cancelPump()

	results := make(chan recvResult, 1)
	go func() {
		for {
			rec, err := reader.Recv(pumpCtx)
			results <- recvResult{rec, err}
			if err != nil || rec.Kind == queue.RecvClosed {
				return
			}
		}
	}()

	idleTimer := time.NewTimer(timeout)
	defer idleTimer.Stop()
	keepAliveTimer := time.NewTimer(keepAlive)
	defer keepAliveTimer.Stop()

	resetKeepAlive := func() {
		if !keepAliveTimer.Stop() {
			select {
			case <-keepAliveTimer.C:
			default:
			}
		}
		keepAliveTimer.Reset(keepAlive)
	}

	for {
		select {
		case res := <-results:
			if res.err != nil {
				return nil // client disconnect or shutdown cancellation
			}
			switch res.rec.Kind {
			case queue.RecvClosed:
				return nil
			case queue.RecvLagged:
				log.WithField("count", res.rec.Count).Info("subscriber lagged")
			case queue.RecvMessage:
				pub := &hooks.PublishCtx{Msg: *res.rec.Msg}
				out, deliver, err := pipeline.Message(ctx, pub, sub)
				if err != nil {
					log.WithError(err).Warn("message hook error")
					continue
				}
				if !deliver {
					continue
				}
				if err := writeFrame(w, out.Frame()); err != nil {
					return err
				}
				resetKeepAlive()
			}

		case <-keepAliveTimer.C:
			if err := writeFrame(w, message.CommentFrame(keepAliveText)); err != nil {
				return err
			}
			keepAliveTimer.Reset(keepAlive)

		case <-idleTimer.C:
			elapsedMs := time.Since(start).Milliseconds()
			retryMs, hasRetry := pipeline.Timeout(ctx, sub, elapsedMs)
			if !hasRetry {
				retryMs = cfg.TimeoutRetryMs
			}
			writeFrame(w, message.RetryFrame(retryMs))
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}

func writeFrame(w Writer, frame string) error {
	if _, err := fmt.Fprint(w, frame); err != nil {
		return err
	}
	w.Flush()
	return nil
}
