// Package broker is the thin HTTP orchestrator of spec.md §4.5: it decodes
// publish requests, runs the publish/subscribe hooks, enqueues accepted
// messages, and hands accepted subscribers off to internal/session for the
// life of their connection. Routing follows buffkit's gorilla/mux usage
// (sse/broker.go's handler registration), generalized from buffkit's fixed
// /events path to the spec's configurable pub/sub paths.
package broker

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/benwilber/tinysse/internal/hooks"
	"github.com/benwilber/tinysse/internal/queue"
	"github.com/benwilber/tinysse/internal/session"
)

// Config carries every externally configurable knob the broker needs
// (spec.md §6); CLI parsing and env fallback live in internal/config, not
// here — the broker only consumes the resolved values.
type Config struct {
	PubPath  string
	SubPath  string
	MaxBodySize int64

	StaticDir  string
	StaticPath string

	CORS CORSOptions

	Session session.Config
}

// Broker wires the queue, the hook pipeline, and the HTTP surface
// together.
type Broker struct {
	cfg      Config
	queue    *queue.Queue
	pipeline hooks.Pipeline
	log      *logrus.Logger
	router   *mux.Router

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	mu              sync.RWMutex
	subscriberCount int
}

// New builds a Broker and its routing table. The returned *Broker is an
// http.Handler and can be served directly or wrapped by an *http.Server.
func New(cfg Config, q *queue.Queue, pipeline hooks.Pipeline, log *logrus.Logger) *Broker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.PubPath == "" {
		cfg.PubPath = "/sse"
	}
	if cfg.SubPath == "" {
		cfg.SubPath = "/sse"
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	b := &Broker{
		cfg:        cfg,
		queue:      q,
		pipeline:   pipeline,
		log:        log,
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
	b.router = b.buildRouter()
	return b
}

func (b *Broker) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(CORSMiddleware(b.cfg.CORS))

	if b.cfg.PubPath == b.cfg.SubPath {
		r.HandleFunc(b.cfg.PubPath, b.handleSubscribe).Methods(http.MethodGet)
		r.HandleFunc(b.cfg.PubPath, b.handlePublish).Methods(http.MethodPost)
		r.HandleFunc(b.cfg.PubPath, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}).Methods(http.MethodHead)
	} else {
		r.HandleFunc(b.cfg.SubPath, b.handleSubscribe).Methods(http.MethodGet)
		r.HandleFunc(b.cfg.PubPath, b.handlePublish).Methods(http.MethodPost)
	}

	// A matching route is needed for CORS preflights: mux runs middleware
	// only for matched routes.
	r.Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	if b.cfg.StaticDir != "" {
		path := b.cfg.StaticPath
		if path == "" {
			path = "/"
		}
		fs := http.FileServer(http.Dir(b.cfg.StaticDir))
		r.PathPrefix(path).Handler(http.StripPrefix(path, fs))
	}

	return r
}

// ServeHTTP satisfies http.Handler, delegating to the internal router.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// LiveSubscribers reports the number of currently attached reader
// sessions. Used to populate the publish response's "subscribers" field.
func (b *Broker) LiveSubscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subscriberCount
}

func (b *Broker) trackSubscriber(delta int) {
	b.mu.Lock()
	b.subscriberCount += delta
	b.mu.Unlock()
}

// Shutdown cancels every in-flight session and waits up to grace for them
// to finish their unsubscribe hook (spec.md §5).
func (b *Broker) Shutdown(ctx context.Context, grace time.Duration) {
	b.rootCancel()
	b.queue.Close()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		b.log.Warn("shutdown grace period elapsed with sessions still open")
	case <-ctx.Done():
	}
}
