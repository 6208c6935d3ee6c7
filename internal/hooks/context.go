package hooks

import (
	"net/http"
	"net/url"

	"github.com/benwilber/tinysse/internal/message"
)

// RequestSnapshot is the frozen request sub-record visible to scripts as
// pub.req / sub.req. It is captured once per request and any script
// mutation to it is discarded before the context is reused, per spec.md
// ("req sub-record is frozen").
type RequestSnapshot struct {
	Method     string
	Path       string
	Query      string
	Headers    map[string][]string
	RemoteAddr string
}

// SnapshotRequest freezes the parts of an *http.Request the script surface
// exposes.
func SnapshotRequest(r *http.Request) RequestSnapshot {
	headers := make(map[string][]string, len(r.Header))
	for k, v := range r.Header {
		headers[k] = append([]string(nil), v...)
	}
	return RequestSnapshot{
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.RawQuery,
		Headers:    headers,
		RemoteAddr: r.RemoteAddr,
	}
}

// LastEventID resolves Last-Event-ID per spec.md §4.7: the header takes
// precedence over the last_event_id query parameter.
func (r RequestSnapshot) LastEventID() string {
	if v := r.Headers["Last-Event-Id"]; len(v) > 0 {
		return v[0]
	}
	if v := r.Headers["Last-Event-ID"]; len(v) > 0 {
		return v[0]
	}
	q, err := url.ParseQuery(r.Query)
	if err == nil {
		if v := q.Get("last_event_id"); v != "" {
			return v
		}
	}
	return ""
}

// PublishCtx is constructed per publish request (spec.md §3).
type PublishCtx struct {
	Req   RequestSnapshot
	Msg   message.Message
	Extra Value // mutable script-visible bag, e.g. pub.id
}

// SubscribeCtx is constructed per new subscriber and held for the whole
// session lifetime, passed by reference into every per-subscriber hook.
type SubscribeCtx struct {
	Req   RequestSnapshot
	Extra Value // mutable script-visible bag, e.g. sub.id
}
