package broker

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/benwilber/tinysse/internal/hooks"
	"github.com/benwilber/tinysse/internal/message"
)

type publishBody struct {
	ID      string   `json:"id"`
	Event   string   `json:"event"`
	Data    string   `json:"data"`
	Comment []string `json:"comment"`
}

// handlePublish implements spec.md §4.5's publish path: decode by
// content-type, validate, run the publish hook, enqueue, respond 202.
func (b *Broker) handlePublish(w http.ResponseWriter, r *http.Request) {
	if b.cfg.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, b.cfg.MaxBodySize)
	}

	msg, err := decodePublishBody(r)
	if err != nil {
		if err == errBodyTooLarge {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		if err == errUnsupportedContentType {
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := msg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pub := &hooks.PublishCtx{
		Req: hooks.SnapshotRequest(r),
		Msg: msg,
	}

	accepted, err := b.pipeline.Publish(r.Context(), pub)
	if err != nil {
		b.log.WithError(err).Warn("publish hook error")
	}
	if !accepted {
		http.Error(w, "publish rejected", http.StatusForbidden)
		return
	}

	b.queue.Publish(&pub.Msg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]int{
		"queued":      1,
		"subscribers": b.LiveSubscribers(),
	})
}

var (
	errBodyTooLarge           = httpError("request body exceeds maximum size")
	errUnsupportedContentType = httpError("unsupported content-type")
)

type httpError string

func (e httpError) Error() string { return string(e) }

func decodePublishBody(r *http.Request) (message.Message, error) {
	ct := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return message.Message{}, errUnsupportedContentType
	}

	switch mediaType {
	case "application/json":
		var body publishBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			if err.Error() == "http: request body too large" {
				return message.Message{}, errBodyTooLarge
			}
			return message.Message{}, err
		}
		return message.Message{
			ID:      body.ID,
			Event:   body.Event,
			Data:    body.Data,
			Comment: body.Comment,
		}, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			if err.Error() == "http: request body too large" {
				return message.Message{}, errBodyTooLarge
			}
			return message.Message{}, err
		}
		return message.Message{
			ID:      r.Form.Get("id"),
			Event:   r.Form.Get("event"),
			Data:    r.Form.Get("data"),
			Comment: r.Form["comment"],
		}, nil

	default:
		return message.Message{}, errUnsupportedContentType
	}
}
