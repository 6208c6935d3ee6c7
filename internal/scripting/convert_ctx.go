package scripting

import (
	"github.com/benwilber/tinysse/internal/hooks"
	"github.com/benwilber/tinysse/internal/message"
)

func reqToValue(r hooks.RequestSnapshot) hooks.Value {
	headers := map[string]hooks.Value{}
	for k, vs := range r.Headers {
		strs := make([]hooks.Value, len(vs))
		for i, v := range vs {
			strs[i] = hooks.String(v)
		}
		headers[k] = hooks.Seq(strs...)
	}
	return hooks.Map(map[string]hooks.Value{
		"method":      hooks.String(r.Method),
		"path":        hooks.String(r.Path),
		"query":       hooks.String(r.Query),
		"headers":     hooks.Map(headers),
		"remote_addr": hooks.String(r.RemoteAddr),
	})
}

func messageToValue(m message.Message) hooks.Value {
	comments := make([]hooks.Value, len(m.Comment))
	for i, c := range m.Comment {
		comments[i] = hooks.String(c)
	}
	return hooks.Map(map[string]hooks.Value{
		"id":      hooks.String(m.ID),
		"event":   hooks.String(m.Event),
		"data":    hooks.String(m.Data),
		"comment": hooks.Seq(comments...),
	})
}

func messageFromValue(v hooks.Value) message.Message {
	var m message.Message
	if v.Kind != hooks.KindMap {
		return m
	}
	m.ID = v.Get("id").AsString()
	m.Event = v.Get("event").AsString()
	m.Data = v.Get("data").AsString()
	if c := v.Get("comment"); c.Kind == hooks.KindSeq {
		for _, item := range c.Seq {
			m.Comment = append(m.Comment, item.AsString())
		}
	}
	return m
}

// publishCtxToValue renders a PublishCtx as the Lua-visible pub table:
// {req=..., msg=..., <extra fields>}.
func publishCtxToValue(pub *hooks.PublishCtx) hooks.Value {
	v := hooks.Null
	v = v.Set("req", reqToValue(pub.Req))
	v = v.Set("msg", messageToValue(pub.Msg))
	if pub.Extra.Kind == hooks.KindMap {
		for k, val := range pub.Extra.Map {
			v = v.Set(k, val)
		}
	}
	return v
}

// applyPublishReturn merges a hook's returned pub table back into pub,
// dropping any mutation to req (frozen per spec.md §3) and keeping msg and
// every other extra field the script set.
func applyPublishReturn(pub *hooks.PublishCtx, ret hooks.Value) {
	if ret.Kind != hooks.KindMap {
		return
	}
	if msgv := ret.Get("msg"); !msgv.IsNull() {
		pub.Msg = messageFromValue(msgv)
	}
	extra := map[string]hooks.Value{}
	for k, val := range ret.Map {
		if k == "req" || k == "msg" {
			continue
		}
		extra[k] = val
	}
	pub.Extra = hooks.Map(extra)
}

func subscribeCtxToValue(sub *hooks.SubscribeCtx) hooks.Value {
	v := hooks.Null
	v = v.Set("req", reqToValue(sub.Req))
	if sub.Extra.Kind == hooks.KindMap {
		for k, val := range sub.Extra.Map {
			v = v.Set(k, val)
		}
	}
	return v
}

func applySubscribeReturn(sub *hooks.SubscribeCtx, ret hooks.Value) {
	if ret.Kind != hooks.KindMap {
		return
	}
	extra := map[string]hooks.Value{}
	for k, val := range ret.Map {
		if k == "req" {
			continue
		}
		extra[k] = val
	}
	sub.Extra = hooks.Map(extra)
}
