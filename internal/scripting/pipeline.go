package scripting

import (
	"context"

	"github.com/benwilber/tinysse/internal/hooks"
	"github.com/benwilber/tinysse/internal/message"
)

// Pipeline implements hooks.Pipeline by dispatching to the engine's Lua
// hooks, falling back to hooks.DefaultPipeline behavior wherever a hook is
// not defined in the script.
type Pipeline struct {
	Engine  *Engine
	fallback hooks.DefaultPipeline
}

var _ hooks.Pipeline = (*Pipeline)(nil)

// NewPipeline wraps an Engine as a hooks.Pipeline.
func NewPipeline(e *Engine) *Pipeline {
	return &Pipeline{Engine: e}
}

func (p *Pipeline) Startup(ctx context.Context, cli hooks.Value) error {
	_, defined, err := p.Engine.Call(ctx, "startup", cli)
	if !defined {
		return nil
	}
	return err
}

func (p *Pipeline) Tick(ctx context.Context, count uint64) error {
	_, defined, err := p.Engine.Call(ctx, "tick", hooks.Int(int64(count)))
	if !defined {
		return nil
	}
	return err
}

func (p *Pipeline) Publish(ctx context.Context, pub *hooks.PublishCtx) (bool, error) {
	arg := publishCtxToValue(pub)
	ret, defined, err := p.Engine.Call(ctx, "publish", arg)
	if !defined {
		return p.fallback.Publish(ctx, pub)
	}
	if err != nil || !ret.IsTable() {
		return false, err
	}
	applyPublishReturn(pub, ret)
	return true, nil
}

func (p *Pipeline) Subscribe(ctx context.Context, sub *hooks.SubscribeCtx) (bool, error) {
	arg := subscribeCtxToValue(sub)
	ret, defined, err := p.Engine.Call(ctx, "subscribe", arg)
	if !defined {
		return p.fallback.Subscribe(ctx, sub)
	}
	if err != nil || !ret.IsTable() {
		return false, err
	}
	applySubscribeReturn(sub, ret)
	return true, nil
}

func (p *Pipeline) Catchup(ctx context.Context, sub *hooks.SubscribeCtx, lastEventID string) ([]message.Message, error) {
	arg := subscribeCtxToValue(sub)
	idArg := hooks.Null
	if lastEventID != "" {
		idArg = hooks.String(lastEventID)
	}
	ret, defined, err := p.Engine.Call(ctx, "catchup", arg, idArg)
	if !defined {
		return p.fallback.Catchup(ctx, sub, lastEventID)
	}
	if err != nil {
		return nil, err
	}
	if ret.Kind != hooks.KindSeq {
		return nil, nil
	}
	out := make([]message.Message, 0, len(ret.Seq))
	for _, item := range ret.Seq {
		out = append(out, messageFromValue(item))
	}
	return out, nil
}

func (p *Pipeline) Message(ctx context.Context, pub *hooks.PublishCtx, sub *hooks.SubscribeCtx) (message.Message, bool, error) {
	pubArg := publishCtxToValue(pub)
	subArg := subscribeCtxToValue(sub)
	ret, defined, err := p.Engine.Call(ctx, "message", pubArg, subArg)
	if !defined {
		return p.fallback.Message(ctx, pub, sub)
	}
	if err != nil {
		return message.Message{}, false, err
	}
	if ret.IsNull() {
		return message.Message{}, false, nil
	}
	if msgv := ret.Get("msg"); !msgv.IsNull() {
		return messageFromValue(msgv), true, nil
	}
	return messageFromValue(ret), true, nil
}

func (p *Pipeline) Unsubscribe(ctx context.Context, sub *hooks.SubscribeCtx) {
	arg := subscribeCtxToValue(sub)
	if _, err := p.Engine.CallVoid(ctx, "unsubscribe", arg); err != nil {
		p.Engine.log.WithError(err).Warn("unsubscribe hook error")
	}
}

func (p *Pipeline) Timeout(ctx context.Context, sub *hooks.SubscribeCtx, elapsedMs int64) (int64, bool) {
	arg := subscribeCtxToValue(sub)
	ret, defined, err := p.Engine.Call(ctx, "timeout", arg, hooks.Int(elapsedMs))
	if !defined || err != nil {
		if err != nil {
			p.Engine.log.WithError(err).Warn("timeout hook error")
		}
		return 0, false
	}
	if ret.Kind == hooks.KindInt {
		return ret.Int, true
	}
	return 0, false
}
