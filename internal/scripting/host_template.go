package scripting

import (
	"html"
	"sync"

	"github.com/gobuffalo/plush/v4"
	lua "github.com/yuin/gopher-lua"
)

// templateSet holds named template sources a script has registered, so one
// template can include another (the "inheritance/blocks" pattern in
// spec.md §4.3: a base template includes a named block template, rather
// than plush's more limited partial mechanism).
type templateSet struct {
	mu  sync.RWMutex
	src map[string]string
}

func newTemplateSet() *templateSet {
	return &templateSet{src: map[string]string{}}
}

func (s *templateSet) set(name, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src[name] = source
}

func (s *templateSet) get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.src[name]
	return src, ok
}

// autoescapeMode controls post-render escaping. plush always HTML-escapes
// interpolated values; "json" and "none" modes reverse that, since neither
// a JSON body nor a plain-text body wants HTML entity escaping applied to
// its values.
type autoescapeMode string

const (
	autoescapeHTML autoescapeMode = "html"
	autoescapeJSON autoescapeMode = "json"
	autoescapeNone autoescapeMode = "none"
)

func (e *Engine) installTemplate() {
	t := e.ls.NewTable()
	t.RawSetString("set", e.ls.NewFunction(e.luaTemplateSet))
	t.RawSetString("render", e.ls.NewFunction(e.luaTemplateRender))
	t.RawSetString("render_string", e.ls.NewFunction(e.luaTemplateRenderString))
	e.ls.SetGlobal("template", t)
}

func (e *Engine) luaTemplateSet(L *lua.LState) int {
	name := L.CheckString(1)
	source := L.CheckString(2)
	e.templates.set(name, source)
	return 0
}

func (e *Engine) luaTemplateRender(L *lua.LState) int {
	name := L.CheckString(1)
	source, ok := e.templates.get(name)
	if !ok {
		L.RaiseError("template.render: no template named %q", name)
		return 0
	}
	return e.renderTemplate(L, source, 2)
}

func (e *Engine) luaTemplateRenderString(L *lua.LState) int {
	source := L.CheckString(1)
	return e.renderTemplate(L, source, 2)
}

func (e *Engine) renderTemplate(L *lua.LState, source string, dataArgIdx int) int {
	ctx := plush.NewContext()

	if data, ok := L.Get(dataArgIdx).(*lua.LTable); ok {
		data.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				ctx.Set(string(ks), luaToGo(v))
			}
		})
	}

	mode := autoescapeHTML
	if opts, ok := L.Get(dataArgIdx + 1).(*lua.LTable); ok {
		if m, ok := opts.RawGetString("autoescape").(lua.LString); ok {
			mode = autoescapeMode(m)
		}
	}

	ctx.Set("include", func(name string) (string, error) {
		inc, ok := e.templates.get(name)
		if !ok {
			return "", nil
		}
		return plush.Render(inc, ctx)
	})

	out, err := plush.Render(source, ctx)
	if err != nil {
		L.RaiseError("template.render: %s", err.Error())
		return 0
	}

	switch mode {
	case autoescapeJSON, autoescapeNone:
		out = html.UnescapeString(out)
	}

	L.Push(lua.LString(out))
	return 1
}
