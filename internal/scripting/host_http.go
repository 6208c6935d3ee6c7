package scripting

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// httpAgent is a reusable HTTP client with a shared connection pool and a
// set of default headers applied to every request it issues, per
// spec.md §4.3's "one-shot + reusable agent" contract. Bodies are always
// read fully into memory before control returns to the script; tinysse
// scripts are not expected to stream multi-gigabyte payloads.
type httpAgent struct {
	client  *http.Client
	headers http.Header
}

func newHTTPAgent() *httpAgent {
	return &httpAgent{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: http.Header{},
	}
}

func (e *Engine) installHTTP() {
	t := e.ls.NewTable()
	t.RawSetString("get", e.ls.NewFunction(e.luaHTTPRequest("GET")))
	t.RawSetString("post", e.ls.NewFunction(e.luaHTTPRequest("POST")))
	t.RawSetString("put", e.ls.NewFunction(e.luaHTTPRequest("PUT")))
	t.RawSetString("patch", e.ls.NewFunction(e.luaHTTPRequest("PATCH")))
	t.RawSetString("delete", e.ls.NewFunction(e.luaHTTPRequest("DELETE")))
	t.RawSetString("request", e.ls.NewFunction(e.luaHTTPRequestMethod))
	t.RawSetString("agent", e.ls.NewFunction(e.luaHTTPNewAgent))
	e.ls.SetGlobal("http", t)
}

// luaHTTPNewAgent implements http.agent(opts): an agent carries its own
// default headers (opts.headers) layered under per-call overrides.
func (e *Engine) luaHTTPNewAgent(L *lua.LState) int {
	agent := newHTTPAgent()
	if opts, ok := L.Get(1).(*lua.LTable); ok {
		if hdrs, ok := opts.RawGetString("headers").(*lua.LTable); ok {
			hdrs.ForEach(func(k, v lua.LValue) {
				agent.headers.Set(k.String(), v.String())
			})
		}
	}

	mt := L.NewTable()
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		method := m
		mt.RawSetString(strings.ToLower(method), L.NewFunction(func(L *lua.LState) int {
			L.Remove(1) // drop self
			return e.doHTTPRequest(L, agent, method)
		}))
	}
	L.Push(mt)
	return 1
}

func (e *Engine) luaHTTPRequest(method string) lua.LGFunction {
	return func(L *lua.LState) int {
		return e.doHTTPRequest(L, nil, method)
	}
}

func (e *Engine) luaHTTPRequestMethod(L *lua.LState) int {
	method := L.CheckString(1)
	L.Remove(1)
	return e.doHTTPRequest(L, nil, strings.ToUpper(method))
}

// doHTTPRequest performs one buffered HTTP round trip: url [, opts]. opts
// may carry body and headers fields; any other field, such as query, is
// ignored. The request suspends the
// script lane for the duration of the round trip rather than blocking the
// process.
func (e *Engine) doHTTPRequest(L *lua.LState, agent *httpAgent, method string) int {
	target := L.CheckString(1)
	var body string
	headers := http.Header{}
	if opts, ok := L.Get(2).(*lua.LTable); ok {
		if b, ok := opts.RawGetString("body").(lua.LString); ok {
			body = string(b)
		}
		if hdrs, ok := opts.RawGetString("headers").(*lua.LTable); ok {
			hdrs.ForEach(func(k, v lua.LValue) {
				headers.Set(k.String(), v.String())
			})
		}
	}

	client := e.httpAgent.client
	if agent != nil {
		client = agent.client
	}

	var (
		status  int
		respHdr http.Header
		respBody []byte
		reqErr  error
	)

	ctx := e.context()
	e.Await(func() {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader([]byte(body)))
		if err != nil {
			reqErr = err
			return
		}
		if agent != nil {
			for k, vs := range agent.headers {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}
		}
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			reqErr = err
			return
		}
		defer resp.Body.Close()
		respBody, reqErr = io.ReadAll(resp.Body)
		status = resp.StatusCode
		respHdr = resp.Header
	})

	if reqErr != nil {
		L.RaiseError("http.%s %s: %s", strings.ToLower(method), target, reqErr.Error())
		return 0
	}

	out := L.NewTable()
	out.RawSetString("status", lua.LNumber(status))
	out.RawSetString("body", lua.LString(respBody))
	hdrTable := L.NewTable()
	for k, vs := range respHdr {
		if len(vs) > 0 {
			hdrTable.RawSetString(k, lua.LString(vs[0]))
		}
	}
	out.RawSetString("headers", hdrTable)
	L.Push(out)
	return 1
}
