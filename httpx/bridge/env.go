package bridge

import (
	"bytes"
	"io"
	"net/http"
	"sort"

	"github.com/valyala/fasthttp"

	"dqx0.com/go/httpmsg/httpx"
)

// FromNetHTTP describes r as an Environment. Form and multipart bodies
// are decoded, file parts are stored through reg.
func FromNetHTTP(r *http.Request, reg *httpx.UploadRegistry, lim httpx.BodyLimits) (*httpx.Environment, error) {
	h := &httpx.Header{}
	if r.Host != "" {
		h.Set("Host", r.Host)
	}
	names := make([]string, 0, len(r.Header))
	for k := range r.Header {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		h.Add(k, r.Header[k]...)
	}
	target := r.RequestURI
	if target == "" && r.URL != nil {
		target = r.URL.RequestURI()
	}
	return newEnvironment(r.Method, target, r.Proto, h, r.TLS != nil, r.RemoteAddr, r.Body, reg, lim)
}

// FromFastHTTP describes the request in ctx as an Environment.
func FromFastHTTP(ctx *fasthttp.RequestCtx, reg *httpx.UploadRegistry, lim httpx.BodyLimits) (*httpx.Environment, error) {
	h := &httpx.Header{}
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		h.Add(string(k), string(v))
	})
	proto := "HTTP/1.0"
	if ctx.Request.Header.IsHTTP11() {
		proto = "HTTP/1.1"
	}
	remote := ""
	if a := ctx.RemoteAddr(); a != nil {
		remote = a.String()
	}
	body := bytes.NewReader(ctx.PostBody())
	return newEnvironment(string(ctx.Method()), string(ctx.RequestURI()), proto, h, ctx.IsTLS(), remote, body, reg, lim)
}

func newEnvironment(method, target, proto string, h *httpx.Header, tls bool, remote string, body io.Reader, reg *httpx.UploadRegistry, lim httpx.BodyLimits) (*httpx.Environment, error) {
	env := &httpx.Environment{
		Server:  httpx.ServerVars(method, target, proto, h, tls, remote),
		Cookies: httpx.CookieParams(h),
		Headers: h,
	}
	if err := env.LoadBody(method, h.Get("Content-Type"), body, reg, lim); err != nil {
		return nil, err
	}
	return env, nil
}
