// Package bridge serves httpx handlers from net/http and fasthttp. Each
// incoming request becomes an *httpx.ServerRequest with its uploads stored
// in a per-request registry; files the handler did not move are removed
// once the response is written.
package bridge

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"dqx0.com/go/httpmsg/httpx"
	"dqx0.com/go/httpmsg/internal/obs"
)

// Handler answers a ServerRequest. Returning an *httpx.StatusError sends
// its response; any other error becomes a 500.
type Handler interface {
	ServeMessage(r *httpx.ServerRequest) (*httpx.Response, error)
}

type HandlerFunc func(r *httpx.ServerRequest) (*httpx.Response, error)

func (f HandlerFunc) ServeMessage(r *httpx.ServerRequest) (*httpx.Response, error) { return f(r) }

// Options configure NetHTTP and FastHTTP.
type Options struct {
	// UploadDir holds temporary upload files. Empty means os.TempDir.
	UploadDir   string
	MaxFileSize int64
	Limits      httpx.BodyLimits
	Logger      obs.Logger
	Meter       obs.Meter
}

type server struct {
	h     Handler
	opts  Options
	log   obs.Logger
	meter obs.Meter
}

func newServer(h Handler, opts Options) *server {
	return &server{h: h, opts: opts, log: obs.OrNop(opts.Logger), meter: obs.MeterOrNop(opts.Meter)}
}

func (s *server) registry() (*httpx.UploadRegistry, error) {
	return httpx.NewUploadRegistry(s.opts.UploadDir,
		httpx.RegistryLogger(s.log),
		httpx.RegistryMeter(s.meter),
		httpx.RegistryMaxFileSize(s.opts.MaxFileSize),
	)
}

// exchange is one request/response cycle independent of the server
// library.
type exchange struct {
	method string
	target string
	id     string
	trace  Trace
	start  time.Time
}

func (s *server) begin(method, target string, h headerGetter) *exchange {
	return &exchange{
		method: method,
		target: target,
		id:     requestID(h.Get("X-Request-Id")),
		trace:  continueTrace(h.Get("Traceparent")),
		start:  time.Now(),
	}
}

type headerGetter interface{ Get(string) string }

// serve runs the handler on env and always returns a response to write.
func (s *server) serve(parent context.Context, x *exchange, env *httpx.Environment, envErr error) *httpx.Response {
	var (
		res *httpx.Response
		err = envErr
	)
	if err == nil {
		var sr *httpx.ServerRequest
		sr, err = httpx.NewServerRequest(env)
		if err == nil {
			ctx := WithTrace(WithRequestID(parent, x.id), x.trace)
			sr = sr.WithAttribute(AttrRequestID, x.id).WithAttribute(AttrTrace, x.trace)
			if cid := sr.HeaderLine("X-Correlation-Id"); cid != "" {
				ctx = WithCorrelationID(ctx, cid)
				sr = sr.WithAttribute(AttrCorrelationID, cid)
			}
			sr = sr.WithContext(ctx)
			s.log.Logf(obs.Debug, "request id=%s %s %s headers=%s", x.id, x.method, x.target, SafeHeaders(sr.Header()))
			res, err = s.h.ServeMessage(sr)
		}
	}
	if err != nil {
		res = s.errorResponse(x, err)
	} else if res == nil {
		res = httpx.NewResponse(http.StatusNoContent, "")
	}
	return res.WithHeader("X-Request-Id", x.id).WithHeader("Traceparent", x.trace.Traceparent())
}

func (s *server) errorResponse(x *exchange, err error) *httpx.Response {
	var se *httpx.StatusError
	if errors.As(err, &se) && se.Response != nil {
		s.log.Logf(obs.Info, "request id=%s: %v", x.id, err)
		return se.Response
	}
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, httpx.ErrBodyTooLarge):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, httpx.ErrHeaderTooLarge):
		code = http.StatusRequestHeaderFieldsTooLarge
	case errors.Is(err, httpx.ErrBadRequest), errors.Is(err, httpx.ErrInvalidURI),
		errors.Is(err, httpx.ErrInvalidPort), errors.Is(err, httpx.ErrInvalidUpload):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		s.log.Logf(obs.Error, "request id=%s %s %s: %+v", x.id, x.method, x.target, err)
	} else {
		s.log.Logf(obs.Warn, "request id=%s %s %s: %v", x.id, x.method, x.target, err)
	}
	return httpx.NewResponse(code, "",
		httpx.HeaderField("Content-Type", "text/plain; charset=utf-8"),
		httpx.Body(httpx.NewStreamString(httpx.StatusText(code)+"\n")),
	)
}

func (s *server) finish(x *exchange, res *httpx.Response, reg *httpx.UploadRegistry) {
	if reg != nil {
		if err := reg.Cleanup(); err != nil {
			s.log.Logf(obs.Warn, "request id=%s: upload cleanup: %v", x.id, err)
		}
	}
	code := strconv.Itoa(res.StatusCode())
	d := time.Since(x.start)
	s.meter.Counter("httpmsg_requests_total", 1, obs.L("method", x.method), obs.L("code", code))
	s.meter.Histogram("httpmsg_request_duration_seconds", d.Seconds(), obs.L("method", x.method))
	s.log.Logf(obs.Info, "request id=%s %s %s -> %s in %s", x.id, x.method, x.target, code, d)
}

// NetHTTP adapts h to net/http.
func NetHTTP(h Handler, opts Options) http.Handler {
	s := newServer(h, opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		x := s.begin(r.Method, r.RequestURI, r.Header)
		reg, err := s.registry()
		var env *httpx.Environment
		if err == nil {
			env, err = FromNetHTTP(r, reg, opts.Limits)
		}
		res := s.serve(r.Context(), x, env, err)
		writeNetHTTP(w, res, s.log)
		s.finish(x, res, reg)
	})
}

// FastHTTP adapts h to fasthttp.
func FastHTTP(h Handler, opts Options) fasthttp.RequestHandler {
	s := newServer(h, opts)
	return func(ctx *fasthttp.RequestCtx) {
		x := s.begin(string(ctx.Method()), string(ctx.RequestURI()), fastHeader{&ctx.Request.Header})
		reg, err := s.registry()
		var env *httpx.Environment
		if err == nil {
			env, err = FromFastHTTP(ctx, reg, opts.Limits)
		}
		res := s.serve(ctx, x, env, err)
		writeFastHTTP(ctx, res, s.log)
		s.finish(x, res, reg)
	}
}

type fastHeader struct{ h *fasthttp.RequestHeader }

func (f fastHeader) Get(name string) string { return string(f.h.Peek(name)) }

func writeNetHTTP(w http.ResponseWriter, res *httpx.Response, log obs.Logger) {
	body, err := responseBody(res)
	if err != nil {
		log.Logf(obs.Error, "read response body: %v", err)
		body = nil
	}
	dst := w.Header()
	res.Header().Range(func(name string, values []string) bool {
		// assigned directly so the recorded casing is kept
		dst[name] = append([]string(nil), values...)
		return true
	})
	if bodyAllowed(res.StatusCode()) && !res.HasHeader("Content-Length") && !res.HasHeader("Transfer-Encoding") {
		dst["Content-Length"] = []string{strconv.Itoa(len(body))}
	}
	w.WriteHeader(res.StatusCode())
	if _, err := w.Write(body); err != nil {
		log.Logf(obs.Debug, "write response body: %v", err)
	}
}

func writeFastHTTP(ctx *fasthttp.RequestCtx, res *httpx.Response, log obs.Logger) {
	body, err := responseBody(res)
	if err != nil {
		log.Logf(obs.Error, "read response body: %v", err)
		body = nil
	}
	ctx.Response.Header.DisableNormalizing()
	ctx.SetStatusCode(res.StatusCode())
	res.Header().Range(func(name string, values []string) bool {
		if strings.EqualFold(name, "Content-Length") {
			return true
		}
		for i, v := range values {
			if i == 0 {
				ctx.Response.Header.Set(name, v)
			} else {
				ctx.Response.Header.Add(name, v)
			}
		}
		return true
	})
	ctx.SetBody(body)
}

func bodyAllowed(code int) bool {
	return code >= 200 && code != http.StatusNoContent && code != http.StatusNotModified
}

func responseBody(res *httpx.Response) ([]byte, error) {
	if !bodyAllowed(res.StatusCode()) {
		return nil, nil
	}
	st := res.Body()
	if !st.IsReadable() {
		return nil, nil
	}
	return st.Bytes()
}

var sensitive = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"set-cookie":    {},
	"x-api-key":     {},
}

// SafeHeaders renders h for logging with credentials redacted.
func SafeHeaders(h *httpx.Header) string {
	parts := make([]string, 0, h.Len())
	h.Range(func(name string, values []string) bool {
		v := strings.Join(values, ",")
		if _, ok := sensitive[strings.ToLower(name)]; ok && v != "" {
			v = "<redacted>"
		}
		parts = append(parts, name+"="+v)
		return true
	})
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
