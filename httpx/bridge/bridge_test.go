package bridge

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"dqx0.com/go/httpmsg/httpx"
	"dqx0.com/go/httpmsg/internal/obs"
)

type recordingMeter struct {
	counters map[string]float64
}

func (m *recordingMeter) Counter(name string, v float64, _ ...obs.Label) {
	if m.counters == nil {
		m.counters = map[string]float64{}
	}
	m.counters[name] += v
}

func (m *recordingMeter) Histogram(string, float64, ...obs.Label) {}

func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".txt")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestNetHTTPQueryAndAttributes(t *testing.T) {
	var got *httpx.ServerRequest
	h := NetHTTP(HandlerFunc(func(r *httpx.ServerRequest) (*httpx.Response, error) {
		got = r
		return httpx.NewResponse(200, "", httpx.HeaderField("x-Custom-CASE", "v"), httpx.Body(httpx.NewStreamString("ok"))), nil
	}), Options{UploadDir: t.TempDir()})

	req := httptest.NewRequest(http.MethodGet, "http://example.org/search?key=value&key2[]=value1&key2[]=value2", nil)
	req.Header.Set("Cookie", "session=abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotNil(t, got)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, []string{"v"}, rec.Header()["x-Custom-CASE"])
	assert.Equal(t, "2", rec.Header().Get("Content-Length"))

	assert.Equal(t, "GET", got.Method())
	assert.Equal(t, "example.org", got.URI().Host())
	assert.Equal(t, "/search", got.URI().Path())
	assert.Equal(t, "value", got.QueryParams().Get("key"))
	assert.Equal(t, []string{"value1", "value2"}, got.QueryParams().Values("key2"))
	assert.Equal(t, map[string]string{"session": "abc"}, got.CookieParams())

	id, _ := got.Attribute(AttrRequestID, "").(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.Header().Get("X-Request-Id"))
	ctxID, ok := RequestIDFrom(got.Context())
	assert.True(t, ok)
	assert.Equal(t, id, ctxID)
}

func TestNetHTTPAsteriskTarget(t *testing.T) {
	var got *httpx.ServerRequest
	h := NetHTTP(HandlerFunc(func(r *httpx.ServerRequest) (*httpx.Response, error) {
		got = r
		return nil, nil
	}), Options{UploadDir: t.TempDir()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "*", nil))

	require.NotNil(t, got)
	assert.Equal(t, 204, rec.Code)
	assert.Equal(t, "OPTIONS", got.Method())
	assert.Equal(t, "*", got.RequestTarget())
	assert.Equal(t, "example.com", got.URI().Host())
}

func TestNetHTTPKeepsIncomingIDs(t *testing.T) {
	var got *httpx.ServerRequest
	h := NetHTTP(HandlerFunc(func(r *httpx.ServerRequest) (*httpx.Response, error) {
		got = r
		return nil, nil
	}), Options{UploadDir: t.TempDir()})

	const id = "0b5e5f7c-3c1e-4a7b-9d59-8ad1a2b7c0de"
	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", id)
	req.Header.Set("Traceparent", parent)
	req.Header.Set("X-Correlation-Id", "order-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, rec.Header().Get("X-Request-Id"))
	tr, ok := TraceFrom(got.Context())
	require.True(t, ok)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", tr.TraceID)
	assert.Equal(t, "00f067aa0ba902b7", tr.ParentSpanID)
	assert.NotEqual(t, tr.ParentSpanID, tr.SpanID)
	assert.Equal(t, tr.Traceparent(), rec.Header().Get("Traceparent"))
	cid, ok := CorrelationIDFrom(got.Context())
	assert.True(t, ok)
	assert.Equal(t, "order-7", cid)
	assert.Equal(t, "order-7", got.Attribute(AttrCorrelationID, nil))
}

func TestNetHTTPUploadsMovedAndCleaned(t *testing.T) {
	uploadDir, dst := t.TempDir(), t.TempDir()
	meter := &recordingMeter{}
	h := NetHTTP(HandlerFunc(func(r *httpx.ServerRequest) (*httpx.Response, error) {
		f, ok := r.UploadedFiles().File("doc")
		if !ok {
			return nil, httpx.NewStatusError(422, errors.New("doc missing"))
		}
		if err := f.MoveTo(filepath.Join(dst, "doc.txt")); err != nil {
			return nil, err
		}
		return httpx.NewResponse(201, ""), nil
	}), Options{UploadDir: uploadDir, Meter: meter})

	body, ct := multipartBody(t,
		map[string]string{"doc": "hello", "extra": "left behind"},
		map[string]string{"title": "report"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, 201, rec.Code)
	b, err := os.ReadFile(filepath.Join(dst, "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	left, err := filepath.Glob(filepath.Join(uploadDir, "upload-*"))
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 1.0, meter.counters["httpmsg_uploads_moved_total"])
	assert.Equal(t, 1.0, meter.counters["httpmsg_requests_total"])
}

func TestNetHTTPErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"status error", httpx.NewStatusError(404, nil), 404},
		{"wrapped status error", errors.Wrap(httpx.NewStatusError(409, nil), "save"), 409},
		{"plain error", errors.New("boom"), 500},
		{"bad request", errors.Wrap(httpx.ErrBadRequest, "field"), 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NetHTTP(HandlerFunc(func(*httpx.ServerRequest) (*httpx.Response, error) {
				return nil, tc.err
			}), Options{UploadDir: t.TempDir()})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.code, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		})
	}
}

func TestNetHTTPBodyTooLarge(t *testing.T) {
	called := false
	h := NetHTTP(HandlerFunc(func(*httpx.ServerRequest) (*httpx.Response, error) {
		called = true
		return nil, nil
	}), Options{UploadDir: t.TempDir(), Limits: httpx.BodyLimits{MaxMemory: 4}})
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader("too long"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFastHTTPForm(t *testing.T) {
	var got *httpx.ServerRequest
	h := FastHTTP(HandlerFunc(func(r *httpx.ServerRequest) (*httpx.Response, error) {
		got = r
		return httpx.NewResponse(202, "", httpx.HeaderField("X-Seen", r.PostParams().Get("a"))), nil
	}), Options{UploadDir: t.TempDir()})

	var req fasthttp.Request
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI("/form?x=1")
	req.Header.SetHost("example.com")
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString("a=1&b[]=2&b[]=3")
	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)

	h(&ctx)

	require.NotNil(t, got)
	assert.Equal(t, 202, ctx.Response.StatusCode())
	assert.Equal(t, "1", string(ctx.Response.Header.Peek("X-Seen")))
	assert.NotEmpty(t, ctx.Response.Header.Peek("X-Request-Id"))
	assert.Equal(t, "example.com", got.URI().Host())
	assert.Equal(t, "1", got.QueryParams().Get("x"))
	assert.Equal(t, []string{"2", "3"}, got.PostParams().Values("b"))
	post, ok := got.ParsedBody().(*httpx.Params)
	require.True(t, ok)
	assert.Equal(t, "1", post.Get("a"))
}

func TestSafeHeadersRedacts(t *testing.T) {
	h := httpx.NewHeader(
		httpx.Field{Name: "Authorization", Values: []string{"Bearer secret"}},
		httpx.Field{Name: "Accept", Values: []string{"text/plain"}},
	)
	assert.Equal(t, "Accept=text/plain; Authorization=<redacted>", SafeHeaders(h))
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "0b5e5f7c-3c1e-4a7b-9d59-8ad1a2b7c0de", requestID(" 0b5e5f7c-3c1e-4a7b-9d59-8ad1a2b7c0de "))
	assert.NotEqual(t, "not-a-uuid", requestID("not-a-uuid"))
	_, ok := RequestIDFrom(context.Background())
	assert.False(t, ok)
}

func TestParseTraceparent(t *testing.T) {
	_, _, _, ok := parseTraceparent("00-00000000000000000000000000000000-00f067aa0ba902b7-01")
	assert.False(t, ok)
	_, _, _, ok = parseTraceparent("garbage")
	assert.False(t, ok)
	tid, sid, fl, ok := parseTraceparent("00-4BF92F3577B34DA6A3CE929D0E0E4736-00F067AA0BA902B7-00")
	require.True(t, ok)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", tid)
	assert.Equal(t, "00f067aa0ba902b7", sid)
	assert.Equal(t, "00", fl)

	tr := continueTrace("")
	assert.Len(t, tr.TraceID, 32)
	assert.Len(t, tr.SpanID, 16)
	assert.Empty(t, tr.ParentSpanID)
}
