package httpx

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readWire(t *testing.T, raw string, opts ReadOptions) (*ServerRequest, error) {
	t.Helper()
	reg, err := NewUploadRegistry(t.TempDir())
	require.NoError(t, err)
	return ReadServerRequest(bufio.NewReader(strings.NewReader(raw)), reg, opts)
}

func TestReadServerRequestForm(t *testing.T) {
	raw := "POST /submit?src=wire HTTP/1.1\r\n" +
		"Host: example.org\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Cookie: a=1; b=2\r\n" +
		"X-Custom: one\r\n" +
		"x-custom: two\r\n" +
		"Content-Length: 7\r\n\r\n" +
		"k=v&n=1"
	sr, err := readWire(t, raw, ReadOptions{RemoteAddr: "192.0.2.1:4000"})
	require.NoError(t, err)

	assert.Equal(t, "POST", sr.Method())
	assert.Equal(t, "http://example.org/submit?src=wire", sr.URI().String())
	assert.Equal(t, "1.1", sr.ProtocolVersion())
	assert.Equal(t, []string{"one", "two"}, sr.HeaderValues("X-Custom"))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, sr.CookieParams())
	assert.Equal(t, "wire", sr.QueryParams().Get("src"))
	assert.Equal(t, "v", sr.PostParams().Get("k"))
	assert.Equal(t, "k=v&n=1", sr.Body().String())

	v, _ := sr.ServerParam("QUERY_STRING")
	assert.Equal(t, "src=wire", v)
	v, _ = sr.ServerParam("REMOTE_ADDR")
	assert.Equal(t, "192.0.2.1:4000", v)
	v, _ = sr.ServerParam("HTTP_X_CUSTOM")
	assert.Equal(t, "one, two", v)
}

func TestReadServerRequestChunked(t *testing.T) {
	raw := "PUT /doc HTTP/1.1\r\nHost: example.org\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	sr, err := readWire(t, raw, ReadOptions{TLS: true})
	require.NoError(t, err)
	assert.Equal(t, "hello world", sr.Body().String())
	assert.Equal(t, "https", sr.URI().Scheme())
}

func TestReadServerRequestTargets(t *testing.T) {
	sr, err := readWire(t, "GET http://Proxy.Example:8080/x?y=1 HTTP/1.1\r\nHost: ignored\r\n\r\n", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.example:8080/x?y=1", sr.URI().String())
	v, _ := sr.ServerParam("REQUEST_URI")
	assert.Equal(t, "/x?y=1", v)

	sr, err = readWire(t, "OPTIONS * HTTP/1.1\r\nHost: example.org\r\n\r\n", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "*", sr.RequestTarget())
	assert.Equal(t, "example.org", sr.URI().Host())
}

func TestReadServerRequestErrors(t *testing.T) {
	_, err := readWire(t, "GARBAGE\r\n\r\n", ReadOptions{})
	assert.True(t, errors.Is(err, ErrBadRequest), "got %v", err)

	_, err = readWire(t, "GET / HTTP/1.1\r\nHost", ReadOptions{})
	assert.True(t, errors.Is(err, ErrBadRequest), "got %v", err)

	long := "GET / HTTP/1.1\r\nX-Long: " + strings.Repeat("a", 100) + "\r\n\r\n"
	_, err = readWire(t, long, ReadOptions{MaxHeaderBytes: 32})
	assert.True(t, errors.Is(err, ErrHeaderTooLarge), "got %v", err)

	body := "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\n0123456789"
	_, err = readWire(t, body, ReadOptions{Body: BodyLimits{MaxMemory: 4}})
	assert.True(t, errors.Is(err, ErrBodyTooLarge), "got %v", err)
}

func TestResponseWriteTo(t *testing.T) {
	r := NewResponse(201, "", HeaderField("Content-Type", "text/plain"), HeaderField("X-Multi", "a", "b"))
	_, _ = r.Body().WriteString("made")

	var b bytes.Buffer
	n, err := r.WriteTo(&b)
	require.NoError(t, err)
	want := "HTTP/1.1 201 Created\r\n" +
		"Content-Type: text/plain\r\n" +
		"X-Multi: a,b\r\n" +
		"Content-Length: 4\r\n" +
		"\r\n" +
		"made"
	assert.Equal(t, want, b.String())
	assert.Equal(t, int64(len(want)), n)
}

func TestResponseWriteToNoBody(t *testing.T) {
	r := NewResponse(304, "")
	_, _ = r.Body().WriteString("ignored")
	var b bytes.Buffer
	_, err := r.WriteTo(&b)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 304 Not Modified\r\n\r\n", b.String())
}

func TestResponseWriteToChunked(t *testing.T) {
	r := NewResponse(200, "", HeaderField("Transfer-Encoding", "chunked"))
	_, _ = r.Body().WriteString("hello")
	var b bytes.Buffer
	_, err := r.WriteTo(&b)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n", b.String())
}

func TestRequestWriteTo(t *testing.T) {
	r, err := NewRequestString("POST", "http://example.org/a?b=c")
	require.NoError(t, err)
	r = r.WithBody(NewStreamString("xyz")).WithHeader("Content-Type", "text/plain")

	var b bytes.Buffer
	_, err = r.WriteTo(&b)
	require.NoError(t, err)
	want := "POST /a?b=c HTTP/1.1\r\n" +
		"Host: example.org\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 3\r\n" +
		"\r\n" +
		"xyz"
	assert.Equal(t, want, b.String())

	// what is written can be read back
	sr, err := readWire(t, b.String(), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "xyz", sr.Body().String())
	assert.Equal(t, "c", sr.QueryParams().Get("b"))
}

func TestCookieParams(t *testing.T) {
	h := NewHeader(Field{Name: "Cookie", Values: []string{"a=1; b=2", "c=3", "bad cookie line;;"}})
	got := CookieParams(h)
	assert.Equal(t, "1", got["a"])
	assert.Equal(t, "3", got["c"])
	assert.Empty(t, CookieParams(&Header{}))
}
