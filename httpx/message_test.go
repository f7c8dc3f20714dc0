package httpx

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageDefaults(t *testing.T) {
	m := NewMessage()
	assert.Equal(t, "1.1", m.ProtocolVersion())
	assert.Equal(t, 0, m.Header().Len())
	require.NotNil(t, m.Body())
	assert.True(t, m.Body().IsWritable())
	assert.True(t, m.Body().IsSeekable())

	m = NewMessage(Version("1.0"), HeaderField("X-A", "1"), HeaderField("x-a", "2"))
	assert.Equal(t, "1.0", m.ProtocolVersion())
	assert.Equal(t, []string{"2"}, m.HeaderValues("X-A"))
}

func TestMessageWithersDoNotMutate(t *testing.T) {
	m := NewMessage(HeaderField("X", "1"))
	m2 := m.WithAddedHeader("x", "2")
	m3 := m2.WithoutHeader("X")
	m4 := m.WithProtocolVersion("2")
	m5 := m.WithHeader("Y", "a", "b")

	assert.Equal(t, []string{"1"}, m.HeaderValues("X"))
	assert.Equal(t, []string{"1", "2"}, m2.HeaderValues("X"))
	assert.Equal(t, "1,2", m2.HeaderLine("x"))
	assert.False(t, m3.HasHeader("X"))
	assert.Nil(t, m3.HeaderValues("X"))
	assert.Equal(t, "", m3.HeaderLine("X"))
	assert.Equal(t, "2", m4.ProtocolVersion())
	assert.Equal(t, "1.1", m.ProtocolVersion())
	assert.False(t, m.HasHeader("Y"))
	assert.True(t, m5.HasHeader("y"))

	// the header returned by Header is a copy
	h := m.Header()
	h.Set("X", "changed")
	assert.Equal(t, "1", m.HeaderLine("X"))

	body := NewStreamString("new")
	m6 := m.WithBody(body)
	assert.Same(t, body, m6.Body())
	assert.NotSame(t, body, m.Body())
}

func TestRequestTarget(t *testing.T) {
	r, err := NewRequestString("GET", "http://example.org/a/b?k=v")
	require.NoError(t, err)
	assert.Equal(t, "/a/b?k=v", r.RequestTarget())

	star := r.WithRequestTarget("*")
	assert.Equal(t, "*", star.RequestTarget())
	assert.Equal(t, "*", star.WithURI(MustParseURI("http://example.org/other"), false).RequestTarget())
	assert.Equal(t, "/a/b?k=v", star.WithRequestTarget("").RequestTarget())

	// derived on every read
	moved := r.WithURI(r.URI().WithPath("/c").WithQuery(""), false)
	assert.Equal(t, "/c", moved.RequestTarget())

	empty := NewRequest("OPTIONS", URI{})
	assert.Equal(t, "/", empty.RequestTarget())
}

func TestRequestHostHeader(t *testing.T) {
	r, err := NewRequestString("GET", "http://example.org:8080/")
	require.NoError(t, err)
	assert.Equal(t, "example.org:8080", r.HeaderLine("Host"))

	kept := r.WithURI(MustParseURI("http://other.example/"), true)
	assert.Equal(t, "example.org:8080", kept.HeaderLine("Host"))

	replaced := r.WithURI(MustParseURI("http://other.example/"), false)
	assert.Equal(t, "other.example", replaced.HeaderLine("Host"))
	assert.Equal(t, "example.org:8080", r.HeaderLine("Host"))

	relative := NewRequest("GET", MustParseURI("/x"), HeaderField("Host", "given"))
	assert.Equal(t, "given", relative.HeaderLine("Host"))

	idn := NewRequest("GET", MustParseURI("http://bücher.example/"))
	assert.Equal(t, "xn--bcher-kva.example", idn.HeaderLine("Host"))
}

func TestRequestWithers(t *testing.T) {
	r := NewRequest("GET", MustParseURI("http://example.org/"))
	p := r.WithMethod("POST").WithHeader("Content-Type", "text/plain").WithProtocolVersion("1.0")
	assert.Equal(t, "GET", r.Method())
	assert.Equal(t, "POST", p.Method())
	assert.Equal(t, "1.0", p.ProtocolVersion())
	assert.False(t, r.HasHeader("Content-Type"))
	assert.Equal(t, "http://example.org/", p.URI().String())

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	assert.Equal(t, context.Background(), r.Context())
	assert.Equal(t, "v", r.WithContext(ctx).Context().Value(key{}))
}

func TestNewRequestStringInvalid(t *testing.T) {
	_, err := NewRequestString("GET", "http:///www.example.org")
	assert.True(t, errors.Is(err, ErrInvalidURI))
}

func TestResponseReasonPhrase(t *testing.T) {
	assert.Equal(t, "Not Found", NewResponse(404, "").ReasonPhrase())
	assert.Equal(t, "X", NewResponse(404, "X").ReasonPhrase())
	assert.Equal(t, "", NewResponse(299, "").ReasonPhrase())

	r := NewResponse(200, "")
	r2 := r.WithStatus(418, "")
	assert.Equal(t, 200, r.StatusCode())
	assert.Equal(t, "OK", r.ReasonPhrase())
	assert.Equal(t, 418, r2.StatusCode())
	assert.Equal(t, "I'm a teapot", r2.ReasonPhrase())

	r3 := r.WithHeader("A", "1").WithAddedHeader("A", "2").WithoutHeader("B").WithProtocolVersion("1.0")
	assert.Equal(t, 200, r3.StatusCode())
	assert.Equal(t, "1,2", r3.HeaderLine("a"))
	assert.False(t, r.HasHeader("A"))
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Continue", StatusText(100))
	assert.Equal(t, "Multi-status", StatusText(207))
	assert.Equal(t, "Request Time-out", StatusText(408))
	assert.Equal(t, "Network Authentication Required", StatusText(511))
	assert.Equal(t, "", StatusText(600))
}

func TestStatusError(t *testing.T) {
	cause := errors.New("row locked")
	err := error(NewStatusError(409, cause))
	assert.Equal(t, "Conflict", err.Error())
	assert.True(t, errors.Is(err, cause))

	var se *StatusError
	require.True(t, errors.As(errors.Wrap(err, "save"), &se))
	assert.Equal(t, 409, se.Code())
	assert.Equal(t, "Conflict", se.Response.ReasonPhrase())

	assert.Equal(t, "httpx: status 599", NewStatusError(599, nil).Error())
	assert.Equal(t, 500, (&StatusError{}).Code())
}
