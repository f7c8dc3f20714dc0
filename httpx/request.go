package httpx

import (
	"context"

	"golang.org/x/net/http/httpguts"
)

// Request is an immutable outgoing or generic HTTP request.
//
// Unless a request target is set explicitly, RequestTarget is derived
// from the URI every time it is read.
type Request struct {
	Message
	method string
	uri    URI
	target string
	ctx    context.Context
}

// NewRequest returns a request for method and uri. The Host header is
// set from the URI when it has a host.
func NewRequest(method string, uri URI, opts ...Option) *Request {
	r := &Request{Message: newMessage(opts), method: method}
	r.setURI(uri, false)
	return r
}

// NewRequestString is NewRequest with a URI to parse.
func NewRequestString(method, rawURI string, opts ...Option) (*Request, error) {
	u, err := ParseURI(rawURI)
	if err != nil {
		return nil, err
	}
	return NewRequest(method, u, opts...), nil
}

func (r *Request) setURI(u URI, preserveHost bool) {
	r.uri = u
	if preserveHost || u.Host() == "" {
		return
	}
	host := u.HostPort()
	if ascii, err := httpguts.PunycodeHostPort(host); err == nil {
		host = ascii
	}
	r.header = r.header.Clone()
	r.header.Set("Host", host)
}

func (r *Request) Method() string { return r.method }

func (r *Request) URI() URI { return r.uri }

// RequestTarget returns the explicit target if one was set, else the URI
// path (or "/") followed by ?query when the query is not empty.
func (r *Request) RequestTarget() string {
	if r.target != "" {
		return r.target
	}
	t := r.uri.Path()
	if t == "" {
		t = "/"
	}
	if q := r.uri.Query(); q != "" {
		t += "?" + q
	}
	return t
}

// Context returns the request's context. If nil, returns Background.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a copy of r with its context changed to ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	c := *r
	c.ctx = ctx
	return &c
}

func (r *Request) WithMethod(method string) *Request {
	c := *r
	c.method = method
	return &c
}

// WithURI replaces the URI. Unless preserveHost is set, a URI with a
// host also replaces the Host header.
func (r *Request) WithURI(u URI, preserveHost bool) *Request {
	c := *r
	c.setURI(u, preserveHost)
	return &c
}

// WithRequestTarget overrides the derived target. An empty target
// restores derivation.
func (r *Request) WithRequestTarget(target string) *Request {
	c := *r
	c.target = target
	return &c
}

func (r *Request) WithProtocolVersion(v string) *Request {
	return r.with(r.Message.WithProtocolVersion(v))
}

func (r *Request) WithHeader(name string, values ...string) *Request {
	return r.with(r.Message.WithHeader(name, values...))
}

func (r *Request) WithAddedHeader(name string, values ...string) *Request {
	return r.with(r.Message.WithAddedHeader(name, values...))
}

func (r *Request) WithoutHeader(name string) *Request {
	return r.with(r.Message.WithoutHeader(name))
}

func (r *Request) WithBody(st *Stream) *Request {
	return r.with(r.Message.WithBody(st))
}

func (r *Request) with(m *Message) *Request {
	c := *r
	c.Message = *m
	return &c
}
