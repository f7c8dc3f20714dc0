package httpx

// Response is an immutable HTTP response.
type Response struct {
	Message
	code   int
	reason string
}

// NewResponse returns a response with the given status. An empty reason
// is replaced by the standard phrase for code, if it has one.
func NewResponse(code int, reason string, opts ...Option) *Response {
	r := &Response{Message: newMessage(opts)}
	r.setStatus(code, reason)
	return r
}

func (r *Response) setStatus(code int, reason string) {
	if reason == "" {
		reason = StatusText(code)
	}
	r.code, r.reason = code, reason
}

func (r *Response) StatusCode() int { return r.code }

func (r *Response) ReasonPhrase() string { return r.reason }

func (r *Response) WithStatus(code int, reason string) *Response {
	c := *r
	c.setStatus(code, reason)
	return &c
}

func (r *Response) WithProtocolVersion(v string) *Response {
	return r.with(r.Message.WithProtocolVersion(v))
}

func (r *Response) WithHeader(name string, values ...string) *Response {
	return r.with(r.Message.WithHeader(name, values...))
}

func (r *Response) WithAddedHeader(name string, values ...string) *Response {
	return r.with(r.Message.WithAddedHeader(name, values...))
}

func (r *Response) WithoutHeader(name string) *Response {
	return r.with(r.Message.WithoutHeader(name))
}

func (r *Response) WithBody(st *Stream) *Response {
	return r.with(r.Message.WithBody(st))
}

func (r *Response) with(m *Message) *Response {
	c := *r
	c.Message = *m
	return &c
}
