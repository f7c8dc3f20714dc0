package httpx

// DefaultProtocolVersion is used when no version is given.
const DefaultProtocolVersion = "1.1"

// Message holds what requests and responses have in common: a protocol
// version, header fields and a body.
//
// Messages are immutable. Every With* method returns a new message and
// leaves the receiver as it was. The body Stream is the exception: it is
// a shared handle, and copies of a message read and write the same one.
type Message struct {
	version string
	header  *Header
	body    *Stream
}

// Option configures a message under construction.
type Option func(*Message)

// Version sets the protocol version, e.g. "1.0".
func Version(v string) Option {
	return func(m *Message) { m.version = v }
}

// HeaderField sets one header field. Fields are applied with Set in the
// order the options are given.
func HeaderField(name string, values ...string) Option {
	return func(m *Message) { m.header.Set(name, values...) }
}

// Headers sets every field of h.
func Headers(h *Header) Option {
	return func(m *Message) {
		h.Range(func(name string, values []string) bool {
			m.header.Set(name, values...)
			return true
		})
	}
}

// Body sets the body stream.
func Body(st *Stream) Option {
	return func(m *Message) { m.body = st }
}

// NewMessage returns a message with version 1.1, no header fields and an
// empty in-memory body unless options say otherwise.
func NewMessage(opts ...Option) *Message {
	m := newMessage(opts)
	return &m
}

func newMessage(opts []Option) Message {
	m := Message{version: DefaultProtocolVersion, header: &Header{}}
	for _, o := range opts {
		o(&m)
	}
	if m.body == nil {
		m.body = NewTempStream()
	}
	return m
}

func (m *Message) ProtocolVersion() string { return m.version }

// Header returns a copy of the header fields.
func (m *Message) Header() *Header { return m.header.Clone() }

func (m *Message) HasHeader(name string) bool { return m.header.Has(name) }

// HeaderValues returns the values of name, or nil when absent.
func (m *Message) HeaderValues(name string) []string { return m.header.Values(name) }

// HeaderLine returns the values of name joined by ','. It is "" both for
// an absent field and for a field whose only value is empty; use
// HasHeader to tell them apart.
func (m *Message) HeaderLine(name string) string {
	line, _ := m.header.Line(name)
	return line
}

func (m *Message) Body() *Stream { return m.body }

func (m *Message) WithProtocolVersion(v string) *Message {
	c := *m
	c.version = v
	return &c
}

// WithHeader replaces the values of name.
func (m *Message) WithHeader(name string, values ...string) *Message {
	c := *m
	c.header = m.header.Clone()
	c.header.Set(name, values...)
	return &c
}

// WithAddedHeader appends values to name.
func (m *Message) WithAddedHeader(name string, values ...string) *Message {
	c := *m
	c.header = m.header.Clone()
	c.header.Add(name, values...)
	return &c
}

func (m *Message) WithoutHeader(name string) *Message {
	if !m.header.Has(name) {
		c := *m
		return &c
	}
	c := *m
	c.header = m.header.Clone()
	c.header.Del(name)
	return &c
}

func (m *Message) WithBody(st *Stream) *Message {
	c := *m
	c.body = st
	return &c
}
