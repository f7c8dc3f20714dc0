package httpx

import (
	"io"
	"strings"

	"golang.org/x/net/http/httpguts"

	"dqx0.com/go/httpmsg/httpx/internal/http1"
)

// Header is a case-insensitive multimap of header fields that remembers
// the casing each name was last Set with and the order names were first
// added in.
//
// A Header owned by a message is never modified; the message's With*
// methods work on a Clone. A standalone Header is an ordinary mutable
// value and is not safe for concurrent use.
type Header struct {
	names  map[string]string // lowercase -> casing for output
	values map[string][]string
	order  []string // lowercase, first insertion order
}

// NewHeader builds a Header from name/value pairs applied with Set in
// the given order.
func NewHeader(fields ...Field) *Header {
	h := &Header{}
	for _, f := range fields {
		h.Set(f.Name, f.Values...)
	}
	return h
}

// Field is one header name with its values.
type Field struct {
	Name   string
	Values []string
}

func (h *Header) init() {
	if h.names == nil {
		h.names = make(map[string]string)
		h.values = make(map[string][]string)
	}
}

// Set replaces the values under name and records its casing. Setting no
// values removes the name.
func (h *Header) Set(name string, values ...string) {
	if len(values) == 0 {
		h.Del(name)
		return
	}
	h.init()
	k := strings.ToLower(name)
	if _, ok := h.names[k]; !ok {
		h.order = append(h.order, k)
	}
	h.names[k] = name
	h.values[k] = append([]string(nil), values...)
}

// Add appends values under name. An absent name is Set.
func (h *Header) Add(name string, values ...string) {
	if len(values) == 0 {
		return
	}
	k := strings.ToLower(name)
	if _, ok := h.names[k]; !ok {
		h.Set(name, values...)
		return
	}
	h.values[k] = append(h.values[k], values...)
}

func (h *Header) Del(name string) {
	if h == nil || h.names == nil {
		return
	}
	k := strings.ToLower(name)
	if _, ok := h.names[k]; !ok {
		return
	}
	delete(h.names, k)
	delete(h.values, k)
	for i, o := range h.order {
		if o == k {
			h.order = append(h.order[:i:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Header) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.names[strings.ToLower(name)]
	return ok
}

// Values returns a copy of the values under name, or nil.
func (h *Header) Values(name string) []string {
	if h == nil {
		return nil
	}
	v := h.values[strings.ToLower(name)]
	if v == nil {
		return nil
	}
	return append([]string(nil), v...)
}

// Get returns the first value under name.
func (h *Header) Get(name string) string {
	if h == nil {
		return ""
	}
	if v := h.values[strings.ToLower(name)]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Line returns the values joined by ',' and whether the name is present.
func (h *Header) Line(name string) (string, bool) {
	if !h.Has(name) {
		return "", false
	}
	return strings.Join(h.values[strings.ToLower(name)], ","), true
}

// Names returns the names in insertion order with their recorded casing.
func (h *Header) Names() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.order))
	for i, k := range h.order {
		out[i] = h.names[k]
	}
	return out
}

func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.order)
}

// Range calls fn for each name in order until fn returns false.
func (h *Header) Range(fn func(name string, values []string) bool) {
	if h == nil {
		return
	}
	for _, k := range h.order {
		if !fn(h.names[k], h.values[k]) {
			return
		}
	}
}

func (h *Header) Clone() *Header {
	c := &Header{}
	if h == nil || h.names == nil {
		return c
	}
	c.init()
	c.order = append([]string(nil), h.order...)
	for k, n := range h.names {
		c.names[k] = n
		c.values[k] = append([]string(nil), h.values[k]...)
	}
	return c
}

// Map returns the fields keyed by their recorded casing.
func (h *Header) Map() map[string][]string {
	out := make(map[string][]string, h.Len())
	h.Range(func(name string, values []string) bool {
		out[name] = append([]string(nil), values...)
		return true
	})
	return out
}

// WriteTo writes "Name: v1,v2\r\n" for every field in order. Fields with
// an invalid name are skipped; control characters are dropped from
// values.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	h.Range(func(name string, values []string) bool {
		if !httpguts.ValidHeaderFieldName(name) {
			return true
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(http1.SanitizeValue(strings.Join(values, ",")))
		b.WriteString("\r\n")
		return true
	})
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
