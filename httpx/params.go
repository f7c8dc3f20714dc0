package httpx

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// Params is an ordered multimap of decoded query or form fields.
//
// Keys written with brackets (a[]=1, a[b][c]=2) become nested groups;
// an empty bracket pair appends under the next integer key. Params is
// mutable; the message values that hold one never expose it directly and
// hand out clones instead.
type Params struct {
	keys []string
	vals map[string]*Param
	next int
}

// Param is either a scalar value or a nested group.
type Param struct {
	value string
	group *Params
}

func (p Param) IsGroup() bool { return p.group != nil }
func (p Param) Value() string { return p.value }
func (p Param) Group() *Params { return p.group }

// Values returns the scalar value, or the scalar members of a group in
// order.
func (p Param) Values() []string {
	if p.group == nil {
		return []string{p.value}
	}
	out := make([]string, 0, p.group.Len())
	for _, k := range p.group.keys {
		if v := p.group.vals[k]; v.group == nil {
			out = append(out, v.value)
		}
	}
	return out
}

func NewParams() *Params {
	return &Params{vals: make(map[string]*Param)}
}

// ParseParams decodes an application/x-www-form-urlencoded string.
// Malformed escapes are kept literally; it never fails.
func ParseParams(raw string) *Params {
	p := NewParams()
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k = unescapeForm(k)
		if k == "" {
			continue
		}
		p.Assign(k, unescapeForm(v))
	}
	return p
}

func unescapeForm(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return strings.ReplaceAll(s, "+", " ")
}

func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

func (p *Params) Lookup(key string) (Param, bool) {
	if p == nil {
		return Param{}, false
	}
	v, ok := p.vals[key]
	if !ok {
		return Param{}, false
	}
	return *v, true
}

// Get returns the scalar value under key, or "" when absent or a group.
func (p *Params) Get(key string) string {
	v, _ := p.Lookup(key)
	return v.value
}

func (p *Params) Has(key string) bool {
	_, ok := p.Lookup(key)
	return ok
}

func (p *Params) Values(key string) []string {
	v, ok := p.Lookup(key)
	if !ok {
		return nil
	}
	return v.Values()
}

// Set stores a scalar under key. An existing key keeps its position.
func (p *Params) Set(key, value string) {
	p.put(key, &Param{value: value})
}

// SetGroup stores g under key.
func (p *Params) SetGroup(key string, g *Params) {
	if g == nil {
		g = NewParams()
	}
	p.put(key, &Param{group: g})
}

// Add appends value to the group under key, creating it when absent or
// scalar. It is the equivalent of assigning key[]=value.
func (p *Params) Add(key, value string) {
	p.assign([]string{key, ""}, value)
}

// Assign stores value under a raw field name, expanding bracket
// notation into nested groups.
func (p *Params) Assign(name, value string) {
	p.assign(splitFieldName(name), value)
}

func (p *Params) Del(key string) {
	if p == nil {
		return
	}
	if _, ok := p.vals[key]; !ok {
		return
	}
	delete(p.vals, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy.
func (p *Params) Clone() *Params {
	out := NewParams()
	if p == nil {
		return out
	}
	out.next = p.next
	out.keys = append(out.keys, p.keys...)
	for k, v := range p.vals {
		c := &Param{value: v.value}
		if v.group != nil {
			c.group = v.group.Clone()
		}
		out.vals[k] = c
	}
	return out
}

// Encode serializes to key=value pairs joined by '&', nested keys as
// key[sub] with brackets escaped. Empty groups produce nothing.
func (p *Params) Encode() string {
	var b strings.Builder
	p.encode(&b, "")
	return b.String()
}

func (p *Params) encode(b *strings.Builder, prefix string) {
	if p == nil {
		return
	}
	for _, k := range p.keys {
		name := url.QueryEscape(k)
		if prefix != "" {
			name = prefix + "%5B" + name + "%5D"
		}
		v := p.vals[k]
		if v.group != nil {
			v.group.encode(b, name)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v.value))
	}
}

func (p *Params) String() string { return p.Encode() }

// Map converts to plain Go values: string for scalars, []any for groups
// keyed 0..n-1 in order, map[string]any for other groups.
func (p *Params) Map() map[string]any {
	out := make(map[string]any, p.Len())
	if p == nil {
		return out
	}
	for _, k := range p.keys {
		out[k] = p.vals[k].plain()
	}
	return out
}

func (v *Param) plain() any {
	if v.group == nil {
		return v.value
	}
	if v.group.isList() {
		list := make([]any, 0, v.group.Len())
		for _, k := range v.group.keys {
			list = append(list, v.group.vals[k].plain())
		}
		return list
	}
	return v.group.Map()
}

func (p *Params) isList() bool {
	for i, k := range p.keys {
		if k != strconv.Itoa(i) {
			return false
		}
	}
	return true
}

// MarshalJSON keeps key order, which Map cannot.
func (p *Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Params) writeJSON(buf *bytes.Buffer) error {
	list := p.Len() > 0 && p.isList()
	if list {
		buf.WriteByte('[')
	} else {
		buf.WriteByte('{')
	}
	for i, k := range p.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if !list {
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
		}
		v := p.vals[k]
		if v.group != nil {
			if err := v.group.writeJSON(buf); err != nil {
				return err
			}
			continue
		}
		vb, err := json.Marshal(v.value)
		if err != nil {
			return err
		}
		buf.Write(vb)
	}
	if list {
		buf.WriteByte(']')
	} else {
		buf.WriteByte('}')
	}
	return nil
}

func (p *Params) put(key string, v *Param) {
	if p.vals == nil {
		p.vals = make(map[string]*Param)
	}
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = v
	if n, err := strconv.Atoi(key); err == nil && n >= 0 && strconv.Itoa(n) == key && n >= p.next {
		p.next = n + 1
	}
}

func (p *Params) assign(path []string, value string) {
	key := path[0]
	if key == "" {
		key = strconv.Itoa(p.next)
	}
	if len(path) == 1 {
		p.Set(key, value)
		return
	}
	cur, ok := p.vals[key]
	if !ok || cur.group == nil {
		cur = &Param{group: NewParams()}
		p.put(key, cur)
	}
	cur.group.assign(path[1:], value)
}

// splitFieldName turns "a[b][]" into ["a", "b", ""]. Text after the last
// closing bracket is dropped; a name without a closed bracket is literal.
func splitFieldName(name string) []string {
	i := strings.IndexByte(name, '[')
	if i <= 0 {
		return []string{name}
	}
	path := []string{name[:i]}
	rest := name[i:]
	for len(rest) > 0 && rest[0] == '[' {
		j := strings.IndexByte(rest, ']')
		if j < 0 {
			break
		}
		path = append(path, rest[1:j])
		rest = rest[j+1:]
	}
	if len(path) == 1 {
		return []string{name}
	}
	return path
}
