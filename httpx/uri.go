package httpx

import (
	"html"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Component names a part of a URI for Render. The order of the constants
// is the order in which the parts appear in the string form; Authority
// and Path are aliases for the UserInfo..Port and Directory..File spans.
type Component int

const (
	URIScheme Component = iota
	URIUserInfo
	URIHost
	URIPort
	URIDirectory
	URIFile
	URIQuery
	URIFragment

	URIAuthority
	URIPath
)

var componentNames = [...]string{
	URIScheme:    "scheme",
	URIUserInfo:  "userinfo",
	URIHost:      "host",
	URIPort:      "port",
	URIDirectory: "directory",
	URIFile:      "file",
	URIQuery:     "query",
	URIFragment:  "fragment",
	URIAuthority: "authority",
	URIPath:      "path",
}

func (c Component) String() string {
	if c >= 0 && int(c) < len(componentNames) {
		return componentNames[c]
	}
	return "component(" + strconv.Itoa(int(c)) + ")"
}

// ParseComponent maps a component name ("host", "path", ...) to its
// Component.
func ParseComponent(name string) (Component, bool) {
	name = strings.ToLower(name)
	if name == "user" {
		return URIUserInfo, true
	}
	for i, n := range componentNames {
		if n == name {
			return Component(i), true
		}
	}
	return 0, false
}

// first returns where rendering starts for c.
func (c Component) first() Component {
	switch c {
	case URIAuthority:
		return URIUserInfo
	case URIPath:
		return URIDirectory
	}
	if c < URIScheme || c > URIFragment {
		return URIScheme
	}
	return c
}

// stopsAfter reports whether a render ending at c is complete once part
// has been emitted.
func (c Component) stopsAfter(part Component) bool {
	switch c {
	case URIAuthority:
		return part == URIPort
	case URIPath:
		return part == URIFile
	}
	return c == part
}

// URI is an immutable URI value. The zero value is the empty URI.
//
// The path is held as a directory and a file: "/a/b" is directory "/a/"
// and file "b", "/a/" is directory "/a/" and no file.
type URI struct {
	scheme   string
	user     string
	pass     string
	hasPass  bool
	host     string
	port     int
	dir      string
	file     string
	query    *Params
	fragment string
}

// ParseURI parses s. Scheme and host are lowercased; the query is
// decoded into Params.
func ParseURI(s string) (URI, error) {
	p, err := splitURI(s)
	if err != nil {
		return URI{}, err
	}
	u := URI{
		scheme:   strings.ToLower(p.scheme),
		user:     p.user,
		pass:     p.pass,
		hasPass:  p.hasPass,
		host:     strings.ToLower(p.host),
		port:     p.port,
		fragment: p.fragment,
	}
	u.dir, u.file = splitPath(p.path)
	if p.query != "" {
		u.query = ParseParams(p.query)
	}
	return u, nil
}

// MustParseURI is like ParseURI but panics on error.
func MustParseURI(s string) URI {
	u, err := ParseURI(s)
	if err != nil {
		panic(err)
	}
	return u
}

func splitPath(path string) (dir, file string) {
	if path == "" {
		return "", ""
	}
	if strings.HasSuffix(path, "/") {
		return path, ""
	}
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i+1], path[i+1:]
}

// Render returns the string form restricted to the inclusive range
// [start, end]. Delimiters at the range boundary are the ones the full
// string would carry there. An end before start renders through the
// fragment.
func (u URI) Render(start, end Component) string {
	var b strings.Builder
	authority := false
	for part := start.first(); part <= URIFragment; part++ {
		switch part {
		case URIScheme:
			if u.scheme != "" {
				b.WriteString(u.scheme)
				b.WriteByte(':')
			}
		case URIUserInfo:
			if ui := u.UserInfo(); ui != "" && u.host != "" {
				b.WriteString("//")
				b.WriteString(ui)
				b.WriteByte('@')
				authority = true
			}
		case URIHost:
			if u.host != "" && !authority {
				b.WriteString("//")
			}
			b.WriteString(u.host)
		case URIPort:
			if u.port != 0 && u.host != "" {
				b.WriteByte(':')
				b.WriteString(strconv.Itoa(u.port))
			}
		case URIDirectory:
			if b.Len() > 0 && u.dir != "" && u.dir[0] != '/' {
				b.WriteByte('/')
			}
			b.WriteString(u.dir)
		case URIFile:
			if b.Len() > 0 && u.file != "" && !strings.HasSuffix(b.String(), "/") {
				b.WriteByte('/')
			}
			b.WriteString(u.file)
		case URIQuery:
			if q := u.Query(); q != "" {
				b.WriteByte('?')
				b.WriteString(q)
			}
		case URIFragment:
			if u.fragment != "" {
				b.WriteByte('#')
				b.WriteString(u.fragment)
			}
		}
		if end.stopsAfter(part) {
			break
		}
	}
	return b.String()
}

func (u URI) String() string { return u.Render(URIScheme, URIFragment) }

// Equal reports whether u and v have the same string form.
func (u URI) Equal(v URI) bool { return u.String() == v.String() }

// IsZero reports whether every component is empty.
func (u URI) IsZero() bool { return u.String() == "" }

func (u URI) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *URI) UnmarshalText(b []byte) error {
	v, err := ParseURI(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

func (u URI) Scheme() string { return u.scheme }

func (u URI) WithScheme(scheme string) URI {
	u.scheme = strings.ToLower(scheme)
	return u
}

// Authority returns [userinfo@]host[:port], or "" without a host.
func (u URI) Authority() string {
	if u.host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Render(URIUserInfo, URIPort), "//")
}

func (u URI) User() string { return u.user }

// Password returns the password and whether one is set.
func (u URI) Password() (string, bool) { return u.pass, u.hasPass }

// UserInfo returns user[:password].
func (u URI) UserInfo() string {
	if u.hasPass {
		return u.user + ":" + u.pass
	}
	return u.user
}

// WithUser sets the user and clears the password.
func (u URI) WithUser(user string) URI {
	u.user, u.pass, u.hasPass = user, "", false
	return u
}

func (u URI) WithUserInfo(user, password string) URI {
	u.user, u.pass, u.hasPass = user, password, true
	return u
}

func (u URI) Host() string { return u.host }

func (u URI) WithHost(host string) URI {
	u.host = strings.ToLower(host)
	return u
}

// Port returns the port and whether one is set.
func (u URI) Port() (int, bool) { return u.port, u.port != 0 }

// WithPort fails with ErrInvalidPort outside 1-65535.
func (u URI) WithPort(port int) (URI, error) {
	if !validPort(port) {
		return u, errors.Wrapf(ErrInvalidPort, "%d", port)
	}
	u.port = port
	return u, nil
}

func (u URI) WithoutPort() URI {
	u.port = 0
	return u
}

// HostPort returns host[:port] as used in a Host header.
func (u URI) HostPort() string {
	if u.host == "" || u.port == 0 {
		return u.host
	}
	return u.host + ":" + strconv.Itoa(u.port)
}

func (u URI) Path() string {
	if u.dir != "" && u.file != "" && !strings.HasSuffix(u.dir, "/") {
		return u.dir + "/" + u.file
	}
	return u.dir + u.file
}

func (u URI) WithPath(path string) URI {
	u.dir, u.file = splitPath(path)
	return u
}

func (u URI) Directory() string { return u.dir }

func (u URI) WithDirectory(dir string) URI {
	u.dir = dir
	return u
}

func (u URI) File() string { return u.file }

func (u URI) WithFile(file string) URI {
	u.file = file
	return u
}

// Segments returns the non-empty path segments.
func (u URI) Segments() []string {
	segs := []string{}
	for _, s := range strings.Split(u.Path(), "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func (u URI) Segment(i int) (string, bool) {
	segs := u.Segments()
	if i < 0 || i >= len(segs) {
		return "", false
	}
	return segs[i], true
}

// Query returns the query re-encoded from its decoded form.
func (u URI) Query() string { return u.query.Encode() }

// QueryParams returns a copy of the decoded query.
func (u URI) QueryParams() *Params { return u.query.Clone() }

func (u URI) QueryValue(key string) (Param, bool) { return u.query.Lookup(key) }

func (u URI) WithQuery(raw string) URI {
	u.query = nil
	if raw != "" {
		u.query = ParseParams(raw)
	}
	return u
}

func (u URI) WithQueryParams(p *Params) URI {
	u.query = p.Clone()
	return u
}

func (u URI) WithQueryValue(key, value string) URI {
	q := u.query.Clone()
	q.Set(key, value)
	u.query = q
	return u
}

func (u URI) Fragment() string { return u.fragment }

func (u URI) WithFragment(fragment string) URI {
	u.fragment = fragment
	return u
}

// Encode HTML-escapes the string form and parses the result.
func (u URI) Encode() (URI, error) {
	return ParseURI(html.EscapeString(u.String()))
}

// Decode reverses Encode.
func (u URI) Decode() (URI, error) {
	return ParseURI(html.UnescapeString(u.String()))
}
