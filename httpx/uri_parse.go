package httpx

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type uriParts struct {
	scheme   string
	user     string
	pass     string
	hasPass  bool
	host     string
	port     int
	path     string
	query    string
	fragment string
}

// splitURI breaks s into its syntactic components without decoding them.
func splitURI(s string) (uriParts, error) {
	var p uriParts
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c == 0x7f {
			return p, errors.Wrapf(ErrInvalidURI, "control character at offset %d", i)
		}
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s, p.fragment = s[:i], s[i+1:]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s, p.query = s[:i], s[i+1:]
	}

	hostOnly := false
	if n := schemeLen(s); n > 0 {
		rest := s[n+1:]
		if isPortPrefix(rest) {
			// host:port[/path] without a scheme
			hostOnly = true
		} else {
			p.scheme, s = s[:n], rest
		}
	}

	var authority string
	switch {
	case strings.HasPrefix(s, "//"):
		s = s[2:]
		authority, s = cutAt(s, '/')
		if authority == "" {
			return p, errors.Wrap(ErrInvalidURI, "empty authority")
		}
	case hostOnly:
		authority, s = cutAt(s, '/')
	}
	p.path = s
	if authority == "" {
		return p, nil
	}
	if err := p.splitAuthority(authority); err != nil {
		return p, err
	}
	return p, nil
}

func (p *uriParts) splitAuthority(a string) error {
	if i := strings.LastIndexByte(a, '@'); i >= 0 {
		userinfo := a[:i]
		a = a[i+1:]
		if u, pw, ok := strings.Cut(userinfo, ":"); ok {
			p.user, p.pass, p.hasPass = u, pw, true
		} else {
			p.user = userinfo
		}
	}
	host, port := a, ""
	if strings.HasPrefix(a, "[") {
		j := strings.IndexByte(a, ']')
		if j < 0 {
			return errors.Wrapf(ErrInvalidURI, "unterminated IPv6 literal %q", a)
		}
		host, port = a[:j+1], a[j+1:]
		if port != "" {
			if port[0] != ':' {
				return errors.Wrapf(ErrInvalidURI, "unexpected %q after host", port)
			}
			port = port[1:]
		}
	} else if i := strings.LastIndexByte(a, ':'); i >= 0 {
		host, port = a[:i], a[i+1:]
	}
	if host == "" {
		return errors.Wrap(ErrInvalidURI, "missing host")
	}
	p.host = host
	if port == "" {
		return nil
	}
	for i := 0; i < len(port); i++ {
		if port[i] < '0' || port[i] > '9' {
			return errors.Wrapf(ErrInvalidURI, "port %q is not numeric", port)
		}
	}
	n, err := strconv.Atoi(port)
	if err != nil || !validPort(n) {
		return errors.Wrapf(ErrInvalidPort, "%s", port)
	}
	p.port = n
	return nil
}

// schemeLen returns the length of a leading scheme terminated by ':', or 0.
func schemeLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		case i > 0 && c == ':':
			return i
		default:
			return 0
		}
	}
	return 0
}

// isPortPrefix reports whether s starts with one to five digits followed
// by '/' or the end of the string.
func isPortPrefix(s string) bool {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 0 || n > 5 {
		return false
	}
	return n == len(s) || s[n] == '/'
}

func cutAt(s string, c byte) (string, string) {
	if i := strings.IndexByte(s, c); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

func validPort(n int) bool { return n >= 1 && n <= 0xffff }
