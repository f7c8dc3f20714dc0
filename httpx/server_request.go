package httpx

import (
	"context"
	"encoding/json"
	"strings"
)

// ServerRequest is an incoming request together with what the host knows
// about it: server variables, cookies, query and POST fields, uploaded
// files, and attributes added by the application.
type ServerRequest struct {
	Request
	server     map[string]string
	cookies    map[string]string
	query      *Params
	post       *Params
	files      UploadTree
	parsed     any
	attributes map[string]any
}

// NewServerRequest builds a request from env. The method is env.Method,
// or REQUEST_METHOD when empty; the URI is env.URI, or else built from
// HTTPS, HTTP_HOST and REQUEST_URI. The protocol version comes from
// SERVER_PROTOCOL unless an option sets it. Query fields are decoded from
// the query of REQUEST_URI, and a REQUEST_URI of "*" becomes the request
// target. It fails when the derived URI does not parse or Files is
// malformed.
func NewServerRequest(env *Environment, opts ...Option) (*ServerRequest, error) {
	if env == nil {
		env = &Environment{}
	}
	server := copyStrings(env.Server)

	var uri URI
	if env.URI != nil {
		uri = *env.URI
	} else {
		u, err := ParseURI(serverURI(server))
		if err != nil {
			return nil, err
		}
		uri = u
	}
	method := env.Method
	if method == "" {
		method = server["REQUEST_METHOD"]
	}
	files, err := ParseUploadedFiles(env.Files, env.Uploads)
	if err != nil {
		return nil, err
	}

	header := env.Headers
	if header == nil {
		header = headersFromServer(server)
	}
	body := env.Body
	if body == nil {
		body = NewReadOnlyStream(strings.NewReader(""))
	}
	all := make([]Option, 0, len(opts)+3)
	if v := server["SERVER_PROTOCOL"]; strings.HasPrefix(v, "HTTP/") {
		all = append(all, Version(strings.TrimPrefix(v, "HTTP/")))
	}
	all = append(all, Headers(header), Body(body))
	all = append(all, opts...)

	r := &ServerRequest{
		Request:    *NewRequest(method, uri, all...),
		server:     server,
		cookies:    copyStrings(env.Cookies),
		query:      queryFromRequestURI(server["REQUEST_URI"]),
		post:       env.Post.Clone(),
		files:      files,
		attributes: map[string]any{},
	}
	if server["REQUEST_URI"] == "*" {
		r.target = "*"
	}
	return r, nil
}

func serverURI(server map[string]string) string {
	var b strings.Builder
	if host, ok := server["HTTP_HOST"]; ok {
		if https := server["HTTPS"]; https != "" && !strings.EqualFold(https, "off") {
			b.WriteString("https://")
		} else {
			b.WriteString("http://")
		}
		b.WriteString(host)
	}
	if ru := server["REQUEST_URI"]; ru != "*" {
		b.WriteString(ru)
	}
	return b.String()
}

func queryFromRequestURI(ru string) *Params {
	if i := strings.IndexByte(ru, '#'); i >= 0 {
		ru = ru[:i]
	}
	_, q, ok := strings.Cut(ru, "?")
	if !ok || q == "" {
		return NewParams()
	}
	return ParseParams(q)
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ServerParams returns a copy of the server variables.
func (r *ServerRequest) ServerParams() map[string]string { return copyStrings(r.server) }

func (r *ServerRequest) ServerParam(name string) (string, bool) {
	v, ok := r.server[name]
	return v, ok
}

func (r *ServerRequest) CookieParams() map[string]string { return copyStrings(r.cookies) }

func (r *ServerRequest) WithCookieParams(cookies map[string]string) *ServerRequest {
	c := *r
	c.cookies = copyStrings(cookies)
	return &c
}

// QueryParams returns a copy of the query fields.
func (r *ServerRequest) QueryParams() *Params { return r.query.Clone() }

func (r *ServerRequest) WithQueryParams(p *Params) *ServerRequest {
	c := *r
	c.query = p.Clone()
	return &c
}

// PostParams returns a copy of the decoded POST fields.
func (r *ServerRequest) PostParams() *Params { return r.post.Clone() }

func (r *ServerRequest) UploadedFiles() UploadTree { return r.files }

func (r *ServerRequest) WithUploadedFiles(t UploadTree) *ServerRequest {
	c := *r
	c.files = t
	return &c
}

// ParsedBody returns the value set with WithParsedBody, or else:
//   - for a POST with Content-Type application/x-www-form-urlencoded or
//     multipart/form-data, the POST fields as *Params;
//   - for Content-Type application/json or text/plain, the body decoded
//     as JSON, nil when it is not valid JSON;
//   - nil otherwise.
//
// Content types are matched as case-sensitive prefixes of any
// Content-Type value.
func (r *ServerRequest) ParsedBody() any {
	if r.parsed != nil {
		return r.parsed
	}
	if r.method == "POST" && (r.hasContentType("application/x-www-form-urlencoded") || r.hasContentType("multipart/form-data")) {
		return r.post.Clone()
	}
	if r.hasContentType("application/json") || r.hasContentType("text/plain") {
		b, err := r.body.Bytes()
		if err != nil || len(b) == 0 {
			return nil
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return nil
		}
		return v
	}
	return nil
}

func (r *ServerRequest) hasContentType(prefix string) bool {
	for _, v := range r.header.Values("Content-Type") {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}

// WithParsedBody overrides ParsedBody. Passing nil restores the derived
// value.
func (r *ServerRequest) WithParsedBody(v any) *ServerRequest {
	c := *r
	c.parsed = v
	return &c
}

// Attributes returns a copy of the attributes.
func (r *ServerRequest) Attributes() map[string]any {
	out := make(map[string]any, len(r.attributes))
	for k, v := range r.attributes {
		out[k] = v
	}
	return out
}

// Attribute returns the attribute name, or def when it is not set.
func (r *ServerRequest) Attribute(name string, def any) any {
	if v, ok := r.attributes[name]; ok {
		return v
	}
	return def
}

func (r *ServerRequest) WithAttribute(name string, v any) *ServerRequest {
	c := *r
	c.attributes = r.Attributes()
	c.attributes[name] = v
	return &c
}

func (r *ServerRequest) WithoutAttribute(name string) *ServerRequest {
	c := *r
	if _, ok := r.attributes[name]; ok {
		c.attributes = r.Attributes()
		delete(c.attributes, name)
	}
	return &c
}

func (r *ServerRequest) WithMethod(method string) *ServerRequest {
	return r.with(r.Request.WithMethod(method))
}

func (r *ServerRequest) WithURI(u URI, preserveHost bool) *ServerRequest {
	return r.with(r.Request.WithURI(u, preserveHost))
}

func (r *ServerRequest) WithRequestTarget(target string) *ServerRequest {
	return r.with(r.Request.WithRequestTarget(target))
}

func (r *ServerRequest) WithContext(ctx context.Context) *ServerRequest {
	return r.with(r.Request.WithContext(ctx))
}

func (r *ServerRequest) WithProtocolVersion(v string) *ServerRequest {
	return r.with(r.Request.WithProtocolVersion(v))
}

func (r *ServerRequest) WithHeader(name string, values ...string) *ServerRequest {
	return r.with(r.Request.WithHeader(name, values...))
}

func (r *ServerRequest) WithAddedHeader(name string, values ...string) *ServerRequest {
	return r.with(r.Request.WithAddedHeader(name, values...))
}

func (r *ServerRequest) WithoutHeader(name string) *ServerRequest {
	return r.with(r.Request.WithoutHeader(name))
}

func (r *ServerRequest) WithBody(st *Stream) *ServerRequest {
	return r.with(r.Request.WithBody(st))
}

func (r *ServerRequest) with(req *Request) *ServerRequest {
	c := *r
	c.Request = *req
	return &c
}
