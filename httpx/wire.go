package httpx

import (
	"bufio"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"dqx0.com/go/httpmsg/httpx/internal/http1"
)

// ReadOptions configure ReadServerRequest.
type ReadOptions struct {
	MaxHeaderBytes      int // per line, 0 = 8 KiB
	MaxTotalHeaderBytes int // whole head, 0 = 64 KiB
	Body                BodyLimits
	// TLS marks the request as received over HTTPS.
	TLS        bool
	RemoteAddr string
}

// ReadServerRequest reads one HTTP/1.x request from br and turns it into
// a ServerRequest, storing uploaded files through reg. Malformed heads
// fail with ErrBadRequest or ErrHeaderTooLarge.
func ReadServerRequest(br *bufio.Reader, reg *UploadRegistry, opts ReadOptions) (*ServerRequest, error) {
	if opts.MaxHeaderBytes <= 0 {
		opts.MaxHeaderBytes = 8 << 10
	}
	if opts.MaxTotalHeaderBytes <= 0 {
		opts.MaxTotalHeaderBytes = 64 << 10
	}
	rd := &http1.Reader{BR: br, MaxHeaderBytes: opts.MaxHeaderBytes, MaxTotalHeaderBytes: opts.MaxTotalHeaderBytes}
	pr, err := rd.ReadRequest()
	if err != nil {
		return nil, wireError(err)
	}
	defer pr.Body.Close()

	header := &Header{}
	for _, f := range pr.Fields {
		header.Add(f.Name, f.Value)
	}
	env := &Environment{
		Server:  ServerVars(pr.Method, pr.RequestURI, pr.Proto, header, opts.TLS, opts.RemoteAddr),
		Cookies: CookieParams(header),
		Headers: header,
	}
	if err := env.LoadBody(pr.Method, pr.Get("Content-Type"), pr.Body, reg, opts.Body); err != nil {
		return nil, wireError(err)
	}
	return NewServerRequest(env)
}

func wireError(err error) error {
	switch {
	case errors.Is(err, http1.ErrHeaderTooLarge):
		return errors.Wrap(ErrHeaderTooLarge, err.Error())
	case errors.Is(err, http1.ErrMalformed), errors.Is(err, io.ErrUnexpectedEOF):
		return errors.Wrap(ErrBadRequest, err.Error())
	}
	return err
}

// ServerVars builds the server variables a CGI-style host would expose
// for a request.
func ServerVars(method, requestURI, proto string, h *Header, tls bool, remoteAddr string) map[string]string {
	vars := map[string]string{
		"REQUEST_METHOD":  method,
		"SERVER_PROTOCOL": proto,
	}
	host := h.Get("Host")
	if strings.Contains(requestURI, "://") {
		if u, err := ParseURI(requestURI); err == nil {
			if u.Host() != "" {
				host = u.HostPort()
			}
			requestURI = u.Render(URIPath, URIQuery)
			if requestURI == "" || requestURI[0] == '?' {
				requestURI = "/" + requestURI
			}
		}
	}
	vars["REQUEST_URI"] = requestURI
	if _, q, ok := strings.Cut(requestURI, "?"); ok {
		vars["QUERY_STRING"] = q
	}
	if host != "" {
		vars["HTTP_HOST"] = host
	}
	if tls {
		vars["HTTPS"] = "on"
	}
	if remoteAddr != "" {
		vars["REMOTE_ADDR"] = remoteAddr
	}
	h.Range(func(name string, values []string) bool {
		k := HeaderToServerKey(name)
		if _, ok := vars[k]; !ok {
			vars[k] = strings.Join(values, ", ")
		}
		return true
	})
	return vars
}

// CookieParams decodes the Cookie header fields.
func CookieParams(h *Header) map[string]string {
	out := map[string]string{}
	for _, line := range h.Values("Cookie") {
		cookies, err := http.ParseCookie(line)
		if err != nil {
			continue
		}
		for _, c := range cookies {
			out[c.Name] = c.Value
		}
	}
	return out
}

// WriteTo writes the response in HTTP/1.x wire form: the status line,
// one "Name: v1,v2" line per header field, and the body. A
// Content-Length field is added when missing and the status permits a
// body. With Transfer-Encoding: chunked the body is sent as one chunk.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	bw := bufio.NewWriter(cw)
	body, err := bodyBytes(r.body)
	if err != nil {
		return 0, err
	}
	if !bodyAllowed(r.code) {
		body = nil
	}
	if err := http1.WriteStatusLine(bw, r.version, r.code, r.reason); err != nil {
		return cw.n, err
	}
	fields := headerFields(r.header)
	if bodyAllowed(r.code) && !r.header.Has("Content-Length") && !r.header.Has("Transfer-Encoding") {
		fields = append(fields, http1.Field{Name: "Content-Length", Value: strconv.Itoa(len(body))})
	}
	if err := http1.WriteFields(bw, fields); err != nil {
		return cw.n, err
	}
	if bodyAllowed(r.code) && isChunked(r.header) {
		if _, err := http1.WriteChunked(bw, body); err != nil {
			return cw.n, err
		}
		if err := http1.EndChunked(bw); err != nil {
			return cw.n, err
		}
	} else if _, err := bw.Write(body); err != nil {
		return cw.n, err
	}
	err = bw.Flush()
	return cw.n, err
}

func isChunked(h *Header) bool {
	for _, v := range h.Values("Transfer-Encoding") {
		if strings.Contains(strings.ToLower(v), "chunked") {
			return true
		}
	}
	return false
}

// WriteTo writes the request line with RequestTarget, the header fields
// and the body.
func (r *Request) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	bw := bufio.NewWriter(cw)
	body, err := bodyBytes(r.body)
	if err != nil {
		return 0, err
	}
	if err := http1.WriteRequestLine(bw, r.method, r.RequestTarget(), r.version); err != nil {
		return cw.n, err
	}
	fields := headerFields(r.header)
	if len(body) > 0 && !r.header.Has("Content-Length") && !r.header.Has("Transfer-Encoding") {
		fields = append(fields, http1.Field{Name: "Content-Length", Value: strconv.Itoa(len(body))})
	}
	if err := http1.WriteFields(bw, fields); err != nil {
		return cw.n, err
	}
	if _, err := bw.Write(body); err != nil {
		return cw.n, err
	}
	err = bw.Flush()
	return cw.n, err
}

func headerFields(h *Header) []http1.Field {
	fields := make([]http1.Field, 0, h.Len())
	h.Range(func(name string, values []string) bool {
		fields = append(fields, http1.Field{Name: name, Value: strings.Join(values, ",")})
		return true
	})
	return fields
}

func bodyBytes(st *Stream) ([]byte, error) {
	if !st.IsReadable() {
		return nil, nil
	}
	return st.Bytes()
}

func bodyAllowed(code int) bool {
	return code >= 200 && code != 204 && code != 304
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
