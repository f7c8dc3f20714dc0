package http1

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	ErrMalformed      = errors.New("http1: malformed request")
	ErrHeaderTooLarge = errors.New("http1: header too large")
)

// Field is one header line as received.
type Field struct {
	Name  string
	Value string
}

// ParsedRequest is a minimal representation parsed from the wire.
// Fields keep wire order and casing.
type ParsedRequest struct {
	Method        string
	RequestURI    string
	Proto         string
	Fields        []Field
	ContentLength int64
	Body          io.ReadCloser
}

// Get returns the first value of name, compared case-insensitively.
func (p *ParsedRequest) Get(name string) string {
	for _, f := range p.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

type Reader struct {
	BR *bufio.Reader
	// MaxHeaderBytes limits one line; MaxTotalHeaderBytes the request
	// line plus all header lines. Zero means no limit.
	MaxHeaderBytes      int
	MaxTotalHeaderBytes int
}

func (r *Reader) ReadRequest() (*ParsedRequest, error) {
	total := 0
	line, err := r.readLine(&total)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return nil, ErrMalformed
	}
	method, uri, proto := parts[0], parts[1], parts[2]
	if method == "" || uri == "" || !strings.HasPrefix(proto, "HTTP/1.") {
		return nil, ErrMalformed
	}
	fields, err := r.readFields(&total)
	if err != nil {
		return nil, err
	}
	pr := &ParsedRequest{
		Method:     method,
		RequestURI: uri,
		Proto:      proto,
		Fields:     fields,
	}
	chunked := hasChunkedTE(fields)
	cl, hasCL, err := contentLength(fields)
	if err != nil {
		return nil, err
	}
	switch {
	case chunked && hasCL:
		return nil, ErrMalformed
	case chunked:
		pr.ContentLength = -1
		pr.Body = newChunkedBody(r.BR, r.MaxHeaderBytes)
	case cl > 0:
		pr.ContentLength = cl
		pr.Body = &limitedBody{lr: &io.LimitedReader{R: r.BR, N: cl}}
	default:
		pr.Body = io.NopCloser(strings.NewReader(""))
	}
	return pr, nil
}

func (r *Reader) readFields(total *int) ([]Field, error) {
	var fields []Field
	for {
		line, err := r.readLine(total)
		if err != nil {
			return nil, err
		}
		if line == "" {
			return fields, nil
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			return nil, ErrMalformed
		}
		k := line[:i]
		if !httpguts.ValidHeaderFieldName(k) {
			return nil, ErrMalformed
		}
		v := strings.TrimSpace(line[i+1:])
		if !httpguts.ValidHeaderFieldValue(v) {
			return nil, ErrMalformed
		}
		fields = append(fields, Field{Name: k, Value: v})
	}
}

func (r *Reader) readLine(total *int) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.BR.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		*total++
		if r.MaxTotalHeaderBytes > 0 && *total > r.MaxTotalHeaderBytes {
			return "", ErrHeaderTooLarge
		}
		if b == '\n' {
			break
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
		if r.MaxHeaderBytes > 0 && sb.Len() > r.MaxHeaderBytes {
			return "", ErrHeaderTooLarge
		}
	}
	return sb.String(), nil
}

type limitedBody struct {
	lr *io.LimitedReader
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.lr.Read(p)
	if err == io.EOF && b.lr.N > 0 {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

func (b *limitedBody) Close() error {
	// Drain remaining bytes to allow next request on the same connection.
	_, err := io.Copy(io.Discard, b.lr)
	return err
}

// contentLength folds every Content-Length value, including
// comma-separated lists, and fails unless they all agree.
func contentLength(fields []Field) (int64, bool, error) {
	var (
		n     int64
		found bool
	)
	for _, f := range fields {
		if !strings.EqualFold(f.Name, "Content-Length") {
			continue
		}
		for _, s := range strings.Split(f.Value, ",") {
			v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil || v < 0 {
				return 0, false, ErrMalformed
			}
			if found && v != n {
				return 0, false, ErrMalformed
			}
			n, found = v, true
		}
	}
	return n, found, nil
}

func hasChunkedTE(fields []Field) bool {
	for _, f := range fields {
		if strings.EqualFold(f.Name, "Transfer-Encoding") && strings.Contains(strings.ToLower(f.Value), "chunked") {
			return true
		}
	}
	return false
}
