package http1

import (
	"bufio"
	"fmt"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// WriteStatusLine writes "HTTP/<version> <code> <reason>\r\n". The reason
// is written as given, even when empty.
func WriteStatusLine(bw *bufio.Writer, version string, code int, reason string) error {
	_, err := fmt.Fprintf(bw, "HTTP/%s %03d %s\r\n", version, code, sanitizeLine(reason))
	return err
}

// WriteRequestLine writes "<method> <target> HTTP/<version>\r\n".
func WriteRequestLine(bw *bufio.Writer, method, target, version string) error {
	if !httpguts.ValidHeaderFieldName(method) {
		return fmt.Errorf("%w: method %q", ErrMalformed, method)
	}
	if target == "" || strings.ContainsAny(target, " \r\n") {
		return fmt.Errorf("%w: request target %q", ErrMalformed, target)
	}
	_, err := fmt.Fprintf(bw, "%s %s HTTP/%s\r\n", method, target, version)
	return err
}

// WriteFields writes one "Name: value\r\n" line per field followed by the
// blank line ending the head. Fields with an invalid name are skipped and
// control characters are removed from values.
func WriteFields(bw *bufio.Writer, fields []Field) error {
	for _, f := range fields {
		if !httpguts.ValidHeaderFieldName(f.Name) {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", f.Name, SanitizeValue(f.Value)); err != nil {
			return err
		}
	}
	_, err := bw.WriteString("\r\n")
	return err
}

// WriteChunked writes one HTTP/1.1 chunk for chunked transfer encoding.
func WriteChunked(bw *bufio.Writer, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(bw, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	if _, err := bw.Write(p); err != nil {
		return 0, err
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return 0, err
	}
	return len(p), nil
}

// EndChunked writes the terminating zero-length chunk.
func EndChunked(bw *bufio.Writer) error {
	_, err := bw.WriteString("0\r\n\r\n")
	return err
}

func sanitizeLine(v string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return -1
		}
		return r
	}, v)
}

// SanitizeValue drops CR, LF and other control characters except HTAB.
func SanitizeValue(v string) string {
	if httpguts.ValidHeaderFieldValue(v) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == 0x7f || (c < 0x20 && c != '\t') {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
