package http1

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func read(raw string, maxLine, maxTotal int) (*ParsedRequest, error) {
	r := &Reader{BR: bufio.NewReader(strings.NewReader(raw)), MaxHeaderBytes: maxLine, MaxTotalHeaderBytes: maxTotal}
	return r.ReadRequest()
}

func TestReadRequestBodies(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		length int64
		body   string
	}{
		{"content-length", "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello", 5, "hello"},
		{"repeated equal lengths", "POST / HTTP/1.1\r\nContent-Length: 3, 3\r\n\r\nabc", 3, "abc"},
		{"chunked", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nhey\r\n2;ext=1\r\n!!\r\n0\r\nTrailer: x\r\n\r\n", -1, "hey!!"},
		{"no body", "GET / HTTP/1.0\r\n\r\n", 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pr, err := read(tc.raw, 8<<10, 64<<10)
			if err != nil {
				t.Fatalf("ReadRequest: %v", err)
			}
			if pr.ContentLength != tc.length {
				t.Fatalf("ContentLength=%d, want %d", pr.ContentLength, tc.length)
			}
			b, err := io.ReadAll(pr.Body)
			if err != nil {
				t.Fatalf("body: %v", err)
			}
			if string(b) != tc.body {
				t.Fatalf("body=%q, want %q", b, tc.body)
			}
		})
	}
}

func TestReadRequestLineAndFields(t *testing.T) {
	pr, err := read("OPTIONS * HTTP/1.1\r\nHost: x\r\nX-Case:  spaced \r\nx-case: again\r\n\r\n", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if pr.Method != "OPTIONS" || pr.RequestURI != "*" || pr.Proto != "HTTP/1.1" {
		t.Fatalf("request line = %q %q %q", pr.Method, pr.RequestURI, pr.Proto)
	}
	if len(pr.Fields) != 3 || pr.Fields[1] != (Field{Name: "X-Case", Value: "spaced"}) || pr.Fields[2].Name != "x-case" {
		t.Fatalf("fields = %+v", pr.Fields)
	}
	if got := pr.Get("X-CASE"); got != "spaced" {
		t.Fatalf("Get = %q", got)
	}
}

func TestReadRequestRejects(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		maxTotal int
		want     error
	}{
		{"cl and te", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\nContent-Length: 5\r\n\r\n", 0, ErrMalformed},
		{"length mismatch", "POST / HTTP/1.1\r\nContent-Length: 5, 6\r\n\r\n", 0, ErrMalformed},
		{"negative length", "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", 0, ErrMalformed},
		{"bad header name", "GET / HTTP/1.1\r\nBad( : v\r\n\r\n", 0, ErrMalformed},
		{"no colon", "GET / HTTP/1.1\r\nnocolon\r\n\r\n", 0, ErrMalformed},
		{"not http", "GET / SPDY/3\r\n\r\n", 0, ErrMalformed},
		{"short line", "GET /\r\n\r\n", 0, ErrMalformed},
		{"total too large", "GET / HTTP/1.1\r\nA: b\r\nC: d\r\nE: f\r\n\r\n", 20, ErrHeaderTooLarge},
		{"truncated", "GET / HTTP/1.1\r\nHost: x", 0, io.ErrUnexpectedEOF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := read(tc.raw, 8<<10, tc.maxTotal)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestLimitedBodyShort(t *testing.T) {
	pr, err := read("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadAll(pr.Body); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err=%v, want unexpected EOF", err)
	}
}
