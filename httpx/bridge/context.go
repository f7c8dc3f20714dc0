package bridge

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyCorrelationID
	ctxKeyTrace
)

// Attribute names set on every ServerRequest passed to a Handler.
const (
	AttrRequestID     = "request_id"
	AttrCorrelationID = "correlation_id"
	AttrTrace         = "trace"
)

// WithRequestID returns a new context that carries a request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFrom extracts the request ID from ctx.
func RequestIDFrom(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKeyRequestID).(string)
	return s, ok && s != ""
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}

func CorrelationIDFrom(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKeyCorrelationID).(string)
	return s, ok && s != ""
}

// requestID keeps an incoming id that is a UUID and otherwise makes a new
// one.
func requestID(incoming string) string {
	if u, err := uuid.Parse(strings.TrimSpace(incoming)); err == nil {
		return u.String()
	}
	return uuid.NewString()
}

// Trace is W3C trace context for the request being served. TraceID is
// 32 hex digits, SpanID and ParentSpanID are 16.
type Trace struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Flags        string
}

// Traceparent renders the traceparent header value.
func (t Trace) Traceparent() string {
	flags := t.Flags
	if flags == "" {
		flags = "01"
	}
	return "00-" + t.TraceID + "-" + t.SpanID + "-" + flags
}

func WithTrace(ctx context.Context, tr Trace) context.Context {
	return context.WithValue(ctx, ctxKeyTrace, tr)
}

func TraceFrom(ctx context.Context) (Trace, bool) {
	tr, ok := ctx.Value(ctxKeyTrace).(Trace)
	return tr, ok
}

// continueTrace starts a span under an incoming traceparent, or a new
// trace when there is none or it is invalid.
func continueTrace(traceparent string) Trace {
	if tid, sid, fl, ok := parseTraceparent(traceparent); ok {
		return Trace{TraceID: tid, SpanID: randomHex(8), ParentSpanID: sid, Flags: fl}
	}
	return Trace{TraceID: randomHex(16), SpanID: randomHex(8), Flags: "01"}
}

func parseTraceparent(v string) (traceID, spanID, flags string, ok bool) {
	parts := strings.Split(strings.TrimSpace(v), "-")
	if len(parts) < 4 {
		return "", "", "", false
	}
	ver, tid, sid, fl := parts[0], parts[1], parts[2], parts[3]
	if len(ver) != 2 || len(tid) != 32 || len(sid) != 16 || len(fl) != 2 {
		return "", "", "", false
	}
	if !isHex(ver) || !isHex(tid) || !isHex(sid) || !isHex(fl) {
		return "", "", "", false
	}
	tid, sid = strings.ToLower(tid), strings.ToLower(sid)
	if tid == strings.Repeat("0", 32) || sid == strings.Repeat("0", 16) {
		return "", "", "", false
	}
	return tid, sid, strings.ToLower(fl), true
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			continue
		}
		return false
	}
	return true
}

// randomHex returns n random bytes hex encoded, never all zeros.
func randomHex(n int) string {
	b := make([]byte, n)
	for {
		if _, err := rand.Read(b); err != nil {
			continue
		}
		for _, v := range b {
			if v != 0 {
				return hex.EncodeToString(b)
			}
		}
	}
}
