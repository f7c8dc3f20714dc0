package httpx

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

// Stream is the body handle shared by messages. Copies of a message share
// one Stream, so reads, writes and seeks through any of them are visible
// to all.
//
// Capabilities come from the wrapped resource: it is readable if the
// resource is an io.Reader, writable if an io.Writer, seekable if an
// io.Seeker. After Close or Detach every capability is gone.
type Stream struct {
	res    any
	r      io.Reader
	w      io.Writer
	s      io.Seeker
	pos    int64
	eof    bool
	closed bool
}

// NewStream wraps resource. It fails with ErrInvalidResource when the
// resource can neither be read, written nor seeked.
func NewStream(resource any) (*Stream, error) {
	st := &Stream{res: resource}
	st.r, _ = resource.(io.Reader)
	st.w, _ = resource.(io.Writer)
	st.s, _ = resource.(io.Seeker)
	if resource == nil || (st.r == nil && st.w == nil && st.s == nil) {
		return nil, errors.Wrapf(ErrInvalidResource, "%T", resource)
	}
	return st, nil
}

// NewTempStream returns an empty in-memory stream that can be read,
// written and seeked. Its memory goes back to a pool on Close.
func NewTempStream() *Stream {
	st, _ := NewStream(&tempBuffer{buf: bytebufferpool.Get()})
	return st
}

// NewStreamString returns a temp stream holding s, positioned at the
// start.
func NewStreamString(s string) *Stream {
	st := NewTempStream()
	_, _ = st.Write([]byte(s))
	_ = st.Rewind()
	return st
}

// NewReadOnlyStream wraps r hiding any write capability it has.
func NewReadOnlyStream(r io.Reader) *Stream {
	var res any = struct{ io.Reader }{r}
	if rs, ok := r.(io.ReadSeeker); ok {
		res = struct{ io.ReadSeeker }{rs}
	}
	st, _ := NewStream(res)
	if c, ok := r.(io.Closer); ok {
		st.res = closerWith{res, c}
	}
	return st
}

type closerWith struct {
	any
	c io.Closer
}

func (c closerWith) Close() error { return c.c.Close() }

func (st *Stream) IsReadable() bool { return st != nil && !st.closed && st.r != nil }
func (st *Stream) IsWritable() bool { return st != nil && !st.closed && st.w != nil }
func (st *Stream) IsSeekable() bool { return st != nil && !st.closed && st.s != nil }

func (st *Stream) Read(p []byte) (int, error) {
	if !st.IsReadable() {
		return 0, ErrStreamNotReadable
	}
	n, err := st.r.Read(p)
	st.pos += int64(n)
	if err == io.EOF {
		st.eof = true
		return n, io.EOF
	}
	if err != nil {
		return n, errors.Wrapf(ErrStreamIO, "%v", err)
	}
	return n, nil
}

func (st *Stream) Write(p []byte) (int, error) {
	if !st.IsWritable() {
		return 0, ErrStreamNotWritable
	}
	n, err := st.w.Write(p)
	st.pos += int64(n)
	if err != nil {
		return n, errors.Wrapf(ErrStreamIO, "%v", err)
	}
	return n, nil
}

// WriteString writes s.
func (st *Stream) WriteString(s string) (int, error) { return st.Write([]byte(s)) }

func (st *Stream) Seek(offset int64, whence int) (int64, error) {
	if !st.IsSeekable() {
		return 0, ErrStreamNotSeekable
	}
	n, err := st.s.Seek(offset, whence)
	if err != nil {
		return n, errors.Wrapf(ErrStreamIO, "seek: %v", err)
	}
	st.pos = n
	st.eof = false
	return n, nil
}

func (st *Stream) Rewind() error {
	_, err := st.Seek(0, io.SeekStart)
	return err
}

// Tell returns the current position.
func (st *Stream) Tell() (int64, error) {
	if st == nil || st.closed {
		return 0, errors.Wrap(ErrStreamIO, "tell on closed stream")
	}
	if st.s != nil {
		n, err := st.s.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, errors.Wrapf(ErrStreamIO, "tell: %v", err)
		}
		return n, nil
	}
	return st.pos, nil
}

// EOF reports whether a read has hit the end since the last seek.
func (st *Stream) EOF() bool { return st != nil && !st.closed && st.eof }

// Size returns the total size when it can be determined.
func (st *Stream) Size() (int64, bool) {
	if st == nil || st.closed {
		return 0, false
	}
	switch v := st.res.(type) {
	case interface{ Size() int64 }:
		return v.Size(), true
	case interface{ Len() int }:
		return int64(v.Len()), true
	case *os.File:
		if fi, err := v.Stat(); err == nil {
			return fi.Size(), true
		}
	}
	if st.s == nil {
		return 0, false
	}
	cur, err := st.s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false
	}
	end, err := st.s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false
	}
	if _, err := st.s.Seek(cur, io.SeekStart); err != nil {
		return 0, false
	}
	return end, true
}

// Contents reads the rest of the stream.
func (st *Stream) Contents() (string, error) {
	if !st.IsReadable() {
		return "", ErrStreamNotReadable
	}
	b, err := io.ReadAll(st)
	st.eof = true
	return string(b), err
}

// Bytes rewinds when possible and reads everything.
func (st *Stream) Bytes() ([]byte, error) {
	if st.IsSeekable() {
		if err := st.Rewind(); err != nil {
			return nil, err
		}
	}
	if !st.IsReadable() {
		return nil, ErrStreamNotReadable
	}
	b, err := io.ReadAll(st)
	st.eof = true
	return b, err
}

// String returns the whole content, or "" when it cannot be read.
func (st *Stream) String() string {
	b, err := st.Bytes()
	if err != nil {
		return ""
	}
	return string(b)
}

// Close closes the resource if it is an io.Closer and detaches it.
func (st *Stream) Close() error {
	if st == nil || st.closed {
		return nil
	}
	res := st.Detach()
	if c, ok := res.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Detach returns the resource and leaves the stream unusable.
func (st *Stream) Detach() any {
	if st == nil || st.closed {
		return nil
	}
	res := st.res
	st.res, st.r, st.w, st.s = nil, nil, nil, nil
	st.closed = true
	return res
}

// tempBuffer is a pooled in-memory io.ReadWriteSeeker.
type tempBuffer struct {
	buf *bytebufferpool.ByteBuffer
	off int64
}

func (t *tempBuffer) Read(p []byte) (int, error) {
	if t.buf == nil {
		return 0, os.ErrClosed
	}
	if t.off >= int64(len(t.buf.B)) {
		return 0, io.EOF
	}
	n := copy(p, t.buf.B[t.off:])
	t.off += int64(n)
	return n, nil
}

func (t *tempBuffer) Write(p []byte) (int, error) {
	if t.buf == nil {
		return 0, os.ErrClosed
	}
	b := t.buf.B
	if gap := int(t.off) - len(b); gap > 0 {
		b = append(b, make([]byte, gap)...)
	}
	n := copy(b[t.off:], p)
	b = append(b, p[n:]...)
	t.buf.B = b
	t.off += int64(len(p))
	return len(p), nil
}

func (t *tempBuffer) Seek(offset int64, whence int) (int64, error) {
	if t.buf == nil {
		return 0, os.ErrClosed
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = t.off + offset
	case io.SeekEnd:
		abs = int64(len(t.buf.B)) + offset
	default:
		return 0, errors.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.Errorf("negative position %d", abs)
	}
	t.off = abs
	return abs, nil
}

func (t *tempBuffer) Len() int {
	if t.buf == nil {
		return 0
	}
	return len(t.buf.B)
}

func (t *tempBuffer) Close() error {
	if t.buf != nil {
		bytebufferpool.Put(t.buf)
		t.buf = nil
	}
	return nil
}
