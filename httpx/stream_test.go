package httpx

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempStreamReadWriteSeek(t *testing.T) {
	st := NewTempStream()
	defer st.Close()
	assert.True(t, st.IsReadable())
	assert.True(t, st.IsWritable())
	assert.True(t, st.IsSeekable())

	n, err := st.WriteString("hello world")
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	pos, err := st.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 11, pos)

	_, err = st.Seek(6, io.SeekStart)
	require.NoError(t, err)
	rest, err := st.Contents()
	require.NoError(t, err)
	assert.Equal(t, "world", rest)
	assert.True(t, st.EOF())

	require.NoError(t, st.Rewind())
	assert.False(t, st.EOF())
	_, err = st.WriteString("HELLO")
	require.NoError(t, err)
	assert.Equal(t, "HELLO world", st.String())

	size, ok := st.Size()
	assert.True(t, ok)
	assert.EqualValues(t, 11, size)
}

func TestStreamCapabilities(t *testing.T) {
	ro := NewReadOnlyStream(strings.NewReader("abc"))
	assert.True(t, ro.IsReadable())
	assert.False(t, ro.IsWritable())
	assert.True(t, ro.IsSeekable())
	_, err := ro.Write([]byte("x"))
	assert.True(t, errors.Is(err, ErrStreamNotWritable))

	plain := NewReadOnlyStream(io.LimitReader(strings.NewReader("abc"), 2))
	assert.False(t, plain.IsSeekable())
	_, err = plain.Seek(0, io.SeekStart)
	assert.True(t, errors.Is(err, ErrStreamNotSeekable))
	b, err := plain.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "ab", string(b))
	pos, err := plain.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 2, pos)
	_, ok := plain.Size()
	assert.False(t, ok)

	w, err := NewStream(io.Discard)
	require.NoError(t, err)
	_, err = w.Read(make([]byte, 1))
	assert.True(t, errors.Is(err, ErrStreamNotReadable))
}

func TestNewStreamRejectsNonResource(t *testing.T) {
	for _, res := range []any{nil, 42, "string"} {
		_, err := NewStream(res)
		assert.True(t, errors.Is(err, ErrInvalidResource), "%T", res)
	}
}

func TestStreamCloseAndDetach(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body")
	f, err := os.Create(path)
	require.NoError(t, err)
	st, err := NewStream(f)
	require.NoError(t, err)
	_, err = st.WriteString("data")
	require.NoError(t, err)
	size, ok := st.Size()
	assert.True(t, ok)
	assert.EqualValues(t, 4, size)

	require.NoError(t, st.Close())
	assert.False(t, st.IsReadable())
	assert.Nil(t, st.Detach())
	_, err = st.Tell()
	assert.True(t, errors.Is(err, ErrStreamIO))
	// the file was closed with the stream
	assert.Error(t, f.Close())

	st2 := NewStreamString("x")
	res := st2.Detach()
	assert.NotNil(t, res)
	assert.False(t, st2.IsWritable())
	assert.Equal(t, "", st2.String())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestStreamWrapsIOErrors(t *testing.T) {
	st := NewReadOnlyStream(failingReader{})
	_, err := st.Read(make([]byte, 4))
	assert.True(t, errors.Is(err, ErrStreamIO))
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestSharedBodyAcrossMessages(t *testing.T) {
	m1 := NewMessage()
	m2 := m1.WithHeader("A", "1")
	_, err := m1.Body().WriteString("shared")
	require.NoError(t, err)
	assert.Equal(t, "shared", m2.Body().String())
}
