package httpx

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"dqx0.com/go/httpmsg/internal/obs"
)

// UploadRegistry is an UploadHost backed by a directory of temporary
// files. Only files created through Create are recognized as uploads.
// It is safe for concurrent use.
type UploadRegistry struct {
	dir     string
	maxSize int64
	log     obs.Logger
	meter   obs.Meter

	mu    sync.Mutex
	files map[string]int64
}

// RegistryOption configures an UploadRegistry.
type RegistryOption func(*UploadRegistry)

func RegistryLogger(l obs.Logger) RegistryOption {
	return func(r *UploadRegistry) { r.log = l }
}

func RegistryMeter(m obs.Meter) RegistryOption {
	return func(r *UploadRegistry) { r.meter = m }
}

// RegistryMaxFileSize limits the size of one file; 0 means no limit.
func RegistryMaxFileSize(n int64) RegistryOption {
	return func(r *UploadRegistry) { r.maxSize = n }
}

// NewUploadRegistry creates dir if needed. An empty dir means the system
// temporary directory.
func NewUploadRegistry(dir string, opts ...RegistryOption) (*UploadRegistry, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "upload dir %s", dir)
	}
	r := &UploadRegistry{
		dir:   dir,
		log:   obs.NopLogger{},
		meter: obs.NopMeter{},
		files: make(map[string]int64),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

func (r *UploadRegistry) Dir() string { return r.dir }

// Create stores src in a new temporary file and registers it. The
// returned code is UploadErrOK, or the reason the file is unusable; a
// non-OK file is not registered.
func (r *UploadRegistry) Create(src io.Reader) (tmpName string, size int64, code UploadError) {
	f, err := os.CreateTemp(r.dir, "upload-"+genID()+"-*")
	if err != nil {
		r.log.Logf(obs.Error, "upload: create temp file in %s: %v", r.dir, err)
		return "", 0, UploadErrNoTmpDir
	}
	name := f.Name()
	if r.maxSize > 0 {
		src = io.LimitReader(src, r.maxSize+1)
	}
	size, err = io.Copy(f, src)
	cerr := f.Close()
	switch {
	case err != nil:
		code = UploadErrPartial
	case cerr != nil:
		code = UploadErrCantWrite
	case r.maxSize > 0 && size > r.maxSize:
		code = UploadErrIniSize
	}
	if code != UploadErrOK {
		_ = os.Remove(name)
		r.log.Logf(obs.Warn, "upload: rejected temp file after %s: %s", humanize.Bytes(uint64(size)), code)
		return "", size, code
	}
	r.mu.Lock()
	r.files[name] = size
	r.mu.Unlock()
	r.log.Logf(obs.Debug, "upload: stored %s (%s)", name, humanize.Bytes(uint64(size)))
	return name, size, UploadErrOK
}

func (r *UploadRegistry) IsUploadedFile(tmpName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.files[tmpName]
	return ok
}

// MoveUploadedFile moves a registered file to target, copying across
// devices when a rename is not possible.
func (r *UploadRegistry) MoveUploadedFile(tmpName, target string) error {
	r.mu.Lock()
	size, ok := r.files[tmpName]
	if ok {
		delete(r.files, tmpName)
	}
	r.mu.Unlock()
	if !ok {
		r.meter.Counter("httpmsg_upload_move_failures_total", 1)
		return errors.Errorf("%s is not a registered upload", tmpName)
	}
	if err := moveFile(tmpName, target); err != nil {
		r.mu.Lock()
		r.files[tmpName] = size
		r.mu.Unlock()
		r.meter.Counter("httpmsg_upload_move_failures_total", 1)
		r.log.Logf(obs.Warn, "upload: move %s to %s: %v", tmpName, target, err)
		return err
	}
	r.meter.Counter("httpmsg_uploads_moved_total", 1)
	r.meter.Histogram("httpmsg_upload_size_bytes", float64(size))
	r.log.Logf(obs.Info, "upload: moved %s to %s", humanize.Bytes(uint64(size)), target)
	return nil
}

func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.WithStack(err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return errors.WithStack(err)
	}
	if err := out.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Remove(src))
}

// Len returns the number of files not yet moved.
func (r *UploadRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// Cleanup removes every file that was not moved.
func (r *UploadRegistry) Cleanup() error {
	r.mu.Lock()
	names := make([]string, 0, len(r.files))
	for n := range r.files {
		names = append(names, n)
	}
	r.files = make(map[string]int64)
	r.mu.Unlock()

	var err error
	for _, n := range names {
		if rerr := os.Remove(n); rerr != nil && !os.IsNotExist(rerr) {
			err = multierr.Append(err, rerr)
		}
	}
	if len(names) > 0 {
		r.log.Logf(obs.Debug, "upload: cleaned up %d unmoved file(s)", len(names))
	}
	return err
}
