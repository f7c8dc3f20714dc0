package httpx

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// UploadError is the status a multipart decoder assigns to an uploaded
// file. The values are the conventional UPLOAD_ERR_* codes.
type UploadError int

const (
	UploadErrOK        UploadError = 0
	UploadErrIniSize   UploadError = 1
	UploadErrFormSize  UploadError = 2
	UploadErrPartial   UploadError = 3
	UploadErrNoFile    UploadError = 4
	UploadErrNoTmpDir  UploadError = 6
	UploadErrCantWrite UploadError = 7
	UploadErrExtension UploadError = 8
)

var uploadErrorText = map[UploadError]string{
	UploadErrOK:        "ok",
	UploadErrIniSize:   "file exceeds the maximum upload size",
	UploadErrFormSize:  "file exceeds the form size limit",
	UploadErrPartial:   "file was only partially uploaded",
	UploadErrNoFile:    "no file was uploaded",
	UploadErrNoTmpDir:  "missing a temporary folder",
	UploadErrCantWrite: "failed to write file to disk",
	UploadErrExtension: "upload stopped by extension",
}

func (e UploadError) String() string {
	if s, ok := uploadErrorText[e]; ok {
		return s
	}
	return "unknown upload error"
}

func (e UploadError) IsOK() bool { return e == UploadErrOK }

// UploadHost is the environment that received the upload. It vouches for
// temporary files it created and performs the final move.
type UploadHost interface {
	IsUploadedFile(tmpName string) bool
	MoveUploadedFile(tmpName, target string) error
}

// UploadedFile describes one file received in a multipart request.
// Everything but the moved flag is fixed at construction.
type UploadedFile struct {
	name      string
	mediaType string
	tmpName   string
	code      UploadError
	size      int64
	host      UploadHost

	mu    sync.Mutex
	moved bool
}

func NewUploadedFile(name, mediaType, tmpName string, code UploadError, size int64, host UploadHost) *UploadedFile {
	return &UploadedFile{
		name:      name,
		mediaType: mediaType,
		tmpName:   tmpName,
		code:      code,
		size:      size,
		host:      host,
	}
}

func (f *UploadedFile) ClientFilename() string  { return f.name }
func (f *UploadedFile) ClientMediaType() string { return f.mediaType }
func (f *UploadedFile) TempName() string        { return f.tmpName }
func (f *UploadedFile) ErrorCode() UploadError  { return f.code }
func (f *UploadedFile) Size() int64             { return f.size }

func (f *UploadedFile) Moved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moved
}

// Stream opens the temporary file for reading.
func (f *UploadedFile) Stream() (*Stream, error) {
	if f.Moved() {
		return nil, errors.Wrapf(ErrInvalidResource, "%s was moved", f.name)
	}
	fh, err := os.Open(f.tmpName)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidResource, "%v", err)
	}
	return NewReadOnlyStream(fh), nil
}

// MoveTo moves the file to target. It fails with ErrUploadMoveFailed
// when the upload carries an error code, when the host does not know the
// temporary file, when the move fails, and on every call after the first
// successful one. Storage is not touched unless the code is UploadErrOK.
func (f *UploadedFile) MoveTo(target string) error {
	if f.code != UploadErrOK {
		return errors.Wrapf(ErrUploadMoveFailed, "upload error %d: %s", int(f.code), f.code)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moved {
		return errors.Wrapf(ErrUploadMoveFailed, "%s already moved", f.name)
	}
	if f.host == nil || !f.host.IsUploadedFile(f.tmpName) {
		return errors.Wrapf(ErrUploadMoveFailed, "%s is not an uploaded file", f.tmpName)
	}
	if err := f.host.MoveUploadedFile(f.tmpName, target); err != nil {
		return errors.Wrapf(ErrUploadMoveFailed, "%v", err)
	}
	f.moved = true
	return nil
}

func (f *UploadedFile) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string `json:"name"`
		Type  string `json:"type"`
		Error int    `json:"error"`
		Size  int64  `json:"size"`
	}{f.name, f.mediaType, int(f.code), f.size})
}
