package httpx

import "github.com/pkg/errors"

var (
	ErrInvalidURI        = errors.New("httpx: invalid uri")
	ErrInvalidPort       = errors.New("httpx: invalid port")
	ErrInvalidResource   = errors.New("httpx: invalid resource")
	ErrStreamNotSeekable = errors.New("httpx: stream is not seekable")
	ErrStreamNotWritable = errors.New("httpx: stream is not writable")
	ErrStreamNotReadable = errors.New("httpx: stream is not readable")
	ErrStreamIO          = errors.New("httpx: stream i/o")
	ErrUploadMoveFailed  = errors.New("httpx: can't move the file")
	ErrInvalidUpload     = errors.New("httpx: invalid upload structure")

	ErrBadRequest     = errors.New("httpx: bad request")
	ErrHeaderTooLarge = errors.New("httpx: header too large")
	ErrBodyTooLarge   = errors.New("httpx: body too large")
)
