package httpx

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Environment is what a host hands over for one incoming request: the
// server variables (REQUEST_METHOD, REQUEST_URI, HTTP_HOST, HTTPS,
// HTTP_* ...), cookies, decoded POST fields, raw upload description and
// the body.
type Environment struct {
	Server  map[string]string
	// Method and URI, when set, take the place of the ones derived from
	// Server.
	Method  string
	URI     *URI
	Cookies map[string]string
	// Headers, when nil, are derived from the HTTP_* server variables.
	Headers *Header
	Post    *Params
	Files   RawFiles
	Body    *Stream
	// Uploads verifies and moves the files described in Files.
	Uploads UploadHost
}

// BodyLimits bound LoadBody.
type BodyLimits struct {
	// MaxMemory caps the bytes kept in memory for form values and
	// non-form bodies. 0 means 32 MiB.
	MaxMemory int64
}

const defaultMaxMemory = 32 << 20

// LoadBody fills Post, Files and Body from a raw request body the way a
// CGI-style host would: POST bodies of type application/x-www-form-urlencoded
// are decoded into Post and kept as Body, POST multipart/form-data
// bodies are decoded into Post and Files (file parts are stored through
// reg) and leave Body empty, anything else is buffered into Body.
func (env *Environment) LoadBody(method, contentType string, body io.Reader, reg *UploadRegistry, lim BodyLimits) error {
	max := lim.MaxMemory
	if max <= 0 {
		max = defaultMaxMemory
	}
	if env.Post == nil {
		env.Post = NewParams()
	}
	if env.Files == nil {
		env.Files = RawFiles{}
	}
	if body == nil {
		body = strings.NewReader("")
	}
	mt, params, _ := mime.ParseMediaType(contentType)
	if method == "POST" {
		switch mt {
		case "application/x-www-form-urlencoded":
			raw, err := readLimited(body, max)
			if err != nil {
				return err
			}
			env.Post = ParseParams(string(raw))
			env.Body = NewReadOnlyStream(bytes.NewReader(raw))
			return nil
		case "multipart/form-data":
			if params["boundary"] == "" {
				return errors.Wrap(ErrBadRequest, "multipart body without boundary")
			}
			if reg == nil {
				return errors.Wrap(ErrBadRequest, "multipart body without upload registry")
			}
			if env.Uploads == nil {
				env.Uploads = reg
			}
			env.Body = NewReadOnlyStream(strings.NewReader(""))
			return env.loadMultipart(multipart.NewReader(body, params["boundary"]), reg, max)
		}
	}
	raw, err := readLimited(body, max)
	if err != nil {
		return err
	}
	env.Body = NewReadOnlyStream(bytes.NewReader(raw))
	return nil
}

func (env *Environment) loadMultipart(mr *multipart.Reader, reg *UploadRegistry, max int64) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(ErrBadRequest, "multipart: %v", err)
		}
		name := part.FormName()
		if name == "" {
			_ = part.Close()
			continue
		}
		filename, isFile := partFilename(part)
		if !isFile {
			v, err := readLimited(part, max)
			if err != nil {
				return err
			}
			max -= int64(len(v))
			env.Post.Assign(name, string(v))
			continue
		}
		rf := RawFile{Name: filename, Type: part.Header.Get("Content-Type")}
		if filename == "" {
			rf.Error = UploadErrNoFile
			_, _ = io.Copy(io.Discard, part)
		} else {
			rf.TmpName, rf.Size, rf.Error = reg.Create(part)
		}
		env.Files.Add(name, rf)
		_ = part.Close()
	}
}

// partFilename tells a file part with an empty filename apart from a
// plain field.
func partFilename(p *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	if _, ok := params["filename"]; !ok {
		return "", false
	}
	return p.FileName(), true
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, errors.Wrapf(ErrBadRequest, "read body: %v", err)
	}
	if int64(len(b)) > max {
		return nil, errors.Wrapf(ErrBodyTooLarge, "over %d bytes", max)
	}
	return b, nil
}

// headersFromServer rebuilds header fields from HTTP_* variables plus
// CONTENT_TYPE and CONTENT_LENGTH.
func headersFromServer(server map[string]string) *Header {
	keys := make([]string, 0, len(server))
	for k := range server {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := &Header{}
	for _, k := range keys {
		var name string
		switch {
		case strings.HasPrefix(k, "HTTP_"):
			name = serverKeyToHeader(k[len("HTTP_"):])
		case k == "CONTENT_TYPE", k == "CONTENT_LENGTH":
			name = serverKeyToHeader(k)
		default:
			continue
		}
		if name != "" {
			h.Set(name, server[k])
		}
	}
	return h
}

func serverKeyToHeader(k string) string {
	parts := strings.Split(strings.ToLower(k), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "-")
}

// HeaderToServerKey maps a header name to its server variable,
// e.g. "X-Request-Id" to "HTTP_X_REQUEST_ID".
func HeaderToServerKey(name string) string {
	k := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if k == "CONTENT_TYPE" || k == "CONTENT_LENGTH" {
		return k
	}
	return "HTTP_" + k
}
