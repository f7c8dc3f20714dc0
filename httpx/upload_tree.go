package httpx

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RawFiles is the upload description a multipart decoder produces, keyed
// by form field. Each value is one of
//
//	single:    {"name": "a.txt", "type": ..., "tmp_name": ..., "error": 0, "size": 3}
//	multiple:  {"name": ["a", "b"], "type": [...], "tmp_name": [...], "error": [...], "size": [...]}
//	namespace: {"sub": <single | multiple | namespace>, ...}
//
// Scalars may be any JSON-compatible type; sequences may be []any or
// typed slices.
type RawFiles map[string]any

// RawFile is one decoded file part.
type RawFile struct {
	Name    string
	Type    string
	TmpName string
	Error   UploadError
	Size    int64
}

var uploadFields = [...]string{"name", "type", "tmp_name", "error", "size"}

func (f RawFile) field(k string) any {
	switch k {
	case "name":
		return f.Name
	case "type":
		return f.Type
	case "tmp_name":
		return f.TmpName
	case "error":
		return int(f.Error)
	default:
		return f.Size
	}
}

// Add records f under a form field name: "doc" is a single file,
// "doc[]" appends to a multiple, "a[b]" and "a[b][]" nest under
// namespace "a".
func (r RawFiles) Add(field string, f RawFile) {
	path := splitFieldName(field)
	multi := len(path) > 1 && path[len(path)-1] == ""
	if multi {
		path = path[:len(path)-1]
	}
	node := map[string]any(r)
	for _, k := range path[:len(path)-1] {
		next, ok := node[k].(map[string]any)
		if !ok || isFileShape(next) {
			next = map[string]any{}
			node[k] = next
		}
		node = next
	}
	leaf := path[len(path)-1]
	if !multi {
		d := make(map[string]any, len(uploadFields))
		for _, k := range uploadFields {
			d[k] = f.field(k)
		}
		node[leaf] = d
		return
	}
	d, ok := node[leaf].(map[string]any)
	if !ok || !isMultipleShape(d) {
		d = make(map[string]any, len(uploadFields))
		for _, k := range uploadFields {
			d[k] = []any{}
		}
		node[leaf] = d
	}
	for _, k := range uploadFields {
		d[k] = append(d[k].([]any), f.field(k))
	}
}

func isFileShape(m map[string]any) bool {
	_, ok := m["name"]
	return ok && !isComposite(m["name"])
}

func isMultipleShape(m map[string]any) bool {
	for _, k := range uploadFields {
		if _, ok := m[k].([]any); !ok {
			return false
		}
	}
	return true
}

// UploadKind tags an UploadNode.
type UploadKind int

const (
	UploadSingle UploadKind = iota
	UploadMultiple
	UploadNamespace
)

// UploadNode is one node of an upload tree: a single file, an ordered
// list of files from one field, or a namespace of further nodes.
type UploadNode struct {
	Kind     UploadKind
	File     *UploadedFile
	Files    []*UploadedFile
	Children UploadTree
}

// UploadTree maps form field names to upload nodes.
type UploadTree map[string]*UploadNode

// ParseUploadedFiles turns raw into a tree of the same shape whose leaves
// are UploadedFiles bound to host. A field whose "name" entry is a scalar
// is a single file, one whose "name" is a sequence is a multiple, and
// anything else is a namespace parsed recursively. Missing or mistyped
// entries fail with ErrInvalidUpload.
func ParseUploadedFiles(raw RawFiles, host UploadHost) (UploadTree, error) {
	return parseUploadMap(raw, host, nil)
}

func parseUploadMap(m map[string]any, host UploadHost, path []string) (UploadTree, error) {
	tree := make(UploadTree, len(m))
	for _, k := range sortedKeys(m) {
		sub := append(path[:len(path):len(path)], k)
		v, ok := asMap(m[k])
		if !ok {
			return nil, errors.Wrapf(ErrInvalidUpload, "%s: expected a mapping, got %T", strings.Join(sub, "."), m[k])
		}
		n, err := parseUploadNode(v, host, sub)
		if err != nil {
			return nil, err
		}
		tree[k] = n
	}
	return tree, nil
}

func parseUploadNode(m map[string]any, host UploadHost, path []string) (*UploadNode, error) {
	name, hasName := m["name"]
	switch {
	case len(m) == 0 || hasName && !isComposite(name):
		f, err := singleUpload(m, host, path)
		if err != nil {
			return nil, err
		}
		return &UploadNode{Kind: UploadSingle, File: f}, nil
	case hasName:
		if names, ok := asList(name); ok {
			files, err := multipleUpload(m, len(names), host, path)
			if err != nil {
				return nil, err
			}
			return &UploadNode{Kind: UploadMultiple, Files: files}, nil
		}
	}
	children, err := parseUploadMap(m, host, path)
	if err != nil {
		return nil, err
	}
	return &UploadNode{Kind: UploadNamespace, Children: children}, nil
}

func singleUpload(m map[string]any, host UploadHost, path []string) (*UploadedFile, error) {
	var vals [len(uploadFields)]any
	for i, k := range uploadFields {
		v, ok := m[k]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidUpload, "%s: missing %q", strings.Join(path, "."), k)
		}
		vals[i] = v
	}
	return newUploadFromFields(vals, host, path)
}

func multipleUpload(m map[string]any, n int, host UploadHost, path []string) ([]*UploadedFile, error) {
	var lists [len(uploadFields)][]any
	for i, k := range uploadFields {
		l, ok := asList(m[k])
		if !ok {
			return nil, errors.Wrapf(ErrInvalidUpload, "%s: %q is not a sequence", strings.Join(path, "."), k)
		}
		lists[i] = l
	}
	files := make([]*UploadedFile, 0, n)
	for i := 0; i < n; i++ {
		var vals [len(uploadFields)]any
		for j, k := range uploadFields {
			if i >= len(lists[j]) {
				return nil, errors.Wrapf(ErrInvalidUpload, "%s: %q has no index %d", strings.Join(path, "."), k, i)
			}
			vals[j] = lists[j][i]
		}
		f, err := newUploadFromFields(vals, host, append(path[:len(path):len(path)], strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func newUploadFromFields(v [len(uploadFields)]any, host UploadHost, path []string) (*UploadedFile, error) {
	var strs [3]string
	for i := 0; i < 3; i++ {
		s, ok := v[i].(string)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidUpload, "%s: %q must be a string, got %T", strings.Join(path, "."), uploadFields[i], v[i])
		}
		strs[i] = s
	}
	code, ok := asInt(v[3])
	if !ok {
		return nil, errors.Wrapf(ErrInvalidUpload, "%s: bad error code %v", strings.Join(path, "."), v[3])
	}
	size, ok := asInt(v[4])
	if !ok {
		return nil, errors.Wrapf(ErrInvalidUpload, "%s: bad size %v", strings.Join(path, "."), v[4])
	}
	return NewUploadedFile(strs[0], strs[1], strs[2], UploadError(code), size, host), nil
}

func isComposite(v any) bool {
	if _, ok := asMap(v); ok {
		return true
	}
	_, ok := asList(v)
	return ok
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case RawFiles:
		return m, true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case UploadError:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// File returns the single file at path.
func (t UploadTree) File(path ...string) (*UploadedFile, bool) {
	n, ok := t.Node(path...)
	if !ok || n.Kind != UploadSingle {
		return nil, false
	}
	return n.File, true
}

// Files returns the files of the multiple at path.
func (t UploadTree) Files(path ...string) ([]*UploadedFile, bool) {
	n, ok := t.Node(path...)
	if !ok || n.Kind != UploadMultiple {
		return nil, false
	}
	return n.Files, true
}

func (t UploadTree) Node(path ...string) (*UploadNode, bool) {
	if len(path) == 0 {
		return nil, false
	}
	cur := t
	for i, k := range path {
		n, ok := cur[k]
		if !ok || n == nil {
			return nil, false
		}
		if i == len(path)-1 {
			return n, true
		}
		if n.Kind != UploadNamespace {
			return nil, false
		}
		cur = n.Children
	}
	return nil, false
}

// Walk calls fn for every file in the tree, in field name order, with the
// path leading to it. Files of a multiple get their index as last
// element.
func (t UploadTree) Walk(fn func(path []string, f *UploadedFile)) {
	t.walk(nil, fn)
}

func (t UploadTree) walk(prefix []string, fn func([]string, *UploadedFile)) {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := append(prefix[:len(prefix):len(prefix)], k)
		n := t[k]
		if n == nil {
			continue
		}
		switch n.Kind {
		case UploadSingle:
			fn(p, n.File)
		case UploadMultiple:
			for i, f := range n.Files {
				fn(append(p[:len(p):len(p)], strconv.Itoa(i)), f)
			}
		case UploadNamespace:
			n.Children.walk(p, fn)
		}
	}
}

func (n *UploadNode) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case UploadSingle:
		return json.Marshal(n.File)
	case UploadMultiple:
		return json.Marshal(n.Files)
	default:
		return json.Marshal(n.Children)
	}
}
