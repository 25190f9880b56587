// Package patch implements the forward/backward diff representation used for
// the audit and replay trail: RFC 6902-style add/remove/replace operations
// with JSON Pointer paths over the situation tree.
package patch

import (
	"strings"

	json "github.com/goccy/go-json"
)

const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// Op is a single patch operation. Value is kept as raw JSON so ops can be
// built once and written straight into the response.
type Op struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Builder accumulates ops for one logical change.
type Builder struct {
	ops []Op
}

func NewBuilder(capacity int) *Builder {
	return &Builder{ops: make([]Op, 0, capacity)}
}

func (b *Builder) Add(path string, value interface{}) *Builder {
	b.ops = append(b.ops, Op{Op: OpAdd, Path: path, Value: marshalValue(value)})
	return b
}

func (b *Builder) Remove(path string) *Builder {
	b.ops = append(b.ops, Op{Op: OpRemove, Path: path})
	return b
}

func (b *Builder) Replace(path string, value interface{}) *Builder {
	b.ops = append(b.ops, Op{Op: OpReplace, Path: path, Value: marshalValue(value)})
	return b
}

func (b *Builder) Build() []Op {
	return b.ops
}

func marshalValue(v interface{}) json.RawMessage {
	bytes, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return bytes
}

// EscapeKey escapes a JSON Pointer token per RFC 6901.
func EscapeKey(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}

func unescapeKey(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	s = strings.ReplaceAll(s, "~0", "~")
	return s
}
