// Package jsonreq decodes JSON request bodies into order-preserving objects.
// Decoding never fails: anything that is not a single JSON object decodes
// to an empty Object, which callers treat as "no usable payload".
package jsonreq

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const contentType = "application/json"

// Object is a decoded top-level JSON object that remembers key order.
// Nested values are plain map[string]any / []any with json.Number leaves.
type Object struct {
	keys   []string
	values map[string]any
}

// Keys returns the top-level keys in the order they appeared.
func (o Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o Object) Len() int { return len(o.keys) }

// First returns the first key and its value.
func (o Object) First() (string, any, bool) {
	if len(o.keys) == 0 {
		return "", nil, false
	}
	k := o.keys[0]
	return k, o.values[k], true
}

// NewObject builds an Object from ordered key/value pairs.
// It panics if kv has an odd length or a key is not a string.
func NewObject(kv ...any) Object {
	if len(kv)%2 != 0 {
		panic("jsonreq.NewObject: odd number of arguments")
	}
	o := Object{values: make(map[string]any, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		o.set(kv[i].(string), kv[i+1])
	}
	return o
}

func (o *Object) set(key string, v any) {
	if _, seen := o.values[key]; !seen {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Decode parses body as a single JSON object.
func Decode(body []byte) Object {
	obj, err := decodeObject(body)
	if err != nil {
		return Object{}
	}
	return obj
}

func decodeObject(body []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Object{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Object{}, errNotObject
	}

	obj := Object{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Object{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Object{}, errNotObject
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return Object{}, err
		}
		obj.set(key, v)
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return Object{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Object{}, errTrailingData
	}
	return obj, nil
}

var (
	errNotObject    = errors.New("jsonreq: top level is not an object")
	errTrailingData = errors.New("jsonreq: trailing data after object")
)

// IsJSON reports whether a Content-Type header value declares JSON.
func IsJSON(header string) bool {
	return strings.HasPrefix(header, contentType)
}
