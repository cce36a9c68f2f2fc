// Package form holds the special-form data model, the request
// classification and validation rules, and the contracts of the form
// engine the pipeline delegates to.
package form

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

// KeyPrefix marks top-level envelope keys that carry a form payload.
const KeyPrefix = "dynamic_form_"

// GlobalErrorKey collects errors that are not bound to a field.
const GlobalErrorKey = "_global"

// Payload is the content of one form key in the envelope.
type Payload map[string]any

// FieldErrors maps a field name (or GlobalErrorKey) to its message.
type FieldErrors map[string]string

// Request is the immutable view of an inbound HTTP request the pipeline
// works on. Params is the parameter store the preparator writes to.
// ReadErr is set when the body could not be read; Body is then empty.
type Request struct {
	Method  string
	Path    string
	Header  http.Header
	Body    []byte
	Locale  string
	Params  map[string]Payload
	ReadErr error
}

// NewRequest reads r's body (restoring it for downstream handlers) and
// returns the pipeline view of r. The view is returned even when reading
// fails, with ReadErr set to the returned error.
func NewRequest(r *http.Request, locale string) (*Request, error) {
	req := &Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Locale: locale,
	}
	if r.Body == nil {
		return req, nil
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		req.ReadErr = err
		return req, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(b))
	req.Body = b
	return req, nil
}

func (r *Request) ContentType() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

func (r *Request) IsMethod(method string) bool {
	return strings.EqualFold(r.Method, method)
}

// WithParam returns a copy of r with payload stored under key.
func (r *Request) WithParam(key string, payload Payload) *Request {
	out := *r
	out.Params = make(map[string]Payload, len(r.Params)+1)
	for k, v := range r.Params {
		out.Params[k] = v
	}
	out.Params[key] = payload
	return &out
}

// FormParam returns the first prepared payload carrying KeyPrefix.
func (r *Request) FormParam() (string, Payload, bool) {
	for k, v := range r.Params {
		if strings.HasPrefix(k, KeyPrefix) {
			return k, v, true
		}
	}
	return "", nil, false
}
