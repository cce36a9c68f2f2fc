package form

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"

	"github.com/iliamunaev/formgate/internal/apperr"
	"github.com/iliamunaev/formgate/internal/jsonreq"
)

func validPayload() Payload {
	return Payload{
		"formId":   json.Number("2"),
		"formName": "Contact",
		"type":     "contact",
		"typeId":   json.Number("1"),
		"checksum": "abc",
	}
}

func newTestValidator(forms map[int]string) *RequestValidator {
	return NewRequestValidator([]string{"/contact.json"}, NewRegistry(forms), nil)
}

func newReq(method, path, body string) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(body),
		Locale: "en",
	}
}

func TestValidateRequiredMissingEachField(t *testing.T) {
	t.Parallel()

	v := NewMetadataValidator()
	for _, field := range RequiredFields {
		field := field
		t.Run("absent_"+field, func(t *testing.T) {
			t.Parallel()

			p := validPayload()
			delete(p, field)
			assertMissing(t, v.ValidateRequired(p), field)
		})
		t.Run("empty_"+field, func(t *testing.T) {
			t.Parallel()

			p := validPayload()
			p[field] = ""
			assertMissing(t, v.ValidateRequired(p), field)
		})
		t.Run("null_"+field, func(t *testing.T) {
			t.Parallel()

			p := validPayload()
			p[field] = nil
			assertMissing(t, v.ValidateRequired(p), field)
		})
	}
}

func TestValidateRequiredReportsFirstInOrder(t *testing.T) {
	t.Parallel()

	p := validPayload()
	delete(p, "checksum")
	delete(p, "type")
	delete(p, "formName")

	assertMissing(t, NewMetadataValidator().ValidateRequired(p), "formName")
}

func TestValidateRequiredAcceptsNonStringScalars(t *testing.T) {
	t.Parallel()

	p := validPayload()
	p["typeId"] = false
	p["formId"] = json.Number("0")

	if err := NewMetadataValidator().ValidateRequired(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequiredCustomFields(t *testing.T) {
	t.Parallel()

	v := NewMetadataValidator("token")
	assertMissing(t, v.ValidateRequired(validPayload()), "token")
}

func assertMissing(t *testing.T, err error, field string) {
	t.Helper()

	var missing *apperr.MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if missing.Field != field {
		t.Fatalf("expected missing field %q, got %q", field, missing.Field)
	}
}

func TestIsFormAPIRoute(t *testing.T) {
	t.Parallel()

	v := newTestValidator(nil)

	tests := []struct {
		name   string
		method string
		path   string
		want   bool
	}{
		{name: "post_exact", method: http.MethodPost, path: "/contact.json", want: true},
		{name: "post_prefix", method: http.MethodPost, path: "/contact.json/extra", want: true},
		{name: "post_other", method: http.MethodPost, path: "/about", want: false},
		{name: "get_route", method: http.MethodGet, path: "/contact.json", want: false},
		{name: "lowercase_post", method: "post", path: "/contact.json", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := v.IsFormAPIRoute(newReq(tt.method, tt.path, "")); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestContainsRegisteredFormID(t *testing.T) {
	t.Parallel()

	v := newTestValidator(map[int]string{2: "contact_form"})

	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "registered_int", body: `{"dynamic_form_1":{"formId":2}}`, want: true},
		{name: "registered_string", body: `{"dynamic_form_1":{"formId":"2"}}`, want: true},
		{name: "registered_float", body: `{"dynamic_form_1":{"formId":2.9}}`, want: true},
		{name: "second_key", body: `{"other":1,"dynamic_form_7":{"formId":2}}`, want: true},
		{name: "unregistered", body: `{"dynamic_form_1":{"formId":999}}`, want: false},
		{name: "wrong_prefix", body: `{"form_1":{"formId":2}}`, want: false},
		{name: "payload_not_object", body: `{"dynamic_form_1":[2]}`, want: false},
		{name: "missing_form_id", body: `{"dynamic_form_1":{"type":"contact"}}`, want: false},
		{name: "non_numeric", body: `{"dynamic_form_1":{"formId":"abc"}}`, want: false},
		{name: "malformed", body: `{"dynamic_form_1":`, want: false},
		{name: "empty", body: ``, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := v.ContainsRegisteredFormID(newReq(http.MethodPost, "/", tt.body)); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIsSpecialFormRequestIsRouteOrRegistered(t *testing.T) {
	t.Parallel()

	bodies := []string{
		``,
		`{"dynamic_form_1":{"formId":2}}`,
		`{"dynamic_form_1":{"formId":5}}`,
		`not json`,
	}
	paths := []string{"/contact.json", "/page"}
	methods := []string{http.MethodPost, http.MethodGet}

	narrow := newTestValidator(map[int]string{2: "contact_form"})
	wide := newTestValidator(map[int]string{2: "contact_form", 5: "newsletter"})

	for _, body := range bodies {
		for _, path := range paths {
			for _, method := range methods {
				req := newReq(method, path, body)

				want := narrow.IsFormAPIRoute(req) || narrow.ContainsRegisteredFormID(req)
				if got := narrow.IsSpecialFormRequest(req); got != want {
					t.Errorf("%s %s %q: expected %v, got %v", method, path, body, want, got)
				}
				// Registering more forms never shrinks the special set.
				if narrow.IsSpecialFormRequest(req) && !wide.IsSpecialFormRequest(req) {
					t.Errorf("%s %s %q: special under narrow registry but not under wide", method, path, body)
				}
			}
		}
	}

	req := newReq(http.MethodGet, "/page", `{"dynamic_form_1":{"formId":5}}`)
	if narrow.IsSpecialFormRequest(req) || !wide.IsSpecialFormRequest(req) {
		t.Fatal("expected registering formId 5 to classify the body as special")
	}
}

func TestRegistryLookups(t *testing.T) {
	t.Parallel()

	v := newTestValidator(map[int]string{2: "contact_form"})

	if !v.IsRegisteredForm(2) || v.IsRegisteredForm(3) {
		t.Fatal("unexpected registry membership")
	}
	if name, ok := v.FormType(2); !ok || name != "contact_form" {
		t.Fatalf("expected contact_form, got %q (ok=%v)", name, ok)
	}
	if _, ok := v.FormType(3); ok {
		t.Fatal("expected no form type for 3")
	}

	id, unknown := 2, 3
	reg := v.Registry()
	if got := reg.Label(&id); got != "contact_form" {
		t.Fatalf("expected contact_form, got %q", got)
	}
	if got := reg.Label(&unknown); got != UndefinedFormType {
		t.Fatalf("expected %q, got %q", UndefinedFormType, got)
	}
	if got := reg.Label(nil); got != UndefinedFormType {
		t.Fatalf("expected %q, got %q", UndefinedFormType, got)
	}
}

func TestValidateFormDataStructure(t *testing.T) {
	t.Parallel()

	v := newTestValidator(nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty_object", body: `{}`},
		{name: "malformed", body: `{`},
		{name: "wrong_prefix_first", body: `{"other":{},"dynamic_form_1":{}}`},
		{name: "null_payload", body: `{"dynamic_form_1":null}`},
		{name: "scalar_payload", body: `{"dynamic_form_1":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := v.ValidateFormData(jsonreq.Decode([]byte(tt.body)))
			if !errors.Is(err, apperr.ErrInvalidStructure) {
				t.Fatalf("expected ErrInvalidStructure, got %v", err)
			}
			if err.Error() != "Invalid form data structure." {
				t.Fatalf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestValidateFormDataDelegatesMetadata(t *testing.T) {
	t.Parallel()

	v := newTestValidator(nil)
	body := `{"dynamic_form_1":{"formId":2,"formName":"Contact","type":"contact","typeId":1}}`

	_, _, err := v.ValidateFormData(jsonreq.Decode([]byte(body)))
	if err == nil || err.Error() != "Missing or empty required form builder field: checksum" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateFormDataReturnsKeyAndPayload(t *testing.T) {
	t.Parallel()

	v := newTestValidator(nil)
	body := `{"dynamic_form_3":{"formId":2,"formName":"Contact","type":"contact","typeId":1,"checksum":"abc"},"x":1}`

	key, payload, err := v.ValidateFormData(jsonreq.Decode([]byte(body)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "dynamic_form_3" {
		t.Fatalf("expected dynamic_form_3, got %q", key)
	}
	if payload["checksum"] != "abc" {
		t.Fatalf("expected checksum abc, got %v", payload["checksum"])
	}
}

func TestPrepareNormalizesPayload(t *testing.T) {
	t.Parallel()

	p := NewPreparator(newTestValidator(nil))
	body := `{"dynamic_form_1":{"formId":2,"formName":"Contact","type":"contact","typeId":1.5,"checksum":true,"email":"a@b.c"}}`

	req := newReq(http.MethodPost, "/contact.json", body)
	req.Locale = "de"

	out, err := p.Prepare(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == req {
		t.Fatal("expected a copy of the request")
	}
	if req.Params != nil {
		t.Fatal("expected the original request to stay untouched")
	}

	want := Payload{
		"formId":   "2",
		"formName": "Contact",
		"type":     "contact",
		"typeId":   "1.5",
		"checksum": "true",
		"email":    "a@b.c",
		"locale":   "de",
	}
	if diff := cmp.Diff(want, out.Params["dynamic_form_1"]); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPrepareKeepsPayloadLocale(t *testing.T) {
	t.Parallel()

	p := NewPreparator(newTestValidator(nil))
	body := `{"dynamic_form_1":{"formId":2,"formName":"Contact","type":"contact","typeId":1,"checksum":"abc","locale":"fr"}}`

	out, err := p.Prepare(newReq(http.MethodPost, "/contact.json", body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Params["dynamic_form_1"]["locale"]; got != "fr" {
		t.Fatalf("expected locale fr, got %v", got)
	}
}

func TestPrepareIsIdempotent(t *testing.T) {
	t.Parallel()

	p := NewPreparator(newTestValidator(nil))
	body := `{"dynamic_form_1":{"formId":2,"formName":"Contact","type":"contact","typeId":1,"checksum":"abc"}}`

	once, err := p.Prepare(newReq(http.MethodPost, "/contact.json", body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := p.Prepare(once)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(once.Params, twice.Params); diff != "" {
		t.Fatalf("params changed on second run (-once +twice):\n%s", diff)
	}

	normalized := once.Params["dynamic_form_1"]
	if diff := cmp.Diff(normalized, Normalize(normalized, "xx")); diff != "" {
		t.Fatalf("normalize not stable (-want +got):\n%s", diff)
	}
}

func TestPreparePropagatesValidationErrors(t *testing.T) {
	t.Parallel()

	p := NewPreparator(newTestValidator(nil))

	_, err := p.Prepare(newReq(http.MethodPost, "/contact.json", `{"foo":{}}`))
	if !errors.Is(err, apperr.ErrInvalidStructure) {
		t.Fatalf("expected ErrInvalidStructure, got %v", err)
	}

	_, err = p.Prepare(newReq(http.MethodPost, "/contact.json", `{"dynamic_form_1":{"formId":2}}`))
	assertMissing(t, err, "formName")
}

func TestIntValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     any
		want   int
		wantOK bool
	}{
		{in: json.Number("2"), want: 2, wantOK: true},
		{in: json.Number("2.7"), want: 2, wantOK: true},
		{in: " 7 ", want: 7, wantOK: true},
		{in: "abc", wantOK: false},
		{in: "", wantOK: false},
		{in: true, want: 1, wantOK: true},
		{in: nil, wantOK: false},
		{in: map[string]any{}, wantOK: false},
	}

	for _, tt := range tests {
		got, ok := IntValue(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("IntValue(%#v): expected (%d, %v), got (%d, %v)", tt.in, tt.want, tt.wantOK, got, ok)
		}
	}
}

func TestCollectErrors(t *testing.T) {
	t.Parallel()

	got := CollectErrors([]FieldError{
		{Origin: "email", Message: "Invalid email"},
		{Message: "Invalid form token."},
	})
	want := FieldErrors{"email": "Invalid email", GlobalErrorKey: "Invalid form token."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestEntitySuccessText(t *testing.T) {
	t.Parallel()

	e := &Entity{
		ID: 2,
		Translations: map[string]Translation{
			"de": {SuccessText: "Danke!"},
			"en": {},
		},
	}

	tests := []struct {
		locale string
		want   string
	}{
		{locale: "de", want: "Danke!"},
		{locale: "de-AT", want: "Danke!"},
		{locale: "en", want: DefaultSuccessText},
		{locale: "fr", want: DefaultSuccessText},
	}
	for _, tt := range tests {
		if got := e.SuccessText(tt.locale); got != tt.want {
			t.Errorf("SuccessText(%q): expected %q, got %q", tt.locale, tt.want, got)
		}
	}

	var nilEntity *Entity
	if got := nilEntity.SuccessText("en"); got != DefaultSuccessText {
		t.Fatalf("expected default text, got %q", got)
	}
}

func TestNewRequestRestoresBody(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/contact.json?x=1", strings.NewReader(`{"a":1}`))
	r.Header.Set("Content-Type", "application/json")

	req, err := NewRequest(r, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Path != "/contact.json" || req.ContentType() != "application/json" {
		t.Fatalf("unexpected request view: %+v", req)
	}
	if string(req.Body) != `{"a":1}` {
		t.Fatalf("unexpected body %q", req.Body)
	}

	rest := new(strings.Builder)
	if _, err := rest.ReadFrom(r.Body); err != nil {
		t.Fatalf("read restored body: %v", err)
	}
	if rest.String() != `{"a":1}` {
		t.Fatalf("expected body to be readable again, got %q", rest.String())
	}
}

func TestNewRequestKeepsReadError(t *testing.T) {
	t.Parallel()

	readErr := errors.New("connection reset")
	r := httptest.NewRequest(http.MethodPost, "/contact.json", iotest.ErrReader(readErr))
	r.Header.Set("Content-Type", "text/plain")

	req, err := NewRequest(r, "en")
	if !errors.Is(err, readErr) {
		t.Fatalf("expected read error, got %v", err)
	}
	if req == nil || !errors.Is(req.ReadErr, readErr) {
		t.Fatalf("expected the view to carry the read error, got %+v", req)
	}
	if req.ContentType() != "text/plain" || len(req.Body) != 0 {
		t.Fatalf("unexpected request view: %+v", req)
	}
}
