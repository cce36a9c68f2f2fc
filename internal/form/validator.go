package form

import (
	"net/http"
	"strings"

	"github.com/iliamunaev/formgate/internal/apperr"
	"github.com/iliamunaev/formgate/internal/jsonreq"
)

// RequestValidator decides whether a request belongs to the special-form
// subsystem and validates the envelope it carries.
type RequestValidator struct {
	routes   []string
	registry *Registry
	metadata *MetadataValidator
}

// NewRequestValidator returns a validator for the given route prefixes.
// A nil metadata validator checks RequiredFields.
func NewRequestValidator(routes []string, registry *Registry, metadata *MetadataValidator) *RequestValidator {
	if registry == nil {
		registry = NewRegistry(nil)
	}
	if metadata == nil {
		metadata = NewMetadataValidator()
	}
	clean := make([]string, 0, len(routes))
	for _, route := range routes {
		if route = strings.TrimSpace(route); route != "" {
			clean = append(clean, route)
		}
	}
	return &RequestValidator{
		routes:   clean,
		registry: registry,
		metadata: metadata,
	}
}

func (v *RequestValidator) Registry() *Registry { return v.registry }

// IsFormAPIRoute reports whether req is a POST to one of the form routes.
func (v *RequestValidator) IsFormAPIRoute(req *Request) bool {
	if !req.IsMethod(http.MethodPost) {
		return false
	}
	for _, route := range v.routes {
		if strings.HasPrefix(req.Path, route) {
			return true
		}
	}
	return false
}

// ContainsRegisteredFormID reports whether any form key of the body holds
// a formId present in the registry. Malformed bodies yield false.
func (v *RequestValidator) ContainsRegisteredFormID(req *Request) (found bool) {
	defer func() {
		if recover() != nil {
			found = false
		}
	}()

	body := jsonreq.Decode(req.Body)
	for _, key := range body.Keys() {
		if !strings.HasPrefix(key, KeyPrefix) {
			continue
		}
		value, _ := body.Get(key)
		payload, ok := value.(map[string]any)
		if !ok {
			continue
		}
		id, ok := IntValue(payload["formId"])
		if ok && v.registry.IsRegistered(id) {
			return true
		}
	}
	return false
}

func (v *RequestValidator) IsSpecialFormRequest(req *Request) bool {
	return v.IsFormAPIRoute(req) || v.ContainsRegisteredFormID(req)
}

func (v *RequestValidator) IsRegisteredForm(id int) bool {
	return v.registry.IsRegistered(id)
}

func (v *RequestValidator) FormType(id int) (string, bool) {
	return v.registry.FormType(id)
}

// ValidateFormData extracts the first key of data as the form key and
// validates its payload.
func (v *RequestValidator) ValidateFormData(data jsonreq.Object) (string, Payload, error) {
	key, value, ok := data.First()
	if !ok || key == "" || !strings.HasPrefix(key, KeyPrefix) || value == nil {
		return "", nil, apperr.ErrInvalidStructure
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return "", nil, apperr.ErrInvalidStructure
	}
	payload := Payload(raw)
	if err := v.metadata.ValidateRequired(payload); err != nil {
		return "", nil, err
	}
	return key, payload, nil
}
