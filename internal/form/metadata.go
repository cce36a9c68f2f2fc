package form

import "github.com/iliamunaev/formgate/internal/apperr"

// RequiredFields are the identifying fields every form payload must carry,
// in the order they are checked.
var RequiredFields = []string{"formId", "formName", "type", "typeId", "checksum"}

// MetadataValidator checks that a payload carries all identifying fields.
type MetadataValidator struct {
	fields []string
}

// NewMetadataValidator returns a validator for fields, or for
// RequiredFields when none are given.
func NewMetadataValidator(fields ...string) *MetadataValidator {
	if len(fields) == 0 {
		fields = RequiredFields
	}
	return &MetadataValidator{fields: append([]string(nil), fields...)}
}

// ValidateRequired reports the first field that is absent, null or the
// empty string.
func (v *MetadataValidator) ValidateRequired(p Payload) error {
	for _, field := range v.fields {
		value, ok := p[field]
		if !ok || value == nil {
			return &apperr.MissingFieldError{Field: field}
		}
		if s, isString := value.(string); isString && s == "" {
			return &apperr.MissingFieldError{Field: field}
		}
	}
	return nil
}
