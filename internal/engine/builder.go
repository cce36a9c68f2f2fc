package engine

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/iliamunaev/formgate/internal/checksum"
	"github.com/iliamunaev/formgate/internal/form"
)

const invalidTokenMessage = "Invalid form token."

var ruleMessages = map[string]string{
	"required": "This value should not be blank.",
	"email":    "Invalid email",
	"min":      "This value is too short.",
	"max":      "This value is too long.",
	"url":      "This value is not a valid URL.",
	"numeric":  "This value should be a number.",
}

// Builder builds forms for configured definitions.
type Builder struct {
	defs     map[int]Definition
	signer   *checksum.Signer
	validate *validator.Validate
}

// NewBuilder returns a Builder. With a nil signer form tokens are not
// verified.
func NewBuilder(defs []Definition, signer *checksum.Signer) *Builder {
	return &Builder{
		defs:     index(defs),
		signer:   signer,
		validate: validator.New(),
	}
}

// Build binds the prepared payload of req to its definition. Requests
// without a prepared payload or with an unknown formId build no form.
func (b *Builder) Build(_ context.Context, req *form.Request) (form.Form, error) {
	key, payload, ok := req.FormParam()
	if !ok {
		return nil, nil
	}
	id, ok := form.IntValue(payload["formId"])
	if !ok {
		return nil, nil
	}
	def, ok := b.defs[id]
	if !ok {
		return nil, nil
	}

	sub := &form.Submission{
		FormID:   id,
		FormKey:  key,
		FormName: form.StringValue(payload["formName"]),
		Type:     form.StringValue(payload["type"]),
		TypeID:   form.StringValue(payload["typeId"]),
		Locale:   form.StringValue(payload["locale"]),
		Fields:   make(map[string]string, len(def.Fields)),
	}
	f := &Form{
		entity:    def.entity(),
		data:      sub,
		submitted: req.IsMethod(http.MethodPost),
	}

	if b.signer != nil {
		token := form.StringValue(payload["checksum"])
		fields := checksum.Fields{
			Type:     sub.Type,
			TypeID:   sub.TypeID,
			FormID:   form.StringValue(payload["formId"]),
			FormName: sub.FormName,
		}
		if err := b.signer.Check(token, fields); err != nil {
			f.errs = append(f.errs, form.FieldError{Message: invalidTokenMessage})
		}
	}

	for _, field := range def.Fields {
		value := form.StringValue(payload[field.Name])
		sub.Fields[field.Name] = value
		if field.Rules == "" {
			continue
		}
		if err := b.validate.Var(value, field.Rules); err != nil {
			f.errs = append(f.errs, form.FieldError{Origin: field.Name, Message: ruleMessage(err)})
		}
	}
	return f, nil
}

func ruleMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return MessageFor(verrs[0].Tag())
	}
	return MessageFor("")
}

// MessageFor returns the user-facing message for a failed validator tag.
func MessageFor(tag string) string {
	if msg, ok := ruleMessages[tag]; ok {
		return msg
	}
	return "This value is not valid."
}

// Form is a form instance built by Builder.
type Form struct {
	entity    *form.Entity
	data      *form.Submission
	submitted bool
	errs      []form.FieldError
}

func (f *Form) IsSubmitted() bool         { return f.submitted }
func (f *Form) IsValid() bool             { return f.submitted && len(f.errs) == 0 }
func (f *Form) Errors() []form.FieldError { return append([]form.FieldError(nil), f.errs...) }
func (f *Form) Data() *form.Submission    { return f.data }
func (f *Form) Entity() *form.Entity      { return f.entity }
