package form

import "context"

// DefaultSuccessText is used when a form has no success text for the
// submission locale.
const DefaultSuccessText = "Thank you for your submission!"

// Builder builds a form instance from a prepared request. A nil Form with
// a nil error means the request does not describe a buildable form.
type Builder interface {
	Build(ctx context.Context, req *Request) (Form, error)
}

// Form is a built, bound form instance.
type Form interface {
	IsSubmitted() bool
	IsValid() bool
	Errors() []FieldError
	Data() *Submission
	Entity() *Entity
}

// Handler processes a valid submission and reports whether it was handled.
type Handler interface {
	Handle(ctx context.Context, f Form, cfg *Configuration) (bool, error)
}

// ConfigurationFactory derives the handling configuration of a submission.
type ConfigurationFactory interface {
	BuildFromSubmission(sub *Submission) (*Configuration, error)
}

// FieldError is a validation error. An empty Origin marks a form-level
// error.
type FieldError struct {
	Origin  string
	Message string
}

// CollectErrors flattens errs into FieldErrors keyed by origin.
func CollectErrors(errs []FieldError) FieldErrors {
	out := make(FieldErrors, len(errs))
	for _, e := range errs {
		key := e.Origin
		if key == "" {
			key = GlobalErrorKey
		}
		out[key] = e.Message
	}
	return out
}

// Submission is the data bound to a submitted form.
type Submission struct {
	FormID   int
	FormKey  string
	FormName string
	Type     string
	TypeID   string
	Locale   string
	Fields   map[string]string
}

// Entity is the stored form definition a form instance is bound to.
type Entity struct {
	ID           int
	Type         string
	Translations map[string]Translation
}

type Translation struct {
	Title       string
	SuccessText string
}

// Translation returns the translation for locale, falling back to the
// language base ("de" for "de-AT").
func (e *Entity) Translation(locale string) Translation {
	if e == nil {
		return Translation{}
	}
	if t, ok := e.Translations[locale]; ok {
		return t
	}
	for i := 0; i < len(locale); i++ {
		if locale[i] == '-' || locale[i] == '_' {
			if t, ok := e.Translations[locale[:i]]; ok {
				return t
			}
			break
		}
	}
	return Translation{}
}

// SuccessText returns the configured success text for locale or
// DefaultSuccessText.
func (e *Entity) SuccessText(locale string) string {
	if text := e.Translation(locale).SuccessText; text != "" {
		return text
	}
	return DefaultSuccessText
}

// Configuration controls how a submission is handled.
type Configuration struct {
	Locale    string
	Subject   string
	From      string
	ReplyTo   string
	Receivers []string
}
