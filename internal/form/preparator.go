package form

import "github.com/iliamunaev/formgate/internal/jsonreq"

// Preparator normalizes a validated form payload and stores it in the
// request's parameter store.
type Preparator struct {
	validator *RequestValidator
}

func NewPreparator(validator *RequestValidator) *Preparator {
	if validator == nil {
		panic("form.NewPreparator: nil validator")
	}
	return &Preparator{validator: validator}
}

// Prepare returns a copy of req whose Params hold the normalized payload
// under its original form key. Validation errors are returned unchanged.
func (p *Preparator) Prepare(req *Request) (*Request, error) {
	data := jsonreq.Decode(req.Body)
	key, payload, err := p.validator.ValidateFormData(data)
	if err != nil {
		return nil, err
	}
	return req.WithParam(key, Normalize(payload, req.Locale)), nil
}

// Normalize returns a copy of payload with the identifying fields rendered
// as strings and locale defaulted to fallbackLocale.
func Normalize(payload Payload, fallbackLocale string) Payload {
	out := make(Payload, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	for _, field := range RequiredFields {
		out[field] = StringValue(payload[field])
	}
	if locale, ok := payload["locale"]; ok && locale != nil {
		out["locale"] = StringValue(locale)
	} else {
		out["locale"] = fallbackLocale
	}
	return out
}
