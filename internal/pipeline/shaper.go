package pipeline

import (
	"encoding/json"
	"net/http"

	"github.com/iliamunaev/formgate/internal/form"
	"github.com/iliamunaev/formgate/internal/model"
)

// Shaper turns a recorded outcome into one of the uniform JSON responses.
type Shaper struct {
	registry *form.Registry
}

func NewShaper(registry *form.Registry) *Shaper {
	return &Shaper{registry: registry}
}

// Shape returns the status and body for o. ok is false for outcomes that
// produce no response.
func (s *Shaper) Shape(o Outcome) (status int, body any, ok bool) {
	formType := s.registry.Label(o.FormID)

	switch o.State {
	case NotSubmitted, Invalid:
		errs := map[string]string(o.Errors)
		if errs == nil {
			errs = map[string]string{}
		}
		return http.StatusBadRequest, model.ErrorsResponse{
			Success:  false,
			Errors:   errs,
			FormType: formType,
		}, true

	case Unprocessable, UnsupportedMediaType, BuildFailed, Error:
		code := http.StatusInternalServerError
		if o.Status != 0 {
			code = o.Status
		}
		return code, model.ErrorResponse{
			Success:  false,
			Error:    o.Message,
			FormType: formType,
		}, true

	case Success:
		return http.StatusCreated, model.SuccessResponse{
			Success:  true,
			Message:  o.Message,
			FormType: formType,
		}, true

	default:
		return 0, nil, false
	}
}

// Write writes the response for o and reports whether one was written.
func (s *Shaper) Write(w http.ResponseWriter, o Outcome) bool {
	status, body, ok := s.Shape(o)
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
	return true
}
