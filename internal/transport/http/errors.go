package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iliamunaev/formgate/internal/apperr"
	"github.com/iliamunaev/formgate/internal/model"
)

// publicErrors are the errors whose message is safe to return verbatim.
var publicErrors = []error{
	apperr.ErrMalformedJSON,
	apperr.ErrBodyTooLarge,
	apperr.ErrUnsupportedMediaType,
	apperr.ErrInvalidInput,
	apperr.ErrRateLimited,
}

// publicMessage returns the client-facing message for err. Internal
// details are not exposed.
func publicMessage(err error) string {
	for _, pub := range publicErrors {
		if errors.Is(err, pub) {
			return pub.Error()
		}
	}
	return "Request could not be processed."
}

// writeError writes err as an APIResponse with the status of its kind.
func writeError(w http.ResponseWriter, err error, fieldErrs map[string]string) {
	writeJSON(w, apperr.HTTPStatus(err), model.APIResponse{
		Success: false,
		Error:   publicMessage(err),
		Errors:  fieldErrs,
	})
}

// writeJSON writes v as a JSON response with the given status code.
// The Content-Type is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
