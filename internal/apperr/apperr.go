// Package apperr defines the error taxonomy shared by the form pipeline
// and the HTTP endpoints, and classifies errors into kinds and statuses.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Messages of these errors are surfaced to clients as-is.
var (
	ErrMalformedJSON        = errors.New("Malformed JSON body.")
	ErrInvalidStructure     = errors.New("Invalid form data structure.")
	ErrUnsupportedMediaType = errors.New("Only application/json content type is supported.")
	ErrBuildFailed          = errors.New("Form could not be built.")
	ErrHandlerFailed        = errors.New("Form submission could not be handled.")
	ErrInvalidInput         = errors.New("Invalid input")
	ErrRateLimited          = errors.New("Too many requests.")
	ErrBodyTooLarge         = errors.New("Request body too large.")
)

// MissingFieldError reports the first required form builder field that is
// absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Missing or empty required form builder field: %s", e.Field)
}

// Kind implements the kinder contract used by the transport layer.
func (e *MissingFieldError) Kind() string { return "missing_field" }

func Kind(err error) string {
	var (
		missing  *MissingFieldError
		tooLarge *http.MaxBytesError
	)
	switch {
	case err == nil:
		return ""

	case errors.As(err, &missing):
		return missing.Kind()

	case errors.Is(err, ErrBodyTooLarge), errors.As(err, &tooLarge):
		return "body_too_large"

	case errors.Is(err, ErrMalformedJSON):
		return "malformed_json"

	case errors.Is(err, ErrInvalidStructure):
		return "invalid_structure"

	case errors.Is(err, ErrUnsupportedMediaType):
		return "unsupported_media_type"

	case errors.Is(err, ErrBuildFailed):
		return "build_failed"

	case errors.Is(err, ErrHandlerFailed):
		return "handler_failed"

	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"

	case errors.Is(err, ErrRateLimited):
		return "rate_limited"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

// kindToStatus maps error kinds to HTTP status codes. Kinds not listed
// map to 500.
var kindToStatus = map[string]int{
	"":                       http.StatusOK,
	"malformed_json":         http.StatusBadRequest,
	"body_too_large":         http.StatusRequestEntityTooLarge,
	"invalid_input":          http.StatusBadRequest,
	"unsupported_media_type": http.StatusUnsupportedMediaType,
	"rate_limited":           http.StatusTooManyRequests,
	"timeout":                http.StatusGatewayTimeout,
	"canceled":               http.StatusBadRequest,
}

func HTTPStatus(err error) int {
	if s, ok := kindToStatus[Kind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}
