// Package pipeline intercepts special form submissions, runs them through
// validation and the form engine, and shapes the result into a JSON
// response.
package pipeline

import (
	"context"
	"net/http"

	"github.com/iliamunaev/formgate/internal/apperr"
	"github.com/iliamunaev/formgate/internal/form"
)

// State is the terminal state of one pipeline run.
type State int

const (
	NotIntercepted State = iota
	Unprocessable
	UnsupportedMediaType
	BuildFailed
	NotSubmitted
	Invalid
	Success
	Error
	Skipped
)

var stateNames = [...]string{
	NotIntercepted:       "not_intercepted",
	Unprocessable:        "unprocessable",
	UnsupportedMediaType: "unsupported_media_type",
	BuildFailed:          "build_failed",
	NotSubmitted:         "not_submitted",
	Invalid:              "invalid",
	Success:              "success",
	Error:                "error",
	Skipped:              "skipped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Recorded reports whether s produces a response of its own.
func (s State) Recorded() bool {
	return s != NotIntercepted && s != Skipped
}

const (
	unprocessableMessage = "Your request is Unprocessable."
	buildFailedDetails   = "Check formBuilder parameters and ensure all required fields are valid."
)

// Outcome is the result the interceptor attaches to a request. Errors is
// set for NotSubmitted and Invalid; Message carries the error text, or the
// success text for Success.
type Outcome struct {
	State   State
	Message string
	Details string
	Errors  form.FieldErrors
	FormID  *int
	// Status overrides the default status of an error outcome.
	Status int
}

func notIntercepted() Outcome { return Outcome{State: NotIntercepted} }

func skipped(id int) Outcome { return Outcome{State: Skipped, FormID: &id} }

func unprocessable() Outcome {
	return Outcome{State: Unprocessable, Message: unprocessableMessage}
}

func unsupportedMediaType() Outcome {
	return Outcome{
		State:   UnsupportedMediaType,
		Message: apperr.ErrUnsupportedMediaType.Error(),
		Status:  http.StatusUnsupportedMediaType,
	}
}

func buildFailed() Outcome {
	return Outcome{
		State:   BuildFailed,
		Message: apperr.ErrBuildFailed.Error(),
		Details: buildFailedDetails,
	}
}

func notSubmitted(errs form.FieldErrors, id int) Outcome {
	return Outcome{State: NotSubmitted, Errors: errs, FormID: &id}
}

func invalid(errs form.FieldErrors, id int) Outcome {
	return Outcome{State: Invalid, Errors: errs, FormID: &id}
}

func success(message string, id int) Outcome {
	return Outcome{State: Success, Message: message, FormID: &id}
}

func failed(err error, id *int) Outcome {
	return Outcome{State: Error, Message: err.Error(), FormID: id}
}

type outcomeKey struct{}

// WithOutcome attaches o to ctx.
func WithOutcome(ctx context.Context, o Outcome) context.Context {
	return context.WithValue(ctx, outcomeKey{}, o)
}

// OutcomeFrom returns the outcome attached to ctx, or NotIntercepted.
func OutcomeFrom(ctx context.Context) Outcome {
	if o, ok := ctx.Value(outcomeKey{}).(Outcome); ok {
		return o
	}
	return notIntercepted()
}
