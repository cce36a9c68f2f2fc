// Package httptransport implements the auxiliary HTTP endpoints: form
// token issuing, the standalone contact form and the service probes.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/iliamunaev/formgate/internal/apperr"
	"github.com/iliamunaev/formgate/internal/checksum"
	"github.com/iliamunaev/formgate/internal/engine"
	"github.com/iliamunaev/formgate/internal/form"
	"github.com/iliamunaev/formgate/internal/jsonreq"
	"github.com/iliamunaev/formgate/internal/mail"
	"github.com/iliamunaev/formgate/internal/model"
)

const (
	contactSubject = "New Contact Form Submission"
	maxBodyBytes   = 64 << 10
)

type tokenSigner interface {
	Sign(f checksum.Fields) (string, error)
}

// Options configure a Handler.
type Options struct {
	// From is the server-controlled sender of contact mails.
	From           string
	ContactTo      []string
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// Handler serves the auxiliary endpoints.
type Handler struct {
	signer         tokenSigner
	mailer         mail.Mailer
	validate       *validator.Validate
	policy         *bluemonday.Policy
	from           string
	contactTo      []string
	requestTimeout time.Duration
	logger         *zap.Logger
}

// New returns a Handler.
//
// It panics if signer or mailer is nil. If RequestTimeout is non-positive,
// a default timeout is applied.
func New(signer tokenSigner, mailer mail.Mailer, opts Options) *Handler {
	if signer == nil || mailer == nil {
		panic("httptransport.New: nil signer or mailer")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	return &Handler{
		signer:         signer,
		mailer:         mailer,
		validate:       v,
		policy:         bluemonday.StrictPolicy(),
		from:           opts.From,
		contactTo:      opts.ContactTo,
		requestTimeout: opts.RequestTimeout,
		logger:         opts.Logger,
	}
}

// HandleFormToken issues the checksum for a form's identifying fields.
// Missing fields are signed as empty strings.
func (h *Handler) HandleFormToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req model.TokenRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err, nil)
		return
	}

	token, err := h.signer.Sign(checksum.Fields{
		Type:     form.StringValue(req.Type),
		TypeID:   form.StringValue(req.TypeID),
		FormID:   form.StringValue(req.FormID),
		FormName: form.StringValue(req.FormName),
	})
	if err != nil {
		h.logger.Error("sign form token", zap.Error(err))
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, model.TokenResponse{Checksum: token})
}

// HandleContact validates a contact request and mails it to the configured
// receivers. The submitter's address is only used as Reply-To.
func (h *Handler) HandleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !jsonreq.IsJSON(r.Header.Get("Content-Type")) {
		writeError(w, apperr.ErrUnsupportedMediaType, nil)
		return
	}

	var req model.ContactRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err, nil)
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)

	if fieldErrs := h.check(req); len(fieldErrs) > 0 {
		writeError(w, apperr.ErrInvalidInput, fieldErrs)
		return
	}

	subject := contactSubject
	if s := strings.Join(strings.Fields(h.plain(req.Subject)), " "); s != "" {
		subject = fmt.Sprintf("%s: %s", contactSubject, s)
	}
	name := h.plain(req.FirstName + " " + req.LastName)
	msg := mail.Message{
		From:    h.from,
		ReplyTo: req.Email,
		To:      h.contactTo,
		Subject: subject,
		Text: fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s\n",
			name, req.Email, h.plain(req.Message)),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if err := h.mailer.Send(ctx, msg); err != nil {
		h.logger.Warn("contact mail failed", zap.Error(err))
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, model.APIResponse{Success: true})
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.APIResponse{Success: true})
}

// HandleNotFound answers unknown routes.
func (h *Handler) HandleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, model.APIResponse{Success: false, Error: "Not found."})
}

// check validates req and returns the first failed rule per field.
func (h *Handler) check(req model.ContactRequest) map[string]string {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{form.GlobalErrorKey: err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = engine.MessageFor(fe.Tag())
		}
	}
	return out
}

// plain strips markup from v for use in a plain-text mail.
func (h *Handler) plain(v string) string {
	return html.UnescapeString(h.policy.Sanitize(v))
}

// decode reads a single JSON value into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit %d bytes", apperr.ErrBodyTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %v", apperr.ErrMalformedJSON, err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMalformedJSON, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return apperr.ErrMalformedJSON
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
