package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliamunaev/formgate/internal/apperr"
	"github.com/iliamunaev/formgate/internal/form"
	"github.com/iliamunaev/formgate/internal/jsonreq"
)

const defaultSubmissionLocale = "en"

// Interceptor classifies a request and drives a special form submission
// through preparation, building and handling.
type Interceptor struct {
	validator  *form.RequestValidator
	preparator *form.Preparator
	builder    form.Builder
	handler    form.Handler
	configs    form.ConfigurationFactory
	logger     *zap.Logger
}

// Deps are the collaborators of an Interceptor.
type Deps struct {
	Validator *form.RequestValidator
	Builder   form.Builder
	Handler   form.Handler
	Configs   form.ConfigurationFactory
	Logger    *zap.Logger
}

// NewInterceptor returns an Interceptor. It panics if a collaborator is nil.
func NewInterceptor(d Deps) *Interceptor {
	if d.Validator == nil || d.Builder == nil || d.Handler == nil || d.Configs == nil {
		panic("pipeline.NewInterceptor: nil collaborator")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Interceptor{
		validator:  d.Validator,
		preparator: form.NewPreparator(d.Validator),
		builder:    d.Builder,
		handler:    d.Handler,
		configs:    d.Configs,
		logger:     d.Logger,
	}
}

// Routes reports whether req targets one of the form routes. Requests
// that do not are left to the default handling untouched.
func (i *Interceptor) Routes(req *form.Request) bool {
	return i.validator.IsFormAPIRoute(req)
}

// Intercept runs the pipeline for req and returns its outcome. It never
// panics: a failure after the request entered the pipeline becomes an
// Error outcome carrying the form id known at that point.
func (i *Interceptor) Intercept(ctx context.Context, req *form.Request) Outcome {
	if !i.validator.IsFormAPIRoute(req) {
		return notIntercepted()
	}
	if !i.validator.IsSpecialFormRequest(req) {
		return unprocessable()
	}
	if !jsonreq.IsJSON(req.ContentType()) {
		return unsupportedMediaType()
	}
	if req.ReadErr != nil {
		i.logger.Info("form request body unreadable", zap.Error(req.ReadErr))
		return failed(req.ReadErr, nil)
	}

	r := &run{Interceptor: i}
	return r.guard(ctx, req)
}

// run holds the state of a single pipeline pass.
type run struct {
	*Interceptor
	formID *int
}

func (r *run) guard(ctx context.Context, req *form.Request) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			err, ok := p.(error)
			if !ok {
				err = fmt.Errorf("%v", p)
			}
			r.logger.Error("form pipeline panic", zap.Error(err))
			out = failed(err, r.formID)
		}
	}()
	return r.process(ctx, req)
}

func (r *run) process(ctx context.Context, req *form.Request) Outcome {
	prepared, err := r.preparator.Prepare(req)
	if err != nil {
		r.logger.Info("form request rejected", zap.String("kind", apperr.Kind(err)), zap.Error(err))
		return failed(err, nil)
	}

	f, err := r.builder.Build(ctx, prepared)
	if err != nil {
		return failed(err, nil)
	}
	if f == nil || f.Entity() == nil {
		r.logger.Info("form could not be built", zap.String("path", req.Path))
		return buildFailed()
	}

	entity := f.Entity()
	id := entity.ID
	r.formID = &id

	if !r.validator.IsRegisteredForm(id) {
		r.logger.Info("form not registered, skipping", zap.Int("form_id", id))
		return skipped(id)
	}

	if !f.IsSubmitted() {
		r.logger.Info("form not submitted", zap.Int("form_id", id), zap.String("method", req.Method))
		return notSubmitted(form.CollectErrors(f.Errors()), id)
	}
	if !f.IsValid() {
		return invalid(form.CollectErrors(f.Errors()), id)
	}

	sub := f.Data()
	if sub == nil {
		return failed(apperr.ErrHandlerFailed, r.formID)
	}
	locale := sub.Locale
	if locale == "" {
		locale = defaultSubmissionLocale
	}
	cfg, err := r.configs.BuildFromSubmission(sub)
	if err != nil {
		return failed(err, r.formID)
	}
	sub.Locale = locale

	handled, err := r.handler.Handle(ctx, f, cfg)
	if err != nil {
		r.logger.Warn("form handler failed", zap.Int("form_id", id), zap.Error(err))
		return failed(err, r.formID)
	}
	if !handled {
		return failed(apperr.ErrHandlerFailed, r.formID)
	}
	return success(entity.SuccessText(locale), id)
}
