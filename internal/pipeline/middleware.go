package pipeline

import (
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/iliamunaev/formgate/internal/form"
)

const defaultMaxBodyBytes = 1 << 20

// Pipeline wires the interceptor and the shaper around the default
// request handling.
type Pipeline struct {
	interceptor   *Interceptor
	shaper        *Shaper
	metrics       *Metrics
	logger        *zap.Logger
	defaultLocale string
	maxBodyBytes  int64
}

// Config tunes a Pipeline.
type Config struct {
	DefaultLocale string
	MaxBodyBytes  int64
}

func New(interceptor *Interceptor, shaper *Shaper, metrics *Metrics, logger *zap.Logger, cfg Config) *Pipeline {
	if interceptor == nil || shaper == nil {
		panic("pipeline.New: nil interceptor or shaper")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = defaultSubmissionLocale
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Pipeline{
		interceptor:   interceptor,
		shaper:        shaper,
		metrics:       metrics,
		logger:        logger,
		defaultLocale: cfg.DefaultLocale,
		maxBodyBytes:  cfg.MaxBodyBytes,
	}
}

// Wrap intercepts requests to the form routes before next runs. When the
// interceptor records an outcome the shaped response replaces next;
// otherwise next handles the request with the outcome in its context.
func (p *Pipeline) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probe := &form.Request{Method: r.Method, Path: r.URL.Path}
		if !p.interceptor.Routes(probe) {
			next.ServeHTTP(w, r)
			return
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, p.maxBodyBytes)
		}
		// A read error is carried on req and reported by the interceptor
		// once the content type has been checked.
		req, _ := form.NewRequest(r, p.locale(r))
		o := p.interceptor.Intercept(r.Context(), req)

		formType := p.shaper.registry.Label(o.FormID)
		p.metrics.observe(o, formType)
		p.logger.Debug("form pipeline outcome",
			zap.String("state", o.State.String()),
			zap.String("form_type", formType),
			zap.String("path", r.URL.Path),
			zap.String("details", o.Details),
		)

		r = r.WithContext(WithOutcome(r.Context(), o))
		if !o.State.Recorded() {
			next.ServeHTTP(w, r)
			return
		}
		p.shaper.Write(w, o)
	})
}

// locale returns the preferred Accept-Language tag or the default locale.
func (p *Pipeline) locale(r *http.Request) string {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 || tags[0] == language.Und {
		return p.defaultLocale
	}
	return tags[0].String()
}
