// Package app wires configuration into the HTTP handler tree.
package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iliamunaev/formgate/internal/checksum"
	"github.com/iliamunaev/formgate/internal/config"
	"github.com/iliamunaev/formgate/internal/engine"
	"github.com/iliamunaev/formgate/internal/form"
	"github.com/iliamunaev/formgate/internal/mail"
	"github.com/iliamunaev/formgate/internal/middleware"
	"github.com/iliamunaev/formgate/internal/pipeline"
	httptransport "github.com/iliamunaev/formgate/internal/transport/http"
)

type App struct {
	Handler http.Handler
	Signer  *checksum.Signer
	Metrics *prometheus.Registry
}

// New builds the application from cfg. A nil logger discards logs and a
// nil mailer delivers to the log.
func New(cfg config.Config, logger *zap.Logger, m mail.Mailer) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = mail.NewLogMailer(logger.Named("mail"))
	}
	m = mail.NewPooled(m, cfg.Mail.MaxConcurrent)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	signer := checksum.New(cfg.Security.Secret, cfg.Security.BcryptCost)
	defs := Definitions(cfg.Forms)

	var verifier *checksum.Signer
	if cfg.Security.VerifyTokens {
		verifier = signer
	}

	registry := form.NewRegistry(cfg.Registry)
	validator := form.NewRequestValidator(cfg.Pipeline.Routes, registry, nil)
	interceptor := pipeline.NewInterceptor(pipeline.Deps{
		Validator: validator,
		Builder:   engine.NewBuilder(defs, verifier),
		Handler:   engine.NewHandler(m, logger.Named("engine")),
		Configs:   engine.NewConfigurationFactory(defs, cfg.Mail.From, cfg.Mail.To),
		Logger:    logger.Named("pipeline"),
	})
	p := pipeline.New(interceptor, pipeline.NewShaper(registry), pipeline.NewMetrics(reg), logger.Named("pipeline"), pipeline.Config{
		DefaultLocale: cfg.Pipeline.DefaultLocale,
		MaxBodyBytes:  cfg.Pipeline.MaxBodyBytes,
	})

	h := httptransport.New(signer, m, httptransport.Options{
		From:      cfg.Mail.From,
		ContactTo: cfg.Mail.To,
		Logger:    logger.Named("http"),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/form-token", h.HandleFormToken)
	mux.HandleFunc("POST /api/contact", h.HandleContact)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", h.HandleNotFound)

	limiter := middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
	var handler http.Handler = p.Wrap(mux)
	handler = middleware.RateLimit(limiter)(handler)
	handler = middleware.Logging(logger.Named("access"))(handler)

	return &App{
		Handler: handler,
		Signer:  signer,
		Metrics: reg,
	}
}

// Definitions converts configured forms to engine definitions.
func Definitions(forms []config.FormConfig) []engine.Definition {
	out := make([]engine.Definition, 0, len(forms))
	for _, f := range forms {
		fields := make([]engine.Field, 0, len(f.Fields))
		for _, field := range f.Fields {
			fields = append(fields, engine.Field{Name: field.Name, Rules: field.Rules})
		}
		out = append(out, engine.Definition{
			ID:          f.ID,
			Type:        f.Type,
			Name:        f.Name,
			Subject:     f.Subject,
			Receivers:   f.Receivers,
			SuccessText: f.SuccessText,
			Fields:      fields,
		})
	}
	return out
}
