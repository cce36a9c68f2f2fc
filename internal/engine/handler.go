package engine

import (
	"context"
	"fmt"
	"html"
	"net/mail"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/iliamunaev/formgate/internal/form"
	mailer "github.com/iliamunaev/formgate/internal/mail"
)

// ConfigurationFactory resolves mail settings for submissions.
type ConfigurationFactory struct {
	defs             map[int]Definition
	from             string
	defaultReceivers []string
}

func NewConfigurationFactory(defs []Definition, from string, defaultReceivers []string) *ConfigurationFactory {
	return &ConfigurationFactory{
		defs:             index(defs),
		from:             from,
		defaultReceivers: defaultReceivers,
	}
}

// BuildFromSubmission returns the configuration for sub. The submitter's
// email, when it parses as a single address, becomes the reply-to.
func (c *ConfigurationFactory) BuildFromSubmission(sub *form.Submission) (*form.Configuration, error) {
	def, ok := c.defs[sub.FormID]
	if !ok {
		return nil, fmt.Errorf("engine: no definition for form %d", sub.FormID)
	}

	subject := def.Subject
	if subject == "" {
		subject = fmt.Sprintf("New %s submission", def.Name)
	}
	receivers := def.Receivers
	if len(receivers) == 0 {
		receivers = c.defaultReceivers
	}

	cfg := &form.Configuration{
		Locale:    sub.Locale,
		Subject:   subject,
		From:      c.from,
		Receivers: append([]string(nil), receivers...),
	}
	if addr, err := mail.ParseAddress(sub.Fields["email"]); err == nil {
		cfg.ReplyTo = addr.Address
	}
	return cfg, nil
}

// Handler delivers valid submissions by mail.
type Handler struct {
	mailer mailer.Mailer
	policy *bluemonday.Policy
	logger *zap.Logger
}

func NewHandler(m mailer.Mailer, logger *zap.Logger) *Handler {
	if m == nil {
		panic("engine.NewHandler: nil mailer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		mailer: m,
		policy: bluemonday.StrictPolicy(),
		logger: logger,
	}
}

func (h *Handler) Handle(ctx context.Context, f form.Form, cfg *form.Configuration) (bool, error) {
	sub := f.Data()
	if sub == nil || cfg == nil {
		return false, nil
	}

	msg := mailer.Message{
		From:    cfg.From,
		ReplyTo: cfg.ReplyTo,
		To:      cfg.Receivers,
		Subject: cfg.Subject,
		Text:    h.render(sub),
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		return false, err
	}

	h.logger.Debug("submission delivered",
		zap.Int("form_id", sub.FormID),
		zap.String("locale", sub.Locale),
	)
	return true, nil
}

// render lists the submitted fields in name order with markup stripped.
// The body is plain text, so entities left by the policy are decoded.
func (h *Handler) render(sub *form.Submission) string {
	names := make([]string, 0, len(sub.Fields))
	for name := range sub.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		value := strings.TrimSpace(html.UnescapeString(h.policy.Sanitize(sub.Fields[name])))
		fmt.Fprintf(&b, "%s: %s\n", name, value)
	}
	return b.String()
}
