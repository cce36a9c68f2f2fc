// Package mail defines outbound mail messages and the Mailer contract.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

var ErrInvalidHeader = errors.New("mail: invalid header value")

// Message is a plain-text mail. From is always server controlled; the
// submitter's address, if any, goes to ReplyTo.
type Message struct {
	From    string
	ReplyTo string
	To      []string
	Subject string
	Text    string
}

// Validate rejects header values that could inject extra headers and
// addresses that do not parse.
func (m Message) Validate() error {
	for _, h := range append([]string{m.From, m.ReplyTo, m.Subject}, m.To...) {
		if strings.ContainsAny(h, "\r\n") {
			return ErrInvalidHeader
		}
	}
	if _, err := mail.ParseAddress(m.From); err != nil {
		return fmt.Errorf("%w: from: %v", ErrInvalidHeader, err)
	}
	if m.ReplyTo != "" {
		if _, err := mail.ParseAddress(m.ReplyTo); err != nil {
			return fmt.Errorf("%w: reply-to: %v", ErrInvalidHeader, err)
		}
	}
	if len(m.To) == 0 {
		return fmt.Errorf("%w: no receivers", ErrInvalidHeader)
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return fmt.Errorf("%w: to: %v", ErrInvalidHeader, err)
		}
	}
	return nil
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// LogMailer hands messages to the structured log instead of a transport.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (l *LogMailer) Send(_ context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	l.logger.Info("mail queued",
		zap.String("from", m.From),
		zap.String("reply_to", m.ReplyTo),
		zap.Strings("to", m.To),
		zap.String("subject", m.Subject),
		zap.Int("bytes", len(m.Text)),
	)
	return nil
}
