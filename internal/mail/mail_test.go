package mail

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func validMessage() Message {
	return Message{
		From:    "noreply@example.com",
		ReplyTo: "jane@example.org",
		To:      []string{"office@example.com"},
		Subject: "New Contact Form Submission",
		Text:    "hello",
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Message)
		ok     bool
	}{
		{name: "valid", mutate: func(*Message) {}, ok: true},
		{name: "no_reply_to", mutate: func(m *Message) { m.ReplyTo = "" }, ok: true},
		{name: "reply_to_injection", mutate: func(m *Message) { m.ReplyTo = "a@b.c\r\nBcc: x@y.z" }},
		{name: "subject_injection", mutate: func(m *Message) { m.Subject = "hi\nBcc: x@y.z" }},
		{name: "bad_from", mutate: func(m *Message) { m.From = "not an address" }},
		{name: "bad_reply_to", mutate: func(m *Message) { m.ReplyTo = "nope" }},
		{name: "no_receivers", mutate: func(m *Message) { m.To = nil }},
		{name: "bad_receiver", mutate: func(m *Message) { m.To = []string{"x"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := validMessage()
			tt.mutate(&m)
			err := m.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidHeader) {
				t.Fatalf("expected ErrInvalidHeader, got %v", err)
			}
		})
	}
}

func TestLogMailerSend(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	if err := m.Send(context.Background(), validMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs.FilterMessage("mail queued").Len() != 1 {
		t.Fatalf("expected one mail log entry, got %d", logs.Len())
	}

	bad := validMessage()
	bad.From = ""
	if err := m.Send(context.Background(), bad); err == nil {
		t.Fatal("expected invalid message to be rejected")
	}
	if logs.Len() != 1 {
		t.Fatalf("expected rejected message not to be logged, got %d entries", logs.Len())
	}
}
