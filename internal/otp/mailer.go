package otp

import (
	"context"
	"time"

	"fixmycity/backend/internal/logging"

	"gopkg.in/gomail.v2"
)

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return err
		}
		logging.Ctx(ctx).Debug().Str("to", to).Msg("mail sent")
		return nil
	}
}

// LogMailer writes codes to the log. Used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	logging.Ctx(ctx).Warn().Str("to", to).Str("subject", subject).Str("body", body).Msg("mail not configured, message logged")
	return nil
}
