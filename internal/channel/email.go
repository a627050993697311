package channel

import (
	"context"
	"fmt"
	"net"
	"time"

	"leadpilot_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// EmailSender delivers plain-text email over SMTP via go-mail.
type EmailSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewEmailSender returns nil when email delivery is disabled.
func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return nil
	}

	return &EmailSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *EmailSender) Channel() string { return EMAIL }

func (s *EmailSender) Send(ctx context.Context, to, subject, body string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("email sender not configured")
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return "", fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return "", fmt.Errorf("smtp to: %w", err)
	}
	if subject == "" {
		subject = "A message from " + s.fromName
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	return msg.GetMessageID(), nil
}
