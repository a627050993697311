package channel

import (
	"context"

	"leadpilot_backend/platform/logger"
)

// NoopSender logs messages instead of delivering them. Used in development
// when no provider is configured.
type NoopSender struct {
	channel string
	log     *logger.Logger
}

func NewNoopSender(channel string, log *logger.Logger) *NoopSender {
	return &NoopSender{channel: channel, log: log}
}

func (s *NoopSender) Channel() string { return s.channel }

func (s *NoopSender) Send(_ context.Context, to, subject, body string) (string, error) {
	s.log.Info("noop send",
		"channel", s.channel,
		"to", to,
		"subject", subject,
		"body", body,
	)
	return "noop", nil
}
