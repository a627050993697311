// Package channel abstracts outbound message delivery (SMS, email) behind a
// single Sender interface so the automation engine and the conversation
// orchestrator do not care which provider carries a message.
package channel

import "context"

// Channel names as stored on automation rules.
const (
	SMS   = "SMS"
	EMAIL = "EMAIL"
)

// Sender delivers one outbound message and returns a provider delivery ID.
type Sender interface {
	// Channel returns the channel this sender serves (SMS or EMAIL).
	Channel() string
	// Send delivers body to the destination handle. Subject is ignored by
	// channels that have no subject concept.
	Send(ctx context.Context, to, subject, body string) (string, error)
}
