// Package conversation runs the inbound SMS state machine: one conversation
// per contact handle, driven turn by turn by an AI responder until it either
// books a slot or hands off to a human.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Conversation states. Escalated and Booked are terminal: the machine stops
// generating replies and flags new inbound messages for a human instead.
const (
	StateActive    = "Active"
	StateEscalated = "Escalated"
	StateBooked    = "Booked"
)

// Message roles on the transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is one thread with a contact handle, optionally linked to a
// lead record.
type Conversation struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	LeadID        *uuid.UUID
	ContactHandle string
	State         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Message is one transcript entry.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           string
	Body           string
	CreatedAt      time.Time
}

// IsTerminalState reports whether the machine has stopped for this thread.
func IsTerminalState(state string) bool {
	return state == StateEscalated || state == StateBooked
}
