// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadpilot_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCaptured is published when a new lead is stored and analyzed.
type LeadCaptured struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone,omitempty"`
	Email  string    `json:"email,omitempty"`
	Intent string    `json:"intent"`
	Score  int       `json:"score"`
}

func (e LeadCaptured) EventName() string { return "leads.captured" }

// LeadStageChanged is published when an operator moves a lead between stages.
type LeadStageChanged struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	UserID   uuid.UUID `json:"userId"`
	OldStage string    `json:"oldStage"`
	NewStage string    `json:"newStage"`
}

func (e LeadStageChanged) EventName() string { return "leads.stage.changed" }

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ConversationEscalated is published when the assistant hands a conversation
// off to a human. Subscribers notify the owning operator.
type ConversationEscalated struct {
	BaseEvent
	ConversationID uuid.UUID  `json:"conversationId"`
	LeadID         *uuid.UUID `json:"leadId,omitempty"`
	UserID         uuid.UUID  `json:"userId"`
	ContactHandle  string     `json:"contactHandle"`
	LastMessage    string     `json:"lastMessage"`
}

func (e ConversationEscalated) EventName() string { return "conversation.escalated" }

// ConversationNeedsHuman is published when an inbound message arrives on a
// conversation that is already in a terminal state.
type ConversationNeedsHuman struct {
	BaseEvent
	ConversationID uuid.UUID  `json:"conversationId"`
	LeadID         *uuid.UUID `json:"leadId,omitempty"`
	UserID         uuid.UUID  `json:"userId"`
	ContactHandle  string     `json:"contactHandle"`
	Message        string     `json:"message"`
}

func (e ConversationNeedsHuman) EventName() string { return "conversation.needs_human" }

// =============================================================================
// Booking Domain Events
// =============================================================================

// SlotBooked is published when the allocator reserves a calendar slot.
type SlotBooked struct {
	BaseEvent
	ConversationID uuid.UUID  `json:"conversationId"`
	LeadID         *uuid.UUID `json:"leadId,omitempty"`
	UserID         uuid.UUID  `json:"userId"`
	ContactHandle  string     `json:"contactHandle"`
	LeadName       string     `json:"leadName"`
	Start          time.Time  `json:"start"`
	End            time.Time  `json:"end"`
}

func (e SlotBooked) EventName() string { return "booking.slot.booked" }
