// Package notification turns domain events into operator alerts.
// This module subscribes to events and inverts the dependency: domain modules
// never need to know how the operator wants to be reached.
package notification

import (
	"context"
	"fmt"

	"leadpilot_backend/internal/channel"
	"leadpilot_backend/internal/events"
	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/logger"

	"github.com/google/uuid"
)

// OwnerReader resolves the operator a notification goes to.
type OwnerReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (users.User, error)
}

// Module wires event subscriptions to the operator's notification channels.
// SMS to the notify number is preferred; email is the fallback.
type Module struct {
	owners OwnerReader
	sms    channel.Sender
	email  channel.Sender
	log    *logger.Logger
}

func NewModule(owners OwnerReader, sms, email channel.Sender, log *logger.Logger) *Module {
	return &Module{owners: owners, sms: sms, email: email, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// Subscribe registers all event handlers on the bus.
func (m *Module) Subscribe(bus events.Bus) {
	bus.Subscribe(events.SlotBooked{}.EventName(), events.HandlerFunc(m.onSlotBooked))
	bus.Subscribe(events.ConversationEscalated{}.EventName(), events.HandlerFunc(m.onEscalated))
	bus.Subscribe(events.ConversationNeedsHuman{}.EventName(), events.HandlerFunc(m.onNeedsHuman))
}

func (m *Module) onSlotBooked(ctx context.Context, event events.Event) error {
	booked, ok := event.(events.SlotBooked)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	name := booked.LeadName
	if name == "" {
		name = booked.ContactHandle
	}
	message := fmt.Sprintf("New booking: %s on %s at %s.",
		name,
		booked.Start.Format("Mon Jan 2"),
		booked.Start.Format("3:04 PM"),
	)
	return m.notify(ctx, booked.UserID, "New booking", message)
}

func (m *Module) onEscalated(ctx context.Context, event events.Event) error {
	escalated, ok := event.(events.ConversationEscalated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	message := fmt.Sprintf("Conversation with %s needs you. Last message: %q",
		escalated.ContactHandle, truncate(escalated.LastMessage, 120))
	return m.notify(ctx, escalated.UserID, "Conversation handed off", message)
}

func (m *Module) onNeedsHuman(ctx context.Context, event events.Event) error {
	needsHuman, ok := event.(events.ConversationNeedsHuman)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	message := fmt.Sprintf("%s texted a closed conversation: %q",
		needsHuman.ContactHandle, truncate(needsHuman.Message, 120))
	return m.notify(ctx, needsHuman.UserID, "Contact needs a reply", message)
}

func (m *Module) notify(ctx context.Context, userID uuid.UUID, subject, message string) error {
	owner, err := m.owners.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	if m.sms != nil && owner.NotifyPhone != "" {
		if _, err := m.sms.Send(ctx, owner.NotifyPhone, subject, message); err == nil {
			return nil
		} else {
			m.log.ProviderError("sms", "owner_notify", err)
		}
	}

	if m.email != nil && owner.Email != "" {
		if _, err := m.email.Send(ctx, owner.Email, subject, message); err != nil {
			return fmt.Errorf("email owner: %w", err)
		}
		return nil
	}

	m.log.Warn("owner has no reachable notification channel", "user_id", userID.String())
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
