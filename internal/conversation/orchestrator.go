package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadpilot_backend/internal/booking"
	"leadpilot_backend/internal/channel"
	"leadpilot_backend/internal/events"
	"leadpilot_backend/internal/leads"
	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/apperr"
	"leadpilot_backend/platform/logger"
	"leadpilot_backend/platform/phone"

	"github.com/google/uuid"
)

// Canned assistant messages. The control tokens themselves must never reach
// the contact.
const (
	handoffMessage     = "Thanks for reaching out! Let me get someone from our team to follow up with you directly. You'll hear from us shortly."
	unavailableMessage = "That day looks fully booked on our end. Is there another day that could work for you?"
)

const historyLimit = 30

// Store is the conversation persistence surface the orchestrator needs.
type Store interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, handle string) (Conversation, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role, body string) (Message, error)
	ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)
	SetState(ctx context.Context, id uuid.UUID, state string) (Conversation, error)
	LinkLead(ctx context.Context, id, leadID uuid.UUID) error
}

// LeadStore links threads to lead records and mirrors turns onto the lead
// activity log.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
	GetByPhone(ctx context.Context, phone string) (leads.Lead, error)
	AppendEvent(ctx context.Context, params leads.AppendEventParams) (leads.Event, error)
	UpdateStage(ctx context.Context, id uuid.UUID, stage string) (string, error)
	Touch(ctx context.Context, id uuid.UUID) error
}

// OwnerStore resolves the operator profile the persona is built from.
type OwnerStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (users.User, error)
}

// TurnResponder produces the next raw assistant turn.
type TurnResponder interface {
	Respond(ctx context.Context, profile Profile, history []Message) (string, error)
}

// SlotAllocator reserves calendar slots for booking directives.
type SlotAllocator interface {
	Reserve(ctx context.Context, day time.Time) (booking.Slot, error)
	Location() *time.Location
}

// Orchestrator drives one conversation turn per inbound message. All work
// for a contact handle runs under that handle's lock, so turns from the same
// number are strictly ordered even when webhooks arrive concurrently.
type Orchestrator struct {
	store     Store
	leadStore LeadStore
	owners    OwnerStore
	responder TurnResponder
	allocator SlotAllocator
	sender    channel.Sender
	bus       events.Bus
	log       *logger.Logger

	aiTimeout       time.Duration
	sendTimeout     time.Duration
	sendMaxAttempts int
	locks           *handleLocks
}

type OrchestratorConfig struct {
	Store           Store
	LeadStore       LeadStore
	Owners          OwnerStore
	Responder       TurnResponder
	Allocator       SlotAllocator
	Sender          channel.Sender
	Bus             events.Bus
	Log             *logger.Logger
	AITimeout       time.Duration
	SendTimeout     time.Duration
	SendMaxAttempts int
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 20 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.SendMaxAttempts <= 0 {
		cfg.SendMaxAttempts = 3
	}
	return &Orchestrator{
		store:           cfg.Store,
		leadStore:       cfg.LeadStore,
		owners:          cfg.Owners,
		responder:       cfg.Responder,
		allocator:       cfg.Allocator,
		sender:          cfg.Sender,
		bus:             cfg.Bus,
		log:             cfg.Log,
		aiTimeout:       cfg.AITimeout,
		sendTimeout:     cfg.SendTimeout,
		sendMaxAttempts: cfg.SendMaxAttempts,
		locks:           newHandleLocks(),
	}
}

// HandleInbound processes one inbound text. The inbound message is always
// persisted, even when the turn produces no reply: a failing or disabled
// model must never lose what the contact said.
func (o *Orchestrator) HandleInbound(ctx context.Context, userID uuid.UUID, from, body string) error {
	handle := phone.NormalizeE164(from)
	if handle == "" {
		return apperr.Validation("sender number is required")
	}
	if body == "" {
		return apperr.Validation("message body is required")
	}

	lock := o.locks.get(handle)
	lock.Lock()
	defer lock.Unlock()

	conv, err := o.store.GetOrCreate(ctx, userID, handle)
	if err != nil {
		return err
	}

	lead := o.resolveLead(ctx, &conv, handle)

	if _, err := o.store.AppendMessage(ctx, conv.ID, RoleUser, body); err != nil {
		return err
	}
	o.recordLeadEvent(ctx, lead, leads.EventSMSReceived, body, nil)
	if lead != nil {
		if err := o.leadStore.Touch(ctx, lead.ID); err != nil {
			o.log.DatabaseError("touch_lead", err)
		}
	}

	if IsTerminalState(conv.State) {
		o.flagNeedsHuman(conv, lead, body)
		return nil
	}

	owner, err := o.owners.GetByID(ctx, conv.UserID)
	if err != nil {
		return err
	}

	history, err := o.store.ListRecentMessages(ctx, conv.ID, historyLimit)
	if err != nil {
		return err
	}

	aiCtx, cancel := context.WithTimeout(ctx, o.aiTimeout)
	raw, err := o.responder.Respond(aiCtx, Profile{AgentName: owner.AgentName, BusinessType: owner.BusinessType}, history)
	cancel()
	if err != nil {
		// The thread stays Active and the contact gets no reply this turn;
		// their message is already on the transcript.
		o.log.ProviderError("ai", "conversation_turn", err)
		return nil
	}

	directive := ParseDirective(raw)
	switch directive.Kind {
	case DirectiveEscalate:
		return o.escalate(ctx, conv, lead, body)
	case DirectiveBook:
		return o.book(ctx, conv, lead, directive)
	default:
		return o.reply(ctx, conv, lead, directive.Reply)
	}
}

// resolveLead loads the linked lead, linking by phone on first contact.
// Linking is best-effort; a thread without a lead still converses.
func (o *Orchestrator) resolveLead(ctx context.Context, conv *Conversation, handle string) *leads.Lead {
	if conv.LeadID != nil {
		lead, err := o.leadStore.GetByID(ctx, *conv.LeadID)
		if err != nil {
			o.log.DatabaseError("load_linked_lead", err)
			return nil
		}
		return &lead
	}

	lead, err := o.leadStore.GetByPhone(ctx, handle)
	if err != nil {
		if apperr.GetKind(err) != apperr.KindNotFound {
			o.log.DatabaseError("lead_by_phone", err)
		}
		return nil
	}
	if lead.UserID != conv.UserID {
		return nil
	}

	if err := o.store.LinkLead(ctx, conv.ID, lead.ID); err != nil {
		o.log.DatabaseError("link_lead", err)
		return nil
	}
	conv.LeadID = &lead.ID
	return &lead
}

func (o *Orchestrator) escalate(ctx context.Context, conv Conversation, lead *leads.Lead, lastMessage string) error {
	if _, err := o.store.SetState(ctx, conv.ID, StateEscalated); err != nil {
		return err
	}

	o.sendAssistantMessage(ctx, conv, lead, handoffMessage)
	o.recordLeadEvent(ctx, lead, leads.EventNeedsHuman, lastMessage, nil)

	o.bus.Publish(ctx, events.ConversationEscalated{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		LeadID:         conv.LeadID,
		UserID:         conv.UserID,
		ContactHandle:  conv.ContactHandle,
		LastMessage:    lastMessage,
	})
	return nil
}

func (o *Orchestrator) book(ctx context.Context, conv Conversation, lead *leads.Lead, directive Directive) error {
	day := ParseDay(directive.Day, time.Now(), o.allocator.Location())

	slot, err := o.allocator.Reserve(ctx, day)
	if err != nil {
		if !errors.Is(err, booking.ErrUnavailable) {
			return err
		}
		// Stay Active so the contact can propose another day.
		o.sendAssistantMessage(ctx, conv, lead, unavailableMessage)
		return nil
	}

	if _, err := o.store.SetState(ctx, conv.ID, StateBooked); err != nil {
		return err
	}

	confirmation := fmt.Sprintf("You're all set for %s at %s. Looking forward to it!",
		slot.Start.Format("Monday, January 2"),
		slot.Start.Format("3:04 PM"),
	)
	o.sendAssistantMessage(ctx, conv, lead, confirmation)

	leadName := ""
	if lead != nil {
		leadName = lead.Name
		if _, err := o.leadStore.UpdateStage(ctx, lead.ID, leads.StageBooked); err != nil {
			o.log.DatabaseError("update_lead_stage", err)
		}
		o.recordLeadEvent(ctx, lead, leads.EventBooked, confirmation, map[string]any{
			"start":   slot.Start,
			"end":     slot.End,
			"eventId": slot.EventID,
		})
	}

	o.bus.Publish(ctx, events.SlotBooked{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		LeadID:         conv.LeadID,
		UserID:         conv.UserID,
		ContactHandle:  conv.ContactHandle,
		LeadName:       leadName,
		Start:          slot.Start,
		End:            slot.End,
	})
	return nil
}

func (o *Orchestrator) reply(ctx context.Context, conv Conversation, lead *leads.Lead, text string) error {
	if text == "" {
		return nil
	}
	o.sendAssistantMessage(ctx, conv, lead, text)
	return nil
}

// sendAssistantMessage persists the turn and delivers it with bounded
// retries. Persistence comes first so the transcript stays complete even
// when the gateway is down.
func (o *Orchestrator) sendAssistantMessage(ctx context.Context, conv Conversation, lead *leads.Lead, text string) {
	if _, err := o.store.AppendMessage(ctx, conv.ID, RoleAssistant, text); err != nil {
		o.log.DatabaseError("append_assistant_message", err)
	}

	if o.sender == nil {
		return
	}

	var lastErr error
	for attempt := 1; attempt <= o.sendMaxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, o.sendTimeout)
		_, lastErr = o.sender.Send(sendCtx, conv.ContactHandle, "", text)
		cancel()
		if lastErr == nil {
			o.recordLeadEvent(ctx, lead, leads.EventSMSSent, text, nil)
			return
		}
		if attempt < o.sendMaxAttempts {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}
	o.log.ProviderError("sms", "conversation_reply", lastErr)
}

func (o *Orchestrator) flagNeedsHuman(conv Conversation, lead *leads.Lead, message string) {
	ctx := context.WithoutCancel(context.Background())
	o.recordLeadEvent(ctx, lead, leads.EventNeedsHuman, message, nil)
	o.bus.Publish(ctx, events.ConversationNeedsHuman{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		LeadID:         conv.LeadID,
		UserID:         conv.UserID,
		ContactHandle:  conv.ContactHandle,
		Message:        message,
	})
}

func (o *Orchestrator) recordLeadEvent(ctx context.Context, lead *leads.Lead, eventType, content string, metadata map[string]any) {
	if lead == nil {
		return
	}
	if _, err := o.leadStore.AppendEvent(ctx, leads.AppendEventParams{
		LeadID:    lead.ID,
		EventType: eventType,
		Content:   leads.TruncateContent(content, leads.EventContentMaxLen),
		Metadata:  metadata,
	}); err != nil {
		o.log.DatabaseError("append_lead_event", err)
	}
}
