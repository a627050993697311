package automation

import (
	"context"
	"strings"
	"time"

	"leadpilot_backend/internal/channel"
	"leadpilot_backend/internal/leads"
	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/apperr"
	"leadpilot_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadSource resolves the lead snapshot a dispatch evaluates against.
type LeadSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
	AppendEvent(ctx context.Context, params leads.AppendEventParams) (leads.Event, error)
}

// OwnerSource resolves the operator profile for template variables.
type OwnerSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (users.User, error)
}

// RuleSource lists the enabled rules for a trigger.
type RuleSource interface {
	ListEnabledByTrigger(ctx context.Context, userID uuid.UUID, trigger string) ([]Automation, error)
}

// Engine evaluates triggers against automation rules and dispatches messages.
type Engine struct {
	leads       LeadSource
	owners      OwnerSource
	rules       RuleSource
	senders     map[string]channel.Sender
	log         *logger.Logger
	sendTimeout time.Duration
}

func NewEngine(leadSource LeadSource, ownerSource OwnerSource, ruleSource RuleSource, senders map[string]channel.Sender, log *logger.Logger, sendTimeout time.Duration) *Engine {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Engine{
		leads:       leadSource,
		owners:      ownerSource,
		rules:       ruleSource,
		senders:     senders,
		log:         log,
		sendTimeout: sendTimeout,
	}
}

// Dispatch evaluates all enabled rules of the lead's owner against the
// trigger. Every matching rule fires; a failing rule never blocks the rest.
// An unknown trigger matches zero rules and returns an empty result.
func (e *Engine) Dispatch(ctx context.Context, leadID uuid.UUID, trigger string) ([]DispatchResult, error) {
	if strings.TrimSpace(trigger) == "" {
		return nil, apperr.Validation("trigger name is required")
	}

	lead, err := e.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	owner, err := e.owners.GetByID(ctx, lead.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, "lead owner missing", err)
	}

	rules, err := e.rules.ListEnabledByTrigger(ctx, lead.UserID, trigger)
	if err != nil {
		return nil, err
	}

	vars := TemplateVars{
		Name:         lead.Name,
		BusinessType: owner.BusinessType,
		AgentName:    owner.AgentName,
	}

	results := make([]DispatchResult, 0, len(rules))
	for _, rule := range rules {
		if !rule.Matches(lead.Score, lead.Intent, lead.Stage) {
			continue
		}
		results = append(results, e.fire(ctx, trigger, lead, rule, vars))
	}
	return results, nil
}

func (e *Engine) fire(ctx context.Context, trigger string, lead leads.Lead, rule Automation, vars TemplateVars) DispatchResult {
	result := DispatchResult{
		AutomationID:   rule.ID,
		AutomationName: rule.Name,
		Channel:        rule.Channel,
	}

	destination := e.destination(lead, rule.Channel)
	if destination == "" {
		result.Status = StatusSkipped
		result.Reason = "lead has no " + strings.ToLower(rule.Channel) + " destination"
		e.log.DispatchResult(trigger, lead.ID.String(), rule.Name, false, result.Reason)
		return result
	}

	sender, ok := e.senders[rule.Channel]
	if !ok || sender == nil {
		result.Status = StatusFailed
		result.Reason = "no sender configured for channel " + rule.Channel
		e.log.DispatchResult(trigger, lead.ID.String(), rule.Name, false, result.Reason)
		return result
	}

	rendered := Render(rule.Template, vars)

	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()

	deliveryID, err := sender.Send(sendCtx, destination, Subject(rule.Name, rendered), rendered)
	if err != nil {
		result.Status = StatusFailed
		result.Reason = err.Error()
		e.log.ProviderError(strings.ToLower(rule.Channel), "dispatch_send", err)
		return result
	}

	result.Status = StatusSent
	result.DeliveryID = deliveryID
	e.recordSend(ctx, lead.ID, rule, rendered, deliveryID)
	e.log.DispatchResult(trigger, lead.ID.String(), rule.Name, true, "")
	return result
}

func (e *Engine) destination(lead leads.Lead, ch string) string {
	switch ch {
	case channel.SMS:
		return lead.Phone
	case channel.EMAIL:
		return lead.Email
	default:
		return ""
	}
}

func (e *Engine) recordSend(ctx context.Context, leadID uuid.UUID, rule Automation, rendered, deliveryID string) {
	eventType := leads.EventSMSSent
	if rule.Channel == channel.EMAIL {
		eventType = leads.EventEmailSent
	}

	if _, err := e.leads.AppendEvent(ctx, leads.AppendEventParams{
		LeadID:    leadID,
		EventType: eventType,
		Content:   leads.TruncateContent(rendered, leads.EventContentMaxLen),
		Metadata: map[string]any{
			"automationId": rule.ID.String(),
			"automation":   rule.Name,
			"channel":      rule.Channel,
			"deliveryId":   deliveryID,
		},
	}); err != nil {
		// The message already left; a failed log write must not fail dispatch.
		e.log.DatabaseError("append_dispatch_event", err)
	}
}
