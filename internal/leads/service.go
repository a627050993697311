package leads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leadpilot_backend/internal/events"
	"leadpilot_backend/platform/apperr"
	"leadpilot_backend/platform/logger"
	"leadpilot_backend/platform/phone"
	"leadpilot_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Dispatch triggers fired by the lead lifecycle. The automation engine
// matches enabled rules against these names.
const (
	TriggerLeadCreated  = "lead.created"
	TriggerStageChanged = "lead.stage_changed"
	TriggerNoReply3d    = "lead.no_reply_3d"
)

// duplicateWindow suppresses repeated form submissions for the same contact.
const duplicateWindow = 60 * time.Second

// Dispatcher hands a trigger off for asynchronous automation dispatch.
type Dispatcher interface {
	EnqueueDispatch(ctx context.Context, leadID uuid.UUID, trigger string) error
}

// Analyzer scores a lead. Implemented by Analyst; faked in tests.
type Analyzer interface {
	Analyze(ctx context.Context, lead Lead) (Analysis, error)
}

type Service struct {
	repo       *Repository
	analyzer   Analyzer
	dispatcher Dispatcher
	bus        events.Bus
	log        *logger.Logger
	aiTimeout  time.Duration
}

func NewService(repo *Repository, analyzer Analyzer, dispatcher Dispatcher, bus events.Bus, log *logger.Logger, aiTimeout time.Duration) *Service {
	if aiTimeout <= 0 {
		aiTimeout = 20 * time.Second
	}
	return &Service{
		repo:       repo,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		bus:        bus,
		log:        log,
		aiTimeout:  aiTimeout,
	}
}

// CaptureParams is a new lead as submitted by a capture form.
type CaptureParams struct {
	Name     string
	Phone    string
	Email    string
	Source   string
	Notes    string
	Metadata map[string]any
}

// Capture validates, scores, and stores a new lead, then fires the
// lead.created trigger asynchronously. Returns the stored lead and whether
// it was a duplicate of a recent submission.
func (s *Service) Capture(ctx context.Context, userID uuid.UUID, params CaptureParams) (Lead, bool, error) {
	name := sanitize.Text(params.Name)
	if name == "" {
		return Lead{}, false, apperr.Validation("name is required")
	}

	normalizedPhone := ""
	if strings.TrimSpace(params.Phone) != "" {
		normalizedPhone = phone.NormalizeE164(params.Phone)
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if normalizedPhone == "" && email == "" {
		return Lead{}, false, apperr.Validation("at least one contact handle (phone or email) is required")
	}

	if existing, found, err := s.repo.FindRecentByContact(ctx, userID, normalizedPhone, email, duplicateWindow); err != nil {
		return Lead{}, false, err
	} else if found {
		s.log.Info("duplicate lead suppressed", "lead_id", existing.ID, "user_id", userID)
		return existing, true, nil
	}

	// Analysis runs synchronously so the stored lead is scored from the
	// start. Provider failure falls back to defaults; capture never fails
	// because scoring did.
	analysis := s.analyze(ctx, Lead{
		Name:   name,
		Phone:  normalizedPhone,
		Email:  email,
		Source: sanitize.Text(params.Source),
		Notes:  sanitize.Text(params.Notes),
	})

	lead, err := s.repo.Create(ctx, CreateLeadParams{
		UserID:    userID,
		Name:      name,
		Phone:     normalizedPhone,
		Email:     email,
		Source:    sanitize.Text(params.Source),
		Notes:     sanitize.Text(params.Notes),
		Intent:    analysis.Intent,
		Sentiment: analysis.Sentiment,
		Score:     analysis.Score,
		Metadata:  params.Metadata,
	})
	if err != nil {
		return Lead{}, false, err
	}

	s.appendEvent(ctx, lead.ID, EventFormSubmit, fmt.Sprintf("Lead captured via %s", defaultSource(lead.Source)), nil)
	s.appendEvent(ctx, lead.ID, EventAIAnalysis,
		fmt.Sprintf("Intent: %s, Sentiment: %s, Score: %d", analysis.Intent, analysis.Sentiment, analysis.Score),
		map[string]any{"intent": analysis.Intent, "sentiment": analysis.Sentiment, "score": analysis.Score, "summary": analysis.Summary},
	)

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadCaptured{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			UserID:    lead.UserID,
			Name:      lead.Name,
			Phone:     lead.Phone,
			Email:     lead.Email,
			Intent:    lead.Intent,
			Score:     lead.Score,
		})
	}

	s.fireTrigger(ctx, lead.ID, TriggerLeadCreated)
	return lead, false, nil
}

func (s *Service) analyze(ctx context.Context, lead Lead) Analysis {
	if s.analyzer == nil {
		return DefaultAnalysis()
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	analysis, err := s.analyzer.Analyze(aiCtx, lead)
	if err != nil {
		s.log.ProviderError("ai", "analyze_lead", err)
		return DefaultAnalysis()
	}
	return analysis
}

// fireTrigger hands the dispatch off without blocking or failing the caller.
func (s *Service) fireTrigger(ctx context.Context, leadID uuid.UUID, trigger string) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueueDispatch(ctx, leadID, trigger); err != nil {
		s.log.Error("failed to enqueue dispatch", "lead_id", leadID, "trigger", trigger, "error", err)
	}
}

func (s *Service) appendEvent(ctx context.Context, leadID uuid.UUID, eventType, content string, metadata map[string]any) {
	if _, err := s.repo.AppendEvent(ctx, AppendEventParams{
		LeadID:    leadID,
		EventType: eventType,
		Content:   TruncateContent(content, EventContentMaxLen),
		Metadata:  metadata,
	}); err != nil {
		s.log.DatabaseError("append_lead_event", err)
	}
}

var validStages = map[string]bool{
	StageNew:       true,
	StageContacted: true,
	StageQualified: true,
	StageBooked:    true,
	StageClosed:    true,
	StageLost:      true,
}

// ChangeStage moves a lead between pipeline stages and fires the
// lead.stage_changed trigger.
func (s *Service) ChangeStage(ctx context.Context, userID, leadID uuid.UUID, newStage string) (Lead, error) {
	if !validStages[newStage] {
		return Lead{}, apperr.Validation("unknown stage: " + newStage)
	}

	lead, err := s.getOwned(ctx, userID, leadID)
	if err != nil {
		return Lead{}, err
	}
	if lead.Stage == newStage {
		return lead, nil
	}

	oldStage, err := s.repo.UpdateStage(ctx, leadID, newStage)
	if err != nil {
		return Lead{}, err
	}

	s.appendEvent(ctx, leadID, EventStageChange,
		fmt.Sprintf("Stage changed: %s -> %s", oldStage, newStage),
		map[string]any{"oldStage": oldStage, "newStage": newStage},
	)

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadStageChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			UserID:    userID,
			OldStage:  oldStage,
			NewStage:  newStage,
		})
	}

	s.fireTrigger(ctx, leadID, TriggerStageChanged)

	lead.Stage = newStage
	return lead, nil
}

// Get returns a lead owned by the given user.
func (s *Service) Get(ctx context.Context, userID, leadID uuid.UUID) (Lead, error) {
	return s.getOwned(ctx, userID, leadID)
}

// List returns the user's leads, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Lead, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Timeline returns the activity log for a lead owned by the given user.
func (s *Service) Timeline(ctx context.Context, userID, leadID uuid.UUID) ([]Event, error) {
	if _, err := s.getOwned(ctx, userID, leadID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, leadID)
}

func (s *Service) getOwned(ctx context.Context, userID, leadID uuid.UUID) (Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return Lead{}, err
	}
	if lead.UserID != userID {
		// Do not leak existence across accounts.
		return Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func defaultSource(source string) string {
	if source == "" {
		return "web form"
	}
	return source
}
