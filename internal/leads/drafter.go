package leads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
	"google.golang.org/genai"

	"github.com/google/uuid"

	"leadpilot_backend/platform/logger"
)

const drafterInstruction = `You are a follow-up copywriter for a small service business.
Given a lead's details and recent activity, write one short outreach message
in the requested channel and tone.

PROTOCOL:
1. Keep SMS drafts under 300 characters. Emails may run a short paragraph.
2. Never invent pricing or availability.
3. When the draft is ready, call the 'SaveDraft' tool exactly once with the
   final text, then reply with a one-line confirmation.`

// Drafter generates outreach drafts for a lead using an ADK agent.
// Drafts are persisted to the activity log through the SaveDraft tool, so
// the model output itself never needs post-parsing.
type Drafter struct {
	agent          agent.Agent
	runner         *runner.Runner
	sessionService session.Service
	appName        string
	repo           *Repository
	log            *logger.Logger
}

// DraftRequest describes the outreach message to generate.
type DraftRequest struct {
	LeadID  uuid.UUID
	Channel string // "SMS" or "EMAIL"
	Tone    string // e.g. "friendly", "formal"
}

// NewDrafter builds the drafting agent on the shared completion model.
func NewDrafter(llm model.LLM, repo *Repository, log *logger.Logger) (*Drafter, error) {
	d := &Drafter{
		appName: "lead_drafter",
		repo:    repo,
		log:     log,
	}

	type saveDraftInput struct {
		LeadID  string `json:"leadId"`
		Channel string `json:"channel"`
		Body    string `json:"body"`
	}
	type saveDraftOutput struct {
		Message string `json:"message"`
	}
	saveDraftTool, err := functiontool.New(functiontool.Config{
		Name:        "SaveDraft",
		Description: "Persists the final outreach draft for the lead",
	}, func(ctx tool.Context, input saveDraftInput) (saveDraftOutput, error) {
		id, err := uuid.Parse(input.LeadID)
		if err != nil {
			return saveDraftOutput{}, fmt.Errorf("invalid lead id: %w", err)
		}
		if strings.TrimSpace(input.Body) == "" {
			return saveDraftOutput{}, fmt.Errorf("empty draft body")
		}
		_, err = repo.AppendEvent(context.Background(), AppendEventParams{
			LeadID:    id,
			EventType: EventAIDraft,
			Content:   TruncateContent(input.Body, EventContentMaxLen),
			Metadata:  map[string]any{"channel": input.Channel, "body": input.Body},
		})
		if err != nil {
			return saveDraftOutput{}, err
		}
		return saveDraftOutput{Message: "Draft saved"}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SaveDraft tool: %w", err)
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "LeadDrafter",
		Model:       llm,
		Description: "Writes channel-appropriate follow-up drafts for captured leads.",
		Instruction: drafterInstruction,
		Tools:       []tool.Tool{saveDraftTool},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create drafter agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        d.appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create drafter runner: %w", err)
	}

	d.agent = adkAgent
	d.runner = r
	d.sessionService = sessionService
	return d, nil
}

// Draft generates and persists one outreach draft, returning the saved event.
func (d *Drafter) Draft(ctx context.Context, req DraftRequest) (Event, error) {
	if d == nil || d.runner == nil {
		return Event{}, fmt.Errorf("drafter not configured")
	}

	lead, err := d.repo.GetByID(ctx, req.LeadID)
	if err != nil {
		return Event{}, err
	}

	history, err := d.repo.ListEvents(ctx, req.LeadID)
	if err != nil {
		return Event{}, err
	}

	userID := "drafter-" + req.LeadID.String()
	sessionID := uuid.New().String()
	if _, err := d.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   d.appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return Event{}, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		if err := d.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   d.appName,
			UserID:    userID,
			SessionID: sessionID,
		}); err != nil {
			d.log.Warn("failed to delete drafter session", "session_id", sessionID, "error", err)
		}
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: buildDraftPrompt(lead, history, req)}},
	}

	draftStart := latestEventTime(history)
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}
	for event, err := range d.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		if err != nil {
			return Event{}, fmt.Errorf("drafter run failed: %w", err)
		}
		_ = event
	}

	// The draft lands on the activity log via the tool; fetch it back.
	updated, err := d.repo.ListEvents(ctx, req.LeadID)
	if err != nil {
		return Event{}, err
	}
	for i := len(updated) - 1; i >= 0; i-- {
		if updated[i].EventType == EventAIDraft && updated[i].CreatedAt.After(draftStart) {
			return updated[i], nil
		}
	}
	return Event{}, fmt.Errorf("model did not produce a draft")
}

func buildDraftPrompt(lead Lead, history []Event, req DraftRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lead ID: %s\n", lead.ID)
	fmt.Fprintf(&b, "Name: %s\n", lead.Name)
	fmt.Fprintf(&b, "Stage: %s, Intent: %s, Score: %d\n", lead.Stage, lead.Intent, lead.Score)
	fmt.Fprintf(&b, "Channel: %s\n", req.Channel)
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	if len(history) > 0 {
		b.WriteString("Recent activity:\n")
		start := len(history) - 5
		if start < 0 {
			start = 0
		}
		for _, event := range history[start:] {
			fmt.Fprintf(&b, "- [%s] %s\n", event.EventType, event.Content)
		}
	}
	return b.String()
}

func latestEventTime(history []Event) (latest time.Time) {
	for _, event := range history {
		if event.CreatedAt.After(latest) {
			latest = event.CreatedAt
		}
	}
	return latest
}
