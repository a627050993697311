package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadpilot_backend/internal/channel"
	"leadpilot_backend/internal/leads"
	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/apperr"
	"leadpilot_backend/platform/logger"

	"github.com/google/uuid"
)

func intPtr(v int) *int { return &v }

func TestAutomationMatches(t *testing.T) {
	tests := []struct {
		name   string
		rule   Automation
		score  int
		intent string
		stage  string
		want   bool
	}{
		{"empty rule matches everything", Automation{}, 50, leads.IntentInfo, leads.StageNew, true},
		{"score inside range", Automation{MinScore: intPtr(40), MaxScore: intPtr(80)}, 60, leads.IntentInfo, leads.StageNew, true},
		{"score at inclusive lower bound", Automation{MinScore: intPtr(60)}, 60, leads.IntentInfo, leads.StageNew, true},
		{"score below range", Automation{MinScore: intPtr(61)}, 60, leads.IntentInfo, leads.StageNew, false},
		{"score at inclusive upper bound", Automation{MaxScore: intPtr(60)}, 60, leads.IntentInfo, leads.StageNew, true},
		{"score above range", Automation{MaxScore: intPtr(59)}, 60, leads.IntentInfo, leads.StageNew, false},
		{"intent in set", Automation{IntentIn: []string{leads.IntentBooking, leads.IntentPricing}}, 50, leads.IntentPricing, leads.StageNew, true},
		{"intent not in set", Automation{IntentIn: []string{leads.IntentBooking}}, 50, leads.IntentSpam, leads.StageNew, false},
		{"stage in set", Automation{StageIn: []string{leads.StageNew, leads.StageContacted}}, 50, leads.IntentInfo, leads.StageContacted, true},
		{"stage not in set", Automation{StageIn: []string{leads.StageQualified}}, 50, leads.IntentInfo, leads.StageNew, false},
		{
			"all conditions together",
			Automation{MinScore: intPtr(70), IntentIn: []string{leads.IntentBooking}, StageIn: []string{leads.StageNew}},
			85, leads.IntentBooking, leads.StageNew, true,
		},
		{
			"one failing condition rejects",
			Automation{MinScore: intPtr(70), IntentIn: []string{leads.IntentBooking}, StageIn: []string{leads.StageNew}},
			85, leads.IntentBooking, leads.StageBooked, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(tt.score, tt.intent, tt.stage); got != tt.want {
				t.Errorf("Matches(%d, %q, %q) = %v, want %v", tt.score, tt.intent, tt.stage, got, tt.want)
			}
		})
	}
}

type fakeLeadSource struct {
	lead   leads.Lead
	err    error
	events []leads.AppendEventParams
}

func (f *fakeLeadSource) GetByID(_ context.Context, id uuid.UUID) (leads.Lead, error) {
	if f.err != nil {
		return leads.Lead{}, f.err
	}
	if id != f.lead.ID {
		return leads.Lead{}, apperr.NotFound("lead not found")
	}
	return f.lead, nil
}

func (f *fakeLeadSource) AppendEvent(_ context.Context, params leads.AppendEventParams) (leads.Event, error) {
	f.events = append(f.events, params)
	return leads.Event{ID: uuid.New(), LeadID: params.LeadID, EventType: params.EventType}, nil
}

type fakeOwnerSource struct {
	owner users.User
	err   error
}

func (f *fakeOwnerSource) GetByID(_ context.Context, _ uuid.UUID) (users.User, error) {
	return f.owner, f.err
}

type fakeRuleSource struct {
	rules []Automation
	err   error
}

func (f *fakeRuleSource) ListEnabledByTrigger(_ context.Context, _ uuid.UUID, _ string) ([]Automation, error) {
	return f.rules, f.err
}

type fakeSender struct {
	ch     string
	err    error
	sent   []string
	bodies []string
}

func (f *fakeSender) Channel() string { return f.ch }

func (f *fakeSender) Send(_ context.Context, to, _, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, to)
	f.bodies = append(f.bodies, body)
	return "msg-" + to, nil
}

func newTestEngine(leadSrc *fakeLeadSource, ownerSrc *fakeOwnerSource, ruleSrc *fakeRuleSource, senders map[string]channel.Sender) *Engine {
	return NewEngine(leadSrc, ownerSrc, ruleSrc, senders, logger.New("development"), 5*time.Second)
}

func testLead(userID uuid.UUID) leads.Lead {
	return leads.Lead{
		ID:     uuid.New(),
		UserID: userID,
		Name:   "Jordan Miles",
		Phone:  "+15551234567",
		Email:  "jordan@example.com",
		Stage:  leads.StageNew,
		Intent: leads.IntentBooking,
		Score:  80,
	}
}

func TestDispatchSendsMatchingRules(t *testing.T) {
	userID := uuid.New()
	lead := testLead(userID)
	leadSrc := &fakeLeadSource{lead: lead}
	ownerSrc := &fakeOwnerSource{owner: users.User{ID: userID, BusinessType: "plumbing company", AgentName: "Alex"}}
	ruleSrc := &fakeRuleSource{rules: []Automation{
		{ID: uuid.New(), Name: "Instant SMS", Channel: channel.SMS, Template: "Hi {{name}}, {{agentName}} here."},
		{ID: uuid.New(), Name: "High score only", Channel: channel.SMS, Template: "VIP", MinScore: intPtr(90)},
	}}
	sms := &fakeSender{ch: channel.SMS}

	engine := newTestEngine(leadSrc, ownerSrc, ruleSrc, map[string]channel.Sender{channel.SMS: sms})

	results, err := engine.Dispatch(context.Background(), lead.ID, leads.TriggerLeadCreated)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Status != StatusSent {
		t.Errorf("status = %q, want %q (reason %q)", results[0].Status, StatusSent, results[0].Reason)
	}
	if len(sms.bodies) != 1 || sms.bodies[0] != "Hi Jordan Miles, Alex here." {
		t.Errorf("rendered body = %v", sms.bodies)
	}
	if len(sms.sent) != 1 || sms.sent[0] != lead.Phone {
		t.Errorf("sent to = %v, want %q", sms.sent, lead.Phone)
	}
	if len(leadSrc.events) != 1 || leadSrc.events[0].EventType != leads.EventSMSSent {
		t.Errorf("recorded events = %+v, want one SMS_SENT", leadSrc.events)
	}
}

func TestDispatchSkipsMissingDestination(t *testing.T) {
	userID := uuid.New()
	lead := testLead(userID)
	lead.Email = ""
	leadSrc := &fakeLeadSource{lead: lead}
	ownerSrc := &fakeOwnerSource{owner: users.User{ID: userID}}
	ruleSrc := &fakeRuleSource{rules: []Automation{
		{ID: uuid.New(), Name: "Welcome Email", Channel: channel.EMAIL, Template: "Welcome"},
	}}
	email := &fakeSender{ch: channel.EMAIL}

	engine := newTestEngine(leadSrc, ownerSrc, ruleSrc, map[string]channel.Sender{channel.EMAIL: email})

	results, err := engine.Dispatch(context.Background(), lead.ID, leads.TriggerLeadCreated)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(results) != 1 || results[0].Status != StatusSkipped {
		t.Fatalf("results = %+v, want one skipped", results)
	}
	if len(email.sent) != 0 {
		t.Errorf("sender was called for a lead without an email")
	}
	if len(leadSrc.events) != 0 {
		t.Errorf("skipped dispatch must not record a send event, got %+v", leadSrc.events)
	}
}

func TestDispatchFailureDoesNotBlockOtherRules(t *testing.T) {
	userID := uuid.New()
	lead := testLead(userID)
	leadSrc := &fakeLeadSource{lead: lead}
	ownerSrc := &fakeOwnerSource{owner: users.User{ID: userID}}
	ruleSrc := &fakeRuleSource{rules: []Automation{
		{ID: uuid.New(), Name: "Broken Email", Channel: channel.EMAIL, Template: "hello"},
		{ID: uuid.New(), Name: "Working SMS", Channel: channel.SMS, Template: "hello"},
	}}
	email := &fakeSender{ch: channel.EMAIL, err: errors.New("smtp unreachable")}
	sms := &fakeSender{ch: channel.SMS}

	engine := newTestEngine(leadSrc, ownerSrc, ruleSrc, map[string]channel.Sender{
		channel.EMAIL: email,
		channel.SMS:   sms,
	})

	results, err := engine.Dispatch(context.Background(), lead.ID, leads.TriggerLeadCreated)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusFailed {
		t.Errorf("first rule status = %q, want %q", results[0].Status, StatusFailed)
	}
	if results[1].Status != StatusSent {
		t.Errorf("second rule status = %q, want %q", results[1].Status, StatusSent)
	}
}

func TestDispatchMissingSenderFails(t *testing.T) {
	userID := uuid.New()
	lead := testLead(userID)
	leadSrc := &fakeLeadSource{lead: lead}
	ownerSrc := &fakeOwnerSource{owner: users.User{ID: userID}}
	ruleSrc := &fakeRuleSource{rules: []Automation{
		{ID: uuid.New(), Name: "SMS rule", Channel: channel.SMS, Template: "hello"},
	}}

	engine := newTestEngine(leadSrc, ownerSrc, ruleSrc, map[string]channel.Sender{})

	results, err := engine.Dispatch(context.Background(), lead.ID, leads.TriggerLeadCreated)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(results) != 1 || results[0].Status != StatusFailed {
		t.Fatalf("results = %+v, want one failed", results)
	}
}

func TestDispatchValidatesTrigger(t *testing.T) {
	engine := newTestEngine(&fakeLeadSource{}, &fakeOwnerSource{}, &fakeRuleSource{}, nil)

	_, err := engine.Dispatch(context.Background(), uuid.New(), "  ")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDispatchUnknownTriggerMatchesNothing(t *testing.T) {
	userID := uuid.New()
	lead := testLead(userID)
	leadSrc := &fakeLeadSource{lead: lead}
	ownerSrc := &fakeOwnerSource{owner: users.User{ID: userID}}
	ruleSrc := &fakeRuleSource{}

	engine := newTestEngine(leadSrc, ownerSrc, ruleSrc, nil)

	results, err := engine.Dispatch(context.Background(), lead.ID, "lead.unknown_trigger")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}
