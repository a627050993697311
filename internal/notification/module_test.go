package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"leadpilot_backend/internal/channel"
	"leadpilot_backend/internal/events"
	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/logger"

	"github.com/google/uuid"
)

type testOwners struct {
	owner users.User
	err   error
}

func (t testOwners) GetByID(context.Context, uuid.UUID) (users.User, error) {
	return t.owner, t.err
}

type testChannel struct {
	name string
	err  error
	sent []string
}

func (t *testChannel) Channel() string { return t.name }

func (t *testChannel) Send(_ context.Context, to, _, body string) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	t.sent = append(t.sent, to+": "+body)
	return "id-1", nil
}

func newTestModule(owners testOwners, sms, email *testChannel) *Module {
	var smsSender, emailSender channel.Sender
	if sms != nil {
		smsSender = sms
	}
	if email != nil {
		emailSender = email
	}
	return NewModule(owners, smsSender, emailSender, logger.New("development"))
}

func TestSlotBookedNotifiesOwnerBySMS(t *testing.T) {
	sms := &testChannel{name: "SMS"}
	email := &testChannel{name: "EMAIL"}
	m := newTestModule(testOwners{owner: users.User{NotifyPhone: "+15550000001", Email: "owner@example.com"}}, sms, email)

	start := time.Date(2026, time.September, 4, 10, 0, 0, 0, time.UTC)
	err := m.onSlotBooked(context.Background(), events.SlotBooked{
		BaseEvent: events.NewBaseEvent(),
		UserID:    uuid.New(),
		LeadName:  "Jordan Miles",
		Start:     start,
		End:       start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("onSlotBooked() error = %v", err)
	}

	if len(sms.sent) != 1 || !strings.Contains(sms.sent[0], "Jordan Miles") {
		t.Errorf("sms sent = %v", sms.sent)
	}
	if len(email.sent) != 0 {
		t.Errorf("email used although sms succeeded: %v", email.sent)
	}
}

func TestNotifyFallsBackToEmail(t *testing.T) {
	sms := &testChannel{name: "SMS", err: errors.New("gateway down")}
	email := &testChannel{name: "EMAIL"}
	m := newTestModule(testOwners{owner: users.User{NotifyPhone: "+15550000001", Email: "owner@example.com"}}, sms, email)

	err := m.onEscalated(context.Background(), events.ConversationEscalated{
		BaseEvent:     events.NewBaseEvent(),
		UserID:        uuid.New(),
		ContactHandle: "+15551230001",
		LastMessage:   "I want a refund now",
	})
	if err != nil {
		t.Fatalf("onEscalated() error = %v", err)
	}

	if len(email.sent) != 1 || !strings.Contains(email.sent[0], "owner@example.com") {
		t.Errorf("email sent = %v", email.sent)
	}
}

func TestNeedsHumanWithoutChannelsIsNotAnError(t *testing.T) {
	m := newTestModule(testOwners{owner: users.User{}}, nil, nil)

	err := m.onNeedsHuman(context.Background(), events.ConversationNeedsHuman{
		BaseEvent:     events.NewBaseEvent(),
		UserID:        uuid.New(),
		ContactHandle: "+15551230001",
		Message:       "hello?",
	})
	if err != nil {
		t.Fatalf("onNeedsHuman() error = %v", err)
	}
}

func TestHandlersRejectWrongEventType(t *testing.T) {
	m := newTestModule(testOwners{}, nil, nil)

	if err := m.onSlotBooked(context.Background(), events.ConversationEscalated{}); err == nil {
		t.Error("expected error for wrong event type")
	}
}
