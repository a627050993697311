package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"leadpilot_backend/internal/booking"
	"leadpilot_backend/internal/events"
	"leadpilot_backend/internal/leads"
	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	messages      map[uuid.UUID][]Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[uuid.UUID][]Message),
	}
}

func (f *fakeStore) GetOrCreate(_ context.Context, userID uuid.UUID, handle string) (Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conv, ok := f.conversations[handle]; ok {
		return *conv, nil
	}
	conv := &Conversation{
		ID:            uuid.New(),
		UserID:        userID,
		ContactHandle: handle,
		State:         StateActive,
	}
	f.conversations[handle] = conv
	return *conv, nil
}

func (f *fakeStore) AppendMessage(_ context.Context, conversationID uuid.UUID, role, body string) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	f.messages[conversationID] = append(f.messages[conversationID], msg)
	return msg, nil
}

func (f *fakeStore) ListRecentMessages(_ context.Context, conversationID uuid.UUID, _ int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.messages[conversationID]))
	copy(out, f.messages[conversationID])
	return out, nil
}

func (f *fakeStore) SetState(_ context.Context, id uuid.UUID, state string) (Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.conversations {
		if conv.ID == id {
			conv.State = state
			return *conv, nil
		}
	}
	return Conversation{}, errors.New("conversation not found")
}

func (f *fakeStore) LinkLead(_ context.Context, id, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.conversations {
		if conv.ID == id {
			conv.LeadID = &leadID
			return nil
		}
	}
	return errors.New("conversation not found")
}

func (f *fakeStore) state(handle string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations[handle].State
}

func (f *fakeStore) transcript(handle string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[handle]
	if !ok {
		return nil
	}
	out := make([]Message, len(f.messages[conv.ID]))
	copy(out, f.messages[conv.ID])
	return out
}

type fakeLeads struct {
	mu      sync.Mutex
	lead    *leads.Lead
	events  []leads.AppendEventParams
	stages  []string
	touched int
}

func (f *fakeLeads) GetByID(_ context.Context, id uuid.UUID) (leads.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lead != nil && f.lead.ID == id {
		return *f.lead, nil
	}
	return leads.Lead{}, errors.New("lead not found")
}

func (f *fakeLeads) GetByPhone(_ context.Context, phoneNumber string) (leads.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lead != nil && f.lead.Phone == phoneNumber {
		return *f.lead, nil
	}
	return leads.Lead{}, errors.New("lead not found")
}

func (f *fakeLeads) AppendEvent(_ context.Context, params leads.AppendEventParams) (leads.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, params)
	return leads.Event{ID: uuid.New()}, nil
}

func (f *fakeLeads) UpdateStage(_ context.Context, _ uuid.UUID, stage string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, stage)
	return leads.StageNew, nil
}

func (f *fakeLeads) Touch(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	return nil
}

func (f *fakeLeads) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeOwners struct {
	owner users.User
}

func (f *fakeOwners) GetByID(_ context.Context, _ uuid.UUID) (users.User, error) {
	return f.owner, nil
}

type fakeResponder struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	inFlight int
	overlap  bool
	delay    time.Duration
}

func (f *fakeResponder) Respond(_ context.Context, _ Profile, _ []Message) (string, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return f.reply, f.err
}

func (f *fakeResponder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAllocator struct {
	slot  booking.Slot
	err   error
	calls int
}

func (f *fakeAllocator) Reserve(_ context.Context, _ time.Time) (booking.Slot, error) {
	f.calls++
	if f.err != nil {
		return booking.Slot{}, f.err
	}
	return f.slot, nil
}

func (f *fakeAllocator) Location() *time.Location { return time.UTC }

type fakeTurnSender struct {
	mu       sync.Mutex
	failures int
	sent     []string
}

func (f *fakeTurnSender) Channel() string { return "SMS" }

func (f *fakeTurnSender) Send(_ context.Context, _, _, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return "", errors.New("gateway unreachable")
	}
	f.sent = append(f.sent, body)
	return "msg-1", nil
}

func (f *fakeTurnSender) bodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

type fixture struct {
	store     *fakeStore
	leadStore *fakeLeads
	responder *fakeResponder
	allocator *fakeAllocator
	sender    *fakeTurnSender
	bus       *recordingBus
	orch      *Orchestrator
	userID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newFakeStore(),
		leadStore: &fakeLeads{},
		responder: &fakeResponder{reply: "How can I help?"},
		allocator: &fakeAllocator{},
		sender:    &fakeTurnSender{},
		bus:       &recordingBus{},
		userID:    uuid.New(),
	}
	f.orch = NewOrchestrator(OrchestratorConfig{
		Store:           f.store,
		LeadStore:       f.leadStore,
		Owners:          &fakeOwners{owner: users.User{AgentName: "Alex", BusinessType: "roofing company"}},
		Responder:       f.responder,
		Allocator:       f.allocator,
		Sender:          f.sender,
		Bus:             f.bus,
		Log:             logger.New("development"),
		AITimeout:       time.Second,
		SendTimeout:     time.Second,
		SendMaxAttempts: 3,
	})
	return f
}

const testFrom = "+15551230001"

func TestInboundPlainReply(t *testing.T) {
	f := newFixture(t)
	f.responder.reply = "Sure, we do roof inspections. What day works for you?"

	if err := f.orch.HandleInbound(context.Background(), f.userID, testFrom, "Do you do inspections?"); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}

	transcript := f.store.transcript(testFrom)
	if len(transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(transcript))
	}
	if transcript[0].Role != RoleUser || transcript[1].Role != RoleAssistant {
		t.Errorf("transcript roles = %s, %s", transcript[0].Role, transcript[1].Role)
	}
	if got := f.sender.bodies(); len(got) != 1 || got[0] != f.responder.reply {
		t.Errorf("sent = %v", got)
	}
	if f.store.state(testFrom) != StateActive {
		t.Errorf("state = %s, want Active", f.store.state(testFrom))
	}
}

func TestInboundEscalates(t *testing.T) {
	f := newFixture(t)
	f.responder.reply = "ESCALATE"
	f.leadStore.lead = &leads.Lead{ID: uuid.New(), UserID: f.userID, Phone: testFrom, Name: "Jordan"}

	if err := f.orch.HandleInbound(context.Background(), f.userID, testFrom, "I want to speak to a manager"); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}

	if f.store.state(testFrom) != StateEscalated {
		t.Fatalf("state = %s, want Escalated", f.store.state(testFrom))
	}
	bodies := f.sender.bodies()
	if len(bodies) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bodies))
	}
	if strings.Contains(bodies[0], "ESCALATE") {
		t.Errorf("control token leaked to the contact: %q", bodies[0])
	}
	if names := f.bus.names(); len(names) != 1 || names[0] != "conversation.escalated" {
		t.Errorf("published = %v", names)
	}

	types := f.leadStore.eventTypes()
	var sawNeedsHuman bool
	for _, et := range types {
		if et == leads.EventNeedsHuman {
			sawNeedsHuman = true
		}
	}
	if !sawNeedsHuman {
		t.Errorf("lead events = %v, want NEEDS_HUMAN", types)
	}
}

func TestInboundBooksSlot(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, time.September, 4, 10, 0, 0, 0, time.UTC)
	f.responder.reply = "BOOK|2026-09-04|10am"
	f.allocator.slot = booking.Slot{Start: start, End: start.Add(time.Hour), EventID: "evt-9"}
	f.leadStore.lead = &leads.Lead{ID: uuid.New(), UserID: f.userID, Phone: testFrom, Name: "Jordan"}

	if err := f.orch.HandleInbound(context.Background(), f.userID, testFrom, "Friday works"); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}

	if f.store.state(testFrom) != StateBooked {
		t.Fatalf("state = %s, want Booked", f.store.state(testFrom))
	}
	bodies := f.sender.bodies()
	if len(bodies) != 1 || !strings.Contains(bodies[0], "September 4") {
		t.Errorf("confirmation = %v", bodies)
	}
	if names := f.bus.names(); len(names) != 1 || names[0] != "booking.slot.booked" {
		t.Errorf("published = %v", names)
	}
	if len(f.leadStore.stages) != 1 || f.leadStore.stages[0] != leads.StageBooked {
		t.Errorf("lead stages = %v, want [Booked]", f.leadStore.stages)
	}
}

func TestInboundBookingUnavailableStaysActive(t *testing.T) {
	f := newFixture(t)
	f.responder.reply = "BOOK|tomorrow"
	f.allocator.err = booking.ErrUnavailable

	if err := f.orch.HandleInbound(context.Background(), f.userID, testFrom, "Tomorrow then"); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}

	if f.store.state(testFrom) != StateActive {
		t.Fatalf("state = %s, want Active", f.store.state(testFrom))
	}
	bodies := f.sender.bodies()
	if len(bodies) != 1 || bodies[0] != unavailableMessage {
		t.Errorf("sent = %v", bodies)
	}
	if names := f.bus.names(); len(names) != 0 {
		t.Errorf("published = %v, want none", names)
	}
}

func TestTerminalStateSkipsModel(t *testing.T) {
	f := newFixture(t)

	conv, err := f.store.GetOrCreate(context.Background(), f.userID, testFrom)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.SetState(context.Background(), conv.ID, StateBooked); err != nil {
		t.Fatal(err)
	}

	if err := f.orch.HandleInbound(context.Background(), f.userID, testFrom, "Actually can we reschedule?"); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}

	if f.responder.callCount() != 0 {
		t.Errorf("model was called on a terminal thread")
	}
	if len(f.sender.bodies()) != 0 {
		t.Errorf("a reply was sent on a terminal thread")
	}
	transcript := f.store.transcript(testFrom)
	if len(transcript) != 1 || transcript[0].Role != RoleUser {
		t.Errorf("inbound message was not persisted: %+v", transcript)
	}
	if names := f.bus.names(); len(names) != 1 || names[0] != "conversation.needs_human" {
		t.Errorf("published = %v", names)
	}
}

func TestModelFailureKeepsThreadActive(t *testing.T) {
	f := newFixture(t)
	f.responder.err = errors.New("provider timeout")

	if err := f.orch.HandleInbound(context.Background(), f.userID, testFrom, "Hello?"); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}

	if f.store.state(testFrom) != StateActive {
		t.Errorf("state = %s, want Active", f.store.state(testFrom))
	}
	if len(f.sender.bodies()) != 0 {
		t.Errorf("a reply was sent despite the model failing")
	}
	transcript := f.store.transcript(testFrom)
	if len(transcript) != 1 || transcript[0].Role != RoleUser {
		t.Errorf("inbound message was not persisted: %+v", transcript)
	}
}

func TestSendRetriesUntilSuccess(t *testing.T) {
	f := newFixture(t)
	f.sender.failures = 2

	if err := f.orch.HandleInbound(context.Background(), f.userID, testFrom, "Hi"); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}

	if got := f.sender.bodies(); len(got) != 1 {
		t.Fatalf("delivered %d messages, want 1 after retries", len(got))
	}
}

func TestConcurrentTurnsSameHandleAreSerialized(t *testing.T) {
	f := newFixture(t)
	f.responder.delay = 20 * time.Millisecond

	const turns = 5
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.orch.HandleInbound(context.Background(), f.userID, testFrom, "ping"); err != nil {
				t.Errorf("HandleInbound() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if f.responder.overlap {
		t.Error("two turns for the same handle ran concurrently")
	}
	if f.responder.callCount() != turns {
		t.Errorf("model calls = %d, want %d", f.responder.callCount(), turns)
	}
	transcript := f.store.transcript(testFrom)
	if len(transcript) != turns*2 {
		t.Errorf("transcript length = %d, want %d", len(transcript), turns*2)
	}
}
