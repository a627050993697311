package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadpilot_backend/internal/leads"
	"leadpilot_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "default" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 2 }

func TestClientEnqueuesDispatchTask(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	leadID := uuid.New()
	if err := client.EnqueueDispatch(context.Background(), leadID, leads.TriggerLeadCreated); err != nil {
		t.Fatalf("EnqueueDispatch() error = %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer func() {
		_ = inspector.Close()
	}()

	pending, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(pending))
	}
	if pending[0].Type != TaskAutomationDispatch {
		t.Errorf("task type = %q, want %q", pending[0].Type, TaskAutomationDispatch)
	}

	payload, err := ParseAutomationDispatchPayload(asynq.NewTask(pending[0].Type, pending[0].Payload))
	if err != nil {
		t.Fatalf("ParseAutomationDispatchPayload() error = %v", err)
	}
	if payload.LeadID != leadID.String() || payload.Trigger != leads.TriggerLeadCreated {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

type fakeStaleSource struct {
	stale []leads.Lead
}

func (f fakeStaleSource) ListStale(context.Context, time.Time, int) ([]leads.Lead, error) {
	return f.stale, nil
}

type recordingEnqueuer struct {
	mu       sync.Mutex
	enqueued map[uuid.UUID]string
}

func (r *recordingEnqueuer) EnqueueDispatch(_ context.Context, leadID uuid.UUID, trigger string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enqueued == nil {
		r.enqueued = make(map[uuid.UUID]string)
	}
	r.enqueued[leadID] = trigger
	return nil
}

type testSweepConfig struct{}

func (testSweepConfig) GetStaleAfter() time.Duration    { return 72 * time.Hour }
func (testSweepConfig) GetSweepInterval() time.Duration { return time.Hour }

func TestSweeperFiresNoReplyTrigger(t *testing.T) {
	stale := []leads.Lead{
		{ID: uuid.New(), Stage: leads.StageNew},
		{ID: uuid.New(), Stage: leads.StageContacted},
	}
	enqueuer := &recordingEnqueuer{}

	sweeper := NewSweeper(fakeStaleSource{stale: stale}, enqueuer, testSweepConfig{}, logger.New("development"))
	sweeper.sweep(context.Background())

	if len(enqueuer.enqueued) != len(stale) {
		t.Fatalf("enqueued = %d leads, want %d", len(enqueuer.enqueued), len(stale))
	}
	for _, lead := range stale {
		if trigger := enqueuer.enqueued[lead.ID]; trigger != leads.TriggerNoReply3d {
			t.Errorf("lead %s trigger = %q, want %q", lead.ID, trigger, leads.TriggerNoReply3d)
		}
	}
}
