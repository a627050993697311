package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadpilot_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncDeliversToAllHandlers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var calls int
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))
	bus.Subscribe("other.event", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "test.event"}); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	first := errors.New("first failed")
	second := errors.New("second failed")
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error { return first }))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error { return second }))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "test.event"})
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("PublishSync() error = %v, want both handler errors", err)
	}
}

func TestPublishIsAsynchronous(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	done := make(chan struct{})
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		close(done)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "test.event"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		defer wg.Done()
		panic("boom")
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		defer wg.Done()
		return nil
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "test.event"})

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("handlers did not complete")
	}
}

func TestPublishDetachesFromCancelledContext(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	result := make(chan error, 1)
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, _ Event) error {
		result <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, testEvent{NewBaseEvent(), "test.event"})

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("handler context already cancelled: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}
