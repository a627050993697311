package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadpilot_backend/internal/calendar"
	"leadpilot_backend/platform/logger"
)

type fakeProvider struct {
	mu           sync.Mutex
	events       []calendar.Event
	listCalls    int
	insertCalls  int
	listErr      error
	insertErr    error
	doubleBooked bool
}

func (f *fakeProvider) ListBusy(_ context.Context, _ string, from, to time.Time) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}

	var busy []calendar.Event
	for _, e := range f.events {
		if e.Start.Before(to) && e.End.After(from) {
			busy = append(busy, e)
		}
	}
	return busy, nil
}

func (f *fakeProvider) Insert(_ context.Context, _ string, event calendar.Event) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return calendar.Event{}, f.insertErr
	}

	for _, e := range f.events {
		if e.Start.Before(event.End) && e.End.After(event.Start) {
			f.doubleBooked = true
		}
	}

	event.ID = "evt-1"
	f.events = append(f.events, event)
	return event, nil
}

func newTestAllocator(provider *fakeProvider) *Allocator {
	return NewAllocator(provider, "primary", time.UTC, logger.New("development"))
}

func nextWeek() time.Time {
	return time.Now().UTC().AddDate(0, 0, 7)
}

func TestReserveBooksFirstWindowSlot(t *testing.T) {
	provider := &fakeProvider{}
	alloc := newTestAllocator(provider)

	day := nextWeek()
	slot, err := alloc.Reserve(context.Background(), day)
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}

	if slot.Start.Hour() != windowStartHour || slot.Start.Minute() != 0 {
		t.Errorf("slot start = %v, want %02d:00", slot.Start, windowStartHour)
	}
	if got := slot.End.Sub(slot.Start); got != slotDuration {
		t.Errorf("slot length = %v, want %v", got, slotDuration)
	}
	if slot.EventID == "" {
		t.Error("slot has no provider event id")
	}
	if len(provider.events) != 1 || provider.events[0].Summary != slotSummary {
		t.Errorf("provider events = %+v", provider.events)
	}
}

func TestReserveUnavailableWhenWindowBusy(t *testing.T) {
	day := nextWeek()
	noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC)

	provider := &fakeProvider{events: []calendar.Event{
		{ID: "existing", Summary: "Site visit", Start: noon, End: noon.Add(time.Hour)},
	}}
	alloc := newTestAllocator(provider)

	_, err := alloc.Reserve(context.Background(), day)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Reserve() error = %v, want ErrUnavailable", err)
	}
	if provider.insertCalls != 0 {
		t.Errorf("insert was called on a busy day")
	}
}

func TestReserveProviderErrors(t *testing.T) {
	t.Run("list failure", func(t *testing.T) {
		provider := &fakeProvider{listErr: errors.New("provider down")}
		alloc := newTestAllocator(provider)

		_, err := alloc.Reserve(context.Background(), nextWeek())
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Reserve() error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("insert failure", func(t *testing.T) {
		provider := &fakeProvider{insertErr: errors.New("provider down")}
		alloc := newTestAllocator(provider)

		_, err := alloc.Reserve(context.Background(), nextWeek())
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Reserve() error = %v, want ErrUnavailable", err)
		}
	})
}

func TestReservePastDayUnavailable(t *testing.T) {
	provider := &fakeProvider{}
	alloc := newTestAllocator(provider)

	_, err := alloc.Reserve(context.Background(), time.Now().UTC().AddDate(0, 0, -2))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Reserve() error = %v, want ErrUnavailable", err)
	}
	if provider.listCalls != 0 {
		t.Errorf("provider consulted for a day in the past")
	}
}

func TestReserveNilProviderUnavailable(t *testing.T) {
	alloc := NewAllocator(nil, "primary", time.UTC, logger.New("development"))

	_, err := alloc.Reserve(context.Background(), nextWeek())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Reserve() error = %v, want ErrUnavailable", err)
	}
}

func TestConcurrentReserveSingleWinner(t *testing.T) {
	provider := &fakeProvider{}
	alloc := newTestAllocator(provider)
	day := nextWeek()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := alloc.Reserve(context.Background(), day)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrUnavailable):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if won != 1 {
		t.Errorf("winners = %d, want exactly 1", won)
	}
	if lost != workers-1 {
		t.Errorf("losers = %d, want %d", lost, workers-1)
	}
	if provider.insertCalls != 1 {
		t.Errorf("insert calls = %d, want 1", provider.insertCalls)
	}
	if provider.doubleBooked {
		t.Error("overlapping events were written to the calendar")
	}
}
