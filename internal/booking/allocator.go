// Package booking allocates calendar slots for confirmed appointments.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"leadpilot_backend/internal/calendar"
	"leadpilot_backend/platform/logger"
)

// ErrUnavailable means no slot could be reserved on the requested day. It
// covers both a full calendar and a failing provider; the caller reacts the
// same way to either.
var ErrUnavailable = errors.New("no slot available")

// Business window boundaries, in the calendar's local timezone. A slot is
// only written when the whole window is free.
const (
	windowStartHour = 10
	windowEndHour   = 16
	slotDuration    = time.Hour
)

// slotSummary is the title written on every reserved calendar event.
const slotSummary = "Intro Call"

// Provider is the calendar surface the allocator depends on.
type Provider interface {
	ListBusy(ctx context.Context, calendarID string, from, to time.Time) ([]calendar.Event, error)
	Insert(ctx context.Context, calendarID string, event calendar.Event) (calendar.Event, error)
}

// Slot is a successfully reserved appointment.
type Slot struct {
	Start   time.Time
	End     time.Time
	EventID string
}

// Allocator serializes reservations per calendar day so two concurrent
// conversations can never double-book the same slot.
type Allocator struct {
	provider   Provider
	calendarID string
	loc        *time.Location
	log        *logger.Logger

	mu       sync.Mutex
	dayLocks map[string]*sync.Mutex
}

func NewAllocator(provider Provider, calendarID string, loc *time.Location, log *logger.Logger) *Allocator {
	if loc == nil {
		loc = time.UTC
	}
	return &Allocator{
		provider:   provider,
		calendarID: calendarID,
		loc:        loc,
		log:        log,
		dayLocks:   make(map[string]*sync.Mutex),
	}
}

// Location returns the timezone reservations are interpreted in.
func (a *Allocator) Location() *time.Location {
	return a.loc
}

// Reserve books the first slot of the business window on the given day. The
// check-then-insert sequence runs under a per-day lock, so concurrent calls
// for the same day resolve to exactly one winner.
func (a *Allocator) Reserve(ctx context.Context, day time.Time) (Slot, error) {
	if a.provider == nil || a.calendarID == "" {
		return Slot{}, ErrUnavailable
	}

	local := day.In(a.loc)
	windowStart := time.Date(local.Year(), local.Month(), local.Day(), windowStartHour, 0, 0, 0, a.loc)
	windowEnd := time.Date(local.Year(), local.Month(), local.Day(), windowEndHour, 0, 0, 0, a.loc)

	if windowEnd.Before(time.Now().In(a.loc)) {
		return Slot{}, ErrUnavailable
	}

	lock := a.dayLock(windowStart)
	lock.Lock()
	defer lock.Unlock()

	busy, err := a.provider.ListBusy(ctx, a.calendarID, windowStart, windowEnd)
	if err != nil {
		a.log.ProviderError("calendar", "list_busy", err)
		return Slot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, event := range busy {
		if event.Start.Before(windowEnd) && event.End.After(windowStart) {
			return Slot{}, ErrUnavailable
		}
	}

	created, err := a.provider.Insert(ctx, a.calendarID, calendar.Event{
		Summary: slotSummary,
		Start:   windowStart,
		End:     windowStart.Add(slotDuration),
	})
	if err != nil {
		a.log.ProviderError("calendar", "insert_event", err)
		return Slot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return Slot{
		Start:   windowStart,
		End:     windowStart.Add(slotDuration),
		EventID: created.ID,
	}, nil
}

func (a *Allocator) dayLock(day time.Time) *sync.Mutex {
	key := a.calendarID + "|" + day.Format("2006-01-02")

	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.dayLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		a.dayLocks[key] = lock
	}
	return lock
}
