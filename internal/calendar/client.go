// Package calendar talks to the external calendar provider over HTTP.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadpilot_backend/platform/config"
	"leadpilot_backend/platform/logger"
)

// Event is one calendar entry as the provider reports it.
type Event struct {
	ID      string    `json:"id,omitempty"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Client is an HTTP client for the calendar provider.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

// NewClient returns nil when no provider is configured; callers treat a nil
// client as booking-unavailable.
func NewClient(cfg config.CalendarConfig, log *logger.Logger) *Client {
	if cfg.GetCalendarURL() == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetCalendarURL(), "/"),
		apiKey:  cfg.GetCalendarAPIKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// ListBusy returns events overlapping [from, to) on the calendar.
func (c *Client) ListBusy(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error) {
	if c == nil {
		return nil, fmt.Errorf("calendar provider not configured")
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events?from=%s&to=%s",
		c.baseURL,
		url.PathEscape(calendarID),
		url.QueryEscape(from.Format(time.RFC3339)),
		url.QueryEscape(to.Format(time.RFC3339)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, readError(resp)
	}

	var parsed struct {
		Events []Event `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode calendar events: %w", err)
	}
	return parsed.Events, nil
}

// Insert creates the event and returns it with the provider-assigned ID.
func (c *Client) Insert(ctx context.Context, calendarID string, event Event) (Event, error) {
	if c == nil {
		return Event{}, fmt.Errorf("calendar provider not configured")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("marshal calendar event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(data))
	if err != nil {
		return Event{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Event{}, fmt.Errorf("calendar request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return Event{}, readError(resp)
	}

	var created Event
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return Event{}, fmt.Errorf("decode created event: %w", err)
	}

	c.log.Info("calendar event created", "calendar_id", calendarID, "event_id", created.ID)
	return created, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func readError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("calendar provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
