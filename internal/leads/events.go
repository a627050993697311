package leads

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// EventContentMaxLen is the canonical maximum character length for event content.
// Callers should use TruncateContent when populating AppendEventParams.Content.
const EventContentMaxLen = 400

// TruncateContent trims text to maxLen, appending "..." on overflow.
func TruncateContent(text string, maxLen int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen] + "..."
	}
	return trimmed
}

// AppendEventParams carries the fields for one activity log entry.
type AppendEventParams struct {
	LeadID    uuid.UUID
	EventType string
	Content   string
	Metadata  map[string]any
}

// AppendEvent writes one entry to the append-only activity log.
func (r *Repository) AppendEvent(ctx context.Context, params AppendEventParams) (Event, error) {
	metadataJSON, err := json.Marshal(params.Metadata)
	if err != nil {
		return Event{}, err
	}

	var event Event
	// metadata is excluded from RETURNING: we already hold params.Metadata as
	// a Go value, so re-scanning the stored JSONB would be a redundant decode.
	err = r.pool.QueryRow(ctx, `
		INSERT INTO lead_events (lead_id, event_type, content, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, event_type, content, created_at`,
		params.LeadID, params.EventType, params.Content, metadataJSON,
	).Scan(
		&event.ID,
		&event.LeadID,
		&event.EventType,
		&event.Content,
		&event.CreatedAt,
	)
	if err != nil {
		return Event{}, err
	}

	event.Metadata = params.Metadata
	return event, nil
}

// ListEvents returns the activity log for a lead, oldest first.
func (r *Repository) ListEvents(ctx context.Context, leadID uuid.UUID) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, event_type, content, metadata, created_at
		FROM lead_events
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var event Event
		var rawMetadata []byte
		if err := rows.Scan(
			&event.ID,
			&event.LeadID,
			&event.EventType,
			&event.Content,
			&rawMetadata,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(rawMetadata) > 0 {
			_ = json.Unmarshal(rawMetadata, &event.Metadata)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
