// Package leads owns lead records and their append-only activity log.
package leads

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline stages. Closed and Lost are terminal for the staleness sweep.
const (
	StageNew       = "New"
	StageContacted = "Contacted"
	StageQualified = "Qualified"
	StageBooked    = "Booked"
	StageClosed    = "Closed"
	StageLost      = "Lost"
)

// Analysis enums produced by the AI analyst.
const (
	IntentBooking = "Booking"
	IntentInfo    = "Info"
	IntentPricing = "Pricing"
	IntentSupport = "Support"
	IntentSpam    = "Spam"

	SentimentPositive = "Positive"
	SentimentNeutral  = "Neutral"
	SentimentNegative = "Negative"
)

// Lead event types recorded on the activity log.
const (
	EventFormSubmit  = "FORM_SUBMIT"
	EventAIAnalysis  = "AI_ANALYSIS"
	EventAIDraft     = "AI_DRAFT"
	EventEmailSent   = "EMAIL_SENT"
	EventSMSSent     = "SMS_SENT"
	EventSMSReceived = "SMS_RECEIVED"
	EventStageChange = "STAGE_CHANGE"
	EventBooked      = "BOOKING_CONFIRMED"
	EventNeedsHuman  = "NEEDS_HUMAN"
)

// Lead is a captured prospect belonging to one operator.
type Lead struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Phone     string
	Email     string
	Source    string
	Notes     string
	Stage     string
	Intent    string
	Sentiment string
	Score     int
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event is one append-only activity log entry. Entries are never
// updated or deleted once written.
type Event struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	EventType string
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
}

// IsTerminalStage reports whether the stage excludes a lead from the
// staleness sweep.
func IsTerminalStage(stage string) bool {
	return stage == StageClosed || stage == StageLost
}
