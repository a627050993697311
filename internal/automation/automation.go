// Package automation matches lead lifecycle triggers against operator-defined
// rules and dispatches templated messages over the configured channels.
package automation

import (
	"time"

	"github.com/google/uuid"
)

// Automation is one operator-defined dispatch rule.
// Nil MinScore/MaxScore mean the default range bound (0 and 100).
// Empty IntentIn/StageIn match every intent/stage.
type Automation struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	TriggerName string
	Channel     string
	Template    string
	Enabled     bool
	MinScore    *int
	MaxScore    *int
	IntentIn    []string
	StageIn     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Dispatch outcome statuses.
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// DispatchResult reports the outcome for one matched automation.
type DispatchResult struct {
	AutomationID   uuid.UUID `json:"automationId"`
	AutomationName string    `json:"automationName"`
	Channel        string    `json:"channel"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	DeliveryID     string    `json:"deliveryId,omitempty"`
}

// scoreRange returns the effective inclusive score bounds.
func (a Automation) scoreRange() (int, int) {
	min, max := 0, 100
	if a.MinScore != nil {
		min = *a.MinScore
	}
	if a.MaxScore != nil {
		max = *a.MaxScore
	}
	return min, max
}

// Matches evaluates the rule's conditions against a lead snapshot.
// All conditions must hold; empty set conditions always hold.
func (a Automation) Matches(score int, intent, stage string) bool {
	min, max := a.scoreRange()
	if score < min || score > max {
		return false
	}
	if len(a.IntentIn) > 0 && !contains(a.IntentIn, intent) {
		return false
	}
	if len(a.StageIn) > 0 && !contains(a.StageIn, stage) {
		return false
	}
	return true
}

func contains(set []string, value string) bool {
	for _, item := range set {
		if item == value {
			return true
		}
	}
	return false
}
