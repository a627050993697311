// Package scheduler runs asynchronous work: automation dispatch through an
// asynq queue and the periodic stale-lead sweep.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAutomationDispatch = "automation.dispatch"

type AutomationDispatchPayload struct {
	LeadID  string `json:"leadId"`
	Trigger string `json:"trigger"`
}

func NewAutomationDispatchTask(payload AutomationDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutomationDispatch, data), nil
}

func ParseAutomationDispatchPayload(task *asynq.Task) (AutomationDispatchPayload, error) {
	var payload AutomationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AutomationDispatchPayload{}, err
	}
	return payload, nil
}
