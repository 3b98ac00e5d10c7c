package report

import (
	"time"

	"github.com/google/uuid"
)

// Event is the payload delivered to every sink after a task run.
type Event struct {
	ID          string         `json:"id" yaml:"id"`
	Task        string         `json:"task" yaml:"task"`
	Changed     bool           `json:"changed" yaml:"changed"`
	Failed      bool           `json:"failed" yaml:"failed"`
	Message     string         `json:"message,omitempty" yaml:"message,omitempty"`
	Data        map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Warnings    []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	CollectedAt time.Time      `json:"collected_at" yaml:"collected_at"`
}

// NewEvent constructs an Event for a completed task.
func NewEvent(task string, changed bool, data map[string]any, warnings []string) Event {
	return Event{
		ID:          uuid.NewString(),
		Task:        task,
		Changed:     changed,
		Data:        data,
		Warnings:    warnings,
		CollectedAt: time.Now().UTC(),
	}
}

// FailedEvent constructs an Event for a task that returned err. sepmData is
// the body SEPM answered with, when there was one.
func FailedEvent(task string, err error, sepmData any) Event {
	evt := Event{
		ID:          uuid.NewString(),
		Task:        task,
		Failed:      true,
		CollectedAt: time.Now().UTC(),
	}
	if err != nil {
		evt.Message = err.Error()
	}
	if sepmData != nil {
		evt.Data = map[string]any{"sepm_data": sepmData}
	}
	return evt
}
