package group

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the outcome of a trigger firing.
type ExecutionStatus string

// Execution statuses.
const (
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// Execution records one firing of one trigger.
type Execution struct {
	ID               string          `json:"id"`
	Group            string          `json:"group"`
	Input            string          `json:"input"`
	TriggerIndex     int             `json:"trigger_index"`
	Status           ExecutionStatus `json:"status"`
	ActionsTotal     int             `json:"actions_total"`
	ActionsCompleted int             `json:"actions_completed"`
	FailedAction     *string         `json:"failed_action,omitempty"`
	Error            *string         `json:"error,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      time.Time       `json:"completed_at"`
	DurationMS       int             `json:"duration_ms"`
}

// GenerateID returns a new execution ID.
func GenerateID() string {
	return uuid.New().String()
}
