package models

import "time"

// TaskStatus is the lifecycle state of an async report task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task is one async report generation request. Status moves monotonically
// pending -> processing -> completed|failed; once terminal the task is
// immutable. Tasks are never deleted by the default flows.
type Task struct {
	ID        string                `json:"id"`
	Status    TaskStatus            `json:"status"`
	Request   GenerateReportRequest `json:"request"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
	Error     string                `json:"error,omitempty"`
	Report    *Report               `json:"report,omitempty"`
}
