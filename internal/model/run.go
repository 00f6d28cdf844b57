package model

import "time"

// RunStatus tracks the lifecycle of one search run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persisted record of one search run.
type Run struct {
	ID             string       `json:"id"`
	Filter         SearchFilter `json:"filter"`
	Status         RunStatus    `json:"status"`
	ProfilesNeeded int          `json:"profiles_needed"`
	OutputDir      string       `json:"output_dir"`
	ResultPath     string       `json:"result_path,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}
