package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending   JobStatus = "PENDING"
	StatusRunning   JobStatus = "RUNNING"
	StatusCompleted JobStatus = "COMPLETED"
	StatusFailed    JobStatus = "FAILED"
)

// transitions lists the states each status may move to. PENDING->FAILED is
// only taken by the failure path when the run breaks before RUNNING landed.
var transitions = map[JobStatus][]JobStatus{
	StatusPending: {StatusRunning, StatusFailed},
	StatusRunning: {StatusCompleted, StatusFailed},
}

func CanTransition(from, to JobStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourcesFor returns every status that may move to `to`.
func SourcesFor(to JobStatus) []JobStatus {
	var out []JobStatus
	for _, from := range []JobStatus{StatusPending, StatusRunning, StatusCompleted, StatusFailed} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

type LogEntry struct {
	Seq       int       `json:"seq"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Job struct {
	ID        uuid.UUID  `json:"id"`
	DatasetID uuid.UUID  `json:"dataset_id"`
	Status    JobStatus  `json:"status"`
	Logs      []LogEntry `json:"logs"`
	Report    *Report    `json:"report,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
