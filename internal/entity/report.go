package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report is the immutable before/after summary of one completed job.
type Report struct {
	ID              uuid.UUID       `json:"id"`
	JobID           uuid.UUID       `json:"job_id"`
	InitialScore    int             `json:"initial_quality_score"`
	FinalScore      int             `json:"final_quality_score"`
	Issues          json.RawMessage `json:"issues_found"`
	Actions         []string        `json:"actions_taken"`
	CleanedFilePath string          `json:"cleaned_file_path"`
	CreatedAt       time.Time       `json:"created_at"`
}
