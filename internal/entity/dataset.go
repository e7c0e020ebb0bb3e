package entity

import (
	"time"

	"github.com/google/uuid"
)

type Dataset struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	FilePath   string    `json:"file_path"`
	UploadedAt time.Time `json:"uploaded_at"`
}
