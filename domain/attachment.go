package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment binds an uploaded file to an item. FilePath is relative to the
// configured upload root so the tree stays portable across deployments.
type Attachment struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	ItemID       string    `gorm:"size:36;not null;index" json:"item_id"`
	FileName     string    `gorm:"not null" json:"file_name"`
	FilePath     string    `gorm:"not null" json:"file_path"`
	FileSize     int64     `json:"file_size"`
	MimeType     string    `json:"mime_type"`
	UploadedByID string    `gorm:"size:36" json:"uploaded_by_id"`
	UploadedAt   time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (a *Attachment) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
