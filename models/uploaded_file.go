package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadedFile records where a media upload ended up.
type UploadedFile struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     string    `gorm:"size:36;index;not null" json:"owner_id"`
	Category    string    `gorm:"size:32;not null" json:"category"`
	Key         string    `gorm:"size:1024;not null" json:"key"`
	URL         string    `gorm:"size:1024;not null" json:"url"`
	Backend     string    `gorm:"size:16;not null" json:"backend"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate assigns an id when the caller did not.
func (f *UploadedFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
