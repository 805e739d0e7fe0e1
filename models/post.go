package models

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MediaType describes what kind of attachments a post carries.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaNone  MediaType = "none"
)

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".m4v": true, ".avi": true, ".mkv": true,
}

// InferMediaType picks a media type for a set of attachment URLs.
func InferMediaType(urls []string) MediaType {
	if len(urls) == 0 {
		return MediaNone
	}
	for _, u := range urls {
		p := u
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
		if videoExts[strings.ToLower(path.Ext(p))] {
			return MediaVideo
		}
	}
	return MediaImage
}

// Post is a unit of user generated content.
// Likes, Shares and Comments are hydrated from their membership tables and never stored on the row.
type Post struct {
	ID            string                      `gorm:"primaryKey;size:36" json:"id"`
	AuthorID      string                      `gorm:"size:36;index;not null" json:"author_id" validate:"required"`
	Content       string                      `gorm:"type:text;not null" json:"content" validate:"required,max=10000"`
	MediaURLs     datatypes.JSONSlice[string] `gorm:"column:media_urls" json:"media_urls" validate:"max=10,dive,required,uri"`
	MediaType     MediaType                   `gorm:"size:8;not null;default:none" json:"media_type" validate:"required,oneof=image video none"`
	Tags          datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags" validate:"min=1,max=10,dive,required,max=50"`
	IsModerated   bool                        `gorm:"not null;default:false" json:"is_moderated"`
	IsFlagged     bool                        `gorm:"not null;default:false;index" json:"is_flagged"`
	FlagReason    string                      `gorm:"size:512" json:"flag_reason,omitempty"`
	IsRemoved     bool                        `gorm:"not null;default:false;index" json:"is_removed"`
	RemovedReason string                      `gorm:"size:512" json:"removed_reason,omitempty"`
	CreatedAt     time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`

	Likes    []string `gorm:"-" json:"likes"`
	Shares   []string `gorm:"-" json:"shares"`
	Comments []string `gorm:"-" json:"comments"`
}

// Validate runs the tag rules plus the cross field invariants.
func (p *Post) Validate() error {
	if err := Validate(p); err != nil {
		return err
	}
	if (p.MediaType == MediaNone) != (len(p.MediaURLs) == 0) {
		return &ValidationError{Field: "media_type", Reason: "must be none exactly when media_urls is empty"}
	}
	if p.IsFlagged && strings.TrimSpace(p.FlagReason) == "" {
		return &ValidationError{Field: "flag_reason", Reason: "required when the post is flagged"}
	}
	return nil
}

// BeforeCreate assigns an id when the caller did not.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PostLike is one user's like on a post. The composite key gives set semantics.
type PostLike struct {
	PostID    string    `gorm:"primaryKey;size:36" json:"post_id"`
	UserID    string    `gorm:"primaryKey;size:36;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostShare records a share. Repeated shares by the same user are kept.
type PostShare struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;index;not null" json:"post_id"`
	UserID    string    `gorm:"size:36;index;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns an id when the caller did not.
func (s *PostShare) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
