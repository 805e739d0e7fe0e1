package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reply scoped to exactly one post.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;index:idx_comments_post_created,priority:1;not null" json:"post_id" validate:"required"`
	AuthorID  string    `gorm:"size:36;index;not null" json:"author_id" validate:"required"`
	Content   string    `gorm:"type:text;not null" json:"content" validate:"required,max=2000"`
	CreatedAt time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Likes []string `gorm:"-" json:"likes"`
}

// BeforeCreate assigns an id when the caller did not.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CommentLike is one user's like on a comment.
type CommentLike struct {
	CommentID string    `gorm:"primaryKey;size:36" json:"comment_id"`
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
