package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModerationAction names what a moderator did.
type ModerationAction string

const (
	ActionFlagged     ModerationAction = "flagged"
	ActionApproved    ModerationAction = "approved"
	ActionRemoved     ModerationAction = "removed"
	ActionVerifyUser  ModerationAction = "verify_user"
	ActionSuspendUser ModerationAction = "suspend_user"
)

// TargetType is the kind of record a log entry points at.
type TargetType string

const (
	TargetPost TargetType = "post"
	TargetUser TargetType = "user"
)

// AgentType identifies an automated reviewer that raised a flag.
type AgentType string

const (
	AgentContentRelevance AgentType = "content-relevance"
	AgentSafetyMonitoring AgentType = "safety-monitoring"
)

// ErrLogImmutable is returned when something tries to change a written log entry.
var ErrLogImmutable = errors.New("moderation log entries are append-only")

// ModerationLog is an append-only audit record of a single moderation action.
type ModerationLog struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	Action      ModerationAction `gorm:"size:16;not null;index" json:"action" validate:"required,oneof=flagged approved removed verify_user suspend_user"`
	TargetType  TargetType       `gorm:"size:8;not null;index:idx_modlog_target,priority:1" json:"target_type" validate:"required,oneof=post user"`
	TargetID    string           `gorm:"size:36;not null;index:idx_modlog_target,priority:2" json:"target_id" validate:"required"`
	ModeratorID string           `gorm:"size:36;not null;index" json:"moderator_id" validate:"required"`
	AgentType   AgentType        `gorm:"size:32" json:"agent_type,omitempty" validate:"omitempty,oneof=content-relevance safety-monitoring"`
	Reason      string           `gorm:"type:text" json:"reason"`
	Confidence  *float64         `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns an id when the caller did not.
func (l *ModerationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// BeforeUpdate refuses any change to a written entry.
func (l *ModerationLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrLogImmutable
}

// BeforeDelete refuses removal of a written entry.
func (l *ModerationLog) BeforeDelete(tx *gorm.DB) error {
	return ErrLogImmutable
}
