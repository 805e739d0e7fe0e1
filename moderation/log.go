package moderation

import (
	"strings"
	"time"

	"github.com/deep3/social/models"
)

// LogOption customizes a moderation log entry.
type LogOption func(*models.ModerationLog)

// WithAgent marks the entry as raised by an automated reviewer with the given confidence.
func WithAgent(agent models.AgentType, confidence float64) LogOption {
	return func(l *models.ModerationLog) {
		l.AgentType = agent
		c := confidence
		l.Confidence = &c
	}
}

// NewLog builds and validates one audit entry for an action taken by sess.
func NewLog(sess *models.Session, action models.ModerationAction, target models.TargetType, targetID, reason string, at time.Time, opts ...LogOption) (*models.ModerationLog, error) {
	entry := &models.ModerationLog{
		Action:      action,
		TargetType:  target,
		TargetID:    targetID,
		ModeratorID: sess.UserID,
		Reason:      strings.TrimSpace(reason),
		CreatedAt:   at,
	}
	for _, opt := range opts {
		opt(entry)
	}
	if entry.Confidence != nil && entry.AgentType == "" {
		return nil, &models.ValidationError{Field: "confidence", Reason: "only allowed for agent-raised flags"}
	}
	if err := models.Validate(entry); err != nil {
		return nil, err
	}
	return entry, nil
}
