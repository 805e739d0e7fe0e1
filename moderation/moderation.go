// Package moderation holds the rules for who may change post and user trust state,
// and which state changes are allowed.
package moderation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deep3/social/models"
)

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid moderation transition")
)

// PostState is the moderation state of a post.
type PostState string

const (
	StateActive   PostState = "active"
	StateFlagged  PostState = "flagged"
	StateApproved PostState = "approved"
	StateRemoved  PostState = "removed"
)

// StateOf derives the moderation state from the stored flags.
func StateOf(p *models.Post) PostState {
	switch {
	case p.IsRemoved:
		return StateRemoved
	case p.IsFlagged:
		return StateFlagged
	case p.IsModerated:
		return StateApproved
	default:
		return StateActive
	}
}

// NextPostState returns the state a post moves to when action is applied in state from.
// Re-flagging a flagged post is allowed and only replaces the reason.
func NextPostState(from PostState, action models.ModerationAction) (PostState, error) {
	switch action {
	case models.ActionFlagged:
		if from == StateActive || from == StateApproved || from == StateFlagged {
			return StateFlagged, nil
		}
	case models.ActionApproved:
		if from == StateFlagged {
			return StateApproved, nil
		}
	case models.ActionRemoved:
		if from == StateFlagged {
			return StateRemoved, nil
		}
	}
	return from, fmt.Errorf("%w: cannot apply %s to a %s post", ErrInvalidTransition, action, from)
}

// RequireAdmin checks that sess belongs to an active admin.
func RequireAdmin(sess *models.Session) error {
	if sess == nil || sess.UserID == "" {
		return ErrUnauthenticated
	}
	if !sess.IsAdmin {
		return fmt.Errorf("%w: admin only", ErrForbidden)
	}
	if sess.IsSuspended {
		return fmt.Errorf("%w: suspended accounts cannot moderate", ErrForbidden)
	}
	return nil
}

// Authorize checks that sess may perform a moderation action.
func Authorize(sess *models.Session, action models.ModerationAction) error {
	if err := RequireAdmin(sess); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

// CanParticipate checks that sess may post, comment, like or share.
func CanParticipate(sess *models.Session) error {
	if sess == nil || sess.UserID == "" {
		return ErrUnauthenticated
	}
	if sess.IsSuspended {
		return fmt.Errorf("%w: account is suspended", ErrForbidden)
	}
	return nil
}

// CheckVerify validates the Unverified -> Verified transition for target.
func CheckVerify(target *models.User) error {
	switch {
	case target.Role == models.RoleParent:
		return fmt.Errorf("%w: parent accounts do not go through verification", ErrInvalidTransition)
	case target.IsAdmin:
		return fmt.Errorf("%w: admin accounts are verified at grant time", ErrInvalidTransition)
	case target.IsVerified:
		return fmt.Errorf("%w: user is already verified", ErrInvalidTransition)
	}
	return nil
}

// CheckSuspend validates the Active -> Suspended transition for target.
func CheckSuspend(sess *models.Session, target *models.User, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return &models.ValidationError{Field: "reason", Reason: "is required"}
	}
	if target.ID == sess.UserID {
		return fmt.Errorf("%w: admins cannot suspend themselves", ErrInvalidTransition)
	}
	if target.IsSuspended {
		return fmt.Errorf("%w: user is already suspended", ErrInvalidTransition)
	}
	return nil
}
