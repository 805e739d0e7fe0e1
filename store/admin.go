package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/deep3/social/events"
	"github.com/deep3/social/models"
	"github.com/deep3/social/moderation"
)

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers       int64 `json:"total_users"`
	VerifiedTeachers int64 `json:"verified_teachers"`
	PostsToday       int64 `json:"posts_today"`
	FlaggedContent   int64 `json:"flagged_content"`
}

const defaultLogLimit = 100

// FlagPost hides a post from the feed pending review. Flagging an already flagged post replaces the reason.
func (s *Store) FlagPost(ctx context.Context, sess *models.Session, postID, reason string, opts ...moderation.LogOption) error {
	if err := moderation.Authorize(sess, models.ActionFlagged); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return &models.ValidationError{Field: "reason", Reason: "is required"}
	}
	return s.moderatePost(ctx, sess, postID, models.ActionFlagged, reason, opts, func(p *models.Post) map[string]any {
		return map[string]any{"is_flagged": true, "flag_reason": reason}
	})
}

// ApprovePost clears the flag and marks the post as reviewed.
func (s *Store) ApprovePost(ctx context.Context, sess *models.Session, postID, note string) error {
	if err := moderation.Authorize(sess, models.ActionApproved); err != nil {
		return err
	}
	return s.moderatePost(ctx, sess, postID, models.ActionApproved, note, nil, func(p *models.Post) map[string]any {
		return map[string]any{"is_flagged": false, "flag_reason": "", "is_moderated": true}
	})
}

// RemovePost tombstones a flagged post. The row is kept for the audit trail.
func (s *Store) RemovePost(ctx context.Context, sess *models.Session, postID, reason string) error {
	if err := moderation.Authorize(sess, models.ActionRemoved); err != nil {
		return err
	}
	return s.moderatePost(ctx, sess, postID, models.ActionRemoved, reason, nil, func(p *models.Post) map[string]any {
		why := strings.TrimSpace(reason)
		if why == "" {
			why = p.FlagReason
		}
		return map[string]any{"is_removed": true, "removed_reason": why, "is_moderated": true}
	})
}

var postEvents = map[models.ModerationAction]string{
	models.ActionFlagged:  events.PostFlagged,
	models.ActionApproved: events.PostApproved,
	models.ActionRemoved:  events.PostRemoved,
}

// moderatePost applies one post transition and writes its log entry atomically.
// The update is guarded on the state it was read in so a concurrent moderator cannot be overwritten.
func (s *Store) moderatePost(ctx context.Context, sess *models.Session, postID string, action models.ModerationAction,
	reason string, opts []moderation.LogOption, changes func(*models.Post) map[string]any) error {
	db, cancel := s.begin(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		post, err := loadPost(tx, postID)
		if err != nil {
			return err
		}
		from := moderation.StateOf(post)
		if _, err := moderation.NextPostState(from, action); err != nil {
			return err
		}
		now := s.clock()
		entry, err := moderation.NewLog(sess, action, models.TargetPost, postID, reason, now, opts...)
		if err != nil {
			return err
		}

		updates := changes(post)
		updates["updated_at"] = now
		res := tx.Model(&models.Post{}).
			Where("id = ? AND is_flagged = ? AND is_removed = ? AND is_moderated = ?",
				postID, post.IsFlagged, post.IsRemoved, post.IsModerated).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: post %s changed concurrently", ErrInvalidTransition, postID)
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return wrap(string(action)+" post", err)
	}
	s.log.Info("post moderated",
		zap.String("post_id", postID),
		zap.String("action", string(action)),
		zap.String("moderator_id", sess.UserID))
	s.publish(ctx, postEvents[action], sess.UserID, postID, map[string]any{"reason": strings.TrimSpace(reason)})
	return nil
}

// VerifyUser marks a teacher or educator as verified.
func (s *Store) VerifyUser(ctx context.Context, sess *models.Session, userID string) error {
	if err := moderation.Authorize(sess, models.ActionVerifyUser); err != nil {
		return err
	}
	return s.moderateUser(ctx, sess, userID, models.ActionVerifyUser, "",
		func(u *models.User) error { return moderation.CheckVerify(u) },
		map[string]any{"is_verified": true}, "is_verified = ?", false)
}

// SuspendUser blocks a user from participating. Suspension is one way.
func (s *Store) SuspendUser(ctx context.Context, sess *models.Session, userID, reason string) error {
	if err := moderation.Authorize(sess, models.ActionSuspendUser); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	return s.moderateUser(ctx, sess, userID, models.ActionSuspendUser, reason,
		func(u *models.User) error { return moderation.CheckSuspend(sess, u, reason) },
		map[string]any{"is_suspended": true, "suspended_reason": reason}, "is_suspended = ?", false)
}

var userEvents = map[models.ModerationAction]string{
	models.ActionVerifyUser:  events.UserVerified,
	models.ActionSuspendUser: events.UserSuspended,
}

func (s *Store) moderateUser(ctx context.Context, sess *models.Session, userID string, action models.ModerationAction,
	reason string, check func(*models.User) error, updates map[string]any, guard string, guardArg any) error {
	db, cancel := s.begin(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		if err := check(user); err != nil {
			return err
		}
		now := s.clock()
		entry, err := moderation.NewLog(sess, action, models.TargetUser, userID, reason, now)
		if err != nil {
			return err
		}
		updates["updated_at"] = now
		res := tx.Model(&models.User{}).Where("id = ?", userID).Where(guard, guardArg).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: user %s changed concurrently", ErrInvalidTransition, userID)
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return wrap(string(action), err)
	}
	s.publish(ctx, userEvents[action], sess.UserID, userID, nil)
	return nil
}

// GetAllUsers lists every account, newest first.
func (s *Store) GetAllUsers(ctx context.Context, sess *models.Session) ([]models.User, error) {
	if err := moderation.RequireAdmin(sess); err != nil {
		return nil, err
	}
	db, cancel := s.begin(ctx)
	defer cancel()

	users := []models.User{}
	if err := db.Order("created_at DESC").Order("id DESC").Find(&users).Error; err != nil {
		return nil, wrap("list users", err)
	}
	return users, nil
}

// GetFlaggedPosts lists posts awaiting review, most recently flagged first.
func (s *Store) GetFlaggedPosts(ctx context.Context, sess *models.Session) ([]models.Post, error) {
	if err := moderation.RequireAdmin(sess); err != nil {
		return nil, err
	}
	db, cancel := s.begin(ctx)
	defer cancel()

	posts := []models.Post{}
	err := db.Where("is_flagged = ? AND is_removed = ?", true, false).
		Order("updated_at DESC").Order("id DESC").Find(&posts).Error
	if err != nil {
		return nil, wrap("list flagged posts", err)
	}
	if err := hydratePosts(db, posts); err != nil {
		return nil, wrap("list flagged posts", err)
	}
	return posts, nil
}

// ListModerationLogs returns the newest audit entries first.
func (s *Store) ListModerationLogs(ctx context.Context, sess *models.Session, limit int) ([]models.ModerationLog, error) {
	if err := moderation.RequireAdmin(sess); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = defaultLogLimit
	}
	db, cancel := s.begin(ctx)
	defer cancel()

	logs := []models.ModerationLog{}
	if err := db.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, wrap("list moderation logs", err)
	}
	return logs, nil
}

// AdminStats counts the dashboard figures. "Today" starts at midnight UTC.
func (s *Store) AdminStats(ctx context.Context, sess *models.Session) (*Stats, error) {
	if err := moderation.RequireAdmin(sess); err != nil {
		return nil, err
	}
	db, cancel := s.begin(ctx)
	defer cancel()

	now := s.clock()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var st Stats
	queries := []struct {
		dst *int64
		q   *gorm.DB
	}{
		{&st.TotalUsers, db.Model(&models.User{})},
		{&st.VerifiedTeachers, db.Model(&models.User{}).
			Where("role IN ? AND is_verified = ?", []models.Role{models.RoleTeacher, models.RoleEducator}, true)},
		{&st.PostsToday, db.Model(&models.Post{}).Where("created_at >= ?", midnight)},
		{&st.FlaggedContent, db.Model(&models.Post{}).Where("is_flagged = ? AND is_removed = ?", true, false)},
	}
	for _, item := range queries {
		if err := item.q.Count(item.dst).Error; err != nil {
			return nil, wrap("admin stats", err)
		}
	}
	return &st, nil
}
