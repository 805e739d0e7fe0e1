package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deep3/social/events"
	"github.com/deep3/social/models"
	"github.com/deep3/social/moderation"
	"github.com/deep3/social/utils"
)

// AddComment appends a comment to an existing, non removed post.
func (s *Store) AddComment(ctx context.Context, sess *models.Session, postID, content string) (*models.Comment, error) {
	if err := moderation.CanParticipate(sess); err != nil {
		return nil, err
	}
	now := s.clock()
	comment := &models.Comment{
		PostID:    postID,
		AuthorID:  sess.UserID,
		Content:   utils.Sanitize(content),
		CreatedAt: now,
		UpdatedAt: now,
		Likes:     []string{},
	}
	if err := models.Validate(comment); err != nil {
		return nil, err
	}

	db, cancel := s.begin(ctx)
	defer cancel()
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := loadOpenPost(tx, postID); err != nil {
			return err
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, wrap("add comment", err)
	}
	s.publish(ctx, events.CommentCreated, sess.UserID, comment.ID, map[string]any{"post_id": postID})
	return comment, nil
}

// ListComments returns the comments of a post oldest first.
func (s *Store) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	db, cancel := s.begin(ctx)
	defer cancel()

	if _, err := loadPost(db, postID); err != nil {
		return nil, wrap("list comments", err)
	}
	comments := []models.Comment{}
	if err := db.Where("post_id = ?", postID).Order("created_at ASC").Order("id ASC").Find(&comments).Error; err != nil {
		return nil, wrap("list comments", err)
	}
	if len(comments) == 0 {
		return comments, nil
	}

	ids := make([]string, len(comments))
	index := make(map[string]int, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
		index[comments[i].ID] = i
		comments[i].Likes = []string{}
	}
	var likes []models.CommentLike
	if err := db.Where("comment_id IN ?", ids).Order("created_at ASC").Order("user_id ASC").Find(&likes).Error; err != nil {
		return nil, wrap("list comments", err)
	}
	for _, l := range likes {
		c := &comments[index[l.CommentID]]
		c.Likes = append(c.Likes, l.UserID)
	}
	return comments, nil
}

// ToggleCommentLike flips the caller's like on a comment and reports whether it is now liked.
func (s *Store) ToggleCommentLike(ctx context.Context, sess *models.Session, commentID string) (bool, error) {
	if err := moderation.CanParticipate(sess); err != nil {
		return false, err
	}
	db, cancel := s.begin(ctx)
	defer cancel()

	var liked bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Where("id = ?", commentID).First(&comment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("comment", commentID)
			}
			return err
		}
		if _, err := loadOpenPost(tx, comment.PostID); err != nil {
			return err
		}
		res := tx.Where("comment_id = ? AND user_id = ?", commentID, sess.UserID).Delete(&models.CommentLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}
		liked = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.CommentLike{
			CommentID: commentID,
			UserID:    sess.UserID,
			CreatedAt: s.clock(),
		}).Error
	})
	if err != nil {
		return false, wrap("toggle comment like", err)
	}
	return liked, nil
}
