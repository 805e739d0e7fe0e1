package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deep3/social/events"
	"github.com/deep3/social/models"
	"github.com/deep3/social/moderation"
	"github.com/deep3/social/utils"
)

// CreatePostInput is the author supplied part of a post.
type CreatePostInput struct {
	Content   string           `json:"content" binding:"required"`
	Tags      []string         `json:"tags" binding:"required"`
	MediaURLs []string         `json:"media_urls"`
	MediaType models.MediaType `json:"media_type"`
}

// Page is one slice of the feed.
type Page struct {
	Items      []models.Post `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
	Fallback   bool          `json:"fallback,omitempty"`
}

// NormalizeTags trims, lowercases and de-duplicates tags, dropping any leading '#'.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(utils.PlainText(t))
		t = strings.TrimLeft(t, "#")
		out = append(out, strings.ToLower(strings.TrimSpace(t)))
	}
	return utils.UniqueStrings(out)
}

// CreatePost stores a new post for the caller and bumps their post counter in the same transaction.
func (s *Store) CreatePost(ctx context.Context, sess *models.Session, in CreatePostInput) (*models.Post, error) {
	if err := moderation.CanParticipate(sess); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(in.MediaURLs))
	for _, u := range in.MediaURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	mediaType := in.MediaType
	if mediaType == "" {
		mediaType = models.InferMediaType(urls)
	}
	now := s.clock()
	post := &models.Post{
		AuthorID:  sess.UserID,
		Content:   utils.Sanitize(in.Content),
		Tags:      NormalizeTags(in.Tags),
		MediaURLs: urls,
		MediaType: mediaType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := post.Validate(); err != nil {
		return nil, err
	}

	db, cancel := s.begin(ctx)
	defer cancel()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		res := tx.Model(&models.User{}).Where("id = ?", sess.UserID).
			UpdateColumn("stats_posts", gorm.Expr("stats_posts + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("user", sess.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, wrap("create post", err)
	}
	post.Likes, post.Shares, post.Comments = []string{}, []string{}, []string{}
	s.publish(ctx, events.PostCreated, sess.UserID, post.ID, map[string]any{"tags": []string(post.Tags)})
	return post, nil
}

// GetPost returns a single hydrated post, including flagged and removed ones.
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	db, cancel := s.begin(ctx)
	defer cancel()

	post, err := loadPost(db, id)
	if err != nil {
		return nil, wrap("get post", err)
	}
	posts := []models.Post{*post}
	if err := hydratePosts(db, posts); err != nil {
		return nil, wrap("get post", err)
	}
	return &posts[0], nil
}

// ListPosts returns visible posts newest first. The cursor is opaque and comes from a previous page.
func (s *Store) ListPosts(ctx context.Context, cursorToken string, pageSize int) (*Page, error) {
	pageSize = clampPageSize(pageSize)
	db, cancel := s.begin(ctx)
	defer cancel()

	q := db.Model(&models.Post{}).Where("is_flagged = ? AND is_removed = ?", false, false)
	if cursorToken != "" {
		c, err := decodeCursor(cursorToken)
		if err != nil {
			return nil, err
		}
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", c.CreatedAt, c.CreatedAt, c.ID)
	}
	var posts []models.Post
	if err := q.Order("created_at DESC").Order("id DESC").Limit(pageSize).Find(&posts).Error; err != nil {
		return nil, wrap("list posts", err)
	}
	if err := hydratePosts(db, posts); err != nil {
		return nil, wrap("list posts", err)
	}

	page := &Page{Items: posts, HasMore: len(posts) == pageSize}
	if page.Items == nil {
		page.Items = []models.Post{}
	}
	if page.HasMore {
		last := posts[len(posts)-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// ToggleLike flips the caller's like on a post and reports whether it is now liked.
func (s *Store) ToggleLike(ctx context.Context, sess *models.Session, postID string) (bool, error) {
	if err := moderation.CanParticipate(sess); err != nil {
		return false, err
	}
	db, cancel := s.begin(ctx)
	defer cancel()

	var liked bool
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := loadOpenPost(tx, postID); err != nil {
			return err
		}
		res := tx.Where("post_id = ? AND user_id = ?", postID, sess.UserID).Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}
		liked = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PostLike{
			PostID:    postID,
			UserID:    sess.UserID,
			CreatedAt: s.clock(),
		}).Error
	})
	if err != nil {
		return false, wrap("toggle like", err)
	}
	typ := events.PostUnliked
	if liked {
		typ = events.PostLiked
	}
	s.publish(ctx, typ, sess.UserID, postID, nil)
	return liked, nil
}

// SharePost records a share. Shares are not de-duplicated, unlike likes.
func (s *Store) SharePost(ctx context.Context, sess *models.Session, postID string) (int64, error) {
	if err := moderation.CanParticipate(sess); err != nil {
		return 0, err
	}
	db, cancel := s.begin(ctx)
	defer cancel()

	var total int64
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := loadOpenPost(tx, postID); err != nil {
			return err
		}
		share := &models.PostShare{PostID: postID, UserID: sess.UserID, CreatedAt: s.clock()}
		if err := tx.Create(share).Error; err != nil {
			return err
		}
		return tx.Model(&models.PostShare{}).Where("post_id = ?", postID).Count(&total).Error
	})
	if err != nil {
		return 0, wrap("share post", err)
	}
	s.publish(ctx, events.PostShared, sess.UserID, postID, map[string]any{"shares": total})
	return total, nil
}

func loadPost(tx *gorm.DB, id string) (*models.Post, error) {
	var post models.Post
	if err := tx.Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("post", id)
		}
		return nil, err
	}
	return &post, nil
}

// loadOpenPost loads a post that still accepts likes, shares and comments.
func loadOpenPost(tx *gorm.DB, id string) (*models.Post, error) {
	post, err := loadPost(tx, id)
	if err != nil {
		return nil, err
	}
	if post.IsRemoved {
		return nil, fmt.Errorf("%w: post %s has been removed", ErrConflict, id)
	}
	return post, nil
}

// hydratePosts fills Likes, Shares and Comments from their tables in place.
func hydratePosts(tx *gorm.DB, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Likes, posts[i].Shares, posts[i].Comments = []string{}, []string{}, []string{}
	}

	var likes []models.PostLike
	if err := tx.Where("post_id IN ?", ids).Order("created_at ASC").Order("user_id ASC").Find(&likes).Error; err != nil {
		return err
	}
	for _, l := range likes {
		p := &posts[index[l.PostID]]
		p.Likes = append(p.Likes, l.UserID)
	}

	var shares []models.PostShare
	if err := tx.Where("post_id IN ?", ids).Order("created_at ASC").Order("id ASC").Find(&shares).Error; err != nil {
		return err
	}
	for _, sh := range shares {
		p := &posts[index[sh.PostID]]
		p.Shares = append(p.Shares, sh.UserID)
	}

	var comments []models.Comment
	if err := tx.Select("id", "post_id").Where("post_id IN ?", ids).
		Order("created_at ASC").Order("id ASC").Find(&comments).Error; err != nil {
		return err
	}
	for _, c := range comments {
		p := &posts[index[c.PostID]]
		p.Comments = append(p.Comments, c.ID)
	}
	return nil
}
