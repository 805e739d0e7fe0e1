package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deep3/social/config"
	"github.com/deep3/social/moderation"
	"github.com/deep3/social/storage"
	"github.com/deep3/social/store"
	"github.com/deep3/social/utils"
)

const feedCacheTTL = 30 * time.Second

// PostController serves the feed, posts, comments and media uploads.
type PostController struct {
	store    *store.Store
	feed     store.FeedReader
	fallback store.FeedReader
	uploader *storage.Uploader
}

// NewPostController creates a new PostController. fallback may be nil.
func NewPostController(s *store.Store, fallback store.FeedReader, uploader *storage.Uploader) *PostController {
	return &PostController{store: s, feed: s, fallback: fallback, uploader: uploader}
}

func feedCacheKey(size int) string {
	return fmt.Sprintf("%ssize=%d", utils.CacheFeedPrefix, size)
}

// invalidateFeed drops cached feed pages and trending after any content change.
func invalidateFeed(ctx *gin.Context) {
	utils.CacheInvalidate(ctx.Request.Context(), utils.CacheFeedPrefix, utils.CacheTrendingKey)
}

// ListPosts returns one page of the feed. When the database is down the sample feed is served with fallback=true.
func (p *PostController) ListPosts(ctx *gin.Context) {
	cursor := ctx.Query("cursor")
	size := config.Get().FeedPageSize
	if raw := ctx.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.Error(ctx, http.StatusBadRequest, 40021, "invalid page_size")
			return
		}
		size = n
	}
	if size > store.MaxPageSize {
		size = store.MaxPageSize
	}

	if cursor == "" {
		if cached, ok := utils.CacheGet[store.Page](ctx.Request.Context(), feedCacheKey(size)); ok {
			utils.Success(ctx, cached)
			return
		}
	}

	page, err := p.feed.ListPosts(ctx.Request.Context(), cursor, size)
	if errors.Is(err, store.ErrStoreUnavailable) && p.fallback != nil {
		utils.Sugar.Warnf("feed store unavailable, serving sample feed: %v", err)
		fbCursor := cursor
		if _, convErr := strconv.Atoi(cursor); convErr != nil {
			fbCursor = ""
		}
		page, err = p.fallback.ListPosts(ctx.Request.Context(), fbCursor, size)
	}
	if err != nil {
		respondError(ctx, err, 50021, "failed to list posts")
		return
	}

	if cursor == "" && !page.Fallback {
		utils.CacheSet(ctx.Request.Context(), feedCacheKey(size), page, feedCacheTTL)
	}
	utils.Success(ctx, page)
}

// GetPost returns one post with its likes, shares and comment ids.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.store.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 50022, "failed to load post")
		return
	}
	utils.Success(ctx, gin.H{"post": post, "state": moderation.StateOf(post)})
}

// CreatePost publishes a post for the caller.
func (p *PostController) CreatePost(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	var req store.CreatePostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	post, err := p.store.CreatePost(ctx.Request.Context(), sess, req)
	if err != nil {
		respondError(ctx, err, 50020, "failed to create post")
		return
	}
	invalidateFeed(ctx)
	utils.CacheInvalidate(ctx.Request.Context(), utils.CacheUserPublicPrefix+sess.UserID)
	utils.Success(ctx, gin.H{"post": post})
}

// ToggleLike likes or unlikes a post.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	liked, err := p.store.ToggleLike(ctx.Request.Context(), sess, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 50023, "failed to toggle like")
		return
	}
	invalidateFeed(ctx)
	utils.Success(ctx, gin.H{"liked": liked})
}

// SharePost records a share of a post.
func (p *PostController) SharePost(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	shares, err := p.store.SharePost(ctx.Request.Context(), sess, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 50024, "failed to share post")
		return
	}
	invalidateFeed(ctx)
	utils.Success(ctx, gin.H{"shares": shares})
}

// ListComments returns the comments of a post oldest first.
func (p *PostController) ListComments(ctx *gin.Context) {
	comments, err := p.store.ListComments(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 50025, "failed to list comments")
		return
	}
	utils.Success(ctx, gin.H{"items": comments})
}

// AddComment replies to a post.
func (p *PostController) AddComment(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	comment, err := p.store.AddComment(ctx.Request.Context(), sess, ctx.Param("id"), req.Content)
	if err != nil {
		respondError(ctx, err, 50026, "failed to add comment")
		return
	}
	invalidateFeed(ctx)
	utils.Success(ctx, gin.H{"comment": comment})
}

// ToggleCommentLike likes or unlikes a comment.
func (p *PostController) ToggleCommentLike(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	liked, err := p.store.ToggleCommentLike(ctx.Request.Context(), sess, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 50027, "failed to toggle comment like")
		return
	}
	utils.Success(ctx, gin.H{"liked": liked})
}

// Upload stores a media file. Profile and banner uploads also update the caller's profile.
func (p *PostController) Upload(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	if err := moderation.CanParticipate(sess); err != nil {
		respondError(ctx, err, 50030, "upload failed")
		return
	}

	// leave headroom for the multipart envelope, the uploader enforces the real limit
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, p.uploader.MaxBytes()+1<<20)
	fh, err := ctx.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "file too large")
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40030, "missing file")
		return
	}
	if fh.Size > p.uploader.MaxBytes() {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "file too large")
		return
	}
	category, err := storage.ParseCategory(ctx.PostForm("category"))
	if err != nil {
		respondError(ctx, err, 50030, "upload failed")
		return
	}

	f, err := fh.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "cannot read file")
		return
	}
	defer f.Close()

	rec, err := p.uploader.Upload(ctx.Request.Context(), sess.UserID, category, ctx.PostForm("entity_id"), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		respondError(ctx, err, 50030, "upload failed")
		return
	}

	var update store.ProfileUpdate
	switch category {
	case storage.CategoryProfilePicture:
		update.ProfilePicture = &rec.URL
	case storage.CategoryBanner:
		update.BannerImage = &rec.URL
	}
	if update.ProfilePicture != nil || update.BannerImage != nil {
		if _, err := p.store.UpdateProfile(ctx.Request.Context(), sess, update); err != nil {
			respondError(ctx, err, 50031, "uploaded but failed to update profile")
			return
		}
		utils.CacheInvalidate(ctx.Request.Context(), utils.CacheUserPublicPrefix+sess.UserID)
	}
	utils.Success(ctx, gin.H{"file": rec})
}
