package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deep3/social/middleware"
	"github.com/deep3/social/models"
	"github.com/deep3/social/moderation"
	"github.com/deep3/social/store"
	"github.com/deep3/social/utils"
)

// AdminController exposes moderation and the admin dashboard.
type AdminController struct {
	store *store.Store
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(s *store.Store) *AdminController {
	return &AdminController{store: s}
}

type moderationRequest struct {
	Reason     string           `json:"reason"`
	AgentType  models.AgentType `json:"agent_type"`
	Confidence *float64         `json:"confidence"`
}

// bindOptional accepts an empty body.
func bindOptional(ctx *gin.Context, req *moderationRequest) bool {
	if ctx.Request.ContentLength == 0 {
		return true
	}
	if err := ctx.ShouldBindJSON(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return false
	}
	return true
}

// ListUsers returns every account.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	users, err := a.store.GetAllUsers(ctx.Request.Context(), middleware.CurrentSession(ctx))
	if err != nil {
		respondError(ctx, err, 50040, "failed to list users")
		return
	}
	utils.Success(ctx, gin.H{"items": users})
}

// FlaggedPosts returns the review queue.
func (a *AdminController) FlaggedPosts(ctx *gin.Context) {
	posts, err := a.store.GetFlaggedPosts(ctx.Request.Context(), middleware.CurrentSession(ctx))
	if err != nil {
		respondError(ctx, err, 50041, "failed to list flagged posts")
		return
	}
	utils.Success(ctx, gin.H{"items": posts})
}

// Logs returns recent moderation log entries.
func (a *AdminController) Logs(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	logs, err := a.store.ListModerationLogs(ctx.Request.Context(), middleware.CurrentSession(ctx), limit)
	if err != nil {
		respondError(ctx, err, 50042, "failed to list moderation logs")
		return
	}
	utils.Success(ctx, gin.H{"items": logs})
}

// Stats returns the dashboard counters.
func (a *AdminController) Stats(ctx *gin.Context) {
	stats, err := a.store.AdminStats(ctx.Request.Context(), middleware.CurrentSession(ctx))
	if err != nil {
		respondError(ctx, err, 50043, "failed to load stats")
		return
	}
	utils.Success(ctx, stats)
}

// FlagPost hides a post pending review. Automated reviewers pass agent_type and confidence.
func (a *AdminController) FlagPost(ctx *gin.Context) {
	var req moderationRequest
	if !bindOptional(ctx, &req) {
		return
	}
	var opts []moderation.LogOption
	switch {
	case req.AgentType != "":
		conf := 0.0
		if req.Confidence != nil {
			conf = *req.Confidence
		}
		opts = append(opts, moderation.WithAgent(req.AgentType, conf))
	case req.Confidence != nil:
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid confidence: only allowed for agent-raised flags")
		return
	}
	err := a.store.FlagPost(ctx.Request.Context(), middleware.CurrentSession(ctx), ctx.Param("id"), req.Reason, opts...)
	if err != nil {
		respondError(ctx, err, 50044, "failed to flag post")
		return
	}
	invalidateFeed(ctx)
	utils.Success(ctx, gin.H{"state": moderation.StateFlagged})
}

// ApprovePost clears a flag.
func (a *AdminController) ApprovePost(ctx *gin.Context) {
	var req moderationRequest
	if !bindOptional(ctx, &req) {
		return
	}
	if err := a.store.ApprovePost(ctx.Request.Context(), middleware.CurrentSession(ctx), ctx.Param("id"), req.Reason); err != nil {
		respondError(ctx, err, 50045, "failed to approve post")
		return
	}
	invalidateFeed(ctx)
	utils.Success(ctx, gin.H{"state": moderation.StateApproved})
}

// RemovePost takes a flagged post down for good.
func (a *AdminController) RemovePost(ctx *gin.Context) {
	var req moderationRequest
	if !bindOptional(ctx, &req) {
		return
	}
	if err := a.store.RemovePost(ctx.Request.Context(), middleware.CurrentSession(ctx), ctx.Param("id"), req.Reason); err != nil {
		respondError(ctx, err, 50046, "failed to remove post")
		return
	}
	invalidateFeed(ctx)
	utils.Success(ctx, gin.H{"state": moderation.StateRemoved})
}

// VerifyUser marks a teacher or educator as verified.
func (a *AdminController) VerifyUser(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := a.store.VerifyUser(ctx.Request.Context(), middleware.CurrentSession(ctx), id); err != nil {
		respondError(ctx, err, 50047, "failed to verify user")
		return
	}
	utils.CacheInvalidate(ctx.Request.Context(), utils.CacheUserPublicPrefix+id)
	utils.Success(ctx, gin.H{"id": id, "is_verified": true})
}

// SuspendUser blocks an account from participating.
func (a *AdminController) SuspendUser(ctx *gin.Context) {
	var req moderationRequest
	if !bindOptional(ctx, &req) {
		return
	}
	id := ctx.Param("id")
	if err := a.store.SuspendUser(ctx.Request.Context(), middleware.CurrentSession(ctx), id, req.Reason); err != nil {
		respondError(ctx, err, 50048, "failed to suspend user")
		return
	}
	utils.CacheInvalidate(ctx.Request.Context(), utils.CacheUserPublicPrefix+id)
	utils.Success(ctx, gin.H{"id": id, "is_suspended": true})
}
