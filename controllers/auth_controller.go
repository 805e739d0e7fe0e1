package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deep3/social/config"
	"github.com/deep3/social/middleware"
	"github.com/deep3/social/models"
	"github.com/deep3/social/store"
	"github.com/deep3/social/utils"
)

const publicUserTTL = 2 * time.Minute

// AuthController handles accounts, sessions and profiles.
type AuthController struct {
	store *store.Store
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(s *store.Store) *AuthController {
	return &AuthController{store: s}
}

// publicUser is what other members may see of an account.
type publicUser struct {
	ID             string           `json:"id"`
	DisplayName    string           `json:"display_name"`
	Role           models.Role      `json:"role"`
	IsAdmin        bool             `json:"is_admin"`
	IsVerified     bool             `json:"is_verified"`
	Trusted        bool             `json:"trusted"`
	ProfilePicture string           `json:"profile_picture,omitempty"`
	BannerImage    string           `json:"banner_image,omitempty"`
	Bio            string           `json:"bio,omitempty"`
	Stats          models.UserStats `json:"stats"`
	CreatedAt      time.Time        `json:"created_at"`
}

func toPublicUser(u *models.User) publicUser {
	return publicUser{
		ID:             u.ID,
		DisplayName:    u.DisplayName,
		Role:           u.Role,
		IsAdmin:        u.IsAdmin,
		IsVerified:     u.IsVerified,
		Trusted:        u.Trusted(),
		ProfilePicture: u.ProfilePicture,
		BannerImage:    u.BannerImage,
		Bio:            u.Bio,
		Stats:          u.Stats,
		CreatedAt:      u.CreatedAt,
	}
}

func issueToken(u *models.User) (string, error) {
	return utils.GenerateToken(u.ID, string(u.Role), config.Get().TokenTTL())
}

// Register creates an account and signs the new user in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req store.RegisterInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	user, err := a.store.Register(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err, 50010, "failed to register")
		return
	}
	token, err := issueToken(user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to issue token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": user, "needs_verification": user.NeedsVerification()})
}

// Login exchanges email and password for a token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	user, err := a.store.Authenticate(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err, 50012, "failed to login")
		return
	}
	token, err := issueToken(user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to issue token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout revokes the caller's token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	claims := middleware.CurrentClaims(ctx)
	if claims == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	if claims.ExpiresAt != nil {
		utils.BlacklistToken(claims.ID, claims.ExpiresAt.Time)
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the caller's own account.
func (a *AuthController) Me(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	user, err := a.store.GetUser(ctx.Request.Context(), sess.UserID)
	if err != nil {
		respondError(ctx, err, 50013, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{"user": user, "needs_verification": user.NeedsVerification()})
}

// UpdateProfile changes display name, bio and images of the caller.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	var req store.ProfileUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	user, err := a.store.UpdateProfile(ctx.Request.Context(), sess, req)
	if err != nil {
		respondError(ctx, err, 50014, "failed to update profile")
		return
	}
	utils.CacheInvalidate(ctx.Request.Context(), utils.CacheUserPublicPrefix+user.ID)
	utils.Success(ctx, gin.H{"user": user})
}

// GetUserPublic returns the public view of any account.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	id := ctx.Param("id")
	cacheKey := utils.CacheUserPublicPrefix + id
	if cached, ok := utils.CacheGet[publicUser](ctx.Request.Context(), cacheKey); ok {
		utils.Success(ctx, gin.H{"user": cached})
		return
	}
	user, err := a.store.GetUser(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, 50013, "failed to load user")
		return
	}
	view := toPublicUser(user)
	utils.CacheSet(ctx.Request.Context(), cacheKey, view, publicUserTTL)
	utils.Success(ctx, gin.H{"user": view})
}
