package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/deep3/social/models"
	"github.com/deep3/social/store"
	"github.com/deep3/social/utils"
)

const (
	// ContextSessionKey stores the *models.Session of the caller.
	ContextSessionKey = "session"
	// ContextClaimsKey stores the parsed *utils.Claims.
	ContextClaimsKey = "claims"
)

// SessionLoader rebuilds a session from the stored user so role and suspension changes apply immediately.
type SessionLoader interface {
	SessionFor(ctx context.Context, userID, tokenID string) (*models.Session, error)
}

// AuthRequired ensures the request carries a valid, unrevoked JWT for an existing user.
func AuthRequired(loader SessionLoader) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !authenticate(ctx, loader, true) {
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// OptionalAuth attaches a session when a valid token is present and lets the request through otherwise.
func OptionalAuth(loader SessionLoader) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") != "" {
			authenticate(ctx, loader, false)
		}
		ctx.Next()
	}
}

// RequireAdmin must run after AuthRequired.
func RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		sess := CurrentSession(ctx)
		if sess == nil {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			ctx.Abort()
			return
		}
		if !sess.IsAdmin {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin access required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// CurrentSession returns the caller's session or nil for anonymous requests.
func CurrentSession(ctx *gin.Context) *models.Session {
	v, ok := ctx.Get(ContextSessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*models.Session)
	return sess
}

// CurrentClaims returns the token claims of the caller or nil.
func CurrentClaims(ctx *gin.Context) *utils.Claims {
	v, ok := ctx.Get(ContextClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.Claims)
	return claims
}

// authenticate writes an error response only when strict is set.
func authenticate(ctx *gin.Context, loader SessionLoader, strict bool) bool {
	fail := func(status, code int, msg string) bool {
		if strict {
			utils.Error(ctx, status, code, msg)
		}
		return false
	}

	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return fail(http.StatusUnauthorized, 40101, "authorization header missing")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return fail(http.StatusUnauthorized, 40102, "invalid authorization header format")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return fail(http.StatusUnauthorized, 40103, "empty bearer token")
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return fail(http.StatusUnauthorized, 40105, "invalid token")
	}
	if utils.IsTokenBlacklisted(claims.ID) {
		return fail(http.StatusUnauthorized, 40104, "token revoked")
	}

	sess, err := loader.SessionFor(ctx.Request.Context(), claims.UserID, claims.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fail(http.StatusUnauthorized, 40106, "account no longer exists")
	case errors.Is(err, store.ErrStoreUnavailable):
		return fail(http.StatusServiceUnavailable, 50301, "store temporarily unavailable")
	case err != nil:
		utils.Sugar.Errorf("load session user=%s: %v", claims.UserID, err)
		return fail(http.StatusInternalServerError, 50001, "failed to load session")
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}

	ctx.Set(ContextSessionKey, sess)
	ctx.Set(ContextClaimsKey, claims)
	return true
}
