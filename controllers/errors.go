package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deep3/social/middleware"
	"github.com/deep3/social/models"
	"github.com/deep3/social/storage"
	"github.com/deep3/social/store"
	"github.com/deep3/social/utils"
)

// respondError maps domain errors to a status and numeric code. Anything unknown is logged
// and reported as code/msg with status 500.
func respondError(ctx *gin.Context, err error, code int, msg string) {
	var uploadErr *storage.UploadError
	switch {
	case errors.Is(err, store.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, store.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid email or password")
	case errors.Is(err, store.ErrUnauthenticated):
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	case errors.Is(err, store.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40302, err.Error())
	case errors.Is(err, store.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		utils.Error(ctx, http.StatusConflict, 40902, err.Error())
	case errors.Is(err, store.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40901, err.Error())
	case errors.Is(err, store.ErrMintingUnavailable):
		utils.Error(ctx, http.StatusNotImplemented, 50101, err.Error())
	case errors.Is(err, store.ErrStoreUnavailable):
		utils.Sugar.Warnf("%s %s: %v", ctx.Request.Method, ctx.FullPath(), err)
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "store temporarily unavailable")
	case errors.As(err, &uploadErr):
		switch uploadErr.Kind {
		case storage.KindTooLarge:
			utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, uploadErr.Msg)
		case storage.KindUnsupportedType:
			utils.Error(ctx, http.StatusUnsupportedMediaType, 41501, uploadErr.Msg)
		default:
			utils.Sugar.Errorf("upload failed: %v", err)
			utils.Error(ctx, http.StatusBadGateway, 50201, "media storage unavailable")
		}
	default:
		utils.Sugar.Errorf("%s %s: %v", ctx.Request.Method, ctx.FullPath(), err)
		utils.Error(ctx, http.StatusInternalServerError, code, msg)
	}
}

// requireSession writes a 401 and returns nil when the request is anonymous.
func requireSession(ctx *gin.Context) *models.Session {
	sess := middleware.CurrentSession(ctx)
	if sess == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return sess
}
