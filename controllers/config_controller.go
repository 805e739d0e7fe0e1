package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/deep3/social/config"
	"github.com/deep3/social/storage"
	"github.com/deep3/social/utils"
)

// ConfigController serves the public client configuration.
type ConfigController struct {
	media storage.ObjectStorage
}

func NewConfigController(media storage.ObjectStorage) *ConfigController {
	return &ConfigController{media: media}
}

// StoreConfig tells clients where the API lives and how media uploads behave. No secrets are exposed.
func (c *ConfigController) StoreConfig(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"api_base":         strings.TrimRight(cfg.PublicBaseURL, "/") + "/api",
		"feed_page_size":   cfg.FeedPageSize,
		"storage_backend":  c.media.Name(),
		"storage_bucket":   c.media.Bucket(),
		"upload_max_bytes": cfg.UploadMaxBytes,
		"upload_categories": []storage.Category{
			storage.CategoryProfilePicture,
			storage.CategoryBanner,
			storage.CategoryPostMedia,
		},
		"events_stream": "/api/ws",
	})
}
