package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deep3/social/models"
	"github.com/deep3/social/store"
	"github.com/deep3/social/utils"
)

const trendingTTL = 5 * time.Minute

// StatsController serves trending topics.
type StatsController struct {
	store *store.Store
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(s *store.Store) *StatsController {
	return &StatsController{store: s}
}

// Trending returns the most used tags of the last week.
func (s *StatsController) Trending(ctx *gin.Context) {
	limit := 10
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.Error(ctx, http.StatusBadRequest, 40021, "invalid limit")
			return
		}
		limit = n
	}
	cacheKey := utils.CacheTrendingKey + ":" + strconv.Itoa(limit)

	if cached, ok := utils.CacheGet[[]models.TrendingTopic](ctx.Request.Context(), cacheKey); ok {
		utils.Success(ctx, gin.H{"items": cached})
		return
	}
	topics, err := s.store.TrendingTopics(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err, 50050, "failed to load trending topics")
		return
	}
	utils.CacheSet(ctx.Request.Context(), cacheKey, topics, trendingTTL)
	utils.Success(ctx, gin.H{"items": topics})
}
