package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/deep3/social/config"
	"github.com/deep3/social/controllers"
	"github.com/deep3/social/events"
	"github.com/deep3/social/middleware"
	"github.com/deep3/social/storage"
	"github.com/deep3/social/store"
	"github.com/deep3/social/utils"
)

// Deps are the long lived services the handlers share.
type Deps struct {
	Store    *store.Store
	Fallback store.FeedReader
	Uploader *storage.Uploader
	Media    storage.ObjectStorage
	Hub      *events.Hub
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		utils.Sugar.Warnf("gin logger unavailable, using default recovery: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static(storage.DiskPrefix, cfg.UploadDir)

	authController := controllers.NewAuthController(d.Store)
	postController := controllers.NewPostController(d.Store, d.Fallback, d.Uploader)
	adminController := controllers.NewAdminController(d.Store)
	statsController := controllers.NewStatsController(d.Store)
	nftController := controllers.NewNFTController(d.Store)
	configController := controllers.NewConfigController(d.Media)
	streamController := controllers.NewStreamController(d.Hub)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	auth := middleware.AuthRequired(d.Store)

	api := r.Group("/api")
	api.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{
			"status":     "ok",
			"redis":      utils.RedisStatus(ctx.Request.Context()),
			"ws_clients": d.Hub.ClientCount(),
		})
	})
	api.GET("/store-config", configController.StoreConfig)
	api.GET("/ws", streamController.Stream)

	authGroup := api.Group("/auth")
	authGroup.Use(limiter.Middleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", auth, authController.Logout)
	authGroup.GET("/me", auth, authController.Me)
	authGroup.PATCH("/profile", auth, authController.UpdateProfile)

	// Public reads
	api.GET("/users/:id", authController.GetUserPublic)
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", postController.GetPost)
	api.GET("/posts/:id/comments", postController.ListComments)
	api.GET("/trending", statsController.Trending)

	protected := api.Group("")
	protected.Use(auth, limiter.Middleware())
	protected.POST("/posts", postController.CreatePost)
	protected.POST("/posts/:id/like", postController.ToggleLike)
	protected.POST("/posts/:id/share", postController.SharePost)
	protected.POST("/posts/:id/comments", postController.AddComment)
	protected.POST("/comments/:id/like", postController.ToggleCommentLike)
	protected.POST("/upload", postController.Upload)
	protected.POST("/nfts", nftController.Prepare)
	protected.GET("/nfts", nftController.List)
	protected.POST("/nfts/:id/mint", nftController.Mint)

	admin := api.Group("/admin")
	admin.Use(auth, middleware.RequireAdmin())
	admin.GET("/users", adminController.ListUsers)
	admin.GET("/posts/flagged", adminController.FlaggedPosts)
	admin.GET("/logs", adminController.Logs)
	admin.GET("/stats", adminController.Stats)
	admin.POST("/posts/:id/flag", adminController.FlagPost)
	admin.POST("/posts/:id/approve", adminController.ApprovePost)
	admin.POST("/posts/:id/remove", adminController.RemovePost)
	admin.POST("/users/:id/verify", adminController.VerifyUser)
	admin.POST("/users/:id/suspend", adminController.SuspendUser)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
