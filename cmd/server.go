package cmd

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deep3/social/config"
	"github.com/deep3/social/events"
	"github.com/deep3/social/routes"
	"github.com/deep3/social/storage"
	"github.com/deep3/social/store"
	"github.com/deep3/social/utils"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context(), config.Get())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(parent context.Context, cfg config.AppConfig) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	db := config.InitDatabase()
	if err := config.Migrate(db); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	utils.GetRedis()

	// media: configured primary with the local disk as fallback
	disk := storage.NewDisk(cfg.UploadDir, cfg.PublicBaseURL)
	primary, err := storage.New(ctx, cfg)
	if err != nil {
		utils.Logger.Warn("object storage unavailable, serving uploads from disk",
			zap.String("backend", cfg.Storage.Backend), zap.Error(err))
		primary = disk
	}
	if err := primary.EnsureBucket(ctx); err != nil {
		utils.Logger.Warn("ensure bucket failed", zap.String("backend", primary.Name()), zap.Error(err))
	}

	backend, err := events.NewBackend(ctx, cfg.Events)
	if err != nil {
		utils.Logger.Warn("event broker unavailable, delivering events in process",
			zap.String("backend", cfg.Events.Backend), zap.Error(err))
		backend = nil
	}
	bus := events.NewBus(backend, cfg.Events.Channel, utils.Logger)
	hub := events.NewHub(originChecker(cfg.AllowedOrigins), utils.Logger)
	bus.Subscribe(hub.Broadcast)
	go hub.Run(ctx.Done())
	go func() {
		if err := bus.Run(ctx); err != nil {
			utils.Logger.Error("event relay stopped", zap.Error(err))
		}
	}()

	st := store.New(db,
		store.WithTimeout(cfg.StoreTimeout()),
		store.WithPublisher(bus),
		store.WithLogger(utils.Logger),
	)

	r := routes.SetupRouter(routes.Deps{
		Store:    st,
		Fallback: store.NewFallback(time.Now()),
		Uploader: storage.NewUploader(primary, disk, cfg.UploadMaxBytes, st, utils.Logger),
		Media:    primary,
		Hub:      hub,
	})

	utils.StartBlacklistSweeper(ctx, 5*time.Minute)

	srv := utils.NewServer(":"+cfg.AppPort, r)
	srv.OnShutdown(func(context.Context) {
		cancel()
		if err := bus.Close(); err != nil {
			utils.Logger.Warn("event bus close", zap.Error(err))
		}
		closeDatabase()
		utils.CloseRedis()
		_ = utils.Logger.Sync()
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// originChecker returns nil, which accepts any origin, when CORS is open.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
