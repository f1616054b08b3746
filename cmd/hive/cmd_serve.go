package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hive/internal/api"
	"hive/internal/config"
	"hive/internal/logging"
	"hive/internal/posts"
	"hive/internal/queue"
	"hive/internal/verification"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background verification workers",
	Long: `Serves /v1/verify, /v1/posts, /healthz and /metrics. Posts created through the
API are verified in the background and their status is stored in the posts
database. Logging settings are reloaded when the config file changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := posts.Open(inWorkspace(cfg.Posts.DatabasePath))
	if err != nil {
		return fmt.Errorf("posts database: %w", err)
	}
	defer repo.Close()

	a, err := buildApp(ctx, cfg, verification.WithStatusWriter(repo))
	if err != nil {
		return err
	}
	defer a.Close()

	q := queue.New(verifyPostHandler(repo, a.service), queue.Config{
		Workers:  cfg.Queue.Workers,
		Capacity: cfg.Queue.Capacity,
		OnDepth:  a.metrics.SetQueueDepth,
	})
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := q.Close(drainCtx); err != nil {
			logger.Warn("Queue did not drain", zap.Error(err))
		}
	}()

	watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
		if err := logging.Reload(next.Logging.Settings()); err != nil {
			logger.Warn("Logging reload failed", zap.Error(err))
			return
		}
		logger.Info("Logging settings reloaded", zap.String("level", next.Logging.Level))
	})
	if err != nil {
		logger.Warn("Config hot reload disabled", zap.Error(err))
	} else if err := watcher.Start(ctx); err != nil {
		logger.Warn("Config hot reload disabled", zap.Error(err))
		watcher.Stop()
	} else {
		defer watcher.Stop()
	}

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}
	srv := api.NewServer(api.Deps{
		Verifier: a.service,
		Posts:    repo,
		Queue:    q,
		Metrics:  a.metrics.Handler(),
		Logger:   logger,
	})

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	return srv.Run(ctx, addr)
}

// verifyPostHandler loads the post and runs it through the service. The
// service persists the outcome itself.
func verifyPostHandler(repo *posts.Repository, svc *verification.Service) queue.Handler {
	return func(ctx context.Context, postID string) error {
		post, err := repo.Get(ctx, postID)
		if err != nil {
			return err
		}
		resp := svc.VerifyPost(ctx, verification.Post{ID: post.PID, Content: post.Content})
		if resp.Metadata.Error {
			return fmt.Errorf("verification of post %s failed: %s", postID, resp.Rationale)
		}
		return nil
	}
}
