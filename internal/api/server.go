// Package api exposes verification over HTTP with gin.
//
// Routes:
//
//	GET  /healthz          liveness
//	GET  /metrics          Prometheus exposition
//	POST /v1/verify        verify a claim synchronously
//	POST /v1/posts         create a post and queue its verification (202)
//	GET  /v1/posts/:pid    post with its verification status
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hive/internal/posts"
	"hive/internal/rag"
	"hive/internal/verification"
)

// ClaimVerifier verifies free-standing claims.
type ClaimVerifier interface {
	VerifyClaim(ctx context.Context, claim verification.Claim) *rag.Response
}

// PostStore creates and reads posts.
type PostStore interface {
	Create(ctx context.Context, ownerID, content string) (*posts.Post, error)
	Get(ctx context.Context, pid string) (*posts.Post, error)
}

// Enqueuer schedules background verification of a post.
type Enqueuer interface {
	Enqueue(postID string) error
}

// Deps are the collaborators behind the routes. Posts and Queue may be nil,
// in which case the post routes answer 503.
type Deps struct {
	Verifier ClaimVerifier
	Posts    PostStore
	Queue    Enqueuer
	Metrics  http.Handler
	Logger   *zap.Logger
}

// Server is the HTTP front end.
type Server struct {
	deps   Deps
	router *gin.Engine
	log    *zap.Logger
}

// NewServer builds the router. Call gin.SetMode before NewServer to pick the
// gin mode.
func NewServer(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{deps: deps, log: log}

	r := gin.New()
	r.Use(requestLogger(log), recovery(log))
	r.GET("/healthz", s.handleHealth)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	v1 := r.Group("/v1")
	v1.POST("/verify", s.handleVerify)
	v1.POST("/posts", s.handleCreatePost)
	v1.GET("/posts/:pid", s.handleGetPost)

	s.router = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.log.Info("Shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
