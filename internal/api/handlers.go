package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hive/internal/posts"
	"hive/internal/queue"
	"hive/internal/verification"
)

// VerifyRequest is the body of POST /v1/verify.
type VerifyRequest struct {
	Claim   string   `json:"claim"`
	Context []string `json:"context"`
	TopK    int      `json:"top_k"`
	Search  bool     `json:"search"`
}

// CreatePostRequest is the body of POST /v1/posts.
type CreatePostRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleVerify always answers 200 with a verification response; failures
// are reported in the body with metadata.error set.
func (s *Server) handleVerify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.TopK < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must not be negative"})
		return
	}

	resp := s.deps.Verifier.VerifyClaim(c.Request.Context(), verification.Claim{
		Text:    req.Claim,
		Context: req.Context,
		TopK:    req.TopK,
		Search:  req.Search,
	})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreatePost(c *gin.Context) {
	if s.deps.Posts == nil || s.deps.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "posts are not enabled"})
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content must not be blank"})
		return
	}

	post, err := s.deps.Posts.Create(c.Request.Context(), req.OwnerID, req.Content)
	if err != nil {
		s.log.Error("Failed to create post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create post"})
		return
	}

	if err := s.deps.Queue.Enqueue(post.PID); err != nil {
		// The post exists; it stays unverified until re-queued.
		s.log.Warn("Failed to queue verification", zap.String("pid", post.PID), zap.Error(err))
		status := http.StatusServiceUnavailable
		if !errors.Is(err, queue.ErrQueueFull) && !errors.Is(err, queue.ErrQueueClosed) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error(), "post": post})
		return
	}

	c.JSON(http.StatusAccepted, post)
}

func (s *Server) handleGetPost(c *gin.Context) {
	if s.deps.Posts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "posts are not enabled"})
		return
	}

	post, err := s.deps.Posts.Get(c.Request.Context(), c.Param("pid"))
	switch {
	case errors.Is(err, posts.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case err != nil:
		s.log.Error("Failed to load post", zap.String("pid", c.Param("pid")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
	default:
		c.JSON(http.StatusOK, post)
	}
}
