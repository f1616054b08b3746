// Package posts persists posts and their verification status in SQLite.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hive/internal/logging"
	"hive/internal/rag"
	"hive/internal/store"
)

// ErrNotFound is returned when a post id does not exist.
var ErrNotFound = errors.New("post not found")

// Post is one stored post.
type Post struct {
	PID                string    `json:"pid"`
	OwnerID            string    `json:"owner_id"`
	Content            string    `json:"content"`
	VerificationStatus rag.Label `json:"verification_status"`
	IsVerified         bool      `json:"is_verified"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Repository stores posts. It is safe for concurrent use.
type Repository struct {
	db     *sql.DB
	mu     sync.RWMutex
	now    func() time.Time
	closed bool
}

// Open opens (or creates) the posts database at path.
func Open(path string) (*Repository, error) {
	db, err := store.OpenDB(path)
	if err != nil {
		return nil, err
	}
	r, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	logging.Posts("Posts database ready at %s", path)
	return r, nil
}

// New wraps an existing connection and ensures the schema.
func New(db *sql.DB) (*Repository, error) {
	r := &Repository{db: db, now: time.Now}
	if err := r.ensureSchema(); err != nil {
		logging.Get(logging.CategoryPosts).Error("Failed to ensure posts schema: %v", err)
		return nil, fmt.Errorf("failed to ensure posts schema: %w", err)
	}
	return r, nil
}

func (r *Repository) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		pid TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		content TEXT NOT NULL,
		verification_status TEXT NOT NULL DEFAULT 'unverified',
		is_verified BOOLEAN NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_owner ON posts(owner_id);
	CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(verification_status);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Create stores a new, unverified post and returns it with a fresh id.
func (r *Repository) Create(ctx context.Context, ownerID, content string) (*Post, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("owner id is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, fmt.Errorf("posts repository is closed")
	}

	now := r.now().UTC()
	p := &Post{
		PID:                uuid.NewString(),
		OwnerID:            ownerID,
		Content:            content,
		VerificationStatus: rag.LabelUnverified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (pid, owner_id, content, verification_status, is_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.PID, p.OwnerID, p.Content, string(p.VerificationStatus), p.IsVerified,
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	logging.Posts("Created post %s for owner %s", p.PID, ownerID)
	return p, nil
}

// Get returns the post with the given id, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, pid string) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, fmt.Errorf("posts repository is closed")
	}

	var (
		p                Post
		status           string
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT pid, owner_id, content, verification_status, is_verified, created_at, updated_at
		FROM posts WHERE pid = ?`, pid).
		Scan(&p.PID, &p.OwnerID, &p.Content, &status, &p.IsVerified, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", pid, err)
	}
	p.VerificationStatus = rag.Label(status)
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return &p, nil
}

// UpdateVerificationStatus records a verification outcome. is_verified is
// set exactly when the status is "verified".
func (r *Repository) UpdateVerificationStatus(ctx context.Context, pid string, status rag.Label) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid verification status %q", status)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("posts repository is closed")
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE posts SET verification_status = ?, is_verified = ?, updated_at = ?
		WHERE pid = ?`,
		string(status), status == rag.LabelVerified, r.now().UTC().UnixMilli(), pid)
	if err != nil {
		return fmt.Errorf("update post %s: %w", pid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	logging.Posts("Post %s status=%s", pid, status)
	return nil
}

// CountByStatus returns the number of posts per verification status.
func (r *Repository) CountByStatus(ctx context.Context) (map[rag.Label]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, fmt.Errorf("posts repository is closed")
	}

	rows, err := r.db.QueryContext(ctx, `SELECT verification_status, COUNT(*) FROM posts GROUP BY verification_status`)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	defer rows.Close()

	out := make(map[rag.Label]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count posts: %w", err)
		}
		out[rag.Label(status)] = n
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}
