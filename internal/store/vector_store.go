// Package store provides the persistent on-disk vector index used for
// evidence retrieval. Documents live in a single SQLite table keyed by
// (collection, namespace, id); similarity is cosine distance computed by the
// vec_distance_cosine SQL function (native sqlite-vec under the sqlite_vec
// build tag, a registered Go function otherwise).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"hive/internal/logging"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("vector store is closed")

// DefaultNamespace is the shared namespace used when no request scope is given.
const DefaultNamespace = ""

// VectorStore is a named collection of embedded documents. It is safe for
// concurrent use; writes are serialized through a single connection.
type VectorStore struct {
	db         *sql.DB
	mu         sync.RWMutex
	path       string
	collection string
	closed     bool
}

// NamespaceStats reports the document count of one namespace.
type NamespaceStats struct {
	Namespace string
	Documents int
	Embedded  int
}

// NewVectorStore opens (or creates) the SQLite file at path and binds the
// store to one collection.
func NewVectorStore(path, collection string) (*VectorStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewVectorStore")
	defer timer.Stop()

	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	logging.Store("Opening vector store at %s (collection=%s, driver=%s)", path, collection, driverName)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &VectorStore{db: db, path: path, collection: collection}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("Vector store ready (native vec=%v)", nativeVec)
	return s, nil
}

// openDB applies the connection settings shared by every SQLite handle in hive.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("Failed to apply %q: %v", pragma, err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// OpenDB opens a SQLite database with the same driver and pragmas as the
// vector store. Used by other SQLite-backed components.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return openDB(path)
}

func (s *VectorStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evidence (
		collection TEXT NOT NULL,
		namespace TEXT NOT NULL DEFAULT '',
		id TEXT NOT NULL,
		document TEXT,
		embedding TEXT,
		dims INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, namespace, id)
	);
	CREATE INDEX IF NOT EXISTS idx_evidence_scope ON evidence(collection, namespace, dims);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create evidence table: %w", err)
	}
	return nil
}

// Collection returns the collection this store is bound to.
func (s *VectorStore) Collection() string { return s.collection }

// Upsert writes documents into the default namespace.
func (s *VectorStore) Upsert(ctx context.Context, ids, documents []string, embeddings [][]float32) error {
	return s.upsert(ctx, DefaultNamespace, ids, documents, embeddings)
}

// Query returns up to topK documents of the default namespace, most similar first.
func (s *VectorStore) Query(ctx context.Context, embedding []float32, topK int) ([]string, error) {
	return s.query(ctx, DefaultNamespace, embedding, topK)
}

// upsert replaces every (namespace, id) row in full. A document whose
// embedding is empty is stored without a vector and never matches a query.
func (s *VectorStore) upsert(ctx context.Context, ns string, ids, documents []string, embeddings [][]float32) error {
	if len(ids) != len(documents) || len(ids) != len(embeddings) {
		return fmt.Errorf("upsert: mismatched lengths ids=%d documents=%d embeddings=%d", len(ids), len(documents), len(embeddings))
	}
	if len(ids) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	timer := logging.StartTimer(logging.CategoryStore, "Upsert")
	defer timer.Stop()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO evidence (collection, namespace, id, document, embedding, dims, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection, namespace, id) DO UPDATE SET
			document = excluded.document,
			embedding = excluded.embedding,
			dims = excluded.dims,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("upsert: prepare: %w", err)
	}
	defer stmt.Close()

	skipped := 0
	for i, id := range ids {
		var emb interface{}
		if len(embeddings[i]) > 0 {
			emb = encodeVectorJSON(embeddings[i])
		} else {
			skipped++
		}
		if _, err := stmt.ExecContext(ctx, s.collection, ns, id, documents[i], emb, len(embeddings[i])); err != nil {
			return fmt.Errorf("upsert %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert: commit: %w", err)
	}

	if skipped > 0 {
		logging.StoreWarn("Upsert stored %d/%d documents without embeddings (namespace=%q)", skipped, len(ids), ns)
	}
	logging.StoreDebug("Upserted %d documents (collection=%s, namespace=%q)", len(ids), s.collection, ns)
	return nil
}

// query ranks by cosine distance among rows with the query's dimensionality.
// Rows with no document text are skipped.
func (s *VectorStore) query(ctx context.Context, ns string, embedding []float32, topK int) ([]string, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if topK < 1 {
		topK = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	timer := logging.StartTimer(logging.CategoryStore, "Query")
	defer timer.Stop()

	rows, err := s.db.QueryContext(ctx, `
		SELECT document, vec_distance_cosine(embedding, ?) AS distance
		FROM evidence
		WHERE collection = ? AND namespace = ? AND dims = ? AND embedding IS NOT NULL
		ORDER BY distance ASC
		LIMIT ?`,
		encodeVectorJSON(embedding), s.collection, ns, len(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var doc sql.NullString
		var distance sql.NullFloat64
		if err := rows.Scan(&doc, &distance); err != nil {
			logging.StoreWarn("Query: skipping unreadable row: %v", err)
			continue
		}
		if !doc.Valid {
			continue
		}
		docs = append(docs, doc.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	logging.StoreDebug("Query returned %d/%d documents (namespace=%q)", len(docs), topK, ns)
	return docs, nil
}

// Namespace returns a view of the store scoped to one namespace.
func (s *VectorStore) Namespace(name string) *Namespace {
	return &Namespace{store: s, name: name}
}

// Stats reports per-namespace document counts for the collection.
func (s *VectorStore) Stats(ctx context.Context) ([]NamespaceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace, COUNT(*), SUM(CASE WHEN dims > 0 THEN 1 ELSE 0 END)
		FROM evidence WHERE collection = ?
		GROUP BY namespace ORDER BY namespace`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	var out []NamespaceStats
	for rows.Next() {
		var st NamespaceStats
		if err := rows.Scan(&st.Namespace, &st.Documents, &st.Embedded); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// DeleteNamespace removes every document of one namespace and returns the
// number of rows deleted.
func (s *VectorStore) DeleteNamespace(ctx context.Context, ns string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM evidence WHERE collection = ? AND namespace = ?`, s.collection, ns)
	if err != nil {
		return 0, fmt.Errorf("delete namespace %q: %w", ns, err)
	}
	n, _ := res.RowsAffected()
	logging.Store("Deleted %d documents from namespace %q", n, ns)
	return n, nil
}

// Close closes the database.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Namespace is a request-scoped view of a VectorStore. Document ids only
// need to be unique within their namespace.
type Namespace struct {
	store *VectorStore
	name  string
}

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

// Upsert writes documents into this namespace.
func (n *Namespace) Upsert(ctx context.Context, ids, documents []string, embeddings [][]float32) error {
	return n.store.upsert(ctx, n.name, ids, documents, embeddings)
}

// Query searches only this namespace.
func (n *Namespace) Query(ctx context.Context, embedding []float32, topK int) ([]string, error) {
	return n.store.query(ctx, n.name, embedding, topK)
}

// Drop deletes every document in this namespace.
func (n *Namespace) Drop(ctx context.Context) error {
	_, err := n.store.DeleteNamespace(ctx, n.name)
	return err
}
