// Package sqlite provides a SQLite-backed document store for running
// without a cloud project.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	_ "modernc.org/sqlite"

	"speech-dictation-service/internal/docstore"
	"speech-dictation-service/internal/models"
)

// Store wraps a SQLite database holding one logical collection of documents.
type Store struct {
	db         *sql.DB
	collection string
	now        func() time.Time
}

// Open initializes the database file and schema.
func Open(ctx context.Context, path, collection string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, collection: collection, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	collection   TEXT NOT NULL,
	text         TEXT NOT NULL,
	confidence   REAL,
	timestamp    TEXT NOT NULL,
	alternatives TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Create inserts the document under a fresh generated identifier.
func (s *Store) Create(ctx context.Context, doc models.Document) (string, error) {
	id, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate document id: %w", err)
	}

	alts, err := json.Marshal(doc.Alternatives)
	if err != nil {
		return "", fmt.Errorf("marshal alternatives: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, collection, text, confidence, timestamp, alternatives, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.collection, doc.Text, nullableFloat(doc.Confidence), doc.Timestamp, string(alts), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// Update overwrites the document content and refreshes updated_at.
func (s *Store) Update(ctx context.Context, id string, doc models.Document) error {
	alts, err := json.Marshal(doc.Alternatives)
	if err != nil {
		return fmt.Errorf("marshal alternatives: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET text = ?, confidence = ?, timestamp = ?, alternatives = ?, updated_at = ?
		 WHERE id = ? AND collection = ?`,
		doc.Text, nullableFloat(doc.Confidence), doc.Timestamp, string(alts), now, id, s.collection,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

// Delete removes the document. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND collection = ?`, id, s.collection)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Get reads a stored document back. Used by tests and the watch tooling.
func (s *Store) Get(ctx context.Context, id string) (models.Document, error) {
	var (
		doc  models.Document
		conf sql.NullFloat64
		alts string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT text, confidence, timestamp, alternatives FROM documents WHERE id = ? AND collection = ?`,
		id, s.collection,
	).Scan(&doc.Text, &conf, &doc.Timestamp, &alts)
	if err == sql.ErrNoRows {
		return models.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("query document: %w", err)
	}
	if conf.Valid {
		doc.Confidence = &conf.Float64
	}
	if err := json.Unmarshal([]byte(alts), &doc.Alternatives); err != nil {
		return models.Document{}, fmt.Errorf("unmarshal alternatives: %w", err)
	}
	return doc, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
