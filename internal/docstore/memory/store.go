// Package memory provides an in-memory document store for tests and
// credential-free development.
package memory

import (
	"context"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"speech-dictation-service/internal/docstore"
	"speech-dictation-service/internal/models"
)

type entry struct {
	doc       models.Document
	createdAt time.Time
	updatedAt time.Time
}

// Store keeps documents in a map. Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	docs map[string]entry
	now  func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		docs: make(map[string]entry),
		now:  time.Now,
	}
}

// Create stores the document under a fresh generated identifier.
func (s *Store) Create(ctx context.Context, doc models.Document) (string, error) {
	id, err := nanoid.New()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	s.docs[id] = entry{doc: doc, createdAt: now, updatedAt: now}
	return id, nil
}

// Update overwrites the document content and refreshes updatedAt.
func (s *Store) Update(ctx context.Context, id string, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[id]
	if !ok {
		return docstore.ErrNotFound
	}
	e.doc = doc
	e.updatedAt = s.now().UTC()
	s.docs[id] = e
	return nil
}

// Delete removes the document. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// Close releases nothing; it exists to satisfy docstore.Store.
func (s *Store) Close() error {
	return nil
}

// Get returns the stored document. Test helper.
func (s *Store) Get(id string) (models.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[id]
	return e.doc, ok
}

// Len returns the number of stored documents. Test helper.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}
