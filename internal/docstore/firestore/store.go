// Package firestore provides the Cloud Firestore document store.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"speech-dictation-service/internal/docstore"
	"speech-dictation-service/internal/models"
)

// Config holds Firestore connection settings.
type Config struct {
	ProjectID       string
	Collection      string
	CredentialsFile string
}

// Store persists documents to one Firestore collection.
type Store struct {
	client     *firestore.Client
	collection string
}

// Open dials Firestore. Requires a project id; credentials fall back to
// application default credentials when no file is configured.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore: project id not configured")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: new client: %w", err)
	}
	return &Store{client: client, collection: cfg.Collection}, nil
}

// fields builds the write payload. createdAt/updatedAt are server-assigned.
func fields(doc models.Document, withCreated bool) map[string]any {
	m := map[string]any{
		"text":         doc.Text,
		"confidence":   doc.Confidence,
		"timestamp":    doc.Timestamp,
		"alternatives": doc.Alternatives,
		"updatedAt":    firestore.ServerTimestamp,
	}
	if withCreated {
		m["createdAt"] = firestore.ServerTimestamp
	}
	return m
}

// Create adds the document and returns the Firestore-generated id.
func (s *Store) Create(ctx context.Context, doc models.Document) (string, error) {
	ref, _, err := s.client.Collection(s.collection).Add(ctx, fields(doc, true))
	if err != nil {
		return "", fmt.Errorf("firestore: add document: %w", err)
	}
	return ref.ID, nil
}

// Update merges the document fields and refreshes updatedAt.
func (s *Store) Update(ctx context.Context, id string, doc models.Document) error {
	_, err := s.client.Collection(s.collection).Doc(id).Set(ctx, fields(doc, false), firestore.MergeAll)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return docstore.ErrNotFound
		}
		return fmt.Errorf("firestore: update document: %w", err)
	}
	return nil
}

// Delete removes the document. Firestore deletes are idempotent.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore: delete document: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
