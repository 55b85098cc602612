// Package docstore defines the remote document store boundary.
package docstore

import (
	"context"
	"errors"

	"speech-dictation-service/internal/models"
)

// ErrNotFound is returned by Update when the identified document no longer
// exists. Delete is idempotent and does not report missing documents.
var ErrNotFound = errors.New("document not found")

// Store is the document CRUD surface the synchronizer persists to.
// Implementations generate their own document identifiers on Create and
// assign createdAt/updatedAt server-side, refreshing updatedAt on every write.
type Store interface {
	Create(ctx context.Context, doc models.Document) (string, error)
	Update(ctx context.Context, id string, doc models.Document) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Opener dials a Store. The synchronizer runs it on every explicit
// connection bring-up, so it must be safe to call more than once.
type Opener func(ctx context.Context) (Store, error)
