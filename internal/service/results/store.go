// Package results owns the ordered list of transcript records and every
// mutation rule for it. The Store is the single source of truth for the
// visible dictation state.
package results

import (
	"errors"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"speech-dictation-service/internal/models"
	"speech-dictation-service/internal/observability/metrics"
)

// Errors for invalid record operations.
var (
	ErrNotFound       = errors.New("record not found")
	ErrAlreadyEditing = errors.New("record is already being edited")
	ErrNotEditing     = errors.New("record is not being edited")
)

const recordIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func newRecordID() string {
	id, err := nanoid.Generate(recordIDAlphabet, 9)
	if err != nil {
		// The only failure mode is a broken entropy source.
		panic(err)
	}
	return id
}

// Store holds the ordered record list, newest-appended-first. All
// operations are synchronous, atomic, and total over the visible state: no
// operation can leave a record both editing and idle, or half-removed.
//
// Order is a pure function of arrival order of finalized utterances; edits
// never move a record.
type Store struct {
	mu      sync.RWMutex
	records []*models.Record
	now     func() time.Time
	newID   func() string
	metrics *metrics.Metrics
}

// New creates an empty store.
func New() *Store {
	return &Store{
		now:     time.Now,
		newID:   newRecordID,
		metrics: metrics.DefaultMetrics,
	}
}

// SetClock overrides the store's clock. Test helper.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// find returns the record for id, or nil. Caller must hold mu.
func (s *Store) find(id string) *models.Record {
	for _, r := range s.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Append creates a record from a final hypothesis and prepends it to the
// list. The record starts idle and unsaved with a fresh local id.
func (s *Store) Append(hyp models.Hypothesis) models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &models.Record{
		ID:           s.newID(),
		Text:         hyp.Text,
		Confidence:   hyp.Confidence,
		Alternatives: hyp.Alternatives,
		CreatedAt:    s.now(),
		Persistence:  models.PersistenceUnsaved,
	}
	s.records = append([]*models.Record{rec}, s.records...)
	s.metrics.RecordsCreated.Inc()
	s.metrics.RecordsListed.Set(float64(len(s.records)))
	return *rec
}

// Get returns a copy of the record.
func (s *Store) Get(id string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.find(id)
	if rec == nil {
		return models.Record{}, ErrNotFound
	}
	return *rec, nil
}

// List returns a snapshot of all records, newest-appended-first.
func (s *Store) List() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Record, len(s.records))
	for i, r := range s.records {
		out[i] = *r
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// BeginEdit enters edit mode, seeding the draft with the committed text.
func (s *Store) BeginEdit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.find(id)
	if rec == nil {
		return ErrNotFound
	}
	if rec.Editing {
		return ErrAlreadyEditing
	}
	rec.Editing = true
	rec.Draft = rec.Text
	return nil
}

// UpdateDraft replaces the draft text. Valid only while editing; the
// committed text is untouched.
func (s *Store) UpdateDraft(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.find(id)
	if rec == nil {
		return ErrNotFound
	}
	if !rec.Editing {
		return ErrNotEditing
	}
	rec.Draft = text
	return nil
}

// CommitEdit promotes the draft to the committed text, refreshes the
// timestamp, and leaves edit mode. A previously saved record is demoted to
// unsaved: its content has diverged from the last persisted snapshot, and
// edits are never silently auto-synced. The remote id is kept.
func (s *Store) CommitEdit(id string) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.find(id)
	if rec == nil {
		return models.Record{}, ErrNotFound
	}
	if !rec.Editing {
		return models.Record{}, ErrNotEditing
	}
	rec.Text = rec.Draft
	rec.CreatedAt = s.now()
	rec.Editing = false
	rec.Draft = ""
	if rec.Persistence == models.PersistenceSaved {
		rec.Persistence = models.PersistenceUnsaved
	}
	s.metrics.RecordsEdited.Inc()
	return *rec, nil
}

// CancelEdit discards the draft and leaves edit mode. Committed text and
// persistence state are untouched.
func (s *Store) CancelEdit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.find(id)
	if rec == nil {
		return ErrNotFound
	}
	if !rec.Editing {
		return ErrNotEditing
	}
	rec.Editing = false
	rec.Draft = ""
	return nil
}

// Remove deletes the record from the list. Safe to call whether or not the
// record is mid-save; the synchronizer resolves in-flight operations before
// asking for removal.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			s.metrics.RecordsRemoved.Inc()
			s.metrics.RecordsListed.Set(float64(len(s.records)))
			return nil
		}
	}
	return ErrNotFound
}

// ClearAll empties the list unconditionally and returns the number of
// records removed. It never triggers remote deletes: bulk clear hides
// records locally, it does not destroy remote data.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.records)
	s.records = nil
	s.metrics.RecordsListed.Set(0)
	return n
}

// MarkSaving flags a remote write in flight for the record.
func (s *Store) MarkSaving(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.find(id)
	if rec == nil {
		return ErrNotFound
	}
	rec.Persistence = models.PersistenceSaving
	return nil
}

// MarkSaved records a successful remote write. The remote id, once
// assigned, is stable for the record's lifetime.
func (s *Store) MarkSaved(id, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.find(id)
	if rec == nil {
		return ErrNotFound
	}
	rec.Persistence = models.PersistenceSaved
	rec.RemoteID = remoteID
	return nil
}

// MarkSaveFailed records a rejected remote write. Content is never rolled
// back.
func (s *Store) MarkSaveFailed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.find(id)
	if rec == nil {
		return ErrNotFound
	}
	rec.Persistence = models.PersistenceSaveFailed
	return nil
}
