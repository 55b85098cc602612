// Package models defines the transcript record and document data structures.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Alternative is one entry of the recognition engine's N-best list.
// Confidence is nil when the engine did not report one.
type Alternative struct {
	Text       string   `json:"text" firestore:"text"`
	Confidence *float64 `json:"confidence" firestore:"confidence"`
}

// Hypothesis is a final recognition result for one utterance.
// Alternatives carries the full N-best list with the chosen candidate at index 0.
type Hypothesis struct {
	Text         string
	Confidence   *float64
	Alternatives []Alternative
}

// PersistenceState tracks a record's relationship to the remote document store.
type PersistenceState int

const (
	// PersistenceUnsaved - record content has never been persisted, or has
	// diverged from the last persisted snapshot.
	PersistenceUnsaved PersistenceState = iota
	// PersistenceSaving - a remote write is in flight. Transient.
	PersistenceSaving
	// PersistenceSaved - the remote store acknowledged the last write.
	PersistenceSaved
	// PersistenceSaveFailed - the last remote write was rejected.
	PersistenceSaveFailed
)

// String returns the string representation of the state.
func (s PersistenceState) String() string {
	switch s {
	case PersistenceUnsaved:
		return "unsaved"
	case PersistenceSaving:
		return "saving"
	case PersistenceSaved:
		return "saved"
	case PersistenceSaveFailed:
		return "save_failed"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// MarshalJSON emits the state name so API clients never see raw enum values.
func (s PersistenceState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Record represents one completed utterance and its editing/persistence state.
//
// ID is assigned locally at creation and never derived from remote identifiers.
// Editing and Draft form a mutually exclusive edit mode: Draft is only
// meaningful while Editing is true and never touches Text until committed.
// RemoteID is set once the remote store acknowledges a create and kept for the
// record's lifetime.
type Record struct {
	ID           string           `json:"id"`
	Text         string           `json:"text"`
	Confidence   *float64         `json:"confidence"`
	Alternatives []Alternative    `json:"alternatives"`
	CreatedAt    time.Time        `json:"timestamp"`
	Editing      bool             `json:"isEditing"`
	Draft        string           `json:"editedText,omitempty"`
	Persistence  PersistenceState `json:"persistence"`
	RemoteID     string           `json:"remoteId,omitempty"`
}

// Document is the shape written to the document store. createdAt and updatedAt
// are assigned server-side on every write and do not appear here.
type Document struct {
	Text         string        `json:"text" firestore:"text"`
	Confidence   *float64      `json:"confidence" firestore:"confidence"`
	Timestamp    string        `json:"timestamp" firestore:"timestamp"`
	Alternatives []Alternative `json:"alternatives" firestore:"alternatives"`
}

// Document returns the store representation of the record. Timestamp is the
// record's last content change in ISO-8601.
func (r Record) Document() Document {
	return Document{
		Text:         r.Text,
		Confidence:   r.Confidence,
		Timestamp:    r.CreatedAt.UTC().Format(time.RFC3339),
		Alternatives: r.Alternatives,
	}
}
