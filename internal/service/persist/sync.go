// Package persist mediates between transcript records and the remote
// document store: it decides create-vs-update, tracks per-record in-flight
// operations, reconciles remote identifiers back into local records, and
// surfaces per-record failure without corrupting unrelated records.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"speech-dictation-service/internal/docstore"
	"speech-dictation-service/internal/models"
	"speech-dictation-service/internal/observability/logging"
	"speech-dictation-service/internal/observability/metrics"
	"speech-dictation-service/internal/service/results"
)

// ConnState is the remote connection lifecycle.
type ConnState int

const (
	ConnUninitialized ConnState = iota
	ConnConnecting
	ConnReady
	ConnUnavailable
)

// String returns the string representation of the state.
func (s ConnState) String() string {
	switch s {
	case ConnUninitialized:
		return "uninitialized"
	case ConnConnecting:
		return "connecting"
	case ConnReady:
		return "ready"
	case ConnUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Errors surfaced to callers.
var (
	// ErrBusy - the record already has a persistence operation in flight.
	// Requests are rejected, not queued; the caller retries after completion.
	ErrBusy = errors.New("record has a persistence operation in flight")
	// ErrRemoteUnavailable - the connection never reached ready state. Saves
	// fail fast without a network call; recovery is an explicit reconnect.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrConnecting - a connection bring-up is already running.
	ErrConnecting = errors.New("remote store connection already in progress")
)

// inflight tracks one running persistence operation. done is closed when it
// resolves, successfully or not.
type inflight struct {
	done chan struct{}
}

// Synchronizer bridges records to the remote store. Mutual exclusion is
// scoped per record id via the busy set, never store-wide: operations on
// unrelated records proceed independently.
//
// No timeouts are imposed on remote operations and no automatic retry is
// attempted; retry cadence belongs to the caller.
type Synchronizer struct {
	opener  docstore.Opener
	results *results.Store
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	state ConnState
	store docstore.Store
	busy  map[string]*inflight
}

// New creates a synchronizer. The connection starts uninitialized; run
// Connect to bring it up.
func New(opener docstore.Opener, res *results.Store) *Synchronizer {
	return &Synchronizer{
		opener:  opener,
		results: res,
		log:     logging.WithComponent("persist"),
		metrics: metrics.DefaultMetrics,
		state:   ConnUninitialized,
		busy:    make(map[string]*inflight),
	}
}

// State returns the current connection state.
func (s *Synchronizer) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether the remote store reached ready state.
func (s *Synchronizer) Ready() bool {
	return s.State() == ConnReady
}

// BusyIDs returns the ids with a persistence operation in flight.
func (s *Synchronizer) BusyIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.busy))
	for id := range s.busy {
		out = append(out, id)
	}
	return out
}

// Connect dials the remote store. Safe to re-run after a failure; a second
// Connect while one is running is rejected.
func (s *Synchronizer) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == ConnConnecting {
		s.mu.Unlock()
		return ErrConnecting
	}
	s.state = ConnConnecting
	old := s.store
	s.store = nil
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	store, err := s.opener(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = ConnUnavailable
		s.log.Error().Err(err).Msg("remote store bring-up failed")
		s.metrics.RecordStoreConnect(false)
		return fmt.Errorf("connect remote store: %w", err)
	}
	s.store = store
	s.state = ConnReady
	s.log.Info().Msg("remote store ready")
	s.metrics.RecordStoreConnect(true)
	return nil
}

// acquire claims the busy slot for id and snapshots the store handle.
func (s *Synchronizer) acquire(id string) (*inflight, docstore.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[id]; ok {
		return nil, nil, ErrBusy
	}
	fl := &inflight{done: make(chan struct{})}
	s.busy[id] = fl
	return fl, s.store, nil
}

// release resolves the busy slot for id.
func (s *Synchronizer) release(id string, fl *inflight) {
	s.mu.Lock()
	delete(s.busy, id)
	s.mu.Unlock()
	close(fl.done)
}

// Save persists the record: an update keyed by the remote id when the
// record is in saved state, a create otherwise. On success the store is
// told saved(remoteID); on failure save_failed. The record's content is
// never rolled back.
//
// Saves fail fast while the connection is not ready, and are rejected while
// the record already has an operation in flight.
func (s *Synchronizer) Save(ctx context.Context, id string) error {
	if !s.Ready() {
		s.metrics.RecordSaveRejected("remote_unavailable")
		return ErrRemoteUnavailable
	}

	rec, err := s.results.Get(id)
	if err != nil {
		return err
	}

	fl, store, err := s.acquire(id)
	if err != nil {
		s.metrics.RecordSaveRejected("busy")
		return err
	}
	defer s.release(id, fl)

	if err := s.results.MarkSaving(id); err != nil {
		return err
	}

	doc := rec.Document()
	start := time.Now()

	var (
		op       string
		remoteID string
		opErr    error
	)
	if rec.Persistence == models.PersistenceSaved && rec.RemoteID != "" {
		op = "update"
		remoteID = rec.RemoteID
		opErr = store.Update(ctx, rec.RemoteID, doc)
	} else {
		op = "create"
		remoteID, opErr = store.Create(ctx, doc)
	}
	s.metrics.RecordSave(op, opErr, time.Since(start).Seconds())

	if opErr != nil {
		s.log.Error().Err(opErr).Str("recordId", id).Str("op", op).Msg("remote save failed")
		// The record may have been removed while the call was in flight.
		if err := s.results.MarkSaveFailed(id); err != nil && !errors.Is(err, results.ErrNotFound) {
			return err
		}
		return fmt.Errorf("save record: %s: %w", op, opErr)
	}

	if err := s.results.MarkSaved(id, remoteID); err != nil && !errors.Is(err, results.ErrNotFound) {
		return err
	}
	s.log.Info().Str("recordId", id).Str("remoteId", remoteID).Str("op", op).Msg("record saved")
	return nil
}

// Delete removes the record, remote-first but local-regardless. If a save
// is in flight for the id, the delete waits for it to resolve before
// touching the remote store, so it never races an unassigned remote id or
// orphans a document the save just created.
//
// A remote failure (including an unavailable connection) is returned to the
// caller, but the local removal has already happened by then: the remote
// store may transiently keep a document the user no longer sees.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	for {
		s.mu.Lock()
		fl := s.busy[id]
		s.mu.Unlock()
		if fl == nil {
			break
		}
		select {
		case <-fl.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Re-read after any in-flight save resolved: it may have assigned the
	// remote id this delete needs.
	rec, err := s.results.Get(id)
	if err != nil {
		return err
	}

	fl, store, err := s.acquire(id)
	if err != nil {
		return err
	}
	defer s.release(id, fl)

	var remoteErr error
	if rec.RemoteID != "" {
		if store == nil || !s.Ready() {
			remoteErr = ErrRemoteUnavailable
		} else {
			start := time.Now()
			remoteErr = store.Delete(ctx, rec.RemoteID)
			s.metrics.RecordDelete(remoteErr)
			s.log.Info().Str("recordId", id).Str("remoteId", rec.RemoteID).Dur("duration", time.Since(start)).Err(remoteErr).Msg("remote delete")
		}
	}

	if err := s.results.Remove(id); err != nil && !errors.Is(err, results.ErrNotFound) {
		return err
	}

	if remoteErr != nil {
		return fmt.Errorf("delete record: remote delete failed: %w", remoteErr)
	}
	return nil
}
