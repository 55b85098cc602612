package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"speech-dictation-service/internal/docstore"
	"speech-dictation-service/internal/models"
	"speech-dictation-service/internal/service/results"
)

// fakeStore is an in-test remote store with controllable failures and an
// optional gate that holds Create open until released.
type fakeStore struct {
	mu         sync.Mutex
	gateCreate chan struct{}

	createErr error
	updateErr error
	deleteErr error

	creates int
	updates []string
	deletes []string
	nextID  int
	closed  bool
}

func (f *fakeStore) Create(ctx context.Context, doc models.Document) (string, error) {
	f.mu.Lock()
	gate := f.gateCreate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.creates++
	f.nextID++
	return fmt.Sprintf("remote-%d", f.nextID), nil
}

func (f *fakeStore) Update(ctx context.Context, id string, doc models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, id)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStore) snapshot() (creates int, updates, deletes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, append([]string(nil), f.updates...), append([]string(nil), f.deletes...)
}

func openerFor(store docstore.Store) docstore.Opener {
	return func(ctx context.Context) (docstore.Store, error) {
		return store, nil
	}
}

func newReady(t *testing.T, store docstore.Store) (*Synchronizer, *results.Store) {
	t.Helper()
	res := results.New()
	syn := New(openerFor(store), res)
	if err := syn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return syn, res
}

func appendRecord(res *results.Store, text string) models.Record {
	conf := 0.9
	return res.Append(models.Hypothesis{Text: text, Confidence: &conf})
}

func waitBusy(t *testing.T, s *Synchronizer, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, busy := range s.BusyIDs() {
			if busy == id {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("record %q never became busy", id)
}

func TestSaveCreatesUnsavedRecord(t *testing.T) {
	store := &fakeStore{}
	syn, res := newReady(t, store)
	rec := appendRecord(res, "ทดสอบ")

	if err := syn.Save(context.Background(), rec.ID); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _ := res.Get(rec.ID)
	if got.Persistence != models.PersistenceSaved {
		t.Errorf("Persistence = %v, want %v", got.Persistence, models.PersistenceSaved)
	}
	if got.RemoteID != "remote-1" {
		t.Errorf("RemoteID = %q, want %q", got.RemoteID, "remote-1")
	}
	creates, updates, _ := store.snapshot()
	if creates != 1 || len(updates) != 0 {
		t.Errorf("remote calls = %d creates, %d updates; want 1 create only", creates, len(updates))
	}
}

func TestSaveUpdatesSavedRecord(t *testing.T) {
	store := &fakeStore{}
	syn, res := newReady(t, store)
	rec := appendRecord(res, "ขายน้ำ 20 บาท")
	if err := res.MarkSaving(rec.ID); err != nil {
		t.Fatalf("MarkSaving() error = %v", err)
	}
	if err := res.MarkSaved(rec.ID, "abc123"); err != nil {
		t.Fatalf("MarkSaved() error = %v", err)
	}

	if err := syn.Save(context.Background(), rec.ID); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	creates, updates, _ := store.snapshot()
	if creates != 0 {
		t.Errorf("creates = %d, want 0", creates)
	}
	if len(updates) != 1 || updates[0] != "abc123" {
		t.Errorf("updates = %v, want [abc123]", updates)
	}
	got, _ := res.Get(rec.ID)
	if got.RemoteID != "abc123" {
		t.Errorf("RemoteID = %q, want kept %q", got.RemoteID, "abc123")
	}
}

func TestSaveFailsFastWhileUnavailable(t *testing.T) {
	res := results.New()
	syn := New(openerFor(&fakeStore{}), res)
	rec := appendRecord(res, "ทดสอบ")

	err := syn.Save(context.Background(), rec.ID)
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("Save() error = %v, want ErrRemoteUnavailable", err)
	}
	got, _ := res.Get(rec.ID)
	if got.Persistence != models.PersistenceUnsaved {
		t.Errorf("Persistence = %v, want untouched %v", got.Persistence, models.PersistenceUnsaved)
	}
}

func TestConnectFailureThenReconnect(t *testing.T) {
	store := &fakeStore{}
	calls := 0
	opener := func(ctx context.Context) (docstore.Store, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("dial timeout")
		}
		return store, nil
	}
	syn := New(opener, results.New())

	if err := syn.Connect(context.Background()); err == nil {
		t.Fatal("Connect() expected error on first attempt")
	}
	if syn.State() != ConnUnavailable {
		t.Errorf("State() = %v, want %v", syn.State(), ConnUnavailable)
	}
	if err := syn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() retry error = %v", err)
	}
	if syn.State() != ConnReady {
		t.Errorf("State() = %v, want %v", syn.State(), ConnReady)
	}
}

func TestConcurrentSaveRejected(t *testing.T) {
	store := &fakeStore{gateCreate: make(chan struct{})}
	syn, res := newReady(t, store)
	rec := appendRecord(res, "ทดสอบ")

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- syn.Save(context.Background(), rec.ID)
	}()
	waitBusy(t, syn, rec.ID)

	if err := syn.Save(context.Background(), rec.ID); !errors.Is(err, ErrBusy) {
		t.Errorf("second Save() error = %v, want ErrBusy", err)
	}

	close(store.gateCreate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	creates, _, _ := store.snapshot()
	if creates != 1 {
		t.Errorf("creates = %d, want exactly 1", creates)
	}
}

func TestDeleteWaitsForInflightSave(t *testing.T) {
	store := &fakeStore{gateCreate: make(chan struct{})}
	syn, res := newReady(t, store)
	rec := appendRecord(res, "ทดสอบ")

	saveDone := make(chan error, 1)
	go func() {
		saveDone <- syn.Save(context.Background(), rec.ID)
	}()
	waitBusy(t, syn, rec.ID)

	deleteDone := make(chan error, 1)
	go func() {
		deleteDone <- syn.Delete(context.Background(), rec.ID)
	}()

	// The delete must hold until the save resolves; the record is still
	// present while both are pending.
	select {
	case err := <-deleteDone:
		t.Fatalf("Delete() resolved before the save: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	if _, err := res.Get(rec.ID); err != nil {
		t.Fatalf("record removed while save in flight: %v", err)
	}

	close(store.gateCreate)
	if err := <-saveDone; err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := <-deleteDone; err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := res.Get(rec.ID); !errors.Is(err, results.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	_, _, deletes := store.snapshot()
	if len(deletes) != 1 || deletes[0] != "remote-1" {
		t.Errorf("remote deletes = %v, want [remote-1]", deletes)
	}
}

func TestDeleteRemovesLocallyWhenRemoteFails(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("remote outage")}
	syn, res := newReady(t, store)
	rec := appendRecord(res, "ทดสอบ")
	res.MarkSaving(rec.ID)
	res.MarkSaved(rec.ID, "abc123")

	err := syn.Delete(context.Background(), rec.ID)
	if err == nil {
		t.Fatal("Delete() expected remote error")
	}
	if _, getErr := res.Get(rec.ID); !errors.Is(getErr, results.ErrNotFound) {
		t.Errorf("record still present after failed remote delete: %v", getErr)
	}
}

func TestDeleteUnsavedSkipsRemote(t *testing.T) {
	store := &fakeStore{}
	syn, res := newReady(t, store)
	rec := appendRecord(res, "ทดสอบ")

	if err := syn.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, _, deletes := store.snapshot()
	if len(deletes) != 0 {
		t.Errorf("remote deletes = %v, want none for a never-saved record", deletes)
	}
	if res.Len() != 0 {
		t.Errorf("Len() = %d, want 0", res.Len())
	}
}

func TestSaveFailureMarksRecord(t *testing.T) {
	store := &fakeStore{createErr: errors.New("quota exceeded")}
	syn, res := newReady(t, store)
	rec := appendRecord(res, "ทดสอบ")

	if err := syn.Save(context.Background(), rec.ID); err == nil {
		t.Fatal("Save() expected error")
	}
	got, _ := res.Get(rec.ID)
	if got.Persistence != models.PersistenceSaveFailed {
		t.Errorf("Persistence = %v, want %v", got.Persistence, models.PersistenceSaveFailed)
	}
	if got.RemoteID != "" {
		t.Errorf("RemoteID = %q, want empty", got.RemoteID)
	}
}
