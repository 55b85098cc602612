package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"speech-dictation-service/internal/docstore"
	"speech-dictation-service/internal/docstore/memory"
	"speech-dictation-service/internal/events"
	"speech-dictation-service/internal/models"
	"speech-dictation-service/internal/service/persist"
	"speech-dictation-service/internal/service/recognition"
	"speech-dictation-service/internal/service/recognition/mock"
	"speech-dictation-service/internal/service/results"
	"speech-dictation-service/internal/service/synthesis"
)

type capturingSynth struct {
	mu   sync.Mutex
	reqs []synthesis.Request
}

func (s *capturingSynth) Speak(ctx context.Context, req synthesis.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return nil
}

func (s *capturingSynth) captured() []synthesis.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]synthesis.Request(nil), s.reqs...)
}

func newController(t *testing.T, engine recognition.Engine) (*Controller, *results.Store) {
	t.Helper()
	res := results.New()
	syncer := persist.New(func(ctx context.Context) (docstore.Store, error) {
		return memory.New(), nil
	}, res)
	c := New(Options{
		Engine:      engine,
		Synthesizer: &capturingSynth{},
		Syncer:      syncer,
		Results:     res,
		Publisher:   events.New(nil),
		Locale:      "th-TH",
		SpeakRate:   0.9,
	})
	return c, res
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartupProbesCapabilityAndStore(t *testing.T) {
	c, _ := newController(t, mock.New())
	c.Startup(context.Background())

	snap := c.Snapshot()
	if !snap.Supported {
		t.Error("Supported = false, want true with an engine present")
	}
	if !snap.RemoteReady {
		t.Error("RemoteReady = false, want true after startup")
	}
	if snap.SessionID == "" {
		t.Error("SessionID empty")
	}
}

func TestStartupWithoutEngine(t *testing.T) {
	c, _ := newController(t, nil)
	c.Startup(context.Background())

	if snap := c.Snapshot(); snap.Supported {
		t.Error("Supported = true, want false without an engine")
	}

	c.ToggleListening(context.Background())
	if got := c.Snapshot().Status; got != statusUnsupported {
		t.Errorf("Status = %q, want %q", got, statusUnsupported)
	}
}

func TestToggleListeningAppendsFinalHypothesis(t *testing.T) {
	engine := mock.NewScripted([]mock.ScriptedUtterance{{
		Partials: []string{"ขาย", "ขายน้ำ"},
		Final:    "ขายน้ำ 20 บาท",
	}}, time.Millisecond)
	c, res := newController(t, engine)
	c.Startup(context.Background())

	c.ToggleListening(context.Background())
	waitFor(t, "final hypothesis", func() bool { return res.Len() == 1 })
	waitFor(t, "session end", func() bool { return !c.Snapshot().Listening })

	recs := res.List()
	if recs[0].Text != "ขายน้ำ 20 บาท" {
		t.Errorf("Text = %q, want %q", recs[0].Text, "ขายน้ำ 20 บาท")
	}
	if c.Snapshot().InterimText != "" {
		t.Errorf("InterimText = %q, want cleared", c.Snapshot().InterimText)
	}
}

func TestObserverNotifiedOnChange(t *testing.T) {
	c, _ := newController(t, mock.New())

	var mu sync.Mutex
	var seen int
	c.SetObserver(func(Snapshot) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	c.ClearAll(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if seen == 0 {
		t.Error("observer never invoked after a state change")
	}
}

func TestSaveRecordThroughController(t *testing.T) {
	c, res := newController(t, mock.New())
	c.Startup(context.Background())
	conf := 0.9
	rec := res.Append(models.Hypothesis{Text: "ทดสอบ", Confidence: &conf})

	c.SaveRecord(rec.ID)
	waitFor(t, "record saved", func() bool {
		got, err := res.Get(rec.ID)
		return err == nil && got.Persistence == models.PersistenceSaved
	})

	got, _ := res.Get(rec.ID)
	if got.RemoteID == "" {
		t.Error("RemoteID empty after save")
	}
	waitFor(t, "save status", func() bool { return c.Snapshot().Status == statusSavedNew })
}

func TestSaveRecordWhileRemoteNotReady(t *testing.T) {
	c, res := newController(t, mock.New())
	conf := 0.9
	rec := res.Append(models.Hypothesis{Text: "ทดสอบ", Confidence: &conf})

	c.SaveRecord(rec.ID)
	if got := c.Snapshot().Status; got != statusRemoteNotReady {
		t.Errorf("Status = %q, want %q", got, statusRemoteNotReady)
	}
	if got, _ := res.Get(rec.ID); got.Persistence != models.PersistenceUnsaved {
		t.Errorf("Persistence = %v, want untouched %v", got.Persistence, models.PersistenceUnsaved)
	}
}

func TestDeleteRecordThroughController(t *testing.T) {
	c, res := newController(t, mock.New())
	c.Startup(context.Background())
	conf := 0.9
	rec := res.Append(models.Hypothesis{Text: "ทดสอบ", Confidence: &conf})

	c.DeleteRecord(rec.ID)
	waitFor(t, "record removed", func() bool { return res.Len() == 0 })
}

func TestSpeakDefaultsToCheckUtterance(t *testing.T) {
	synth := &capturingSynth{}
	res := results.New()
	syncer := persist.New(func(ctx context.Context) (docstore.Store, error) {
		return memory.New(), nil
	}, res)
	c := New(Options{
		Engine:      mock.New(),
		Synthesizer: synth,
		Syncer:      syncer,
		Results:     res,
		Publisher:   events.New(nil),
		Locale:      "th-TH",
		SpeakRate:   0.9,
	})

	c.Speak(context.Background(), "")
	reqs := synth.captured()
	if len(reqs) != 1 {
		t.Fatalf("captured %d utterances, want 1", len(reqs))
	}
	if reqs[0].Text != checkUtterance {
		t.Errorf("Text = %q, want check utterance", reqs[0].Text)
	}
	if reqs[0].Locale != "th-TH" || reqs[0].Rate != 0.9 {
		t.Errorf("Locale/Rate = %q/%v, want th-TH/0.9", reqs[0].Locale, reqs[0].Rate)
	}
}

func TestEditCommandsUpdateRecord(t *testing.T) {
	c, res := newController(t, mock.New())
	conf := 0.9
	rec := res.Append(models.Hypothesis{Text: "ขายน้ำ 20 บาท", Confidence: &conf})

	c.BeginEdit(rec.ID)
	c.UpdateDraft(rec.ID, "ขายน้ำ 25 บาท")
	c.CommitEdit(rec.ID)

	got, _ := res.Get(rec.ID)
	if got.Text != "ขายน้ำ 25 บาท" {
		t.Errorf("Text = %q, want committed draft", got.Text)
	}
	if got.Editing {
		t.Error("Editing = true after commit")
	}
}
