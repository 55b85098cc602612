package mock

import (
	"context"
	"sync"
	"testing"
	"time"

	"speech-dictation-service/internal/models"
	"speech-dictation-service/internal/service/recognition"
)

// testListener records engine callbacks for inspection.
type testListener struct {
	mu       sync.Mutex
	started  int
	partials []string
	finals   []models.Hypothesis
	errors   []string
	ended    int
}

func (l *testListener) OnStart() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started++
}

func (l *testListener) OnPartial(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.partials = append(l.partials, text)
}

func (l *testListener) OnFinal(hyp models.Hypothesis) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finals = append(l.finals, hyp)
}

func (l *testListener) OnError(rawCode string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, rawCode)
}

func (l *testListener) OnEnd() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ended++
}

func (l *testListener) getPartials() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.partials...)
}

func (l *testListener) getFinals() []models.Hypothesis {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Hypothesis{}, l.finals...)
}

func (l *testListener) getErrors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.errors...)
}

func (l *testListener) getEnded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ended
}

func waitEnded(t *testing.T, l *testListener) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if l.getEnded() > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("session never ended")
}

func TestEngineRunsScriptedUtterance(t *testing.T) {
	engine := NewScripted([]ScriptedUtterance{{
		Partials:   []string{"ขาย", "ขายน้ำ"},
		Final:      "ขายน้ำ 20 บาท",
		Confidence: 0.92,
	}}, time.Millisecond)
	l := &testListener{}

	if err := engine.Start(context.Background(), l); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitEnded(t, l)

	partials := l.getPartials()
	if len(partials) != 2 || partials[0] != "ขาย" || partials[1] != "ขายน้ำ" {
		t.Errorf("partials = %v, want progressive script", partials)
	}
	finals := l.getFinals()
	if len(finals) != 1 {
		t.Fatalf("finals = %d, want 1", len(finals))
	}
	if finals[0].Text != "ขายน้ำ 20 บาท" {
		t.Errorf("final text = %q", finals[0].Text)
	}
	if finals[0].Confidence == nil || *finals[0].Confidence != 0.92 {
		t.Errorf("final confidence = %v, want 0.92", finals[0].Confidence)
	}
}

func TestEngineRejectsConcurrentStart(t *testing.T) {
	engine := NewScripted([]ScriptedUtterance{{
		Partials: []string{"ขาย"},
		Final:    "ขายน้ำ 20 บาท",
	}}, 50*time.Millisecond)
	l := &testListener{}

	if err := engine.Start(context.Background(), l); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := engine.Start(context.Background(), l); err != recognition.ErrSessionActive {
		t.Errorf("second Start() error = %v, want ErrSessionActive", err)
	}
	engine.Stop()
	waitEnded(t, l)
}

func TestEngineStopFinalizesEarly(t *testing.T) {
	engine := NewScripted([]ScriptedUtterance{{
		Partials: []string{"ขาย", "ขายน้ำ", "ขายน้ำ 20"},
		Final:    "ขายน้ำ 20 บาท",
	}}, 20*time.Millisecond)
	l := &testListener{}

	if err := engine.Start(context.Background(), l); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if err := engine.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	waitEnded(t, l)

	if finals := l.getFinals(); len(finals) != 1 {
		t.Errorf("finals = %d, want the committed hypothesis after stop", len(finals))
	}
}

func TestEngineErrorScript(t *testing.T) {
	engine := NewScripted([]ScriptedUtterance{{
		Partials: []string{"ขาย"},
		ErrCode:  "no-speech",
	}}, time.Millisecond)
	l := &testListener{}

	if err := engine.Start(context.Background(), l); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitEnded(t, l)

	if errs := l.getErrors(); len(errs) != 1 || errs[0] != "no-speech" {
		t.Errorf("errors = %v, want [no-speech]", errs)
	}
	if finals := l.getFinals(); len(finals) != 0 {
		t.Errorf("finals = %d, want 0 on error", len(finals))
	}
}

func TestEngineCyclesScript(t *testing.T) {
	engine := NewScripted([]ScriptedUtterance{
		{Final: "หนึ่ง"},
		{Final: "สอง"},
	}, time.Millisecond)

	for _, want := range []string{"หนึ่ง", "สอง", "หนึ่ง"} {
		l := &testListener{}
		if err := engine.Start(context.Background(), l); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitEnded(t, l)
		finals := l.getFinals()
		if len(finals) != 1 || finals[0].Text != want {
			t.Errorf("finals = %v, want [%s]", finals, want)
		}
	}
}
