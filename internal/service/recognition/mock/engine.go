// Package mock provides a scripted recognition engine for testing and for
// running without cloud credentials. It simulates realistic dictation
// behavior: progressive partial transcripts, exactly one final hypothesis
// with an N-best list, then self-termination.
package mock

import (
	"context"
	"sync"
	"time"

	"speech-dictation-service/internal/models"
	"speech-dictation-service/internal/service/recognition"
)

// ScriptedUtterance is one simulated utterance. When ErrCode is set the
// session errors out instead of finalizing.
type ScriptedUtterance struct {
	Partials     []string
	Final        string
	Confidence   float64
	Alternatives []models.Alternative
	ErrCode      string
}

func conf(v float64) *float64 { return &v }

// DefaultUtterances provides sample Thai merchant phrases for simulation.
var DefaultUtterances = []ScriptedUtterance{
	{
		Partials:   []string{"ขาย", "ขายน้ำ", "ขายน้ำ 20"},
		Final:      "ขายน้ำ 20 บาท",
		Confidence: 0.92,
		Alternatives: []models.Alternative{
			{Text: "ขายน้ำ 20 บาท", Confidence: conf(0.92)},
			{Text: "ขายน้ำ 20 บ", Confidence: conf(0.71)},
			{Text: "ขายนำ 20 บาท", Confidence: conf(0.60)},
		},
	},
	{
		Partials:   []string{"ซื้อ", "ซื้อข้าว"},
		Final:      "ซื้อข้าว 50 บาท",
		Confidence: 0.95,
		Alternatives: []models.Alternative{
			{Text: "ซื้อข้าว 50 บาท", Confidence: conf(0.95)},
			{Text: "ซื้อข้าว 50 บาตร", Confidence: conf(0.58)},
		},
	},
	{
		Partials:   []string{"จ่าย", "จ่ายค่าไฟ", "จ่ายค่าไฟ 200"},
		Final:      "จ่ายค่าไฟ 200 บาท",
		Confidence: 0.89,
		Alternatives: []models.Alternative{
			{Text: "จ่ายค่าไฟ 200 บาท", Confidence: conf(0.89)},
			{Text: "จ่ายค่าไฟ 200 บาตร", Confidence: conf(0.64)},
		},
	},
	{
		Partials:   []string{"ราย", "รายได้"},
		Final:      "รายได้ 100 บาท",
		Confidence: 0.97,
		Alternatives: []models.Alternative{
			{Text: "รายได้ 100 บาท", Confidence: conf(0.97)},
		},
	},
}

// Engine implements recognition.Engine with scripted sessions. Each Start
// runs one utterance from the script, cycling through it.
type Engine struct {
	mu       sync.Mutex
	script   []ScriptedUtterance
	delay    time.Duration
	next     int
	active   bool
	stopCh   chan struct{}
	finalled bool
}

// New creates a mock engine over the default script.
func New() *Engine {
	return NewScripted(DefaultUtterances, 30*time.Millisecond)
}

// NewScripted creates a mock engine with a custom script and inter-event delay.
func NewScripted(script []ScriptedUtterance, delay time.Duration) *Engine {
	return &Engine{script: script, delay: delay}
}

// Start runs one scripted utterance in a background goroutine.
func (e *Engine) Start(ctx context.Context, l recognition.Listener) error {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return recognition.ErrSessionActive
	}
	if len(e.script) == 0 {
		e.mu.Unlock()
		return context.Canceled
	}
	utt := e.script[e.next%len(e.script)]
	e.next++
	e.active = true
	e.finalled = false
	stop := make(chan struct{})
	e.stopCh = stop
	e.mu.Unlock()

	go e.run(ctx, l, utt, stop)
	return nil
}

func (e *Engine) run(ctx context.Context, l recognition.Listener, utt ScriptedUtterance, stop chan struct{}) {
	defer func() {
		e.mu.Lock()
		e.active = false
		e.mu.Unlock()
		l.OnEnd()
	}()

	l.OnStart()

	interim := ""
	for _, p := range utt.Partials {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			// Stopped mid-utterance: the engine still commits whatever it
			// had, mirroring platform engines that finalize on stop.
			e.finalize(l, utt)
			return
		case <-time.After(e.delay):
		}
		interim = p
		l.OnPartial(interim)
	}

	select {
	case <-ctx.Done():
		return
	case <-stop:
	case <-time.After(e.delay):
	}

	if utt.ErrCode != "" {
		l.OnError(utt.ErrCode)
		return
	}
	e.finalize(l, utt)
}

func (e *Engine) finalize(l recognition.Listener, utt ScriptedUtterance) {
	e.mu.Lock()
	if e.finalled {
		e.mu.Unlock()
		return
	}
	e.finalled = true
	e.mu.Unlock()

	if utt.ErrCode != "" {
		l.OnError(utt.ErrCode)
		return
	}

	c := utt.Confidence
	l.OnFinal(models.Hypothesis{
		Text:         utt.Final,
		Confidence:   &c,
		Alternatives: utt.Alternatives,
	})
}

// Stop ends the running session early.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || e.stopCh == nil {
		return nil
	}
	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}
	return nil
}
