package recognition

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"speech-dictation-service/internal/models"
	"speech-dictation-service/internal/observability/logging"
	"speech-dictation-service/internal/observability/metrics"
)

// ErrSessionActive is returned by Start while a session is already running.
var ErrSessionActive = errors.New("recognition session already active")

// Session wraps an Engine and owns the per-session adapter state: the active
// flag and the coalesced interim text. All mutations happen under one mutex
// so observers always see a consistent pair.
type Session struct {
	engine  Engine
	handler Handler
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	active    bool
	interim   string
	startedAt time.Time
}

// NewSession creates a session adapter over the given engine. handler
// receives every event the adapter emits.
func NewSession(engine Engine, handler Handler) *Session {
	return &Session{
		engine:  engine,
		handler: handler,
		log:     logging.WithComponent("recognition"),
		metrics: metrics.DefaultMetrics,
	}
}

// Active reports whether a session is currently running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// InterimText returns the current coalesced interim transcript. Empty
// outside an utterance.
func (s *Session) InterimText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interim
}

// Start begins a recognition session. While one is active a second engine
// session is never started; a RecognitionError event is emitted and
// ErrSessionActive returned.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		s.log.Warn().Msg("start ignored: session already active")
		s.emit(Event{Kind: RecognitionError, Error: ErrorOther, RawCode: "session-already-active"})
		return ErrSessionActive
	}
	s.active = true
	s.interim = ""
	s.mu.Unlock()

	if err := s.engine.Start(ctx, s); err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()

		raw := err.Error()
		kind := NormalizeError(raw)
		s.log.Error().Err(err).Str("kind", kind.String()).Msg("engine start failed")
		s.metrics.RecordRecognitionError(kind.String())
		s.emit(Event{Kind: RecognitionError, Error: kind, RawCode: raw})
		return err
	}
	return nil
}

// Stop requests the engine end the session early. The engine decides the
// cutoff: a final hypothesis already committed before the stop completes is
// still delivered through the normal event flow.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.engine.Stop()
}

// --- Listener implementation (engine callbacks) ---

// OnStart marks the session active and emits SessionStarted.
func (s *Session) OnStart() {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.interim = ""
	s.mu.Unlock()

	s.metrics.RecordSessionStart()
	s.emit(Event{Kind: SessionStarted})
}

// OnPartial overwrites the coalesced interim text and emits the partial.
func (s *Session) OnPartial(text string) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.interim = text
	s.mu.Unlock()

	s.metrics.RecordPartial()
	s.emit(Event{Kind: PartialHypothesis, Text: text})
}

// OnFinal clears the interim text and emits the final hypothesis.
func (s *Session) OnFinal(hyp models.Hypothesis) {
	s.mu.Lock()
	s.interim = ""
	s.mu.Unlock()

	s.metrics.RecordFinal()
	s.emit(Event{Kind: FinalHypothesis, Final: &hyp})
}

// OnError normalizes the raw engine code, clears the interim text, and
// emits a RecognitionError. The engine self-terminates afterwards and will
// still invoke OnEnd.
func (s *Session) OnError(rawCode string) {
	s.mu.Lock()
	s.interim = ""
	s.mu.Unlock()

	kind := NormalizeError(rawCode)
	s.log.Warn().Str("rawCode", rawCode).Str("kind", kind.String()).Msg("recognition error")
	s.metrics.RecordRecognitionError(kind.String())
	s.emit(Event{Kind: RecognitionError, Error: kind, RawCode: rawCode})
}

// OnEnd marks the session inactive and emits SessionEnded. Restarting is an
// explicit caller decision; the adapter never restarts here.
func (s *Session) OnEnd() {
	s.mu.Lock()
	started := s.startedAt
	wasActive := s.active
	s.active = false
	s.interim = ""
	s.mu.Unlock()

	if wasActive && !started.IsZero() {
		s.metrics.RecordSessionEnd(time.Since(started).Seconds())
	}
	s.emit(Event{Kind: SessionEnded})
}

func (s *Session) emit(ev Event) {
	if s.handler != nil {
		s.handler(ev)
	}
}
