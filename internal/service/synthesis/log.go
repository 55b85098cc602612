package synthesis

import (
	"context"

	"github.com/rs/zerolog"

	"speech-dictation-service/internal/observability/logging"
)

// logSynth writes utterances to the service log instead of producing audio.
// Used when no speech backend is installed on the host.
type logSynth struct {
	log zerolog.Logger
}

// NewLogSynth returns a synthesizer that only logs its utterances.
func NewLogSynth() Synthesizer {
	return &logSynth{log: logging.WithComponent("synthesis")}
}

func (s *logSynth) Speak(ctx context.Context, req Request) error {
	s.log.Info().
		Str("locale", req.Locale).
		Float64("rate", req.Rate).
		Str("text", req.Text).
		Msg("utterance (log only)")
	return nil
}
