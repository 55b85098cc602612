// Package synthesis speaks status messages and transcript text back to the
// operator through a pluggable text-to-speech backend.
package synthesis

import "context"

// Request describes one utterance.
type Request struct {
	Text   string
	Locale string
	// Rate is the playback speed relative to the voice's default, 1.0 being
	// normal. The readback default is slightly slowed for clarity.
	Rate float64
}

// Synthesizer produces audible output for a request. Speak returns once
// playback has been handed to the backend, not when the audio finishes.
type Synthesizer interface {
	Speak(ctx context.Context, req Request) error
}
