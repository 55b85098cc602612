// Package recognition adapts a platform speech engine into a closed stream
// of dictation session events.
package recognition

import (
	"context"
	"fmt"

	"speech-dictation-service/internal/models"
)

// EventKind enumerates the adapter's event stream.
type EventKind int

const (
	// SessionStarted - the engine accepted the session and is listening.
	SessionStarted EventKind = iota
	// PartialHypothesis - a revisable interim transcript.
	PartialHypothesis
	// FinalHypothesis - a terminal transcript with its N-best list.
	FinalHypothesis
	// RecognitionError - a normalized recognition failure.
	RecognitionError
	// SessionEnded - the engine terminated the session. Always the last
	// event of a session; the adapter never restarts on its own.
	SessionEnded
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case SessionStarted:
		return "session-started"
	case PartialHypothesis:
		return "partial-hypothesis"
	case FinalHypothesis:
		return "final-hypothesis"
	case RecognitionError:
		return "recognition-error"
	case SessionEnded:
		return "session-ended"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

// ErrorKind is the closed taxonomy recognition failures are normalized into.
// Raw engine vocabularies are platform-specific and not guaranteed stable,
// so nothing above the adapter ever sees a raw code except through ErrorOther.
type ErrorKind int

const (
	ErrorNoSpeechDetected ErrorKind = iota
	ErrorMicrophoneUnavailable
	ErrorPermissionDenied
	ErrorNetworkFailure
	ErrorLanguageUnsupported
	ErrorOther
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorNoSpeechDetected:
		return "no-speech-detected"
	case ErrorMicrophoneUnavailable:
		return "microphone-unavailable"
	case ErrorPermissionDenied:
		return "permission-denied"
	case ErrorNetworkFailure:
		return "network-failure"
	case ErrorLanguageUnsupported:
		return "language-unsupported"
	default:
		return "other"
	}
}

// NormalizeError maps a raw engine code onto the closed taxonomy.
func NormalizeError(raw string) ErrorKind {
	switch raw {
	case "no-speech":
		return ErrorNoSpeechDetected
	case "audio-capture", "microphone-unavailable":
		return ErrorMicrophoneUnavailable
	case "not-allowed", "service-not-allowed", "permission-denied":
		return ErrorPermissionDenied
	case "network":
		return ErrorNetworkFailure
	case "language-not-supported":
		return ErrorLanguageUnsupported
	default:
		return ErrorOther
	}
}

// Event is one element of the adapter's event stream. Text is set for
// PartialHypothesis, Final for FinalHypothesis, Error and RawCode for
// RecognitionError.
type Event struct {
	Kind    EventKind
	Text    string
	Final   *models.Hypothesis
	Error   ErrorKind
	RawCode string
}

// Handler receives adapter events. Events for one session arrive in order
// and never interleave with events of another session.
type Handler func(Event)

// Listener receives raw callbacks from an engine session. OnPartial carries
// the engine's full current interim transcript, not a delta.
type Listener interface {
	OnStart()
	OnPartial(text string)
	OnFinal(hyp models.Hypothesis)
	OnError(rawCode string)
	OnEnd()
}

// Engine is the platform speech capability. Each Start runs one single-shot
// session: the engine terminates it on its own after a final hypothesis or
// an error, invoking OnEnd last. Stop requests early termination; any final
// hypothesis the engine already committed to is still delivered.
type Engine interface {
	Start(ctx context.Context, l Listener) error
	Stop() error
}

// AudioWriter is implemented by engines that consume caller-supplied audio
// rather than capturing their own.
type AudioWriter interface {
	WriteAudio(ctx context.Context, chunk []byte) error
}
