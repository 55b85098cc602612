// Package google provides a Google Cloud Speech-to-Text recognition engine.
package google

import (
	"context"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"google.golang.org/api/option"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"speech-dictation-service/internal/models"
	"speech-dictation-service/internal/service/recognition"
)

// Config holds recognition settings for the streaming session.
type Config struct {
	LanguageCode    string
	MaxAlternatives int
	SampleRateHz    int
	InterimResults  bool
	CredentialsFile string
}

// Engine implements recognition.Engine using Google Cloud Speech-to-Text in
// single-utterance mode. Audio is caller-supplied through WriteAudio.
type Engine struct {
	client *speech.Client
	cfg    Config

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
	cancel context.CancelFunc
}

// New creates a Google STT engine. Credentials fall back to application
// default credentials when no file is configured.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{client: c, cfg: cfg}, nil
}

// Start opens a streaming recognition session, sends the initial config,
// and spawns the receive loop.
func (e *Engine) Start(ctx context.Context, l recognition.Listener) error {
	streamCtx, cancel := context.WithCancel(ctx)

	stream, err := e.client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		return err
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: int32(e.cfg.SampleRateHz),
					LanguageCode:    e.cfg.LanguageCode,
					MaxAlternatives: int32(e.cfg.MaxAlternatives),
				},
				InterimResults: e.cfg.InterimResults,
				// One utterance per session: the engine closes the stream
				// itself after end-of-speech.
				SingleUtterance: true,
			},
		},
	})
	if err != nil {
		cancel()
		return err
	}

	e.mu.Lock()
	e.stream = stream
	e.cancel = cancel
	e.mu.Unlock()

	go e.listen(stream, l)
	return nil
}

// listen receives transcript responses and forwards them as callbacks.
func (e *Engine) listen(stream speechpb.Speech_StreamingRecognizeClient, l recognition.Listener) {
	defer func() {
		e.mu.Lock()
		e.stream = nil
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
		e.mu.Unlock()
		l.OnEnd()
	}()

	l.OnStart()

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			l.OnError(rawCode(err))
			return
		}

		if resp.SpeechEventType == speechpb.StreamingRecognizeResponse_END_OF_SINGLE_UTTERANCE {
			// No more audio will be recognized; stop sending.
			_ = stream.CloseSend()
			continue
		}

		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			if r.IsFinal {
				l.OnFinal(hypothesis(r))
			} else {
				l.OnPartial(r.Alternatives[0].Transcript)
			}
		}
	}
}

// hypothesis converts a final result into the domain shape, preserving the
// engine's alternative ranking. A zero confidence means the engine did not
// report one.
func hypothesis(r *speechpb.StreamingRecognitionResult) models.Hypothesis {
	alts := make([]models.Alternative, 0, len(r.Alternatives))
	for _, a := range r.Alternatives {
		alt := models.Alternative{Text: a.Transcript}
		if a.Confidence > 0 {
			c := float64(a.Confidence)
			alt.Confidence = &c
		}
		alts = append(alts, alt)
	}

	hyp := models.Hypothesis{
		Text:         alts[0].Text,
		Confidence:   alts[0].Confidence,
		Alternatives: alts,
	}
	return hyp
}

// WriteAudio forwards caller-supplied audio to the recognition stream.
func (e *Engine) WriteAudio(ctx context.Context, chunk []byte) error {
	e.mu.Lock()
	stream := e.stream
	e.mu.Unlock()
	if stream == nil {
		return io.ErrClosedPipe
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: chunk,
		},
	})
}

// Stop closes the audio side of the stream; the engine finalizes whatever
// it already heard and terminates the session.
func (e *Engine) Stop() error {
	e.mu.Lock()
	stream := e.stream
	e.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.CloseSend()
}

// Close releases the underlying client.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()
	return e.client.Close()
}

// rawCode maps transport and API errors onto the raw codes the adapter's
// taxonomy understands.
func rawCode(err error) string {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return "permission-denied"
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return "network"
	case codes.InvalidArgument:
		if strings.Contains(strings.ToLower(err.Error()), "language") {
			return "language-not-supported"
		}
		return "invalid-argument"
	case codes.OutOfRange:
		return "no-speech"
	default:
		return status.Code(err).String()
	}
}
