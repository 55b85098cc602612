package synthesis

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog"

	"speech-dictation-service/internal/observability/logging"
)

// espeak-ng's default speaking rate in words per minute; Request.Rate
// scales against it.
const baseWordsPerMinute = 175

// execSynth shells out to a local speech command such as espeak-ng. The
// command string may carry {text}, {lang} and {wpm} placeholders; when no
// {text} placeholder is present the utterance is appended as the final
// argument.
type execSynth struct {
	argv []string
	log  zerolog.Logger
}

// NewExecSynth parses the command template and returns a synthesizer that
// runs it per utterance.
func NewExecSynth(command string) (Synthesizer, error) {
	parser := shellwords.NewParser()
	argv, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse synthesis command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("synthesis command empty")
	}
	return &execSynth{argv: argv, log: logging.WithComponent("synthesis")}, nil
}

func (s *execSynth) Speak(ctx context.Context, req Request) error {
	rate := req.Rate
	if rate <= 0 {
		rate = 1.0
	}
	wpm := strconv.Itoa(int(rate * baseWordsPerMinute))

	argv := make([]string, 0, len(s.argv)+1)
	sawText := false
	for _, arg := range s.argv {
		switch {
		case strings.Contains(arg, "{text}"):
			sawText = true
			argv = append(argv, strings.ReplaceAll(arg, "{text}", req.Text))
		case strings.Contains(arg, "{lang}"):
			argv = append(argv, strings.ReplaceAll(arg, "{lang}", req.Locale))
		case strings.Contains(arg, "{wpm}"):
			argv = append(argv, strings.ReplaceAll(arg, "{wpm}", wpm))
		default:
			argv = append(argv, arg)
		}
	}
	if !sawText {
		argv = append(argv, req.Text)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start synthesis command: %w", err)
	}
	// Playback runs in the background; a nonzero exit only makes the log.
	go func() {
		if err := cmd.Wait(); err != nil {
			s.log.Warn().Err(err).Str("command", argv[0]).Msg("synthesis command failed")
		}
	}()
	return nil
}
