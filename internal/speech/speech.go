// Package speech speaks practice words through an external speech engine.
package speech

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/kpauljoseph/spellbee/pkg/logger"
)

var ErrUnavailable = errors.New("speech engine unavailable")

// errStopped cancels an utterance cut short by Stop or a newer Speak.
var errStopped = errors.New("speech stopped")

// Error is a device or engine failure while speaking.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech failed: %s: %v", e.Reason, e.Err)
	}
	return "speech failed: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

type Options struct {
	Rate   float64
	Pitch  float64
	Volume float64
	Lang   string
	Voice  string
}

type Voice struct {
	Name     string
	Language string
}

// Speaker is a speech engine with an explicit lifecycle.
type Speaker interface {
	Init(ctx context.Context) error
	Speak(ctx context.Context, text string, opts Options) error
	Stop()
	ListVoices(ctx context.Context) ([]Voice, error)
	IsAvailable() bool
	Dispose()
}

// ESpeak drives the espeak-ng command. Each utterance is one process; Stop
// kills it.
type ESpeak struct {
	command  string
	language string
	logger   *logger.Logger

	mu     sync.Mutex
	ready  bool
	voices []Voice
	cancel context.CancelCauseFunc
}

func NewESpeak(command, language string, log *logger.Logger) *ESpeak {
	if command == "" {
		command = "espeak-ng"
	}
	if language == "" {
		language = "en"
	}
	return &ESpeak{command: command, language: language, logger: logger.OrDiscard(log)}
}

func (e *ESpeak) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		return nil
	}

	out, err := exec.CommandContext(ctx, e.command, "--voices").Output()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, e.command, err)
	}
	e.voices = FilterEnglish(ParseVoices(out))
	e.ready = true
	e.logger.Debug("Speech engine ready with %d English voices", len(e.voices))
	return nil
}

func (e *ESpeak) IsAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready && len(e.voices) > 0
}

func (e *ESpeak) ListVoices(ctx context.Context) ([]Voice, error) {
	if err := e.Init(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Voice, len(e.voices))
	copy(out, e.voices)
	return out, nil
}

// Speak blocks until the utterance finishes, is stopped, or ctx ends. A
// stopped utterance is not an error; an ended ctx returns its error.
func (e *ESpeak) Speak(ctx context.Context, text string, opts Options) error {
	if !e.IsAvailable() {
		return ErrUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	parent := ctx
	ctx, cancel := context.WithCancelCause(parent)
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel(errStopped)
	}
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel(nil)

	cmd := exec.CommandContext(ctx, e.command, e.args(text, opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if perr := parent.Err(); perr != nil {
		return perr
	}
	if errors.Is(context.Cause(ctx), errStopped) {
		return nil
	}
	if err != nil {
		return &Error{Reason: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}

func (e *ESpeak) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel(errStopped)
		e.cancel = nil
	}
}

func (e *ESpeak) Dispose() {
	e.Stop()
	e.mu.Lock()
	e.ready = false
	e.voices = nil
	e.mu.Unlock()
}

// args maps the 0..1-style options onto espeak-ng units: words per minute
// around 175, pitch 0..99 around 50 and amplitude 0..200 around 100.
func (e *ESpeak) args(text string, opts Options) []string {
	voice := opts.Voice
	if voice == "" {
		voice = opts.Lang
	}
	if voice == "" {
		voice = e.language
	}
	rate := opts.Rate
	if rate <= 0 {
		rate = 1
	}
	pitch := opts.Pitch
	if pitch <= 0 {
		pitch = 1
	}
	return []string{
		"-v", voice,
		"-s", strconv.Itoa(clamp(int(175*rate), 80, 450)),
		"-p", strconv.Itoa(clamp(int(50*pitch), 0, 99)),
		"-a", strconv.Itoa(clamp(int(100*opts.Volume), 0, 200)),
		"--", text,
	}
}

// ParseVoices reads the table printed by espeak-ng --voices.
func ParseVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, Voice{Language: fields[1], Name: fields[3]})
	}
	return voices
}

// FilterEnglish keeps voices for English locales.
func FilterEnglish(voices []Voice) []Voice {
	var out []Voice
	for _, v := range voices {
		lang := strings.ToLower(v.Language)
		if lang == "en" || strings.HasPrefix(lang, "en-") || strings.HasPrefix(lang, "en_") {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
