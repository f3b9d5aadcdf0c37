// Package ocr adapts an external OCR engine to a small recognition interface.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kpauljoseph/spellbee/pkg/logger"
)

var ErrUnavailable = errors.New("ocr engine unavailable")

type Result struct {
	Text string
}

// Recognizer turns a page image into raw text. Callers bound each call with
// their own deadline.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (Result, error)
}

type Options struct {
	Command        string
	Language       string
	StartupTimeout time.Duration
}

// Tesseract drives the tesseract command line tool, feeding it PNG data on
// stdin and reading plain text from stdout.
type Tesseract struct {
	opts   Options
	logger *logger.Logger

	mu    sync.Mutex
	ready bool
}

func NewTesseract(opts Options, log *logger.Logger) *Tesseract {
	if opts.Command == "" {
		opts.Command = "tesseract"
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = 10 * time.Second
	}
	return &Tesseract{opts: opts, logger: logger.OrDiscard(log)}
}

// Init checks that the engine starts within the startup timeout.
func (t *Tesseract) Init(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.opts.StartupTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, t.opts.Command, "--version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, t.opts.Command, err)
	}
	t.logger.Debug("OCR engine ready: %s", firstLine(string(out)))
	t.ready = true
	return nil
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if err := t.Init(ctx); err != nil {
		return Result{}, err
	}

	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return Result{}, fmt.Errorf("failed to encode page image: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.opts.Command, "stdin", "stdout", "-l", t.opts.Language)
	cmd.Stdin = &in
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("tesseract failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	t.logger.Trace("OCR produced %d bytes of text", out.Len())
	return Result{Text: out.String()}, nil
}

// Dispose releases the engine. The next Recognize starts it again.
func (t *Tesseract) Dispose() {
	t.mu.Lock()
	t.ready = false
	t.mu.Unlock()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
