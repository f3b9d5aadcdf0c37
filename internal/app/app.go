// Package app wires the spelling components together from a loaded config.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kpauljoseph/spellbee/internal/config"
	"github.com/kpauljoseph/spellbee/internal/extract"
	"github.com/kpauljoseph/spellbee/internal/ocr"
	"github.com/kpauljoseph/spellbee/internal/practice"
	"github.com/kpauljoseph/spellbee/internal/scanner"
	"github.com/kpauljoseph/spellbee/internal/scheduler"
	"github.com/kpauljoseph/spellbee/internal/selector"
	"github.com/kpauljoseph/spellbee/internal/settings"
	"github.com/kpauljoseph/spellbee/internal/speech"
	"github.com/kpauljoseph/spellbee/internal/store"
	"github.com/kpauljoseph/spellbee/internal/transfer"
	"github.com/kpauljoseph/spellbee/pkg/logger"
	"github.com/kpauljoseph/spellbee/pkg/models"
)

type App struct {
	Config    *config.Config
	DB        *store.DB
	Words     *store.WordRepo
	Pipeline  *extract.Pipeline
	Scheduler *scheduler.Scheduler
	Selector  *selector.Selector
	Transfer  *transfer.Codec
	Settings  *settings.Service
	Scanner   *scanner.DirectoryScanner

	speaker  speech.Speaker
	ocr      *ocr.Tesseract
	logger   *logger.Logger
	now      func() time.Time
	progress extract.ProgressFunc
}

type Option func(*App)

// WithProgress receives extraction progress events.
func WithProgress(fn extract.ProgressFunc) Option {
	return func(a *App) { a.progress = fn }
}

// WithSpeaker replaces the espeak engine.
func WithSpeaker(s speech.Speaker) Option {
	return func(a *App) { a.speaker = s }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New opens the store and builds every service. An OCR engine that fails to
// start is logged and left out; scanned documents then fall back to their
// file names.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	a := &App{Config: cfg, logger: logger.OrDiscard(log), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	db, err := store.Open(ctx, cfg.Database.Path, a.logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.Words = db.Words()

	var recognizer ocr.Recognizer
	if !cfg.OCR.Disabled {
		t := ocr.NewTesseract(ocr.Options{
			Command:        cfg.OCR.Command,
			Language:       cfg.OCR.Language,
			StartupTimeout: cfg.Extraction.OCRStartupTimeout,
		}, a.logger)
		if err := t.Init(ctx); err != nil {
			a.logger.Warn("OCR disabled: %v", err)
		} else {
			a.ocr = t
			recognizer = t
		}
	}

	a.Pipeline, err = extract.NewPipeline(extract.Options{
		MaxFileSize: cfg.Extraction.MaxFileSize,
		RenderScale: cfg.Extraction.RenderScale,
		OCRTimeout:  cfg.Extraction.OCRTimeout,
		CacheSize:   cfg.Extraction.CacheSize,
		Progress:    a.progress,
	}, extract.NewOpener(), recognizer, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if a.speaker == nil {
		a.speaker = speech.NewESpeak(cfg.Speech.Command, cfg.Speech.Language, a.logger)
	}

	a.Scheduler = scheduler.New(a.Words, a.logger, scheduler.WithClock(a.now))
	a.Selector = selector.New(a.Words, a.now().UnixNano())
	a.Transfer = transfer.New(a.Words, a.logger, transfer.WithClock(a.now))
	a.Settings = settings.NewService(db.Settings(), a.logger)
	a.Scanner = scanner.New(a.logger)
	return a, nil
}

func (a *App) Close() error {
	if a.ocr != nil {
		a.ocr.Dispose()
	}
	if a.speaker != nil {
		a.speaker.Dispose()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// ExtractFile reads and extracts the words of a single document.
func (a *App) ExtractFile(ctx context.Context, path string) (models.ExtractionResult, error) {
	doc, err := readDocument(path)
	if err != nil {
		return models.ExtractionResult{}, err
	}
	return a.Pipeline.Parse(ctx, doc)
}

// AddFile extracts a document and stores its words under the file name.
func (a *App) AddFile(ctx context.Context, path string) (models.ExtractionResult, store.AddResult, error) {
	result, err := a.ExtractFile(ctx, path)
	if err != nil {
		return result, store.AddResult{}, err
	}
	added, err := a.Words.AddWords(ctx, result.Words, filepath.Base(path), a.now())
	return result, added, err
}

func readDocument(path string) (models.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if info.IsDir() {
		return models.Document{}, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return models.Document{Name: filepath.Base(path), Size: info.Size(), Bytes: data}, nil
}

// NewPractice prepares a session with the saved settings. The speech
// engine is started on demand; if it cannot start, words are still drawn
// and each prompt carries the speech error.
func (a *App) NewPractice(ctx context.Context, mode models.PracticeMode) (*practice.Session, error) {
	s, err := a.Settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if mode != "" {
		s.Practice.Mode = mode
	}
	if err := a.speaker.Init(ctx); err != nil {
		a.logger.Warn("Speech unavailable: %v", err)
	}

	return practice.NewSession(practice.Deps{
		Selector:  a.Selector,
		Scheduler: a.Scheduler,
		Speaker:   a.speaker,
		Sessions:  a.DB.Sessions(),
		Logger:    a.logger,
		Now:       a.now,
	}, s), nil
}

// Voices lists the English voices of the speech engine.
func (a *App) Voices(ctx context.Context) ([]speech.Voice, error) {
	return a.speaker.ListVoices(ctx)
}
