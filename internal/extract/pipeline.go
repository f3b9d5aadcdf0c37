// Package extract turns uploaded documents into candidate spelling words.
//
// Extraction runs an ordered chain of strategies (text layer, OCR, file name,
// placeholder list). Only input validation fails the call; everything else
// falls through to the next strategy.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kpauljoseph/spellbee/internal/ocr"
	"github.com/kpauljoseph/spellbee/pkg/logger"
	"github.com/kpauljoseph/spellbee/pkg/models"
	"github.com/kpauljoseph/spellbee/pkg/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input document")
	ErrTooLarge     = errors.New("document too large")
)

const (
	DefaultMaxFileSize = 50 * 1024 * 1024
	DefaultRenderScale = 2.0
	DefaultOCRTimeout  = 30 * time.Second
	DefaultCacheSize   = 64
)

var notes = map[models.ExtractionMethod]string{
	models.MethodTextExtraction: "Words extracted from the document text layer",
	models.MethodOCR:            "Words recognised with OCR (lower confidence)",
	models.MethodFilename:       "Words extracted from filename (document text not available)",
	models.MethodFallback:       "Default word list (document text not available)",
}

type Status string

const (
	StatusStarted   Status = "started"
	StatusSucceeded Status = "succeeded"
	StatusEmpty     Status = "empty"
	StatusFailed    Status = "failed"
)

// Progress is emitted for every stage the pipeline tries.
type Progress struct {
	File   string
	Method models.ExtractionMethod
	Status Status
	Words  int
	Err    error
}

type ProgressFunc func(Progress)

type Options struct {
	MaxFileSize int64
	RenderScale float64
	OCRTimeout  time.Duration
	CacheSize   int
	Progress    ProgressFunc
}

func (o *Options) setDefaults() {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.RenderScale <= 0 {
		o.RenderScale = DefaultRenderScale
	}
	if o.OCRTimeout <= 0 {
		o.OCRTimeout = DefaultOCRTimeout
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
}

type Pipeline struct {
	opts       Options
	opener     Opener
	strategies []Strategy
	cache      *lru.Cache[string, models.ExtractionResult]
	logger     *logger.Logger
	now        func() time.Time
}

// NewPipeline builds the default chain. A nil recognizer leaves OCR
// permanently unavailable, so scanned documents go straight to the file name.
func NewPipeline(opts Options, opener Opener, recognizer ocr.Recognizer, log *logger.Logger) (*Pipeline, error) {
	opts.setDefaults()
	log = logger.OrDiscard(log)
	if opener == nil {
		opener = NewOpener()
	}
	strategies := []Strategy{
		NewTextLayer(log),
		NewOCR(recognizer, opts.RenderScale, opts.OCRTimeout, log),
		Filename{},
		Default{},
	}
	return NewPipelineWithStrategies(opts, opener, strategies, log)
}

func NewPipelineWithStrategies(opts Options, opener Opener, strategies []Strategy, log *logger.Logger) (*Pipeline, error) {
	opts.setDefaults()
	if len(strategies) == 0 {
		return nil, fmt.Errorf("at least one extraction strategy is required")
	}
	cache, err := lru.New[string, models.ExtractionResult](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &Pipeline{
		opts:       opts,
		opener:     opener,
		strategies: strategies,
		cache:      cache,
		logger:     logger.OrDiscard(log),
		now:        time.Now,
	}, nil
}

func (p *Pipeline) Validate(file models.Document) error {
	size := file.Size
	if size == 0 {
		size = int64(len(file.Bytes))
	}
	if size <= 0 || len(file.Bytes) == 0 {
		return fmt.Errorf("%w: %q is empty", ErrInvalidInput, file.Name)
	}
	if size > p.opts.MaxFileSize || int64(len(file.Bytes)) > p.opts.MaxFileSize {
		return fmt.Errorf("%w: %q is %d bytes, limit is %d", ErrTooLarge, file.Name, size, p.opts.MaxFileSize)
	}
	return nil
}

// Parse extracts candidate words from file. It only returns an error for
// invalid input or when ctx is cancelled.
func (p *Pipeline) Parse(ctx context.Context, file models.Document) (models.ExtractionResult, error) {
	if err := p.Validate(file); err != nil {
		return models.ExtractionResult{}, err
	}

	key := utils.ContentHash([]byte(file.Name), file.Bytes)
	if cached, ok := p.cache.Get(key); ok {
		p.logger.Debug("Using cached extraction for %s", file.Name)
		return copyResult(cached), nil
	}

	src := &Source{File: file}
	doc, err := p.opener.Open(ctx, file)
	if err != nil {
		p.logger.Debug("Could not open %s: %v", file.Name, err)
		src.OpenErr = err
	} else {
		src.Doc = doc
		defer doc.Close()
	}

	result := models.ExtractionResult{
		Metadata: models.ExtractionMetadata{
			Filename:  file.Name,
			PageCount: p.pageCount(file, src),
		},
	}

	retry := false
	for _, strategy := range p.strategies {
		if err := ctx.Err(); err != nil {
			return models.ExtractionResult{}, err
		}

		method := strategy.Method()
		p.emit(Progress{File: file.Name, Method: method, Status: StatusStarted})

		words, err := strategy.Extract(ctx, src)
		if err != nil {
			// the stage's own timeout is a stage failure, the caller's is not
			if ctxErr := ctx.Err(); ctxErr != nil {
				return models.ExtractionResult{}, ctxErr
			}
			p.logger.Debug("%s stage failed for %s: %v", method, file.Name, err)
			retry = retry || !permanentFailure(err)
			p.emit(Progress{File: file.Name, Method: method, Status: StatusFailed, Err: err})
			continue
		}
		if len(words) == 0 {
			p.emit(Progress{File: file.Name, Method: method, Status: StatusEmpty})
			continue
		}

		p.emit(Progress{File: file.Name, Method: method, Status: StatusSucceeded, Words: len(words)})
		result.Words = words
		result.Metadata.Method = method
		result.Metadata.Note = notes[method]
		break
	}

	result.Metadata.ExtractedAt = p.now()
	if result.Words == nil {
		result.Words = []string{}
	}
	p.logger.Info("Extracted %d words from %s via %s", len(result.Words), file.Name, result.Metadata.Method)

	if retry {
		p.logger.Debug("Not caching extraction for %s: a stage may succeed on retry", file.Name)
	} else {
		p.cache.Add(key, copyResult(result))
	}
	return result, nil
}

// permanentFailure reports stage errors that repeat for the same bytes in
// this process, so a result produced after them is safe to cache.
func permanentFailure(err error) bool {
	return errors.Is(err, errNoDocument) || errors.Is(err, ocr.ErrUnavailable)
}

func (p *Pipeline) pageCount(file models.Document, src *Source) int {
	if detectFormat(file) == formatPDF {
		if n, err := pdfPageCount(file.Bytes); err == nil {
			return n
		}
	}
	if src.Doc != nil {
		return src.Doc.PageCount()
	}
	return 0
}

func (p *Pipeline) emit(ev Progress) {
	if p.opts.Progress != nil {
		p.opts.Progress(ev)
	}
}

func copyResult(r models.ExtractionResult) models.ExtractionResult {
	words := make([]string, len(r.Words))
	copy(words, r.Words)
	r.Words = words
	return r
}
