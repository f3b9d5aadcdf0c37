package extract

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kpauljoseph/spellbee/internal/ocr"
	"github.com/kpauljoseph/spellbee/pkg/logger"
	"github.com/kpauljoseph/spellbee/pkg/models"
	"github.com/kpauljoseph/spellbee/pkg/normalize"
)

var errNoDocument = errors.New("document could not be opened")

// DefaultWords is returned when nothing usable could be read from a document.
var DefaultWords = []string{
	"content", "document", "education", "example", "learning",
	"practice", "sample", "study", "text", "words",
}

// TextLayer reads the positioned text of every page.
type TextLayer struct {
	logger *logger.Logger
}

func NewTextLayer(log *logger.Logger) *TextLayer {
	return &TextLayer{logger: logger.OrDiscard(log)}
}

func (s *TextLayer) Method() models.ExtractionMethod { return models.MethodTextExtraction }

func (s *TextLayer) Extract(ctx context.Context, src *Source) ([]string, error) {
	if src.Doc == nil {
		return nil, errNoDocument
	}

	var tokens []string
	for page := 0; page < src.Doc.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		runs, err := src.Doc.PageRuns(page)
		if err != nil {
			s.logger.Debug("Skipping page %d of %s: %v", page+1, src.File.Name, err)
			continue
		}
		tokens = append(tokens, tokensFromLines(GroupLines(runs))...)
	}
	return normalize.CleanWords(tokens), nil
}

// OCR renders the first page and runs it through a recognizer. Any engine
// failure is reported as an error and the chain moves on.
type OCR struct {
	recognizer ocr.Recognizer
	scale      float64
	timeout    time.Duration
	logger     *logger.Logger
}

func NewOCR(recognizer ocr.Recognizer, scale float64, timeout time.Duration, log *logger.Logger) *OCR {
	return &OCR{recognizer: recognizer, scale: scale, timeout: timeout, logger: logger.OrDiscard(log)}
}

func (s *OCR) Method() models.ExtractionMethod { return models.MethodOCR }

func (s *OCR) Extract(ctx context.Context, src *Source) ([]string, error) {
	if s.recognizer == nil {
		return nil, ocr.ErrUnavailable
	}
	if src.Doc == nil {
		return nil, errNoDocument
	}
	if src.Doc.PageCount() == 0 {
		return nil, nil
	}

	img, err := src.Doc.RenderPage(0, s.scale)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		result ocr.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.recognizer.Recognize(ctx, img)
		done <- outcome{result: res, err: err}
	}()

	var res ocr.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		res = o.result
	}

	lines := strings.Split(res.Text, "\n")
	return normalize.CleanWords(tokensFromLines(lines)), nil
}

var nonLetters = regexp.MustCompile(`[^A-Za-z]+`)

// Filename derives words from the document name.
type Filename struct{}

func (Filename) Method() models.ExtractionMethod { return models.MethodFilename }

func (Filename) Extract(_ context.Context, src *Source) ([]string, error) {
	return WordsFromFilename(src.File.Name), nil
}

// WordsFromFilename strips the extension, splits on anything that is not a
// letter and keeps tokens of 2 to 30 letters.
func WordsFromFilename(name string) []string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	seen := make(map[string]struct{})
	var words []string
	for _, tok := range strings.Fields(nonLetters.ReplaceAllString(base, " ")) {
		if len(tok) < 2 || len(tok) > normalize.MaxWordLength {
			continue
		}
		w := strings.ToLower(tok)
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Default always yields the placeholder list.
type Default struct{}

func (Default) Method() models.ExtractionMethod { return models.MethodFallback }

func (Default) Extract(context.Context, *Source) ([]string, error) {
	words := make([]string, len(DefaultWords))
	copy(words, DefaultWords)
	return words, nil
}
