package extract

import (
	"context"
	"image"

	"github.com/kpauljoseph/spellbee/pkg/models"
)

// TextRun is a piece of text placed on a page. Y grows downwards.
type TextRun struct {
	Text string
	X    float64
	Y    float64
}

// Document is an opened file that exposes its text layer and, where the
// format allows, a raster rendering of its pages. Page indexes are zero based.
type Document interface {
	PageCount() int
	PageRuns(page int) ([]TextRun, error)
	RenderPage(page int, scale float64) (image.Image, error)
	Close() error
}

type Opener interface {
	Open(ctx context.Context, file models.Document) (Document, error)
}

// Source is what each strategy sees. Doc is nil when the file could not be
// opened; OpenErr then says why.
type Source struct {
	File    models.Document
	Doc     Document
	OpenErr error
}

// Strategy is one stage of the fallback chain. Returning no words (with or
// without an error) hands over to the next stage.
type Strategy interface {
	Method() models.ExtractionMethod
	Extract(ctx context.Context, src *Source) ([]string, error)
}
