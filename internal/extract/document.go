package extract

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/kpauljoseph/spellbee/pkg/models"
)

var ErrNoRaster = errors.New("document has no raster representation")

var pdfMagic = []byte("%PDF-")

// readability resolves relative links against a page URL; local files have none.
var localPageURL = &url.URL{Scheme: "file", Path: "/"}

// SupportedExtensions lists the file extensions the default opener understands.
var SupportedExtensions = []string{".pdf", ".html", ".htm", ".txt", ".csv", ".md"}

// IsSupported reports whether the file name has an extension the opener handles.
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FormatOpener picks a document backend by sniffing the content.
type FormatOpener struct{}

func NewOpener() *FormatOpener {
	return &FormatOpener{}
}

func (o *FormatOpener) Open(ctx context.Context, file models.Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch detectFormat(file) {
	case formatPDF:
		return openPDF(file.Bytes)
	case formatHTML:
		return openHTML(file.Bytes)
	default:
		return openText(file.Bytes), nil
	}
}

type format int

const (
	formatText format = iota
	formatPDF
	formatHTML
)

func detectFormat(file models.Document) format {
	if bytes.HasPrefix(bytes.TrimLeft(file.Bytes, " \t\r\n"), pdfMagic) {
		return formatPDF
	}
	if strings.HasPrefix(http.DetectContentType(file.Bytes), "text/html") {
		return formatHTML
	}
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".html", ".htm":
		return formatHTML
	case ".pdf":
		return formatPDF
	}
	return formatText
}

// textDocument is a single page of plain lines. Each line becomes a run on
// its own row.
type textDocument struct {
	lines []string
}

func openText(data []byte) *textDocument {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		// csv cells are separate words
		lines = append(lines, strings.ReplaceAll(sc.Text(), ",", " "))
	}
	return &textDocument{lines: lines}
}

func (d *textDocument) PageCount() int { return 1 }

func (d *textDocument) PageRuns(page int) ([]TextRun, error) {
	if page != 0 {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	return linesToRuns(d.lines), nil
}

func (d *textDocument) RenderPage(int, float64) (image.Image, error) {
	return nil, ErrNoRaster
}

func (d *textDocument) Close() error { return nil }

func linesToRuns(lines []string) []TextRun {
	runs := make([]TextRun, 0, len(lines))
	for i, line := range lines {
		runs = append(runs, TextRun{Text: line, Y: float64(i)})
	}
	return runs
}

// openHTML keeps the readable part of a page. Short word-list pages are often
// discarded by readability, so the whole body text is used in that case.
func openHTML(data []byte) (*textDocument, error) {
	var text string
	article, err := readability.FromReader(bytes.NewReader(data), localPageURL)
	if err == nil {
		text = article.TextContent
	}
	if strings.TrimSpace(text) == "" {
		doc, qerr := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if qerr != nil {
			return nil, fmt.Errorf("failed to parse html: %w", qerr)
		}
		doc.Find("script, style, noscript").Remove()
		var lines []string
		doc.Find("body").Find("p, li, td, th, h1, h2, h3, h4, h5, h6, dt, dd").Each(func(_ int, s *goquery.Selection) {
			lines = append(lines, s.Text())
		})
		if len(lines) == 0 {
			lines = strings.Split(doc.Find("body").Text(), "\n")
		}
		return &textDocument{lines: lines}, nil
	}
	return &textDocument{lines: strings.Split(text, "\n")}, nil
}
