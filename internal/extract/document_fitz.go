package extract

import (
	"bytes"
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	styleTop  = regexp.MustCompile(`top:\s*(-?[\d.]+)pt`)
	styleLeft = regexp.MustCompile(`left:\s*(-?[\d.]+)pt`)
)

// fitzDocument reads PDFs through MuPDF. Positioned runs come from MuPDF's
// HTML page output, where every text line is a <p> with absolute top/left.
type fitzDocument struct {
	doc *fitz.Document
}

func openPDF(data []byte) (*fitzDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

func (d *fitzDocument) PageCount() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) PageRuns(page int) ([]TextRun, error) {
	html, err := d.doc.HTML(page, false)
	if err == nil {
		runs, perr := parsePageHTML(html)
		if perr == nil && len(runs) > 0 {
			return runs, nil
		}
	}

	text, terr := d.doc.Text(page)
	if terr != nil {
		return nil, fmt.Errorf("failed to read text of page %d: %w", page, terr)
	}
	return linesToRuns(strings.Split(text, "\n")), nil
}

func (d *fitzDocument) RenderPage(page int, scale float64) (image.Image, error) {
	img, err := d.doc.ImageDPI(page, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

func parsePageHTML(html string) ([]TextRun, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var runs []TextRun
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text == "" {
			return
		}
		style, _ := p.Attr("style")
		runs = append(runs, TextRun{
			Text: text,
			X:    styleValue(styleLeft, style),
			Y:    styleValue(styleTop, style),
		})
	})
	return runs, nil
}

func styleValue(re *regexp.Regexp, style string) float64 {
	m := re.FindStringSubmatch(style)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// pdfPageCount reads the page count from the PDF structure without rendering.
func pdfPageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), nil)
}

// PageDimensions returns the width and height in points of each page.
func PageDimensions(data []byte) ([][2]float64, error) {
	dims, err := api.PageDims(bytes.NewReader(data), nil)
	if err != nil {
		return nil, err
	}
	out := make([][2]float64, len(dims))
	for i, d := range dims {
		out[i] = [2]float64{d.Width, d.Height}
	}
	return out, nil
}
