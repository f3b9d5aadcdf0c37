package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/kpauljoseph/spellbee/internal/extract"
	"github.com/kpauljoseph/spellbee/pkg/models"
	"github.com/kpauljoseph/spellbee/pkg/utils"
)

func main() {
	path := flag.String("file", "", "Path to the document")
	renderDir := flag.String("render-dir", "", "save each page as PNG in this directory")
	scale := flag.Float64("scale", extract.DefaultRenderScale, "render scale for saved pages")
	flag.Parse()

	if *path == "" {
		fmt.Println("Please provide a document path using -file flag")
		os.Exit(1)
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Printf("Error reading document: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Analyzing document: %s (%d bytes)\n", *path, len(data))

	if strings.HasPrefix(string(data), "%PDF-") {
		dims, err := extract.PageDimensions(data)
		if err != nil {
			fmt.Printf("Error getting page dimensions: %v\n", err)
		}
		for i, dim := range dims {
			fmt.Printf("Page %d: %.3f x %.3f points\n", i+1, dim[0], dim[1])
		}
	}

	doc, err := extract.NewOpener().Open(context.Background(), models.Document{
		Name:  filepath.Base(*path),
		Size:  int64(len(data)),
		Bytes: data,
	})
	if err != nil {
		fmt.Printf("Error opening document: %v\n", err)
		os.Exit(1)
	}
	defer doc.Close()

	if *renderDir != "" {
		if err := os.MkdirAll(*renderDir, 0755); err != nil {
			fmt.Printf("Error creating render dir: %v\n", err)
			os.Exit(1)
		}
	}

	for page := 0; page < doc.PageCount(); page++ {
		fmt.Printf("\nPage %d:\n", page+1)

		runs, err := doc.PageRuns(page)
		if err != nil {
			fmt.Printf("Error reading text: %v\n", err)
		}
		for _, line := range extract.GroupLines(runs) {
			tag := "text "
			if extract.IsNoiseLine(line) {
				tag = "noise"
			}
			fmt.Printf("  [%s] %s\n", tag, line)
			if tag == "text " {
				fmt.Printf("          -> %s\n", strings.Join(extract.Tokenize(line), " "))
			}
		}

		if *renderDir == "" {
			continue
		}
		img, err := doc.RenderPage(page, *scale)
		if errors.Is(err, extract.ErrNoRaster) {
			fmt.Println("  (format has no page images)")
			continue
		}
		if err != nil {
			fmt.Printf("Error rendering page: %v\n", err)
			continue
		}

		imgPath := filepath.Join(*renderDir, fmt.Sprintf("page%d.png", page+1))
		f, err := os.Create(imgPath)
		if err != nil {
			fmt.Printf("Error saving page: %v\n", err)
			continue
		}
		png.Encode(f, img)
		f.Close()

		hash, _ := utils.GenerateImageHash(img)
		fmt.Printf("  Saved %s (hash %s)\n", imgPath, hash[:16])
	}
}
