package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var tokenPattern = regexp.MustCompile(`[A-Za-z][A-Za-z\-']*`)

const months = `(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?`

var noisePatterns = []*regexp.Regexp{
	// page numbers
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^-\s*\d+\s*-$`),
	regexp.MustCompile(`^(page|pg\.?|p\.)\s*\d+(\s*(of|/)\s*\d+)?$`),
	// chapter headings
	regexp.MustCompile(`^chapter\s+(\d+|[ivxlc]+)\b`),
	// copyright lines
	regexp.MustCompile(`©|\(c\)\s*\d{4}|copyright|all rights reserved`),
	// bare dates
	regexp.MustCompile(`^\d{1,4}[/.\-]\d{1,2}[/.\-]\d{1,4}$`),
	regexp.MustCompile(`^` + months + `\s+\d{1,2}(st|nd|rd|th)?,?\s+\d{4}$`),
	regexp.MustCompile(`^\d{1,2}(st|nd|rd|th)?\s+` + months + `,?\s+\d{4}$`),
	regexp.MustCompile(`^` + months + `,?\s+\d{4}$`),
	// table of contents
	regexp.MustCompile(`^(table of )?contents$`),
	regexp.MustCompile(`\.{3,}\s*\d+$`),
}

// IsNoiseLine reports whether a line is page furniture rather than content.
func IsNoiseLine(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if len([]rune(trimmed)) < 2 {
		return true
	}
	for _, p := range noisePatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// GroupLines assembles runs into text lines. Runs whose Y rounds to the same
// value share a line and are joined left to right.
func GroupLines(runs []TextRun) []string {
	if len(runs) == 0 {
		return nil
	}

	byLine := make(map[float64][]TextRun)
	for _, r := range runs {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		y := math.Round(r.Y)
		byLine[y] = append(byLine[y], r)
	}

	ys := make([]float64, 0, len(byLine))
	for y := range byLine {
		ys = append(ys, y)
	}
	sort.Float64s(ys)

	lines := make([]string, 0, len(ys))
	for _, y := range ys {
		line := byLine[y]
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		parts := make([]string, 0, len(line))
		for _, r := range line {
			parts = append(parts, strings.TrimSpace(r.Text))
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return lines
}

// Tokenize returns the letter runs of a line after folding compatibility
// characters (ligatures, full-width letters, curly apostrophes).
func Tokenize(line string) []string {
	folded := norm.NFKC.String(line)
	folded = strings.NewReplacer("’", "'", "‘", "'", "‐", "-", "‑", "-").Replace(folded)
	return tokenPattern.FindAllString(folded, -1)
}

// tokensFromLines drops noise lines and tokenizes the rest.
func tokensFromLines(lines []string) []string {
	var tokens []string
	for _, line := range lines {
		if IsNoiseLine(line) {
			continue
		}
		tokens = append(tokens, Tokenize(line)...)
	}
	return tokens
}
