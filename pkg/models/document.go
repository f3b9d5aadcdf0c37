package models

import (
	"time"
)

type ExtractionMethod string

const (
	MethodTextExtraction ExtractionMethod = "text-extraction"
	MethodOCR            ExtractionMethod = "ocr"
	MethodFilename       ExtractionMethod = "filename"
	MethodFallback       ExtractionMethod = "fallback"
)

// Document is an uploaded file handed to the extraction pipeline.
type Document struct {
	Name  string
	Size  int64
	Bytes []byte
}

type ExtractionResult struct {
	Words    []string           `json:"words"`
	Metadata ExtractionMetadata `json:"metadata"`
}

type ExtractionMetadata struct {
	Filename    string           `json:"filename"`
	PageCount   int              `json:"pageCount"`
	ExtractedAt time.Time        `json:"extractedAt"`
	Method      ExtractionMethod `json:"method"`
	Note        string           `json:"note,omitempty"`
}

// LowConfidence is true for results that did not come from the document's
// own content.
func (m ExtractionMetadata) LowConfidence() bool {
	return m.Method == MethodFilename || m.Method == MethodFallback
}
