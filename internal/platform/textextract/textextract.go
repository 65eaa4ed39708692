// Package textextract wraps OCR text extraction for prescription PDFs.
// The production implementation uses the Google Cloud Vision API; a fake
// implementation backs tests and local development.
package textextract

import (
	"context"
	"errors"
)

var (
	ErrInvalidPDF    = errors.New("invalid or corrupted PDF document")
	ErrPDFTooLarge   = errors.New("PDF file size exceeds the processing limit")
	ErrEmptyDocument = errors.New("document contains no readable text")
	ErrUnavailable   = errors.New("text extraction service unavailable")
)

// Extractor turns a PDF document into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}
