package ocr

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates no OCR provider is wired in. Callers degrade to
// storing the image without extracted text.
var ErrNotConfigured = errors.New("ocr client not configured")

// Result is the raw output of the OCR collaborator.
type Result struct {
	Text       string
	Confidence float64
}

// Client extracts text from image bytes. Implementations may fail or return
// empty text; callers must treat both as a degraded upload, never a fatal one.
type Client interface {
	ExtractText(ctx context.Context, image []byte) (Result, error)
}

// Disabled is the no-op client used when OCR_PROVIDER is "none".
type Disabled struct{}

// ExtractText always reports that no provider is configured.
func (Disabled) ExtractText(ctx context.Context, image []byte) (Result, error) {
	_ = ctx
	_ = image
	return Result{}, ErrNotConfigured
}
