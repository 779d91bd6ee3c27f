package port

import (
	"context"

	"unikrew/internal/domain"
)

// OCRInput carries the image handed to the text extractor.
type OCRInput struct {
	Image       []byte
	ContentType string
}

// OCROutput is the word-level OCR result with the source image dimensions.
type OCROutput struct {
	Words  []domain.Word
	Width  int
	Height int
	Engine string
}

// TextExtractor abstracts OCR over a receipt image.
type TextExtractor interface {
	Extract(ctx context.Context, input OCRInput) (*OCROutput, error)
}
