package port

import (
	"context"

	"unikrew/internal/domain"
)

// ClassifyInput carries the image, words and 0-1000 boxes for token classification.
type ClassifyInput struct {
	Image       []byte
	ContentType string
	Words       []string
	Boxes       []domain.NormalizedBox
}

// ClassifyOutput holds one BIO label per input word.
type ClassifyOutput struct {
	Labels    []string
	ModelUsed string
}

// TokenClassifier abstracts the layout-aware sequence labeling model.
type TokenClassifier interface {
	Classify(ctx context.Context, input ClassifyInput) (*ClassifyOutput, error)
}
