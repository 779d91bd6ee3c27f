package ocr

import (
	"fmt"

	"unikrew/internal/domain"
)

// LayoutScale is the coordinate range expected by layout-aware token classifiers.
const LayoutScale = 1000

// NormalizeBox rescales a pixel box to the 0-1000 layout space as
// [x0, y0, x1, y1]. Coordinates are truncated toward zero and clamped.
func NormalizeBox(box domain.PixelBox, width, height int) (domain.NormalizedBox, error) {
	if width <= 0 || height <= 0 {
		return domain.NormalizedBox{}, fmt.Errorf("%w: non-positive dimensions %dx%d", domain.ErrInvalidImage, width, height)
	}
	return domain.NormalizedBox{
		scale(box.Left, width),
		scale(box.Top, height),
		scale(box.Left+box.Width, width),
		scale(box.Top+box.Height, height),
	}, nil
}

// NormalizeBoxes rescales every word box, preserving order.
func NormalizeBoxes(words []domain.Word, width, height int) ([]domain.NormalizedBox, error) {
	boxes := make([]domain.NormalizedBox, 0, len(words))
	for _, w := range words {
		b, err := NormalizeBox(w.Box, width, height)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

func scale(v, dim int) int {
	n := int(int64(LayoutScale) * int64(v) / int64(dim))
	if n < 0 {
		return 0
	}
	if n > LayoutScale {
		return LayoutScale
	}
	return n
}

// Texts returns the word texts in order.
func Texts(words []domain.Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text
	}
	return out
}
