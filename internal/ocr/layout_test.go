package ocr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unikrew/internal/domain"
	"unikrew/internal/ocr"
)

func TestNormalizeBox(t *testing.T) {
	tests := []struct {
		name   string
		box    domain.PixelBox
		width  int
		height int
		want   domain.NormalizedBox
	}{
		{
			name:   "exact scale",
			box:    domain.PixelBox{Left: 100, Top: 50, Width: 200, Height: 25},
			width:  1000,
			height: 500,
			want:   domain.NormalizedBox{100, 100, 300, 150},
		},
		{
			name:   "truncates toward zero",
			box:    domain.PixelBox{Left: 1, Top: 1, Width: 1, Height: 1},
			width:  3,
			height: 7,
			want:   domain.NormalizedBox{333, 142, 666, 285},
		},
		{
			name:   "full image",
			box:    domain.PixelBox{Left: 0, Top: 0, Width: 640, Height: 480},
			width:  640,
			height: 480,
			want:   domain.NormalizedBox{0, 0, 1000, 1000},
		},
		{
			name:   "clamps overflow",
			box:    domain.PixelBox{Left: 600, Top: 470, Width: 100, Height: 40},
			width:  640,
			height: 480,
			want:   domain.NormalizedBox{937, 979, 1000, 1000},
		},
		{
			name:   "clamps negative origin",
			box:    domain.PixelBox{Left: -5, Top: -1, Width: 10, Height: 10},
			width:  100,
			height: 100,
			want:   domain.NormalizedBox{0, 0, 50, 90},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ocr.NormalizeBox(tt.box, tt.width, tt.height)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeBox_InvalidDimensions(t *testing.T) {
	_, err := ocr.NormalizeBox(domain.PixelBox{Left: 1}, 0, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)

	_, err = ocr.NormalizeBox(domain.PixelBox{Left: 1}, 100, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}

func TestNormalizeBoxes_PreservesOrder(t *testing.T) {
	words := []domain.Word{
		{Text: "a", Box: domain.PixelBox{Left: 0, Top: 0, Width: 10, Height: 10}},
		{Text: "b", Box: domain.PixelBox{Left: 50, Top: 50, Width: 10, Height: 10}},
	}

	boxes, err := ocr.NormalizeBoxes(words, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, []domain.NormalizedBox{{0, 0, 100, 100}, {500, 500, 600, 600}}, boxes)
	assert.Equal(t, []string{"a", "b"}, ocr.Texts(words))
}

func TestNormalizeBoxes_Empty(t *testing.T) {
	boxes, err := ocr.NormalizeBoxes(nil, 100, 100)
	require.NoError(t, err)
	assert.Empty(t, boxes)
}
