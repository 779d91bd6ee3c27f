package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"

	// Decoders registered for image.Decode / image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"unikrew/internal/domain"
)

// nativeFormats are passed to the OCR engine unchanged; everything else is
// re-encoded as PNG first.
var nativeFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"tiff": true,
}

// Dimensions returns the pixel width and height of an encoded image.
func Dimensions(data []byte) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, "", fmt.Errorf("%w: empty image %dx%d", domain.ErrInvalidImage, cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, format, nil
}

// PrepareImage returns bytes the OCR engine can read together with the image
// dimensions. WebP, BMP and GIF inputs are decoded and re-encoded as PNG.
func PrepareImage(data []byte) (prepared []byte, width, height int, err error) {
	width, height, format, err := Dimensions(data)
	if err != nil {
		return nil, 0, 0, err
	}
	if nativeFormats[format] {
		return data, width, height, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: decoding %s: %v", domain.ErrInvalidImage, format, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, 0, 0, fmt.Errorf("re-encoding %s as png: %w", format, err)
	}
	return buf.Bytes(), width, height, nil
}

// DetectContentType sniffs the MIME type of an image, recognizing the formats
// http.DetectContentType does not (TIFF).
func DetectContentType(data []byte) string {
	if len(data) >= 4 {
		if bytes.Equal(data[:4], []byte("II*\x00")) || bytes.Equal(data[:4], []byte("MM\x00*")) {
			return "image/tiff"
		}
	}
	n := len(data)
	if n > 512 {
		n = 512
	}
	return http.DetectContentType(data[:n])
}
