package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"unikrew/internal/config"
	"unikrew/internal/domain"
	"unikrew/internal/ocr"
	"unikrew/internal/port"
)

const engineName = "tesseract"

// Engine implements port.TextExtractor using the gosseract client.
type Engine struct {
	languages     []string
	pageSegMode   int
	tessdataDir   string
	clientFactory func() *gosseract.Client
}

// NewEngine constructs a Tesseract-backed text extractor from the OCR config.
func NewEngine(cfg *config.OCRConfig) *Engine {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &Engine{
		languages:     langs,
		pageSegMode:   cfg.PageSegMode,
		tessdataDir:   cfg.TessdataDir,
		clientFactory: gosseract.NewClient,
	}
}

var _ port.TextExtractor = (*Engine)(nil)

// Extract runs word-level OCR over the image. Words that are blank after
// trimming are dropped together with their boxes.
func (e *Engine) Extract(ctx context.Context, input port.OCRInput) (*port.OCROutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, width, height, err := ocr.PrepareImage(input.Image)
	if err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer func() { _ = c.Close() }()

	if err := e.configure(c); err != nil {
		return nil, err
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := toWords(boxes)
	zap.L().Debug("tesseract.Extract: recognized words",
		zap.Int("words", len(words)), zap.Int("width", width), zap.Int("height", height))

	return &port.OCROutput{
		Words:  words,
		Width:  width,
		Height: height,
		Engine: engineName,
	}, nil
}

func (e *Engine) configure(c *gosseract.Client) error {
	if e.tessdataDir != "" {
		if err := c.SetTessdataPrefix(e.tessdataDir); err != nil {
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(e.languages...); err != nil {
		return fmt.Errorf("set languages: %w", err)
	}
	if e.pageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.pageSegMode)); err != nil {
			return fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	return nil
}

func toWords(boxes []gosseract.BoundingBox) []domain.Word {
	words := make([]domain.Word, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		words = append(words, domain.Word{
			Text: text,
			Box: domain.PixelBox{
				Left:   b.Box.Min.X,
				Top:    b.Box.Min.Y,
				Width:  b.Box.Dx(),
				Height: b.Box.Dy(),
			},
			Confidence: b.Confidence / 100.0,
		})
	}
	return words
}
