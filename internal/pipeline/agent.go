// Package pipeline chains OCR, token classification and LLM reasoning into a
// single receipt extraction.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"unikrew/internal/classifier"
	"unikrew/internal/domain"
	"unikrew/internal/ocr"
	"unikrew/internal/port"
)

// Image is a receipt image handed to the pipeline.
type Image struct {
	Bytes       []byte
	ContentType string
}

// Timings records how long each stage took.
type Timings struct {
	OCR      time.Duration `json:"ocr"`
	Classify time.Duration `json:"classify"`
	Reason   time.Duration `json:"reason"`
}

// Extraction is everything one pipeline run produced.
type Extraction struct {
	OCRText         string                 `json:"ocr_text"`
	Words           []domain.Word          `json:"words"`
	Boxes           []domain.NormalizedBox `json:"boxes"`
	Width           int                    `json:"width"`
	Height          int                    `json:"height"`
	Labels          []string               `json:"labels"`
	Entities        domain.Entities        `json:"entities"`
	Fields          domain.ReceiptFields   `json:"fields"`
	FieldsJSON      json.RawMessage        `json:"-"`
	FieldProvenance map[string]string      `json:"field_provenance,omitempty"`
	OCREngine       string                 `json:"ocr_engine"`
	ClassifierModel string                 `json:"classifier_model"`
	ReasonerModel   string                 `json:"reasoner_model"`
	SecondaryModel  string                 `json:"secondary_model,omitempty"`
	Timings         Timings                `json:"timings"`
}

// Agent runs the extraction stages in order.
type Agent struct {
	ocr        port.TextExtractor
	classifier port.TokenClassifier
	reasoner   port.Reasoner
}

// NewAgent creates an Agent from its three stage implementations.
func NewAgent(extractor port.TextExtractor, tokenClassifier port.TokenClassifier, reasoner port.Reasoner) *Agent {
	return &Agent{
		ocr:        extractor,
		classifier: tokenClassifier,
		reasoner:   reasoner,
	}
}

// Run extracts the receipt fields from img. Stage failures wrap
// ErrOCRFailed, ErrClassificationFailed or ErrReasoningFailed around the
// underlying error, so a RateLimitError stays reachable with errors.As.
func (a *Agent) Run(ctx context.Context, img Image) (*Extraction, error) {
	start := time.Now()

	ocrOut, err := a.ocr.Extract(ctx, port.OCRInput{Image: img.Bytes, ContentType: img.ContentType})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOCRFailed, err)
	}
	ocrDone := time.Now()

	if len(ocrOut.Words) == 0 {
		return nil, domain.ErrNoTextDetected
	}

	boxes, err := ocr.NormalizeBoxes(ocrOut.Words, ocrOut.Width, ocrOut.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOCRFailed, err)
	}
	words := ocr.Texts(ocrOut.Words)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clsOut, err := a.classifier.Classify(ctx, port.ClassifyInput{
		Image:       img.Bytes,
		ContentType: img.ContentType,
		Words:       words,
		Boxes:       boxes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrClassificationFailed, err)
	}
	clsDone := time.Now()

	entities := classifier.Reassemble(words, clsOut.Labels)
	ocrText := strings.Join(words, " ")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rsnOut, err := a.reasoner.Reason(ctx, port.ReasonInput{OCRText: ocrText, Entities: entities})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrReasoningFailed, err)
	}
	rsnDone := time.Now()

	ext := &Extraction{
		OCRText:         ocrText,
		Words:           ocrOut.Words,
		Boxes:           boxes,
		Width:           ocrOut.Width,
		Height:          ocrOut.Height,
		Labels:          clsOut.Labels,
		Entities:        entities,
		Fields:          rsnOut.Fields,
		FieldsJSON:      rsnOut.RawJSON,
		FieldProvenance: rsnOut.FieldProvenance,
		OCREngine:       ocrOut.Engine,
		ClassifierModel: clsOut.ModelUsed,
		ReasonerModel:   rsnOut.ModelUsed,
		SecondaryModel:  rsnOut.SecondaryModel,
		Timings: Timings{
			OCR:      ocrDone.Sub(start),
			Classify: clsDone.Sub(ocrDone),
			Reason:   rsnDone.Sub(clsDone),
		},
	}

	zap.L().Info("pipeline.Agent.Run: extraction complete",
		zap.Int("words", len(words)),
		zap.String("classifier_model", ext.ClassifierModel),
		zap.String("reasoner_model", ext.ReasonerModel),
		zap.Duration("ocr", ext.Timings.OCR),
		zap.Duration("classify", ext.Timings.Classify),
		zap.Duration("reason", ext.Timings.Reason),
	)

	return ext, nil
}
