package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PixelBox is a word bounding box in image pixel coordinates.
type PixelBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NormalizedBox is a word bounding box as [x0, y0, x1, y1] scaled to 0-1000.
type NormalizedBox [4]int

// Word is a single OCR token with its pixel box.
type Word struct {
	Text       string   `json:"text"`
	Box        PixelBox `json:"box"`
	Confidence float64  `json:"confidence"`
}

// Entities are the receipt fields reassembled from BIO-tagged words.
type Entities struct {
	Company string `json:"company"`
	Date    string `json:"date"`
	Address string `json:"address"`
	Total   string `json:"total"`

	// Spans holds every reassembled span by entity type, in document order.
	Spans map[string][]string `json:"-"`
}

// ReceiptFields is the validated structured answer produced by the reasoning step.
type ReceiptFields struct {
	Company      string `json:"company" yaml:"company" example:"STARBUCKS COFFEE"`
	Date         string `json:"date" yaml:"date" example:"12/03/2018"`
	Address      string `json:"address" yaml:"address" example:"LOT 1, JALAN PJU 7/3, MUTIARA DAMANSARA"`
	Total        string `json:"total" yaml:"total" example:"RM 15.90"`
	AgentComment string `json:"agent_comment" yaml:"agent_comment" example:"Company and total confirmed by both OCR text and the vision model."`
}

// Receipt is a persisted extraction request and its result.
type Receipt struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	OriginalName    string          `db:"original_name" json:"original_name"`
	ContentType     string          `db:"content_type" json:"content_type"`
	FileSize        int64           `db:"file_size" json:"file_size"`
	ContentHash     string          `db:"content_hash" json:"content_hash"`
	S3Bucket        string          `db:"s3_bucket" json:"-"`
	S3Key           string          `db:"s3_key" json:"-"`
	Status          ReceiptStatus   `db:"status" json:"status"`
	Attempts        int             `db:"attempts" json:"attempts"`
	Error           string          `db:"error" json:"error,omitempty"`
	RetryAfter      *time.Time      `db:"retry_after" json:"retry_after,omitempty"`
	OCRText         string          `db:"ocr_text" json:"ocr_text,omitempty"`
	Entities        json.RawMessage `db:"entities" json:"entities,omitempty" swaggertype:"object"`
	Fields          json.RawMessage `db:"fields" json:"fields,omitempty" swaggertype:"object"`
	FieldProvenance json.RawMessage `db:"field_provenance" json:"field_provenance,omitempty" swaggertype:"object"`
	ClassifierModel string          `db:"classifier_model" json:"classifier_model,omitempty"`
	ReasonerModel   string          `db:"reasoner_model" json:"reasoner_model,omitempty"`
	SecondaryModel  string          `db:"secondary_model" json:"secondary_model,omitempty"`
	CompletedAt     *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// ReceiptCursor is a keyset position in (created_at, id) order. The zero
// value sorts before every receipt.
type ReceiptCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Cursor returns the keyset position of r.
func (r *Receipt) Cursor() ReceiptCursor {
	return ReceiptCursor{CreatedAt: r.CreatedAt, ID: r.ID}
}

// ParsedFields decodes the stored fields, returning nil when none were saved.
func (r *Receipt) ParsedFields() *ReceiptFields {
	if len(r.Fields) == 0 || string(r.Fields) == "null" {
		return nil
	}
	var f ReceiptFields
	if err := json.Unmarshal(r.Fields, &f); err != nil {
		return nil
	}
	return &f
}
