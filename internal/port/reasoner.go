package port

import (
	"context"
	"encoding/json"

	"unikrew/internal/domain"
)

// ReasonInput carries the OCR text and the classifier entities to reconcile.
type ReasonInput struct {
	OCRText  string
	Entities domain.Entities
}

// ReasonOutput is the validated structured answer from an LLM provider.
type ReasonOutput struct {
	Fields          domain.ReceiptFields
	RawJSON         json.RawMessage // validated fields, 2-space indented
	ModelUsed       string
	PromptUsed      string
	FieldProvenance map[string]string // which model provided each field (populated in dual mode)
	SecondaryModel  string
}

// Reasoner abstracts the LLM reconciliation step.
type Reasoner interface {
	Reason(ctx context.Context, input ReasonInput) (*ReasonOutput, error)
}
