package reasoner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"unikrew/internal/domain"
)

// SchemaName is the name the structured output schema is registered under.
const SchemaName = "agent_output"

var fieldOrder = []string{"company", "date", "address", "total", "agent_comment"}

var fieldDescriptions = map[string]string{
	"company":       "Name of the company",
	"date":          "Date of the receipt",
	"address":       "Address of the company",
	"total":         "Total amount on the receipt with currency if mentioned",
	"agent_comment": "Summary of action performed by the llm and data found in ocr and vision model json",
}

// Schema returns the JSON schema every provider constrains its answer to.
func Schema() map[string]interface{} {
	props := make(map[string]interface{}, len(fieldOrder))
	for _, name := range fieldOrder {
		props[name] = map[string]interface{}{
			"type":        "string",
			"title":       title(name),
			"description": fieldDescriptions[name],
		}
	}
	required := make([]interface{}, len(fieldOrder))
	for i, name := range fieldOrder {
		required[i] = name
	}
	return map[string]interface{}{
		"title":      "AgentOutput",
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// FieldNames lists the answer fields in output order.
func FieldNames() []string {
	return append([]string(nil), fieldOrder...)
}

// FieldDescription returns the schema description of an answer field.
func FieldDescription(name string) string {
	return fieldDescriptions[name]
}

func title(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// agentOutput distinguishes a missing field (nil) from an empty string.
type agentOutput struct {
	Company      *string `json:"company" validate:"required"`
	Date         *string `json:"date" validate:"required"`
	Address      *string `json:"address" validate:"required"`
	Total        *string `json:"total" validate:"required"`
	AgentComment *string `json:"agent_comment" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeFields validates raw model output against the agent_output schema.
// Empty content is treated as an empty object. Unknown keys are ignored.
// The returned JSON is the validated answer indented by two spaces.
func DecodeFields(content string) (*domain.ReceiptFields, json.RawMessage, error) {
	if strings.TrimSpace(content) == "" {
		content = "{}"
	}

	var out agentOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, nil, fmt.Errorf("%w: %v (raw: %s)", domain.ErrInvalidLLMOutput, err, truncate(content, 500))
	}
	if err := validate.Struct(out); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidLLMOutput, err)
	}

	fields := &domain.ReceiptFields{
		Company:      *out.Company,
		Date:         *out.Date,
		Address:      *out.Address,
		Total:        *out.Total,
		AgentComment: *out.AgentComment,
	}
	raw, err := IndentJSON(fields)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling fields: %w", err)
	}
	return fields, raw, nil
}

// IndentJSON renders v as two-space indented JSON without escaping
// "<", ">" and "&", so receipt text such as "A&W" survives verbatim.
func IndentJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
