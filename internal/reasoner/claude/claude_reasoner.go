// Package claude implements the reasoning step over the Anthropic Messages API.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"unikrew/internal/config"
	"unikrew/internal/domain"
	"unikrew/internal/port"
	"unikrew/internal/reasoner"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

func init() {
	reasoner.RegisterProvider("claude", func(cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore) (port.Reasoner, error) {
		return NewReasoner(cfg, prompts), nil
	})
}

// Reasoner implements port.Reasoner using a forced tool call whose input
// schema is the agent_output schema.
type Reasoner struct {
	apiKey      string
	model       string
	endpoint    string
	temperature float64
	maxRetries  int
	prompts     *reasoner.PromptStore
	client      *http.Client
}

// NewReasoner creates a Claude reasoner from a provider config.
func NewReasoner(cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore) *Reasoner {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	return newReasoner(cfg, prompts, endpoint)
}

// NewReasonerWithEndpoint creates a reasoner pointing at a custom API endpoint (for testing).
func NewReasonerWithEndpoint(cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore, endpoint string) *Reasoner {
	return newReasoner(cfg, prompts, endpoint)
}

func newReasoner(cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore, endpoint string) *Reasoner {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Reasoner{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    endpoint,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		prompts:     prompts,
		client:      &http.Client{Timeout: timeout},
	}
}

func (r *Reasoner) Reason(ctx context.Context, input port.ReasonInput) (*port.ReasonOutput, error) {
	msgs, err := reasoner.BuildMessages(r.prompts, input)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"model":       r.model,
		"max_tokens":  2048,
		"temperature": r.temperature,
		"system":      msgs.System,
		"messages": []map[string]interface{}{
			{"role": "user", "content": msgs.User},
		},
		"tools": []map[string]interface{}{
			{
				"name":         reasoner.SchemaName,
				"description":  "Record the final receipt fields and a short comment on how they were found.",
				"input_schema": reasoner.Schema(),
			},
		},
		"tool_choice": map[string]interface{}{
			"type": "tool",
			"name": reasoner.SchemaName,
		},
	}

	resp, err := reasoner.PostJSON(ctx, r.client, r.endpoint, map[string]string{
		"x-api-key":         r.apiKey,
		"anthropic-version": apiVersion,
	}, reqBody, r.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(resp.Body))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := domain.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, domain.NewRateLimitError("claude", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(resp.Body, r.model, msgs.User)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model, prompt string) (*port.ReasonOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	// Prefer the forced tool call; a plain text block is accepted as a fallback.
	var content string
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == reasoner.SchemaName {
			content = string(block.Input)
			break
		}
		if block.Type == "text" && content == "" {
			content = block.Text
		}
	}

	fields, raw, err := reasoner.DecodeFields(content)
	if err != nil {
		return nil, err
	}

	return &port.ReasonOutput{
		Fields:     *fields,
		RawJSON:    raw,
		ModelUsed:  model,
		PromptUsed: prompt,
	}, nil
}
