// Package openai implements the reasoning step over OpenAI-compatible chat
// completion APIs. It serves both the "openai" and "groq" providers.
package openai

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
	openAIURL = "https://api.openai.com/v1/chat/completions"
	groqURL   = "https://api.groq.com/openai/v1/chat/completions"

	openAIModel = "gpt-4o-mini"
	groqModel   = "openai/gpt-oss-120b"
)

func init() {
	reasoner.RegisterProvider("openai", func(cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore) (port.Reasoner, error) {
		return NewReasoner(cfg, prompts), nil
	})
	reasoner.RegisterProvider("groq", func(cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore) (port.Reasoner, error) {
		return NewGroqReasoner(cfg, prompts), nil
	})
}

// Reasoner implements port.Reasoner using the Chat Completions API with a
// json_schema response format.
type Reasoner struct {
	provider    string
	apiKey      string
	model       string
	endpoint    string
	temperature float64
	maxRetries  int
	prompts     *reasoner.PromptStore
	client      *http.Client
}

// NewReasoner creates an OpenAI reasoner from a provider config.
func NewReasoner(cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore) *Reasoner {
	return newReasoner("openai", cfg, prompts, "")
}

// NewGroqReasoner creates a reasoner for Groq's OpenAI-compatible endpoint.
func NewGroqReasoner(cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore) *Reasoner {
	return newReasoner("groq", cfg, prompts, "")
}

// NewReasonerWithEndpoint creates a reasoner pointing at a custom API endpoint (for testing).
func NewReasonerWithEndpoint(cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore, endpoint string) *Reasoner {
	provider := cfg.Provider
	if provider != "groq" {
		provider = "openai"
	}
	return newReasoner(provider, cfg, prompts, endpoint)
}

func newReasoner(provider string, cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore, endpoint string) *Reasoner {
	defaultURL, defaultModel := openAIURL, openAIModel
	if provider == "groq" {
		defaultURL, defaultModel = groqURL, groqModel
	}
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}
	if endpoint == "" {
		endpoint = defaultURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Reasoner{
		provider:    provider,
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
		"temperature": r.temperature,
		"messages": []map[string]interface{}{
			{"role": "system", "content": msgs.System},
			{"role": "user", "content": msgs.User},
		},
		"response_format": map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   reasoner.SchemaName,
				"schema": reasoner.Schema(),
			},
		},
	}

	resp, err := reasoner.PostJSON(ctx, r.client, r.endpoint, map[string]string{
		"Authorization": "Bearer " + r.apiKey,
	}, reqBody, r.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling %s API: %w", r.provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("%s API error (status %d): %s", r.provider, resp.StatusCode, string(resp.Body))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := domain.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, domain.NewRateLimitError(r.provider, baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(resp.Body, r.model, msgs.User)
}

// apiResponse models the Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte, model, prompt string) (*port.ReasonOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	var content string
	if c := resp.Choices[0].Message.Content; c != nil {
		content = *c
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
