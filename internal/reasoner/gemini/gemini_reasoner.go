// Package gemini implements the reasoning step with the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"unikrew/internal/config"
	"unikrew/internal/domain"
	"unikrew/internal/port"
	"unikrew/internal/reasoner"
)

func init() {
	reasoner.RegisterProvider("gemini", func(cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore) (port.Reasoner, error) {
		return NewReasoner(context.Background(), cfg, prompts)
	})
}

// Reasoner implements port.Reasoner using Gemini's structured output mode.
type Reasoner struct {
	client      *genai.Client
	model       string
	temperature float32
	prompts     *reasoner.PromptStore
}

// NewReasoner creates a Gemini reasoner. cfg.Endpoint overrides the API base URL.
func NewReasoner(ctx context.Context, cfg *config.ReasonerProviderConfig, prompts *reasoner.PromptStore) (*Reasoner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.Endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Reasoner{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
		prompts:     prompts,
	}, nil
}

func (r *Reasoner) Reason(ctx context.Context, input port.ReasonInput) (*port.ReasonOutput, error) {
	msgs, err := reasoner.BuildMessages(r.prompts, input)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(msgs.User), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(msgs.System, genai.RoleUser),
		Temperature:       genai.Ptr(r.temperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(),
	})
	if err != nil {
		baseErr := fmt.Errorf("gemini API error: %w", err)
		if isRateLimited(err) {
			return nil, domain.NewRateLimitError("gemini", baseErr, 0)
		}
		return nil, baseErr
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		return nil, fmt.Errorf("output truncated (finishReason: MAX_TOKENS): response exceeded output token limit")
	}

	fields, raw, err := reasoner.DecodeFields(resp.Text())
	if err != nil {
		return nil, err
	}

	return &port.ReasonOutput{
		Fields:     *fields,
		RawJSON:    raw,
		ModelUsed:  r.model,
		PromptUsed: msgs.User,
	}, nil
}

// responseSchema mirrors the agent_output schema in Gemini's schema dialect.
func responseSchema() *genai.Schema {
	names := reasoner.FieldNames()
	props := make(map[string]*genai.Schema, len(names))
	for _, name := range names {
		props[name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: reasoner.FieldDescription(name),
		}
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		Required:         names,
		PropertyOrdering: names,
	}
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}
