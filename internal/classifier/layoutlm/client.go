// Package layoutlm calls an inference server hosting a LayoutLMv3 token
// classification model.
package layoutlm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"unikrew/internal/classifier"
	"unikrew/internal/config"
	"unikrew/internal/domain"
	"unikrew/internal/port"
)

const (
	defaultModel     = "Sameed1/smdk-layoutlmv3-receipts"
	defaultMaxLength = 512
)

// Classifier implements port.TokenClassifier over HTTP.
type Classifier struct {
	apiKey    string
	model     string
	endpoint  string
	maxLength int
	labels    classifier.LabelMap
	client    *http.Client
}

// NewClassifier creates a classifier client from config.
func NewClassifier(cfg *config.ClassifierConfig) *Classifier {
	model := cfg.ModelID
	if model == "" {
		model = defaultModel
	}
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = defaultMaxLength
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	labels := cfg.Labels
	if len(labels) == 0 {
		labels = classifier.DefaultLabels
	}
	return &Classifier{
		apiKey:    cfg.APIKey,
		model:     model,
		endpoint:  cfg.Endpoint,
		maxLength: maxLength,
		labels:    classifier.LabelMapFromList(labels),
		client:    &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Model       string                 `json:"model"`
	Image       string                 `json:"image"`
	ContentType string                 `json:"content_type"`
	Words       []string               `json:"words"`
	Boxes       []domain.NormalizedBox `json:"boxes"`
	MaxLength   int                    `json:"max_length"`
	Truncation  bool                   `json:"truncation"`
	Padding     string                 `json:"padding"`
}

// predictResponse accepts either word-level labels or raw token predictions.
type predictResponse struct {
	Labels      []string          `json:"labels"`
	Predictions []int             `json:"predictions"`
	WordIDs     []*int            `json:"word_ids"`
	ID2Label    map[string]string `json:"id2label"`
}

func (c *Classifier) Classify(ctx context.Context, input port.ClassifyInput) (*port.ClassifyOutput, error) {
	if len(input.Words) == 0 {
		return &port.ClassifyOutput{Labels: []string{}, ModelUsed: c.model}, nil
	}
	if len(input.Words) != len(input.Boxes) {
		return nil, fmt.Errorf("words (%d) and boxes (%d) differ in length", len(input.Words), len(input.Boxes))
	}

	body, err := json.Marshal(predictRequest{
		Model:       c.model,
		Image:       base64.StdEncoding.EncodeToString(input.Image),
		ContentType: input.ContentType,
		Words:       input.Words,
		Boxes:       input.Boxes,
		MaxLength:   c.maxLength,
		Truncation:  true,
		Padding:     "max_length",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling classifier: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("classifier error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			retryAfter := domain.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, domain.NewRateLimitError("layoutlm", baseErr, retryAfter)
		case http.StatusServiceUnavailable:
			retryAfter := domain.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			if retryAfter == 0 {
				retryAfter = estimatedTime(respBody)
			}
			return nil, domain.NewRateLimitError("layoutlm", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	labels, err := c.decode(respBody, len(input.Words))
	if err != nil {
		return nil, err
	}

	zap.L().Debug("layoutlm.Classify: done",
		zap.String("model", c.model),
		zap.Int("words", len(input.Words)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &port.ClassifyOutput{Labels: labels, ModelUsed: c.model}, nil
}

func (c *Classifier) decode(body []byte, numWords int) ([]string, error) {
	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w (raw: %s)", err, truncate(string(body), 500))
	}

	if resp.Labels != nil {
		if len(resp.Labels) != numWords {
			return nil, fmt.Errorf("classifier returned %d labels for %d words", len(resp.Labels), numWords)
		}
		return resp.Labels, nil
	}

	if resp.Predictions == nil {
		return nil, fmt.Errorf("classifier response has neither labels nor predictions")
	}

	labels := c.labels
	if len(resp.ID2Label) > 0 {
		var err error
		labels, err = classifier.LabelMapFromJSON(resp.ID2Label)
		if err != nil {
			return nil, err
		}
	}
	return classifier.AlignToWords(numWords, resp.Predictions, resp.WordIDs, labels)
}

// estimatedTime reads the model warm-up estimate some inference servers
// return with a 503.
func estimatedTime(body []byte) int {
	var payload struct {
		EstimatedTime float64 `json:"estimated_time"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0
	}
	return int(math.Ceil(payload.EstimatedTime))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
