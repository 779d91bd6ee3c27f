package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unikrew/internal/config"
	"unikrew/internal/domain"
	"unikrew/internal/port"
	"unikrew/internal/reasoner"
	"unikrew/internal/reasoner/gemini"
)

func newTestReasoner(t *testing.T, serverURL string) *gemini.Reasoner {
	t.Helper()
	prompts, err := reasoner.NewPromptStore("")
	require.NoError(t, err)
	r, err := gemini.NewReasoner(context.Background(), &config.ReasonerProviderConfig{
		Provider:     "gemini",
		APIKey:       "test-gemini-key",
		DefaultModel: "gemini-2.0-flash",
		Endpoint:     serverURL + "/",
		Temperature:  0.3,
	}, prompts)
	require.NoError(t, err)
	return r
}

func sampleInput() port.ReasonInput {
	return port.ReasonInput{
		OCRText:  "ACME CORP TOTAL 9.99",
		Entities: domain.Entities{Company: "ACME CORP", Total: "9.99"},
	}
}

func TestGeminiReasoner_Reason_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"), r.URL.Path)

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		genCfg := reqBody["generationConfig"].(map[string]interface{})
		assert.Equal(t, "application/json", genCfg["responseMimeType"])
		assert.NotNil(t, genCfg["responseSchema"])
		assert.NotNil(t, reqBody["systemInstruction"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "{\"company\":\"ACME CORP\",\"date\":\"\",\"address\":\"\",\"total\":\"9.99\",\"agent_comment\":\"ok\"}"}]},
				"finishReason": "STOP"
			}]
		}`))
	}))
	defer server.Close()

	out, err := newTestReasoner(t, server.URL).Reason(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.Equal(t, "ACME CORP", out.Fields.Company)
	assert.Equal(t, "9.99", out.Fields.Total)
	assert.Equal(t, "gemini-2.0-flash", out.ModelUsed)
}

func TestGeminiReasoner_Reason_InvalidOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"company\":\"ACME\"}"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	_, err := newTestReasoner(t, server.URL).Reason(context.Background(), sampleInput())

	assert.ErrorIs(t, err, domain.ErrInvalidLLMOutput)
}

func TestGeminiReasoner_Reason_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	_, err := newTestReasoner(t, server.URL).Reason(context.Background(), sampleInput())

	var rl *domain.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "gemini", rl.Provider)
	assert.Equal(t, 60*time.Second, rl.RetryAfter)
}

func TestNewReasoner_RequiresAPIKey(t *testing.T) {
	prompts, err := reasoner.NewPromptStore("")
	require.NoError(t, err)

	_, err = gemini.NewReasoner(context.Background(), &config.ReasonerProviderConfig{Provider: "gemini"}, prompts)

	assert.Error(t, err)
}
