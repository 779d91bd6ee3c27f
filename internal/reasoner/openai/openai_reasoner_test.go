package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unikrew/internal/config"
	"unikrew/internal/domain"
	"unikrew/internal/port"
	"unikrew/internal/reasoner"
	"unikrew/internal/reasoner/openai"
)

const validAnswer = `{"company":"ACME CORP","date":"12/03/2018","address":"1 Main St","total":"RM 9.99","agent_comment":"All fields confirmed."}`

func newTestReasoner(t *testing.T, provider, serverURL string) *openai.Reasoner {
	t.Helper()
	prompts, err := reasoner.NewPromptStore("")
	require.NoError(t, err)
	cfg := &config.ReasonerProviderConfig{
		Provider:    provider,
		APIKey:      "test-key",
		Temperature: 0.3,
		TimeoutSecs: 30,
	}
	return openai.NewReasonerWithEndpoint(cfg, prompts, serverURL)
}

func chatResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
	}
}

func sampleInput() port.ReasonInput {
	return port.ReasonInput{
		OCRText:  "ACME CORP 1 Main St TOTAL 9.99",
		Entities: domain.Entities{Company: "ACME CORP", Total: "9.99"},
	}
}

func TestGroqReasoner_Reason_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "openai/gpt-oss-120b", reqBody["model"])
		assert.Equal(t, 0.3, reqBody["temperature"])

		messages := reqBody["messages"].([]interface{})
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
		user := messages[1].(map[string]interface{})
		assert.Equal(t, "user", user["role"])
		assert.Contains(t, user["content"], "ACME CORP 1 Main St TOTAL 9.99")
		assert.Contains(t, user["content"], "\"company\": \"ACME CORP\"")

		format := reqBody["response_format"].(map[string]interface{})
		assert.Equal(t, "json_schema", format["type"])
		schema := format["json_schema"].(map[string]interface{})
		assert.Equal(t, "agent_output", schema["name"])

		_ = json.NewEncoder(w).Encode(chatResponse(validAnswer))
	}))
	defer server.Close()

	out, err := newTestReasoner(t, "groq", server.URL).Reason(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.Equal(t, "ACME CORP", out.Fields.Company)
	assert.Equal(t, "RM 9.99", out.Fields.Total)
	assert.Equal(t, "openai/gpt-oss-120b", out.ModelUsed)
	assert.Contains(t, string(out.RawJSON), "\n  \"company\": \"ACME CORP\"")
	assert.Contains(t, out.PromptUsed, "ACME CORP 1 Main St")
}

func TestOpenAIReasoner_DefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "gpt-4o-mini", reqBody["model"])
		_ = json.NewEncoder(w).Encode(chatResponse(validAnswer))
	}))
	defer server.Close()

	out, err := newTestReasoner(t, "openai", server.URL).Reason(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", out.ModelUsed)
}

func TestGroqReasoner_Reason_MissingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"company":"ACME","date":"","address":"","total":""}`))
	}))
	defer server.Close()

	_, err := newTestReasoner(t, "groq", server.URL).Reason(context.Background(), sampleInput())

	assert.ErrorIs(t, err, domain.ErrInvalidLLMOutput)
}

func TestGroqReasoner_Reason_NullContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":null},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	_, err := newTestReasoner(t, "groq", server.URL).Reason(context.Background(), sampleInput())

	assert.ErrorIs(t, err, domain.ErrInvalidLLMOutput)
}

func TestGroqReasoner_Reason_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit"}}`))
	}))
	defer server.Close()

	_, err := newTestReasoner(t, "groq", server.URL).Reason(context.Background(), sampleInput())

	var rl *domain.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "groq", rl.Provider)
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
}

func TestGroqReasoner_Reason_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse(validAnswer))
	}))
	defer server.Close()

	prompts, err := reasoner.NewPromptStore("")
	require.NoError(t, err)
	r := openai.NewReasonerWithEndpoint(&config.ReasonerProviderConfig{
		Provider:   "groq",
		APIKey:     "test-key",
		MaxRetries: 1,
	}, prompts, server.URL)

	out, err := r.Reason(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.Equal(t, "ACME CORP", out.Fields.Company)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGroqReasoner_Reason_Truncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"company\":"},"finish_reason":"length"}]}`))
	}))
	defer server.Close()

	_, err := newTestReasoner(t, "groq", server.URL).Reason(context.Background(), sampleInput())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestProvidersRegistered(t *testing.T) {
	prompts, err := reasoner.NewPromptStore("")
	require.NoError(t, err)

	for _, name := range []string{"groq", "openai"} {
		r, err := reasoner.NewReasoner(&config.ReasonerProviderConfig{Provider: name}, prompts)
		require.NoError(t, err)
		assert.IsType(t, &openai.Reasoner{}, r)
	}
}
