package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bosocmputer/waspada_api/internal/common"
	"github.com/bosocmputer/waspada_api/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Analyze(t *testing.T) {
	var captured map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini-2024-07-18",
			"choices": [{"message": {"content": "{\"verdict\":\"LIKELY_SCAM\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1200, "completion_tokens": 300, "total_tokens": 1500}
		}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-test", "gpt-4o-mini", server.URL+"/")
	req := &VisionRequest{
		SystemPrompt:    "system",
		UserText:        "look",
		Image:           &processor.ImageInput{MIMEType: "image/png", Data: []byte("png")},
		MaxOutputTokens: 500,
	}

	completion, err := p.Analyze(context.Background(), req, common.NewRequestContext("test"))
	require.NoError(t, err)

	assert.Equal(t, `{"verdict":"LIKELY_SCAM"}`, completion.Text)
	assert.Equal(t, "openai", completion.Provider)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", completion.Model)
	assert.False(t, completion.Truncated)
	require.NotNil(t, completion.Usage)
	assert.Equal(t, 1500, completion.Usage.TotalTokens)

	// Request shape
	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.Equal(t, 500.0, captured["max_tokens"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, captured["response_format"])

	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 2)
	user := messages[1].(map[string]interface{})
	parts := user["content"].([]interface{})
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]interface{})
	assert.Equal(t, "image_url", imagePart["type"])
	assert.Equal(t, "data:image/png;base64,cG5n", imagePart["image_url"].(map[string]interface{})["url"])
}

func TestOpenAIProvider_TruncatedReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "{\"a\":"}, "finish_reason": "length"}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-test", "gpt-4o-mini", server.URL)
	completion, err := p.Chat(context.Background(), "hello", common.NewRequestContext("test"))
	require.NoError(t, err)

	assert.True(t, completion.Truncated)
	assert.Equal(t, "gpt-4o-mini", completion.Model)
}

func TestOpenAIProvider_ErrorReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-bad", "gpt-4o-mini", server.URL)
	_, err := p.Chat(context.Background(), "hello", common.NewRequestContext("test"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid_api_key", apiErr.Code)
	assert.Equal(t, "Incorrect API key provided", apiErr.Message)

	assert.Equal(t, CategoryUnauthorized, categorizeError(err).Category)
}

func TestOpenAIProvider_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-test", "gpt-4o-mini", server.URL)
	_, err := p.Chat(context.Background(), "hello", common.NewRequestContext("test"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream down", apiErr.Message)

	upErr := categorizeError(err)
	assert.Equal(t, CategoryServerError, upErr.Category)
	assert.True(t, upErr.Retryable)
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-test", "gpt-4o-mini", server.URL)
	_, err := p.Chat(context.Background(), "hello", common.NewRequestContext("test"))
	assert.ErrorContains(t, err, "no choices")
}
