package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientRequiresKeyOrBaseURL(t *testing.T) {
	_, err := NewOpenAIClient(Options{})
	require.Error(t, err)

	c, err := NewOpenAIClient(Options{BaseURL: "http://proxy.local/v1"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())
}

func TestOpenAIClientComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"final_answer\":\"oi\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Options{APIKey: "test", BaseURL: srv.URL + "/v1", Timeout: time.Second})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), &CompletionRequest{
		Model:     "gpt-4o",
		MaxTokens: 2048,
		JSONMode:  true,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "oi"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"final_answer":"oi"}`, resp.Content)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 5, resp.TokensOut)
	assert.Equal(t, "stop", resp.StopReason)

	assert.Equal(t, "gpt-4o", got["model"])
	assert.EqualValues(t, 2048, got["max_completion_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	assert.Len(t, got["messages"], 2)
}

func TestOpenAIClientWrapsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Options{APIKey: "test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), &CompletionRequest{Messages: []ChatMessage{{Role: RoleUser, Content: "x"}}})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "openai", perr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient("gemini", Options{APIKey: "x"})
	require.Error(t, err)
}
