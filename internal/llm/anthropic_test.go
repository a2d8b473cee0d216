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

func anthropicServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		body, err := json.Marshal(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-3-5-sonnet-20241022",
			"content":       []map[string]any{{"type": "text", "text": text}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 4},
		})
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
}

func TestAnthropicClientUnwrapsFencedJSON(t *testing.T) {
	srv := anthropicServer(t, "```json\n{\"final_answer\":\"oi\",\"routed_to\":\"none\"}\n```")
	defer srv.Close()

	c, err := NewAnthropicClient(Options{APIKey: "test", BaseURL: srv.URL + "/", Timeout: time.Second})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), &CompletionRequest{
		MaxTokens: 2048,
		JSONMode:  true,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "oi"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"final_answer":"oi","routed_to":"none"}`, resp.Content)
	assert.Equal(t, 10, resp.TokensIn)
	assert.Equal(t, 4, resp.TokensOut)
}

func TestAnthropicClientKeepsFencesOutsideJSONMode(t *testing.T) {
	fenced := "```go\nfmt.Println(1)\n```"
	srv := anthropicServer(t, fenced)
	defer srv.Close()

	c, err := NewAnthropicClient(Options{APIKey: "test", BaseURL: srv.URL + "/", Timeout: time.Second})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "oi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, fenced, resp.Content)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"no tag", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"inline", "```{\"a\":1}```", `{"a":1}`},
		{"surrounding space", "\n ```json\n{\"a\":1}\n```  \n", `{"a":1}`},
		{"unterminated", "```json\n{\"a\":1}", "```json\n{\"a\":1}"},
		{"prose", "Claro! {\"a\":1}", "Claro! {\"a\":1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}
