package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kestrel-run/recursion-engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_GenerateResponse_MissingAPIKeyFails(t *testing.T) {
	client := NewOpenAIClient("", nil)
	client.apiKey = ""

	_, err := client.GenerateResponse(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingConfiguration)
}

func TestOpenAIClient_GenerateResponse_ParsesChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "gpt-4",
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "hi there"}},
			},
			"usage": map[string]interface{}{
				"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5,
			},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", nil)
	client.baseURL = server.URL

	resp, err := client.GenerateResponse(context.Background(), "hello", &core.AIOptions{Model: "gpt-4"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
}

func TestOpenAIClient_GenerateResponse_NonOKStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("bad-key", nil)
	client.baseURL = server.URL

	_, err := client.GenerateResponse(context.Background(), "hello", nil)
	require.Error(t, err)
}
