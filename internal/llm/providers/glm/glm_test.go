// internal/llm/providers/glm/glm_test.go
package glm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/PersonaTownMCP/internal/llm"
)

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p := &Provider{}
	require.NoError(t, p.Initialize(map[string]string{
		"api_key":  "test-key",
		"base_url": baseURL,
	}))
	return p
}

func TestInitializeRequiresAPIKey(t *testing.T) {
	p := &Provider{}
	assert.Error(t, p.Initialize(map[string]string{}))
	assert.Error(t, p.Initialize(map[string]string{"api_key": ""}))
}

func TestCompleteChat(t *testing.T) {
	var captured map[string]interface{}
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "req-1",
			"model": "glm-4",
			"choices": []map[string]interface{}{
				{
					"index": 0,
					"message": map[string]string{
						"role":    "assistant",
						"content": "今天想聊聊园艺。",
					},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"total_tokens": 42},
		})
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)

	resp, err := p.CompleteChat(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "你是林文清"},
			{Role: "user", Content: "发条帖子"},
		},
		MaxTokens:   100,
		Temperature: 0.9,
		WebSearch:   true,
		SearchQuery: "园艺技巧",
	})
	require.NoError(t, err)

	assert.Equal(t, "今天想聊聊园艺。", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 42, resp.TokensUsed)
	assert.Equal(t, "Bearer test-key", authHeader)

	t.Run("请求体包含搜索工具", func(t *testing.T) {
		tools, ok := captured["tools"].([]interface{})
		require.True(t, ok)
		require.Len(t, tools, 1)

		tool := tools[0].(map[string]interface{})
		assert.Equal(t, "web_search", tool["type"])

		search := tool["web_search"].(map[string]interface{})
		assert.Equal(t, true, search["enable"])
		assert.Equal(t, "园艺技巧", search["search_query"])
	})

	t.Run("消息按顺序传递", func(t *testing.T) {
		messages := captured["messages"].([]interface{})
		require.Len(t, messages, 2)
		first := messages[0].(map[string]interface{})
		assert.Equal(t, "system", first["role"])
	})
}

func TestCompleteChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "req-1",
			"choices": []interface{}{},
		})
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	_, err := p.CompleteChat(context.Background(), llm.CompletionRequest{})
	assert.ErrorContains(t, err, "未返回任何候选结果")
}

func TestCompleteChatHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	_, err := p.CompleteChat(context.Background(), llm.CompletionRequest{})
	assert.ErrorContains(t, err, "429")
}

func TestRegisteredInFactory(t *testing.T) {
	provider, err := llm.GetProvider("glm", map[string]string{"api_key": "k"})
	require.NoError(t, err)
	assert.Equal(t, "智谱GLM", provider.GetName())

	_, err = llm.GetProvider("没注册的", nil)
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
}
