package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Corphon/SweetAffection/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeRequiresKey(t *testing.T) {
	_, err := llm.GetProvider("openai", map[string]string{})
	assert.Error(t, err)

	_, err = llm.GetProvider("missing", map[string]string{"api_key": "k"})
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
	assert.Contains(t, llm.ListProviders(), "openai")
}

func TestCompleteText(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"deepseek-chat","choices":[{"message":{"role":"assistant","content":"你好呀"},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`))
	}))
	defer srv.Close()

	p, err := llm.GetProvider("openai", map[string]string{"api_key": "secret", "base_url": srv.URL})
	require.NoError(t, err)

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{
		SystemPrompt: "你是苏糖",
		Messages:     []llm.Message{{Role: "user", Content: "你好"}},
		Temperature:  0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "你好呀", resp.Text)
	assert.Equal(t, 12, resp.TokensUsed)

	assert.Equal(t, "deepseek-chat", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "你好", got.Messages[1].Content)
}

func TestCompleteTextErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := llm.GetProvider("openai", map[string]string{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)

	_, err = p.CompleteText(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCompatibleVendorsRegistered(t *testing.T) {
	names := llm.ListProviders()
	for _, v := range vendors {
		assert.Contains(t, names, v.name)
	}

	p, err := llm.GetProvider("qwen", map[string]string{"api_key": "k"})
	require.NoError(t, err)
	assert.Equal(t, "Qwen", p.GetName())
	assert.Contains(t, p.GetSupportedModels(), "qwen2.5-max")
}

func TestVendorHeadersAndDefaultModel(t *testing.T) {
	var got chatRequest
	var title string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("X-Title")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"嗯"}}]}`))
	}))
	defer srv.Close()

	p, err := llm.GetProvider("openrouter", map[string]string{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{Messages: []llm.Message{{Role: "user", Content: "你好"}}})
	require.NoError(t, err)
	assert.Equal(t, "嗯", resp.Text)
	assert.Equal(t, "OpenRouter", resp.ProviderName)
	assert.Equal(t, "SweetAffection", title)
	assert.Equal(t, "google/gemma-3-27b-it:free", got.Model)
}
