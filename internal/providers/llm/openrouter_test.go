package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/crmchat/internal/config"
	"github.com/sandevgo/crmchat/internal/core"
)

func TestOpenRouter_Chat(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "hello there"}}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 7}
		}`))
	}))
	defer srv.Close()

	provider := NewOpenRouterWithBaseURL(srv.URL, "sk-test", "vendor/light-model")
	result, err := provider.Chat(context.Background(), core.ChatRequest{
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: "be brief"},
			{Role: core.RoleUser, Content: "hi"},
		},
		Temperature: 0.2,
		MaxTokens:   100,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", result.Content)
	assert.Equal(t, "vendor/light-model", result.Model)
	assert.Equal(t, 42, result.PromptTokens)
	assert.Equal(t, 7, result.CompletionTokens)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "vendor/light-model", gotPayload["model"])
	assert.EqualValues(t, 100, gotPayload["max_tokens"])
}

func TestOpenRouter_Chat_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	provider := NewOpenRouterWithBaseURL(srv.URL, "sk-test", "vendor/light-model")
	_, err := provider.Chat(context.Background(), core.ChatRequest{
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 503")
}

func TestOpenRouter_Chat_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	provider := NewOpenRouterWithBaseURL(srv.URL, "sk-test", "vendor/light-model")
	_, err := provider.Chat(context.Background(), core.ChatRequest{
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestTierPicker_ForTier(t *testing.T) {
	picker := NewTierPicker(&config.OpenRouterConfig{
		APIKey:      "sk-test",
		LightModel:  "vendor/light",
		MediumModel: "vendor/medium",
		HighModel:   "vendor/high",
	})

	assert.Equal(t, "vendor/light", picker.ForTier(core.TierLight).Model())
	assert.Equal(t, "vendor/medium", picker.ForTier(core.TierMedium).Model())
	assert.Equal(t, "vendor/high", picker.ForTier(core.TierHigh).Model())
	assert.Equal(t, "vendor/light", picker.ForTier("").Model(), "empty tier falls back to light")
	assert.Equal(t, "vendor/light", picker.ForTier("turbo").Model(), "unknown tier falls back to light")
}
