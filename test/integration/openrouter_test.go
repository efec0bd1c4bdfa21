//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sandevgo/crmchat/internal/core"
	"github.com/sandevgo/crmchat/internal/providers/llm"
)

// Hits the real OpenRouter API. Run with:
//
//	OPENROUTER_API_KEY=... go test -tags integration ./test/integration
func TestOpenRouterLive(t *testing.T) {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		t.Skip("OPENROUTER_API_KEY not set")
	}
	model := os.Getenv("OPENROUTER_MODEL_LIGHT")
	if model == "" {
		model = "google/gemini-2.0-flash-001"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	provider := llm.NewOpenRouter(apiKey, model)
	result, err := provider.Chat(ctx, core.ChatRequest{
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: "Reply with a single word."},
			{Role: core.RoleUser, Content: "Say OK."},
		},
		Temperature: 0,
		MaxTokens:   5,
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if result.Content == "" {
		t.Fatal("empty completion content")
	}
	t.Logf("model=%s content=%q prompt_tokens=%d", result.Model, result.Content, result.PromptTokens)
}
