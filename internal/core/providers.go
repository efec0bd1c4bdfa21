package core

import "context"

// ChatRequest is one completion-API call: a full message list plus the
// sampling knobs the dispatcher sets per intent.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatResult carries the answer text, the model that produced it, and
// token usage when the API reports it.
type ChatResult struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

type AIProvider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResult, error)
	Model() string
}
