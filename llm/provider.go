package llm

import (
	"context"
	"time"
)

// ChatRequest is one model invocation: the full conversation so far, the
// tool catalog, and the system prompt. Message order is preserved exactly by
// every adapter.
type ChatRequest struct {
	Messages     []Message
	Tools        []ToolSpec
	SystemPrompt string
	Model        string
	Temperature  float32
	MaxTokens    int
}

// ChatResponse is the provider-agnostic result of one model invocation.
// ToolCalls is empty for a plain text turn.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	Model     string
	Usage     TokenUsage
}

// Provider is a vendor chat protocol adapter. Implementations serialize the
// shared conversation form into a vendor request body, perform one HTTP call
// per turn, and deserialize the vendor response.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Config carries provider construction settings resolved from the
// application configuration.
type Config struct {
	Provider string // provider name; empty = auto-detect from environment
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}
