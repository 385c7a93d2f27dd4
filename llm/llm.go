// Package llm exposes a chat-completion client used for answer generation and
// remote tone classification.
package llm

import (
	"context"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	Temperature float32
	MaxTokens   int
	TopP        float32
}
