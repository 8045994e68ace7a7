// Package llm provides chat and text completion clients using langchaingo,
// with an AWS Bedrock alternative.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/config"
)

// ErrCompletionService indicates that the remote completion service failed
// or returned malformed data.
var ErrCompletionService = errors.New("completion service error")

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    Role
	Content string
}

// Options are per-call sampling parameters.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client is a handle to the remote chat and text completion services.
// Components hold an explicit Client rather than ambient global state so
// tests can substitute doubles.
type Client interface {
	// Chat sends an ordered message list and returns one assistant reply.
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)

	// Complete sends a single concatenated prompt and returns one completion.
	Complete(ctx context.Context, prompt string, opts Options) (string, error)

	// Model returns the chat model name.
	Model() string
}

// New creates a Client based on configuration.
func New(cfg config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI, config.ProviderOllama, "":
		return newLangchainClient(cfg)
	case config.ProviderBedrock:
		return newBedrockClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}

func callTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
