package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// langchainClient backs Chat with a chat model and Complete with a separate
// instruct model, mirroring the two services the assistant talks to.
type langchainClient struct {
	chatLLM         llms.Model
	completionLLM   llms.Model
	chatModel       string
	completionModel string
	timeout         time.Duration
}

var _ Client = (*langchainClient)(nil)

func newLangchainClient(cfg config.Config) (*langchainClient, error) {
	build := func(model string) (llms.Model, error) {
		switch cfg.LLMProvider {
		case config.ProviderOllama:
			return ollama.New(
				ollama.WithModel(model),
				ollama.WithServerURL(cfg.OllamaHost),
			)
		default: // OpenAI
			if cfg.OpenAIAPIKey == "" {
				return nil, fmt.Errorf("OpenAI API key required")
			}
			return openai.New(
				openai.WithToken(cfg.OpenAIAPIKey),
				openai.WithModel(model),
			)
		}
	}

	chatLLM, err := build(cfg.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	completionLLM, err := build(cfg.CompletionModel)
	if err != nil {
		return nil, fmt.Errorf("create completion model: %w", err)
	}

	return &langchainClient{
		chatLLM:         chatLLM,
		completionLLM:   completionLLM,
		chatModel:       cfg.ChatModel,
		completionModel: cfg.CompletionModel,
		timeout:         cfg.RequestTimeout,
	}, nil
}

func messageType(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// Chat sends the full transcript and returns the assistant reply.
func (c *langchainClient) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	ctx, cancel := callTimeout(ctx, c.timeout)
	defer cancel()

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	start := time.Now()
	response, err := c.chatLLM.GenerateContent(ctx, content,
		llms.WithTemperature(opts.Temperature),
		llms.WithMaxTokens(opts.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", ErrCompletionService, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no response choices", ErrCompletionService)
	}

	slog.Debug("chat completion", "model", c.chatModel, "turns", len(messages),
		"duration_ms", time.Since(start).Milliseconds())
	return response.Choices[0].Content, nil
}

// Complete sends a single prompt to the instruct model.
func (c *langchainClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	ctx, cancel := callTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	response, err := llms.GenerateFromSinglePrompt(ctx, c.completionLLM, prompt,
		llms.WithTemperature(opts.Temperature),
		llms.WithMaxTokens(opts.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: completion: %v", ErrCompletionService, err)
	}

	slog.Debug("text completion", "model", c.completionModel, "prompt_len", len(prompt),
		"duration_ms", time.Since(start).Milliseconds())
	return response, nil
}

// Model returns the chat model name.
func (c *langchainClient) Model() string {
	return c.chatModel
}
