package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/config"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// langchainEmbedder wraps a langchaingo embedder with dimension validation
// and per-call timeouts.
type langchainEmbedder struct {
	model     embeddings.Embedder
	modelName string
	dimension int
	timeout   time.Duration
}

var _ Embedder = (*langchainEmbedder)(nil)

func newLangchainEmbedder(cfg config.Config) (*langchainEmbedder, error) {
	var model embeddings.Embedder

	switch cfg.EmbedProvider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithModel(cfg.EmbedModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}

	default: // OpenAI
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		llm, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithEmbeddingModel(cfg.EmbedModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}
	}

	return &langchainEmbedder{
		model:     model,
		modelName: cfg.EmbedModel,
		dimension: cfg.EmbedDimension,
		timeout:   cfg.RequestTimeout,
	}, nil
}

// Embed generates an embedding vector for text.
func (e *langchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := callTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	vectors, err := e.model.EmbedDocuments(ctx, []string{text})
	duration := time.Since(start)

	if err != nil {
		slog.Warn("embedding failed", "model", e.modelName, "text_len", len(text),
			"duration_ms", duration.Milliseconds(), "error", err)
		return nil, fmt.Errorf("%w: embed: %v", ErrEmbeddingService, err)
	}

	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrEmbeddingService)
	}

	vector := vectors[0]
	if len(vector) != e.dimension {
		return nil, fmt.Errorf("%w: dimension mismatch: got %d, want %d",
			ErrEmbeddingService, len(vector), e.dimension)
	}

	slog.Debug("embedding complete", "model", e.modelName, "text_len", len(text),
		"duration_ms", duration.Milliseconds())
	return vector, nil
}

// Model returns the embedding model name.
func (e *langchainEmbedder) Model() string {
	return e.modelName
}

// Dimension returns the expected embedding dimension.
func (e *langchainEmbedder) Dimension() int {
	return e.dimension
}
