// Package embedding provides query embedding generation with multiple
// backend support.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/config"
)

// ErrEmbeddingService indicates that the remote embedding service failed or
// returned malformed data (wrong count, wrong dimensionality).
var ErrEmbeddingService = errors.New("embedding service error")

// Embedder converts free text into a fixed-dimension vector. The dimension
// must match the catalog's embedding matrix for similarity search to work.
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

// New creates an Embedder based on the provided configuration.
func New(cfg config.Config) (Embedder, error) {
	switch cfg.EmbedProvider {
	case config.ProviderOpenAI, config.ProviderOllama, "":
		return newLangchainEmbedder(cfg)

	case config.ProviderVoyage:
		if cfg.VoyageAPIKey == "" {
			return nil, fmt.Errorf("voyage provider requires VOYAGE_API_KEY")
		}
		return NewVoyageClient(cfg.VoyageAPIKey, cfg.EmbedModel, cfg.EmbedDimension, cfg.RequestTimeout), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}
}

// callTimeout bounds a remote call, leaving ctx untouched when no timeout is
// configured.
func callTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
