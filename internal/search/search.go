// Package search implements cosine-similarity retrieval over the track
// catalog.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/catalog"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/embedding"
)

// ErrInvalidArgument indicates a bad call parameter, such as a non-positive
// result count.
var ErrInvalidArgument = errors.New("invalid argument")

// Result is one retrieved catalog entry, scored against the query.
type Result struct {
	Index   int
	TrackID string
	Caption string
	Score   float64
}

// Searcher scores a query embedding against every catalog embedding and
// returns the best matches. It never mutates the catalog and is safe for
// concurrent use across sessions.
type Searcher struct {
	catalog  *catalog.Catalog
	embedder embedding.Embedder
	norms    []float64
}

// NewSearcher creates a searcher over the given catalog. Catalog norms are
// precomputed once so each query costs a single pass of dot products.
func NewSearcher(cat *catalog.Catalog, embedder embedding.Embedder) (*Searcher, error) {
	if embedder.Dimension() != cat.Dimension() {
		return nil, fmt.Errorf("embedder dimension %d does not match catalog dimension %d",
			embedder.Dimension(), cat.Dimension())
	}

	norms := make([]float64, cat.Len())
	for i := 0; i < cat.Len(); i++ {
		norms[i] = norm(cat.Entry(i).Embedding)
	}

	return &Searcher{catalog: cat, embedder: embedder, norms: norms}, nil
}

// FindSimilar embeds the query text and returns the n highest-similarity
// catalog entries in descending score order. Ties break on catalog index
// ascending so results are deterministic. When n exceeds the catalog size
// all entries are returned.
func (s *Searcher) FindSimilar(ctx context.Context, query string, n int) ([]Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidArgument, n)
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	queryNorm := norm(queryVec)

	results := make([]Result, s.catalog.Len())
	for i := range results {
		entry := s.catalog.Entry(i)
		results[i] = Result{
			Index:   i,
			TrackID: entry.TrackID,
			Caption: entry.Caption,
			Score:   cosine(entry.Embedding, queryVec, s.norms[i], queryNorm),
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})

	if n > len(results) {
		n = len(results)
	}
	return results[:n], nil
}

// cosine computes dot(a,b) / (|a| * |b|). A zero-norm vector has no defined
// direction; it scores -Inf so it can never outrank a real match.
func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return math.Inf(-1)
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
