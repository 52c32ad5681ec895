package ingest

import (
	"context"
	"fmt"

	"github.com/akolanti/GoIndexer/internal/config"
	"github.com/akolanti/GoIndexer/internal/embeddings"
	"github.com/akolanti/GoIndexer/internal/ingest/chunking"
	"github.com/akolanti/GoIndexer/internal/metrics"
	"github.com/akolanti/GoIndexer/internal/retry"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
)

// Generator wraps the raw embedding collaborator with the token ceiling and
// the retry policy. It returns an error once retries are exhausted; the
// orchestrator decides what a failed chunk costs.
type Generator struct {
	embedder  embeddings.Embedder
	counter   *chunking.TokenCounter
	policy    *retry.Policy
	maxTokens int
	logger    *logger_i.Logger
}

func NewGenerator(embedder embeddings.Embedder, counter *chunking.TokenCounter, policy *retry.Policy) *Generator {
	return &Generator{
		embedder:  embedder,
		counter:   counter,
		policy:    policy,
		maxTokens: config.EmbeddingMaxTokens,
		logger:    logger_i.NewLogger("EmbeddingGenerator"),
	}
}

func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	if tokenCount := g.counter.Count(text); tokenCount > g.maxTokens {
		g.logger.Warn("Text exceeds embedding limit, truncating", "tokens", tokenCount, "limit", g.maxTokens)
		text = g.counter.Truncate(text, g.maxTokens)
	}

	vector, err := retry.Do(ctx, g.policy, "embedding", func(ctx context.Context) ([]float32, error) {
		return g.embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	if len(vector) != g.Dimension() {
		return nil, fmt.Errorf("embedding has dimension %d, want %d", len(vector), g.Dimension())
	}
	return vector, nil
}

func (g *Generator) Dimension() int {
	return g.embedder.Dimension()
}

// ZeroVector is the degraded-quality stand-in used when a chunk's embedding
// cannot be produced. The document stays keyword-searchable either way.
func (g *Generator) ZeroVector() []float32 {
	metrics.IncrementZeroVectorFallbacks()
	return make([]float32, g.Dimension())
}
