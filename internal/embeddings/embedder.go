package embeddings

import "context"

// Embedder is the outbound embedding collaborator. Implementations must be
// safe for concurrent use; they are shared across all in-flight messages.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
