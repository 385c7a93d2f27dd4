// Package embeddings maps text to fixed-dimensionality vectors via a remote
// embedding model.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbeddingFailed wraps any failed embedding call. During ingestion a
// per-document failure skips only that document; the batch proceeds.
var ErrEmbeddingFailed = errors.New("embedding failed")

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
