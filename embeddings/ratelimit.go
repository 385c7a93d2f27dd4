package embeddings

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimited caps embedding calls at requestsPerSecond. A non-positive
// rate returns the inner embedder unchanged.
func NewRateLimited(inner Embedder, requestsPerSecond float64) Embedder {
	if requestsPerSecond <= 0 {
		return inner
	}
	return &rateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (r *rateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for embedding rate limit: %w", err)
	}
	return r.inner.Embed(ctx, texts)
}

var _ Embedder = (*rateLimited)(nil)
