// Package retrieval issues similarity queries against an indexed collection
// under a threshold-plus-diversity selection policy.
package retrieval

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/mfreitas/taxpilot/embeddings"
	"github.com/mfreitas/taxpilot/store"
)

const (
	defaultK      = 6
	defaultLambda = 0.5
)

// Options controls one retrieval call. ScoreThreshold filters candidates
// before selection; Diversify switches descending-score order for
// max-marginal-relevance re-ranking with trade-off Lambda.
type Options struct {
	K              int
	ScoreThreshold float64
	Diversify      bool
	Lambda         float64
}

type Retriever struct {
	store    store.Store
	embedder embeddings.Embedder
	logger   *log.Logger
}

func New(st store.Store, embedder embeddings.Embedder, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.Default()
	}

	return &Retriever{
		store:    st,
		embedder: embedder,
		logger:   logger,
	}
}

// Retrieve embeds the query, fetches up to K nearest candidates, and applies
// the selection policy. An empty result is a normal outcome, not an error:
// it means no candidate was relevant enough. For a fixed index state the
// same query and options always return the same ordered result.
func (r *Retriever) Retrieve(ctx context.Context, collection, query string, opts Options) ([]store.ScoredChunk, error) {
	k := opts.K
	if k <= 0 {
		k = defaultK
	}
	lambda := opts.Lambda
	if lambda <= 0 || lambda > 1 {
		lambda = defaultLambda
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	queryVec := vectors[0]

	candidates, err := r.store.Search(ctx, collection, queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("search collection: %w", err)
	}

	filtered := make([]store.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= opts.ScoreThreshold {
			filtered = append(filtered, c)
		}
	}

	if len(filtered) == 0 {
		r.logger.Printf("no passages above threshold %.2f for query", opts.ScoreThreshold)
		return nil, nil
	}

	if !opts.Diversify {
		// Store results arrive ordered by descending score already.
		return filtered, nil
	}

	return maxMarginalRelevance(queryVec, filtered, lambda), nil
}

// maxMarginalRelevance re-ranks the threshold-filtered pool, iteratively
// selecting the candidate maximizing
// lambda*sim(query,c) - (1-lambda)*max sim(c, selected).
// Ties keep the earlier (higher-scored) candidate, so output is deterministic.
func maxMarginalRelevance(queryVec []float32, pool []store.ScoredChunk, lambda float64) []store.ScoredChunk {
	selected := make([]store.ScoredChunk, 0, len(pool))
	remaining := make([]store.ScoredChunk, len(pool))
	copy(remaining, pool)

	for len(remaining) > 0 {
		bestIdx := 0
		bestValue := math.Inf(-1)

		for i, candidate := range remaining {
			relevance := cosineSimilarity(queryVec, candidate.Embedding)

			redundancy := 0.0
			for _, s := range selected {
				if sim := cosineSimilarity(candidate.Embedding, s.Embedding); sim > redundancy {
					redundancy = sim
				}
			}

			value := lambda*relevance - (1-lambda)*redundancy
			if value > bestValue {
				bestValue = value
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
