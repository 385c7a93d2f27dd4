// Package store persists embedded document chunks in Postgres with pgvector
// and answers nearest-neighbour queries over named collections.
package store

import (
	"context"
	"errors"
)

// Metric selects the distance function fixed at collection creation.
type Metric string

const (
	MetricCosine       Metric = "cosine"
	MetricL2           Metric = "l2"
	MetricInnerProduct Metric = "ip"
)

var (
	// ErrUnavailable wraps every failed round-trip to the backing store.
	ErrUnavailable = errors.New("vector store unavailable")
	// ErrCollectionNotFound is returned when an operation targets a
	// collection that was never created.
	ErrCollectionNotFound = errors.New("collection does not exist")
	// ErrCollectionMismatch is returned when a collection already exists
	// with a different dimension or metric.
	ErrCollectionMismatch = errors.New("collection configuration mismatch")
	// ErrDimensionMismatch is returned when a chunk embedding does not
	// match the collection's fixed dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Chunk is an immutable embedded passage. ContentHash is its identity;
// the store never holds two chunks with the same hash in one collection.
type Chunk struct {
	ContentHash string
	ExternalID  string
	Text        string
	Embedding   []float32
}

// ScoredChunk is a transient per-query search result. Score is a similarity
// in descending-is-better orientation regardless of the collection metric.
type ScoredChunk struct {
	Chunk
	Score float64
}

type CollectionInfo struct {
	Name      string
	Dimension int
	Metric    Metric
}

type Store interface {
	// EnsureCollection creates the collection if absent. An existing
	// collection with the same dimension and metric is a no-op; a
	// differing one fails with ErrCollectionMismatch.
	EnsureCollection(ctx context.Context, name string, dimension int, metric Metric) error
	// ExistingHashes returns the set of content hashes currently stored.
	ExistingHashes(ctx context.Context, collection string) (map[string]struct{}, error)
	// InsertChunks persists new chunks. Hashes already present are left
	// untouched.
	InsertChunks(ctx context.Context, collection string, chunks []Chunk) error
	// Search returns up to limit chunks nearest to the embedding, ordered
	// by descending score.
	Search(ctx context.Context, collection string, embedding []float32, limit int) ([]ScoredChunk, error)
	// Count reports the number of chunks in the collection.
	Count(ctx context.Context, collection string) (int, error)
	// Reset removes the collection and every chunk in it.
	Reset(ctx context.Context, collection string) error
}
