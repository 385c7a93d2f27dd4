// Package index owns a named vector-store collection and keeps it in sync
// with a document set using content-addressed chunk identities.
package index

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/mfreitas/taxpilot/embeddings"
	"github.com/mfreitas/taxpilot/store"
)

// SourceDocument is an externally supplied document, immutable once created.
type SourceDocument struct {
	ExternalID string
	Text       string
}

// ContentHash derives the deterministic chunk identity for a document: a
// UUIDv5 over the concatenation of external id and text. Identical inputs
// always produce the same hash, which is what makes re-indexing idempotent.
func ContentHash(externalID, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(externalID+text)).String()
}

// SyncFailure records a document that could not be indexed in this run.
type SyncFailure struct {
	ExternalID string
	Err        error
}

type SyncResult struct {
	Inserted  int
	Unchanged int
	Failures  []SyncFailure
}

// Index performs set-difference-based incremental insertion into one store.
type Index struct {
	store     store.Store
	embedder  embeddings.Embedder
	dimension int
	logger    *log.Logger

	// Progress, when set, is called once per document processed by Sync.
	Progress func(done, total int)

	mu        sync.Mutex
	syncLocks map[string]*sync.Mutex
}

func New(st store.Store, embedder embeddings.Embedder, dimension int, logger *log.Logger) *Index {
	if logger == nil {
		logger = log.Default()
	}

	return &Index{
		store:     st,
		embedder:  embedder,
		dimension: dimension,
		logger:    logger,
		syncLocks: make(map[string]*sync.Mutex),
	}
}

// EnsureCollection creates the collection if absent; an existing collection
// with the same configuration is a no-op.
func (ix *Index) EnsureCollection(ctx context.Context, name string, metric store.Metric) error {
	return ix.store.EnsureCollection(ctx, name, ix.dimension, metric)
}

// Sync inserts the documents whose content hash is not yet present in the
// collection. Documents already indexed are counted as unchanged; a document
// whose embedding fails is skipped and reported in the result. Only a
// store-level failure aborts the run. Concurrent Sync calls for the same
// collection are serialized: the duplicate-check-then-insert sequence is not
// atomic against interleaved writers.
func (ix *Index) Sync(ctx context.Context, collection string, docs []SourceDocument) (SyncResult, error) {
	lock := ix.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	var result SyncResult

	existing, err := ix.store.ExistingHashes(ctx, collection)
	if err != nil {
		return result, fmt.Errorf("fetch existing hashes: %w", err)
	}

	seen := make(map[string]struct{}, len(docs))
	newChunks := make([]store.Chunk, 0, len(docs))

	for i, doc := range docs {
		hash := ContentHash(doc.ExternalID, doc.Text)

		if _, dup := seen[hash]; dup {
			result.Unchanged++
			ix.progress(i+1, len(docs))
			continue
		}
		seen[hash] = struct{}{}

		if _, ok := existing[hash]; ok {
			result.Unchanged++
			ix.progress(i+1, len(docs))
			continue
		}

		vectors, err := ix.embedder.Embed(ctx, []string{doc.Text})
		if err != nil {
			ix.logger.Printf("embed document %s: %v", doc.ExternalID, err)
			result.Failures = append(result.Failures, SyncFailure{ExternalID: doc.ExternalID, Err: err})
			ix.progress(i+1, len(docs))
			continue
		}
		if len(vectors) == 0 || len(vectors[0]) != ix.dimension {
			err := fmt.Errorf("document %s: embedding has %d dimensions, collection expects %d: %w",
				doc.ExternalID, vectorLen(vectors), ix.dimension, store.ErrDimensionMismatch)
			ix.logger.Print(err)
			result.Failures = append(result.Failures, SyncFailure{ExternalID: doc.ExternalID, Err: err})
			ix.progress(i+1, len(docs))
			continue
		}

		newChunks = append(newChunks, store.Chunk{
			ContentHash: hash,
			ExternalID:  doc.ExternalID,
			Text:        doc.Text,
			Embedding:   vectors[0],
		})
		ix.progress(i+1, len(docs))
	}

	if len(newChunks) > 0 {
		if err := ix.store.InsertChunks(ctx, collection, newChunks); err != nil {
			return result, fmt.Errorf("insert chunks: %w", err)
		}
		result.Inserted = len(newChunks)
		ix.logger.Printf("collection %s: %d chunks added", collection, result.Inserted)
	} else {
		ix.logger.Printf("collection %s: index already up to date (0 new chunks)", collection)
	}

	return result, nil
}

func (ix *Index) collectionLock(collection string) *sync.Mutex {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	lock, ok := ix.syncLocks[collection]
	if !ok {
		lock = &sync.Mutex{}
		ix.syncLocks[collection] = lock
	}
	return lock
}

func (ix *Index) progress(done, total int) {
	if ix.Progress != nil {
		ix.Progress(done, total)
	}
}

func vectorLen(vectors [][]float32) int {
	if len(vectors) == 0 {
		return 0
	}
	return len(vectors[0])
}
