package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Postgres implements Store on top of a pgx pool and the pgvector extension.
// Each collection gets its own chunk table so the vector dimension can differ
// between collections; a shared metadata table records the fixed configuration.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)

func (s *Postgres) EnsureCollection(ctx context.Context, name string, dimension int, metric Metric) error {
	if dimension <= 0 {
		return fmt.Errorf("collection dimension must be positive")
	}
	if _, ok := metricOps[metric]; !ok {
		return fmt.Errorf("unsupported distance metric: %s", metric)
	}

	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return unavailable("create vector extension", err)
	}

	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rag_collections (
			name TEXT PRIMARY KEY,
			dimension INT NOT NULL,
			metric TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return unavailable("create collections table", err)
	}

	existing, err := s.collectionInfo(ctx, name)
	if err == nil {
		if existing.Dimension != dimension || existing.Metric != metric {
			return fmt.Errorf("collection %q has dimension=%d metric=%s: %w",
				name, existing.Dimension, existing.Metric, ErrCollectionMismatch)
		}
		return nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}

	if _, err := s.pool.Exec(ctx,
		"INSERT INTO rag_collections (name, dimension, metric) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING",
		name, dimension, string(metric)); err != nil {
		return unavailable("register collection", err)
	}

	table := chunkTable(name)
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			content_hash UUID PRIMARY KEY,
			external_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, table, dimension)
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return unavailable("create chunk table", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding %s)
		WITH (lists = 100)`, table, table, metricOps[metric].opclass)
	if _, err := s.pool.Exec(ctx, createIndex); err != nil {
		return unavailable("create chunk index", err)
	}

	return nil
}

func (s *Postgres) ExistingHashes(ctx context.Context, collection string) (map[string]struct{}, error) {
	if _, err := s.collectionInfo(ctx, collection); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT content_hash FROM %s", chunkTable(collection)))
	if err != nil {
		return nil, unavailable("list content hashes", err)
	}
	defer rows.Close()

	hashes := make(map[string]struct{})
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, unavailable("scan content hash", err)
		}
		hashes[hash] = struct{}{}
	}
	if rows.Err() != nil {
		return nil, unavailable("list content hashes", rows.Err())
	}

	return hashes, nil
}

func (s *Postgres) InsertChunks(ctx context.Context, collection string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	info, err := s.collectionInfo(ctx, collection)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if len(chunk.Embedding) != info.Dimension {
			return fmt.Errorf("chunk %s has %d dimensions, collection %q expects %d: %w",
				chunk.ContentHash, len(chunk.Embedding), collection, info.Dimension, ErrDimensionMismatch)
		}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return unavailable("begin insert transaction", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (content_hash, external_id, content, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (content_hash) DO NOTHING`, chunkTable(collection))

	for _, chunk := range chunks {
		if _, err := tx.Exec(ctx, stmt,
			chunk.ContentHash,
			chunk.ExternalID,
			chunk.Text,
			pgvector.NewVector(chunk.Embedding),
		); err != nil {
			return unavailable("insert chunk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit insert transaction", err)
	}

	return nil
}

func (s *Postgres) Search(ctx context.Context, collection string, embedding []float32, limit int) ([]ScoredChunk, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}
	if limit <= 0 {
		limit = 5
	}

	info, err := s.collectionInfo(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(embedding) != info.Dimension {
		return nil, fmt.Errorf("query has %d dimensions, collection %q expects %d: %w",
			len(embedding), collection, info.Dimension, ErrDimensionMismatch)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, unavailable("acquire connection", err)
	}
	defer conn.Release()

	probes := limit * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, unavailable("set ivfflat probes", err)
	}

	op := metricOps[info.Metric].operator
	query := fmt.Sprintf(`
		SELECT content_hash, external_id, content, embedding,
		       (embedding %s $1::vector) AS distance
		FROM %s
		ORDER BY embedding %s $1::vector
		LIMIT $2`, op, chunkTable(collection), op)

	rows, err := conn.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, unavailable("query similar chunks", err)
	}
	defer rows.Close()

	results := make([]ScoredChunk, 0, limit)
	for rows.Next() {
		var (
			item     ScoredChunk
			vec      pgvector.Vector
			distance float64
		)
		if err := rows.Scan(&item.ContentHash, &item.ExternalID, &item.Text, &vec, &distance); err != nil {
			return nil, unavailable("scan similar chunk", err)
		}
		item.Embedding = vec.Slice()
		item.Score = distanceToScore(info.Metric, distance)
		results = append(results, item)
	}
	if rows.Err() != nil {
		return nil, unavailable("query similar chunks", rows.Err())
	}

	return results, nil
}

func (s *Postgres) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.collectionInfo(ctx, collection); err != nil {
		return 0, err
	}

	var count int
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", chunkTable(collection))).Scan(&count)
	if err != nil {
		return 0, unavailable("count chunks", err)
	}
	return count, nil
}

func (s *Postgres) Reset(ctx context.Context, collection string) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", chunkTable(collection))); err != nil {
		return unavailable("drop chunk table", err)
	}
	if _, err := s.pool.Exec(ctx, "DELETE FROM rag_collections WHERE name = $1", collection); err != nil {
		return unavailable("deregister collection", err)
	}
	return nil
}

func (s *Postgres) collectionInfo(ctx context.Context, name string) (CollectionInfo, error) {
	info := CollectionInfo{Name: name}
	var metric string
	err := s.pool.QueryRow(ctx,
		"SELECT dimension, metric FROM rag_collections WHERE name = $1", name,
	).Scan(&info.Dimension, &metric)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return info, fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
		}
		return info, unavailable("query collection", err)
	}
	info.Metric = Metric(metric)
	return info, nil
}

type metricOp struct {
	operator string
	opclass  string
}

var metricOps = map[Metric]metricOp{
	MetricCosine:       {operator: "<=>", opclass: "vector_cosine_ops"},
	MetricL2:           {operator: "<->", opclass: "vector_l2_ops"},
	MetricInnerProduct: {operator: "<#>", opclass: "vector_ip_ops"},
}

func distanceToScore(metric Metric, distance float64) float64 {
	switch metric {
	case MetricCosine:
		return 1 - distance
	case MetricInnerProduct:
		// pgvector negates the inner product so smaller is nearer.
		return -distance
	default:
		return 1 / (1 + distance)
	}
}

// chunkTable derives a safe per-collection table name.
func chunkTable(collection string) string {
	var b strings.Builder
	b.WriteString("rag_chunks_")
	for _, r := range strings.ToLower(collection) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}
