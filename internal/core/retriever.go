package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// cacheKeyPrefixLen is how much of the query digest goes into the cache
// key. The key is derived from the exact query bytes: no casing or
// whitespace normalization, so textually different queries stay distinct.
const cacheKeyPrefixLen = 24

type cacheOutcome int

const (
	cacheMiss cacheOutcome = iota
	cacheHit
	cacheCorrupt
)

// Retriever returns ranked knowledge chunks for a query, transparently
// cached with a TTL independent of conversation state.
type Retriever struct {
	index    VectorIndex
	embedder Embedder
	cache    RetrievalCache
	cacheTTL time.Duration
	topK     int
	log      *zap.Logger
}

func NewRetriever(index VectorIndex, embedder Embedder, cache RetrievalCache, cacheTTL time.Duration, topK int, log *zap.Logger) *Retriever {
	return &Retriever{
		index:    index,
		embedder: embedder,
		cache:    cache,
		cacheTTL: cacheTTL,
		topK:     topK,
		log:      log,
	}
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "retr:" + hex.EncodeToString(sum[:])[:cacheKeyPrefixLen]
}

// Retrieve returns at most topK chunks ranked by descending score. A
// non-positive topK falls back to the configured default. Embedding and
// vector-search failures propagate; the caller decides whether they fail
// the whole chat turn. An empty result is a valid return.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]RetrievedChunk, error) {
	k := topK
	if k <= 0 {
		k = r.topK
	}
	key := cacheKey(query)

	raw, found, err := r.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("retrieval cache read: %w", err)
	}
	if found {
		chunks, outcome := decodeCached(raw)
		switch outcome {
		case cacheHit:
			if len(chunks) > k {
				chunks = chunks[:k]
			}
			return chunks, nil
		case cacheCorrupt:
			// Treated as a miss; a corrupt entry never fails the request.
			r.log.Warn("corrupt retrieval cache entry", zap.String("key", key))
		}
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	hits, err := r.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	chunks := make([]RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, RetrievedChunk{
			DocID:      h.Payload.DocID,
			Title:      h.Payload.Title,
			Score:      h.Score,
			SourcePath: h.Payload.SourcePath,
			Text:       h.Payload.Text,
		})
	}

	encoded, err := json.Marshal(chunks)
	if err != nil {
		return nil, fmt.Errorf("encode retrieval cache entry: %w", err)
	}
	if err := r.cache.Set(ctx, key, string(encoded), r.cacheTTL); err != nil {
		return nil, fmt.Errorf("retrieval cache write: %w", err)
	}
	return chunks, nil
}

// decodeCached enumerates the cache-read outcomes explicitly instead of
// treating decode failures as incidental exceptions.
func decodeCached(raw string) ([]RetrievedChunk, cacheOutcome) {
	var chunks []RetrievedChunk
	if err := json.Unmarshal([]byte(raw), &chunks); err != nil {
		return nil, cacheCorrupt
	}
	return chunks, cacheHit
}
