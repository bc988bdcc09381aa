package core

import (
	"context"
	"time"
)

// ConversationStore owns turn persistence and eviction. Append applies
// append, trim and TTL reset as one atomic unit per conversation id.
type ConversationStore interface {
	Append(ctx context.Context, conversationID, role, content string) error
	// History returns turns oldest-first. Malformed stored entries are
	// skipped, never fatal to the read.
	History(ctx context.Context, conversationID string) ([]Turn, error)
	// Summary returns the cached conversation summary, or "" when absent.
	Summary(ctx context.Context, conversationID string) (string, error)
	SetSummary(ctx context.Context, conversationID, summary string) error
}

// RetrievalCache is a TTL-backed string slot keyed by query digest.
type RetrievalCache interface {
	// Get returns the raw cached value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Embedder turns texts into fixed-length vectors, pre-normalized for
// cosine comparison.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorIndex is the similarity-search collaborator. Scores are cosine
// similarity, higher is better.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dim int, recreate bool) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)
	Collection() string
}

// Generator produces an answer from an ordered list of messages. Missing
// credentials yield a placeholder answer, not an error.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// ChunkFunc produces ingestion chunks from a document directory.
type ChunkFunc func(docsPath string, limit int) ([]DocChunk, error)
