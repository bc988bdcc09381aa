package core

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is a single conversation entry. Turns are immutable once appended.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is one role/content pair of a generation request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RetrievedChunk is a ranked knowledge-base passage, either fresh from the
// vector index or reconstructed from the retrieval cache.
type RetrievedChunk struct {
	DocID      string  `json:"doc_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	SourcePath string  `json:"source_path"`
	Text       string  `json:"text"`
}

// Source is the externally visible citation for a retrieved chunk.
type Source struct {
	DocID      string  `json:"doc_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	SourcePath string  `json:"source_path"`
}

// DocChunk is a passage produced by ingestion, identified as
// "{document-stem}:{index-within-document}".
type DocChunk struct {
	DocID      string
	Title      string
	SourcePath string
	Text       string
}

// ChunkPayload is the per-point payload stored in the vector index.
type ChunkPayload struct {
	DocID      string `json:"doc_id"`
	Title      string `json:"title"`
	SourcePath string `json:"source_path"`
	Text       string `json:"text"`
}

// Point is one embedded chunk to upsert into the vector index.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload ChunkPayload
}

// Hit is one ranked vector-search result.
type Hit struct {
	Score   float64
	Payload ChunkPayload
}

type ChatRequest struct {
	ConversationID string            `json:"conversation_id"`
	Message        string            `json:"message"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type ChatResponse struct {
	ConversationID string            `json:"conversation_id"`
	Intent         string            `json:"intent"`
	Answer         string            `json:"answer"`
	Sources        []Source          `json:"sources"`
	Debug          map[string]string `json:"debug"`
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type SearchResponse struct {
	Query   string   `json:"query"`
	Results []Source `json:"results"`
}

type IngestRequest struct {
	DocsPath string `json:"docs_path"`
	Recreate bool   `json:"recreate"`
	Limit    int    `json:"limit"`
}

type IngestResponse struct {
	IndexedChunks int    `json:"indexed_chunks"`
	Collection    string `json:"collection"`
}

func sourcesFromChunks(chunks []RetrievedChunk) []Source {
	sources := make([]Source, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, Source{
			DocID:      c.DocID,
			Title:      c.Title,
			Score:      c.Score,
			SourcePath: c.SourcePath,
		})
	}
	return sources
}
