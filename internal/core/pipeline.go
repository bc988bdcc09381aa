package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/metassist/kb-assistant/internal/intent"
	"github.com/metassist/kb-assistant/internal/metrics"
)

const (
	ctaAnswer = "Могу подготовить КП. Оставь телефон или email и укажи: объём (тонны), ширина/толщина, сплав/состояние, город доставки."

	operatorAnswer = "Понял. Передам менеджеру. Оставь контакты и кратко опиши задачу (объём, спецификация, сроки)."

	fallbackLowScoreAnswer = "Не нашёл точного ответа в базе знаний. Уточни параметры (сплав, толщина, ширина, объём, город), или оставь контакты - менеджер поможет."

	fallbackEmptyAnswer = "Похоже, информации не хватает. Уточни вопрос или оставь контакты для связи."
)

// Pipeline orchestrates one chat request through the
// route → retrieve → gate → assemble → generate → persist state machine.
// It holds no cross-request state; all shared resources live behind the
// injected collaborators.
type Pipeline struct {
	conversations ConversationStore
	retriever     *Retriever
	router        *intent.Router
	generator     Generator
	embedder      Embedder
	index         VectorIndex
	chunk         ChunkFunc
	metrics       *metrics.Metrics
	log           *zap.Logger
	minScore      float64
}

func NewPipeline(
	conversations ConversationStore,
	retriever *Retriever,
	router *intent.Router,
	generator Generator,
	embedder Embedder,
	index VectorIndex,
	chunk ChunkFunc,
	m *metrics.Metrics,
	log *zap.Logger,
	minScore float64,
) *Pipeline {
	return &Pipeline{
		conversations: conversations,
		retriever:     retriever,
		router:        router,
		generator:     generator,
		embedder:      embedder,
		index:         index,
		chunk:         chunk,
		metrics:       m,
		log:           log,
		minScore:      minScore,
	}
}

// Chat runs the full conversational state machine. Every branch appends
// the user turn right after routing and the assistant turn right before
// responding, so conversation memory records canned and fallback answers
// the same way it records generated ones.
func (p *Pipeline) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	total := metrics.StartTimer()
	routed := p.router.Route(req.Message)
	p.metrics.Inc("intent_" + string(routed))

	if err := p.conversations.Append(ctx, req.ConversationID, RoleUser, req.Message); err != nil {
		return nil, fmt.Errorf("append user turn: %w", err)
	}

	switch routed {
	case intent.CTA:
		return p.respond(ctx, req, total, routed, ctaAnswer, nil, map[string]string{"mode": "cta"})
	case intent.Operator:
		return p.respond(ctx, req, total, routed, operatorAnswer, nil, map[string]string{"mode": "operator"})
	}

	retrieve := metrics.StartTimer()
	chunks, err := p.retriever.Retrieve(ctx, req.Message, 0)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	p.metrics.ObserveMS("retrieve_ms", retrieve.MS())

	gate := Decide(chunks, p.minScore)
	if !gate.OK {
		p.metrics.Inc("fallback")
		answer := fallbackAnswer(gate.Reason)
		return p.respond(ctx, req, total, intent.RAG, answer, nil, map[string]string{
			"mode":   "fallback",
			"reason": string(gate.Reason),
		})
	}

	history, err := p.conversations.History(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	// The current user turn was just appended; keep it out of the history
	// block so it appears once, as the final user message.
	if n := len(history); n > 0 && history[n-1].Role == RoleUser && history[n-1].Content == req.Message {
		history = history[:n-1]
	}
	summary, err := p.conversations.Summary(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}

	contextText := BuildContext(chunks)
	msgs := BuildMessages(SystemRAG, history, req.Message, contextText, summary)

	generate := metrics.StartTimer()
	answer, err := p.generator.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	p.metrics.ObserveMS("generate_ms", generate.MS())

	resp, err := p.respond(ctx, req, total, intent.RAG, answer, sourcesFromChunks(chunks), map[string]string{
		"mode": "rag",
		"gate": string(gate.Reason),
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("chat",
		zap.String("conversation_id", req.ConversationID),
		zap.String("intent", string(routed)),
		zap.Int("sources", len(resp.Sources)))
	return resp, nil
}

// respond persists the assistant turn and builds the response every branch
// shares, so callers cannot tell designed degradation from success except
// via the debug mode field.
func (p *Pipeline) respond(ctx context.Context, req ChatRequest, total metrics.Timer, routed intent.Intent, answer string, sources []Source, debug map[string]string) (*ChatResponse, error) {
	if err := p.conversations.Append(ctx, req.ConversationID, RoleAssistant, answer); err != nil {
		return nil, fmt.Errorf("append assistant turn: %w", err)
	}
	p.metrics.ObserveMS("chat_total", total.MS())
	if sources == nil {
		sources = []Source{}
	}
	return &ChatResponse{
		ConversationID: req.ConversationID,
		Intent:         string(routed),
		Answer:         answer,
		Sources:        sources,
		Debug:          debug,
	}, nil
}

// Search bypasses intent routing and gating: it only runs retrieval and
// returns ranked sources. Used for diagnostics and evaluation.
func (p *Pipeline) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	chunks, err := p.retriever.Retrieve(ctx, req.Query, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return &SearchResponse{Query: req.Query, Results: sourcesFromChunks(chunks)}, nil
}

// Ingest chunks documents, ensures a compatible collection and upserts all
// embedded chunks. It is sequential and does not roll back points already
// written when a later step fails.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	chunks, err := p.chunk(req.DocsPath, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("chunk documents: %w", err)
	}

	if err := p.index.EnsureCollection(ctx, p.embedder.Dimension(), req.Recreate); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	if len(chunks) == 0 {
		return &IngestResponse{IndexedChunks: 0, Collection: p.index.Collection()}, nil
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]Point, 0, len(chunks))
	for i, c := range chunks {
		points = append(points, Point{
			ID:     uint64(i),
			Vector: vectors[i],
			Payload: ChunkPayload{
				DocID:      c.DocID,
				Title:      c.Title,
				SourcePath: c.SourcePath,
				Text:       c.Text,
			},
		})
	}
	if len(points) > 0 {
		if err := p.index.Upsert(ctx, points); err != nil {
			return nil, fmt.Errorf("upsert points: %w", err)
		}
	}
	p.log.Info("ingest",
		zap.Int("chunks", len(points)),
		zap.String("collection", p.index.Collection()))
	return &IngestResponse{IndexedChunks: len(points), Collection: p.index.Collection()}, nil
}

func fallbackAnswer(reason GateReason) string {
	if reason == GateLowScore {
		return fallbackLowScoreAnswer
	}
	return fallbackEmptyAnswer
}
