package api

import (
	"context"
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/metassist/kb-assistant/internal/core"
	"github.com/metassist/kb-assistant/internal/metrics"
)

const (
	maxMessageChars        = 4000
	maxConversationIDChars = 128
)

// Service is the pipeline surface the HTTP layer depends on.
type Service interface {
	Chat(ctx context.Context, req core.ChatRequest) (*core.ChatResponse, error)
	Search(ctx context.Context, req core.SearchRequest) (*core.SearchResponse, error)
	Ingest(ctx context.Context, req core.IngestRequest) (*core.IngestResponse, error)
}

type Handler struct {
	service Service
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewHandler(service Service, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{service: service, metrics: m, log: log}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req core.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "Message cannot be empty", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(req.Message) > maxMessageChars {
		http.Error(w, "Message too long", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(req.ConversationID) > maxConversationIDChars {
		http.Error(w, "Conversation id too long", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	resp, err := h.service.Chat(r.Context(), req)
	if err != nil {
		h.log.Error("chat failed", zap.String("conversation_id", req.ConversationID), zap.Error(err))
		http.Error(w, "Failed to process chat message", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	var req core.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "Query cannot be empty", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(req.Query) > maxMessageChars {
		http.Error(w, "Query too long", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Search(r.Context(), req)
	if err != nil {
		h.log.Error("search failed", zap.Error(err))
		http.Error(w, "Failed to search knowledge base", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	req := core.IngestRequest{DocsPath: "data/docs"}
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.DocsPath == "" {
		req.DocsPath = "data/docs"
	}

	resp, err := h.service.Ingest(r.Context(), req)
	if err != nil {
		h.log.Error("ingest failed", zap.String("docs_path", req.DocsPath), zap.Error(err))
		http.Error(w, "Failed to ingest documents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.SnapshotNow())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
