package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/metassist/kb-assistant/internal/core"
)

func TestGenerateMissingKeyReturnsPlaceholder(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "gpt-4o-mini", 320, time.Second)
	answer, err := c.Generate(context.Background(), []core.Message{{Role: core.RoleUser, Content: "вопрос"}})
	if err != nil {
		t.Fatalf("missing key must not be an error: %v", err)
	}
	if answer != missingKeyAnswer {
		t.Errorf("expected the placeholder answer, got %q", answer)
	}
	if requests != 0 {
		t.Errorf("no request must be sent without a key, got %d", requests)
	}
}

func TestGenerate(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  Ответ с пробелами.  "}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", 320, time.Second)
	msgs := []core.Message{
		{Role: core.RoleSystem, Content: "инструкции"},
		{Role: core.RoleUser, Content: "вопрос"},
	}
	answer, err := c.Generate(context.Background(), msgs)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if answer != "Ответ с пробелами." {
		t.Errorf("expected the trimmed completion, got %q", answer)
	}

	if got.Model != "gpt-4o-mini" {
		t.Errorf("unexpected model %q", got.Model)
	}
	if got.MaxTokens != 320 {
		t.Errorf("unexpected max_tokens %d", got.MaxTokens)
	}
	if got.Temperature != temperature {
		t.Errorf("unexpected temperature %v", got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != core.RoleSystem {
		t.Errorf("message order must be preserved on the wire: %+v", got.Messages)
	}
}

func TestGenerateUpstreamErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", 320, time.Second)
	if _, err := c.Generate(context.Background(), []core.Message{{Role: core.RoleUser, Content: "в"}}); err == nil {
		t.Error("upstream errors must propagate")
	}
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "gpt-4o-mini", 320, time.Second)
	if _, err := c.Generate(context.Background(), []core.Message{{Role: core.RoleUser, Content: "в"}}); err == nil {
		t.Error("an empty choices list must be an error")
	}
}
