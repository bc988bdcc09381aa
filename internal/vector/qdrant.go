// Package vector adapts the Qdrant REST API to the core.VectorIndex
// contract. Index internals stay behind this boundary.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/metassist/kb-assistant/internal/core"
)

type Qdrant struct {
	baseURL    string
	collection string
	client     *http.Client
}

func NewQdrant(baseURL, collection string) *Qdrant {
	return &Qdrant{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (q *Qdrant) Collection() string {
	return q.collection
}

// EnsureCollection makes sure a cosine-distance collection of the given
// dimension exists. With recreate set, an existing collection is dropped
// and rebuilt.
func (q *Qdrant) EnsureCollection(ctx context.Context, dim int, recreate bool) error {
	exists, err := q.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists && !recreate {
		return nil
	}
	if exists && recreate {
		if err := q.do(ctx, http.MethodDelete, "/collections/"+q.collection, nil, nil); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
	}
	body := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	if err := q.do(ctx, http.MethodPut, "/collections/"+q.collection, body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

type pointPayload struct {
	DocID      string `json:"doc_id"`
	Title      string `json:"title"`
	SourcePath string `json:"source_path"`
	Text       string `json:"text"`
}

type upsertPoint struct {
	ID      uint64       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload pointPayload `json:"payload"`
}

// Upsert writes points synchronously (wait=true) so ingest reports only
// persisted chunks.
func (q *Qdrant) Upsert(ctx context.Context, points []core.Point) error {
	ps := make([]upsertPoint, 0, len(points))
	for _, p := range points {
		ps = append(ps, upsertPoint{
			ID:     p.ID,
			Vector: p.Vector,
			Payload: pointPayload{
				DocID:      p.Payload.DocID,
				Title:      p.Payload.Title,
				SourcePath: p.Payload.SourcePath,
				Text:       p.Payload.Text,
			},
		})
	}
	body := map[string]any{"points": ps}
	path := fmt.Sprintf("/collections/%s/points?wait=true", q.collection)
	if err := q.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

type searchResult struct {
	Result []struct {
		Score   float64      `json:"score"`
		Payload pointPayload `json:"payload"`
	} `json:"result"`
}

// Search returns up to topK hits ranked by descending cosine similarity.
func (q *Qdrant) Search(ctx context.Context, vector []float32, topK int) ([]core.Hit, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var out searchResult
	path := fmt.Sprintf("/collections/%s/points/search", q.collection)
	if err := q.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}
	hits := make([]core.Hit, 0, len(out.Result))
	for _, r := range out.Result {
		hits = append(hits, core.Hit{
			Score: r.Score,
			Payload: core.ChunkPayload{
				DocID:      r.Payload.DocID,
				Title:      r.Payload.Title,
				SourcePath: r.Payload.SourcePath,
				Text:       r.Payload.Text,
			},
		})
	}
	return hits, nil
}

func (q *Qdrant) collectionExists(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL+"/collections/"+q.collection, nil)
	if err != nil {
		return false, err
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("check collection: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("check collection: unexpected status %d", resp.StatusCode)
	}
}

func (q *Qdrant) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return nil
}
