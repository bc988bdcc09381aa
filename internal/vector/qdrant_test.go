package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/metassist/kb-assistant/internal/core"
)

type recordedCall struct {
	method string
	path   string
	body   []byte
}

// qdrantStub records every call and answers the collection existence
// probe with the configured status.
func qdrantStub(t *testing.T, existsStatus int, searchBody string) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{method: r.Method, path: r.URL.Path}
		if r.Body != nil {
			buf := make([]byte, r.ContentLength)
			r.Body.Read(buf)
			call.body = buf
		}
		calls = append(calls, call)

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/kb":
			w.WriteHeader(existsStatus)
		case r.Method == http.MethodPost && r.URL.Path == "/collections/kb/points/search":
			w.Write([]byte(searchBody))
		default:
			w.Write([]byte(`{"status":"ok"}`))
		}
	}))
	return srv, &calls
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	srv, calls := qdrantStub(t, http.StatusNotFound, "")
	defer srv.Close()

	q := NewQdrant(srv.URL, "kb")
	if err := q.EnsureCollection(context.Background(), 384, false); err != nil {
		t.Fatalf("ensure collection: %v", err)
	}

	if len(*calls) != 2 {
		t.Fatalf("expected probe + create, got %d calls", len(*calls))
	}
	create := (*calls)[1]
	if create.method != http.MethodPut || create.path != "/collections/kb" {
		t.Fatalf("expected PUT /collections/kb, got %s %s", create.method, create.path)
	}
	var body struct {
		Vectors struct {
			Size     int    `json:"size"`
			Distance string `json:"distance"`
		} `json:"vectors"`
	}
	if err := json.Unmarshal(create.body, &body); err != nil {
		t.Fatalf("decode create body: %v", err)
	}
	if body.Vectors.Size != 384 || body.Vectors.Distance != "Cosine" {
		t.Errorf("unexpected vectors config: %+v", body.Vectors)
	}
}

func TestEnsureCollectionNoopWhenPresent(t *testing.T) {
	srv, calls := qdrantStub(t, http.StatusOK, "")
	defer srv.Close()

	q := NewQdrant(srv.URL, "kb")
	if err := q.EnsureCollection(context.Background(), 384, false); err != nil {
		t.Fatalf("ensure collection: %v", err)
	}
	if len(*calls) != 1 {
		t.Errorf("an existing collection must not be touched, got %d calls", len(*calls))
	}
}

func TestEnsureCollectionRecreateDropsFirst(t *testing.T) {
	srv, calls := qdrantStub(t, http.StatusOK, "")
	defer srv.Close()

	q := NewQdrant(srv.URL, "kb")
	if err := q.EnsureCollection(context.Background(), 384, true); err != nil {
		t.Fatalf("ensure collection: %v", err)
	}

	if len(*calls) != 3 {
		t.Fatalf("expected probe + delete + create, got %d calls", len(*calls))
	}
	if (*calls)[1].method != http.MethodDelete {
		t.Errorf("expected DELETE before recreate, got %s", (*calls)[1].method)
	}
	if (*calls)[2].method != http.MethodPut {
		t.Errorf("expected PUT after delete, got %s", (*calls)[2].method)
	}
}

func TestUpsertSendsWaitTrue(t *testing.T) {
	var gotQuery string
	var gotBody struct {
		Points []upsertPoint `json:"points"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode upsert body: %v", err)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	q := NewQdrant(srv.URL, "kb")
	points := []core.Point{
		{ID: 0, Vector: []float32{0.1, 0.2}, Payload: core.ChunkPayload{DocID: "faq:0", Title: "faq", Text: "текст"}},
		{ID: 1, Vector: []float32{0.3, 0.4}, Payload: core.ChunkPayload{DocID: "faq:1", Title: "faq", Text: "ещё"}},
	}
	if err := q.Upsert(context.Background(), points); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if gotQuery != "wait=true" {
		t.Errorf("upsert must be synchronous, query was %q", gotQuery)
	}
	if len(gotBody.Points) != 2 {
		t.Fatalf("expected 2 points on the wire, got %d", len(gotBody.Points))
	}
	if gotBody.Points[1].ID != 1 || gotBody.Points[1].Payload.DocID != "faq:1" {
		t.Errorf("unexpected second point: %+v", gotBody.Points[1])
	}
}

func TestSearchDecodesHits(t *testing.T) {
	searchBody := `{"result":[
		{"score":0.91,"payload":{"doc_id":"delivery:0","title":"delivery","source_path":"data/docs/delivery.md","text":"Сроки"}},
		{"score":0.42,"payload":{"doc_id":"faq:3","title":"faq","source_path":"data/docs/faq.md","text":"Вопросы"}}
	]}`
	srv, calls := qdrantStub(t, http.StatusOK, searchBody)
	defer srv.Close()

	q := NewQdrant(srv.URL, "kb")
	hits, err := q.Search(context.Background(), []float32{0.5, 0.5}, 6)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Score != 0.91 || hits[0].Payload.DocID != "delivery:0" {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].Payload.SourcePath != "data/docs/faq.md" {
		t.Errorf("payload fields must survive decoding: %+v", hits[1].Payload)
	}

	var req struct {
		Vector      []float32 `json:"vector"`
		Limit       int       `json:"limit"`
		WithPayload bool      `json:"with_payload"`
	}
	if err := json.Unmarshal((*calls)[0].body, &req); err != nil {
		t.Fatalf("decode search request: %v", err)
	}
	if req.Limit != 6 || !req.WithPayload || len(req.Vector) != 2 {
		t.Errorf("unexpected search request: %+v", req)
	}
}

func TestSearchUpstreamErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer srv.Close()

	q := NewQdrant(srv.URL, "kb")
	if _, err := q.Search(context.Background(), []float32{0.1}, 6); err == nil {
		t.Error("upstream errors must propagate")
	}
}
