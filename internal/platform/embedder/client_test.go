package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, dim int) (Client, *httptest.Server) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(log, Config{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model", Dim: dim}), srv
}

func TestEmbedRoundTrip(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path: want=/v1/embeddings got=%s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Input) != 2 {
			t.Errorf("inputs: want=2 got=%d", len(req.Input))
		}
		// Out-of-order indices must still land in input order.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{0, 1, 0}},
				{"index": 0, "embedding": []float64{1, 0, 0}},
			},
		})
	}, 3)

	vecs, err := c.Embed(context.Background(), []string{"fix a wobbly chair", "patch drywall"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header: want=Bearer test-key got=%q", gotAuth)
	}
	if len(vecs) != 2 {
		t.Fatalf("vectors: want=2 got=%d", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("vector order: got=%v", vecs)
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float64{1, 2}}},
		})
	}, 3)

	if _, err := c.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatalf("short embedding accepted")
	}
}

func TestEmbedServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}, 3)

	if _, err := c.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatalf("5xx accepted")
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request issued for empty input")
	}, 3)

	vecs, err := c.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 0 {
		t.Fatalf("vectors: want=0 got=%d", len(vecs))
	}
}
