package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/exposome-labs/causeway/backend/pkg/biokb"
)

func newTestClient(baseURL string) *Client {
	return NewClient(NewClientParams{
		BaseURL:        baseURL,
		MaxAttempts:    3,
		RetryBackoff:   time.Millisecond,
		CallsPerMinute: 100000,
	})
}

func TestFindPathsDecodesResponse(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"paths": []biokb.Path{
				{
					Nodes: []biokb.Node{
						{ID: "PM2.5", Name: "PM2.5"},
						{ID: "IL6", Name: "IL6", Database: "HGNC", Identifier: "6018"},
					},
					Edges: []biokb.Edge{
						{Source: "PM2.5", Target: "IL6", StatementType: "IncreaseAmount", Belief: 0.9, EvidenceCount: 40},
					},
					Belief: 0.9,
				},
			},
		})
	}))
	defer server.Close()

	paths, err := newTestClient(server.URL).FindPaths(context.Background(), "PM2.5", "IL6", 4, 10)
	if err != nil {
		t.Fatalf("FindPaths failed: %v", err)
	}
	if gotPath != "/api/paths" {
		t.Errorf("expected endpoint /api/paths, got %q", gotPath)
	}
	if gotQuery != "limit=10&max_depth=4&source=PM2.5&target=IL6" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
	if paths[0].Edges[0].EvidenceCount != 40 {
		t.Errorf("expected evidence count 40, got %d", paths[0].Edges[0].EvidenceCount)
	}
}

func TestNotFoundIsEmptyNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	paths, err := newTestClient(server.URL).FindPaths(context.Background(), "coffee", "eye_color", 4, 10)
	if err != nil {
		t.Fatalf("expected nil error on 404, got %v", err)
	}
	if paths != nil {
		t.Errorf("expected nil paths on 404, got %v", paths)
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"neighbors": []biokb.Neighbor{
			{Node: biokb.Node{ID: "NFKB1", Name: "NFKB1"}, Belief: 0.8},
		}})
	}))
	defer server.Close()

	neighbors, err := newTestClient(server.URL).Neighbors(context.Background(), "PM2.5", biokb.Downstream, 1, 0.5)
	if err != nil {
		t.Fatalf("expected recovery after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if len(neighbors) != 1 || neighbors[0].Node.ID != "NFKB1" {
		t.Errorf("unexpected neighbors %v", neighbors)
	}
}

func TestAttemptsAreExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FindPaths(context.Background(), "a", "b", 4, 10)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FindPaths(context.Background(), "a", "b", 4, 10)
	if err == nil {
		t.Fatal("expected error on 400")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt on 400, got %d", calls.Load())
	}
}

func TestAutocompleteParsesTriples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]string{
			{"C-reactive protein", "HGNC", "2367"},
			{"truncated row"},
		})
	}))
	defer server.Close()

	matches, err := newTestClient(server.URL).Autocomplete(context.Background(), "C-reac", 5)
	if err != nil {
		t.Fatalf("Autocomplete failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected malformed rows to be skipped, got %d matches", len(matches))
	}
	if matches[0].Database != "HGNC" || matches[0].ID != "2367" {
		t.Errorf("unexpected match %+v", matches[0])
	}
}

func TestAPIKeyIsSentAsBearer(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(NewClientParams{BaseURL: server.URL, APIKey: "secret", CallsPerMinute: 100000})
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if auth != "Bearer secret" {
		t.Errorf("expected bearer header, got %q", auth)
	}
}

func TestCancelledContextStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(NewClientParams{
		BaseURL:        server.URL,
		MaxAttempts:    5,
		RetryBackoff:   time.Hour,
		CallsPerMinute: 100000,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.FindPaths(ctx, "a", "b", 4, 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("cancellation did not interrupt the backoff sleep")
	}
}
