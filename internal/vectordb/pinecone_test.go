package vectordb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parrotlabs/thinktank/internal/config"
	"go.uber.org/zap"
)

func TestNewPineconeValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PineconeConfig
	}{
		{"missing key", config.PineconeConfig{IndexName: "idx"}},
		{"missing index", config.PineconeConfig{APIKey: "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPinecone(zap.NewNop(), tt.cfg); err == nil {
				t.Error("NewPinecone() error = nil, want validation error")
			}
		})
	}
}

func TestQueryResolvesHostAndParsesMatches(t *testing.T) {
	var gotQuery struct {
		Vector          []float32 `json:"vector"`
		TopK            int       `json:"topK"`
		IncludeMetadata bool      `json:"includeMetadata"`
	}

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/indexes/rag-index", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") != "test-key" {
			t.Errorf("Api-Key header = %q", r.Header.Get("Api-Key"))
		}
		json.NewEncoder(w).Encode(map[string]string{"name": "rag-index", "host": server.URL})
	})
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotQuery); err != nil {
			t.Errorf("decode query body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{"id": "a", "score": 0.9, "metadata": map[string]any{"content": "doc one"}},
				{"id": "b", "score": 0.8, "metadata": map[string]any{"content": "doc two"}},
			},
		})
	})

	index, err := NewPinecone(zap.NewNop(), config.PineconeConfig{
		APIKey:     "test-key",
		IndexName:  "rag-index",
		BaseURL:    server.URL,
		APIVersion: "2025-10",
	})
	if err != nil {
		t.Fatalf("NewPinecone() error = %v", err)
	}

	matches, err := index.Query(context.Background(), []float32{0.1, 0.2}, 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].ID != "a" || matches[0].Metadata["content"] != "doc one" {
		t.Errorf("first match = %+v", matches[0])
	}
	if !gotQuery.IncludeMetadata {
		t.Error("includeMetadata = false, want true")
	}
	if gotQuery.TopK != 3 {
		t.Errorf("topK = %d, want 3", gotQuery.TopK)
	}
}

func TestQueryRejectsEmptyVector(t *testing.T) {
	index, err := NewPinecone(zap.NewNop(), config.PineconeConfig{APIKey: "k", IndexName: "idx"})
	if err != nil {
		t.Fatalf("NewPinecone() error = %v", err)
	}
	if _, err := index.Query(context.Background(), nil, 3); err == nil {
		t.Error("Query() error = nil, want error for empty vector")
	}
}
