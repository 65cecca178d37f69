package embedders

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kadirpekel/memori/pkg/config"
)

func TestOllamaEmbedder_EmbedReturnsVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/api/embeddings")
		}
		var req OllamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "nomic-embed-text" {
			t.Errorf("Model = %q", req.Model)
		}
		_ = json.NewEncoder(w).Encode(OllamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	cfg := &config.EmbedderProviderConfig{
		Type: "ollama", Model: "nomic-embed-text", Host: srv.URL, Dimension: 3, Timeout: 5, MaxRetries: 1,
	}
	e, err := NewOllamaEmbedderFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewOllamaEmbedderFromConfig() error = %v", err)
	}

	vec, err := e.Embed("hello world")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("Embed() = %+v", vec)
	}
	if e.GetDimension() != 3 {
		t.Errorf("GetDimension() = %d, want 3", e.GetDimension())
	}
	if e.GetModelName() != "nomic-embed-text" {
		t.Errorf("GetModelName() = %q", e.GetModelName())
	}
}

func TestOllamaEmbedder_EmptyEmbeddingIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(OllamaEmbedResponse{})
	}))
	defer srv.Close()

	cfg := &config.EmbedderProviderConfig{Type: "ollama", Model: "m", Host: srv.URL, Timeout: 5, MaxRetries: 1}
	e, err := NewOllamaEmbedderFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewOllamaEmbedderFromConfig() error = %v", err)
	}

	if _, err := e.Embed("x"); err == nil {
		t.Error("expected an error for an empty embedding response")
	}
}

func TestOllamaEmbedder_HTTPErrorStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &config.EmbedderProviderConfig{Type: "ollama", Model: "m", Host: srv.URL, Timeout: 5, MaxRetries: 1}
	e, err := NewOllamaEmbedderFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewOllamaEmbedderFromConfig() error = %v", err)
	}

	if _, err := e.Embed("x"); err == nil {
		t.Error("expected an error for a 500 response")
	}
}
