package embedders

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kadirpekel/memori/pkg/config"
)

func TestOpenAIEmbedder_RequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIEmbedderFromConfig(&config.EmbedderProviderConfig{}); err == nil {
		t.Error("expected an error without an API key")
	}
}

func TestOpenAIEmbedder_EmbedReturnsVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req OpenAIEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) != 1 || req.Input[0] != "hello" {
			t.Errorf("Input = %+v", req.Input)
		}
		resp := OpenAIEmbedResponse{Data: []struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{{Embedding: []float32{0.4, 0.5}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedderFromConfig(&config.EmbedderProviderConfig{
		APIKey: "sk-test", Host: srv.URL, MaxRetries: 1,
	})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedderFromConfig() error = %v", err)
	}

	vec, err := e.Embed("hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.4 {
		t.Errorf("Embed() = %+v", vec)
	}
	if e.GetModelName() != "text-embedding-3-small" {
		t.Errorf("GetModelName() = %q", e.GetModelName())
	}
	if e.GetDimension() != 1536 {
		t.Errorf("GetDimension() = %d, want default 1536", e.GetDimension())
	}
}

func TestOpenAIEmbedder_EmptyDataIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(OpenAIEmbedResponse{})
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedderFromConfig(&config.EmbedderProviderConfig{APIKey: "sk-test", Host: srv.URL, MaxRetries: 1})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedderFromConfig() error = %v", err)
	}
	if _, err := e.Embed("x"); err == nil {
		t.Error("expected an error for an empty data array")
	}
}
