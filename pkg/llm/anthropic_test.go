package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropic_GenerateConcatenatesContentBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "ak-test" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []struct {
				Text string `json:"text"`
			}{{Text: "hello "}, {Text: "world"}},
		})
	}))
	defer srv.Close()

	p := NewAnthropic("ak-test", "claude-test", srv.URL)
	text, _, err := p.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "hello world" {
		t.Errorf("Generate() = %q, want %q", text, "hello world")
	}
}

func TestAnthropic_SystemMessagesAreHoistedOutOfMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !strings.Contains(req.System, "be terse") {
			t.Errorf("expected the system prompt to carry the system message, got %q", req.System)
		}
		for _, m := range req.Messages {
			if m.Role == "system" {
				t.Errorf("expected no system-role entries in Messages, got %+v", req.Messages)
			}
		}
		_ = json.NewEncoder(w).Encode(anthropicResponse{})
	}))
	defer srv.Close()

	p := NewAnthropic("ak-test", "claude-test", srv.URL)
	_, _, err := p.Generate(context.Background(), []Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestAnthropic_GenerateStructuredAppendsSchemaAndPrefill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !strings.Contains(req.System, "JSON object") {
			t.Errorf("expected a schema instruction in the system prompt, got %q", req.System)
		}
		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []struct {
				Text string `json:"text"`
			}{{Text: `"category":"fact"}`}},
		})
	}))
	defer srv.Close()

	p := NewAnthropic("ak-test", "claude-test", srv.URL)
	cfg := StructuredOutputConfig{Schema: map[string]any{"type": "object"}, Prefill: `{`}
	text, _, err := p.GenerateStructured(context.Background(), []Message{{Role: "user", Content: "classify"}}, cfg)
	if err != nil {
		t.Fatalf("GenerateStructured() error = %v", err)
	}
	if text != `{"category":"fact"}` {
		t.Errorf("GenerateStructured() = %q, want prefill applied", text)
	}
}

func TestAnthropic_HTTPErrorStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	p := NewAnthropic("ak-test", "claude-test", srv.URL)
	_, _, err := p.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected an error for a 401 response")
	}
}

func TestAnthropic_SupportsStructuredOutputAndModelName(t *testing.T) {
	p := NewAnthropic("ak-test", "claude-test", "")
	if p.SupportsStructuredOutput() {
		t.Error("Anthropic has no native structured output support")
	}
	if p.GetModelName() != "claude-test" {
		t.Errorf("GetModelName() = %q, want %q", p.GetModelName(), "claude-test")
	}
}
