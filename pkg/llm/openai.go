package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kadirpekel/memori/pkg/httpclient"
)

// OpenAICompatible talks to the OpenAI chat-completions API, or any
// provider that mirrors its request/response shape (most local and
// hosted inference gateways do).
type OpenAICompatible struct {
	apiKey string
	model  string
	host   string
	client *httpclient.Client
}

// NewOpenAICompatible builds an adapter. host defaults to the public
// OpenAI API if empty.
func NewOpenAICompatible(apiKey, model, host string) *OpenAICompatible {
	if host == "" {
		host = "https://api.openai.com/v1"
	}
	return &OpenAICompatible{
		apiKey: apiKey,
		model:  model,
		host:   host,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
			httpclient.WithMaxRetries(2),
			httpclient.WithBaseDelay(2*time.Second),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
		),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string         `json:"type"`
	JSONSchema jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *OpenAICompatible) Generate(ctx context.Context, messages []Message) (string, int, error) {
	return p.call(ctx, messages, nil)
}

func (p *OpenAICompatible) GenerateStructured(ctx context.Context, messages []Message, cfg StructuredOutputConfig) (string, int, error) {
	var rf *responseFormat
	if cfg.Schema != nil {
		name := cfg.Name
		if name == "" {
			name = "response"
		}
		rf = &responseFormat{Type: "json_schema", JSONSchema: jsonSchemaSpec{Name: name, Strict: cfg.Strict, Schema: cfg.Schema}}
	}
	return p.call(ctx, messages, rf)
}

func (p *OpenAICompatible) call(ctx context.Context, messages []Message, rf *responseFormat) (string, int, error) {
	msgs := make([]chatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(chatRequest{Model: p.model, Messages: msgs, ResponseFormat: rf})
	if err != nil {
		return "", 0, fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", 0, fmt.Errorf("llm: openai error (%d): %s", resp.StatusCode, raw)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", 0, fmt.Errorf("llm: decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", cr.Usage.TotalTokens, fmt.Errorf("llm: empty response")
	}
	return cr.Choices[0].Message.Content, cr.Usage.TotalTokens, nil
}

func (p *OpenAICompatible) SupportsStructuredOutput() bool { return true }
func (p *OpenAICompatible) GetModelName() string           { return p.model }

var _ Provider = (*OpenAICompatible)(nil)
