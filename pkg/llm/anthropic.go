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

// Anthropic talks to the Messages API. Unlike the OpenAI-compatible
// shape, system content is a top-level field rather than a "system"
// role message, and there is no native JSON-schema response format —
// structured output is requested via a prefilled assistant turn plus
// a schema description appended to the system prompt.
type Anthropic struct {
	apiKey string
	model  string
	host   string
	client *httpclient.Client
}

func NewAnthropic(apiKey, model, host string) *Anthropic {
	if host == "" {
		host = "https://api.anthropic.com/v1"
	}
	return &Anthropic{
		apiKey: apiKey,
		model:  model,
		host:   host,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
			httpclient.WithMaxRetries(2),
			httpclient.WithBaseDelay(2*time.Second),
			httpclient.WithHeaderParser(httpclient.ParseAnthropicRateLimitHeaders),
		),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *Anthropic) Generate(ctx context.Context, messages []Message) (string, int, error) {
	return p.call(ctx, messages, "")
}

// GenerateStructured appends a schema instruction to the system prompt
// and, if cfg.Prefill is set, seeds the assistant's reply so it begins
// the JSON object directly — Anthropic has no native response_format,
// so this mirrors the schema-in-prompt fallback every other provider
// without structured output uses.
func (p *Anthropic) GenerateStructured(ctx context.Context, messages []Message, cfg StructuredOutputConfig) (string, int, error) {
	instruction := ""
	if cfg.Schema != nil {
		b, _ := json.Marshal(cfg.Schema)
		instruction = fmt.Sprintf("\n\nRespond with ONLY a JSON object matching this schema:\n%s", b)
	}
	if cfg.Prefill != "" {
		messages = append(append([]Message(nil), messages...), Message{Role: "assistant", Content: cfg.Prefill})
	}
	text, tokens, err := p.call(ctx, messages, instruction)
	if err != nil {
		return "", tokens, err
	}
	if cfg.Prefill != "" && len(text) > 0 {
		text = cfg.Prefill + text
	}
	return text, tokens, nil
}

func (p *Anthropic) call(ctx context.Context, messages []Message, systemSuffix string) (string, int, error) {
	var system string
	msgs := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system += m.Content + "\n"
			continue
		}
		msgs = append(msgs, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	system += systemSuffix

	body, err := json.Marshal(anthropicRequest{Model: p.model, System: system, Messages: msgs, MaxTokens: 4096})
	if err != nil {
		return "", 0, fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

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
		return "", 0, fmt.Errorf("llm: anthropic error (%d): %s", resp.StatusCode, raw)
	}

	var ar anthropicResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		return "", 0, fmt.Errorf("llm: decode response: %w", err)
	}
	var text string
	for _, c := range ar.Content {
		text += c.Text
	}
	return text, ar.Usage.InputTokens + ar.Usage.OutputTokens, nil
}

func (p *Anthropic) SupportsStructuredOutput() bool { return false }
func (p *Anthropic) GetModelName() string           { return p.model }

var _ Provider = (*Anthropic)(nil)
