// Package llm is the provider-agnostic collaborator surface memori
// calls for classification and (via recording.Wrap) interception. It
// is a deliberate trim of a larger per-provider abstraction down to the
// two capabilities memori actually needs: plain generation and
// structured-output generation.
package llm

import "context"

// Message is one turn in a conversation, the universal shape every
// provider adapter translates to and from its own wire format.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// StructuredOutputConfig is a provider-agnostic description of the
// shape a structured-output call should return. Not every provider
// supports native structured output (see Provider.SupportsStructuredOutput);
// callers that need it everywhere should prefer the JSON-schema-in-prompt
// fallback baked into classifier.Classifier rather than relying on Schema
// being honored by every adapter.
type StructuredOutputConfig struct {
	Schema  map[string]any // JSON Schema describing the desired object
	Name    string         // schema name, required by some providers
	Strict  bool
	Prefill string // Anthropic-specific: seed the assistant turn
}

// Provider is the collaborator interface memori's recording pipeline
// and classifier depend on.
type Provider interface {
	// Generate produces a plain-text completion.
	Generate(ctx context.Context, messages []Message) (text string, tokens int, err error)

	// GenerateStructured produces a completion intended to satisfy cfg.Schema.
	// Implementations that cannot honor Schema natively should still
	// return their best-effort text; the caller falls back to
	// best-effort JSON extraction in that case.
	GenerateStructured(ctx context.Context, messages []Message, cfg StructuredOutputConfig) (text string, tokens int, err error)

	// SupportsStructuredOutput reports whether this provider honors
	// StructuredOutputConfig.Schema natively.
	SupportsStructuredOutput() bool

	GetModelName() string
}
