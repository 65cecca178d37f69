package recording

import (
	"context"
	"strings"

	"github.com/kadirpekel/memori/pkg/llm"
	"github.com/kadirpekel/memori/pkg/tenant"
)

// ContextProvider retrieves the messages to prepend ahead of an
// outbound LLM call for a tenant — conscious-mode curated context or
// an auto-mode live search, depending on configuration. Its method
// signature is kept structurally identical to *memori.Memori's
// RetrieveContext so Wrap's caller (pkg/memori) can pass itself
// without this package importing pkg/memori, which already imports
// pkg/recording.
type ContextProvider interface {
	RetrieveContext(ctx context.Context, tc tenant.Context, lastUserMessage string, limit int) ([]llm.Message, error)
}

// internalSearchSentinel matches injection.InternalSearchSentinel
// without importing pkg/injection purely for a string constant — a
// message tagged with it (by the classifier's own prompt, or a host
// application marking a call as internal) is never re-injected into,
// preventing the recursion where fetching context triggers a search
// that itself would want context injected.
const internalSearchSentinel = "[INTERNAL_MEMORI_SEARCH]"

// wrapped decorates an llm.Provider, recording every exchange through a
// Pipeline and, when a ContextProvider is configured, injecting
// recalled/curated memory ahead of the outbound call. It implements
// the same Provider interface as what it wraps, so callers that
// already depend on llm.Provider need no changes to start recording —
// the interception point the source implementation reaches by patching
// a client's methods at runtime is reached here by substitutability
// instead.
type wrapped struct {
	inner       llm.Provider
	pipeline    *Pipeline
	tenants     *tenant.Manager
	clientID    string
	ctxProvider ContextProvider
	injectLimit int
}

// Wrap returns an llm.Provider that records every Generate/
// GenerateStructured call through pipeline, scoped to whatever tenant
// context is currently active for clientID in tenants (see
// tenant.Manager) — the registry exists precisely because a decorator
// has no per-call parameter to carry tenant identity through. When
// ctxProvider is non-nil, it also injects recalled context ahead of
// every call that isn't itself an internal memory-layer call.
func Wrap(inner llm.Provider, pipeline *Pipeline, tenants *tenant.Manager, clientID string, ctxProvider ContextProvider, injectLimit int) llm.Provider {
	return &wrapped{
		inner: inner, pipeline: pipeline, tenants: tenants, clientID: clientID,
		ctxProvider: ctxProvider, injectLimit: injectLimit,
	}
}

func (w *wrapped) Generate(ctx context.Context, messages []llm.Message) (string, int, error) {
	messages = w.inject(ctx, messages)
	text, tokens, err := w.inner.Generate(ctx, messages)
	w.record(ctx, messages, text, err)
	return text, tokens, err
}

func (w *wrapped) GenerateStructured(ctx context.Context, messages []llm.Message, cfg llm.StructuredOutputConfig) (string, int, error) {
	messages = w.inject(ctx, messages)
	text, tokens, err := w.inner.GenerateStructured(ctx, messages, cfg)
	w.record(ctx, messages, text, err)
	return text, tokens, err
}

// inject prepends recalled/curated context ahead of messages, unless
// no ContextProvider is configured, no tenant context is active, or
// this call is itself internal to the memory layer (the recursion
// guard: classifying an exchange must not trigger another injection).
func (w *wrapped) inject(ctx context.Context, messages []llm.Message) []llm.Message {
	if w.ctxProvider == nil || isInternalCall(messages) {
		return messages
	}
	tc, ok := w.tenants.Current(w.clientID)
	if !ok || !tc.Valid() {
		return messages
	}

	lastUser := lastUserContent(messages)
	prefix, err := w.ctxProvider.RetrieveContext(ctx, tc, lastUser, w.injectLimit)
	if err != nil || len(prefix) == 0 {
		return messages
	}
	return append(prefix, messages...)
}

func isInternalCall(messages []llm.Message) bool {
	for _, m := range messages {
		if strings.Contains(m.Content, internalSearchSentinel) {
			return true
		}
	}
	return false
}

func (w *wrapped) record(ctx context.Context, messages []llm.Message, response string, callErr error) {
	if callErr != nil || len(messages) == 0 || isInternalCall(messages) {
		return
	}
	tc, ok := w.tenants.Current(w.clientID)
	if !ok || !tc.Valid() {
		return
	}

	userInput := lastUserContent(messages)
	if userInput == "" {
		return
	}
	_, _ = w.pipeline.Record(ctx, tc.UserID, tc.AssistantID, tc.SessionID, userInput, response, w.inner.GetModelName(), nil)
}

func lastUserContent(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func (w *wrapped) SupportsStructuredOutput() bool { return w.inner.SupportsStructuredOutput() }
func (w *wrapped) GetModelName() string           { return w.inner.GetModelName() }

var _ llm.Provider = (*wrapped)(nil)
